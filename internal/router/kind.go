package router

import (
	"strings"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/mqtt"
)

// Kind is the class of an inbound message.
type Kind int

// Message kinds, in classification order.
const (
	KindUnknown Kind = iota
	KindResponse
	KindReboot
	KindFactoryReset
	KindMetadataUpdate
	KindCommand
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindReboot:
		return "reboot"
	case KindFactoryReset:
		return "factory_reset"
	case KindMetadataUpdate:
		return "metadata_update"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Classify maps a topic to its Kind. Command topics are matched on the fixed
// prefix only; the broker has already applied the wildcard subscription.
func Classify(topic string) Kind {
	topics := mqtt.Topics{}
	switch {
	case topic == topics.Response():
		return KindResponse
	case topic == topics.Reboot():
		return KindReboot
	case topic == topics.FactoryReset():
		return KindFactoryReset
	case topic == topics.Update():
		return KindMetadataUpdate
	case strings.HasPrefix(topic, mqtt.TopicPrefixCommand):
		return KindCommand
	default:
		return KindUnknown
	}
}
