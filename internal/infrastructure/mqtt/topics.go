package mqtt

import "strings"

// Topic prefixes of the device-management and event namespaces.
const (
	// TopicPrefixEvent is the base for device event topics.
	TopicPrefixEvent = "iot-2/evt"

	// TopicPrefixCommand is the base for application commands.
	// Any inbound topic with this prefix is treated as a command.
	TopicPrefixCommand = "iot-2/cmd/"

	// TopicPrefixManagement is the base for platform device-management topics.
	TopicPrefixManagement = "iotdm-1"
)

// Topics provides the fixed topic registry of a managed device.
// Using these helpers ensures the session, supervisor and router agree on
// the exact strings.
//
//	topics := mqtt.Topics{}
//	topics.Info() // "iot-2/evt/info/fmt/json"
type Topics struct{}

// Status returns the periodic status report topic.
func (Topics) Status() string {
	return TopicPrefixEvent + "/status/fmt/json"
}

// Info returns the topic for info, error, OTA and config reports.
func (Topics) Info() string {
	return TopicPrefixEvent + "/info/fmt/json"
}

// Command returns the wildcard subscription for application commands.
func (Topics) Command() string {
	return TopicPrefixCommand + "+/fmt/+"
}

// Response returns the management acknowledgement topic.
func (Topics) Response() string {
	return TopicPrefixManagement + "/response"
}

// Update returns the metadata update topic.
func (Topics) Update() string {
	return TopicPrefixManagement + "/device/update"
}

// Reboot returns the remote reboot topic.
func (Topics) Reboot() string {
	return TopicPrefixManagement + "/mgmt/initiate/device/reboot"
}

// FactoryReset returns the remote factory reset topic.
func (Topics) FactoryReset() string {
	return TopicPrefixManagement + "/mgmt/initiate/device/factory_reset"
}

// Manage returns the topic the device announces itself on after subscribing.
func (Topics) Manage() string {
	return "iotdevice-1/mgmt/manage"
}

// Subscriptions returns every inbound topic in the order they must be
// subscribed. The session is only usable once all of them succeed.
func (t Topics) Subscriptions() []string {
	return []string{
		t.Response(),
		t.Reboot(),
		t.FactoryReset(),
		t.Update(),
		t.Command(),
	}
}

// CommandName extracts the command name from an inbound command topic.
//
// Example: "iot-2/cmd/upgrade/fmt/json" returns "upgrade".
// Returns "" if topic is not a command topic.
func CommandName(topic string) string {
	rest, ok := strings.CutPrefix(topic, TopicPrefixCommand)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}
