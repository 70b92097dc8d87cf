package mqtt

import (
	"fmt"
)

// maxPayloadSize bounds outgoing payloads. Device reports are small JSON
// envelopes; anything near this size is a bug.
const maxPayloadSize = 1 << 20

// Publish sends payload on topic and waits for paho to hand it off
// (QoS 0) or for the broker to acknowledge it (QoS 1 and 2).
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload on %s", ErrPublishFailed, len(payload), topic)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrPublishFailed, topic, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}
