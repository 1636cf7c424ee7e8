package mqtt

import (
	"fmt"
)

// maxPayloadSize caps a single message at 1MB, below common broker limits.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to accept it.
//
// Events go out with retained=false. Status topics set retained=true so a
// subscriber that connects later still learns the current gateway state.
//
// Parameters:
//   - topic: e.g. Topics{}.GatewayEvent("plant-gw-01", "gateway_offline")
//   - payload: Encoded event (JSON or CBOR), at most 1MB
//   - qos: 0 (at most once), 1 (at least once) or 2 (exactly once)
//   - retained: Whether the broker keeps the message for new subscribers
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected or ErrPublishFailed
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}

	return await(c.client.Publish(topic, qos, retained, payload), defaultPublishTimeout, ErrPublishFailed)
}

// PublishRetained publishes a retained message at the configured QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, c.QoS(), true)
}
