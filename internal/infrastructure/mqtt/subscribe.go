package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// await waits up to timeout for token and wraps any failure in sentinel.
func await(token pahomqtt.Token, timeout time.Duration, sentinel error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

// Subscribe registers handler for topic, which may use the + and # wildcards
// (e.g. "gatewatch/+/ping").
//
// The subscription is remembered and re-established by RestoreSubscriptions,
// both on library auto-reconnect and after a watchdog-forced Reconnect.
// paho runs handlers on its own goroutines; a panicking handler is recovered
// and logged.
//
// Parameters:
//   - topic: Topic filter
//   - qos: Maximum QoS for delivered messages (0-2)
//   - handler: Called for each message
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected or ErrSubscribeFailed
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	case !c.IsConnected():
		return ErrNotConnected
	}

	sub := subscription{topic: topic, qos: qos, handler: handler}
	c.subMu.Lock()
	c.subscriptions[topic] = sub
	c.subMu.Unlock()

	if err := c.subscribe(sub); err != nil {
		c.forget(topic)
		return err
	}
	return nil
}

// Unsubscribe stops delivery for a topic filter previously passed to
// Subscribe. Messages already in flight may still reach the handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.forget(topic)
	return await(c.client.Unsubscribe(topic), defaultPublishTimeout, ErrUnsubscribeFailed)
}

func (c *Client) subscribe(sub subscription) error {
	token := c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
	return await(token, defaultPublishTimeout, ErrSubscribeFailed)
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether exactly this topic filter is tracked.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}
