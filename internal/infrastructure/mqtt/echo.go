package mqtt

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RoundTrip publishes a nonce to topic and waits until the broker delivers it
// back to this client. It proves the broker accepts, routes and delivers
// messages, which IsConnected alone cannot.
//
// The echo subscription is created on first use and tracked like any other,
// so it survives reconnects.
//
// Parameters:
//   - ctx: Bounds the whole round trip; callers should set a deadline
//   - topic: Echo topic, e.g. Topics{}.GatewayPing(name)
//
// Returns:
//   - error: ErrNotConnected, a publish/subscribe failure, or ErrTimeout
func (c *Client) RoundTrip(ctx context.Context, topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if !c.HasSubscription(topic) {
		if err := c.Subscribe(topic, 1, c.handleEcho); err != nil {
			return err
		}
	}

	nonce := uuid.NewString()
	done := make(chan struct{})

	c.echoMu.Lock()
	c.echoWaiters[nonce] = done
	c.echoMu.Unlock()
	defer func() {
		c.echoMu.Lock()
		delete(c.echoWaiters, nonce)
		c.echoMu.Unlock()
	}()

	if err := c.Publish(topic, []byte(nonce), 1, false); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: echo on %s: %w", ErrTimeout, topic, ctx.Err())
	}
}

// handleEcho releases the RoundTrip waiting for payload, if any.
// Nonces from other gatewatch instances on the same topic are ignored.
func (c *Client) handleEcho(_ string, payload []byte) error {
	c.echoMu.Lock()
	defer c.echoMu.Unlock()

	if ch, ok := c.echoWaiters[string(payload)]; ok {
		close(ch)
		delete(c.echoWaiters, string(payload))
	}
	return nil
}
