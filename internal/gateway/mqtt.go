package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gatewatch/internal/infrastructure/config"
	"github.com/nerrad567/gatewatch/internal/infrastructure/mqtt"
)

// BrokerClient is the part of *mqtt.Client the MQTT target needs.
type BrokerClient interface {
	IsConnected() bool
	RoundTrip(ctx context.Context, topic string) error
	Reconnect(ctx context.Context) error
	RestoreSubscriptions() error
}

// MQTTTarget watches an MQTT broker acting as the gateway.
//
// A ping is an echo round trip on the gateway's ping topic: a connected flag
// alone does not prove the broker still routes messages. The MQTT client
// should be configured with reconnect.auto off so the watchdog owns
// reconnection.
type MQTTTarget struct {
	restoreHooks

	client  BrokerClient
	topic   string
	timeout time.Duration
	logger  Logger
}

// NewMQTTTarget creates an MQTT target pinging on topic.
// A nil logger disables logging.
func NewMQTTTarget(client BrokerClient, topic string, timeout time.Duration, logger Logger) *MQTTTarget {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTTarget{
		client:  client,
		topic:   topic,
		timeout: timeout,
		logger:  logger,
	}
}

// Kind returns "mqtt".
func (t *MQTTTarget) Kind() string { return config.ProbeMQTT }

// Topic returns the echo topic.
func (t *MQTTTarget) Topic() string { return t.topic }

// Ping publishes a nonce and waits for the broker to deliver it back.
func (t *MQTTTarget) Ping(ctx context.Context) (bool, error) {
	if !t.client.IsConnected() {
		return false, mqtt.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.client.RoundTrip(ctx, t.topic); err != nil {
		return false, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	return true, nil
}

// Connect reconnects unless the client is already connected.
func (t *MQTTTarget) Connect(ctx context.Context) error {
	if t.client.IsConnected() {
		return nil
	}
	if _, err := t.Reconnect(ctx); err != nil {
		return err
	}
	return nil
}

// Reconnect forces the client to drop and re-establish its broker session.
func (t *MQTTTarget) Reconnect(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.client.Reconnect(ctx); err != nil {
		t.logger.Warn("broker reconnect failed", "topic", t.topic, "error", err)
		return false, err
	}
	t.logger.Info("broker session reconnected", "topic", t.topic)
	return true, nil
}

// RestoreObservers re-subscribes every tracked topic, then runs the hooks.
func (t *MQTTTarget) RestoreObservers(ctx context.Context) error {
	return errors.Join(t.client.RestoreSubscriptions(), t.runHooks(ctx))
}

// Close is a no-op; the MQTT client is owned by the caller.
func (t *MQTTTarget) Close() error {
	return nil
}
