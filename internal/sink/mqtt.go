package sink

import (
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gatewatch/internal/infrastructure/mqtt"
	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// eventQoS is used for event messages: at-least-once, never retained.
const eventQoS byte = 1

// MQTTClient is the part of *mqtt.Client the publisher needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTPublisher publishes watchdog events and the retained gateway status.
//
// Events go to gatewatch/{gateway}/event/{kind}. The status snapshot goes to
// gatewatch/{gateway}/status, retained, whenever the derived state changes,
// so late subscribers always see the current state.
type MQTTPublisher struct {
	client  MQTTClient
	gateway string
	enc     *Encoder
	status  StatusSource
	logger  Logger
	now     func() time.Time

	mu        sync.Mutex
	lastState watchdog.State
}

// NewMQTTPublisher creates a publisher.
//
// Parameters:
//   - client: Connected MQTT client
//   - gateway: Gateway name used in topics
//   - enc: Payload encoder
//   - status: Status snapshot source (nil disables status publishing)
//   - logger: Receives publish failures (nil disables)
func NewMQTTPublisher(client MQTTClient, gateway string, enc *Encoder, status StatusSource, logger Logger) *MQTTPublisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTPublisher{
		client:  client,
		gateway: gateway,
		enc:     enc,
		status:  status,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle publishes e and, if the state changed, the status.
func (p *MQTTPublisher) Handle(e watchdog.Event) {
	if err := p.PublishEvent(e); err != nil {
		p.logger.Warn("publishing watchdog event failed",
			"kind", e.Kind.Slug(),
			"error", err,
		)
	}

	if p.status == nil {
		return
	}
	if err := p.publishStatusIfChanged(); err != nil {
		p.logger.Warn("publishing gateway status failed", "error", err)
	}
}

// PublishEvent publishes a single event.
func (p *MQTTPublisher) PublishEvent(e watchdog.Event) error {
	payload, err := p.enc.Encode(NewEventPayload(p.gateway, e))
	if err != nil {
		return err
	}

	topic := mqtt.Topics{}.GatewayEvent(p.gateway, e.Kind.Slug())
	if err := p.client.Publish(topic, payload, eventQoS, false); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// PublishStatus publishes the current status unconditionally.
//
// It is also registered as a gateway restore hook, so the retained status is
// refreshed after every reconnect.
func (p *MQTTPublisher) PublishStatus() error {
	if p.status == nil {
		return nil
	}
	s := p.status.Status()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.publishStatusLocked(s)
}

func (p *MQTTPublisher) publishStatusIfChanged() error {
	s := p.status.Status()

	p.mu.Lock()
	defer p.mu.Unlock()

	if s.State == p.lastState {
		return nil
	}
	return p.publishStatusLocked(s)
}

func (p *MQTTPublisher) publishStatusLocked(s watchdog.Status) error {
	payload, err := p.enc.Encode(NewStatusPayload(p.gateway, s, p.now()))
	if err != nil {
		return err
	}

	topic := mqtt.Topics{}.GatewayStatus(p.gateway)
	if err := p.client.Publish(topic, payload, eventQoS, true); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	p.lastState = s.State
	return nil
}
