package sink

import (
	"fmt"
	"strings"
	"sync"

	"github.com/streadway/amqp"

	"github.com/nerrad567/gatewatch/internal/infrastructure/config"
	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// routingKeyPrefix is the first segment of every AMQP routing key.
const routingKeyPrefix = "gatewatch"

// AMQPChannel is the part of *amqp.Channel the publisher needs.
type AMQPChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher fans watchdog events out to an AMQP topic exchange.
//
// Routing keys are gatewatch.{gateway}.{kind}, so consumers can bind
// "gatewatch.*.gateway_offline" or "gatewatch.plant-gw-01.#".
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type AMQPPublisher struct {
	ch       AMQPChannel
	conn     *amqp.Connection
	exchange string
	gateway  string
	enc      *Encoder
	logger   Logger

	mu     sync.Mutex
	closed bool
}

// DialAMQP connects to the broker, opens a channel and declares the exchange.
//
// Parameters:
//   - cfg: AMQP section of the configuration
//   - gateway: Gateway name used in routing keys
//   - enc: Payload encoder
//   - logger: Receives publish failures (nil disables)
//
// Returns:
//   - *AMQPPublisher: Ready to Handle events; Close releases the connection
//   - error: If dialling, opening the channel or declaring the exchange fails
func DialAMQP(cfg config.AMQPConfig, gateway string, enc *Encoder, logger Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}

	// durable, not auto-deleted, not internal, wait for confirmation
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %q: %w", cfg.Exchange, err)
	}

	p := NewAMQPPublisher(ch, cfg.Exchange, gateway, enc, logger)
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher creates a publisher on an open channel.
func NewAMQPPublisher(ch AMQPChannel, exchange, gateway string, enc *Encoder, logger Logger) *AMQPPublisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &AMQPPublisher{
		ch:       ch,
		exchange: exchange,
		gateway:  gateway,
		enc:      enc,
		logger:   logger,
	}
}

// RoutingKey returns the routing key for kind events of gateway.
func RoutingKey(gateway string, kind watchdog.EventKind) string {
	return strings.Join([]string{routingKeyPrefix, gateway, kind.Slug()}, ".")
}

// Handle publishes e, logging failures.
func (p *AMQPPublisher) Handle(e watchdog.Event) {
	if err := p.Publish(e); err != nil {
		p.logger.Warn("publishing watchdog event to amqp failed",
			"kind", e.Kind.Slug(),
			"error", err,
		)
	}
}

// Publish sends one event to the exchange.
func (p *AMQPPublisher) Publish(e watchdog.Event) error {
	body, err := p.enc.Encode(NewEventPayload(p.gateway, e))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	key := RoutingKey(p.gateway, e.Kind)
	msg := amqp.Publishing{
		ContentType:  p.enc.ContentType(),
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.Time.UTC(),
		Type:         e.Kind.Slug(),
		AppId:        routingKeyPrefix,
		Body:         body,
	}
	if err := p.ch.Publish(p.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, key, err)
	}
	return nil
}

// Close closes the channel and, when dialled by DialAMQP, the connection.
// Safe to call multiple times.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("closing amqp publisher: %w", err)
	}
	return nil
}
