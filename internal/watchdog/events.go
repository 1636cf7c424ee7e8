package watchdog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies one of the notifications the watchdog emits.
type EventKind uint8

// Event kinds, in the order they can appear within a single tick.
const (
	// EventPingSucceeded is emitted on every successful probe.
	EventPingSucceeded EventKind = iota + 1

	// EventPingFailed is emitted on every failed probe; Event.FailedPingCount is set.
	EventPingFailed

	// EventConnectionAlive is emitted when a known-dead connection answers again.
	EventConnectionAlive

	// EventConnectionLost is emitted when a known-alive connection stops answering.
	EventConnectionLost

	// EventGatewayOffline is emitted once per failure episode, when the
	// failed ping count reaches the offline threshold.
	EventGatewayOffline

	// EventReconnecting is emitted when a reconnect attempt begins;
	// Event.Attempt and Event.MaxAttempts are set.
	EventReconnecting

	// EventGiveUp is emitted when reconnect attempts are exhausted or a
	// reconnect attempt fails.
	EventGiveUp
)

var eventKindNames = map[EventKind]string{
	EventPingSucceeded:   "ping succeeded",
	EventPingFailed:      "ping failed",
	EventConnectionAlive: "connection alive",
	EventConnectionLost:  "connection lost",
	EventGatewayOffline:  "gateway offline",
	EventReconnecting:    "reconnecting",
	EventGiveUp:          "give up",
}

// EventKinds returns every event kind in emission order.
func EventKinds() []EventKind {
	return []EventKind{
		EventPingSucceeded,
		EventPingFailed,
		EventConnectionAlive,
		EventConnectionLost,
		EventGatewayOffline,
		EventReconnecting,
		EventGiveUp,
	}
}

// String returns the event name, e.g. "gateway offline".
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Slug returns the event name in snake_case, e.g. "gateway_offline".
// Slugs are used for MQTT topics, AMQP routing keys and WebSocket channels.
func (k EventKind) Slug() string {
	return strings.ReplaceAll(k.String(), " ", "_")
}

// ParseEventKind accepts either the event name or its slug.
func ParseEventKind(s string) (EventKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range EventKinds() {
		if s == k.String() || s == k.Slug() {
			return k, true
		}
	}
	return 0, false
}

// MarshalText encodes the kind as its slug.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.Slug()), nil
}

// UnmarshalText accepts the event name or slug.
func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseEventKind(string(text))
	if !ok {
		return fmt.Errorf("unknown event kind %q", text)
	}
	*k = parsed
	return nil
}

// Event is a single watchdog notification.
type Event struct {
	// ID uniquely identifies this emission.
	ID string `json:"id"`

	Kind EventKind `json:"kind"`

	// Time is when the tick that produced the event observed the probe result.
	Time time.Time `json:"time"`

	// FailedPingCount is set for EventPingFailed.
	FailedPingCount int `json:"failed_ping_count,omitempty"`

	// Attempt and MaxAttempts are set for EventReconnecting.
	Attempt     int   `json:"attempt,omitempty"`
	MaxAttempts Limit `json:"max_attempts,omitempty"`
}

// Handler receives events. Handlers are called synchronously from the tick
// and should return quickly; a panicking handler is recovered and logged.
type Handler func(Event)

// SubscriptionID identifies a registered handler for Off.
type SubscriptionID string

// anyKind registers a handler for every event kind.
const anyKind EventKind = 0

type subscriber struct {
	id      SubscriptionID
	kind    EventKind
	handler Handler
}

// Registry is a multi-subscriber callback registry keyed by event kind.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Handlers may subscribe or unsubscribe from within a callback.
type Registry struct {
	mu   sync.RWMutex
	subs []subscriber

	logger func() Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: func() Logger { return noopLogger{} },
	}
}

// On registers handler for a single event kind.
func (r *Registry) On(kind EventKind, handler Handler) SubscriptionID {
	return r.add(kind, handler)
}

// OnAny registers handler for every event kind.
func (r *Registry) OnAny(handler Handler) SubscriptionID {
	return r.add(anyKind, handler)
}

func (r *Registry) add(kind EventKind, handler Handler) SubscriptionID {
	id := SubscriptionID(uuid.NewString())
	r.mu.Lock()
	r.subs = append(r.subs, subscriber{id: id, kind: kind, handler: handler})
	r.mu.Unlock()
	return id
}

// Off removes the handler registered under id.
// It reports whether a handler was removed.
func (r *Registry) Off(id SubscriptionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return true
		}
	}
	return false
}

// OffAll removes every handler registered for kind. Handlers registered with
// OnAny are not affected.
func (r *Registry) OffAll(kind EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.subs[:0:0]
	for _, s := range r.subs {
		if s.kind != kind {
			kept = append(kept, s)
		}
	}
	r.subs = kept
}

// Count returns the number of handlers that would receive an event of kind.
func (r *Registry) Count(kind EventKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.subs {
		if s.kind == kind || s.kind == anyKind {
			n++
		}
	}
	return n
}

// Emit delivers e to every matching handler in registration order.
// A handler that panics does not prevent delivery to the remaining handlers.
func (r *Registry) Emit(e Event) {
	r.mu.RLock()
	targets := make([]subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		if s.kind == e.Kind || s.kind == anyKind {
			targets = append(targets, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range targets {
		r.dispatch(s, e)
	}
}

// dispatch calls a single handler with panic recovery.
func (r *Registry) dispatch(s subscriber, e Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().Error("watchdog event handler panic recovered",
				"event", e.Kind.String(),
				"subscription", string(s.id),
				"panic", rec,
			)
		}
	}()
	s.handler(e)
}
