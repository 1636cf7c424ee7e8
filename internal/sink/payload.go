package sink

import (
	"time"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// EventPayload is the broker representation of a watchdog event.
//
// Field names are shared by the JSON and CBOR encodings.
type EventPayload struct {
	ID              string    `json:"id"`
	Gateway         string    `json:"gateway"`
	Kind            string    `json:"kind"`
	Time            time.Time `json:"time"`
	FailedPingCount int       `json:"failed_ping_count,omitempty"`
	Attempt         int       `json:"attempt,omitempty"`

	// MaxAttempts is a number or "unlimited"; set only for reconnecting.
	MaxAttempts string `json:"max_attempts,omitempty"`
}

// NewEventPayload converts e for gateway.
func NewEventPayload(gateway string, e watchdog.Event) EventPayload {
	p := EventPayload{
		ID:              e.ID,
		Gateway:         gateway,
		Kind:            e.Kind.Slug(),
		Time:            e.Time.UTC(),
		FailedPingCount: e.FailedPingCount,
		Attempt:         e.Attempt,
	}
	if e.Kind == watchdog.EventReconnecting {
		p.MaxAttempts = e.MaxAttempts.String()
	}
	return p
}

// StatusPayload is the retained gateway status.
type StatusPayload struct {
	Gateway          string     `json:"gateway"`
	State            string     `json:"state"`
	Liveness         string     `json:"liveness"`
	Active           bool       `json:"active"`
	GivenUp          bool       `json:"given_up"`
	FailedPingCount  int        `json:"failed_ping_count"`
	OfflinePingCount int        `json:"offline_ping_count"`
	ResetAttempts    int        `json:"reset_attempts"`
	LastProbe        *time.Time `json:"last_probe,omitempty"`
	Time             time.Time  `json:"time"`
}

// NewStatusPayload converts s for gateway, stamped with at.
func NewStatusPayload(gateway string, s watchdog.Status, at time.Time) StatusPayload {
	p := StatusPayload{
		Gateway:          gateway,
		State:            string(s.State),
		Liveness:         s.Liveness.String(),
		Active:           s.Active,
		GivenUp:          s.GivenUp,
		FailedPingCount:  s.FailedPingCount,
		OfflinePingCount: s.OfflinePingCount,
		ResetAttempts:    s.ResetAttempts,
		Time:             at.UTC(),
	}
	if !s.LastProbe.IsZero() {
		last := s.LastProbe.UTC()
		p.LastProbe = &last
	}
	return p
}
