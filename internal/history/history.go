package history

import (
	"context"
	"time"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// Entry is one recorded connection transition.
type Entry struct {
	// ID is the auto-incremented primary key.
	ID int64 `json:"id"`

	// EventID is the watchdog event ID; recording the same event twice is a no-op.
	EventID string `json:"event_id"`

	Gateway string             `json:"gateway"`
	Kind    watchdog.EventKind `json:"kind"`

	// FailedPingCount is the consecutive failure count when the event fired.
	FailedPingCount int `json:"failed_ping_count"`

	// Attempt and MaxAttempts are set for reconnecting entries.
	Attempt     int            `json:"attempt,omitempty"`
	MaxAttempts watchdog.Limit `json:"max_attempts,omitempty"`

	// CreatedAt is the event time (UTC, millisecond precision).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves connection transitions.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record stores e for gateway.
	Record(ctx context.Context, gateway string, e watchdog.Event) error

	// GetHistory returns up to limit entries for gateway, newest first.
	// Implementations may clamp limit.
	GetHistory(ctx context.Context, gateway string, limit int) ([]Entry, error)

	// Prune deletes entries older than olderThan and returns how many were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IsTransition reports whether events of kind k are recorded.
func IsTransition(k watchdog.EventKind) bool {
	switch k {
	case watchdog.EventConnectionAlive,
		watchdog.EventConnectionLost,
		watchdog.EventGatewayOffline,
		watchdog.EventReconnecting,
		watchdog.EventGiveUp:
		return true
	default:
		return false
	}
}
