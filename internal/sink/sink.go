package sink

import (
	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// Logger defines the logging interface for sinks.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Source is anything events can be subscribed to; *watchdog.Watchdog and
// *watchdog.Registry both qualify.
type Source interface {
	OnAny(handler watchdog.Handler) watchdog.SubscriptionID
}

// StatusSource provides the status snapshot published alongside events.
type StatusSource interface {
	Status() watchdog.Status
}

// Sink consumes watchdog events.
type Sink interface {
	Handle(e watchdog.Event)
}

// Attach subscribes every sink to src and returns the subscription IDs in
// the same order.
func Attach(src Source, sinks ...Sink) []watchdog.SubscriptionID {
	ids := make([]watchdog.SubscriptionID, 0, len(sinks))
	for _, s := range sinks {
		ids = append(ids, src.OnAny(s.Handle))
	}
	return ids
}
