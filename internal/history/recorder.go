package history

import (
	"context"
	"time"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// recordTimeout bounds a single insert.
const recordTimeout = 5 * time.Second

// Logger defines the logging interface for the history package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Recorder stores watchdog transitions for one gateway.
//
// It is an event sink: attach it with OnAny, ideally behind a
// sink.Dispatcher so inserts stay off the watchdog tick. Per-ping events
// are ignored.
type Recorder struct {
	repo    Repository
	gateway string
	logger  Logger
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository, gateway string, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, gateway: gateway, logger: logger}
}

// Handle records e if it is a transition. Failures are logged.
func (r *Recorder) Handle(e watchdog.Event) {
	if !IsTransition(e.Kind) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.repo.Record(ctx, r.gateway, e); err != nil {
		r.logger.Warn("recording connection event failed",
			"kind", e.Kind.Slug(),
			"event_id", e.ID,
			"error", err,
		)
		return
	}
	r.logger.Debug("connection event recorded", "kind", e.Kind.Slug())
}

// RunPruner deletes entries older than retention every interval until ctx
// is cancelled. A non-positive retention keeps everything and returns at once.
//
// Parameters:
//   - ctx: Stops the loop when cancelled
//   - repo: Repository to prune
//   - retention: Maximum entry age
//   - interval: Time between prunes; the first prune runs immediately
//   - logger: Receives prune results (nil disables)
func RunPruner(ctx context.Context, repo Repository, retention, interval time.Duration, logger Logger) {
	if retention <= 0 || interval <= 0 {
		return
	}
	if logger == nil {
		logger = noopLogger{}
	}

	prune := func() {
		n, err := repo.Prune(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("pruning connection history failed", "error", err)
			}
			return
		}
		if n > 0 {
			logger.Info("connection history pruned", "deleted", n, "retention", retention.String())
		}
	}

	prune()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
