package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gatewatch/internal/infrastructure/config"
	"github.com/nerrad567/gatewatch/internal/infrastructure/mqtt"
	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// Target is a watchable gateway connection.
//
// Every implementation satisfies watchdog.Target and additionally supports
// an initial Connect, restore hooks and Close.
type Target interface {
	watchdog.Target

	// Connect performs a single initial connection attempt.
	Connect(ctx context.Context) error

	// OnRestore registers a hook run by RestoreObservers.
	OnRestore(hook RestoreHook)

	// Kind returns the probe type ("tcp", "http" or "mqtt").
	Kind() string

	// Close releases held connections. The target must not be used afterwards.
	Close() error
}

// Logger defines the logging interface for probe targets.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RestoreHook re-establishes one observer after the gateway reconnected,
// e.g. re-publishing retained status or re-subscribing a data feed.
type RestoreHook func(ctx context.Context) error

// restoreHooks is embedded by every target.
type restoreHooks struct {
	mu    sync.RWMutex
	hooks []RestoreHook
}

// OnRestore registers a hook. Hooks run in registration order.
func (r *restoreHooks) OnRestore(hook RestoreHook) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	r.hooks = append(r.hooks, hook)
	r.mu.Unlock()
}

// runHooks runs every hook and joins their errors. A failing hook does not
// prevent later hooks from running.
func (r *restoreHooks) runHooks(ctx context.Context) error {
	r.mu.RLock()
	hooks := make([]RestoreHook, len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.RUnlock()

	var errs []error
	for i, hook := range hooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("restore hook %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// New builds the target selected by cfg.Probe.
//
// Parameters:
//   - cfg: Gateway section of the configuration (already validated)
//   - mqttClient: Broker connection, required only for the mqtt probe
//   - logger: Optional logger (nil disables logging)
//
// Returns:
//   - Target: Ready to Connect or hand to the watchdog
//   - error: ErrUnknownProbe or ErrMQTTClientRequired
func New(cfg config.GatewayConfig, mqttClient *mqtt.Client, logger Logger) (Target, error) {
	timeout := cfg.GetProbeTimeout()

	switch cfg.Probe {
	case config.ProbeTCP:
		return NewTCPTarget(cfg.Address, timeout, logger), nil
	case config.ProbeHTTP:
		return NewHTTPTarget(cfg.URL, timeout, cfg.Retries, logger), nil
	case config.ProbeMQTT:
		if mqttClient == nil {
			return nil, ErrMQTTClientRequired
		}
		return NewMQTTTarget(mqttClient, mqtt.Topics{}.GatewayPing(cfg.Name), timeout, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProbe, cfg.Probe)
	}
}
