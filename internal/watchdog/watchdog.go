package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Watchdog periodically pings a Target, classifies the connection as alive or
// offline and drives automatic reconnection with exponential backoff.
//
// Probing is a self-rescheduling loop: each tick pings, updates the counters,
// optionally reconnects, emits events and then schedules the next tick. At most
// one tick runs at a time and at most one timer is pending.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Event handlers run synchronously on the tick goroutine and may call
//     Start, Stop or Status.
type Watchdog struct {
	target Target
	opts   Options
	clock  Clock
	events *Registry

	// tickMu serialises ticks so a stale tick can never overlap a fresh one.
	tickMu sync.Mutex

	mu               sync.Mutex
	active           bool
	halted           bool
	generation       uint64
	timer            Timer
	nextInterval     time.Duration
	liveness         Liveness
	failedPingCount  int
	offlinePingCount int
	resetAttempts    int
	givenUp          bool
	reconnecting     bool
	lastProbe        time.Time

	// restoreWG tracks fire-and-forget RestoreObservers calls.
	restoreWG sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a watchdog for target.
//
// The overrides are validated and merged over DefaultOptions. Probing does
// not begin until Start is called.
//
// Parameters:
//   - target: The connection to watch (owned by the caller)
//   - overrides: Partial options, may be nil
//
// Returns:
//   - *Watchdog: Ready to start
//   - error: ErrNilTarget, or one or more *ConfigurationError (errors.Is ErrInvalidConfiguration)
func New(target Target, overrides *Overrides) (*Watchdog, error) {
	if target == nil {
		return nil, ErrNilTarget
	}

	opts, err := overrides.Build()
	if err != nil {
		return nil, err
	}

	w := &Watchdog{
		target: target,
		opts:   opts,
		clock:  realClock{},
		events: NewRegistry(),
		logger: noopLogger{},
	}
	w.events.logger = w.getLogger
	return w, nil
}

// On registers handler for a single event kind.
func (w *Watchdog) On(kind EventKind, handler Handler) SubscriptionID {
	return w.events.On(kind, handler)
}

// OnAny registers handler for every event kind.
func (w *Watchdog) OnAny(handler Handler) SubscriptionID {
	return w.events.OnAny(handler)
}

// Off removes a handler registered with On or OnAny.
func (w *Watchdog) Off(id SubscriptionID) bool {
	return w.events.Off(id)
}

// OffAll removes every handler registered for kind with On.
func (w *Watchdog) OffAll(kind EventKind) {
	w.events.OffAll(kind)
}

// SetLogger sets the logger for the watchdog and its event registry.
func (w *Watchdog) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	w.loggerMu.Lock()
	w.logger = logger
	w.loggerMu.Unlock()
}

func (w *Watchdog) getLogger() Logger {
	w.loggerMu.RLock()
	defer w.loggerMu.RUnlock()
	return w.logger
}

// Options returns the effective options.
func (w *Watchdog) Options() Options {
	return w.opts
}

// Start begins watching the connection. The first ping happens after
// Options.PingInterval.
//
// Counters are not reset: a watchdog that is stopped and started again
// resumes counting where it left off.
//
// Returns:
//   - error: ErrAlreadyRunning if Start was called without an intervening Stop
func (w *Watchdog) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active {
		return ErrAlreadyRunning
	}

	w.active = true
	w.halted = false
	w.generation++
	w.scheduleLocked(w.opts.PingInterval)
	return nil
}

// Stop cancels the pending ping, if any. A tick that is already running
// completes but does not schedule another. Safe to call when stopped.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.active = false
	w.nextInterval = 0
}

// Wait blocks until every fire-and-forget RestoreObservers call has returned.
// It is intended for orderly shutdown after Stop.
func (w *Watchdog) Wait() {
	w.restoreWG.Wait()
}

// Status returns a snapshot of the run-state.
func (w *Watchdog) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Status{
		Active:           w.active,
		Halted:           w.halted,
		State:            w.stateLocked(),
		Liveness:         w.liveness,
		FailedPingCount:  w.failedPingCount,
		OfflinePingCount: w.offlinePingCount,
		ResetAttempts:    w.resetAttempts,
		GivenUp:          w.givenUp,
		LastProbe:        w.lastProbe,
		NextInterval:     w.nextInterval,
	}
}

// stateLocked derives the connection state. Caller must hold w.mu.
func (w *Watchdog) stateLocked() State {
	switch {
	case w.givenUp:
		return StateGivenUp
	case w.reconnecting:
		return StateReconnecting
	case w.liveness == LivenessAlive:
		return StateAlive
	case w.liveness == LivenessDead && w.failedPingCount >= w.opts.FailedPingCountUntilOffline:
		return StateOffline
	case w.liveness == LivenessDead:
		return StateDegraded
	default:
		return StateUnknown
	}
}

// scheduleLocked arms the single pending timer. Caller must hold w.mu.
func (w *Watchdog) scheduleLocked(d time.Duration) {
	gen := w.generation
	w.nextInterval = d
	w.timer = w.clock.AfterFunc(d, func() { w.tick(gen) })
}

// tick is one execution of the probe-and-reschedule logic.
func (w *Watchdog) tick(gen uint64) {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	w.mu.Lock()
	if !w.active || gen != w.generation {
		// Timer fired after Stop (or belongs to an earlier run).
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.nextInterval = 0
	w.mu.Unlock()

	log := w.getLogger()
	ctx := context.Background()

	alive := w.ping(ctx)

	w.mu.Lock()
	now := w.clock.Now()
	previous := w.liveness
	w.lastProbe = now

	var (
		events    []Event
		restore   bool
		reconnect bool
		exhausted bool
	)

	if alive {
		w.liveness = LivenessAlive
		log.Debug("ping succeeded")
		events = append(events, newEvent(EventPingSucceeded, now))

		if previous == LivenessDead {
			log.Debug("connection is alive again", "failed_pings", w.failedPingCount)
			events = append(events, newEvent(EventConnectionAlive, now))
			restore = w.resetAttempts > 0
		}

		w.failedPingCount = 0
		w.offlinePingCount = 0
		w.resetAttempts = 0
		w.givenUp = false
	} else {
		w.liveness = LivenessDead
		w.failedPingCount++
		log.Debug("ping failed", "count", w.failedPingCount)
		failed := newEvent(EventPingFailed, now)
		failed.FailedPingCount = w.failedPingCount
		events = append(events, failed)

		if previous == LivenessAlive {
			log.Debug("connection lost")
			events = append(events, newEvent(EventConnectionLost, now))
		}

		if w.failedPingCount >= w.opts.FailedPingCountUntilOffline {
			if w.failedPingCount == w.opts.FailedPingCountUntilOffline {
				log.Debug("gateway offline", "consecutive_failures", w.failedPingCount)
				events = append(events, newEvent(EventGatewayOffline, now))
			}

			if w.opts.ReconnectionEnabled {
				w.offlinePingCount++
				if w.offlinePingCount >= w.opts.OfflinePingCountUntilReconnect {
					switch {
					case w.givenUp:
						// Already gave up during this episode; keep pinging.
					case w.opts.MaximumReconnects.Allows(w.resetAttempts):
						w.offlinePingCount = 0
						w.resetAttempts++
						w.reconnecting = true
						reconnect = true
						log.Debug("trying to reconnect",
							"attempt", w.resetAttempts,
							"max", maxAttemptsLabel(w.opts.MaximumReconnects),
						)
						e := newEvent(EventReconnecting, now)
						e.Attempt = w.resetAttempts
						e.MaxAttempts = w.opts.MaximumReconnects
						events = append(events, e)
					default:
						log.Debug("maximum reconnect attempts reached, giving up")
						events = append(events, newEvent(EventGiveUp, now))
						w.givenUp = true
						w.halted = true
						exhausted = true
					}
				}
			}
		}
	}
	w.mu.Unlock()

	for _, e := range events {
		w.events.Emit(e)
	}

	if restore {
		w.restoreObservers()
	}

	if exhausted {
		return
	}

	if reconnect {
		ok := w.reconnect(ctx)

		w.mu.Lock()
		w.reconnecting = false
		if !ok {
			w.givenUp = true
			w.halted = true
		}
		giveUpAt := w.clock.Now()
		w.mu.Unlock()

		if !ok {
			log.Debug("cannot reconnect, giving up")
			w.events.Emit(newEvent(EventGiveUp, giveUpAt))
			return
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active && gen == w.generation {
		next := w.opts.PingBackoff(w.failedPingCount)
		log.Debug("scheduling next ping", "interval", next)
		w.scheduleLocked(next)
	}
}

// ping calls Target.Ping, treating errors and panics as a failed ping.
func (w *Watchdog) ping(ctx context.Context) (alive bool) {
	defer func() {
		if r := recover(); r != nil {
			w.getLogger().Warn("probe target panicked during ping", "panic", r)
			alive = false
		}
	}()

	ok, err := w.target.Ping(ctx)
	if err != nil {
		w.getLogger().Debug("ping returned error", "error", err)
		return false
	}
	return ok
}

// reconnect calls Target.Reconnect, treating errors and panics as failure.
func (w *Watchdog) reconnect(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.getLogger().Warn("probe target panicked during reconnect", "panic", r)
			ok = false
		}
	}()

	succeeded, err := w.target.Reconnect(ctx)
	if err != nil {
		w.getLogger().Debug("reconnect returned error", "error", err)
		return false
	}
	return succeeded
}

// restoreObservers calls Target.RestoreObservers without blocking the tick.
// Failures are absorbed; the next ping is the recovery path.
func (w *Watchdog) restoreObservers() {
	w.restoreWG.Add(1)
	go func() {
		defer w.restoreWG.Done()
		defer func() {
			if r := recover(); r != nil {
				w.getLogger().Warn("probe target panicked while restoring observers", "panic", r)
			}
		}()

		if err := w.target.RestoreObservers(context.Background()); err != nil {
			w.getLogger().Debug("restoring observers failed", "error", err)
		}
	}()
}

func newEvent(kind EventKind, at time.Time) Event {
	return Event{
		ID:   uuid.NewString(),
		Kind: kind,
		Time: at,
	}
}

// maxAttemptsLabel renders an unlimited maximum as "???".
func maxAttemptsLabel(l Limit) string {
	if l.IsUnlimited() {
		return "???"
	}
	return l.String()
}
