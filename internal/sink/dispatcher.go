package sink

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// defaultQueueSize is used when NewDispatcher is given a non-positive size.
const defaultQueueSize = 256

// Dispatcher moves slow sinks off the watchdog tick.
//
// Handle enqueues without blocking and drops the event when the queue is
// full. A single worker delivers queued events to every sink in order, so
// each sink still sees events in emission order. A panicking sink is
// recovered and logged.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Dispatcher struct {
	sinks  []Sink
	queue  chan watchdog.Event
	logger Logger

	mu     sync.RWMutex
	closed bool

	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewDispatcher creates a dispatcher and starts its worker.
//
// Parameters:
//   - size: Queue capacity (defaultQueueSize when <= 0)
//   - logger: Receives drop and panic reports (nil disables)
//   - sinks: Consumers, called in the given order
func NewDispatcher(size int, logger Logger, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	if logger == nil {
		logger = noopLogger{}
	}

	d := &Dispatcher{
		sinks:  sinks,
		queue:  make(chan watchdog.Event, size),
		logger: logger,
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// Handle enqueues e. It never blocks.
func (d *Dispatcher) Handle(e watchdog.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	select {
	case d.queue <- e:
	default:
		d.dropped.Add(1)
		d.logger.Warn("sink queue full, dropping event", "kind", e.Kind.Slug(), "event_id", e.ID)
	}
}

// Dropped returns how many events were dropped because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting events, delivers what is already queued and waits
// for the worker to exit. Safe to call multiple times.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for e := range d.queue {
		for _, s := range d.sinks {
			d.deliver(s, e)
		}
	}
}

func (d *Dispatcher) deliver(s Sink, e watchdog.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("sink panic recovered",
				"sink", fmt.Sprintf("%T", s),
				"kind", e.Kind.Slug(),
				"panic", r,
			)
		}
	}()
	s.Handle(e)
}
