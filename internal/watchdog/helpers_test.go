package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// manualClock is a Clock whose timers fire only when the test says so.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	d       time.Duration
	f       func()
	fired   bool
	stopped bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// pending returns the timers that have neither fired nor been stopped.
func (c *manualClock) pending() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*manualTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// fireNext runs the single pending timer synchronously and returns its delay.
func (c *manualClock) fireNext(t *testing.T) time.Duration {
	t.Helper()

	pending := c.pending()
	if len(pending) != 1 {
		t.Fatalf("pending timers = %d, want exactly 1", len(pending))
	}
	timer := pending[0]

	c.mu.Lock()
	timer.fired = true
	c.now = c.now.Add(timer.d)
	c.mu.Unlock()

	timer.f()
	return timer.d
}

// fireStale runs a timer's callback even though it was stopped, as a real
// time.AfterFunc may do when Stop races with expiry.
func (c *manualClock) fireStale(timer *manualTimer) {
	timer.f()
}

// scriptedTarget is a Target whose ping and reconnect results are queued.
type scriptedTarget struct {
	mu sync.Mutex

	pings      []bool
	reconnects []bool

	pingErr    error
	pingPanic  bool
	restoreErr error

	onPing func()

	pingCalls      int
	reconnectCalls int
	restoreCalls   int
	restored       chan struct{}
}

func newScriptedTarget(pings ...bool) *scriptedTarget {
	return &scriptedTarget{
		pings:    pings,
		restored: make(chan struct{}, 16),
	}
}

// queue appends ping results.
func (s *scriptedTarget) queue(pings ...bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings = append(s.pings, pings...)
}

func (s *scriptedTarget) Ping(_ context.Context) (bool, error) {
	s.mu.Lock()
	s.pingCalls++
	hook := s.onPing
	if s.pingPanic {
		s.mu.Unlock()
		panic("ping exploded")
	}
	if s.pingErr != nil {
		err := s.pingErr
		s.mu.Unlock()
		return true, err
	}
	result := false
	if len(s.pings) > 0 {
		result = s.pings[0]
		s.pings = s.pings[1:]
	}
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return result, nil
}

func (s *scriptedTarget) Reconnect(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectCalls++
	if len(s.reconnects) == 0 {
		return true, nil
	}
	result := s.reconnects[0]
	s.reconnects = s.reconnects[1:]
	return result, nil
}

func (s *scriptedTarget) RestoreObservers(_ context.Context) error {
	s.mu.Lock()
	s.restoreCalls++
	err := s.restoreErr
	s.mu.Unlock()
	s.restored <- struct{}{}
	return err
}

func (s *scriptedTarget) calls() (pings, reconnects, restores int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingCalls, s.reconnectCalls, s.restoreCalls
}

// eventRecorder collects every emitted event.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *eventRecorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *eventRecorder) last(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// newTestWatchdog builds a watchdog on a manual clock with an event recorder attached.
func newTestWatchdog(t *testing.T, target Target, overrides *Overrides) (*Watchdog, *manualClock, *eventRecorder) {
	t.Helper()

	w, err := New(target, overrides)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	clock := newManualClock()
	w.clock = clock

	rec := &eventRecorder{}
	w.OnAny(rec.record)

	t.Cleanup(func() {
		w.Stop()
		w.Wait()
	})
	return w, clock, rec
}

func equalKinds(a, b []EventKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var errProbe = errors.New("probe failed")
