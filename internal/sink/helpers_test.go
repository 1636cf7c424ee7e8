package sink

import (
	"errors"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

var testTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func event(kind watchdog.EventKind) watchdog.Event {
	return watchdog.Event{ID: "evt-" + kind.Slug(), Kind: kind, Time: testTime}
}

// published is one captured MQTT publish.
type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeMQTT captures publishes.
type fakeMQTT struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakeMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic, payload, qos, retained})
	return nil
}

func (f *fakeMQTT) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

// fakeStatus returns a settable status.
type fakeStatus struct {
	mu     sync.Mutex
	status watchdog.Status
}

func (f *fakeStatus) Status() watchdog.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeStatus) set(state watchdog.State) {
	f.mu.Lock()
	f.status.State = state
	f.mu.Unlock()
}

// fakeChannel captures AMQP publishes.
type fakeChannel struct {
	mu       sync.Mutex
	msgs     []amqp.Publishing
	keys     []string
	exchange string
	err      error
	closed   int
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.exchange = exchange
	f.keys = append(f.keys, key)
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// point is one captured metrics write.
type point struct {
	measurement string
	kind        string
	alive       bool
	failed      int
	attempt     int
	at          time.Time
}

type fakeWriter struct {
	mu     sync.Mutex
	points []point
}

func (f *fakeWriter) WriteProbe(_ string, alive bool, failedPings int, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, point{measurement: "probe", alive: alive, failed: failedPings, at: at})
}

func (f *fakeWriter) WriteTransition(_ string, kind string, attempt int, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, point{measurement: "transition", kind: kind, attempt: attempt, at: at})
}

// recordingSink records handled event kinds.
type recordingSink struct {
	mu    sync.Mutex
	kinds []watchdog.EventKind
	block chan struct{}
}

func (r *recordingSink) Handle(e watchdog.Event) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.kinds = append(r.kinds, e.Kind)
	r.mu.Unlock()
}

func (r *recordingSink) handled() []watchdog.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]watchdog.EventKind(nil), r.kinds...)
}

type panicSink struct{}

func (panicSink) Handle(watchdog.Event) { panic("sink exploded") }

// countingLogger counts warnings and errors.
type countingLogger struct {
	mu     sync.Mutex
	warns  int
	errors int
}

func (l *countingLogger) Debug(string, ...any) {}

func (l *countingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func (l *countingLogger) Error(string, ...any) {
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
}

var errBroker = errors.New("broker unavailable")
