package sink

import (
	"testing"
	"time"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

func TestDispatcher_DeliversInOrder(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	d := NewDispatcher(0, nil, first, second)

	kinds := []watchdog.EventKind{
		watchdog.EventPingFailed,
		watchdog.EventConnectionLost,
		watchdog.EventGatewayOffline,
		watchdog.EventReconnecting,
	}
	for _, k := range kinds {
		d.Handle(event(k))
	}
	d.Close()

	for _, s := range []*recordingSink{first, second} {
		got := s.handled()
		if len(got) != len(kinds) {
			t.Fatalf("handled %d events, want %d", len(got), len(kinds))
		}
		for i := range kinds {
			if got[i] != kinds[i] {
				t.Errorf("event %d = %v, want %v", i, got[i], kinds[i])
			}
		}
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	slow := &recordingSink{block: block}
	logger := &countingLogger{}
	d := NewDispatcher(1, logger, slow)

	// The worker takes the first event and blocks in the sink.
	d.Handle(event(watchdog.EventPingFailed))
	deadline := time.Now().Add(2 * time.Second)
	for len(d.queue) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the first event")
		}
		time.Sleep(5 * time.Millisecond)
	}

	d.Handle(event(watchdog.EventConnectionLost)) // fills the queue
	d.Handle(event(watchdog.EventGatewayOffline)) // dropped

	if d.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", d.Dropped())
	}
	logger.mu.Lock()
	warns := logger.warns
	logger.mu.Unlock()
	if warns != 1 {
		t.Errorf("warnings = %d, want 1", warns)
	}

	close(block)
	d.Close()

	got := slow.handled()
	if len(got) != 2 || got[1] != watchdog.EventConnectionLost {
		t.Errorf("handled = %v, want [ping failed connection lost]", got)
	}
}

func TestDispatcher_RecoversPanic(t *testing.T) {
	after := &recordingSink{}
	logger := &countingLogger{}
	d := NewDispatcher(4, logger, panicSink{}, after)

	d.Handle(event(watchdog.EventGiveUp))
	d.Handle(event(watchdog.EventConnectionAlive))
	d.Close()

	if got := after.handled(); len(got) != 2 {
		t.Errorf("sink after a panicking sink handled %d events, want 2", len(got))
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.errors != 2 {
		t.Errorf("logged errors = %d, want 2", logger.errors)
	}
}

func TestDispatcher_HandleAfterClose(t *testing.T) {
	s := &recordingSink{}
	d := NewDispatcher(4, nil, s)
	d.Close()
	d.Close()

	d.Handle(event(watchdog.EventPingSucceeded))

	if got := s.handled(); len(got) != 0 {
		t.Errorf("handled %d events after Close, want 0", len(got))
	}
	if d.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", d.Dropped())
	}
}

func TestAttach(t *testing.T) {
	reg := watchdog.NewRegistry()
	a := &recordingSink{}
	b := &recordingSink{}

	ids := Attach(reg, a, b)
	if len(ids) != 2 || ids[0] == ids[1] {
		t.Fatalf("Attach() ids = %v, want two distinct ids", ids)
	}

	reg.Emit(event(watchdog.EventGatewayOffline))
	reg.Off(ids[1])
	reg.Emit(event(watchdog.EventReconnecting))

	if got := a.handled(); len(got) != 2 {
		t.Errorf("first sink handled %d events, want 2", len(got))
	}
	if got := b.handled(); len(got) != 1 {
		t.Errorf("detached sink handled %d events, want 1", len(got))
	}
}
