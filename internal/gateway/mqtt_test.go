package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gatewatch/internal/infrastructure/mqtt"
)

// fakeBroker implements BrokerClient.
type fakeBroker struct {
	mu           sync.Mutex
	connected    bool
	roundTripErr error
	reconnectErr error
	restoreErr   error
	roundTrips   []string
	reconnects   int
	restores     int
	hadDeadline  bool
}

func (f *fakeBroker) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeBroker) RoundTrip(ctx context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.hadDeadline = ctx.Deadline()
	f.roundTrips = append(f.roundTrips, topic)
	return f.roundTripErr
}

func (f *fakeBroker) Reconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	if f.reconnectErr != nil {
		return f.reconnectErr
	}
	f.connected = true
	return nil
}

func (f *fakeBroker) RestoreSubscriptions() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restores++
	return f.restoreErr
}

func TestMQTTTarget_Ping(t *testing.T) {
	broker := &fakeBroker{connected: true}
	target := NewMQTTTarget(broker, "gatewatch/gw/ping", time.Second, nil)

	alive, err := target.Ping(context.Background())
	if err != nil || !alive {
		t.Fatalf("Ping() = %v, %v; want true, nil", alive, err)
	}
	if len(broker.roundTrips) != 1 || broker.roundTrips[0] != "gatewatch/gw/ping" {
		t.Errorf("round trips = %v", broker.roundTrips)
	}
	if !broker.hadDeadline {
		t.Error("RoundTrip() called without a deadline")
	}
}

func TestMQTTTarget_PingFailures(t *testing.T) {
	t.Run("disconnected", func(t *testing.T) {
		broker := &fakeBroker{}
		target := NewMQTTTarget(broker, "gatewatch/gw/ping", time.Second, nil)

		alive, err := target.Ping(context.Background())
		if alive || !errors.Is(err, mqtt.ErrNotConnected) {
			t.Errorf("Ping() = %v, %v; want false, ErrNotConnected", alive, err)
		}
		if len(broker.roundTrips) != 0 {
			t.Error("RoundTrip() attempted while disconnected")
		}
	})

	t.Run("echo lost", func(t *testing.T) {
		broker := &fakeBroker{connected: true, roundTripErr: mqtt.ErrTimeout}
		target := NewMQTTTarget(broker, "gatewatch/gw/ping", time.Second, nil)

		alive, err := target.Ping(context.Background())
		if alive || !errors.Is(err, ErrProbeFailed) || !errors.Is(err, mqtt.ErrTimeout) {
			t.Errorf("Ping() = %v, %v; want false, ErrProbeFailed wrapping ErrTimeout", alive, err)
		}
	})
}

func TestMQTTTarget_Reconnect(t *testing.T) {
	broker := &fakeBroker{}
	target := NewMQTTTarget(broker, "gatewatch/gw/ping", time.Second, nil)

	ok, err := target.Reconnect(context.Background())
	if err != nil || !ok {
		t.Fatalf("Reconnect() = %v, %v; want true, nil", ok, err)
	}

	broker.reconnectErr = mqtt.ErrConnectionFailed
	ok, err = target.Reconnect(context.Background())
	if ok || !errors.Is(err, mqtt.ErrConnectionFailed) {
		t.Errorf("Reconnect() = %v, %v; want false, ErrConnectionFailed", ok, err)
	}
}

func TestMQTTTarget_Connect(t *testing.T) {
	broker := &fakeBroker{connected: true}
	target := NewMQTTTarget(broker, "gatewatch/gw/ping", time.Second, nil)

	if err := target.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if broker.reconnects != 0 {
		t.Error("Connect() reconnected an already connected client")
	}

	broker.connected = false
	if err := target.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if broker.reconnects != 1 {
		t.Errorf("reconnects = %d, want 1", broker.reconnects)
	}
}

func TestMQTTTarget_RestoreObservers(t *testing.T) {
	broker := &fakeBroker{connected: true, restoreErr: mqtt.ErrSubscribeFailed}
	target := NewMQTTTarget(broker, "gatewatch/gw/ping", time.Second, nil)

	hookRan := false
	target.OnRestore(func(context.Context) error { hookRan = true; return nil })

	err := target.RestoreObservers(context.Background())
	if !errors.Is(err, mqtt.ErrSubscribeFailed) {
		t.Errorf("RestoreObservers() error = %v, want ErrSubscribeFailed", err)
	}
	if broker.restores != 1 || !hookRan {
		t.Errorf("restores=%d hookRan=%v, want both", broker.restores, hookRan)
	}
	if err := target.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
