package gateway

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// listen starts a TCP listener that accepts and holds connections until the test ends.
func listen(t *testing.T) net.Listener {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	var mu sync.Mutex
	var conns []net.Conn
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	return ln
}

// deadAddress returns an address nobody listens on.
func deadAddress(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestTCPTarget_Ping(t *testing.T) {
	ln := listen(t)
	target := NewTCPTarget(ln.Addr().String(), time.Second, nil)

	alive, err := target.Ping(context.Background())
	if err != nil || !alive {
		t.Fatalf("Ping() = %v, %v; want true, nil", alive, err)
	}
	if target.Conn() != nil {
		t.Error("Ping() opened a session connection")
	}
}

func TestTCPTarget_PingRefused(t *testing.T) {
	target := NewTCPTarget(deadAddress(t), time.Second, nil)

	alive, err := target.Ping(context.Background())
	if alive {
		t.Error("Ping() = true for a closed port")
	}
	if !errors.Is(err, ErrProbeFailed) {
		t.Errorf("Ping() error = %v, want ErrProbeFailed", err)
	}
}

func TestTCPTarget_ConnectAndReconnect(t *testing.T) {
	ln := listen(t)
	target := NewTCPTarget(ln.Addr().String(), time.Second, nil)
	defer target.Close()

	ctx := context.Background()
	if err := target.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	first := target.Conn()
	if first == nil {
		t.Fatal("Conn() = nil after Connect()")
	}

	// A second Connect keeps the session.
	if err := target.Connect(ctx); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if target.Conn() != first {
		t.Error("Connect() replaced an open session")
	}

	ok, err := target.Reconnect(ctx)
	if err != nil || !ok {
		t.Fatalf("Reconnect() = %v, %v; want true, nil", ok, err)
	}
	second := target.Conn()
	if second == nil || second == first {
		t.Fatal("Reconnect() did not replace the session connection")
	}
	if _, err := first.Write([]byte("x")); err == nil {
		t.Error("old session connection still writable after Reconnect()")
	}
}

func TestTCPTarget_ReconnectFails(t *testing.T) {
	target := NewTCPTarget(deadAddress(t), 500*time.Millisecond, nil)

	ok, err := target.Reconnect(context.Background())
	if ok || !errors.Is(err, ErrProbeFailed) {
		t.Errorf("Reconnect() = %v, %v; want false, ErrProbeFailed", ok, err)
	}
	if target.Conn() != nil {
		t.Error("Conn() != nil after failed Reconnect()")
	}
}

func TestTCPTarget_Closed(t *testing.T) {
	ln := listen(t)
	target := NewTCPTarget(ln.Addr().String(), time.Second, nil)

	if err := target.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := target.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := target.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if target.Conn() != nil {
		t.Error("Conn() != nil after Close()")
	}
	if err := target.Connect(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Connect() after Close() error = %v, want ErrClosed", err)
	}
	if ok, err := target.Reconnect(context.Background()); ok || !errors.Is(err, ErrClosed) {
		t.Errorf("Reconnect() after Close() = %v, %v; want false, ErrClosed", ok, err)
	}
}

func TestTCPTarget_RestoreObservers(t *testing.T) {
	target := NewTCPTarget("127.0.0.1:1", time.Second, nil)

	called := 0
	target.OnRestore(func(context.Context) error { called++; return nil })

	if err := target.RestoreObservers(context.Background()); err != nil {
		t.Fatalf("RestoreObservers() error = %v", err)
	}
	if called != 1 {
		t.Errorf("hook called %d times, want 1", called)
	}
}

func TestTCPTarget_DefaultTimeout(t *testing.T) {
	target := NewTCPTarget("127.0.0.1:1", 0, nil)
	if target.timeout != defaultProbeTimeout {
		t.Errorf("timeout = %v, want %v", target.timeout, defaultProbeTimeout)
	}
	if target.Address() != "127.0.0.1:1" {
		t.Errorf("Address() = %q", target.Address())
	}
}
