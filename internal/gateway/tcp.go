package gateway

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nerrad567/gatewatch/internal/infrastructure/config"
)

// defaultProbeTimeout applies when a target is built with a zero timeout.
const defaultProbeTimeout = 5 * time.Second

// TCPTarget watches a gateway reachable over a plain TCP socket.
//
// It holds one session connection (opened by Connect and replaced by
// Reconnect) on behalf of the rest of the process. Pings dial a separate,
// short-lived connection so a probe never disturbs the session.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type TCPTarget struct {
	restoreHooks

	address string
	timeout time.Duration
	logger  Logger

	connMu sync.Mutex
	conn   net.Conn
	closed bool
}

// NewTCPTarget creates a TCP target for address ("host:port").
// A nil logger disables logging.
func NewTCPTarget(address string, timeout time.Duration, logger Logger) *TCPTarget {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &TCPTarget{
		address: address,
		timeout: timeout,
		logger:  logger,
	}
}

// Kind returns "tcp".
func (t *TCPTarget) Kind() string { return config.ProbeTCP }

// Address returns the dialled address.
func (t *TCPTarget) Address() string { return t.address }

// Ping dials the gateway within the probe timeout and hangs up.
func (t *TCPTarget) Ping(ctx context.Context) (bool, error) {
	conn, err := t.dial(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	conn.Close()
	return true, nil
}

// Connect opens the session connection if none is held.
func (t *TCPTarget) Connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.conn != nil {
		return nil
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	t.conn = conn
	t.logger.Info("gateway session connected", "address", t.address)
	return nil
}

// Reconnect closes the session connection and dials a new one.
func (t *TCPTarget) Reconnect(ctx context.Context) (bool, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.closed {
		return false, ErrClosed
	}
	t.closeSessionLocked()

	conn, err := t.dial(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	t.conn = conn
	t.logger.Info("gateway session reconnected", "address", t.address)
	return true, nil
}

// RestoreObservers runs the registered restore hooks.
func (t *TCPTarget) RestoreObservers(ctx context.Context) error {
	return t.runHooks(ctx)
}

// Conn returns the session connection, or nil when none is held.
func (t *TCPTarget) Conn() net.Conn {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.conn
}

// Close closes the session connection. Safe to call multiple times.
func (t *TCPTarget) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	t.closed = true
	t.closeSessionLocked()
	return nil
}

func (t *TCPTarget) closeSessionLocked() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

func (t *TCPTarget) dial(ctx context.Context) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", t.address)
	if err != nil {
		return nil, fmt.Errorf("dial tcp://%s: %w", t.address, err)
	}
	return conn, nil
}
