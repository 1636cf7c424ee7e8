package watchdog

import "context"

// Target is the connection the watchdog checks and repairs.
//
// The watchdog never closes or otherwise mutates a Target; it belongs to the
// caller. The watchdog imposes no timeout on these calls, so implementations
// should bound their own I/O (a hung call stalls the watchdog loop).
type Target interface {
	// Ping checks liveness. An error or a panic counts as a failed ping.
	Ping(ctx context.Context) (bool, error)

	// RestoreObservers re-establishes subscriptions after the connection
	// recovered from a reconnect. It runs in its own goroutine and its error
	// is discarded; the next ping is the recovery signal.
	RestoreObservers(ctx context.Context) error

	// Reconnect attempts a full reconnection and reports whether it succeeded.
	// An error or a panic counts as a failed reconnect.
	Reconnect(ctx context.Context) (bool, error)
}
