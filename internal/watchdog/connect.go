package watchdog

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v3"
)

// ConnectFunc establishes the initial connection to the gateway.
type ConnectFunc func(ctx context.Context) error

// connectionBackOff yields ConnectionInterval * factor^min(5, failed attempts).
// It implements backoff.BackOff.
type connectionBackOff struct {
	opts     Options
	failures int
}

func (b *connectionBackOff) NextBackOff() time.Duration {
	b.failures++
	return b.opts.ConnectionBackoff(b.failures)
}

func (b *connectionBackOff) Reset() {
	b.failures = 0
}

// Connect makes the initial connection, retrying with backoff.
//
// At most opts.MaximumConnectionAttempts attempts are made. The delay after
// the n-th failed attempt is round(ConnectionInterval * factor^min(5, n)).
//
// Parameters:
//   - ctx: Cancels the retry loop (including the wait between attempts)
//   - connect: Performs one connection attempt
//   - opts: Effective watchdog options (see Watchdog.Options)
//   - logger: Optional, may be nil
//
// Returns:
//   - error: nil once an attempt succeeds, ErrConnectionAttemptsExhausted
//     wrapping the last failure, or the context error
func Connect(ctx context.Context, connect ConnectFunc, opts Options, logger Logger) error {
	var policy backoff.BackOff = &connectionBackOff{opts: opts}
	if !opts.MaximumConnectionAttempts.IsUnlimited() {
		policy = backoff.WithMaxRetries(policy, uint64(opts.MaximumConnectionAttempts-1))
	}
	return retryConnect(ctx, connect, policy, opts.MaximumConnectionAttempts, logger)
}

// retryConnect runs connect under policy. Split out so tests can use a zero backoff.
func retryConnect(ctx context.Context, connect ConnectFunc, policy backoff.BackOff, limit Limit, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}

	attempts := 0
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		attempts++
		logger.Debug("connecting to gateway", "attempt", attempts, "max", maxAttemptsLabel(limit))
		err := connect(ctx)
		if err != nil {
			logger.Debug("connection attempt failed", "attempt", attempts, "error", err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("connecting to gateway: %w", ctxErr)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrConnectionAttemptsExhausted, attempts, err)
}
