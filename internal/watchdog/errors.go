package watchdog

import "errors"

// Domain-specific errors for the connection watchdog.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAlreadyRunning is returned by Start when the watchdog has been started
	// and not stopped since. Calling Start twice is a programming error.
	ErrAlreadyRunning = errors.New("watchdog: the connection watcher is already running")

	// ErrInvalidConfiguration is the sentinel every ConfigurationError unwraps to.
	ErrInvalidConfiguration = errors.New("watchdog: invalid configuration")

	// ErrNilTarget is returned by New when no probe target is supplied.
	ErrNilTarget = errors.New("watchdog: probe target is required")

	// ErrConnectionAttemptsExhausted is returned by Connect when every allowed
	// initial connection attempt failed.
	ErrConnectionAttemptsExhausted = errors.New("watchdog: connection attempts exhausted")
)

// ConfigurationError reports an override that falls outside its allowed range.
//
// It is returned (possibly joined with others) by New and Overrides.Validate.
// The watchdog is never constructed when one is returned.
type ConfigurationError struct {
	// Field is the YAML name of the offending option (e.g. "ping_interval").
	Field string

	// Reason describes the violated constraint.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "watchdog: invalid " + e.Field + ": " + e.Reason
}

// Unwrap allows errors.Is(err, ErrInvalidConfiguration).
func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}
