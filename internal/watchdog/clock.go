package watchdog

import "time"

// Clock schedules deferred probe ticks.
// The watchdog holds at most one Timer from its Clock at any time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable deferred call.
type Timer interface {
	// Stop prevents the call from firing. It returns false if the call has
	// already fired or been stopped.
	Stop() bool
}

// realClock schedules with time.AfterFunc.
type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
