package watchdog

import "time"

// Liveness is the tri-state result of the most recent probe.
type Liveness uint8

const (
	// LivenessUnknown means no probe has completed yet.
	LivenessUnknown Liveness = iota
	LivenessAlive
	LivenessDead
)

// String returns "unknown", "alive" or "dead".
func (l Liveness) String() string {
	switch l {
	case LivenessAlive:
		return "alive"
	case LivenessDead:
		return "dead"
	default:
		return "unknown"
	}
}

// MarshalText encodes the liveness as its string form.
func (l Liveness) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// State is the connection state derived from the run-state counters.
type State string

const (
	StateUnknown      State = "unknown"
	StateAlive        State = "alive"
	StateDegraded     State = "degraded"
	StateOffline      State = "offline"
	StateReconnecting State = "reconnecting"
	StateGivenUp      State = "given_up"
)

// Status is a point-in-time snapshot of the watchdog.
type Status struct {
	// Active is true between Start and Stop.
	Active bool `json:"active"`

	// Halted is true when the loop stopped itself after giving up.
	// Stop followed by Start resumes probing.
	Halted bool `json:"halted"`

	State    State    `json:"state"`
	Liveness Liveness `json:"liveness"`

	FailedPingCount  int `json:"failed_ping_count"`
	OfflinePingCount int `json:"offline_ping_count"`
	ResetAttempts    int `json:"reset_attempts"`

	// GivenUp latches until the next successful ping.
	GivenUp bool `json:"given_up"`

	// LastProbe is the time of the most recent completed ping (zero if none).
	LastProbe time.Time `json:"last_probe,omitzero"`

	// NextInterval is the delay of the currently pending probe (zero if none).
	NextInterval time.Duration `json:"-"`
}
