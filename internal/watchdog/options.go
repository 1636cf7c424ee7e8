package watchdog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Option range constants.
const (
	minInterval = time.Second
	maxInterval = 5 * time.Minute

	minPingCount = 1
	maxPingCount = 10

	minBackoffFactor = 1.0
	maxBackoffFactor = 3.0

	// maxBackoffExponent caps the exponent (not the resulting interval) of the
	// ping and connection backoff formulas.
	maxBackoffExponent = 5
)

// Limit is a positive count that may also be unbounded.
type Limit int

// Unlimited is the Limit that is never reached. It is only produced by the
// "unlimited" spelling, so a negative count still fails validation.
const Unlimited Limit = math.MinInt

// IsUnlimited reports whether l has no upper bound.
func (l Limit) IsUnlimited() bool {
	return l == Unlimited
}

// Allows reports whether another attempt is permitted after n attempts.
func (l Limit) Allows(n int) bool {
	return l.IsUnlimited() || n < int(l)
}

// String returns "unlimited" or the decimal count.
func (l Limit) String() string {
	if l.IsUnlimited() {
		return "unlimited"
	}
	return strconv.Itoa(int(l))
}

// MarshalJSON encodes Unlimited as the string "unlimited".
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.IsUnlimited() {
		return []byte(`"unlimited"`), nil
	}
	return []byte(strconv.Itoa(int(l))), nil
}

// UnmarshalYAML accepts an integer or one of "unlimited", "inf", ".inf".
func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(node.Value)) {
	case "unlimited", "infinity", "inf", ".inf", "+.inf":
		*l = Unlimited
		return nil
	}

	var n int
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("limit must be an integer or \"unlimited\": %w", err)
	}
	if Limit(n) == Unlimited {
		return fmt.Errorf("limit %d is out of range", n)
	}
	*l = Limit(n)
	return nil
}

// Options is the effective, validated watchdog configuration.
// It is immutable once the watchdog has been constructed.
type Options struct {
	// PingInterval is the interval between consecutive pings while the connection is healthy.
	PingInterval time.Duration

	// FailedPingCountUntilOffline is how many pings have to fail consecutively
	// until the gateway is assumed offline.
	FailedPingCountUntilOffline int

	// FailedPingBackoffFactor stretches the ping interval while pings fail:
	// PingInterval * factor^min(5, failed pings).
	FailedPingBackoffFactor float64

	// ReconnectionEnabled turns on automatic reconnection.
	ReconnectionEnabled bool

	// OfflinePingCountUntilReconnect is how many pings have to fail while the
	// gateway is offline until a reconnection is triggered.
	OfflinePingCountUntilReconnect int

	// MaximumReconnects is the number of reconnect attempts after which the
	// watchdog gives up.
	MaximumReconnects Limit

	// MaximumConnectionAttempts bounds the initial connection (see Connect).
	MaximumConnectionAttempts Limit

	// ConnectionInterval is the base interval between initial connection attempts.
	ConnectionInterval time.Duration

	// FailedConnectionBackoffFactor stretches ConnectionInterval after each failed attempt.
	FailedConnectionBackoffFactor float64
}

// DefaultOptions returns the options used for every field that is not overridden.
func DefaultOptions() Options {
	return Options{
		PingInterval:                   10 * time.Second,
		FailedPingCountUntilOffline:    1,
		FailedPingBackoffFactor:        1.5,
		ReconnectionEnabled:            true,
		OfflinePingCountUntilReconnect: 3,
		MaximumReconnects:              Unlimited,
		MaximumConnectionAttempts:      Unlimited,
		ConnectionInterval:             10 * time.Second,
		FailedConnectionBackoffFactor:  1.5,
	}
}

// PingBackoff returns the interval to wait before the next ping after
// failedPings consecutive failures.
func (o Options) PingBackoff(failedPings int) time.Duration {
	return backoffInterval(o.PingInterval, o.FailedPingBackoffFactor, failedPings)
}

// ConnectionBackoff returns the interval to wait before the next initial
// connection attempt after failedAttempts failures.
func (o Options) ConnectionBackoff(failedAttempts int) time.Duration {
	return backoffInterval(o.ConnectionInterval, o.FailedConnectionBackoffFactor, failedAttempts)
}

// backoffInterval computes round(base * factor^min(5, n)) at millisecond resolution.
func backoffInterval(base time.Duration, factor float64, n int) time.Duration {
	exp := max(0, min(maxBackoffExponent, n))
	ms := float64(base) / float64(time.Millisecond) * math.Pow(factor, float64(exp))
	return time.Duration(math.Round(ms)) * time.Millisecond
}

// Overrides is a partial set of options. Nil fields keep their default.
//
// Overrides decodes from YAML; durations accept either a Go duration string
// ("10s") or an integer number of milliseconds, limits accept "unlimited".
//
// Example:
//
//	watchdog:
//	  ping_interval: 5s
//	  failed_ping_count_until_offline: 2
//	  maximum_reconnects: unlimited
type Overrides struct {
	PingInterval                   *time.Duration
	FailedPingCountUntilOffline    *int
	FailedPingBackoffFactor        *float64
	ReconnectionEnabled            *bool
	OfflinePingCountUntilReconnect *int
	MaximumReconnects              *Limit
	MaximumConnectionAttempts      *Limit
	ConnectionInterval             *time.Duration
	FailedConnectionBackoffFactor  *float64
}

// Ptr returns a pointer to v. It keeps override literals short:
//
//	watchdog.Overrides{PingInterval: watchdog.Ptr(2 * time.Second)}
func Ptr[T any](v T) *T {
	return &v
}

// Validate checks every set field against its allowed range.
// Unset fields are not checked.
//
// Returns:
//   - error: nil if valid, otherwise one *ConfigurationError per violation (joined)
func (o *Overrides) Validate() error {
	if o == nil {
		return nil
	}

	var errs []error
	check := func(ok bool, field, reason string) {
		if !ok {
			errs = append(errs, &ConfigurationError{Field: field, Reason: reason})
		}
	}

	if o.PingInterval != nil {
		check(inInterval(*o.PingInterval), "ping_interval",
			"the ping interval must be between 1s and 5 minutes")
	}
	if o.FailedPingCountUntilOffline != nil {
		check(inCount(*o.FailedPingCountUntilOffline), "failed_ping_count_until_offline",
			"the failed ping count to assume the gateway as offline must be between 1 and 10")
	}
	if o.FailedPingBackoffFactor != nil {
		check(inFactor(*o.FailedPingBackoffFactor), "failed_ping_backoff_factor",
			"the interval back-off factor for failed pings must be between 1 and 3")
	}
	if o.OfflinePingCountUntilReconnect != nil {
		check(inCount(*o.OfflinePingCountUntilReconnect), "offline_ping_count_until_reconnect",
			"the failed ping count before a reconnect attempt must be between 1 and 10")
	}
	if o.MaximumReconnects != nil {
		check(validLimit(*o.MaximumReconnects), "maximum_reconnects",
			"the maximum number of reconnect attempts must be at least 1")
	}
	if o.ConnectionInterval != nil {
		check(inInterval(*o.ConnectionInterval), "connection_interval",
			"the connection interval must be between 1s and 5 minutes")
	}
	if o.FailedConnectionBackoffFactor != nil {
		check(inFactor(*o.FailedConnectionBackoffFactor), "failed_connection_backoff_factor",
			"the interval back-off factor for failed connections must be between 1 and 3")
	}
	if o.MaximumConnectionAttempts != nil {
		check(validLimit(*o.MaximumConnectionAttempts), "maximum_connection_attempts",
			"the maximum number of connection attempts must be at least 1")
	}

	return errors.Join(errs...)
}

// Apply merges the set fields of o over base.
func (o *Overrides) Apply(base Options) Options {
	if o == nil {
		return base
	}
	if o.PingInterval != nil {
		base.PingInterval = *o.PingInterval
	}
	if o.FailedPingCountUntilOffline != nil {
		base.FailedPingCountUntilOffline = *o.FailedPingCountUntilOffline
	}
	if o.FailedPingBackoffFactor != nil {
		base.FailedPingBackoffFactor = *o.FailedPingBackoffFactor
	}
	if o.ReconnectionEnabled != nil {
		base.ReconnectionEnabled = *o.ReconnectionEnabled
	}
	if o.OfflinePingCountUntilReconnect != nil {
		base.OfflinePingCountUntilReconnect = *o.OfflinePingCountUntilReconnect
	}
	if o.MaximumReconnects != nil {
		base.MaximumReconnects = *o.MaximumReconnects
	}
	if o.MaximumConnectionAttempts != nil {
		base.MaximumConnectionAttempts = *o.MaximumConnectionAttempts
	}
	if o.ConnectionInterval != nil {
		base.ConnectionInterval = *o.ConnectionInterval
	}
	if o.FailedConnectionBackoffFactor != nil {
		base.FailedConnectionBackoffFactor = *o.FailedConnectionBackoffFactor
	}
	return base
}

// Build validates o and merges it over DefaultOptions.
func (o *Overrides) Build() (Options, error) {
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o.Apply(DefaultOptions()), nil
}

func inInterval(d time.Duration) bool {
	return d >= minInterval && d <= maxInterval
}

func inCount(n int) bool {
	return n >= minPingCount && n <= maxPingCount
}

func inFactor(f float64) bool {
	return !math.IsNaN(f) && f >= minBackoffFactor && f <= maxBackoffFactor
}

func validLimit(l Limit) bool {
	return l.IsUnlimited() || l >= 1
}

// millis decodes a duration from a Go duration string or integer milliseconds.
type millis time.Duration

func (m *millis) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got %s", node.ShortTag())
	}

	if node.ShortTag() == "!!int" {
		var ms int64
		if err := node.Decode(&ms); err != nil {
			return fmt.Errorf("parsing milliseconds: %w", err)
		}
		*m = millis(time.Duration(ms) * time.Millisecond)
		return nil
	}

	d, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", node.Value, err)
	}
	*m = millis(d)
	return nil
}

// overridesYAML is the on-disk shape of Overrides.
type overridesYAML struct {
	PingInterval                   *millis  `yaml:"ping_interval"`
	FailedPingCountUntilOffline    *int     `yaml:"failed_ping_count_until_offline"`
	FailedPingBackoffFactor        *float64 `yaml:"failed_ping_backoff_factor"`
	ReconnectionEnabled            *bool    `yaml:"reconnection_enabled"`
	OfflinePingCountUntilReconnect *int     `yaml:"offline_ping_count_until_reconnect"`
	MaximumReconnects              *Limit   `yaml:"maximum_reconnects"`
	MaximumConnectionAttempts      *Limit   `yaml:"maximum_connection_attempts"`
	ConnectionInterval             *millis  `yaml:"connection_interval"`
	FailedConnectionBackoffFactor  *float64 `yaml:"failed_connection_backoff_factor"`
}

// UnmarshalYAML decodes the snake_case YAML form of the overrides.
func (o *Overrides) UnmarshalYAML(node *yaml.Node) error {
	var raw overridesYAML
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*o = Overrides{
		FailedPingCountUntilOffline:    raw.FailedPingCountUntilOffline,
		FailedPingBackoffFactor:        raw.FailedPingBackoffFactor,
		ReconnectionEnabled:            raw.ReconnectionEnabled,
		OfflinePingCountUntilReconnect: raw.OfflinePingCountUntilReconnect,
		MaximumReconnects:              raw.MaximumReconnects,
		MaximumConnectionAttempts:      raw.MaximumConnectionAttempts,
		FailedConnectionBackoffFactor:  raw.FailedConnectionBackoffFactor,
	}
	if raw.PingInterval != nil {
		o.PingInterval = Ptr(time.Duration(*raw.PingInterval))
	}
	if raw.ConnectionInterval != nil {
		o.ConnectionInterval = Ptr(time.Duration(*raw.ConnectionInterval))
	}
	return nil
}
