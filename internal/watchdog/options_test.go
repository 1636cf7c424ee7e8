package watchdog

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestOverrides_Validate(t *testing.T) {
	tests := []struct {
		name      string
		overrides *Overrides
		wantField string
	}{
		{"nil overrides", nil, ""},
		{"empty overrides", &Overrides{}, ""},
		{"ping interval too short", &Overrides{PingInterval: Ptr(500 * time.Millisecond)}, "ping_interval"},
		{"ping interval ok", &Overrides{PingInterval: Ptr(10 * time.Second)}, ""},
		{"ping interval lower bound", &Overrides{PingInterval: Ptr(time.Second)}, ""},
		{"ping interval upper bound", &Overrides{PingInterval: Ptr(5 * time.Minute)}, ""},
		{"ping interval too long", &Overrides{PingInterval: Ptr(6 * time.Minute)}, "ping_interval"},
		{"offline count zero", &Overrides{FailedPingCountUntilOffline: Ptr(0)}, "failed_ping_count_until_offline"},
		{"offline count eleven", &Overrides{FailedPingCountUntilOffline: Ptr(11)}, "failed_ping_count_until_offline"},
		{"ping factor below one", &Overrides{FailedPingBackoffFactor: Ptr(0.5)}, "failed_ping_backoff_factor"},
		{"ping factor above three", &Overrides{FailedPingBackoffFactor: Ptr(3.5)}, "failed_ping_backoff_factor"},
		{"ping factor NaN", &Overrides{FailedPingBackoffFactor: Ptr(math.NaN())}, "failed_ping_backoff_factor"},
		{"reconnect count zero", &Overrides{OfflinePingCountUntilReconnect: Ptr(0)}, "offline_ping_count_until_reconnect"},
		{"maximum reconnects zero", &Overrides{MaximumReconnects: Ptr(Limit(0))}, "maximum_reconnects"},
		{"maximum reconnects unlimited", &Overrides{MaximumReconnects: Ptr(Unlimited)}, ""},
		{"maximum reconnects negative", &Overrides{MaximumReconnects: Ptr(Limit(-1))}, "maximum_reconnects"},
		{"connection interval too short", &Overrides{ConnectionInterval: Ptr(999 * time.Millisecond)}, "connection_interval"},
		{"connection factor above three", &Overrides{FailedConnectionBackoffFactor: Ptr(4.0)}, "failed_connection_backoff_factor"},
		{"connection attempts zero", &Overrides{MaximumConnectionAttempts: Ptr(Limit(0))}, "maximum_connection_attempts"},
		{"connection attempts negative", &Overrides{MaximumConnectionAttempts: Ptr(Limit(-5))}, "maximum_connection_attempts"},
		{"reconnection disabled", &Overrides{ReconnectionEnabled: Ptr(false)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.overrides.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("Validate() error = %v, want %v", err, ErrInvalidConfiguration)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error is not a *ConfigurationError: %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestOverrides_ValidateReportsEveryViolation(t *testing.T) {
	err := (&Overrides{
		PingInterval:                Ptr(time.Millisecond),
		FailedPingCountUntilOffline: Ptr(0),
		FailedPingBackoffFactor:     Ptr(9.0),
	}).Validate()

	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("Validate() error %T does not wrap multiple errors", err)
	}
	if n := len(joined.Unwrap()); n != 3 {
		t.Errorf("violations = %d, want 3", n)
	}
}

func TestOverrides_Build(t *testing.T) {
	opts, err := (&Overrides{
		PingInterval:        Ptr(2 * time.Second),
		ReconnectionEnabled: Ptr(false),
		MaximumReconnects:   Ptr(Limit(4)),
	}).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := DefaultOptions()
	want.PingInterval = 2 * time.Second
	want.ReconnectionEnabled = false
	want.MaximumReconnects = 4

	if opts != want {
		t.Errorf("Build() = %+v, want %+v", opts, want)
	}
}

func TestOverrides_UnmarshalYAML(t *testing.T) {
	input := `
ping_interval: 5s
failed_ping_count_until_offline: 2
failed_ping_backoff_factor: 2.5
reconnection_enabled: false
maximum_reconnects: unlimited
maximum_connection_attempts: 7
connection_interval: 2500
`
	var o Overrides
	if err := yaml.Unmarshal([]byte(input), &o); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if o.PingInterval == nil || *o.PingInterval != 5*time.Second {
		t.Errorf("PingInterval = %v, want 5s", o.PingInterval)
	}
	if o.ConnectionInterval == nil || *o.ConnectionInterval != 2500*time.Millisecond {
		t.Errorf("ConnectionInterval = %v, want 2.5s", o.ConnectionInterval)
	}
	if o.FailedPingCountUntilOffline == nil || *o.FailedPingCountUntilOffline != 2 {
		t.Errorf("FailedPingCountUntilOffline = %v, want 2", o.FailedPingCountUntilOffline)
	}
	if o.FailedPingBackoffFactor == nil || *o.FailedPingBackoffFactor != 2.5 {
		t.Errorf("FailedPingBackoffFactor = %v, want 2.5", o.FailedPingBackoffFactor)
	}
	if o.ReconnectionEnabled == nil || *o.ReconnectionEnabled {
		t.Errorf("ReconnectionEnabled = %v, want false", o.ReconnectionEnabled)
	}
	if o.MaximumReconnects == nil || !o.MaximumReconnects.IsUnlimited() {
		t.Errorf("MaximumReconnects = %v, want unlimited", o.MaximumReconnects)
	}
	if o.MaximumConnectionAttempts == nil || *o.MaximumConnectionAttempts != 7 {
		t.Errorf("MaximumConnectionAttempts = %v, want 7", o.MaximumConnectionAttempts)
	}
	if o.OfflinePingCountUntilReconnect != nil {
		t.Errorf("OfflinePingCountUntilReconnect = %v, want unset", *o.OfflinePingCountUntilReconnect)
	}
}

func TestOverrides_UnmarshalYAMLRejectsBadDuration(t *testing.T) {
	var o Overrides
	if err := yaml.Unmarshal([]byte("ping_interval: soon\n"), &o); err == nil {
		t.Error("Unmarshal() error = nil, want duration parse error")
	}
}

func TestOverrides_NegativeLimitsFromYAML(t *testing.T) {
	tests := []struct {
		input string
		field string
	}{
		{"maximum_reconnects: -1", "maximum_reconnects"},
		{"maximum_reconnects: -5", "maximum_reconnects"},
		{"maximum_connection_attempts: -1", "maximum_connection_attempts"},
		{"maximum_connection_attempts: -5", "maximum_connection_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var o Overrides
			if err := yaml.Unmarshal([]byte(tt.input), &o); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			_, err := o.Build()
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("Build() error = %v, want %v", err, ErrInvalidConfiguration)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Errorf("Build() error = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestLimit(t *testing.T) {
	tests := []struct {
		limit Limit
		n     int
		want  bool
	}{
		{Unlimited, 0, true},
		{Unlimited, 1 << 30, true},
		{3, 0, true},
		{3, 2, true},
		{3, 3, false},
		{1, 1, false},
	}
	for _, tt := range tests {
		if got := tt.limit.Allows(tt.n); got != tt.want {
			t.Errorf("Limit(%v).Allows(%d) = %v, want %v", tt.limit, tt.n, got, tt.want)
		}
	}

	if got := Unlimited.String(); got != "unlimited" {
		t.Errorf("Unlimited.String() = %q", got)
	}
	if got := Limit(5).String(); got != "5" {
		t.Errorf("Limit(5).String() = %q", got)
	}

	for _, in := range []string{"unlimited", ".inf", "inf"} {
		var l Limit
		if err := yaml.Unmarshal([]byte(in), &l); err != nil || !l.IsUnlimited() {
			t.Errorf("yaml %q = %v, %v, want unlimited", in, l, err)
		}
	}
	var l Limit
	if err := yaml.Unmarshal([]byte("many"), &l); err == nil {
		t.Error("yaml \"many\" error = nil")
	}

	for _, in := range []string{"-1", "-5"} {
		var l Limit
		if err := yaml.Unmarshal([]byte(in), &l); err != nil {
			t.Fatalf("yaml %q error = %v", in, err)
		}
		if l.IsUnlimited() {
			t.Errorf("yaml %q decoded as unlimited", in)
		}
	}
	if err := yaml.Unmarshal([]byte(strconv.Itoa(math.MinInt)), &l); err == nil {
		t.Error("yaml MinInt error = nil")
	}
}

func TestOptions_PingBackoff(t *testing.T) {
	opts := DefaultOptions()
	opts.PingInterval = time.Second
	opts.FailedPingBackoffFactor = 1.5

	for n := 0; n <= 8; n++ {
		exp := math.Min(5, float64(n))
		want := time.Duration(math.Round(1000*math.Pow(1.5, exp))) * time.Millisecond
		if got := opts.PingBackoff(n); got != want {
			t.Errorf("PingBackoff(%d) = %v, want %v", n, got, want)
		}
	}

	// The exponent is capped, the interval is not.
	opts.PingInterval = 5 * time.Minute
	opts.FailedPingBackoffFactor = 3
	if got, want := opts.PingBackoff(10), 5*time.Minute*243; got != want {
		t.Errorf("PingBackoff(10) = %v, want %v", got, want)
	}
}

func TestOptions_ConnectionBackoff(t *testing.T) {
	opts := DefaultOptions()
	opts.ConnectionInterval = 2 * time.Second
	opts.FailedConnectionBackoffFactor = 2

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{5, 64 * time.Second},
		{9, 64 * time.Second},
	}
	for _, tt := range tests {
		if got := opts.ConnectionBackoff(tt.n); got != tt.want {
			t.Errorf("ConnectionBackoff(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}
