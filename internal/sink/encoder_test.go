package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		in          string
		want        string
		contentType string
		wantErr     bool
	}{
		{"", EncodingJSON, "application/json", false},
		{"json", EncodingJSON, "application/json", false},
		{" CBOR ", EncodingCBOR, "application/cbor", false},
		{"xml", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			enc, err := NewEncoder(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownEncoding) {
					t.Errorf("NewEncoder(%q) error = %v, want ErrUnknownEncoding", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEncoder(%q) error = %v", tt.in, err)
			}
			if enc.Encoding() != tt.want {
				t.Errorf("Encoding() = %q, want %q", enc.Encoding(), tt.want)
			}
			if enc.ContentType() != tt.contentType {
				t.Errorf("ContentType() = %q, want %q", enc.ContentType(), tt.contentType)
			}
		})
	}
}

func TestEncoder_JSONEvent(t *testing.T) {
	enc, _ := NewEncoder(EncodingJSON)

	e := event(watchdog.EventReconnecting)
	e.Attempt = 2
	e.MaxAttempts = watchdog.Unlimited

	data, err := enc.Encode(NewEventPayload("plant-gw-01", e))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	want := map[string]any{
		"id":           "evt-reconnecting",
		"gateway":      "plant-gw-01",
		"kind":         "reconnecting",
		"time":         "2026-01-01T12:00:00Z",
		"attempt":      float64(2),
		"max_attempts": "unlimited",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("payload[%q] = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["failed_ping_count"]; ok {
		t.Error("failed_ping_count present for a reconnecting event")
	}
}

func TestEncoder_CBORDeterministic(t *testing.T) {
	enc, err := NewEncoder(EncodingCBOR)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	e := event(watchdog.EventPingFailed)
	e.FailedPingCount = 4
	payload := NewEventPayload("gw", e)

	first, err := enc.Encode(payload)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	second, _ := enc.Encode(payload)
	if !bytes.Equal(first, second) {
		t.Error("CBOR encoding is not deterministic")
	}

	var decoded EventPayload
	if err := cbor.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("cbor.Unmarshal() error = %v", err)
	}
	if decoded.Kind != "ping_failed" || decoded.FailedPingCount != 4 || !decoded.Time.Equal(testTime) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestEncoder_Failure(t *testing.T) {
	enc, _ := NewEncoder(EncodingJSON)
	if _, err := enc.Encode(func() {}); !errors.Is(err, ErrEncodeFailed) {
		t.Errorf("Encode(func) error = %v, want ErrEncodeFailed", err)
	}
}

func TestNewEventPayload_MaxAttemptsOnlyForReconnecting(t *testing.T) {
	e := event(watchdog.EventGiveUp)
	e.MaxAttempts = 3
	if p := NewEventPayload("gw", e); p.MaxAttempts != "" {
		t.Errorf("MaxAttempts = %q for give up, want empty", p.MaxAttempts)
	}

	e = event(watchdog.EventReconnecting)
	e.Attempt, e.MaxAttempts = 1, 3
	if p := NewEventPayload("gw", e); p.MaxAttempts != "3" {
		t.Errorf("MaxAttempts = %q, want \"3\"", p.MaxAttempts)
	}
}

func TestNewStatusPayload(t *testing.T) {
	s := watchdog.Status{
		Active:          true,
		State:           watchdog.StateDegraded,
		Liveness:        watchdog.LivenessDead,
		FailedPingCount: 1,
	}

	p := NewStatusPayload("gw", s, testTime)
	if p.State != "degraded" || p.Liveness != "dead" || !p.Active || p.FailedPingCount != 1 {
		t.Errorf("payload = %+v", p)
	}
	if p.LastProbe != nil {
		t.Error("LastProbe set although no probe completed")
	}

	s.LastProbe = testTime
	if p := NewStatusPayload("gw", s, testTime); p.LastProbe == nil || !p.LastProbe.Equal(testTime) {
		t.Errorf("LastProbe = %v, want %v", p.LastProbe, testTime)
	}
}
