package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gatewatch/internal/infrastructure/config"
	"github.com/nerrad567/gatewatch/internal/infrastructure/influxdb"
)

// fakeInflux serves the two endpoints the client uses: /ping and /api/v2/write.
type fakeInflux struct {
	mu          sync.Mutex
	lines       []string
	writeStatus int
	pingStatus  int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		f.mu.Lock()
		status := f.pingStatus
		f.mu.Unlock()
		w.WriteHeader(status)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.mu.Lock()
		status := f.writeStatus
		if status == http.StatusNoContent {
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if line != "" {
					f.lines = append(f.lines, line)
				}
			}
		}
		f.mu.Unlock()
		if status != http.StatusNoContent {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"code":"invalid","message":"rejected"}`)) //nolint:errcheck // test server
			return
		}
		w.WriteHeader(status)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func newFakeInflux(t *testing.T) (*fakeInflux, config.InfluxDBConfig) {
	t.Helper()

	fake := &fakeInflux{writeStatus: http.StatusNoContent, pingStatus: http.StatusNoContent}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return fake, config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Token:         "gatewatch-test-token",
		Org:           "gatewatch",
		Bucket:        "watchdog",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connectFake(t *testing.T) (*fakeInflux, *influxdb.Client) {
	t.Helper()

	fake, cfg := newFakeInflux(t)
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return fake, client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	_, client := connectFake(t)

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	_, cfg := newFakeInflux(t)
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, cfg := newFakeInflux(t)
	cfg.URL = "http://127.0.0.1:1"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_PingRejected(t *testing.T) {
	fake, cfg := newFakeInflux(t)
	fake.pingStatus = http.StatusServiceUnavailable

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	_, cfg := newFakeInflux(t)
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false with default batch settings")
	}
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	fake, client := connectFake(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	fake.mu.Lock()
	fake.pingStatus = http.StatusInternalServerError
	fake.mu.Unlock()

	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() error = nil for failing server")
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	_, client := connectFake(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}
}

func TestHealthCheck_AfterClose(t *testing.T) {
	_, client := connectFake(t)
	client.Close()

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteProbe(t *testing.T) {
	fake, client := connectFake(t)

	at := time.Unix(1767225600, 0)
	client.WriteProbe("plant-gw-01", false, 3, at)
	client.Flush()

	lines := fake.written()
	if len(lines) != 1 {
		t.Fatalf("written lines = %v, want 1", lines)
	}
	want := "gateway_probe,gateway=plant-gw-01 alive=false,failed_pings=3i 1767225600000000000"
	if lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
}

func TestWriteTransition(t *testing.T) {
	fake, client := connectFake(t)

	at := time.Unix(1767225600, 0)
	client.WriteTransition("plant-gw-01", "reconnecting", 2, at)
	client.Flush()

	lines := fake.written()
	if len(lines) != 1 {
		t.Fatalf("written lines = %v, want 1", lines)
	}
	if !strings.HasPrefix(lines[0], "gateway_transition,gateway=plant-gw-01,kind=reconnecting ") {
		t.Errorf("line = %q, want gateway_transition tagged by gateway and kind", lines[0])
	}
	if !strings.Contains(lines[0], "attempt=2i") {
		t.Errorf("line = %q, want attempt=2i", lines[0])
	}
}

func TestWrite_AfterCloseDropped(t *testing.T) {
	fake, client := connectFake(t)

	client.WriteProbe("gw", true, 0, time.Now())
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	// Ignored once closed; Flush is a no-op.
	client.WritePoint("custom", map[string]string{"k": "v"}, map[string]any{"value": 1.0})
	client.Flush()

	if got := len(fake.written()); got != 1 {
		t.Errorf("written lines = %d, want 1 (flushed on Close only)", got)
	}
}

func TestWrite_ErrorCallback(t *testing.T) {
	fake, client := connectFake(t)

	fake.mu.Lock()
	fake.writeStatus = http.StatusBadRequest
	fake.mu.Unlock()

	errCh := make(chan error, 4)
	client.SetOnError(func(err error) { errCh <- err })

	client.WriteProbe("gw", true, 0, time.Now())
	client.Flush()

	select {
	case err := <-errCh:
		if !errors.Is(err, influxdb.ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error callback not invoked")
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() on nil client = true")
	}
}
