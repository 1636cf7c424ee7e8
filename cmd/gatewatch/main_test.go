package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a config file to a temp dir and points GATEWATCH_CONFIG at it.
func writeConfig(t *testing.T, content string) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GATEWATCH_CONFIG", configPath)
}

// gatewayListener accepts and immediately closes connections until the test ends.
func gatewayListener(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln.Addr().String()
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GATEWATCH_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading configuration") {
		t.Errorf("run() error = %v, want configuration error", err)
	}
}

// TestRun_InvalidWatchdogOptions verifies out-of-range options stop startup.
func TestRun_InvalidWatchdogOptions(t *testing.T) {
	writeConfig(t, `
gateway:
  name: test-gw
  probe: tcp
  address: "127.0.0.1:1"

watchdog:
  ping_interval: 5
  failed_ping_backoff_factor: 0.5

api:
  enabled: false
`)

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail with invalid watchdog options")
	}
	for _, want := range []string{"ping_interval", "failed_ping_backoff_factor"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("run() error = %v, want mention of %s", err, want)
		}
	}
}

// TestRun_StartupAndShutdown runs the full service against a local TCP
// gateway with only the SQLite history sink enabled.
func TestRun_StartupAndShutdown(t *testing.T) {
	addr := gatewayListener(t)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	writeConfig(t, `
gateway:
  name: test-gw
  probe: tcp
  address: "`+addr+`"
  timeout: 1
  connect_on_start: true

watchdog:
  ping_interval: 1s

database:
  path: "`+dbPath+`"
  wal_mode: true
  busy_timeout: 5

history:
  enabled: true
  retention_days: 1
  prune_interval: 1

mqtt:
  enabled: false

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: error
  format: text
  output: stderr
`)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestRun_ConnectOnStartCancelled verifies cancellation during the initial
// connection attempts ends startup with an error.
func TestRun_ConnectOnStartCancelled(t *testing.T) {
	// Reserve a port, then release it so dials are refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	writeConfig(t, `
gateway:
  name: test-gw
  probe: tcp
  address: "`+addr+`"
  timeout: 1
  connect_on_start: true

watchdog:
  maximum_connection_attempts: unlimited
  connection_interval: 1s

database:
  path: "`+filepath.Join(t.TempDir(), "test.db")+`"

api:
  enabled: false

logging:
  level: error
  output: stderr
`)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err = run(ctx)
	if err == nil {
		t.Fatal("run() should fail when the gateway never accepts")
	}
	if !strings.Contains(err.Error(), "connecting to gateway") {
		t.Errorf("run() error = %v, want gateway connection error", err)
	}
}

// TestRun_MQTTProbeRequiresBroker verifies the mqtt probe is rejected
// without an enabled broker.
func TestRun_MQTTProbeRequiresBroker(t *testing.T) {
	writeConfig(t, `
gateway:
  name: test-gw
  probe: mqtt

mqtt:
  enabled: false
`)

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "mqtt.enabled") {
		t.Errorf("run() error = %v, want mqtt.enabled validation error", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GATEWATCH_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("GATEWATCH_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
