package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// statusResponse is the watchdog status with the pending interval in milliseconds.
type statusResponse struct {
	watchdog.Status
	NextIntervalMS int64 `json:"next_interval_ms"`
}

// optionsResponse is the effective watchdog configuration, durations in milliseconds.
type optionsResponse struct {
	PingIntervalMS                 int64          `json:"ping_interval_ms"`
	FailedPingCountUntilOffline    int            `json:"failed_ping_count_until_offline"`
	FailedPingBackoffFactor        float64        `json:"failed_ping_backoff_factor"`
	ReconnectionEnabled            bool           `json:"reconnection_enabled"`
	OfflinePingCountUntilReconnect int            `json:"offline_ping_count_until_reconnect"`
	MaximumReconnects              watchdog.Limit `json:"maximum_reconnects"`
	MaximumConnectionAttempts      watchdog.Limit `json:"maximum_connection_attempts"`
	ConnectionIntervalMS           int64          `json:"connection_interval_ms"`
	FailedConnectionBackoffFactor  float64        `json:"failed_connection_backoff_factor"`
}

// watchdogResponse is the body of GET /watchdog.
type watchdogResponse struct {
	Gateway string          `json:"gateway"`
	Probe   string          `json:"probe"`
	Address string          `json:"address"`
	Status  statusResponse  `json:"status"`
	Options optionsResponse `json:"options"`
}

func newStatusResponse(s watchdog.Status) statusResponse {
	return statusResponse{Status: s, NextIntervalMS: s.NextInterval.Milliseconds()}
}

func newOptionsResponse(o watchdog.Options) optionsResponse {
	return optionsResponse{
		PingIntervalMS:                 o.PingInterval.Milliseconds(),
		FailedPingCountUntilOffline:    o.FailedPingCountUntilOffline,
		FailedPingBackoffFactor:        o.FailedPingBackoffFactor,
		ReconnectionEnabled:            o.ReconnectionEnabled,
		OfflinePingCountUntilReconnect: o.OfflinePingCountUntilReconnect,
		MaximumReconnects:              o.MaximumReconnects,
		MaximumConnectionAttempts:      o.MaximumConnectionAttempts,
		ConnectionIntervalMS:           o.ConnectionInterval.Milliseconds(),
		FailedConnectionBackoffFactor:  o.FailedConnectionBackoffFactor,
	}
}

// handleGetWatchdog returns the gateway, status snapshot and effective options.
func (s *Server) handleGetWatchdog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, watchdogResponse{
		Gateway: s.gateway.Name,
		Probe:   s.gateway.Probe,
		Address: s.gateway.Address,
		Status:  newStatusResponse(s.watchdog.Status()),
		Options: newOptionsResponse(s.watchdog.Options()),
	})
}

// handleStartWatchdog starts probing. A running watchdog answers 409.
func (s *Server) handleStartWatchdog(w http.ResponseWriter, r *http.Request) {
	if err := s.watchdog.Start(); err != nil {
		if errors.Is(err, watchdog.ErrAlreadyRunning) {
			if s.watchdog.Status().Halted {
				writeConflict(w, "watchdog gave up; stop it before starting again")
				return
			}
			writeConflict(w, "watchdog is already running")
			return
		}
		s.logger.Error("starting watchdog failed", "error", err, "request_id", r.Context().Value(ctxKeyRequestID))
		writeInternalError(w, "starting watchdog failed")
		return
	}

	s.logger.Info("watchdog started via api", "request_id", r.Context().Value(ctxKeyRequestID))
	writeJSON(w, http.StatusOK, newStatusResponse(s.watchdog.Status()))
}

// handleStopWatchdog stops probing. Stopping a stopped watchdog is not an error.
func (s *Server) handleStopWatchdog(w http.ResponseWriter, r *http.Request) {
	s.watchdog.Stop()

	s.logger.Info("watchdog stopped via api", "request_id", r.Context().Value(ctxKeyRequestID))
	writeJSON(w, http.StatusOK, newStatusResponse(s.watchdog.Status()))
}

// uptime returns how long the server has existed, in whole seconds.
func (s *Server) uptime() int64 {
	return int64(time.Since(s.startTime).Seconds())
}
