package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// defaultWSPath is used when the websocket path is not configured.
const defaultWSPath = "/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/watchdog", func(r chi.Router) {
			r.Get("/", s.handleGetWatchdog)
			r.Post("/start", s.handleStartWatchdog)
			r.Post("/stop", s.handleStopWatchdog)
			r.Get("/history", s.handleGetHistory)
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return defaultWSPath
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"gateway": s.gateway.Name,
		"state":   s.watchdog.Status().State,
	})
}
