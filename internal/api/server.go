package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gatewatch/internal/history"
	"github.com/nerrad567/gatewatch/internal/infrastructure/config"
	"github.com/nerrad567/gatewatch/internal/infrastructure/logging"
	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Controller is the part of *watchdog.Watchdog the API drives.
type Controller interface {
	Start() error
	Stop()
	Status() watchdog.Status
	Options() watchdog.Options
}

// HistoryReader reads the connection event log.
type HistoryReader interface {
	GetHistory(ctx context.Context, gateway string, limit int) ([]history.Entry, error)
}

// DropCounter reports events dropped by a queued sink.
type DropCounter interface {
	Dropped() uint64
}

// DBStatser reports database pool statistics.
type DBStatser interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Gateway  config.GatewayConfig
	Watchdog Controller
	History  HistoryReader // optional; history endpoint answers 503 without it
	Sinks    DropCounter   // optional
	DB       DBStatser     // optional
	Version  string
}

// Server is the HTTP API server for gatewatch.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	gateway   config.GatewayConfig
	watchdog  Controller
	history   HistoryReader
	sinks     DropCounter
	db        DBStatser
	version   string
	startTime time.Time
	hub       *Hub

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc // stops the hub on Close()
}

// New creates a new API server with the given dependencies.
//
// The WebSocket hub exists from construction, so it can be attached to the
// watchdog before Start.
//
// Parameters:
//   - deps: Required dependencies (logger, watchdog)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Watchdog == nil {
		return nil, fmt.Errorf("watchdog is required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		gateway:   deps.Gateway,
		watchdog:  deps.Watchdog,
		history:   deps.History,
		sinks:     deps.Sinks,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(deps.WS, deps.Gateway.Name, deps.Logger),
	}, nil
}

// Hub returns the WebSocket hub. It is an event sink: attach it to the
// watchdog to stream events to clients.
func (s *Server) Hub() *Hub {
	return s.hub
}

// SetSinks sets the drop counter reported by /metrics. The dispatcher
// usually wraps the hub, so it only exists after New. Call before Start.
func (s *Server) SetSinks(sinks DropCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = sinks
}

// Start binds the listener and serves in a background goroutine.
//
// Parameters:
//   - ctx: Parent context for the hub; the listener lives until Close()
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding api listener on %s: %w", addr, err)
	}

	var hubCtx context.Context
	hubCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(hubCtx)

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	cancel := s.cancel
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	// Stops the hub, which disconnects WebSocket clients.
	if cancel != nil {
		cancel()
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancelShutdown()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
