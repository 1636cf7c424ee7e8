// Package logging provides structured logging for gatewatch.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// The watchdog logs every tick decision at debug level; set level to
// "debug" (or GATEWATCH_LOG_LEVEL=debug) to trace a failing gateway.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	wd.SetLogger(logger.Component("watchdog"))
//
// # Security
//
// Never log broker passwords, tokens, or AMQP URLs containing credentials.
package logging
