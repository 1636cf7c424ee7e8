// Package api implements the HTTP status API and WebSocket event stream for gatewatch.
//
// This package provides:
//   - REST endpoints for the watchdog status, effective options and start/stop
//   - The recorded connection history of the watched gateway
//   - Runtime and sink metrics for basic monitoring
//   - A WebSocket hub that streams watchdog events to subscribed clients
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Routes
//
//	GET  /api/v1/health
//	GET  /api/v1/metrics
//	GET  /api/v1/watchdog
//	POST /api/v1/watchdog/start
//	POST /api/v1/watchdog/stop
//	GET  /api/v1/watchdog/history?limit=
//	GET  /api/v1/ws
//
// # WebSocket Channels
//
// Clients subscribe to event slugs ("gateway_offline", "reconnecting", ...)
// or "*" for every event:
//
//	{"type":"subscribe","id":"1","payload":{"channels":["gateway_offline","give_up"]}}
//
// # Graceful Degradation
//
// The server operates without the history database; the history endpoint
// then answers 503 and everything else keeps working.
package api
