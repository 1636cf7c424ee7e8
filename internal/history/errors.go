package history

import "errors"

// Sentinel errors for the connection event log.
var (
	// ErrGatewayRequired indicates an empty gateway name.
	ErrGatewayRequired = errors.New("history: gateway is required")

	// ErrEventIDRequired indicates an event without an ID.
	ErrEventIDRequired = errors.New("history: event id is required")

	// ErrInvalidRetention indicates a non-positive retention period.
	ErrInvalidRetention = errors.New("history: retention must be positive")
)
