package gateway

import "errors"

// Sentinel errors for probe targets.
var (
	// ErrProbeFailed indicates a ping could not reach the gateway.
	ErrProbeFailed = errors.New("gateway: probe failed")

	// ErrUnhealthy indicates the gateway answered but reported itself unhealthy.
	ErrUnhealthy = errors.New("gateway: unhealthy response")

	// ErrUnknownProbe indicates an unsupported probe type in configuration.
	ErrUnknownProbe = errors.New("gateway: unknown probe type")

	// ErrMQTTClientRequired indicates the mqtt probe was selected without a broker connection.
	ErrMQTTClientRequired = errors.New("gateway: mqtt probe requires a connected MQTT client")

	// ErrClosed indicates the target was closed.
	ErrClosed = errors.New("gateway: target closed")
)
