package sink

import "errors"

// Sentinel errors for event sinks.
var (
	// ErrUnknownEncoding indicates an unsupported payload encoding.
	ErrUnknownEncoding = errors.New("sink: unknown encoding")

	// ErrEncodeFailed indicates an event could not be encoded.
	ErrEncodeFailed = errors.New("sink: encode failed")

	// ErrPublishFailed indicates a broker rejected or dropped a message.
	ErrPublishFailed = errors.New("sink: publish failed")

	// ErrClosed indicates the sink was closed.
	ErrClosed = errors.New("sink: closed")
)
