package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nerrad567/gatewatch/internal/infrastructure/config"
)

// HTTP probe retry bounds. A ping with retries still has to finish within
// the probe timeout.
const (
	httpRetryWaitMin = 100 * time.Millisecond
	httpRetryWaitMax = time.Second

	// maxDrainBytes is how much of a health response body is read before closing.
	maxDrainBytes = 4 << 10
)

// HTTPTarget watches a gateway through an HTTP health endpoint.
//
// A ping is a GET of the health URL. Connection errors and 5xx responses are
// retried by go-retryablehttp; any 2xx response means alive.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type HTTPTarget struct {
	restoreHooks

	url     string
	timeout time.Duration
	client  *retryablehttp.Client
	logger  Logger
}

// NewHTTPTarget creates an HTTP target.
//
// Parameters:
//   - url: Health endpoint, e.g. "http://10.0.0.5/health"
//   - timeout: Bounds one ping including its retries
//   - retries: Retries within one ping (0 disables)
//   - logger: Receives retry diagnostics at debug level (nil disables)
//
// Returns:
//   - *HTTPTarget: Ready for use
func NewHTTPTarget(url string, timeout time.Duration, retries int, logger Logger) *HTTPTarget {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = noopLogger{}
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = httpRetryWaitMin
	client.RetryWaitMax = httpRetryWaitMax
	client.HTTPClient.Timeout = timeout
	client.Logger = logger

	return &HTTPTarget{
		url:     url,
		timeout: timeout,
		client:  client,
		logger:  logger,
	}
}

// Kind returns "http".
func (t *HTTPTarget) Kind() string { return config.ProbeHTTP }

// URL returns the health endpoint.
func (t *HTTPTarget) URL() string { return t.url }

// Ping requests the health endpoint.
//
// Returns:
//   - bool: true for a 2xx response
//   - error: ErrProbeFailed when no response arrived, ErrUnhealthy for other statuses
func (t *HTTPTarget) Ping(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequest(http.MethodGet, t.url, nil)
	if err != nil {
		return false, fmt.Errorf("%w: building request: %w", ErrProbeFailed, err)
	}
	req = req.WithContext(ctx)

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes)) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return false, fmt.Errorf("%w: %s", ErrUnhealthy, resp.Status)
	}
	return true, nil
}

// Connect performs one ping and fails unless the gateway is healthy.
func (t *HTTPTarget) Connect(ctx context.Context) error {
	alive, err := t.Ping(ctx)
	if err != nil {
		return err
	}
	if !alive {
		return ErrUnhealthy
	}
	return nil
}

// Reconnect drops pooled connections so the next request opens a fresh one,
// then probes once.
func (t *HTTPTarget) Reconnect(ctx context.Context) (bool, error) {
	t.client.HTTPClient.CloseIdleConnections()
	t.logger.Debug("http gateway connections reset", "url", t.url)
	return t.Ping(ctx)
}

// RestoreObservers runs the registered restore hooks.
func (t *HTTPTarget) RestoreObservers(ctx context.Context) error {
	return t.runHooks(ctx)
}

// Close releases pooled connections.
func (t *HTTPTarget) Close() error {
	t.client.HTTPClient.CloseIdleConnections()
	return nil
}
