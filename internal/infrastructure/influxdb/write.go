package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by gatewatch.
const (
	MeasurementProbe      = "gateway_probe"
	MeasurementTransition = "gateway_transition"
)

// WriteProbe records the outcome of a single watchdog ping.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - gateway: Gateway name (tag)
//   - alive: Whether the ping succeeded
//   - failedPings: Consecutive failed pings after this probe
//   - at: Time the probe result was observed
//
// Example:
//
//	client.WriteProbe("plant-gw-01", false, 3, time.Now())
func (c *Client) WriteProbe(gateway string, alive bool, failedPings int, at time.Time) {
	c.WritePointWithTime(MeasurementProbe,
		map[string]string{"gateway": gateway},
		map[string]any{
			"alive":        alive,
			"failed_pings": failedPings,
		},
		at,
	)
}

// WriteTransition records a connection state transition
// (connection lost, gateway offline, reconnecting, ...).
//
// Parameters:
//   - gateway: Gateway name (tag)
//   - kind: Event slug, e.g. "gateway_offline" (tag, low cardinality)
//   - attempt: Reconnect attempt number, 0 when not applicable
//   - at: Time the transition was observed
func (c *Client) WriteTransition(gateway, kind string, attempt int, at time.Time) {
	c.WritePointWithTime(MeasurementTransition,
		map[string]string{
			"gateway": gateway,
			"kind":    kind,
		},
		map[string]any{
			"count":   1,
			"attempt": attempt,
		},
		at,
	)
}

// WritePoint writes a custom point stamped with the current time.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
