package sink

import (
	"time"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// PointWriter is the part of *influxdb.Client the metrics sink needs.
type PointWriter interface {
	WriteProbe(gateway string, alive bool, failedPings int, at time.Time)
	WriteTransition(gateway, kind string, attempt int, at time.Time)
}

// Metrics writes one time-series point per event: probe results as
// gateway_probe, everything else as gateway_transition.
type Metrics struct {
	w       PointWriter
	gateway string
}

// NewMetrics creates a metrics sink for gateway.
func NewMetrics(w PointWriter, gateway string) *Metrics {
	return &Metrics{w: w, gateway: gateway}
}

// Handle writes the point for e. Writes are batched by the client.
func (m *Metrics) Handle(e watchdog.Event) {
	switch e.Kind {
	case watchdog.EventPingSucceeded:
		m.w.WriteProbe(m.gateway, true, 0, e.Time)
	case watchdog.EventPingFailed:
		m.w.WriteProbe(m.gateway, false, e.FailedPingCount, e.Time)
	default:
		m.w.WriteTransition(m.gateway, e.Kind.Slug(), e.Attempt, e.Time)
	}
}
