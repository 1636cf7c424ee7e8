// Package influxdb provides InfluxDB connectivity for gatewatch.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched point writing and health monitoring.
//
// # Measurements
//
//   - gateway_probe: one point per ping (alive, failed_pings), tagged by gateway
//   - gateway_transition: one point per state transition, tagged by gateway and kind
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteProbe("plant-gw-01", true, 0, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Writes are non-blocking; async write errors are delivered to the
// SetOnError callback.
package influxdb
