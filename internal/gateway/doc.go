// Package gateway provides the probe targets gatewatch can watch.
//
// A target answers the three questions the watchdog asks: is the gateway
// alive (Ping), can the connection be rebuilt (Reconnect), and what has to
// be re-established afterwards (RestoreObservers).
//
//   - TCPTarget dials host:port and holds one session connection
//   - HTTPTarget GETs a health URL through go-retryablehttp
//   - MQTTTarget echoes a nonce through the broker
//
// Targets bound their own I/O with the configured probe timeout; the
// watchdog calls them without a deadline.
//
// Usage:
//
//	target, err := gateway.New(cfg.Gateway, mqttClient, log)
//	if err != nil {
//	    return err
//	}
//	defer target.Close()
//
//	w, err := watchdog.New(target, &cfg.Watchdog)
package gateway
