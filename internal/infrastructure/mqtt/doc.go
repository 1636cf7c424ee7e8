// Package mqtt provides MQTT client connectivity for gatewatch.
//
// This package manages:
//   - Connection to the broker, with optional library auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored on reconnect
//   - Last Will and Testament (LWT) for offline detection of gatewatch itself
//   - An echo round trip used as an active liveness probe
//
// # Roles
//
// The broker is used two ways. It is the event bus: watchdog events are
// published under gatewatch/{gateway}/event/{kind} and the gateway status is
// retained under gatewatch/{gateway}/status. It can also be the watched
// gateway itself (probe type "mqtt"), in which case the watchdog pings with
// RoundTrip and reconnects with Reconnect, and reconnect.auto should be off.
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) outside a trusted network
//   - Credentials belong in GATEWATCH_MQTT_USERNAME / GATEWATCH_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.GatewayEvent("plant-gw-01", "gateway_offline")
//	client.Publish(topic, payload, 1, false)
package mqtt
