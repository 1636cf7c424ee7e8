package mqtt

import "fmt"

// Topic prefixes for gatewatch.
//
// Per-gateway topics use the scheme: gatewatch/{gateway}/{category}[/{kind}]
const (
	// TopicPrefix is the base for all gatewatch topics.
	TopicPrefix = "gatewatch"

	// TopicPrefixSystem is the base for service-level topics.
	TopicPrefixSystem = "gatewatch/system"
)

// Topics provides builders for gatewatch MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.GatewayEvent("plant-gw-01", "gateway_offline")
//	// Returns: "gatewatch/plant-gw-01/event/gateway_offline"
type Topics struct{}

// SystemStatus returns the topic for gatewatch's own online/offline status
// (also used as the Last Will topic).
//
// Example: gatewatch/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// GatewayStatus returns the retained status topic of a watched gateway.
//
// Example: gatewatch/plant-gw-01/status
func (Topics) GatewayStatus(gateway string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, gateway)
}

// GatewayEvent returns the topic for one kind of watchdog event.
// kind is the event slug, e.g. "connection_lost".
//
// Example: gatewatch/plant-gw-01/event/connection_lost
func (Topics) GatewayEvent(gateway, kind string) string {
	return fmt.Sprintf("%s/%s/event/%s", TopicPrefix, gateway, kind)
}

// GatewayPing returns the echo topic used by the MQTT probe.
//
// Example: gatewatch/plant-gw-01/ping
func (Topics) GatewayPing(gateway string) string {
	return fmt.Sprintf("%s/%s/ping", TopicPrefix, gateway)
}

// AllGatewayEvents returns a wildcard for every event of one gateway.
//
// Pattern: gatewatch/plant-gw-01/event/+
func (Topics) AllGatewayEvents(gateway string) string {
	return fmt.Sprintf("%s/%s/event/+", TopicPrefix, gateway)
}

// AllEvents returns a wildcard for every event of every gateway.
//
// Pattern: gatewatch/+/event/+
func (Topics) AllEvents() string {
	return TopicPrefix + "/+/event/+"
}

// AllStatuses returns a wildcard for every gateway status topic.
//
// Pattern: gatewatch/+/status
func (Topics) AllStatuses() string {
	return TopicPrefix + "/+/status"
}

// AllTopics returns a wildcard for all gatewatch topics.
//
// Pattern: gatewatch/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
