package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gatewatch/internal/watchdog"
)

// Config is the root configuration structure for gatewatch.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway   GatewayConfig      `yaml:"gateway"`
	Watchdog  watchdog.Overrides `yaml:"watchdog"`
	Events    EventsConfig       `yaml:"events"`
	Database  DatabaseConfig     `yaml:"database"`
	History   HistoryConfig      `yaml:"history"`
	MQTT      MQTTConfig         `yaml:"mqtt"`
	AMQP      AMQPConfig         `yaml:"amqp"`
	API       APIConfig          `yaml:"api"`
	WebSocket WebSocketConfig    `yaml:"websocket"`
	InfluxDB  InfluxDBConfig     `yaml:"influxdb"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// Probe types for GatewayConfig.Probe.
const (
	ProbeTCP  = "tcp"
	ProbeHTTP = "http"
	ProbeMQTT = "mqtt"
)

// GatewayConfig describes the gateway being watched and how to probe it.
type GatewayConfig struct {
	// Name identifies the gateway in topics, routing keys and history rows.
	Name string `yaml:"name"`

	// Probe selects the probe target: "tcp", "http" or "mqtt".
	Probe string `yaml:"probe"`

	// Address is the host:port dialled by the tcp probe.
	Address string `yaml:"address"`

	// URL is the health endpoint requested by the http probe.
	URL string `yaml:"url"`

	// Timeout bounds a single probe (in seconds).
	Timeout int `yaml:"timeout"`

	// Retries is how often the http probe retries a failed request within one ping.
	Retries int `yaml:"retries"`

	// ConnectOnStart makes the service establish the initial connection
	// (with the watchdog's connection backoff) before the watchdog starts.
	ConnectOnStart bool `yaml:"connect_on_start"`
}

// EventsConfig controls how watchdog events are encoded for brokers.
type EventsConfig struct {
	// Encoding is "json" or "cbor".
	Encoding string `yaml:"encoding"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HistoryConfig controls the connection event log.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionDays is how long events are kept. 0 keeps them forever.
	RetentionDays int `yaml:"retention_days"`

	// PruneInterval is how often old events are removed (in minutes).
	PruneInterval int `yaml:"prune_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	// Auto lets the MQTT library reconnect on its own. Disable it when the
	// broker itself is the watched gateway so the watchdog owns reconnection.
	Auto         bool `yaml:"auto"`
	InitialDelay int  `yaml:"initial_delay"`
	MaxDelay     int  `yaml:"max_delay"`
}

// AMQPConfig contains AMQP broker settings for event fan-out.
type AMQPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GATEWATCH_SECTION_KEY
// For example: GATEWATCH_GATEWAY_ADDRESS, GATEWATCH_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Name:    "gateway",
			Probe:   ProbeTCP,
			Timeout: 5,
			Retries: 1,
		},
		Events: EventsConfig{
			Encoding: "json",
		},
		Database: DatabaseConfig{
			Path:        "./data/gatewatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
			PruneInterval: 60,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "gatewatch",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				Auto:         true,
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		AMQP: AMQPConfig{
			Exchange: "gatewatch",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GATEWATCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Gateway
	if v := os.Getenv("GATEWATCH_GATEWAY_NAME"); v != "" {
		cfg.Gateway.Name = v
	}
	if v := os.Getenv("GATEWATCH_GATEWAY_PROBE"); v != "" {
		cfg.Gateway.Probe = v
	}
	if v := os.Getenv("GATEWATCH_GATEWAY_ADDRESS"); v != "" {
		cfg.Gateway.Address = v
	}
	if v := os.Getenv("GATEWATCH_GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}

	// Database
	if v := os.Getenv("GATEWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GATEWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GATEWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GATEWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// AMQP (URL usually carries credentials)
	if v := os.Getenv("GATEWATCH_AMQP_URL"); v != "" {
		cfg.AMQP.URL = v
	}

	// API
	if v := os.Getenv("GATEWATCH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GATEWATCH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GATEWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GATEWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// The watchdog section is checked by the watchdog package so the allowed
// ranges live in one place.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Gateway validation
	if c.Gateway.Name == "" {
		errs = append(errs, "gateway.name is required")
	} else if strings.ContainsAny(c.Gateway.Name, "/#+. ") {
		errs = append(errs, "gateway.name must not contain '/', '#', '+', '.' or spaces")
	}
	switch c.Gateway.Probe {
	case ProbeTCP:
		if c.Gateway.Address == "" {
			errs = append(errs, "gateway.address is required for the tcp probe")
		}
	case ProbeHTTP:
		if c.Gateway.URL == "" {
			errs = append(errs, "gateway.url is required for the http probe")
		}
	case ProbeMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, "mqtt.enabled must be true for the mqtt probe")
		}
	default:
		errs = append(errs, "gateway.probe must be tcp, http or mqtt")
	}
	if c.Gateway.Timeout < 1 {
		errs = append(errs, "gateway.timeout must be at least 1 second")
	}
	if c.Gateway.Retries < 0 {
		errs = append(errs, "gateway.retries must not be negative")
	}

	// Watchdog validation
	if err := c.Watchdog.Validate(); err != nil {
		errs = append(errs, splitJoined(err)...)
	}

	// Events validation
	switch c.Events.Encoding {
	case "json", "cbor":
	default:
		errs = append(errs, "events.encoding must be json or cbor")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// History validation
	if c.History.RetentionDays < 0 {
		errs = append(errs, "history.retention_days must not be negative")
	}
	if c.History.RetentionDays > 0 && c.History.PruneInterval < 1 {
		errs = append(errs, "history.prune_interval must be at least 1 minute")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// AMQP validation
	if c.AMQP.Enabled {
		if c.AMQP.URL == "" {
			errs = append(errs, "amqp.url is required when amqp is enabled (set GATEWATCH_AMQP_URL)")
		}
		if c.AMQP.Exchange == "" {
			errs = append(errs, "amqp.exchange is required when amqp is enabled")
		}
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// splitJoined flattens an errors.Join result into its messages.
func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []string{err.Error()}
	}
	var out []string
	for _, e := range joined.Unwrap() {
		out = append(out, e.Error())
	}
	return out
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetProbeTimeout returns the gateway probe timeout as a Duration.
func (c *GatewayConfig) GetProbeTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetRetention returns the history retention period (zero keeps everything).
func (c *HistoryConfig) GetRetention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// GetPruneInterval returns how often the history is pruned.
func (c *HistoryConfig) GetPruneInterval() time.Duration {
	return time.Duration(c.PruneInterval) * time.Minute
}
