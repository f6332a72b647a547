package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for growctl.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Loop       LoopConfig       `yaml:"loop"`
	Automation AutomationConfig `yaml:"automation"`
	Actuator   ActuatorConfig   `yaml:"actuator"`
	Sensors    SensorsConfig    `yaml:"sensors"`
}

// SiteConfig identifies this controller.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Storage backends.
const (
	StorageBackendFile   = "file"
	StorageBackendSQLite = "sqlite"
)

// StorageConfig selects where persisted JSON documents and history files live.
type StorageConfig struct {
	// Backend is "file" (one file per path under DataDir) or "sqlite"
	// (a single database at Database.Path).
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

// DatabaseConfig contains SQLite database settings for the sqlite storage backend.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the telemetry bridge.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
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
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	StaticDir string           `yaml:"static_dir"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
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

// LoopConfig contains controller loop cadences in milliseconds / seconds.
type LoopConfig struct {
	// TickIntervalMs is how often the controller loop wakes up.
	TickIntervalMs int `yaml:"tick_interval_ms"`

	// BroadcastIntervalMs is the sensor sampling and broadcast cadence.
	BroadcastIntervalMs int `yaml:"broadcast_interval_ms"`

	// PersistInterval is the history save cadence in seconds.
	PersistInterval int `yaml:"persist_interval"`
}

// Missing reading policies for rule evaluation.
const (
	MissingReadingZero = "zero"
	MissingReadingSkip = "skip"
)

// AutomationConfig contains rule engine settings.
type AutomationConfig struct {
	// EvalIntervalMs is the minimum spacing between rule evaluations.
	EvalIntervalMs int `yaml:"eval_interval_ms"`

	// MissingReading controls how a rule whose sensor has no reading is
	// evaluated: "zero" compares 0.0 against the threshold, "skip" leaves
	// the rule untouched for that pass.
	MissingReading string `yaml:"missing_reading"`

	// OverrideMinutes is the default manual override duration applied when
	// a device_control message does not carry one.
	OverrideMinutes int `yaml:"override_minutes"`
}

// ActuatorConfig contains outlet driver settings.
type ActuatorConfig struct {
	// Timeout is the per-command budget in seconds.
	Timeout int `yaml:"timeout"`

	// RelayPins lists the local relay pins that may be driven.
	RelayPins []int `yaml:"relay_pins"`
}

// SensorsConfig lists the hardware sources available to the sensor reader.
type SensorsConfig struct {
	Hardware []string `yaml:"hardware"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GROWCTL_SECTION_KEY
// For example: GROWCTL_DATA_DIR, GROWCTL_API_PORT
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

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "grow-001",
			Name: "Grow Tent",
		},
		Storage: StorageConfig{
			Backend: StorageBackendFile,
			DataDir: "./data",
		},
		Database: DatabaseConfig{
			Path:        "./data/growctl.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "growctl",
			},
			QoS:         1,
			TopicPrefix: "growctl",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
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
			Bucket:        "growctl",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Loop: LoopConfig{
			TickIntervalMs:      100,
			BroadcastIntervalMs: 5000,
			PersistInterval:     60,
		},
		Automation: AutomationConfig{
			EvalIntervalMs:  2000,
			MissingReading:  MissingReadingZero,
			OverrideMinutes: 5,
		},
		Actuator: ActuatorConfig{
			Timeout: 5,
		},
		Sensors: SensorsConfig{
			Hardware: []string{"simulated"},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GROWCTL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Storage
	if v := os.Getenv("GROWCTL_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("GROWCTL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GROWCTL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GROWCTL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GROWCTL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GROWCTL_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GROWCTL_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GROWCTL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GROWCTL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	switch c.Storage.Backend {
	case StorageBackendFile:
		if c.Storage.DataDir == "" {
			errs = append(errs, "storage.data_dir is required for the file backend")
		}
	case StorageBackendSQLite:
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for the sqlite backend")
		}
	default:
		errs = append(errs, "storage.backend must be \"file\" or \"sqlite\"")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
	}

	if c.Loop.TickIntervalMs <= 0 {
		errs = append(errs, "loop.tick_interval_ms must be positive")
	}
	if c.Loop.BroadcastIntervalMs <= 0 {
		errs = append(errs, "loop.broadcast_interval_ms must be positive")
	}
	if c.Loop.PersistInterval <= 0 {
		errs = append(errs, "loop.persist_interval must be positive")
	}

	if c.Automation.EvalIntervalMs <= 0 {
		errs = append(errs, "automation.eval_interval_ms must be positive")
	}
	if c.Automation.MissingReading != MissingReadingZero && c.Automation.MissingReading != MissingReadingSkip {
		errs = append(errs, "automation.missing_reading must be \"zero\" or \"skip\"")
	}
	if c.Automation.OverrideMinutes <= 0 {
		errs = append(errs, "automation.override_minutes must be positive")
	}

	if c.Actuator.Timeout <= 0 {
		errs = append(errs, "actuator.timeout must be positive")
	}

	if !strings.HasPrefix(c.WebSocket.Path, "/") {
		errs = append(errs, "websocket.path must start with \"/\"")
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		errs = append(errs, "websocket.max_message_size must be positive")
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.PongTimeout <= 0 {
		errs = append(errs, "websocket.ping_interval and websocket.pong_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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

// TickInterval returns the controller loop wake-up interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Loop.TickIntervalMs) * time.Millisecond
}

// BroadcastInterval returns the sensor sampling cadence.
func (c *Config) BroadcastInterval() time.Duration {
	return time.Duration(c.Loop.BroadcastIntervalMs) * time.Millisecond
}

// PersistInterval returns the history save cadence.
func (c *Config) PersistInterval() time.Duration {
	return time.Duration(c.Loop.PersistInterval) * time.Second
}

// EvalInterval returns the rule evaluation gate.
func (c *Config) EvalInterval() time.Duration {
	return time.Duration(c.Automation.EvalIntervalMs) * time.Millisecond
}

// OverrideDuration returns the default manual override length.
func (c *Config) OverrideDuration() time.Duration {
	return time.Duration(c.Automation.OverrideMinutes) * time.Minute
}

// ActuatorTimeout returns the per-command outlet budget.
func (c *Config) ActuatorTimeout() time.Duration {
	return time.Duration(c.Actuator.Timeout) * time.Second
}
