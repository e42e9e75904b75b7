package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied before the YAML file is read.
const (
	DefaultBrokerHost            = "localhost"
	DefaultBrokerPort            = 1883
	DefaultClientID              = "plugsync"
	DefaultReconnectInterval     = 10
	DefaultPublishInterval       = 1.0
	DefaultTopicFormat           = "/plugsync/device/{}"
	DefaultPollInterval          = 10.0
	DefaultKeepAliveTaskInterval = 1.0
	DefaultDriver                = "simulated"

	// topicPlaceholder is replaced by the location name in topic formats.
	topicPlaceholder = "{}"
)

// Config is the root configuration structure for plugsync.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT       MQTTConfig                 `yaml:"mqtt"`
	Globals    GlobalsConfig              `yaml:"globals"`
	Driver     string                     `yaml:"driver"`
	Locations  map[string]LocationConfig  `yaml:"locations"`
	KeepAlives map[string]KeepAliveConfig `yaml:"keep_alives"`
	Knobs      KnobsConfig                `yaml:"knobs"`
	Logging    LoggingConfig              `yaml:"logging"`
	InfluxDB   InfluxDBConfig             `yaml:"influxdb"`
	Database   DatabaseConfig             `yaml:"database"`
	API        APIConfig                  `yaml:"api"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`
	Retain bool             `yaml:"retain"`

	// ReconnectInterval is the pause (seconds) between a lost connection
	// and the next session.
	ReconnectInterval int `yaml:"reconnect_interval"`

	// PublishInterval dampens outbound publishes (seconds). 0 disables it.
	PublishInterval float64 `yaml:"publish_interval"`
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

// GlobalsConfig holds defaults shared by every location.
type GlobalsConfig struct {
	TopicFormat           string  `yaml:"topic_format"`
	PollInterval          float64 `yaml:"poll_interval"`
	EmeterPollInterval    float64 `yaml:"emeter_poll_interval"`
	KeepAliveTaskInterval float64 `yaml:"keep_alive_task_interval"`
}

// LocationConfig describes one plug. Either Host or Alias must be set.
// Zero intervals and an empty topic fall back to the globals.
type LocationConfig struct {
	Host               string  `yaml:"host"`
	Alias              string  `yaml:"alias"`
	Topic              string  `yaml:"topic"`
	PollInterval       float64 `yaml:"poll_interval"`
	EmeterPollInterval float64 `yaml:"emeter_poll_interval"`
}

// KeepAliveConfig describes the liveness contract for one location.
type KeepAliveConfig struct {
	// Interval is the expected heartbeat period in seconds.
	Interval int `yaml:"interval"`

	// Timeout is how long (seconds) the location may stay silent before
	// the plug is forced off.
	Timeout int `yaml:"timeout"`

	PublishTopic   string `yaml:"publish_topic"`
	SubscribeTopic string `yaml:"subscribe_topic"`
}

// KnobsConfig keeps the legacy logging switches working.
type KnobsConfig struct {
	LogToConsole  bool `yaml:"log_to_console"`
	LogLevelDebug bool `yaml:"log_level_debug"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
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

// DatabaseConfig contains SQLite settings for the state history.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains the status HTTP server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. A .env file next to the config file, if present
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: PLUGSYNC_SECTION_KEY
// For example: PLUGSYNC_MQTT_HOST, PLUGSYNC_INFLUXDB_TOKEN
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

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	applyEnvOverrides(cfg)
	applyKnobs(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     DefaultBrokerHost,
				Port:     DefaultBrokerPort,
				ClientID: DefaultClientID,
			},
			ReconnectInterval: DefaultReconnectInterval,
			PublishInterval:   DefaultPublishInterval,
		},
		Globals: GlobalsConfig{
			TopicFormat:           DefaultTopicFormat,
			PollInterval:          DefaultPollInterval,
			KeepAliveTaskInterval: DefaultKeepAliveTaskInterval,
		},
		Driver: DefaultDriver,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/plugsync.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 9450,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLUGSYNC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PLUGSYNC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PLUGSYNC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("PLUGSYNC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("PLUGSYNC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// applyKnobs maps the legacy knobs section onto the logging settings.
func applyKnobs(cfg *Config) {
	if cfg.Knobs.LogLevelDebug {
		cfg.Logging.Level = "debug"
	}
	if cfg.Knobs.LogToConsole {
		cfg.Logging.Format = "text"
		cfg.Logging.Output = "stderr"
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected so a single run reports every mistake.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.ReconnectInterval < 0 {
		errs = append(errs, "mqtt.reconnect_interval must not be negative")
	}
	if c.MQTT.PublishInterval < 0 {
		errs = append(errs, "mqtt.publish_interval must not be negative")
	}

	if c.Globals.PollInterval <= 0 {
		errs = append(errs, "globals.poll_interval must be positive")
	}
	if c.Globals.EmeterPollInterval < 0 {
		errs = append(errs, "globals.emeter_poll_interval must not be negative")
	}
	if c.Globals.KeepAliveTaskInterval <= 0 {
		errs = append(errs, "globals.keep_alive_task_interval must be positive")
	}

	if c.Driver != DefaultDriver {
		errs = append(errs, fmt.Sprintf("driver %q is not supported (only %q)", c.Driver, DefaultDriver))
	}

	if len(c.Locations) == 0 {
		errs = append(errs, "at least one location is required")
	}
	for _, name := range c.LocationNames() {
		loc := c.Locations[name]
		if loc.Host == "" && loc.Alias == "" {
			errs = append(errs, fmt.Sprintf("locations.%s needs a host or an alias", name))
		}
		if loc.PollInterval < 0 || loc.EmeterPollInterval < 0 {
			errs = append(errs, fmt.Sprintf("locations.%s intervals must not be negative", name))
		}
	}

	for _, name := range c.KeepAliveNames() {
		ka := c.KeepAlives[name]
		if _, ok := c.Locations[name]; !ok {
			errs = append(errs, fmt.Sprintf("keep_alives.%s must have a corresponding location entry", name))
		}
		if ka.Interval <= 0 || ka.Timeout <= 0 {
			errs = append(errs, fmt.Sprintf("keep_alives.%s interval and timeout must be positive", name))
		}
		if ka.SubscribeTopic == "" {
			errs = append(errs, fmt.Sprintf("keep_alives.%s subscribe_topic is required", name))
		}
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the database is enabled")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LocationNames returns the configured location names in sorted order.
func (c *Config) LocationNames() []string {
	names := make([]string, 0, len(c.Locations))
	for name := range c.Locations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeepAliveNames returns the configured keep-alive names in sorted order.
func (c *Config) KeepAliveNames() []string {
	names := make([]string, 0, len(c.KeepAlives))
	for name := range c.KeepAlives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Topic returns the primary MQTT topic for a location.
// The location's own topic wins over the global format; in both the "{}"
// placeholder is replaced by the location name.
func (c *Config) Topic(name string) string {
	format := c.Globals.TopicFormat
	if loc, ok := c.Locations[name]; ok && loc.Topic != "" {
		format = loc.Topic
	}
	if format == "" {
		format = DefaultTopicFormat
	}
	return strings.ReplaceAll(format, topicPlaceholder, name)
}

// PollInterval returns the state poll interval for a location.
func (c *Config) PollInterval(name string) time.Duration {
	if loc, ok := c.Locations[name]; ok && loc.PollInterval > 0 {
		return seconds(loc.PollInterval)
	}
	return seconds(c.Globals.PollInterval)
}

// EmeterPollInterval returns the telemetry poll interval for a location.
// Zero means telemetry polling is disabled.
func (c *Config) EmeterPollInterval(name string) time.Duration {
	if loc, ok := c.Locations[name]; ok && loc.EmeterPollInterval > 0 {
		return seconds(loc.EmeterPollInterval)
	}
	return seconds(c.Globals.EmeterPollInterval)
}

// KeepAliveTaskInterval returns the watchdog tick as a Duration.
func (c *Config) KeepAliveTaskInterval() time.Duration {
	return seconds(c.Globals.KeepAliveTaskInterval)
}

// GetReconnectInterval returns the session restart backoff as a Duration.
func (c *Config) GetReconnectInterval() time.Duration {
	return time.Duration(c.MQTT.ReconnectInterval) * time.Second
}

// GetPublishInterval returns the publish dampening interval as a Duration.
func (c *Config) GetPublishInterval() time.Duration {
	return seconds(c.MQTT.PublishInterval)
}

// seconds converts fractional seconds to a Duration.
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
