package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Poll     PollConfig `yaml:"poll"`
	MQTT     MQTTConfig `yaml:"mqtt"`
	Timezone string     `yaml:"timezone"` // IANA name for device clock readings; empty = local
	LogLevel string     `yaml:"log_level"`
}

// PollConfig holds polling schedule and connection settings.
type PollConfig struct {
	BrushingInterval time.Duration `yaml:"brushing_interval"`
	IdleInterval     time.Duration `yaml:"idle_interval"`
	RecentlyBrushing time.Duration `yaml:"recently_brushing"`
	Timeout          time.Duration `yaml:"timeout"`          // whole connect+read cycle
	ConnectAttempts  int           `yaml:"connect_attempts"` // per poll
	ReconnectMax     time.Duration `yaml:"reconnect_max"`    // max backoff between attempts
	MaxConcurrent    int           `yaml:"max_concurrent"`   // polls in flight across devices
}

// MQTTConfig holds the broker settings used to publish readings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sonicare-ble")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Poll: PollConfig{
			BrushingInterval: 10 * time.Second,
			IdleInterval:     20 * time.Second,
			RecentlyBrushing: 30 * time.Second,
			Timeout:          30 * time.Second,
			ConnectAttempts:  3,
			ReconnectMax:     8 * time.Second,
			MaxConcurrent:    1,
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Broker:      "tcp://localhost:1883",
			ClientID:    "sonicare-ble",
			TopicPrefix: "sonicare",
			QoS:         1,
			Retain:      true,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides config values from the environment. Variables in the
// given .env files are loaded first without replacing ones already set;
// missing files are ignored.
func (c *Config) ApplyEnv(envFiles ...string) error {
	for _, f := range envFiles {
		f = expandTilde(f)
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}

	setString(&c.LogLevel, "SONICARE_LOG_LEVEL")
	setString(&c.Timezone, "SONICARE_TIMEZONE")
	setString(&c.MQTT.Broker, "SONICARE_MQTT_BROKER")
	setString(&c.MQTT.ClientID, "SONICARE_MQTT_CLIENT_ID")
	setString(&c.MQTT.Username, "SONICARE_MQTT_USERNAME")
	setString(&c.MQTT.Password, "SONICARE_MQTT_PASSWORD")
	setString(&c.MQTT.TopicPrefix, "SONICARE_MQTT_TOPIC_PREFIX")

	if v := os.Getenv("SONICARE_MQTT_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SONICARE_MQTT_ENABLED: %w", err)
		}
		c.MQTT.Enabled = enabled
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Poll.BrushingInterval <= 0 {
		return fmt.Errorf("poll.brushing_interval must be > 0")
	}
	if c.Poll.IdleInterval <= 0 {
		return fmt.Errorf("poll.idle_interval must be > 0")
	}
	if c.Poll.RecentlyBrushing < 0 {
		return fmt.Errorf("poll.recently_brushing must be >= 0")
	}
	if c.Poll.Timeout <= 0 {
		return fmt.Errorf("poll.timeout must be > 0")
	}
	if c.Poll.ConnectAttempts <= 0 {
		return fmt.Errorf("poll.connect_attempts must be > 0")
	}
	if c.Poll.MaxConcurrent <= 0 {
		return fmt.Errorf("poll.max_concurrent must be > 0")
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", c.Timezone, err)
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker must not be empty when mqtt is enabled")
		}
		if c.MQTT.TopicPrefix == "" {
			return fmt.Errorf("mqtt.topic_prefix must not be empty when mqtt is enabled")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1, or 2, got %d", c.MQTT.QoS)
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// Location returns the time zone used for device clock readings.
// Call Validate first.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ParseLogLevel maps a config log level to slog. Unknown values map to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# sonicare-ble configuration
# Durations use Go syntax, e.g. 10s, 1m30s.
`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the path written, or "" if a config already
// existed.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
