// Package config provides YAML configuration parsing for sensorbridge.
//
// This package enables running sensorbridge as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Posture Monitor
//	port: 5000
//
//	devices:
//	  - name: desk
//	    url: ${DEVICE_URL:-http://192.168.4.1/}
//	    timeout: 5s
//	    interval: 1s
//
//	thresholds:
//	  posture_angle: 15
//
//	sinks:
//	  log: true
//	  mqtt:
//	    broker: tcp://localhost:1883
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/sensorbridge"
)

const (
	defaultPort = 5000

	minDeviceInterval = 100 * time.Millisecond
	maxDeviceInterval = time.Hour
	maxDeviceTimeout  = time.Minute
)

// Config is the root configuration structure for sensorbridge.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "Posture Monitor" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 5000.
	Port int `yaml:"port"`

	// Log configures the CLI's structured logger.
	Log LogConfig `yaml:"log"`

	// Devices are the sensor modules or relays to poll. The first device
	// backs /api/sensor-data.
	Devices []DeviceConfig `yaml:"devices"`

	// Thresholds override the default alert angles.
	Thresholds ThresholdsConfig `yaml:"thresholds"`

	// Sinks select where samples are published.
	Sinks SinksConfig `yaml:"sinks"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// Format is json or text. Defaults to json.
	Format string `yaml:"format"`
}

// SlogLevel returns the configured level. Call after [Parse] has validated it.
func (l LogConfig) SlogLevel() slog.Level {
	level, _ := parseLevel(l.Level)
	return level
}

// DeviceConfig defines a single device.
type DeviceConfig struct {
	// Name identifies the device in logs, metrics and API paths.
	Name string `yaml:"name"`

	// URL is fetched on every poll.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Format is text (the firmware status page) or json. Defaults to text.
	Format string `yaml:"format"`

	// Timeout is the request timeout. Defaults to 5s.
	Timeout Duration `yaml:"timeout"`

	// Interval is the pause between polls. Defaults to 1s.
	Interval Duration `yaml:"interval"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Labels are metadata key-value pairs shown in /api/devices.
	Labels map[string]string `yaml:"labels"`

	// Fields overrides the label text a field is anchored on, keyed by field
	// name (accelerometer, temperature, posture_angle, ...). Text format only.
	Fields map[string]string `yaml:"fields"`
}

// ThresholdsConfig holds optional alert angles in degrees. Unset values keep
// their defaults; zero disables the check.
type ThresholdsConfig struct {
	PostureAngle *float64 `yaml:"posture_angle"`
	Pitch        *float64 `yaml:"pitch"`
	Roll         *float64 `yaml:"roll"`
}

// SinksConfig selects sample sinks. All are disabled by default.
type SinksConfig struct {
	// Console prints one line per sample to stdout.
	Console bool `yaml:"console"`

	// Log writes one structured record per sample to the logger.
	Log bool `yaml:"log"`

	MQTT  *MQTTConfig  `yaml:"mqtt"`
	Redis *RedisConfig `yaml:"redis"`
}

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	// Broker is the broker URL. Supports environment variable substitution.
	Broker string `yaml:"broker"`

	ClientID string `yaml:"client_id"`

	// Topic is the publish topic; "%s" is replaced with the device name.
	Topic string `yaml:"topic"`

	// QoS is 0, 1 or 2.
	QoS int `yaml:"qos"`

	Retained bool `yaml:"retained"`

	// Username and Password support environment variable substitution.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// RedisConfig configures the Redis Pub/Sub sink.
type RedisConfig struct {
	// Addr is host:port. Supports environment variable substitution.
	Addr string `yaml:"addr"`

	// Password supports environment variable substitution.
	Password string `yaml:"password"`

	DB int `yaml:"db"`

	// Channel is the Pub/Sub channel; "%s" is replaced with the device name.
	Channel string `yaml:"channel"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in device URLs, header values and sink
// addresses and credentials. Defaults are applied for Port (5000) and the
// log settings.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given: one text
// device at the module's access-point address.
func Default() *Config {
	return &Config{
		Port: defaultPort,
		Log:  LogConfig{Level: "info", Format: "json"},
		Devices: []DeviceConfig{
			{Name: "esp8266", URL: sensorbridge.DefaultDeviceURL},
		},
		Sinks: SinksConfig{Console: true},
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	if len(c.Devices) == 0 {
		return errors.New("at least one device must be defined")
	}

	seen := make(map[string]bool, len(c.Devices))
	for i := range c.Devices {
		d := &c.Devices[i]

		if d.Name == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if err := sensorbridge.ValidateDeviceName(d.Name); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
		if seen[d.Name] {
			return fmt.Errorf("devices[%d] (%s): duplicate device name", i, d.Name)
		}
		seen[d.Name] = true

		if err := d.expandAndValidate(); err != nil {
			return fmt.Errorf("devices[%d] (%s): %w", i, d.Name, err)
		}
	}

	if err := c.Thresholds.validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	return c.Sinks.expandAndValidate()
}

func (d *DeviceConfig) expandAndValidate() error {
	if d.URL == "" {
		return errors.New("url is required")
	}
	expanded, err := expandEnvVars(d.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	d.URL = expanded

	parsedURL, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	format, err := sensorbridge.ParseFormat(d.Format)
	if err != nil {
		return err
	}
	if format == sensorbridge.FormatJSON && len(d.Fields) > 0 {
		return errors.New("fields overrides only apply to the text format")
	}

	for k, v := range d.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		d.Headers[k] = expanded
	}

	if d.Timeout != 0 {
		if d.Timeout.Duration() < 0 {
			return fmt.Errorf("timeout cannot be negative, got %s", d.Timeout.Duration())
		}
		if d.Timeout.Duration() > maxDeviceTimeout {
			return fmt.Errorf("timeout must not exceed %s, got %s", maxDeviceTimeout, d.Timeout.Duration())
		}
	}

	if d.Interval != 0 {
		if d.Interval.Duration() < minDeviceInterval {
			return fmt.Errorf("interval must be at least %s, got %s", minDeviceInterval, d.Interval.Duration())
		}
		if d.Interval.Duration() > maxDeviceInterval {
			return fmt.Errorf("interval must not exceed %s, got %s", maxDeviceInterval, d.Interval.Duration())
		}
	}

	for name, label := range d.Fields {
		if !sensorbridge.Field(name).Valid() {
			return fmt.Errorf("fields: unknown field %q", name)
		}
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("fields[%s]: label cannot be empty", name)
		}
	}

	return nil
}

func (t ThresholdsConfig) validate() error {
	for name, v := range map[string]*float64{
		"posture_angle": t.PostureAngle,
		"pitch":         t.Pitch,
		"roll":          t.Roll,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s cannot be negative, got %v", name, *v)
		}
	}
	return nil
}

func (s *SinksConfig) expandAndValidate() error {
	if m := s.MQTT; m != nil {
		var err error
		if m.Broker, err = expandEnvVars(m.Broker); err != nil {
			return fmt.Errorf("sinks.mqtt.broker: %w", err)
		}
		if m.Username, err = expandEnvVars(m.Username); err != nil {
			return fmt.Errorf("sinks.mqtt.username: %w", err)
		}
		if m.Password, err = expandEnvVars(m.Password); err != nil {
			return fmt.Errorf("sinks.mqtt.password: %w", err)
		}
		if m.QoS < 0 || m.QoS > 2 {
			return fmt.Errorf("sinks.mqtt.qos must be 0, 1 or 2, got %d", m.QoS)
		}
	}

	if r := s.Redis; r != nil {
		var err error
		if r.Addr, err = expandEnvVars(r.Addr); err != nil {
			return fmt.Errorf("sinks.redis.addr: %w", err)
		}
		if r.Password, err = expandEnvVars(r.Password); err != nil {
			return fmt.Errorf("sinks.redis.password: %w", err)
		}
		if r.Addr == "" {
			return errors.New("sinks.redis.addr is required")
		}
		if r.DB < 0 {
			return fmt.Errorf("sinks.redis.db cannot be negative, got %d", r.DB)
		}
	}

	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}
