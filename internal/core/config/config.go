// Package config handles configuration loading and validation for beacon.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// Server is the dashboard backend the engine talks to.
	Server ServerConfig `yaml:"server"`

	// Feed bounds and cadence.
	MinBalance          float64  `yaml:"min_balance"`
	MaxNotifications    int      `yaml:"max_notifications"`
	Expiry              Duration `yaml:"expiry"`
	CheckDelaysInterval Duration `yaml:"check_delays_interval"`
	PollInterval        Duration `yaml:"poll_interval"` // 0 disables periodic polling
	ReconnectDelay      Duration `yaml:"reconnect_delay"`

	// Side effects.
	EnableSound   bool `yaml:"enable_sound"`
	EnableDesktop bool `yaml:"enable_desktop_notifications"`

	DataDir string `yaml:"-"` // set by caller, not from config file
}

// ServerConfig locates the backend endpoints.
type ServerConfig struct {
	Host   string `yaml:"host"`
	Secure bool   `yaml:"secure"`
	Token  string `yaml:"token"` // opaque credential, usually injected via env
}

// Duration is a time.Duration that unmarshals from YAML strings like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns a Config with the dashboard's shipped defaults.
func DefaultConfig() Config {
	return Config{
		MinBalance:          5.00,
		MaxNotifications:    50,
		Expiry:              Duration(7 * 24 * time.Hour),
		CheckDelaysInterval: Duration(60 * time.Second),
		ReconnectDelay:      Duration(5 * time.Second),
		EnableSound:         false,
		EnableDesktop:       true,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the
// provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.MinBalance == 0 {
		c.MinBalance = defaults.MinBalance
	}
	if c.MaxNotifications == 0 {
		c.MaxNotifications = defaults.MaxNotifications
	}
	if c.Expiry == 0 {
		c.Expiry = defaults.Expiry
	}
	if c.CheckDelaysInterval == 0 {
		c.CheckDelaysInterval = defaults.CheckDelaysInterval
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = defaults.ReconnectDelay
	}
}

// NotificationsURL is the polling endpoint for externally generated
// notifications.
func (c *Config) NotificationsURL() string {
	return c.apiURL("/api/notifications")
}

// LinesURL is the line-status endpoint.
func (c *Config) LinesURL() string {
	return c.apiURL("/api/lines")
}

func (c *Config) apiURL(path string) string {
	scheme := "http"
	if c.Server.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, c.Server.Host, path)
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.MaxNotifications < 1 {
		return fmt.Errorf("max_notifications must be at least 1")
	}

	if c.Expiry <= 0 {
		return fmt.Errorf("expiry must be positive")
	}

	if c.MinBalance < 0 {
		return fmt.Errorf("min_balance cannot be negative")
	}

	return nil
}
