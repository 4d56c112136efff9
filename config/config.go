// Package config provides configuration management for the VPN connector.
// It handles loading, saving, and validating application settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yllada/vpn-connector/common"
)

// Config represents the application configuration.
// All settings are persisted to a YAML file in the user's config directory.
type Config struct {
	// Backend selects the backend realizing tunnels: "networkmanager",
	// "native", or empty to pick the best available one.
	Backend string `yaml:"backend"`
	// Protocol is the default protocol for new connections.
	Protocol string `yaml:"protocol"`
	// KillSwitchMode is one of "always-on", "connection-only", or "off".
	KillSwitchMode string `yaml:"killswitch_mode"`
	// LeakProtection blocks IPv6 host-wide while a connection exists.
	LeakProtection bool `yaml:"leak_protection"`
	// AutoReconnect reattempts the connection when the network drops.
	AutoReconnect bool `yaml:"auto_reconnect"`
	// RememberLastConnection keeps the connection record after a clean
	// disconnect, so `connect` with no arguments can repeat it.
	RememberLastConnection bool `yaml:"remember_last_connection"`
	// ConnectTimeoutSeconds bounds how long a connection attempt may take.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	// HistoryRetentionDays bounds how long transition history is kept.
	// Zero disables pruning.
	HistoryRetentionDays int `yaml:"history_retention_days"`
	// LogLevel is one of "debug", "info", "warn", or "error".
	LogLevel string `yaml:"log_level"`
	// LogToFile writes logs to the state directory in addition to stderr.
	LogToFile bool `yaml:"log_to_file"`
}

// DefaultConfig returns the default configuration.
// These are sensible defaults for most users.
func DefaultConfig() *Config {
	return &Config{
		Backend:                "",
		Protocol:               common.ProtocolOpenVPNUDP,
		KillSwitchMode:         common.KillSwitchConnectionOnly,
		LeakProtection:         true,
		AutoReconnect:          true,
		RememberLastConnection: true,
		ConnectTimeoutSeconds:  int(common.ConnectTimeout / time.Second),
		HistoryRetentionDays:   30,
		LogLevel:               "info",
		LogToFile:              true,
	}
}

// ConnectTimeout returns the configured attempt bound as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutSeconds <= 0 {
		return common.ConnectTimeout
	}
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// Load loads the configuration from the config file.
// If the file doesn't exist, it creates one with default values.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.SaveTo(path); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true) // Strict validation: reject unknown fields

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}
	cfg.normalize()
	return &cfg, nil
}

// normalize forces invalid values back to their defaults rather than
// refusing to start.
func (c *Config) normalize() {
	switch c.KillSwitchMode {
	case common.KillSwitchAlwaysOn, common.KillSwitchConnectionOnly, common.KillSwitchOff:
	default:
		c.KillSwitchMode = common.KillSwitchConnectionOnly
	}

	switch c.Protocol {
	case common.ProtocolOpenVPNTCP, common.ProtocolOpenVPNUDP,
		common.ProtocolWireGuard, common.ProtocolIKEv2:
	default:
		c.Protocol = common.ProtocolOpenVPNUDP
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}

	if c.ConnectTimeoutSeconds < 0 {
		c.ConnectTimeoutSeconds = 0
	}
	if c.HistoryRetentionDays < 0 {
		c.HistoryRetentionDays = 0
	}
}

// Save saves the configuration to the default config file.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo saves the configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}
	return nil
}

func configPath() (string, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
