// Package config loads the optional YAML configuration file. Command-line
// flags override anything set here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/eyecare/internal/constants"
)

// Notifier sinks
const (
	NotifierTray   = "tray"
	NotifierLog    = "log"
	NotifierBridge = "bridge"
)

// Config is the on-disk configuration.
type Config struct {
	// Store is a sqlite path, "json:<path>", or a PostgreSQL URL/DSN without a password
	Store string `yaml:"store,omitempty"`
	// Socket is the agent's unix socket path
	Socket string `yaml:"socket,omitempty"`
	Debug  bool   `yaml:"debug,omitempty"`
	// Notifier is bridge (the browser when attached, else the log), log, or
	// tray. tray posts to a separately installed eyecare-tray companion app.
	Notifier      string     `yaml:"notifier,omitempty"`
	FlushInterval string     `yaml:"flush_interval,omitempty"`
	OTel          OTelConfig `yaml:"otel,omitempty"`
}

// OTelConfig controls metrics export.
type OTelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Notifier:      NotifierBridge,
		FlushInterval: constants.FlushInterval.String(),
		OTel:          OTelConfig{Endpoint: "localhost:4317", Insecure: true},
	}
}

// DefaultPath returns the config file location, honouring EYECARE_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(constants.EnvConfigFile); p != "" {
		return p
	}
	return constants.DefaultConfigFile
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects values the agent cannot run with.
func (c *Config) Validate() error {
	switch c.Notifier {
	case "", NotifierTray, NotifierLog, NotifierBridge:
	default:
		return fmt.Errorf("invalid notifier %q (expected %s, %s or %s)", c.Notifier, NotifierTray, NotifierLog, NotifierBridge)
	}
	if c.FlushInterval != "" {
		d, err := time.ParseDuration(c.FlushInterval)
		if err != nil {
			return fmt.Errorf("invalid flush_interval: %w", err)
		}
		if d < time.Second {
			return fmt.Errorf("invalid flush_interval %s: must be at least 1s", d)
		}
	}
	return nil
}

// GetFlushInterval returns the tracker flush cadence.
func (c *Config) GetFlushInterval() time.Duration {
	d, err := time.ParseDuration(c.FlushInterval)
	if err != nil || d < time.Second {
		return constants.FlushInterval
	}
	return d
}

// SocketPath returns the configured socket or the default one in the config dir.
func (c *Config) SocketPath() (string, error) {
	if c.Socket != "" {
		return ExpandPath(c.Socket)
	}
	dir, err := ExpandPath(constants.DefaultConfigDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.DefaultSocketName), nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
