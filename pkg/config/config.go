// Package config loads and validates the emulator configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultHostnames is the set of vendor hostnames the client resolves
// during startup, login and matchmaking. All of them must point at the
// loopback address for interception to work.
var DefaultHostnames = []string{
	"account-public-service-prod.ol.epicgames.com",
	"account-public-service-prod03.ol.epicgames.com",
	"fortnite-public-service-prod11.ol.epicgames.com",
	"lightswitch-public-service-prod06.ol.epicgames.com",
	"content-api-prod.ak.epicgames.com",
	"datarouter-prod.ak.epicgames.com",
	"eulatracking-public-service-prod06.ol.epicgames.com",
}

// Config is the top-level emulator configuration.
type Config struct {
	// Listen controls the gateway listeners.
	Listen ListenConfig `yaml:"listen"`

	// Hostnames is the set of vendor hostnames to intercept. Leaf
	// certificates are issued for each; the hosts redirector maps each
	// to the loopback address.
	Hostnames []string `yaml:"hostnames"`

	// CADir is the directory holding the local authority certificate
	// and key. Created on first use.
	CADir string `yaml:"caDir"`

	// Auth controls token lifetimes.
	Auth AuthConfig `yaml:"auth"`

	// Matchmaking controls ticket timing.
	Matchmaking MatchmakingConfig `yaml:"matchmaking"`

	// SnapshotPath is an optional JSON file the session store is
	// snapshotted to on shutdown and loaded from at startup.
	SnapshotPath string `yaml:"snapshotPath"`

	// Logging controls operational log output.
	Logging LoggingConfig `yaml:"logging"`
}

// ListenConfig holds the gateway listener settings.
type ListenConfig struct {
	// Address is the bind address. Defaults to the loopback address.
	Address string `yaml:"address"`
	// HTTPSPort is the TLS port the intercepted client connects to.
	HTTPSPort int `yaml:"httpsPort"`
	// HTTPPort is an optional plain-HTTP port serving the same surface.
	// Zero disables it.
	HTTPPort int `yaml:"httpPort"`
}

// AuthConfig holds token lifetime settings.
type AuthConfig struct {
	// AccessTTL is the access token lifetime.
	AccessTTL Duration `yaml:"accessTTL"`
	// RefreshTTL is the refresh token lifetime.
	RefreshTTL Duration `yaml:"refreshTTL"`
}

// MatchmakingConfig holds matchmaking ticket timing settings.
type MatchmakingConfig struct {
	// QueueWait is how long a ticket stays Queued before it is
	// assigned a synthetic session.
	QueueWait Duration `yaml:"queueWait"`
	// Retention is how long resolved tickets are kept before they are
	// garbage collected.
	Retention Duration `yaml:"retention"`
	// ServerAddress is the game server address placed in synthetic
	// session descriptors.
	ServerAddress string `yaml:"serverAddress"`
	// ServerPort is the game server port for synthetic sessions.
	ServerPort int `yaml:"serverPort"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigError is a fatal startup configuration error (bad ports,
// missing paths, insufficient privilege). It is never produced by
// request handling.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
	}
	return "config: " + e.Msg
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Address:   "127.0.0.1",
			HTTPSPort: 443,
			HTTPPort:  80,
		},
		Hostnames: append([]string(nil), DefaultHostnames...),
		CADir:     defaultCADir(),
		Auth: AuthConfig{
			AccessTTL:  Duration(8 * time.Hour),
			RefreshTTL: Duration(30 * 24 * time.Hour),
		},
		Matchmaking: MatchmakingConfig{
			QueueWait:     Duration(30 * time.Second),
			Retention:     Duration(10 * time.Minute),
			ServerAddress: "127.0.0.1",
			ServerPort:    7777,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func defaultCADir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lanlobby/ca"
	}
	return home + "/.lanlobby/ca"
}

// Load reads a YAML config file, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("parse %s: %v", path, err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for fatal startup errors.
func (c *Config) Validate() error {
	if c.Listen.HTTPSPort <= 0 || c.Listen.HTTPSPort > 65535 {
		return &ConfigError{Field: "listen.httpsPort", Msg: fmt.Sprintf("invalid port %d", c.Listen.HTTPSPort)}
	}
	if c.Listen.HTTPPort < 0 || c.Listen.HTTPPort > 65535 {
		return &ConfigError{Field: "listen.httpPort", Msg: fmt.Sprintf("invalid port %d", c.Listen.HTTPPort)}
	}
	if c.Listen.HTTPPort != 0 && c.Listen.HTTPPort == c.Listen.HTTPSPort {
		return &ConfigError{Field: "listen.httpPort", Msg: "http and https ports must differ"}
	}
	if len(c.Hostnames) == 0 {
		return &ConfigError{Field: "hostnames", Msg: "at least one intercepted hostname is required"}
	}
	if c.CADir == "" {
		return &ConfigError{Field: "caDir", Msg: "authority directory is required"}
	}
	if c.Auth.AccessTTL <= 0 {
		return &ConfigError{Field: "auth.accessTTL", Msg: "must be positive"}
	}
	if c.Auth.RefreshTTL <= 0 {
		return &ConfigError{Field: "auth.refreshTTL", Msg: "must be positive"}
	}
	if c.Matchmaking.QueueWait <= 0 {
		return &ConfigError{Field: "matchmaking.queueWait", Msg: "must be positive"}
	}
	if c.Matchmaking.Retention <= 0 {
		return &ConfigError{Field: "matchmaking.retention", Msg: "must be positive"}
	}
	return nil
}

// Write marshals the configuration to a YAML file. Used by the init
// command to produce a starter config.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
