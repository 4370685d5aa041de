package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 443, cfg.Listen.HTTPSPort)
	assert.Equal(t, "127.0.0.1", cfg.Listen.Address)
	assert.NotEmpty(t, cfg.Hostnames)
	assert.Equal(t, 8*time.Hour, cfg.Auth.AccessTTL.Std())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lanlobby.yaml")

	content := `
listen:
  address: 127.0.0.1
  httpsPort: 8443
  httpPort: 8080
hostnames:
  - a.example.com
  - b.example.com
matchmaking:
  queueWait: 5s
  retention: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8443, cfg.Listen.HTTPSPort)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.Hostnames)
	assert.Equal(t, 5*time.Second, cfg.Matchmaking.QueueWait.Std())
	// Defaults survive for absent fields
	assert.Equal(t, 8*time.Hour, cfg.Auth.AccessTTL.Std())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad https port", func(c *Config) { c.Listen.HTTPSPort = 0 }, "listen.httpsPort"},
		{"negative http port", func(c *Config) { c.Listen.HTTPPort = -1 }, "listen.httpPort"},
		{"port clash", func(c *Config) { c.Listen.HTTPPort = c.Listen.HTTPSPort }, "listen.httpPort"},
		{"no hostnames", func(c *Config) { c.Hostnames = nil }, "hostnames"},
		{"no ca dir", func(c *Config) { c.CADir = "" }, "caDir"},
		{"zero access ttl", func(c *Config) { c.Auth.AccessTTL = 0 }, "auth.accessTTL"},
		{"zero queue wait", func(c *Config) { c.Matchmaking.QueueWait = 0 }, "matchmaking.queueWait"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	cfg := Default()
	cfg.Listen.HTTPSPort = 9443
	require.NoError(t, cfg.Write(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9443, loaded.Listen.HTTPSPort)
	assert.Equal(t, cfg.Hostnames, loaded.Hostnames)
}
