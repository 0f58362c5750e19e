// Package config provides configuration loading for orchd.
package config

import (
	"fmt"
	"time"
)

// Config is the full orchd configuration.
type Config struct {
	Logging LoggingConfig `koanf:"logging"`
	Events  EventsConfig  `koanf:"events"`
	GitHub  GitHubConfig  `koanf:"github"`
	Server  ServerConfig  `koanf:"server"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// EventsConfig controls event emission.
type EventsConfig struct {
	// NATSURL enables the NATS emitter when set, e.g. nats://localhost:4222.
	NATSURL string `koanf:"nats_url"`
}

// GitHubConfig configures the production adapter. Leaving Token unset keeps
// runs on the reference adapter.
type GitHubConfig struct {
	Token             Secret   `koanf:"token"`
	BaseURL           string   `koanf:"base_url"`
	MergeMethod       string   `koanf:"merge_method"`
	CIPollInterval    Duration `koanf:"ci_poll_interval"`
	CITimeout         Duration `koanf:"ci_timeout"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
}

// ServerConfig configures the read-only run inspection server.
type ServerConfig struct {
	// Addr is the listen address. Empty disables the server.
	Addr string `koanf:"addr"`
}

// applyDefaults fills unset fields with working defaults.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.GitHub.MergeMethod == "" {
		cfg.GitHub.MergeMethod = "squash"
	}
	if cfg.GitHub.CIPollInterval == 0 {
		cfg.GitHub.CIPollInterval = Duration(15 * time.Second)
	}
	if cfg.GitHub.CITimeout == 0 {
		cfg.GitHub.CITimeout = Duration(30 * time.Minute)
	}
	if cfg.GitHub.RequestsPerSecond == 0 {
		cfg.GitHub.RequestsPerSecond = 5
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	switch c.GitHub.MergeMethod {
	case "merge", "squash", "rebase":
	default:
		return fmt.Errorf("invalid merge method %q", c.GitHub.MergeMethod)
	}
	if c.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second cannot be negative")
	}
	return nil
}
