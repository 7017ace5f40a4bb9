// Package config provides configuration loading for loregate.
package config

import (
	"fmt"
	"time"
)

// Config is the root daemon configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Bulk     BulkConfig     `koanf:"bulk"`
	Stats    StatsConfig    `koanf:"stats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds ledger storage settings.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// BulkConfig holds bulk orchestrator settings.
type BulkConfig struct {
	Workers int `koanf:"workers"`
}

// StatsConfig holds stats aggregator settings. A zero CacheTTL disables the
// stats cache entirely.
type StatsConfig struct {
	CacheTTL Duration `koanf:"cache_ttl"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// NewDefaultConfig returns config with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8700,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "loregate.db",
		},
		Bulk: BulkConfig{
			Workers: 8,
		},
		Stats: StatsConfig{
			CacheTTL: Duration(5 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	if c.Bulk.Workers < 1 {
		return fmt.Errorf("bulk.workers must be at least 1, got %d", c.Bulk.Workers)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
