package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/sqlite-bridge/runtime"
)

// Config represents a bridge.toml configuration file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig selects the database and how to open it.
type DatabaseConfig struct {
	Path          string `toml:"path"`
	ReadOnly      bool   `toml:"read-only"`
	URI           bool   `toml:"uri"`
	BusyTimeoutMS int32  `toml:"busy-timeout-ms"`
	ForeignKeys   bool   `toml:"foreign-keys"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `toml:"level"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:          ":memory:",
			BusyTimeoutMS: 5000,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// loadConfig parses a bridge.toml file, or returns the defaults when
// path is empty.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = ":memory:"
	}
	return cfg, nil
}

func (c *Config) openFlags() int32 {
	flags := runtime.OpenReadWrite | runtime.OpenCreate
	if c.Database.ReadOnly {
		flags = runtime.OpenReadOnly
	}
	if c.Database.URI {
		flags |= runtime.OpenURI
	}
	return flags
}

func (c *Config) buildLogger(verbose bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
