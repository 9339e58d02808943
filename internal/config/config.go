// Package config loads tracksync settings: defaults, then an optional YAML
// file, then TRACKSYNC_* environment variables, then validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "TRACKSYNC_"

// Config is the complete runtime configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Remote   RemoteConfig   `yaml:"remote"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
	Output   OutputConfig   `yaml:"output"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"DB_PATH" validate:"required"`
}

// RemoteConfig locates the Redis server. An empty Addr disables the
// remote store entirely.
type RemoteConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" validate:"gte=0,lte=15"`
	Prefix   string        `yaml:"prefix" env:"REDIS_PREFIX" validate:"required"`
	Timeout  time.Duration `yaml:"timeout" env:"REMOTE_TIMEOUT" validate:"gt=0"`
}

// SyncConfig identifies the session. An empty User means no session.
type SyncConfig struct {
	User   string `yaml:"user" env:"USER"`
	Device string `yaml:"device" env:"DEVICE"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

type OutputConfig struct {
	Locale string `yaml:"locale" env:"LOCALE" validate:"required,bcp47_language_tag"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "tracksync.db"},
		Remote: RemoteConfig{
			Prefix:  "tracksync",
			Timeout: 10 * time.Second,
		},
		Log:    LogConfig{Level: "info"},
		Output: OutputConfig{Locale: "en"},
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown fields. An empty document is allowed.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
