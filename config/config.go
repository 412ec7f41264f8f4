// Package config handles loading and managing application configuration
// from YAML files, an optional .env file and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// HistoryConfig controls the optional SQLite generation log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// WebhookConfig controls the outbound generation notifications.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Timeout  Duration `yaml:"timeout"`
	DedupTTL Duration `yaml:"dedup_ttl"`
}

// Config holds all application configuration values.
type Config struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	UploadDir       string        `yaml:"upload_dir"`
	PublicURL       string        `yaml:"public_url"`
	DefaultSize     int           `yaml:"default_size"`
	MaxSize         int           `yaml:"max_size"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout Duration      `yaml:"shutdown_timeout"`
	History         HistoryConfig `yaml:"history"`
	Webhook         WebhookConfig `yaml:"webhook"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "30s", "5m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            5001,
		UploadDir:       "uploads",
		PublicURL:       "http://localhost:5001",
		DefaultSize:     300,
		MaxSize:         4096,
		LogLevel:        "info",
		ShutdownTimeout: Duration{10 * time.Second},
		History: HistoryConfig{
			Enabled: false,
			DBPath:  "qrgen.db",
		},
		Webhook: WebhookConfig{
			Timeout:  Duration{10 * time.Second},
			DedupTTL: Duration{5 * time.Minute},
		},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file in the working directory,
// when present, is loaded into the process environment first; QRGEN_*
// environment variables then override file and default values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies QRGEN_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QRGEN_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("QRGEN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRGEN_UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("QRGEN_PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}
	if v := os.Getenv("QRGEN_DEFAULT_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultSize = n
		}
	}
	if v := os.Getenv("QRGEN_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxSize = n
		}
	}
	if v := os.Getenv("QRGEN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QRGEN_HISTORY_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			cfg.History.Enabled = true
		case "false", "0", "no":
			cfg.History.Enabled = false
		}
	}
	if v := os.Getenv("QRGEN_HISTORY_DB_PATH"); v != "" {
		cfg.History.DBPath = v
	}
	if v := os.Getenv("QRGEN_WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
	if v := os.Getenv("QRGEN_WEBHOOK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Webhook.Timeout = Duration{d}
		}
	}
	if v := os.Getenv("QRGEN_WEBHOOK_DEDUP_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Webhook.DedupTTL = Duration{d}
		}
	}
	if v := os.Getenv("QRGEN_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = Duration{d}
		}
	}
}

// Validate reports configuration values the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.UploadDir == "" {
		return fmt.Errorf("upload_dir must not be empty")
	}
	if c.DefaultSize <= 0 {
		return fmt.Errorf("default_size must be positive, got %d", c.DefaultSize)
	}
	if c.MaxSize < c.DefaultSize {
		return fmt.Errorf("max_size %d is smaller than default_size %d", c.MaxSize, c.DefaultSize)
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path must be set when history is enabled")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
