package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"metalwatch/internal/domain"
	"metalwatch/internal/fetch"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for metalwatch.
type Config struct {
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
	Refresh Refresh `yaml:"refresh"`
}

// Storage selects and locates the settings backend.
type Storage struct {
	// Backend is one of "file", "sqlite" or "memory".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Refresh controls price fetching.
type Refresh struct {
	Interval     time.Duration `yaml:"interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	UserAgent    string        `yaml:"user_agent"`
}

// Default returns a Config with every field set to its default.
func Default() *Config {
	return &Config{
		Storage: Storage{Backend: "file", Path: "data/settings.json"},
		Server:  Server{Host: "127.0.0.1", Port: 8080},
		Logging: Logging{Level: "info", Format: "json"},
		Refresh: Refresh{
			Interval:     domain.DefaultRefreshInterval,
			FetchTimeout: fetch.DefaultTimeout,
			UserAgent:    fetch.DefaultUserAgent,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over the
// defaults and then applies environment variable overrides. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults restores defaults for fields an explicit YAML value zeroed.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = def.Storage.Backend
	}
	if cfg.Storage.Path == "" && cfg.Storage.Backend != "memory" {
		cfg.Storage.Path = def.Storage.Path
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Refresh.Interval <= 0 {
		cfg.Refresh.Interval = def.Refresh.Interval
	}
	if cfg.Refresh.FetchTimeout <= 0 {
		cfg.Refresh.FetchTimeout = def.Refresh.FetchTimeout
	}
	if cfg.Refresh.UserAgent == "" {
		cfg.Refresh.UserAgent = def.Refresh.UserAgent
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SETTINGS_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}

	if v := os.Getenv("SETTINGS_PATH"); v != "" {
		cfg.Storage.Path = v
	}

	if v := os.Getenv("HTTP_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Refresh.Interval = d
		}
	}
}
