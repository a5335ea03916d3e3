// Package config holds the dared service settings, layered from defaults,
// an optional YAML file and DARE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

const (
	envPrefix  = "DARE_"
	envFileKey = "DARE_CONFIG"
)

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// StoreDriver selects persistence: postgres, sqlite or memory.
	StoreDriver string `koanf:"store_driver"`
	DatabaseURL string `koanf:"database_url"`
	SQLitePath  string `koanf:"sqlite_path"`
	// AutoMigrate applies Postgres migrations at startup.
	AutoMigrate bool `koanf:"auto_migrate"`

	// ArchiveBackend selects raw payload storage: local, s3, gcs or none.
	ArchiveBackend string `koanf:"archive_backend"`
	ArchivePath    string `koanf:"archive_path"`
	ArchiveBucket  string `koanf:"archive_bucket"`
	S3Region       string `koanf:"s3_region"`
	S3Endpoint     string `koanf:"s3_endpoint"`
	S3AccessKey    string `koanf:"s3_access_key"`
	S3SecretKey    string `koanf:"s3_secret_key"`

	// ScoringConfig is the path of the hot-reloaded scoring file. Empty
	// means search for .dare/config.yaml from the working directory.
	ScoringConfig string `koanf:"scoring_config"`

	// RefreshInterval is the time between scheduled rescoring passes; zero
	// disables the scheduler.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	RefreshWorkers  int           `koanf:"refresh_workers"`

	// APIKey gates the REST API when set.
	APIKey string `koanf:"api_key"`

	// CacheTTL is how long fetched platform metrics stay fresh. Zero defers
	// to cache.ttl of the scoring file.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// ScoreCacheSize bounds the in-memory current-score cache.
	ScoreCacheSize int `koanf:"score_cache_size"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		StoreDriver:     "sqlite",
		SQLitePath:      ".dare/dare.db",
		AutoMigrate:     true,
		ArchiveBackend:  "local",
		ArchivePath:     ".dare/archive",
		RefreshInterval: 6 * time.Hour,
		RefreshWorkers:  4,
		ScoreCacheSize:  256,
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if DARE_CONFIG is set
//  3. env (prefix DARE_)
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envFileKey); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// DARE_STORE_DRIVER -> store_driver; keys stay flat.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite store", ErrInvalidConfig)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch c.ArchiveBackend {
	case "", "none", "local", "s3", "gcs":
	default:
		return fmt.Errorf("%w: unknown archive_backend %q", ErrInvalidConfig, c.ArchiveBackend)
	}
	if (c.ArchiveBackend == "s3" || c.ArchiveBackend == "gcs") && c.ArchiveBucket == "" {
		return fmt.Errorf("%w: archive_bucket is required for %s", ErrInvalidConfig, c.ArchiveBackend)
	}
	if c.RefreshInterval < 0 || c.CacheTTL < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.RefreshWorkers <= 0 {
		return fmt.Errorf("%w: refresh_workers must be positive", ErrInvalidConfig)
	}
	return nil
}
