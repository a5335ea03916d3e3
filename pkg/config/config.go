// Package config handles loading and watching the Dare scoring configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/darescore/dare/pkg/calculator"
	"github.com/darescore/dare/pkg/scoring"
)

// ErrInvalidConfig is returned when a config file parses but holds unusable values.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level scoring configuration.
type Config struct {
	Scoring     ScoringConfig     `yaml:"scoring"`
	Calculators calculator.Tuning `yaml:"calculators"`
	Cache       CacheConfig       `yaml:"cache"`
}

// ScoringConfig controls the composite engine.
type ScoringConfig struct {
	Weights            scoring.Weights `yaml:"weights"`
	MaxRecommendations int             `yaml:"max_recommendations"`
	StrongThreshold    float64         `yaml:"strong_threshold"`
	WeakThreshold      float64         `yaml:"weak_threshold"`
}

// CacheConfig controls the per-platform metrics cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	opts := scoring.DefaultOptions()
	return &Config{
		Scoring: ScoringConfig{
			Weights:            scoring.DefaultWeights(),
			MaxRecommendations: opts.MaxRecommendations,
			StrongThreshold:    opts.StrongThreshold,
			WeakThreshold:      opts.WeakThreshold,
		},
		Calculators: calculator.DefaultTuning(),
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values a file may have set.
func (c *Config) Validate() error {
	if err := c.Scoring.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Scoring.MaxRecommendations < 0 || c.Calculators.MaxRecommendations < 0 {
		return fmt.Errorf("%w: max_recommendations must not be negative", ErrInvalidConfig)
	}
	if c.Scoring.WeakThreshold > c.Scoring.StrongThreshold {
		return fmt.Errorf("%w: weak_threshold %v above strong_threshold %v",
			ErrInvalidConfig, c.Scoring.WeakThreshold, c.Scoring.StrongThreshold)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

// EngineOptions converts the scoring section into engine options.
func (c *Config) EngineOptions() []scoring.Option {
	return []scoring.Option{
		scoring.WithThresholds(c.Scoring.StrongThreshold, c.Scoring.WeakThreshold),
		scoring.WithMaxRecommendations(c.Scoring.MaxRecommendations),
	}
}

// FindConfigFile looks for .dare/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".dare", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Write serializes cfg to path, creating parent directories.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
