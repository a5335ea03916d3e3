package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	c := New()
	if c.Addr != ":8080" || c.StoreDriver != "sqlite" || c.RefreshWorkers != 4 {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.CacheTTL != 0 {
		t.Errorf("CacheTTL = %v, want 0 so the scoring file decides", c.CacheTTL)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dared.yaml")
	yaml := "addr: \":9090\"\nstore_driver: memory\nrefresh_interval: 30m\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DARE_CONFIG", path)
	t.Setenv("DARE_LOG_LEVEL", "warn")
	t.Setenv("DARE_CACHE_TTL", "2h")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Addr != ":9090" {
		t.Errorf("Addr = %q, want file value", c.Addr)
	}
	if c.StoreDriver != "memory" {
		t.Errorf("StoreDriver = %q, want memory", c.StoreDriver)
	}
	if c.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want env to override file", c.LogLevel)
	}
	if c.RefreshInterval != 30*time.Minute {
		t.Errorf("RefreshInterval = %v, want 30m", c.RefreshInterval)
	}
	if c.CacheTTL != 2*time.Hour {
		t.Errorf("CacheTTL = %v, want 2h", c.CacheTTL)
	}
	if c.RefreshWorkers != 4 {
		t.Errorf("RefreshWorkers = %d, want default kept", c.RefreshWorkers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("DARE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); !errors.Is(err, ErrLoadConfig) {
		t.Errorf("err = %v, want ErrLoadConfig", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"unknown store", func(c *Config) { c.StoreDriver = "mongo" }},
		{"postgres without url", func(c *Config) { c.StoreDriver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.SQLitePath = "" }},
		{"unknown archive", func(c *Config) { c.ArchiveBackend = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.ArchiveBackend = "s3" }},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Second }},
		{"no workers", func(c *Config) { c.RefreshWorkers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
