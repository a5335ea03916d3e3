package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scoring.Weights.CodeHosting != 0.35 {
		t.Errorf("expected default code-hosting weight 0.35, got %v", cfg.Scoring.Weights.CodeHosting)
	}
	if cfg.Scoring.MaxRecommendations != 10 {
		t.Errorf("expected default max recommendations 10, got %d", cfg.Scoring.MaxRecommendations)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("expected default cache ttl 24h, got %v", cfg.Cache.TTL)
	}
	if len(cfg.Calculators.ShortFormSocial.TechnicalTerms) == 0 {
		t.Error("expected a default technical dictionary")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid YAML overrides defaults",
			yaml: `
scoring:
  weights:
    code_hosting: 0.5
    professional_network: 0.2
    long_form_content: 0.2
    short_form_social: 0.1
  strong_threshold: 80
calculators:
  code_hosting:
    stars_threshold: 50
cache:
  ttl: 6h
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Scoring.Weights.CodeHosting != 0.5 {
					t.Errorf("expected code weight 0.5, got %v", cfg.Scoring.Weights.CodeHosting)
				}
				if cfg.Scoring.StrongThreshold != 80 {
					t.Errorf("expected strong threshold 80, got %v", cfg.Scoring.StrongThreshold)
				}
				if cfg.Scoring.WeakThreshold != 50 {
					t.Errorf("expected weak threshold to keep default 50, got %v", cfg.Scoring.WeakThreshold)
				}
				if cfg.Calculators.CodeHosting.StarsThreshold != 50 {
					t.Errorf("expected stars threshold 50, got %v", cfg.Calculators.CodeHosting.StarsThreshold)
				}
				if cfg.Calculators.CodeHosting.ImpactThreshold != 500 {
					t.Errorf("expected untouched impact threshold 500, got %v", cfg.Calculators.CodeHosting.ImpactThreshold)
				}
				if cfg.Cache.TTL != 6*time.Hour {
					t.Errorf("expected ttl 6h, got %v", cfg.Cache.TTL)
				}
			},
		},
		{
			name: "partial weights keep other defaults",
			yaml: "scoring:\n  weights:\n    short_form_social: 0.4\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Scoring.Weights.ShortFormSocial != 0.4 || cfg.Scoring.Weights.ProfessionalNetwork != 0.30 {
					t.Errorf("unexpected weights %+v", cfg.Scoring.Weights)
				}
			},
		},
		{
			name:    "negative weight is rejected",
			yaml:    "scoring:\n  weights:\n    code_hosting: -1\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "weak above strong is rejected",
			yaml:    "scoring:\n  weak_threshold: 90\n",
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatalf("write test config: %v", err)
			}

			cfg, err := Load(path)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.check(t, cfg)
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scoring.Weights != DefaultConfig().Scoring.Weights {
		t.Errorf("expected default weights, got %+v", cfg.Scoring.Weights)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".dare", "config.yaml")
	cfg := DefaultConfig()
	cfg.Scoring.Weights.LongFormContent = 0.45
	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Scoring.Weights.LongFormContent != 0.45 {
		t.Errorf("expected 0.45, got %v", got.Scoring.Weights.LongFormContent)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Run("found in parent directory", func(t *testing.T) {
		root := t.TempDir()
		configDir := filepath.Join(root, ".dare")
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			t.Fatalf("create config dir: %v", err)
		}
		configPath := filepath.Join(configDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}

		sub := filepath.Join(root, "a", "b", "c")
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatalf("create sub: %v", err)
		}

		if got := FindConfigFile(sub); got != configPath {
			t.Errorf("FindConfigFile = %q, want %q", got, configPath)
		}
	})

	t.Run("not found", func(t *testing.T) {
		if got := FindConfigFile(t.TempDir()); got != "" {
			t.Errorf("FindConfigFile = %q, want empty", got)
		}
	})
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scoring:\n  weights:\n    code_hosting: 0.35\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	if err := Watch(ctx, path, func(c *Config) { reloaded <- c }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("scoring:\n  weights:\n    code_hosting: 0.9\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Scoring.Weights.CodeHosting != 0.9 {
			t.Errorf("expected reloaded weight 0.9, got %v", cfg.Scoring.Weights.CodeHosting)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
