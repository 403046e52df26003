package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative parallelism",
			mutate: func(cfg *Config) {
				cfg.Parallelism = -1
			},
			wantErr: "parallelism",
		},
		{
			name: "zero max listing pages",
			mutate: func(cfg *Config) {
				cfg.MaxListingPages = 0
			},
			wantErr: "max listing pages",
		},
		{
			name: "no seed paths",
			mutate: func(cfg *Config) {
				cfg.SeedPaths = nil
			},
			wantErr: "seed path",
		},
		{
			name: "empty seed path",
			mutate: func(cfg *Config) {
				cfg.SeedPaths = []string{""}
			},
			wantErr: "seed path",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "bad output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "backoff exceeds max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 5 * time.Second
				cfg.RetryBackoffMax = 1 * time.Second
			},
			wantErr: "retry backoff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestUnbounded(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Unbounded() {
		t.Fatalf("default target of %d should be bounded", cfg.TargetResults)
	}
	cfg.TargetResults = 0
	if !cfg.Unbounded() {
		t.Fatalf("zero target should be unbounded")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "42")
	value, ok, err := EnvInt("SCRAPER_TEST_INT")
	if err != nil || !ok || value != 42 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (42, true, nil)", value, ok, err)
	}

	t.Setenv("SCRAPER_TEST_INT", "nope")
	if _, _, err := EnvInt("SCRAPER_TEST_INT"); err == nil {
		t.Fatalf("expected error for non-integer value")
	}

	if _, ok, _ := EnvInt("SCRAPER_TEST_UNSET"); ok {
		t.Fatalf("unset variable should report ok=false")
	}

	t.Setenv("SCRAPER_TEST_BOOL", "true")
	b, ok, err := EnvBool("SCRAPER_TEST_BOOL")
	if err != nil || !ok || !b {
		t.Fatalf("EnvBool = (%v, %v, %v), want (true, true, nil)", b, ok, err)
	}
}
