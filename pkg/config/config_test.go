package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero n_frags", func(c *Config) { c.NFrags = 0 }},
		{"negative max_neighbors", func(c *Config) { c.MaxNeighbors = -1 }},
		{"hits threshold above one", func(c *Config) { c.HitsThreshold = 1.5 }},
		{"vote threshold below zero", func(c *Config) { c.VoteThreshold = -0.1 }},
		{"zero gamma1", func(c *Config) { c.Gamma1 = 0 }},
		{"gamma2 not above gamma1", func(c *Config) { c.Gamma1 = 0.5; c.Gamma2 = 0.5 }},
		{"zero iteration budget", func(c *Config) { c.MaxIterations = 0 }},
		{"unknown combiner", func(c *Config) { c.Combiner = "maximal" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contigbin.yaml")

	body := []byte("max_neighbors: 30\nhits_threshold: 0.9\nseed: 7\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxNeighbors != 30 {
		t.Errorf("MaxNeighbors = %d, want 30", cfg.MaxNeighbors)
	}
	if cfg.HitsThreshold != 0.9 {
		t.Errorf("HitsThreshold = %v, want 0.9", cfg.HitsThreshold)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
	// Untouched keys keep their defaults
	if cfg.NFrags != 50 {
		t.Errorf("NFrags = %d, want default 50", cfg.NFrags)
	}
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(path, []byte("gamma1: -2\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
