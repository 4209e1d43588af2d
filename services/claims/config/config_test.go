// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Rules.ConfidenceFloor != 0.85 {
		t.Errorf("ConfidenceFloor = %v, want 0.85", cfg.Rules.ConfidenceFloor)
	}
	if cfg.Rules.FastPathAmount != 500 {
		t.Errorf("FastPathAmount = %v, want 500", cfg.Rules.FastPathAmount)
	}
	if cfg.Rules.HighValueAmount != 5000 {
		t.Errorf("HighValueAmount = %v, want 5000", cfg.Rules.HighValueAmount)
	}
	if cfg.Contradiction.VeryHighConfidence != 0.95 {
		t.Errorf("VeryHighConfidence = %v, want 0.95", cfg.Contradiction.VeryHighConfidence)
	}
	if cfg.Retrieval.MaxClauses != 8 {
		t.Errorf("MaxClauses = %v, want 8", cfg.Retrieval.MaxClauses)
	}
	if cfg.Retrieval.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %v, want 3", cfg.Retrieval.MaxAttempts)
	}
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("SENTINEL_CONFIG_FILE", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Rules.ConfidenceFloor != 0.85 {
		t.Errorf("ConfidenceFloor = %v, want default 0.85", cfg.Rules.ConfidenceFloor)
	}
}

func TestLoad_ConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	body := "rules:\n  confidence_floor: 0.90\n  high_value_amount: 10000\nretrieval:\n  max_clauses: 4\n"
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTINEL_CONFIG_FILE", file)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Rules.ConfidenceFloor != 0.90 {
		t.Errorf("ConfidenceFloor = %v, want 0.90", cfg.Rules.ConfidenceFloor)
	}
	if cfg.Rules.HighValueAmount != 10000 {
		t.Errorf("HighValueAmount = %v, want 10000", cfg.Rules.HighValueAmount)
	}
	if cfg.Retrieval.MaxClauses != 4 {
		t.Errorf("MaxClauses = %v, want 4", cfg.Retrieval.MaxClauses)
	}
	// Untouched keys keep their defaults.
	if cfg.Rules.ModerateAmount != 1000 {
		t.Errorf("ModerateAmount = %v, want default 1000", cfg.Rules.ModerateAmount)
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("rules: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SENTINEL_CONFIG_FILE", file)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"confidence floor out of range", func(c *Config) { c.Rules.ConfidenceFloor = 1.5 }},
		{"zero confidence floor", func(c *Config) { c.Rules.ConfidenceFloor = 0 }},
		{"fast path below floor", func(c *Config) { c.Rules.FastPathConfidence = 0.50 }},
		{"high value below moderate", func(c *Config) { c.Rules.HighValueAmount = 500 }},
		{"inverted contradiction thresholds", func(c *Config) { c.Contradiction.VeryLowConfidence = 0.99 }},
		{"non-positive max clauses", func(c *Config) { c.Retrieval.MaxClauses = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := Default().validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}
