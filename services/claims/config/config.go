// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the claims service policy configuration.
//
// Routing thresholds and contradiction sensitivity are product policy, not
// code: they are loaded once at process start from an optional YAML file
// with environment overrides, and treated as read-only afterwards.
//
// Configuration hierarchy (highest to lowest priority):
//  1. Environment variables (SENTINEL_*)
//  2. Config file (SENTINEL_CONFIG_FILE or /etc/claimsentinel/config.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/AleutianAI/ClaimSentinel/services/guardrails/contradiction"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/rules"
)

// Config is the loaded claims policy configuration.
type Config struct {
	Rules struct {
		ConfidenceFloor    float64 `mapstructure:"confidence_floor"`
		FastPathAmount     float64 `mapstructure:"fast_path_amount"`
		FastPathConfidence float64 `mapstructure:"fast_path_confidence"`
		ModerateAmount     float64 `mapstructure:"moderate_amount"`
		HighValueAmount    float64 `mapstructure:"high_value_amount"`
	} `mapstructure:"rules"`

	Contradiction struct {
		VeryHighConfidence float64 `mapstructure:"very_high_confidence"`
		VeryLowConfidence  float64 `mapstructure:"very_low_confidence"`
	} `mapstructure:"contradiction"`

	Retrieval struct {
		// MaxClauses caps how many clauses one validation call retrieves.
		MaxClauses int `mapstructure:"max_clauses"`

		// MaxAttempts bounds the retry loop for retryable retrieval failures.
		MaxAttempts int `mapstructure:"max_attempts"`
	} `mapstructure:"retrieval"`
}

// Load reads configuration from defaults, the optional config file, and
// SENTINEL_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := os.Getenv("SENTINEL_CONFIG_FILE")
	if configFile == "" {
		configFile = "/etc/claimsentinel/config.yaml"
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults; a malformed file is fatal.
		if _, statErr := os.Stat(configFile); statErr == nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without touching disk or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are statically known; unmarshal cannot fail here.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	ruleDefaults := rules.DefaultConfig()
	v.SetDefault("rules.confidence_floor", ruleDefaults.ConfidenceFloor)
	v.SetDefault("rules.fast_path_amount", ruleDefaults.FastPathAmount)
	v.SetDefault("rules.fast_path_confidence", ruleDefaults.FastPathConfidence)
	v.SetDefault("rules.moderate_amount", ruleDefaults.ModerateAmount)
	v.SetDefault("rules.high_value_amount", ruleDefaults.HighValueAmount)

	contradictionDefaults := contradiction.DefaultConfig()
	v.SetDefault("contradiction.very_high_confidence", contradictionDefaults.VeryHighConfidence)
	v.SetDefault("contradiction.very_low_confidence", contradictionDefaults.VeryLowConfidence)

	v.SetDefault("retrieval.max_clauses", 8)
	v.SetDefault("retrieval.max_attempts", 3)
}

func (c *Config) validate() error {
	if c.Rules.ConfidenceFloor <= 0 || c.Rules.ConfidenceFloor > 1 {
		return fmt.Errorf("rules.confidence_floor must be in (0, 1], got %.2f", c.Rules.ConfidenceFloor)
	}
	if c.Rules.FastPathConfidence < c.Rules.ConfidenceFloor {
		return fmt.Errorf("rules.fast_path_confidence %.2f must not be below rules.confidence_floor %.2f",
			c.Rules.FastPathConfidence, c.Rules.ConfidenceFloor)
	}
	if c.Rules.HighValueAmount <= c.Rules.ModerateAmount {
		return fmt.Errorf("rules.high_value_amount %.2f must exceed rules.moderate_amount %.2f",
			c.Rules.HighValueAmount, c.Rules.ModerateAmount)
	}
	if c.Contradiction.VeryLowConfidence >= c.Contradiction.VeryHighConfidence {
		return fmt.Errorf("contradiction.very_low_confidence must be below very_high_confidence")
	}
	if c.Retrieval.MaxClauses <= 0 {
		return fmt.Errorf("retrieval.max_clauses must be positive")
	}
	return nil
}

// RuleConfig converts the loaded thresholds into the rule engine's config.
func (c *Config) RuleConfig() rules.Config {
	return rules.Config{
		ConfidenceFloor:    c.Rules.ConfidenceFloor,
		FastPathAmount:     c.Rules.FastPathAmount,
		FastPathConfidence: c.Rules.FastPathConfidence,
		ModerateAmount:     c.Rules.ModerateAmount,
		HighValueAmount:    c.Rules.HighValueAmount,
	}
}

// ContradictionConfig converts the loaded thresholds into the detector's config.
func (c *Config) ContradictionConfig() contradiction.Config {
	return contradiction.Config{
		VeryHighConfidence: c.Contradiction.VeryHighConfidence,
		VeryLowConfidence:  c.Contradiction.VeryLowConfidence,
	}
}
