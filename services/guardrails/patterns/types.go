// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patterns defines the guardrail pattern catalog shared by the input
// screener and the sensitive-data redactor. Patterns are authored in YAML,
// embedded into the binary, and compiled exactly once at load.
package patterns

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// GuardrailPatternFile is the root of the embedded pattern catalog.
type GuardrailPatternFile struct {
	Screening ScreeningSection `yaml:"screening"`
	Redaction RedactionSection `yaml:"redaction"`
}

// ScreeningSection holds the adversarial-input pattern families.
//
// Override patterns block on their own. RoleHijack patterns only count as a
// threat when they co-occur with an override pattern, to avoid false
// positives on legitimate narratives that happen to contain role language
// ("the driver had to act as a lookout").
type ScreeningSection struct {
	Override   []Pattern `yaml:"override"`
	RoleHijack []Pattern `yaml:"role_hijack"`
}

// RedactionSection holds the sensitive-data pattern families.
type RedactionSection struct {
	// Identifiers are matched and replaced in order of declaration. Order
	// matters: longer digit shapes (payment cards) must run before shorter
	// ones (postal codes) or the shorter pattern eats part of the longer run.
	Identifiers []IdentifierPattern `yaml:"identifiers"`

	// NarrativeTerms are labeled health/identity phrases ("diagnosis:",
	// "patient name:") whose value portion is replaced with a fixed
	// placeholder, independent of the identifier patterns above.
	NarrativeTerms []Pattern `yaml:"narrative_terms"`
}

// Pattern is one named regex in the catalog.
type Pattern struct {
	Id          string `yaml:"id"`
	Description string `yaml:"description"`
	Regex       string `yaml:"regex"`

	compiled *regexp.Regexp
}

// Compiled returns the compiled regex. Compile must have been called on the
// owning file first; Load does this for the embedded catalog.
func (p *Pattern) Compiled() *regexp.Regexp {
	return p.compiled
}

// IdentifierPattern is a redaction pattern with its replacement text.
type IdentifierPattern struct {
	// Category names the identifier family ("payment_card", "email", ...).
	Category string `yaml:"category"`

	Description string `yaml:"description"`
	Regex       string `yaml:"regex"`

	// Replacement is the substitution text. It may reference capture groups
	// (${1}) for categories that keep a prefix, like postal codes.
	Replacement string `yaml:"replacement"`

	compiled *regexp.Regexp
}

// Compiled returns the compiled regex for the identifier pattern.
func (p *IdentifierPattern) Compiled() *regexp.Regexp {
	return p.compiled
}

// Compile compiles every regex in the file. Returns the first compile error
// with the offending pattern id so a bad catalog fails loudly at startup.
func (f *GuardrailPatternFile) Compile() error {
	for i := range f.Screening.Override {
		if err := compilePattern(&f.Screening.Override[i]); err != nil {
			return err
		}
	}
	for i := range f.Screening.RoleHijack {
		if err := compilePattern(&f.Screening.RoleHijack[i]); err != nil {
			return err
		}
	}
	for i := range f.Redaction.Identifiers {
		p := &f.Redaction.Identifiers[i]
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return fmt.Errorf("failed to compile redaction pattern %s: %w", p.Category, err)
		}
		p.compiled = re
	}
	for i := range f.Redaction.NarrativeTerms {
		if err := compilePattern(&f.Redaction.NarrativeTerms[i]); err != nil {
			return err
		}
	}
	return nil
}

func compilePattern(p *Pattern) error {
	re, err := regexp.Compile(p.Regex)
	if err != nil {
		return fmt.Errorf("failed to compile pattern %s: %w", p.Id, err)
	}
	p.compiled = re
	return nil
}

// Load parses and compiles the embedded pattern catalog.
//
// Returns an error if the embedded YAML is malformed or contains an invalid
// regex. Callers load once at process start and share the result; the file
// is read-only after Compile.
func Load() (*GuardrailPatternFile, error) {
	var file GuardrailPatternFile
	if err := yaml.Unmarshal(GuardrailPatterns, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded pattern file: %w", err)
	}
	if err := file.Compile(); err != nil {
		return nil, err
	}
	return &file, nil
}
