// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package redaction detects and masks sensitive identifiers in claim text.
//
// Redaction is applied to the final explanation before it leaves the service.
// Detection (without redaction) runs on the inbound narrative purely for
// compliance logging; it emits counts, never the matched values, and it never
// blocks the pipeline.
package redaction

import (
	"strings"

	"github.com/AleutianAI/ClaimSentinel/services/guardrails/patterns"
)

// maskSuffixLen is how many trailing characters MaskIdentifier keeps visible.
const maskSuffixLen = 4

// narrativePlaceholder replaces the value portion of labeled health/identity
// phrases found by RedactNarrativeTerms.
const narrativePlaceholder = "[REDACTED]"

// Redactor masks sensitive data using the embedded identifier patterns.
// Safe for concurrent use after construction.
type Redactor struct {
	catalog *patterns.GuardrailPatternFile
}

// NewRedactor creates a Redactor over the given compiled pattern catalog.
func NewRedactor(catalog *patterns.GuardrailPatternFile) *Redactor {
	return &Redactor{catalog: catalog}
}

// DetectTypes counts sensitive-data matches per identifier category.
//
// The returned map contains only categories with at least one match. Matched
// values are never returned; this is the compliance-logging entry point and
// must not itself leak what it found.
func (r *Redactor) DetectTypes(text string) map[string]int {
	found := make(map[string]int)
	for i := range r.catalog.Redaction.Identifiers {
		p := &r.catalog.Redaction.Identifiers[i]
		if n := len(p.Compiled().FindAllString(text, -1)); n > 0 {
			found[p.Category] += n
		}
	}
	return found
}

// Redact replaces every identifier match in text with its category
// replacement. Patterns run in catalog order, so payment-card shapes are
// consumed before the shorter postal-code shape can eat part of them.
func (r *Redactor) Redact(text string) string {
	out := text
	for i := range r.catalog.Redaction.Identifiers {
		p := &r.catalog.Redaction.Identifiers[i]
		out = p.Compiled().ReplaceAllString(out, p.Replacement)
	}
	return out
}

// RedactNarrativeTerms masks the value portion of structured health/identity
// phrases ("diagnosis: ...", "patient name: ...", "prescription: ...").
//
// This pass is independent of Redact: it targets labeled free-text values
// that no identifier shape can catch.
func (r *Redactor) RedactNarrativeTerms(text string) string {
	out := text
	for i := range r.catalog.Redaction.NarrativeTerms {
		re := r.catalog.Redaction.NarrativeTerms[i].Compiled()
		out = re.ReplaceAllString(out, "${1}: "+narrativePlaceholder)
	}
	return out
}

// MaskIdentifier masks an identifier (policy number, member number) keeping
// a short trailing suffix for human correlation.
//
//	MaskIdentifier("POL-2024-889231") == "***********9231"
//
// Identifiers at or under the suffix length are masked entirely.
func MaskIdentifier(id string) string {
	if len(id) <= maskSuffixLen {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-maskSuffixLen) + id[len(id)-maskSuffixLen:]
}
