// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package screening scans free-text claim narratives for adversarial patterns
// before any external call is made.
//
// This is the single most important cost- and safety-control point in the
// claims pipeline: it is the only gate that runs before paid retrieval and
// generation calls. A narrative that trips the screener is rejected outright;
// the orchestrator never reaches the external services for it.
package screening

import (
	"strings"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/patterns"
)

// Screener checks narratives against the embedded adversarial pattern
// families. Safe for concurrent use after construction; all regexes are
// compiled once at load.
type Screener struct {
	catalog *patterns.GuardrailPatternFile
}

// NewScreener creates a Screener over the given pattern catalog.
//
// The catalog must already be compiled (patterns.Load does this).
func NewScreener(catalog *patterns.GuardrailPatternFile) *Screener {
	return &Screener{catalog: catalog}
}

// Screen scans a narrative for adversarial patterns.
//
// # Description
//
// Two pattern families are checked:
//
//  1. Direct-override phrases ("ignore previous instructions", "disregard
//     the above"). Any match is a blocking error on its own.
//  2. Role-hijack phrases ("you are now", "act as"). These only count as a
//     threat when they co-occur with an override phrase; on their own they
//     are too common in legitimate loss narratives to block on.
//
// # Outputs
//
//   - datatypes.ValidationResult: Valid=false with one error per detected
//     threat when the narrative must be rejected. Callers must not proceed
//     to retrieval or generation on an invalid result.
func (s *Screener) Screen(narrative string) datatypes.ValidationResult {
	result := datatypes.NewValidationResult()

	overrideHits := matchAll(s.catalog.Screening.Override, narrative)
	for _, p := range overrideHits {
		result.AddError("adversarial input detected: %s (%s)", p.Description, p.Id)
	}

	// Role-hijack language alone is not a threat; combined with an override
	// phrase it almost always is.
	if len(overrideHits) > 0 {
		for _, p := range matchAll(s.catalog.Screening.RoleHijack, narrative) {
			result.AddError("adversarial input detected: %s (%s)", p.Description, p.Id)
		}
	}

	return result
}

// Sanitize strips matched adversarial spans from the narrative so it can be
// logged defensively. Sanitize never blocks; it exists so diagnostic logs do
// not re-carry injection payloads verbatim.
func (s *Screener) Sanitize(narrative string) string {
	out := narrative
	for i := range s.catalog.Screening.Override {
		out = s.catalog.Screening.Override[i].Compiled().ReplaceAllString(out, "[removed]")
	}
	for i := range s.catalog.Screening.RoleHijack {
		out = s.catalog.Screening.RoleHijack[i].Compiled().ReplaceAllString(out, "[removed]")
	}
	return strings.Join(strings.Fields(out), " ")
}

func matchAll(family []patterns.Pattern, text string) []patterns.Pattern {
	var hits []patterns.Pattern
	for i := range family {
		if family[i].Compiled().MatchString(text) {
			hits = append(hits, family[i])
		}
	}
	return hits
}
