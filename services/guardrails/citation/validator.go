// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package citation validates that a generated decision's cited evidence
// actually exists in the retrieved evidence set.
//
// This is the core anti-hallucination check: the generation step has no way
// to fabricate a clause identifier that collides with a real one unless it
// copied it correctly from the retrieved clauses. A citation naming a clause
// that was never retrieved is therefore treated as fabricated evidence.
package citation

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

// highCitationCount is the citation count considered unusual when the
// explanation simultaneously hedges. Many citations plus hedged language is
// a known hallucination smell: the model papers over uncertainty with volume.
const highCitationCount = 4

// hedgeRe matches hedging language in decision explanations.
var hedgeRe = regexp.MustCompile(`(?i)\b(might|may\s+be|possibly|perhaps|unclear|uncertain|appears?\s+to|seems?\s+to|cannot\s+determine|not\s+sure)\b`)

// assertiveRe matches strongly assertive language.
var assertiveRe = regexp.MustCompile(`(?i)\b(clearly|definitely|certainly|unambiguously|without\s+(a\s+)?doubt|explicitly\s+states)\b`)

// Validator checks generated decisions against retrieved evidence.
// Stateless and safe for concurrent use.
type Validator struct{}

// NewValidator creates a citation Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the decision's citations against the retrieved clause set.
//
// # Rules
//
//   - A Covered status with an empty citation list is a blocking error: a
//     coverage decision must be grounded in at least one clause.
//   - Every citation must name a clause present in availableClauses. Any
//     citation to a clause never retrieved is a blocking error.
//   - Heuristic hallucination indicators in the explanation (hedging with an
//     unusually high citation count, or assertive language with none)
//     produce non-blocking warnings.
//
// On a blocking failure the orchestrator must not keep the original status:
// it forces Manual Review, surfaces the errors as the explanation, and
// discards confidence.
func (v *Validator) Validate(decision datatypes.RawDecision, availableClauses []datatypes.PolicyClause) datatypes.ValidationResult {
	result := datatypes.NewValidationResult()

	if decision.Status == datatypes.StatusCovered && len(decision.ClauseReferences) == 0 {
		result.AddError("decision implies coverage but cites no policy clauses")
	}

	known := make(map[string]bool, len(availableClauses))
	for _, c := range availableClauses {
		known[c.ClauseID] = true
	}
	for _, ref := range decision.ClauseReferences {
		if !known[strings.TrimSpace(ref)] {
			result.AddError("cited clause %q was not in the retrieved evidence set", ref)
		}
	}

	v.checkHallucinationIndicators(decision, &result)
	return result
}

// checkHallucinationIndicators adds advisory warnings for explanation shapes
// that correlate with ungrounded output without proving it.
func (v *Validator) checkHallucinationIndicators(decision datatypes.RawDecision, result *datatypes.ValidationResult) {
	hedged := hedgeRe.MatchString(decision.Explanation)
	assertive := assertiveRe.MatchString(decision.Explanation)

	if hedged && len(decision.ClauseReferences) >= highCitationCount {
		result.AddWarning("explanation hedges while citing %d clauses; citations may be padding",
			len(decision.ClauseReferences))
	}
	if assertive && len(decision.ClauseReferences) == 0 {
		result.AddWarning("explanation is strongly assertive but cites no clauses")
	}
}
