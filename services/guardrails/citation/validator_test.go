// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package citation

import (
	"strings"
	"testing"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

func testClauses() []datatypes.PolicyClause {
	return []datatypes.PolicyClause{
		{ClauseID: "HC-COV-001", Text: "Emergency room visits are covered.", Category: "health"},
		{ClauseID: "HC-COV-007", Text: "Prescription costs are covered up to $2,000 annually.", Category: "health"},
		{ClauseID: "HC-EXCL-014", Text: "Cosmetic procedures are excluded from coverage.", Category: "health"},
	}
}

func TestValidate_GroundedDecisionPasses(t *testing.T) {
	v := NewValidator()
	decision := datatypes.RawDecision{
		Status:           datatypes.StatusCovered,
		Explanation:      "The emergency room visit falls under clause HC-COV-001.",
		ClauseReferences: []string{"HC-COV-001"},
		Confidence:       0.92,
	}

	result := v.Validate(decision, testClauses())
	if !result.Valid {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got: %v", result.Warnings)
	}
}

func TestValidate_CoveredWithoutCitationsFails(t *testing.T) {
	v := NewValidator()
	decision := datatypes.RawDecision{
		Status:      datatypes.StatusCovered,
		Explanation: "The claim is covered.",
		Confidence:  0.95,
	}

	result := v.Validate(decision, testClauses())
	if result.Valid {
		t.Fatal("Covered with no citations must be a blocking error")
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", result.Errors)
	}
}

func TestValidate_UnknownCitationFails(t *testing.T) {
	v := NewValidator()
	decision := datatypes.RawDecision{
		Status:           datatypes.StatusCovered,
		Explanation:      "Covered per HC-COV-001 and HC-COV-099.",
		ClauseReferences: []string{"HC-COV-001", "HC-COV-099"},
		Confidence:       0.90,
	}

	result := v.Validate(decision, testClauses())
	if result.Valid {
		t.Fatal("citation of a never-retrieved clause must be a blocking error")
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "HC-COV-099") {
			found = true
		}
	}
	if !found {
		t.Errorf("error should name the fabricated clause, got: %v", result.Errors)
	}
}

func TestValidate_NotCoveredWithoutCitationsPasses(t *testing.T) {
	v := NewValidator()
	decision := datatypes.RawDecision{
		Status:      datatypes.StatusNotCovered,
		Explanation: "No applicable coverage was found for this loss type.",
		Confidence:  0.80,
	}

	// Only a Covered status requires grounding; a denial with no citations
	// is weak but not fabricated.
	result := v.Validate(decision, testClauses())
	if !result.Valid {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
}

func TestValidate_HedgingWithManyCitationsWarns(t *testing.T) {
	v := NewValidator()
	decision := datatypes.RawDecision{
		Status:      datatypes.StatusCovered,
		Explanation: "This might be covered, though the clause language is unclear.",
		ClauseReferences: []string{
			"HC-COV-001", "HC-COV-007", "HC-EXCL-014", "HC-COV-001",
		},
		Confidence: 0.70,
	}

	result := v.Validate(decision, testClauses())
	if !result.Valid {
		t.Fatalf("hedging is advisory, not blocking: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a hedging warning")
	}
}

func TestValidate_AssertiveWithoutCitationsWarns(t *testing.T) {
	v := NewValidator()
	decision := datatypes.RawDecision{
		Status:      datatypes.StatusNotCovered,
		Explanation: "The policy clearly excludes this loss without a doubt.",
		Confidence:  0.85,
	}

	result := v.Validate(decision, testClauses())
	if !result.Valid {
		t.Fatalf("assertive language is advisory, not blocking: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected an assertiveness warning")
	}
}

func TestValidate_WhitespaceInCitationTolerated(t *testing.T) {
	v := NewValidator()
	decision := datatypes.RawDecision{
		Status:           datatypes.StatusCovered,
		Explanation:      "Covered per the cited clause.",
		ClauseReferences: []string{" HC-COV-001 "},
		Confidence:       0.9,
	}

	result := v.Validate(decision, testClauses())
	if !result.Valid {
		t.Errorf("whitespace-padded citation should match, got errors: %v", result.Errors)
	}
}
