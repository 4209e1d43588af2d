// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func validRequest() ClaimRequest {
	return ClaimRequest{
		PolicyID:       "POL-2024-1001",
		PolicyCategory: "health",
		ClaimAmount:    450,
		Narrative:      "Emergency room visit for a sprained ankle.",
	}
}

func TestEnsureDefaults(t *testing.T) {
	r := validRequest()
	r.EnsureDefaults()

	if _, err := uuid.Parse(r.RequestID); err != nil {
		t.Errorf("RequestID %q is not a UUID: %v", r.RequestID, err)
	}
	if r.Timestamp == 0 {
		t.Error("Timestamp should be populated")
	}

	// Caller-supplied values survive.
	fixed := ClaimRequest{RequestID: "11111111-2222-4333-8444-555555555555", Timestamp: 42}
	fixed.EnsureDefaults()
	if fixed.RequestID != "11111111-2222-4333-8444-555555555555" || fixed.Timestamp != 42 {
		t.Errorf("EnsureDefaults overwrote caller values: %+v", fixed)
	}
}

func TestClaimRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClaimRequest)
		wantErr string
	}{
		{"valid", func(r *ClaimRequest) {}, ""},
		{"missing policy id", func(r *ClaimRequest) { r.PolicyID = "" }, "PolicyID"},
		{"missing category", func(r *ClaimRequest) { r.PolicyCategory = "" }, "PolicyCategory"},
		{"zero amount", func(r *ClaimRequest) { r.ClaimAmount = 0 }, "ClaimAmount"},
		{"negative amount", func(r *ClaimRequest) { r.ClaimAmount = -5 }, "ClaimAmount"},
		{"missing narrative", func(r *ClaimRequest) { r.Narrative = "" }, "Narrative"},
		{"oversized narrative", func(r *ClaimRequest) { r.Narrative = strings.Repeat("a", MaxNarrativeBytes+1) }, "Narrative"},
		{"bad request id", func(r *ClaimRequest) { r.RequestID = "not-a-uuid" }, "RequestID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRequest()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should name field %s", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNarrativeByteLimitCountsBytes(t *testing.T) {
	// Multibyte runes: rune count is under the limit, byte count is over.
	r := validRequest()
	r.Narrative = strings.Repeat("é", MaxNarrativeBytes/2+1)
	if err := r.Validate(); err == nil {
		t.Error("byte-length limit should reject multibyte overflow")
	}
}

func TestDecisionStatusValid(t *testing.T) {
	for _, s := range []DecisionStatus{StatusCovered, StatusNotCovered, StatusManualReview} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []DecisionStatus{"", "Approved", "covered"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestDecisionFromRaw(t *testing.T) {
	raw := RawDecision{
		Status:           StatusCovered,
		Explanation:      "grounded",
		ClauseReferences: []string{"HC-COV-001"},
		Confidence:       0.9,
	}
	d := DecisionFromRaw(raw)
	if d.Status != raw.Status || d.Explanation != raw.Explanation || d.Confidence != raw.Confidence {
		t.Errorf("DecisionFromRaw lost fields: %+v", d)
	}
	if len(d.Contradictions) != 0 || d.ConfidenceRationale != "" {
		t.Errorf("fresh decision should carry no findings: %+v", d)
	}
}

func TestEscalateToReview_OneWay(t *testing.T) {
	d := ClaimDecision{Status: StatusCovered, Confidence: 0.9}

	once := d.EscalateToReview("first reason")
	if once.Status != StatusManualReview {
		t.Fatalf("Status = %s, want Manual Review", once.Status)
	}
	if once.ConfidenceRationale != "first reason" {
		t.Errorf("ConfidenceRationale = %q", once.ConfidenceRationale)
	}
	// Original is untouched.
	if d.Status != StatusCovered {
		t.Error("EscalateToReview mutated the receiver")
	}

	twice := once.EscalateToReview("second reason")
	if twice.Status != StatusManualReview {
		t.Error("escalation must be sticky")
	}
	if twice.ConfidenceRationale != "first reason; second reason" {
		t.Errorf("rationales must accumulate, got %q", twice.ConfidenceRationale)
	}
}

func TestWithHelpers_AppendWithoutMutation(t *testing.T) {
	d := ClaimDecision{
		Status:             StatusCovered,
		ValidationWarnings: []string{"w1"},
	}

	out := d.WithWarnings([]string{"w2"})
	if len(out.ValidationWarnings) != 2 {
		t.Errorf("warnings = %v", out.ValidationWarnings)
	}
	if len(d.ValidationWarnings) != 1 {
		t.Error("WithWarnings mutated the receiver")
	}

	out = d.WithContradictions([]Contradiction{{Description: "x", Severity: SeverityWarning}})
	if len(out.Contradictions) != 1 || len(d.Contradictions) != 0 {
		t.Errorf("WithContradictions wrong: out=%v receiver=%v", out.Contradictions, d.Contradictions)
	}

	out = d.WithMissingEvidence([]string{"hint"})
	if len(out.MissingEvidence) != 1 {
		t.Errorf("missing evidence = %v", out.MissingEvidence)
	}

	// Empty input is a no-op.
	if got := d.WithWarnings(nil); len(got.ValidationWarnings) != 1 {
		t.Errorf("nil warnings should be a no-op, got %v", got.ValidationWarnings)
	}
}

func TestWithRationale(t *testing.T) {
	d := ClaimDecision{}
	out := d.WithRationale("a").WithRationale("b").WithRationale("")
	if out.ConfidenceRationale != "a; b" {
		t.Errorf("ConfidenceRationale = %q, want %q", out.ConfidenceRationale, "a; b")
	}
}

func TestWithExplanation(t *testing.T) {
	d := ClaimDecision{Explanation: "raw text with identifiers"}
	out := d.WithExplanation("redacted text")
	if out.Explanation != "redacted text" {
		t.Errorf("Explanation = %q", out.Explanation)
	}
	if d.Explanation != "raw text with identifiers" {
		t.Error("WithExplanation mutated the receiver")
	}
}

func TestClauseIDs(t *testing.T) {
	clauses := []PolicyClause{
		{ClauseID: "A-1"},
		{ClauseID: "B-2"},
	}
	ids := ClauseIDs(clauses)
	if len(ids) != 2 || ids[0] != "A-1" || ids[1] != "B-2" {
		t.Errorf("ClauseIDs = %v", ids)
	}
	if got := ClauseIDs(nil); len(got) != 0 {
		t.Errorf("ClauseIDs(nil) = %v", got)
	}
}

func TestValidationResult(t *testing.T) {
	r := NewValidationResult()
	if !r.Valid {
		t.Error("fresh result should be valid")
	}
	r.AddWarning("advisory %d", 1)
	if !r.Valid || len(r.Warnings) != 1 {
		t.Errorf("warnings must not invalidate: %+v", r)
	}
	r.AddError("blocking %s", "finding")
	if r.Valid || len(r.Errors) != 1 {
		t.Errorf("errors must invalidate: %+v", r)
	}
}
