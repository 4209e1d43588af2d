// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"context"
	"testing"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

func TestAuditPropertiesToMap(t *testing.T) {
	props := AuditProperties{
		RequestID:       "req-1",
		PolicyID:        "POL-2024-1001",
		PolicyCategory:  "health",
		ClaimAmount:     450,
		Status:          "Covered",
		Explanation:     "grounded in cited clauses",
		Confidence:      0.95,
		Rationale:       "moderate-value approval",
		CitedClauses:    "HC-COV-001,HC-COV-007",
		RetrievedCount:  5,
		Contradictions:  0,
		ValidatedAtUnix: 1724700000,
	}

	m := props.ToMap()
	if m["request_id"] != "req-1" {
		t.Errorf("request_id = %v", m["request_id"])
	}
	if m["claim_amount"] != 450.0 {
		t.Errorf("claim_amount = %v", m["claim_amount"])
	}
	if m["cited_clauses"] != "HC-COV-001,HC-COV-007" {
		t.Errorf("cited_clauses = %v", m["cited_clauses"])
	}
	if m["retrieved_count"] != 5 {
		t.Errorf("retrieved_count = %v", m["retrieved_count"])
	}
	if len(m) != 12 {
		t.Errorf("map has %d keys, want 12", len(m))
	}
}

func TestNoopAuditSink(t *testing.T) {
	sink := NewNoopAuditSink()
	err := sink.Persist(context.Background(), datatypes.ClaimRequest{}, datatypes.ClaimDecision{}, nil)
	if err != nil {
		t.Errorf("Persist() error = %v", err)
	}
}
