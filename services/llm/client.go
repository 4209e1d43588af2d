// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm adapts generative model backends to the claims pipeline.
//
// The pipeline never trusts what comes out of this package: every
// RawDecision is screened by the guardrail stages before anything derived
// from it reaches a caller.
package llm

import (
	"context"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

// DecisionGenerator defines the standard interface for any decision backend.
//
// Implementations must be safe for concurrent use and must honor context
// cancellation; the orchestrator passes its caller's deadline through.
type DecisionGenerator interface {
	// GenerateDecision proposes a coverage decision for the claim grounded
	// in the retrieved clauses.
	GenerateDecision(ctx context.Context, request datatypes.ClaimRequest,
		clauses []datatypes.PolicyClause) (datatypes.RawDecision, error)

	// GenerateDecisionWithEvidence additionally supplies extracted
	// supporting-document text for the model to weigh.
	GenerateDecisionWithEvidence(ctx context.Context, request datatypes.ClaimRequest,
		clauses []datatypes.PolicyClause, supportingTexts []string) (datatypes.RawDecision, error)
}
