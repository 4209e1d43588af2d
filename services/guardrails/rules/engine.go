// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules maps confidence, claim value, and exclusion ambiguity to a
// final routing decision. This is the only guardrail component that carries
// claim-domain policy logic; everything upstream of it is evidence checking.
//
// The rule table is deterministic and side-effect-free so it can be
// unit-tested exhaustively over the confidence x amount x status x documents
// grid. Applying the engine to its own output is a no-op.
package rules

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/contradiction"
)

// Config holds the routing thresholds. These are business policy, loaded
// from configuration at startup rather than hard-coded.
type Config struct {
	// ConfidenceFloor is the minimum confidence for any automated routing.
	ConfidenceFloor float64

	// FastPathAmount and FastPathConfidence gate the low-value fast path.
	FastPathAmount     float64
	FastPathConfidence float64

	// ModerateAmount is the ceiling for standard-confidence auto-approval.
	ModerateAmount float64

	// HighValueAmount forces manual review regardless of confidence.
	HighValueAmount float64
}

// DefaultConfig returns the default routing thresholds.
func DefaultConfig() Config {
	return Config{
		ConfidenceFloor:    0.85,
		FastPathAmount:     500,
		FastPathConfidence: 0.90,
		ModerateAmount:     1000,
		HighValueAmount:    5000,
	}
}

// Engine applies the routing rule table.
// Stateless after construction; safe for concurrent use.
type Engine struct {
	config Config
}

// NewEngine creates an Engine with the given thresholds.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Apply evaluates the rule table against the decision, first match wins.
//
// # Rule order
//
//  1. Confidence below the floor routes to Manual Review with
//     missing-evidence hints.
//  2. Low-value fast path: small amount, high confidence, Covered, and
//     supporting documents present keeps Covered.
//  3. Moderate-value approval: amount under the moderate ceiling with
//     floor confidence keeps Covered.
//  4. High-value claims force Manual Review regardless of confidence.
//  5. Exclusion language in any cited clause downgrades a Covered decision
//     to Manual Review; any other status is kept but the ambiguity is
//     noted in the rationale.
//  6. Default: the decision passes through unchanged.
//
// citedClauses are the retrieved clauses actually referenced by the
// decision; rule 5 inspects their text for exclusion markers.
//
// Apply is idempotent: every rationale note and evidence hint is recorded
// at most once, so re-applying the engine to its own output changes nothing.
func (e *Engine) Apply(
	decision datatypes.ClaimDecision,
	request datatypes.ClaimRequest,
	citedClauses []datatypes.PolicyClause,
	hasSupportingDocuments bool,
) datatypes.ClaimDecision {
	// Rule 1: confidence floor.
	if decision.Confidence < e.config.ConfidenceFloor {
		out := escalateOnce(decision, fmt.Sprintf(
			"confidence %.2f is below the %.2f automation floor", decision.Confidence, e.config.ConfidenceFloor))
		out = hintOnce(out, "additional supporting documents would raise decision confidence")
		out = hintOnce(out, "additional policy clause citations would raise decision confidence")
		return out
	}

	// Rule 2: low-value fast path.
	if request.ClaimAmount < e.config.FastPathAmount &&
		decision.Confidence >= e.config.FastPathConfidence &&
		decision.Status == datatypes.StatusCovered &&
		hasSupportingDocuments {
		return noteOnce(decision, fmt.Sprintf(
			"low-value fast path: amount %.2f under %.2f with documented evidence", request.ClaimAmount, e.config.FastPathAmount))
	}

	// Rule 3: moderate-value approval.
	if request.ClaimAmount < e.config.ModerateAmount &&
		decision.Confidence >= e.config.ConfidenceFloor &&
		decision.Status == datatypes.StatusCovered {
		return noteOnce(decision, fmt.Sprintf(
			"moderate-value approval: amount %.2f under %.2f", request.ClaimAmount, e.config.ModerateAmount))
	}

	// Rule 4: high-value mandatory review.
	if request.ClaimAmount > e.config.HighValueAmount &&
		decision.Status == datatypes.StatusCovered {
		return escalateOnce(decision, fmt.Sprintf(
			"high-value claim: amount %.2f above %.2f requires human review", request.ClaimAmount, e.config.HighValueAmount))
	}

	// Rule 5: exclusion ambiguity in cited clause text.
	if excluded := exclusionClauseIDs(citedClauses); len(excluded) > 0 {
		note := fmt.Sprintf("cited clause(s) %s contain exclusion language", strings.Join(excluded, ", "))
		if decision.Status == datatypes.StatusCovered {
			return escalateOnce(decision, note)
		}
		return noteOnce(decision, note)
	}

	// Rule 6: default pass-through.
	return decision
}

func exclusionClauseIDs(clauses []datatypes.PolicyClause) []string {
	var ids []string
	for _, c := range clauses {
		if contradiction.IsExclusionClause(c.Text) {
			ids = append(ids, c.ClauseID)
		}
	}
	return ids
}

// escalateOnce escalates to Manual Review, recording the rationale only if
// it is not already present. The containment check is what makes Apply a
// stable fixed point.
func escalateOnce(d datatypes.ClaimDecision, rationale string) datatypes.ClaimDecision {
	if strings.Contains(d.ConfidenceRationale, rationale) {
		out := d
		out.Status = datatypes.StatusManualReview
		return out
	}
	return d.EscalateToReview(rationale)
}

func noteOnce(d datatypes.ClaimDecision, rationale string) datatypes.ClaimDecision {
	if strings.Contains(d.ConfidenceRationale, rationale) {
		return d
	}
	return d.WithRationale(rationale)
}

func hintOnce(d datatypes.ClaimDecision, hint string) datatypes.ClaimDecision {
	for _, h := range d.MissingEvidence {
		if h == hint {
			return d
		}
	}
	return d.WithMissingEvidence([]string{hint})
}
