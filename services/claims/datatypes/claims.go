// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the claims service.
//
// This file contains the claim validation pipeline types: the inbound
// ClaimRequest, retrieved PolicyClause evidence, the generator's RawDecision,
// and the final ClaimDecision returned across the service boundary.
package datatypes

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxNarrativeBytes is the maximum size of a claim narrative.
	// Oversized narratives are rejected before any external call.
	MaxNarrativeBytes = 32 * 1024 // 32KB

	// MaxSupportingDocuments is the maximum number of supporting document
	// references accepted on a single validation request.
	MaxSupportingDocuments = 20
)

// =============================================================================
// Decision Status
// =============================================================================

// DecisionStatus is the routing outcome of a claim decision.
//
// Status may only move toward ManualReview. Once a pipeline stage escalates
// a decision to ManualReview, no later stage may return it to Covered or
// NotCovered.
type DecisionStatus string

const (
	// StatusCovered means the claim is approved for automated routing.
	StatusCovered DecisionStatus = "Covered"

	// StatusNotCovered means the claim is denied for automated routing.
	StatusNotCovered DecisionStatus = "Not Covered"

	// StatusManualReview is the escalation terminal state. The claim is
	// routed to a human decision-maker instead of an automated one.
	StatusManualReview DecisionStatus = "Manual Review"
)

// Valid reports whether s is one of the three known statuses.
func (s DecisionStatus) Valid() bool {
	switch s {
	case StatusCovered, StatusNotCovered, StatusManualReview:
		return true
	}
	return false
}

// =============================================================================
// Shared Validator Instance
// =============================================================================

// claimValidate is the validator instance for claim datatypes.
var claimValidate *validator.Validate

func init() {
	claimValidate = validator.New()
	_ = claimValidate.RegisterValidation("maxbytes", validateNarrativeBytes)
}

// validateNarrativeBytes checks byte length (not rune count) so oversized
// payloads cannot exhaust memory downstream.
func validateNarrativeBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxNarrativeBytes
}

// =============================================================================
// ClaimRequest
// =============================================================================

// ClaimRequest represents one inbound claim validation request.
//
// # Description
//
// ClaimRequest is immutable once created: the pipeline never mutates it,
// only reads from it. Every request carries a unique ID and timestamp for
// audit correlation.
//
// # Fields
//
//   - RequestID: Unique identifier (UUID v4) populated by EnsureDefaults.
//   - Timestamp: Unix milliseconds (UTC) when the request was created.
//   - PolicyID: The policy the claim is filed against.
//   - PolicyCategory: Coverage category used to scope clause retrieval
//     (e.g. "health", "auto", "property").
//   - ClaimAmount: Claimed amount; must be a positive decimal.
//   - Narrative: Free-text description of the loss event. Screened for
//     adversarial patterns before any external call is made.
type ClaimRequest struct {
	RequestID      string  `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp      int64   `json:"timestamp"`
	PolicyID       string  `json:"policy_id" validate:"required"`
	PolicyCategory string  `json:"policy_category" validate:"required"`
	ClaimAmount    float64 `json:"claim_amount" validate:"required,gt=0"`
	Narrative      string  `json:"narrative" validate:"required,maxbytes"`
}

// EnsureDefaults populates RequestID and Timestamp when the caller omitted them.
func (r *ClaimRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// Validate validates the ClaimRequest fields.
//
// Returns a descriptive error for the first failing field, or nil if the
// request is well-formed. Call after binding JSON and EnsureDefaults.
func (r *ClaimRequest) Validate() error {
	if err := claimValidate.Struct(r); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid claim request: field %s failed %s validation",
				first.Field(), first.Tag())
		}
		return fmt.Errorf("invalid claim request: %w", err)
	}
	return nil
}

// =============================================================================
// PolicyClause
// =============================================================================

// PolicyClause is one unit of retrieved policy evidence.
//
// Clauses are owned by the retrieval step for the lifetime of one validation
// call and are never mutated by the pipeline.
type PolicyClause struct {
	// ClauseID is the stable clause identifier (e.g. "HC-EXCL-014").
	ClauseID string `json:"clause_id"`

	// Text is the full clause text as retrieved.
	Text string `json:"text"`

	// Category is the coverage category the clause belongs to.
	Category string `json:"category"`

	// RelevanceScore is the retrieval relevance score, higher is better.
	RelevanceScore float64 `json:"relevance_score"`
}

// ClauseIDs returns the identifiers of the given clauses, in order.
func ClauseIDs(clauses []PolicyClause) []string {
	ids := make([]string, 0, len(clauses))
	for _, c := range clauses {
		ids = append(ids, c.ClauseID)
	}
	return ids
}

// =============================================================================
// RawDecision
// =============================================================================

// RawDecision is the generative model's proposed decision, before any
// guardrail has looked at it.
//
// Produced once per call by the external generation step; never mutated,
// only wrapped into a ClaimDecision.
type RawDecision struct {
	// Status is the proposed routing status.
	Status DecisionStatus `json:"status"`

	// Explanation is the model's free-text reasoning.
	Explanation string `json:"explanation"`

	// ClauseReferences lists the clause identifiers the model cites as
	// evidence. Every entry must name a clause actually retrieved.
	ClauseReferences []string `json:"clause_references"`

	// RequiredDocuments lists follow-up documents the model asks for.
	RequiredDocuments []string `json:"required_documents"`

	// Confidence is the model's self-reported confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// =============================================================================
// ValidationResult
// =============================================================================

// ValidationResult is the outcome of a single guardrail check.
//
// Errors are blocking: the caller must not proceed with the checked value.
// Warnings are advisory and are carried onto the final decision.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError records a blocking error and marks the result invalid.
func (v *ValidationResult) AddError(format string, args ...any) {
	v.Valid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// AddWarning records a non-blocking warning.
func (v *ValidationResult) AddWarning(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// NewValidationResult returns a passing result with no findings.
func NewValidationResult() ValidationResult {
	return ValidationResult{Valid: true}
}

// =============================================================================
// Contradiction
// =============================================================================

// ContradictionSeverity classifies how serious a contradiction finding is.
type ContradictionSeverity string

const (
	// SeverityCritical forces escalation to manual review.
	SeverityCritical ContradictionSeverity = "Critical"

	// SeverityWarning is attached to the decision without changing status.
	SeverityWarning ContradictionSeverity = "Warning"
)

// Contradiction is one cross-field inconsistency found between the decision,
// its citations, the claim, or supporting-document text.
type Contradiction struct {
	// SourceA and SourceB label the two sides of the conflict
	// (e.g. "decision status" vs "cited clause HC-EXCL-014").
	SourceA string `json:"source_a"`
	SourceB string `json:"source_b"`

	// Description is a human-readable account of the conflict.
	Description string `json:"description"`

	// Severity is Critical or Warning.
	Severity ContradictionSeverity `json:"severity"`

	// Impact notes what the conflict means for routing.
	Impact string `json:"impact"`
}

// =============================================================================
// ClaimDecision
// =============================================================================

// ClaimDecision is the final decision returned across the service boundary.
//
// # Description
//
// ClaimDecision is built by progressively layering guardrail findings onto a
// RawDecision. It is append-only: no field set by an earlier stage is
// overwritten by a later one, with the single exception of Status, which may
// be escalated to Manual Review but never downgraded from it. Stages derive
// new values instead of mutating shared state, so a decision value can be
// handed between stages without coordination.
//
// # Fields
//
//   - RawDecision fields: Status, Explanation, ClauseReferences,
//     RequiredDocuments, Confidence.
//   - Contradictions: severity-tagged cross-field findings.
//   - MissingEvidence: hints about evidence that would raise confidence.
//   - ValidationWarnings: non-blocking guardrail warnings.
//   - ConfidenceRationale: the routing rationale produced by the rule engine.
type ClaimDecision struct {
	Status              DecisionStatus  `json:"status"`
	Explanation         string          `json:"explanation"`
	ClauseReferences    []string        `json:"clause_references"`
	RequiredDocuments   []string        `json:"required_documents,omitempty"`
	Confidence          float64         `json:"confidence"`
	Contradictions      []Contradiction `json:"contradictions,omitempty"`
	MissingEvidence     []string        `json:"missing_evidence,omitempty"`
	ValidationWarnings  []string        `json:"validation_warnings,omitempty"`
	ConfidenceRationale string          `json:"confidence_rationale,omitempty"`
}

// DecisionFromRaw wraps a RawDecision into a ClaimDecision with no findings.
func DecisionFromRaw(raw RawDecision) ClaimDecision {
	return ClaimDecision{
		Status:            raw.Status,
		Explanation:       raw.Explanation,
		ClauseReferences:  raw.ClauseReferences,
		RequiredDocuments: raw.RequiredDocuments,
		Confidence:        raw.Confidence,
	}
}

// EscalateToReview returns a copy of d with Status raised to Manual Review.
//
// The status transition is one-way: once a decision is in Manual Review it
// stays there regardless of what later stages conclude. The rationale is
// appended, not overwritten, so every escalation reason survives.
func (d ClaimDecision) EscalateToReview(rationale string) ClaimDecision {
	out := d
	out.Status = StatusManualReview
	out.ConfidenceRationale = appendRationale(d.ConfidenceRationale, rationale)
	return out
}

// WithContradictions returns a copy of d with the findings appended.
func (d ClaimDecision) WithContradictions(findings []Contradiction) ClaimDecision {
	if len(findings) == 0 {
		return d
	}
	out := d
	out.Contradictions = append(append([]Contradiction{}, d.Contradictions...), findings...)
	return out
}

// WithWarnings returns a copy of d with the warnings appended.
func (d ClaimDecision) WithWarnings(warnings []string) ClaimDecision {
	if len(warnings) == 0 {
		return d
	}
	out := d
	out.ValidationWarnings = append(append([]string{}, d.ValidationWarnings...), warnings...)
	return out
}

// WithMissingEvidence returns a copy of d with the hints appended.
func (d ClaimDecision) WithMissingEvidence(hints []string) ClaimDecision {
	if len(hints) == 0 {
		return d
	}
	out := d
	out.MissingEvidence = append(append([]string{}, d.MissingEvidence...), hints...)
	return out
}

// WithRationale returns a copy of d with the rationale appended.
func (d ClaimDecision) WithRationale(rationale string) ClaimDecision {
	out := d
	out.ConfidenceRationale = appendRationale(d.ConfidenceRationale, rationale)
	return out
}

// WithExplanation returns a copy of d with Explanation replaced.
//
// Used only by the redaction stage, which must be able to rewrite the
// explanation text before it leaves the service.
func (d ClaimDecision) WithExplanation(explanation string) ClaimDecision {
	out := d
	out.Explanation = explanation
	return out
}

func appendRationale(existing, next string) string {
	if next == "" {
		return existing
	}
	if existing == "" {
		return next
	}
	return existing + "; " + next
}
