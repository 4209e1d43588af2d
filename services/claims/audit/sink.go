// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit persists adjudication records for compliance review.
//
// Audit writes are fire-and-forget from the pipeline's perspective: a failed
// write is logged and surfaced to metrics but never changes the decision
// returned to the caller.
package audit

import (
	"context"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

// ClaimAuditClass is the Weaviate class that stores adjudication records.
const ClaimAuditClass = "ClaimAudit"

// AuditSink receives the final record of every claim validation.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
//
// # Error Handling
//
// Sink errors must not block adjudication. Callers log errors but never fail
// the validation because of them.
type AuditSink interface {
	// Persist stores the final decision together with the evidence it was
	// based on. The decision passed here is post-redaction; raw narrative
	// text never reaches the audit store.
	Persist(ctx context.Context, request datatypes.ClaimRequest, decision datatypes.ClaimDecision,
		clauses []datatypes.PolicyClause) error
}

// =============================================================================
// Weaviate Implementation
// =============================================================================

// AuditProperties is the property set written to the ClaimAudit class.
type AuditProperties struct {
	RequestID       string  `json:"request_id"`
	PolicyID        string  `json:"policy_id"`
	PolicyCategory  string  `json:"policy_category"`
	ClaimAmount     float64 `json:"claim_amount"`
	Status          string  `json:"status"`
	Explanation     string  `json:"explanation"`
	Confidence      float64 `json:"confidence"`
	Rationale       string  `json:"rationale"`
	CitedClauses    string  `json:"cited_clauses"`
	RetrievedCount  int     `json:"retrieved_count"`
	Contradictions  int     `json:"contradictions"`
	ValidatedAtUnix int64   `json:"validated_at"`
}

// ToMap converts AuditProperties to the map format Weaviate's
// WithProperties() method requires.
func (p *AuditProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"request_id":      p.RequestID,
		"policy_id":       p.PolicyID,
		"policy_category": p.PolicyCategory,
		"claim_amount":    p.ClaimAmount,
		"status":          p.Status,
		"explanation":     p.Explanation,
		"confidence":      p.Confidence,
		"rationale":       p.Rationale,
		"cited_clauses":   p.CitedClauses,
		"retrieved_count": p.RetrievedCount,
		"contradictions":  p.Contradictions,
		"validated_at":    p.ValidatedAtUnix,
	}
}

// WeaviateAuditSink implements AuditSink over a Weaviate ClaimAudit class.
//
// # Thread Safety
//
// Safe for concurrent use. The underlying client handles connection pooling.
type WeaviateAuditSink struct {
	client *weaviate.Client
}

var _ AuditSink = (*WeaviateAuditSink)(nil)

// NewWeaviateAuditSink creates a sink over the given client.
func NewWeaviateAuditSink(client *weaviate.Client) *WeaviateAuditSink {
	return &WeaviateAuditSink{client: client}
}

// Persist implements AuditSink.
func (s *WeaviateAuditSink) Persist(ctx context.Context, request datatypes.ClaimRequest,
	decision datatypes.ClaimDecision, clauses []datatypes.PolicyClause) error {

	props := AuditProperties{
		RequestID:       request.RequestID,
		PolicyID:        request.PolicyID,
		PolicyCategory:  request.PolicyCategory,
		ClaimAmount:     request.ClaimAmount,
		Status:          string(decision.Status),
		Explanation:     decision.Explanation,
		Confidence:      decision.Confidence,
		Rationale:       decision.ConfidenceRationale,
		CitedClauses:    strings.Join(decision.ClauseReferences, ","),
		RetrievedCount:  len(clauses),
		Contradictions:  len(decision.Contradictions),
		ValidatedAtUnix: time.Now().Unix(),
	}

	_, err := s.client.Data().Creator().
		WithClassName(ClaimAuditClass).
		WithProperties(props.ToMap()).
		Do(ctx)
	return err
}

// =============================================================================
// Default No-op Implementation
// =============================================================================

// noopAuditSink discards audit records.
//
// Used in lightweight mode, where no Weaviate instance is available and the
// structured log stream is the only record of adjudications.
type noopAuditSink struct{}

// Persist is a no-op.
func (n *noopAuditSink) Persist(ctx context.Context, request datatypes.ClaimRequest,
	decision datatypes.ClaimDecision, clauses []datatypes.PolicyClause) error {
	return nil
}

// NewNoopAuditSink returns a sink that discards every record.
func NewNoopAuditSink() AuditSink {
	return &noopAuditSink{}
}
