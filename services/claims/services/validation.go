// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package services provides business logic services for the claims pipeline.
//
// This package contains service structs that encapsulate business logic,
// separating it from HTTP handlers. Services are responsible for:
//   - Orchestrating calls to external services (embedding, vector store, LLM)
//   - Applying the guardrail stages in order
//   - Managing error handling and escalation
//
// Services are designed to be:
//   - Testable: Dependencies are injected via constructors
//   - Composable: Services can call other services
//   - Traceable: All methods accept context for distributed tracing
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/ClaimSentinel/services/claims/audit"
	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
	"github.com/AleutianAI/ClaimSentinel/services/claims/observability"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/citation"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/contradiction"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/redaction"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/rules"
	"github.com/AleutianAI/ClaimSentinel/services/guardrails/screening"
	"github.com/AleutianAI/ClaimSentinel/services/llm"
	"github.com/AleutianAI/ClaimSentinel/services/retrieval"
)

// validationTracer is the OpenTelemetry tracer for ClaimValidationService.
var validationTracer = otel.Tracer("sentinel.claims.services.validation")

// =============================================================================
// Pipeline Stages
// =============================================================================

// Stage names used in spans, logs, metrics, and escalation rationales.
// When a stage fails or times out, its name appears verbatim in the
// Manual Review rationale so reviewers know where the pipeline stopped.
const (
	StageScreening          = "screening"
	StageRetrieving         = "retrieving"
	StageGenerating         = "generating"
	StageCitationCheck      = "citation_check"
	StageContradictionCheck = "contradiction_check"
	StageRuleApplication    = "rule_application"
	StageRedacting          = "redacting"
	StageAuditing           = "auditing"
)

// Retry configuration for evidence retrieval.
const (
	// initialRetryDelay is the delay before the first retry attempt.
	// Subsequent retries double this delay (1s, 2s, 4s).
	initialRetryDelay = 1 * time.Second
)

// =============================================================================
// SecurityRejectionError
// =============================================================================

// SecurityRejectionError is returned when the input screener rejects a claim
// narrative before any external call is made.
//
// Handlers translate this into a client error (HTTP 400), never into a
// decision: a rejected request produces no ClaimDecision at all.
type SecurityRejectionError struct {
	Threats []string
}

// Error implements the error interface.
func (e *SecurityRejectionError) Error() string {
	return fmt.Sprintf("claim narrative rejected by input screening: %s", strings.Join(e.Threats, "; "))
}

// IsSecurityRejection checks if an error is a SecurityRejectionError.
func IsSecurityRejection(err error) bool {
	_, ok := err.(*SecurityRejectionError)
	return ok
}

// GetThreats extracts the threat descriptions from a SecurityRejectionError.
// Returns nil if the error is not a SecurityRejectionError.
func GetThreats(err error) []string {
	if sre, ok := err.(*SecurityRejectionError); ok {
		return sre.Threats
	}
	return nil
}

// =============================================================================
// ClaimValidationService
// =============================================================================

// ClaimValidationService runs the full claim validation pipeline. It
// orchestrates the flow between:
//   - Input screener: Rejects adversarial narratives before any external call
//   - Embedding + vector store: Retrieves relevant policy clauses
//   - LLM client: Proposes a coverage decision grounded in the clauses
//   - Guardrails: Citation validation, contradiction detection, rule routing
//   - Redactor: Strips sensitive data from outbound text
//   - Audit sink: Persists the final record
//
// The service is stateless; all per-claim state lives in local values, so a
// single instance serves concurrent requests without coordination.
//
// Usage:
//
//	service := NewClaimValidationService(deps)
//	decision, err := service.ValidateClaim(ctx, &req)
type ClaimValidationService struct {
	screener       *screening.Screener
	redactor       *redaction.Redactor
	citations      *citation.Validator
	contradictions *contradiction.Detector
	ruleEngine     *rules.Engine

	embedder  retrieval.Embedder
	retriever retrieval.ClauseRetriever
	extractor retrieval.DocumentExtractor
	generator llm.DecisionGenerator
	auditSink audit.AuditSink

	maxClauses  int
	maxAttempts int
}

// Dependencies bundles the collaborators ClaimValidationService needs.
//
// Every field is required except Extractor, which may be nil when the
// deployment has no document extraction service; evidence-backed validation
// then fails over to manual review.
type Dependencies struct {
	Screener       *screening.Screener
	Redactor       *redaction.Redactor
	Citations      *citation.Validator
	Contradictions *contradiction.Detector
	RuleEngine     *rules.Engine
	Embedder       retrieval.Embedder
	Retriever      retrieval.ClauseRetriever
	Extractor      retrieval.DocumentExtractor
	Generator      llm.DecisionGenerator
	AuditSink      audit.AuditSink

	// MaxClauses caps clause retrieval per request. Zero means 8.
	MaxClauses int

	// MaxAttempts bounds the retrieval retry loop. Zero means 3.
	MaxAttempts int
}

// NewClaimValidationService creates a service with the given dependencies.
func NewClaimValidationService(deps Dependencies) *ClaimValidationService {
	if deps.MaxClauses <= 0 {
		deps.MaxClauses = 8
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 3
	}
	return &ClaimValidationService{
		screener:       deps.Screener,
		redactor:       deps.Redactor,
		citations:      deps.Citations,
		contradictions: deps.Contradictions,
		ruleEngine:     deps.RuleEngine,
		embedder:       deps.Embedder,
		retriever:      deps.Retriever,
		extractor:      deps.Extractor,
		generator:      deps.Generator,
		auditSink:      deps.AuditSink,
		maxClauses:     deps.MaxClauses,
		maxAttempts:    deps.MaxAttempts,
	}
}

// =============================================================================
// Public API
// =============================================================================

// ValidateClaim runs the pipeline for a claim without supporting documents.
//
// # Outputs
//
//   - *datatypes.ClaimDecision: The final decision. A pipeline-internal
//     failure never surfaces as an error; it surfaces as a Manual Review
//     decision whose rationale names the failed stage.
//   - error: Non-nil only for caller-side problems: a malformed request or a
//     *SecurityRejectionError from input screening.
func (s *ClaimValidationService) ValidateClaim(ctx context.Context, req *datatypes.ClaimRequest) (*datatypes.ClaimDecision, error) {
	return s.validate(ctx, req, nil)
}

// ValidateClaimWithEvidence runs the pipeline with supporting document
// references. Document text is extracted out of process and fed to both the
// generator and the contradiction detector.
func (s *ClaimValidationService) ValidateClaimWithEvidence(ctx context.Context, req *datatypes.ClaimRequest,
	documentIDs []string) (*datatypes.ClaimDecision, error) {
	if len(documentIDs) > datatypes.MaxSupportingDocuments {
		return nil, fmt.Errorf("too many supporting documents: %d exceeds limit of %d",
			len(documentIDs), datatypes.MaxSupportingDocuments)
	}
	return s.validate(ctx, req, documentIDs)
}

// =============================================================================
// Pipeline
// =============================================================================

func (s *ClaimValidationService) validate(ctx context.Context, req *datatypes.ClaimRequest,
	documentIDs []string) (*datatypes.ClaimDecision, error) {
	ctx, span := validationTracer.Start(ctx, "ClaimValidationService.validate")
	defer span.End()

	// Stage 1: Screening. Nothing leaves the process until this passes.
	req.EnsureDefaults()
	span.SetAttributes(
		attribute.String("request.id", req.RequestID),
		attribute.String("request.category", req.PolicyCategory),
		attribute.Int("request.documents", len(documentIDs)),
	)

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	screenStart := time.Now()
	if screenResult := s.screener.Screen(req.Narrative); !screenResult.Valid {
		observability.RecordStageLatency(StageScreening, time.Since(screenStart).Seconds())
		observability.RecordGuardrailTrip(StageScreening, "error")
		observability.RecordValidationOutcome("rejected")
		span.SetStatus(codes.Error, "security rejection")
		span.SetAttributes(attribute.Int("screening.threats", len(screenResult.Errors)))
		slog.Warn("Claim narrative rejected by input screening",
			"requestId", req.RequestID,
			"threats", len(screenResult.Errors),
			"narrative", s.screener.Sanitize(req.Narrative))
		return nil, &SecurityRejectionError{Threats: screenResult.Errors}
	}

	// Sensitive-data census on the inbound narrative. Counts only; values
	// never reach logs or metrics.
	if counts := s.redactor.DetectTypes(req.Narrative); len(counts) > 0 {
		observability.RecordIdentifiersDetected(counts)
		slog.Info("Sensitive identifiers detected in claim narrative",
			"requestId", req.RequestID, "categories", len(counts))
	}
	observability.RecordStageLatency(StageScreening, time.Since(screenStart).Seconds())

	// Stage 2: Retrieving.
	clauses, failed := s.retrieveClauses(ctx, req)
	if failed != nil {
		return s.finish(ctx, req, *failed, clauses)
	}
	if len(clauses) == 0 {
		// No evidence means no generation: a decision without grounding
		// would have nothing to cite.
		slog.Info("No policy clauses retrieved, routing to manual review",
			"requestId", req.RequestID, "category", req.PolicyCategory)
		decision := datatypes.ClaimDecision{
			Status:     datatypes.StatusManualReview,
			Confidence: 0,
		}
		decision = decision.WithRationale(fmt.Sprintf(
			"no policy clauses found for category %q; cannot adjudicate without evidence", req.PolicyCategory))
		return s.finish(ctx, req, decision, clauses)
	}

	// Supporting document extraction rides on the retrieval stage.
	supportingTexts, failed := s.extractDocuments(ctx, req, documentIDs)
	if failed != nil {
		return s.finish(ctx, req, *failed, clauses)
	}

	// Stage 3: Generating.
	genStart := time.Now()
	raw, err := s.generateDecision(ctx, req, clauses, supportingTexts)
	observability.RecordStageLatency(StageGenerating, time.Since(genStart).Seconds())
	if err != nil {
		span.RecordError(err)
		slog.Error("Decision generation failed", "requestId", req.RequestID, "error", err)
		return s.finish(ctx, req, s.stageFailureDecision(StageGenerating, err), clauses)
	}

	// Stage 4: Citation check.
	citeStart := time.Now()
	citeResult := s.citations.Validate(raw, clauses)
	observability.RecordStageLatency(StageCitationCheck, time.Since(citeStart).Seconds())

	decision := datatypes.DecisionFromRaw(raw)
	if !citeResult.Valid {
		observability.RecordGuardrailTrip(StageCitationCheck, "error")
		slog.Warn("Citation validation failed",
			"requestId", req.RequestID, "errors", len(citeResult.Errors))
		// A decision citing evidence that was never retrieved cannot be
		// trusted at all: zero out confidence and surface the failures as
		// the explanation.
		decision.Confidence = 0
		decision = decision.WithExplanation(strings.Join(citeResult.Errors, "; "))
		decision = decision.EscalateToReview("citation validation failed")
	}
	if len(citeResult.Warnings) > 0 {
		observability.RecordGuardrailTrip(StageCitationCheck, "warning")
		decision = decision.WithWarnings(citeResult.Warnings)
	}

	// Stage 5: Contradiction check.
	contraStart := time.Now()
	findings := s.contradictions.Detect(*req, raw, clauses, strings.Join(supportingTexts, "\n"))
	observability.RecordStageLatency(StageContradictionCheck, time.Since(contraStart).Seconds())
	if len(findings) > 0 {
		decision = decision.WithContradictions(findings)
		if contradiction.HasCritical(findings) {
			observability.RecordGuardrailTrip(StageContradictionCheck, "critical")
			decision = decision.EscalateToReview(fmt.Sprintf(
				"critical contradictions detected: %s", strings.Join(contradiction.Summarize(findings), "; ")))
		} else {
			observability.RecordGuardrailTrip(StageContradictionCheck, "warning")
		}
	}

	// Stage 6: Rule application.
	ruleStart := time.Now()
	decision = s.ruleEngine.Apply(decision, *req, citedSubset(raw, clauses), len(documentIDs) > 0)
	observability.RecordStageLatency(StageRuleApplication, time.Since(ruleStart).Seconds())

	return s.finish(ctx, req, decision, clauses)
}

// finish runs the tail stages every decision passes through regardless of how
// the earlier stages went: redaction of outbound text, audit persistence, and
// outcome accounting.
func (s *ClaimValidationService) finish(ctx context.Context, req *datatypes.ClaimRequest,
	decision datatypes.ClaimDecision, clauses []datatypes.PolicyClause) (*datatypes.ClaimDecision, error) {
	ctx, span := validationTracer.Start(ctx, "ClaimValidationService.finish")
	defer span.End()

	// Stage 7: Redacting. Outbound explanation text must carry no sensitive
	// identifiers or medical terms even if the model echoed them back.
	redactStart := time.Now()
	redacted := s.redactor.Redact(decision.Explanation)
	redacted = s.redactor.RedactNarrativeTerms(redacted)
	decision = decision.WithExplanation(redacted)
	observability.RecordStageLatency(StageRedacting, time.Since(redactStart).Seconds())

	// Stage 8: Auditing. Failure is logged and counted, never propagated.
	auditStart := time.Now()
	if err := s.auditSink.Persist(ctx, *req, decision, clauses); err != nil {
		observability.RecordAuditFailure()
		span.AddEvent("audit_failure")
		slog.Error("Failed to persist audit record",
			"requestId", req.RequestID, "error", err)
	}
	observability.RecordStageLatency(StageAuditing, time.Since(auditStart).Seconds())

	observability.RecordValidationOutcome(outcomeLabel(decision.Status))
	span.SetAttributes(
		attribute.String("decision.status", string(decision.Status)),
		attribute.Float64("decision.confidence", decision.Confidence),
		attribute.Int("decision.contradictions", len(decision.Contradictions)),
	)
	slog.Info("Claim validation complete",
		"requestId", req.RequestID,
		"status", decision.Status,
		"confidence", decision.Confidence)

	return &decision, nil
}

// =============================================================================
// Stage Helpers
// =============================================================================

// retrieveClauses embeds the narrative and queries the vector store, retrying
// transient failures with exponential backoff. A nil second return means
// success; otherwise it carries the Manual Review decision to return.
func (s *ClaimValidationService) retrieveClauses(ctx context.Context,
	req *datatypes.ClaimRequest) ([]datatypes.PolicyClause, *datatypes.ClaimDecision) {
	ctx, span := validationTracer.Start(ctx, "ClaimValidationService.retrieveClauses")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.RecordStageLatency(StageRetrieving, time.Since(start).Seconds())
	}()

	vector, err := s.embedder.Embed(ctx, req.Narrative)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		slog.Error("Narrative embedding failed", "requestId", req.RequestID, "error", err)
		failed := s.stageFailureDecision(StageRetrieving, err)
		return nil, &failed
	}

	var lastErr error
	retryDelay := initialRetryDelay

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			span.AddEvent("retry_attempt", trace.WithAttributes(
				attribute.Int("attempt", attempt),
				attribute.String("delay", retryDelay.String()),
			))
			observability.RecordRetrievalRetry("vector_store")
			slog.Info("Retrying clause retrieval",
				"requestId", req.RequestID,
				"attempt", attempt,
				"delay", retryDelay,
				"lastError", lastErr)

			select {
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				span.SetStatus(codes.Error, "context canceled during retry")
				failed := s.stageFailureDecision(StageRetrieving, ctx.Err())
				return nil, &failed
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		clauses, err := s.retriever.Retrieve(ctx, vector, req.PolicyCategory, s.maxClauses)
		if err == nil {
			span.SetAttributes(
				attribute.Int("clauses.count", len(clauses)),
				attribute.Int("attempts", attempt+1),
			)
			return clauses, nil
		}

		lastErr = err
		if !retrieval.IsRetryable(err) {
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "retrieval failed")
	slog.Error("Clause retrieval failed after retries",
		"requestId", req.RequestID, "error", lastErr)
	failed := s.stageFailureDecision(StageRetrieving, lastErr)
	return nil, &failed
}

// extractDocuments pulls the text of each referenced supporting document.
func (s *ClaimValidationService) extractDocuments(ctx context.Context, req *datatypes.ClaimRequest,
	documentIDs []string) ([]string, *datatypes.ClaimDecision) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	if s.extractor == nil {
		err := fmt.Errorf("no document extraction service configured")
		failed := s.stageFailureDecision(StageRetrieving, err)
		return nil, &failed
	}

	texts := make([]string, 0, len(documentIDs))
	for _, id := range documentIDs {
		text, err := s.extractor.ExtractDocumentText(ctx, id)
		if err != nil {
			slog.Error("Supporting document extraction failed",
				"requestId", req.RequestID, "documentId", id, "error", err)
			failed := s.stageFailureDecision(StageRetrieving,
				fmt.Errorf("document %s extraction: %w", id, err))
			return nil, &failed
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// generateDecision dispatches to the evidence-aware generator variant when
// supporting text is present.
func (s *ClaimValidationService) generateDecision(ctx context.Context, req *datatypes.ClaimRequest,
	clauses []datatypes.PolicyClause, supportingTexts []string) (datatypes.RawDecision, error) {
	if len(supportingTexts) > 0 {
		return s.generator.GenerateDecisionWithEvidence(ctx, *req, clauses, supportingTexts)
	}
	return s.generator.GenerateDecision(ctx, *req, clauses)
}

// stageFailureDecision converts an internal failure into the Manual Review
// decision the caller receives. The rationale names the stage so reviewers
// know exactly where the pipeline stopped.
func (s *ClaimValidationService) stageFailureDecision(stage string, err error) datatypes.ClaimDecision {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	decision := datatypes.ClaimDecision{
		Status:     datatypes.StatusManualReview,
		Confidence: 0,
	}
	return decision.WithRationale(fmt.Sprintf("pipeline stage %q failed: %s", stage, reason))
}

// citedSubset returns the retrieved clauses the raw decision actually cites.
func citedSubset(raw datatypes.RawDecision, available []datatypes.PolicyClause) []datatypes.PolicyClause {
	cited := make(map[string]bool, len(raw.ClauseReferences))
	for _, ref := range raw.ClauseReferences {
		cited[ref] = true
	}
	var out []datatypes.PolicyClause
	for _, c := range available {
		if cited[c.ClauseID] {
			out = append(out, c)
		}
	}
	return out
}

// outcomeLabel maps a decision status to its metrics label.
func outcomeLabel(status datatypes.DecisionStatus) string {
	switch status {
	case datatypes.StatusCovered:
		return "covered"
	case datatypes.StatusNotCovered:
		return "not_covered"
	case datatypes.StatusManualReview:
		return "manual_review"
	}
	return "unknown"
}
