// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability exposes Prometheus metrics for the claims pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Claim Validation
// =============================================================================

var (
	// validationOutcomes counts completed validations by final status.
	// Labels: status (covered, not_covered, manual_review, rejected)
	validationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "claims",
		Name:      "validations_total",
		Help:      "Total claim validations by final status",
	}, []string{"status"})

	// guardrailTrips counts guardrail findings by stage and severity.
	// Labels: stage (screening, citation, contradiction, rules),
	// severity (error, warning, critical)
	guardrailTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "guardrails",
		Name:      "trips_total",
		Help:      "Total guardrail findings by stage and severity",
	}, []string{"stage", "severity"})

	// stageLatency measures per-stage pipeline latency.
	// Labels: stage (screening, retrieving, generating, citation_check,
	// contradiction_check, rule_application, redacting, auditing)
	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sentinel",
		Subsystem: "claims",
		Name:      "stage_latency_seconds",
		Help:      "Claim pipeline stage latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"stage"})

	// redactionsDetected counts sensitive identifiers found in inbound
	// narratives. Labels: category (national_id, phone, email, ...)
	redactionsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "redaction",
		Name:      "identifiers_detected_total",
		Help:      "Sensitive identifiers detected in claim narratives by category",
	}, []string{"category"})

	// auditFailures counts audit persistence failures. These never fail a
	// validation, so a counter is the only place they surface besides logs.
	auditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "claims",
		Name:      "audit_failures_total",
		Help:      "Total audit persistence failures",
	})

	// retrievalRetries counts retried retrieval attempts by backend.
	retrievalRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentinel",
		Subsystem: "retrieval",
		Name:      "retries_total",
		Help:      "Total retried evidence retrieval attempts by backend",
	}, []string{"backend"})
)

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// RecordValidationOutcome records a completed validation.
//
// Inputs:
//
//	status - "covered", "not_covered", "manual_review", or "rejected".
func RecordValidationOutcome(status string) {
	validationOutcomes.WithLabelValues(status).Inc()
}

// RecordGuardrailTrip records one guardrail finding.
//
// Inputs:
//
//	stage - The guardrail stage that tripped.
//	severity - "error", "warning", or "critical".
func RecordGuardrailTrip(stage, severity string) {
	guardrailTrips.WithLabelValues(stage, severity).Inc()
}

// RecordStageLatency records the duration of one pipeline stage.
func RecordStageLatency(stage string, durationSec float64) {
	stageLatency.WithLabelValues(stage).Observe(durationSec)
}

// RecordIdentifiersDetected records sensitive identifiers found in a
// narrative, by category. Only counts are recorded, never values.
func RecordIdentifiersDetected(counts map[string]int) {
	for category, n := range counts {
		redactionsDetected.WithLabelValues(category).Add(float64(n))
	}
}

// RecordAuditFailure records one failed audit write.
func RecordAuditFailure() {
	auditFailures.Inc()
}

// RecordRetrievalRetry records one retried retrieval attempt.
func RecordRetrievalRetry(backend string) {
	retrievalRetries.WithLabelValues(backend).Inc()
}
