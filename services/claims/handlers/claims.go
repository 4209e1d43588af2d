// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the HTTP handlers for the claims service.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
	"github.com/AleutianAI/ClaimSentinel/services/claims/services"
)

var claimsTracer = otel.Tracer("sentinel.claims.handlers")

// EvidenceRequest is the request body for evidence-backed validation. The
// claim fields are embedded so a plain validation body stays forward
// compatible with the evidence endpoint.
type EvidenceRequest struct {
	datatypes.ClaimRequest
	DocumentIDs []string `json:"document_ids"`
}

// ValidateClaim handles POST /v1/claims/validate.
//
// Screening rejections return 400 with the threat list; a decision, including
// one escalated to Manual Review by an internal failure, returns 200.
func ValidateClaim(service *services.ClaimValidationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := claimsTracer.Start(c.Request.Context(), "ValidateClaim")
		defer span.End()

		var req datatypes.ClaimRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the claim request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		decision, err := service.ValidateClaim(ctx, &req)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, decision)
	}
}

// ValidateClaimWithEvidence handles POST /v1/claims/validate/evidence.
func ValidateClaimWithEvidence(service *services.ClaimValidationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := claimsTracer.Start(c.Request.Context(), "ValidateClaimWithEvidence")
		defer span.End()

		var req EvidenceRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the evidence request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		decision, err := service.ValidateClaimWithEvidence(ctx, &req.ClaimRequest, req.DocumentIDs)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, decision)
	}
}

// respondValidationError maps service errors to HTTP responses. Every error
// the service returns is a caller-side problem; internal failures arrive as
// Manual Review decisions, not errors.
func respondValidationError(c *gin.Context, err error) {
	if services.IsSecurityRejection(err) {
		slog.Warn("Blocked claim request due to adversarial input",
			"threats", len(services.GetThreats(err)))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "claim narrative rejected by input screening",
			"threats": services.GetThreats(err),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
