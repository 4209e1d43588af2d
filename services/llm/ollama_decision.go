// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

var ollamaTracer = otel.Tracer("sentinel.llm.ollama")

// OllamaDecisionClient generates claim decisions through a local Ollama
// instance. Air-gapped deployments use this backend so claim narratives
// never leave the host.
//
// # Thread Safety
//
// Safe for concurrent use.
type OllamaDecisionClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

var _ DecisionGenerator = (*OllamaDecisionClient)(nil)

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format,omitempty"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// NewOllamaDecisionClient creates a decision client over a local Ollama
// server. The address comes from OLLAMA_BASE_URL; the model from
// SENTINEL_DECISION_MODEL, falling back to llama3.1.
func NewOllamaDecisionClient() (*OllamaDecisionClient, error) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("OLLAMA_BASE_URL environment variable not set")
	}
	model := os.Getenv("SENTINEL_DECISION_MODEL")
	if model == "" {
		model = "llama3.1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing Ollama decision client", "base_url", baseURL, "model", model)
	return &OllamaDecisionClient{
		// Local generation on CPU can be slow; the caller's context still
		// bounds individual requests.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
		model:      model,
	}, nil
}

// GenerateDecision implements DecisionGenerator.
func (o *OllamaDecisionClient) GenerateDecision(ctx context.Context, request datatypes.ClaimRequest,
	clauses []datatypes.PolicyClause) (datatypes.RawDecision, error) {
	return o.generate(ctx, request, clauses, nil)
}

// GenerateDecisionWithEvidence implements DecisionGenerator.
func (o *OllamaDecisionClient) GenerateDecisionWithEvidence(ctx context.Context, request datatypes.ClaimRequest,
	clauses []datatypes.PolicyClause, supportingTexts []string) (datatypes.RawDecision, error) {
	return o.generate(ctx, request, clauses, supportingTexts)
}

func (o *OllamaDecisionClient) generate(ctx context.Context, request datatypes.ClaimRequest,
	clauses []datatypes.PolicyClause, supportingTexts []string) (datatypes.RawDecision, error) {

	ctx, span := ollamaTracer.Start(ctx, "OllamaDecisionClient.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Int("llm.clauses", len(clauses)),
	)

	payload := ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaChatMessage{
			{Role: "system", Content: decisionSystemPrompt},
			{Role: "user", Content: buildDecisionPrompt(request, clauses, supportingTexts)},
		},
		Stream: false,
		Format: "json",
		Options: map[string]any{
			"temperature": 0.1,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return datatypes.RawDecision{}, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return datatypes.RawDecision{}, fmt.Errorf("failed to build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ollama request failed")
		return datatypes.RawDecision{}, fmt.Errorf("decision generation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		span.SetStatus(codes.Error, "ollama non-200")
		return datatypes.RawDecision{}, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(errBody))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return datatypes.RawDecision{}, fmt.Errorf("failed to decode ollama response: %w", err)
	}

	return ParseRawDecision(chatResp.Message.Content)
}
