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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

// decisionSystemPrompt constrains the model to the decision contract: JSON
// only, citations only from the provided clause identifiers.
const decisionSystemPrompt = `You are an insurance claim adjudication assistant.
Decide whether the claim is covered based ONLY on the policy clauses provided.
Respond with a single JSON object with exactly these fields:
  "status": one of "Covered", "Not Covered", "Manual Review"
  "explanation": a short factual justification
  "clause_references": identifiers of clauses you relied on, chosen ONLY from the provided clause identifiers
  "required_documents": documents the claimant should still provide, may be empty
  "confidence": your confidence in the decision, a number between 0 and 1
Never invent clause identifiers. If the clauses do not settle the question, use "Manual Review".`

// OpenAIDecisionClient generates claim decisions through an OpenAI-compatible
// chat completion API.
//
// The client is deliberately thin: prompt assembly, one API call, and strict
// parsing of the JSON reply. Grounding and consistency of the reply are the
// guardrail pipeline's job, not this client's.
type OpenAIDecisionClient struct {
	client *openai.Client
	model  string
}

// Compile-time interface implementation check.
var _ DecisionGenerator = (*OpenAIDecisionClient)(nil)

// NewOpenAIDecisionClient creates a decision client.
//
// The API key is read from OPENAI_API_KEY; an optional OPENAI_BASE_URL
// points the client at a compatible local backend. The model defaults to
// gpt-4o-mini unless SENTINEL_DECISION_MODEL is set.
func NewOpenAIDecisionClient() (*OpenAIDecisionClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the decision client")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	model := os.Getenv("SENTINEL_DECISION_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIDecisionClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// GenerateDecision implements DecisionGenerator.
func (c *OpenAIDecisionClient) GenerateDecision(ctx context.Context, request datatypes.ClaimRequest,
	clauses []datatypes.PolicyClause) (datatypes.RawDecision, error) {
	return c.generate(ctx, request, clauses, nil)
}

// GenerateDecisionWithEvidence implements DecisionGenerator.
func (c *OpenAIDecisionClient) GenerateDecisionWithEvidence(ctx context.Context, request datatypes.ClaimRequest,
	clauses []datatypes.PolicyClause, supportingTexts []string) (datatypes.RawDecision, error) {
	return c.generate(ctx, request, clauses, supportingTexts)
}

func (c *OpenAIDecisionClient) generate(ctx context.Context, request datatypes.ClaimRequest,
	clauses []datatypes.PolicyClause, supportingTexts []string) (datatypes.RawDecision, error) {

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: decisionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildDecisionPrompt(request, clauses, supportingTexts)},
		},
		// Low temperature: adjudication wants repeatable, evidence-bound output.
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return datatypes.RawDecision{}, fmt.Errorf("decision generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return datatypes.RawDecision{}, fmt.Errorf("decision generation returned no choices")
	}

	return ParseRawDecision(resp.Choices[0].Message.Content)
}

// buildDecisionPrompt renders the claim and its evidence for the model.
func buildDecisionPrompt(request datatypes.ClaimRequest, clauses []datatypes.PolicyClause, supportingTexts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim category: %s\n", request.PolicyCategory)
	fmt.Fprintf(&b, "Claim amount: %.2f\n", request.ClaimAmount)
	fmt.Fprintf(&b, "Claim narrative:\n%s\n\n", request.Narrative)

	b.WriteString("Policy clauses:\n")
	for _, c := range clauses {
		fmt.Fprintf(&b, "[%s] %s\n", c.ClauseID, c.Text)
	}

	if len(supportingTexts) > 0 {
		b.WriteString("\nSupporting documents:\n")
		for i, t := range supportingTexts {
			fmt.Fprintf(&b, "--- document %d ---\n%s\n", i+1, t)
		}
	}
	return b.String()
}

// rawDecisionPayload mirrors the JSON contract in decisionSystemPrompt.
type rawDecisionPayload struct {
	Status            string   `json:"status"`
	Explanation       string   `json:"explanation"`
	ClauseReferences  []string `json:"clause_references"`
	RequiredDocuments []string `json:"required_documents"`
	Confidence        float64  `json:"confidence"`
}

// ParseRawDecision parses the model's JSON reply into a RawDecision.
//
// Models occasionally wrap JSON in a markdown fence even when asked not to,
// so fences are stripped before parsing. An unknown status or unparseable
// reply is an error; the orchestrator resolves it to Manual Review rather
// than guessing.
func ParseRawDecision(content string) (datatypes.RawDecision, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var payload rawDecisionPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return datatypes.RawDecision{}, fmt.Errorf("failed to parse decision JSON: %w", err)
	}

	status := datatypes.DecisionStatus(strings.TrimSpace(payload.Status))
	if !status.Valid() {
		return datatypes.RawDecision{}, fmt.Errorf("decision has unknown status %q", payload.Status)
	}

	return datatypes.RawDecision{
		Status:            status,
		Explanation:       payload.Explanation,
		ClauseReferences:  payload.ClauseReferences,
		RequiredDocuments: payload.RequiredDocuments,
		Confidence:        clamp01(payload.Confidence),
	}, nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
