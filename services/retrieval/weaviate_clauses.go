// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

var tracer = otel.Tracer("sentinel.retrieval")

// PolicyClauseClass is the Weaviate class that stores indexed policy clauses.
const PolicyClauseClass = "PolicyClause"

// =============================================================================
// Generic GraphQL Response Parser
// =============================================================================

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// Encapsulates the marshal/unmarshal pattern required to convert Weaviate's
// dynamic response (map[string]models.JSONObject) into a strongly-typed Go
// struct. The target type T must have json tags matching the response shape.
//
// # Limitations
//
//   - Type mismatches produce zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// ClauseQueryResponse represents the response from querying the PolicyClause class.
type ClauseQueryResponse struct {
	Get struct {
		PolicyClause []ClauseResult `json:"PolicyClause"`
	} `json:"Get"`
}

// ClauseResult represents a single clause hit from a near-vector query.
type ClauseResult struct {
	ClauseID   string `json:"clause_id"`
	Text       string `json:"text"`
	Category   string `json:"category"`
	Additional struct {
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}

// =============================================================================
// Weaviate Clause Retriever
// =============================================================================

// WeaviateClauseRetriever implements ClauseRetriever against a Weaviate
// PolicyClause class.
//
// # Description
//
// Runs a near-vector search scoped to one coverage category. Certainty is
// requested instead of distance because it is always normalized to [0, 1]
// regardless of the index's distance metric, which lets the pipeline carry it
// directly as a clause relevance score.
//
// # Thread Safety
//
// Safe for concurrent use. The underlying Weaviate client handles connection
// pooling.
type WeaviateClauseRetriever struct {
	client *weaviate.Client
}

var _ ClauseRetriever = (*WeaviateClauseRetriever)(nil)

// NewWeaviateClauseRetriever creates a retriever over the given client.
func NewWeaviateClauseRetriever(client *weaviate.Client) *WeaviateClauseRetriever {
	return &WeaviateClauseRetriever{client: client}
}

// Retrieve implements ClauseRetriever.
//
// An empty result slice with a nil error means the category has no indexed
// clauses near the query vector; callers decide what that implies.
func (r *WeaviateClauseRetriever) Retrieve(ctx context.Context, vector []float32, category string, limit int) ([]datatypes.PolicyClause, error) {
	ctx, span := tracer.Start(ctx, "retrieval.clauses")
	defer span.End()

	categoryFilter := filters.Where().
		WithPath([]string{"category"}).
		WithOperator(filters.Equal).
		WithValueString(category)

	nearVector := r.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := []graphql.Field{
		{Name: "clause_id"},
		{Name: "text"},
		{Name: "category"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := r.client.GraphQL().Get().
		WithClassName(PolicyClauseClass).
		WithFields(fields...).
		WithWhere(categoryFilter).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		slog.Error("Policy clause search failed", "category", category, "error", err)
		return nil, &RetrievalError{
			Backend:   "vector_store",
			Message:   err.Error(),
			Retryable: true,
			Err:       err,
		}
	}

	parsed, err := ParseGraphQLResponse[ClauseQueryResponse](result)
	if err != nil {
		return nil, &RetrievalError{
			Backend:   "vector_store",
			Message:   fmt.Sprintf("failed to parse clause results: %v", err),
			Retryable: false,
			Err:       err,
		}
	}

	clauses := make([]datatypes.PolicyClause, 0, len(parsed.Get.PolicyClause))
	for _, hit := range parsed.Get.PolicyClause {
		clause := datatypes.PolicyClause{
			ClauseID: hit.ClauseID,
			Text:     hit.Text,
			Category: hit.Category,
		}
		if hit.Additional.Certainty != nil {
			clause.RelevanceScore = float64(*hit.Additional.Certainty)
		}
		clauses = append(clauses, clause)
	}

	slog.Debug("Retrieved policy clauses", "category", category, "count", len(clauses))
	return clauses, nil
}
