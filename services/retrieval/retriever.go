// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval provides the external evidence interfaces the claims
// pipeline depends on: embedding, clause retrieval, and supporting-document
// text extraction. The pipeline only ever sees these narrow contracts; the
// vector index and extraction service internals live behind them.
package retrieval

import (
	"context"

	"github.com/AleutianAI/ClaimSentinel/services/claims/datatypes"
)

// Embedder produces a vector for a piece of claim text.
//
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ClauseRetriever returns policy clauses relevant to a query vector within
// one coverage category.
//
// An empty result is a valid outcome, not an error: the orchestrator treats
// "no evidence" as a reason to route the claim to manual review without
// calling generation.
type ClauseRetriever interface {
	Retrieve(ctx context.Context, vector []float32, category string, limit int) ([]datatypes.PolicyClause, error)
}

// DocumentExtractor returns the extracted text of an uploaded supporting
// document. OCR and entity extraction happen in an external service; the
// pipeline only consumes the resulting text.
type DocumentExtractor interface {
	ExtractDocumentText(ctx context.Context, documentID string) (string, error)
}
