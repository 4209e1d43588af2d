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
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

// maxEmbedBytes bounds the text sent to the embedding API. Claim narratives
// are already capped upstream; this guards direct callers.
const maxEmbedBytes = 8192

// OpenAIEmbedder implements Embedder through an OpenAI-compatible
// embeddings endpoint.
//
// # Thread Safety
//
// Safe for concurrent use.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder.
//
// The API key comes from OPENAI_API_KEY; OPENAI_BASE_URL optionally points at
// a compatible local backend. SENTINEL_EMBED_MODEL overrides the default
// text-embedding-3-small model.
func NewOpenAIEmbedder() (*OpenAIEmbedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the embedder")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	model := openai.SmallEmbedding3
	if override := os.Getenv("SENTINEL_EMBED_MODEL"); override != "" {
		model = openai.EmbeddingModel(override)
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedBytes {
		text = text[:maxEmbedBytes]
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, &RetrievalError{
			Backend:   "embedding",
			Message:   err.Error(),
			Retryable: true,
			Err:       err,
		}
	}
	if len(resp.Data) == 0 {
		return nil, &RetrievalError{
			Backend:   "embedding",
			Message:   "embedding response contained no vectors",
			Retryable: false,
		}
	}

	return resp.Data[0].Embedding, nil
}
