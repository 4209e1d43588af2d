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
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// defaultExtractorTimeout bounds a single extraction call. OCR on large scans
// is slow but anything past this is treated as a transient failure.
const defaultExtractorTimeout = 30 * time.Second

// HTTPDocumentExtractor implements DocumentExtractor against the document
// extraction service, which runs OCR and entity extraction out of process.
//
// # Thread Safety
//
// Safe for concurrent use.
type HTTPDocumentExtractor struct {
	baseURL string
	client  *http.Client
}

var _ DocumentExtractor = (*HTTPDocumentExtractor)(nil)

// NewHTTPDocumentExtractor creates an extractor client.
//
// The service address comes from SENTINEL_EXTRACTOR_URL and defaults to the
// in-cluster address.
func NewHTTPDocumentExtractor() *HTTPDocumentExtractor {
	baseURL := os.Getenv("SENTINEL_EXTRACTOR_URL")
	if baseURL == "" {
		baseURL = "http://doc-extractor:8085"
	}
	return &HTTPDocumentExtractor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultExtractorTimeout},
	}
}

// extractionResponse is the extraction service's reply shape.
type extractionResponse struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

// ExtractDocumentText implements DocumentExtractor.
func (x *HTTPDocumentExtractor) ExtractDocumentText(ctx context.Context, documentID string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/documents/%s/text", x.baseURL, url.PathEscape(documentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build extraction request: %w", err)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return "", &RetrievalError{
			Backend:   "extractor",
			Message:   err.Error(),
			Retryable: true,
			Err:       err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &RetrievalError{
			Backend:    "extractor",
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Retryable:  resp.StatusCode >= 500,
		}
	}

	var payload extractionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &RetrievalError{
			Backend:   "extractor",
			Message:   fmt.Sprintf("failed to decode extraction response: %v", err),
			Retryable: false,
			Err:       err,
		}
	}

	return payload.Text, nil
}
