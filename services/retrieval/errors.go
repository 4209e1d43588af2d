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
	"errors"
	"fmt"
)

// RetrievalError wraps a failure talking to an evidence backend and records
// whether a retry could plausibly succeed.
//
// # Fields
//
//   - Backend: Which backend failed ("embedding", "vector_store", "extractor").
//   - StatusCode: HTTP status when the failure was an HTTP error, else 0.
//   - Message: Human-readable description.
//   - Retryable: True for transient failures (timeouts, 5xx, connection resets).
type RetrievalError struct {
	Backend    string
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

// Error implements the error interface.
func (e *RetrievalError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s retrieval failed (HTTP %d): %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s retrieval failed: %s", e.Backend, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a RetrievalError marked retryable.
// Context cancellation and deadline expiry are never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}
