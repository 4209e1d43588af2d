// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/ClaimSentinel/services/claims/services"
)

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Route registration only touches the service pointer, so an empty
	// service is enough to assert the route table.
	SetupRoutes(router, &services.ClaimValidationService{})

	registered := make(map[string]string)
	for _, r := range router.Routes() {
		registered[r.Path] = r.Method
	}

	require.Contains(t, registered, "/health")
	assert.Equal(t, http.MethodGet, registered["/health"])

	require.Contains(t, registered, "/metrics")
	assert.Equal(t, http.MethodGet, registered["/metrics"])

	require.Contains(t, registered, "/v1/claims/validate")
	assert.Equal(t, http.MethodPost, registered["/v1/claims/validate"])

	require.Contains(t, registered, "/v1/claims/validate/evidence")
	assert.Equal(t, http.MethodPost, registered["/v1/claims/validate/evidence"])
}

func TestMetricsEndpointServes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, &services.ClaimValidationService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
