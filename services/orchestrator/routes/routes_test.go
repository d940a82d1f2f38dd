// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ai/meridian/services/llm"
	"github.com/meridian-ai/meridian/services/orchestrator"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	engine := orchestrator.New(orchestrator.DefaultConfig(), llm.NewRegistry(nil), nil)
	SetupRoutes(router, engine, Options{CORSOrigin: "https://dashboard.example.com"})
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSetupRoutes_MountsEndpoints(t *testing.T) {
	router := setup(t)

	for _, path := range []string{
		"/api/health",
		"/api/analytics",
		"/api/analytics/events",
		"/api/budget",
		"/api/cache",
		"/api/artifacts",
		"/api/manager-view",
	} {
		rec := get(router, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestSetupRoutes_Metrics(t *testing.T) {
	router := setup(t)

	rec := get(router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSetupRoutes_CORS(t *testing.T) {
	router := setup(t)

	rec := get(router, "/api/health")
	assert.Equal(t, "https://dashboard.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRecorder()
	router.ServeHTTP(pre, httptest.NewRequest(http.MethodOptions, "/api/health", nil))
	assert.Equal(t, http.StatusNoContent, pre.Code)
}
