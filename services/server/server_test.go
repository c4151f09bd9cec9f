// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfigDefaults verifies the zero Config picks up the documented
// defaults.
func TestConfigDefaults(t *testing.T) {
	cfg := applyConfigDefaults(Config{})

	assert.Equal(t, 12310, cfg.Port)
	assert.Equal(t, "openai", cfg.LLMBackend)
	assert.Equal(t, "./data", cfg.DBPath)
	assert.Equal(t, "curon-otel-collector:4317", cfg.OTelEndpoint)
	assert.Equal(t, 60*time.Second, cfg.TranslatorTimeout)
}

// TestNewWiresHealthEndpoint verifies a fully constructed service
// serves the liveness probe over its router.
func TestNewWiresHealthEndpoint(t *testing.T) {
	t.Setenv("CURON_LLM_API_KEY", "test-key")

	svc, err := New(Config{
		InMemoryDB:     true,
		DisableTracing: true,
		GinMode:        "test",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

// TestNewRejectsUnknownBackend verifies a bad translator backend fails
// construction instead of failing the first turn.
func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(Config{
		InMemoryDB:     true,
		DisableTracing: true,
		LLMBackend:     "carrier-pigeon",
	})
	assert.Error(t, err)
}
