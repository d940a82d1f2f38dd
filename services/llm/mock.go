// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"sync"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// MockProvider is a scripted provider for tests: responses and errors
// keyed by model, with call counting.
type MockProvider struct {
	ProviderName string
	ModelList    []string

	mu        sync.Mutex
	Responses map[string]datatypes.ChatResponse
	Errors    map[string]error
	HealthErr error
	calls     map[string]int
}

// NewMockProvider returns a mock serving the given models.
func NewMockProvider(name string, models ...string) *MockProvider {
	return &MockProvider{
		ProviderName: name,
		ModelList:    models,
		Responses:    make(map[string]datatypes.ChatResponse),
		Errors:       make(map[string]error),
		calls:        make(map[string]int),
	}
}

func (m *MockProvider) Name() string { return m.ProviderName }

func (m *MockProvider) Models() []string { return m.ModelList }

func (m *MockProvider) Chat(_ context.Context, model string, req datatypes.ChatRequest) (datatypes.ChatResponse, error) {
	m.mu.Lock()
	m.calls[model]++
	m.mu.Unlock()

	if err := m.Errors[model]; err != nil {
		return datatypes.ChatResponse{}, err
	}
	resp, ok := m.Responses[model]
	if !ok {
		resp = datatypes.ChatResponse{
			Content: "mock response",
			Tokens:  datatypes.TokenUsage{Input: 10, Output: 20, Total: 30},
		}
	}
	resp.Id = req.Id
	resp.Provider = m.ProviderName
	resp.Model = model
	return resp, nil
}

func (m *MockProvider) HealthCheck(context.Context) error { return m.HealthErr }

// Calls returns how often a model was invoked.
func (m *MockProvider) Calls(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[model]
}

var _ Provider = (*MockProvider)(nil)
