// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm holds the upstream provider adapters and their registry.
//
// # Description
//
// Every provider implements the same small interface: a chat call with a
// requested model, the model list it serves, and a health probe. Cost on
// a response is always derived from the cost book, never from vendor
// billing metadata, so estimates and actuals reconcile exactly.
//
// # Assumptions
//
// API keys come from the environment at construction. An adapter with no
// key fails construction; the registry simply runs without that
// provider.
package llm

import (
	"context"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// Provider is one upstream LLM vendor.
type Provider interface {
	// Name returns the provider identifier used across routing, the
	// cost book and artifacts ("openai", "anthropic", "perplexity").
	Name() string

	// Chat performs one completion with the given model.
	Chat(ctx context.Context, model string, req datatypes.ChatRequest) (datatypes.ChatResponse, error)

	// Models lists the model ids this adapter serves.
	Models() []string

	// HealthCheck probes the provider with a minimal request.
	HealthCheck(ctx context.Context) error
}
