// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"errors"
	"fmt"
)

// Error taxonomy for the gateway. Core layers never catch to hide; they
// wrap with %w and convert to one of these kinds at package boundaries.
// The HTTP layer maps kinds to status codes.
var (
	// ErrInvalidInput marks client faults (missing content, bad body).
	ErrInvalidInput = errors.New("invalid input")

	// ErrBudgetExceeded marks daily percent-used >= 100. The request is
	// rejected before any provider call.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrAllCascadeStepsFailed marks a cascade where every step raised a
	// provider failure.
	ErrAllCascadeStepsFailed = errors.New("all cascade steps failed")

	// ErrModelNotFound marks a lookup for an unregistered model. The
	// cost book deliberately does not return this from estimates (it
	// returns a zero-cost sentinel); it exists for callers that need a
	// hard failure.
	ErrModelNotFound = errors.New("model not found")
)

// ProviderError wraps an upstream failure with enough context to route
// around it: provider, model, HTTP status (0 for transport errors), and a
// retry-after hint in seconds when the provider sent one.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int
	RetryAfter int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s (model %s) failed with status %d: %v",
			e.Provider, e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s (model %s) failed: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimited reports whether the provider signalled 429.
func (e *ProviderError) RateLimited() bool { return e.StatusCode == 429 }

// IsProviderError extracts a ProviderError from an error chain.
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
