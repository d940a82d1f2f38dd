// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

const (
	maxRetries  = 2
	retryBase   = 500 * time.Millisecond
	retryCap    = 30 * time.Second
	retryJitter = 200 * time.Millisecond
)

// withRetry runs call up to 1+maxRetries times with exponential backoff
// and jitter. Client faults (4xx other than 429) are never retried; a
// provider Retry-After hint overrides the computed backoff.
func withRetry(ctx context.Context, provider, model string, call func() (datatypes.ChatResponse, error)) (datatypes.ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt, lastErr)
			slog.Debug("retrying provider call",
				"provider", provider, "model", model, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return datatypes.ChatResponse{}, ctx.Err()
			}
		}

		resp, err := call()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) {
			break
		}
	}
	return datatypes.ChatResponse{}, lastErr
}

func retryable(err error) bool {
	pe, ok := datatypes.IsProviderError(err)
	if !ok {
		return false
	}
	// Transport errors (status 0), 429 and 5xx are worth a retry.
	return pe.StatusCode == 0 || pe.StatusCode == 429 || pe.StatusCode >= 500
}

func backoff(attempt int, lastErr error) time.Duration {
	if pe, ok := datatypes.IsProviderError(lastErr); ok && pe.RetryAfter > 0 {
		return time.Duration(pe.RetryAfter) * time.Second
	}
	delay := retryBase << (attempt - 1)
	if delay > retryCap {
		delay = retryCap
	}
	jitter := time.Duration(rand.Int63n(int64(2*retryJitter))) - retryJitter
	if delay+jitter < 0 {
		return delay
	}
	return delay + jitter
}
