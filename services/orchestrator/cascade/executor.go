// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cascade drives an escalation chain: call the cheapest model,
// score the answer, accept it or climb to the next tier.
//
// # Description
//
// Execute walks the chain in order. A step failure is recorded and the
// walk continues; a success is scored and accepted immediately when it
// meets the step's quality gate. When no step clears its gate the best
// scored response wins. Only a chain where every step failed returns an
// error.
//
// # Thread Safety
//
// Execute holds no state between calls; concurrency is the caller's
// concern. Steps within one execution run strictly sequentially, which
// is the point of a cascade.
package cascade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// RunFunc performs the provider call for one step.
type RunFunc func(ctx context.Context, provider, model string) (datatypes.ChatResponse, error)

// EvaluateFunc scores a step's response on the 0-10 quality scale.
type EvaluateFunc func(resp datatypes.ChatResponse) float64

// StepFunc observes each completed step: escalation artifacts and
// metrics hang off this callback.
type StepFunc func(provider, model string, score float64, index int)

// StepFailure records one failed rung of the chain.
type StepFailure struct {
	Index    int
	Provider string
	Model    string
	Err      error
}

// Result is the outcome of a cascade execution.
type Result struct {
	Response datatypes.ChatResponse

	// Score is the quality score of the returned response.
	Score float64

	// StepIndex is the chain position of the returned response.
	StepIndex int

	// MetThreshold is false when the result is only the best effort
	// across steps rather than a gate-clearing answer.
	MetThreshold bool

	// Failures lists the steps that errored before the result.
	Failures []StepFailure
}

// Execute runs the chain. onStep may be nil. The returned step index is
// the smallest i whose score meets its threshold, or the argmax over
// scored steps when none does. Every step failing yields
// datatypes.ErrAllCascadeStepsFailed.
func Execute(ctx context.Context, chain []datatypes.CascadeStep, run RunFunc, evaluate EvaluateFunc, onStep StepFunc) (Result, error) {
	if len(chain) == 0 {
		return Result{}, fmt.Errorf("%w: empty chain", datatypes.ErrAllCascadeStepsFailed)
	}

	var failures []StepFailure
	best := Result{StepIndex: -1}

	for i, step := range chain {
		resp, err := run(ctx, step.Provider, step.Model)
		if err != nil {
			slog.Warn("cascade step failed",
				"step", i, "provider", step.Provider, "model", step.Model, "error", err)
			failures = append(failures, StepFailure{
				Index: i, Provider: step.Provider, Model: step.Model, Err: err,
			})
			continue
		}

		score := evaluate(resp)
		if onStep != nil {
			onStep(step.Provider, step.Model, score, i)
		}

		if score >= step.QualityThreshold {
			return Result{
				Response:     resp,
				Score:        score,
				StepIndex:    i,
				MetThreshold: true,
				Failures:     failures,
			}, nil
		}

		if best.StepIndex < 0 || score > best.Score {
			best = Result{Response: resp, Score: score, StepIndex: i}
		}
	}

	if best.StepIndex < 0 {
		return Result{Failures: failures}, fmt.Errorf("%w: %d steps attempted", datatypes.ErrAllCascadeStepsFailed, len(chain))
	}
	best.Failures = failures
	return best, nil
}
