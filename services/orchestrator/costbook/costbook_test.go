// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package costbook

import (
	"testing"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEstimateCost_BreakdownSumsExactly verifies, for every registered
// model at representative token counts, that the estimate equals the sum
// of its breakdown components.
func TestEstimateCost_BreakdownSumsExactly(t *testing.T) {
	b := New()

	tokenCases := []struct{ in, out int }{
		{0, 0},
		{100, 200},
		{1000, 500},
		{50000, 4000},
	}

	for _, p := range b.All() {
		for _, tc := range tokenCases {
			est := b.EstimateCost(p.Provider, p.Model, tc.in, tc.out)
			sum := est.Breakdown.InputCost + est.Breakdown.OutputCost + est.Breakdown.PerRequestCost
			assert.Equal(t, sum, est.EstimatedCost,
				"%s/%s with %d/%d tokens", p.Provider, p.Model, tc.in, tc.out)
		}
	}
}

// TestEstimateCost_PerplexityPerRequestFee pins the $0.005 flat fee.
func TestEstimateCost_PerplexityPerRequestFee(t *testing.T) {
	b := New()

	est := b.EstimateCost("perplexity", "sonar", 1000, 1000)
	assert.Equal(t, 0.005, est.Breakdown.PerRequestCost)
	assert.InDelta(t, 0.001+0.001+0.005, est.EstimatedCost, 1e-12)
}

// TestEstimateCost_UnknownModelIsZeroSentinel verifies missing models
// return an explicit zero-cost estimate rather than an error.
func TestEstimateCost_UnknownModelIsZeroSentinel(t *testing.T) {
	b := New()

	est := b.EstimateCost("nobody", "ghost-model", 5000, 5000)
	assert.Equal(t, 0.0, est.EstimatedCost)
	assert.Equal(t, datatypes.CostBreakdown{}, est.Breakdown)
	assert.Equal(t, "ghost-model", est.Model)
}

// TestEstimateOutputTokens covers the per-band floors, caps and multiples.
func TestEstimateOutputTokens(t *testing.T) {
	tests := []struct {
		name       string
		complexity datatypes.Complexity
		in         int
		want       int
	}{
		{"simple floor", datatypes.ComplexitySimple, 10, 50},
		{"simple mid", datatypes.ComplexitySimple, 60, 120},
		{"simple cap", datatypes.ComplexitySimple, 500, 200},
		{"medium floor", datatypes.ComplexityMedium, 10, 200},
		{"medium mid", datatypes.ComplexityMedium, 100, 300},
		{"medium cap", datatypes.ComplexityMedium, 1000, 800},
		{"complex floor", datatypes.ComplexityComplex, 10, 500},
		{"complex mid", datatypes.ComplexityComplex, 300, 1200},
		{"complex cap", datatypes.ComplexityComplex, 5000, 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateOutputTokens(tt.complexity, tt.in))
		})
	}
}

// TestListModelsByCost_SortedAscending verifies suitability filtering and
// the ascending cost order.
func TestListModelsByCost_SortedAscending(t *testing.T) {
	b := New()

	ranked := b.ListModelsByCost(datatypes.ComplexitySimple, 1000, 500)
	require.NotEmpty(t, ranked)

	prev := -1.0
	for _, p := range ranked {
		assert.True(t, p.SuitableForComplexity(datatypes.ComplexitySimple),
			"%s/%s not rated for simple", p.Provider, p.Model)
		cost := b.EstimateCost(p.Provider, p.Model, 1000, 500).EstimatedCost
		assert.GreaterOrEqual(t, cost, prev)
		prev = cost
	}

	// gpt-4o-mini is the cheapest simple-rated model at these counts.
	assert.Equal(t, "gpt-4o-mini", ranked[0].Model)
}

// TestCheapestModelWithinBudget walks the budget boundary.
func TestCheapestModelWithinBudget(t *testing.T) {
	b := New()

	// Plenty of budget: cheapest ranked model wins.
	p, ok := b.CheapestModelWithinBudget(datatypes.ComplexitySimple, 1000, 500, 1.0)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", p.Model)

	// Nothing fits a zero budget except genuinely free models; the
	// default fleet has none.
	_, ok = b.CheapestModelWithinBudget(datatypes.ComplexityComplex, 1000, 500, 0)
	assert.False(t, ok)
}

// TestGet covers index hits and misses.
func TestGet(t *testing.T) {
	b := New()

	p, ok := b.Get("perplexity", "sonar")
	require.True(t, ok)
	assert.True(t, p.HasCapability(CapabilityWebSearch))

	_, ok = b.Get("perplexity", "does-not-exist")
	assert.False(t, ok)
}
