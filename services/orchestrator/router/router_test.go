// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"testing"

	"github.com/meridian-ai/meridian/services/orchestrator/costbook"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBudget is a fixed budget view.
type stubBudget struct {
	emergency bool
	disabled  map[string]bool
	remaining float64
}

func (s stubBudget) IsEmergencyMode() bool            { return s.emergency }
func (s stubBudget) IsProviderDisabled(p string) bool { return s.disabled[p] }
func (s stubBudget) GetStatus(datatypes.Period) datatypes.BudgetStatus {
	return datatypes.BudgetStatus{Remaining: s.remaining}
}

func healthyBudget() stubBudget {
	return stubBudget{remaining: 10.0}
}

func newTestRouter(budget BudgetState) *Router {
	return New(costbook.New(), budget, DefaultConfig())
}

func simpleRealtimeQuery() datatypes.ClassifiedQuery {
	return datatypes.ClassifiedQuery{
		Text:            "What is the current Bitcoin price?",
		Complexity:      datatypes.ComplexitySimple,
		Intent:          datatypes.IntentSearch,
		IsRealtime:      true,
		EstimatedTokens: 9,
	}
}

func mediumQuery() datatypes.ClassifiedQuery {
	return datatypes.ClassifiedQuery{
		Text:            "Compare the trade-offs between REST and gRPC for internal services",
		Complexity:      datatypes.ComplexityMedium,
		Intent:          datatypes.IntentReasoning,
		EstimatedTokens: 17,
	}
}

func complexQuery() datatypes.ClassifiedQuery {
	return datatypes.ClassifiedQuery{
		Text:            "Design a multi-region failover architecture",
		Complexity:      datatypes.ComplexityComplex,
		Intent:          datatypes.IntentReasoning,
		EstimatedTokens: 11,
	}
}

// TestDecide_DefaultIsCascade verifies strategy resolution without
// override or latch.
func TestDecide_DefaultIsCascade(t *testing.T) {
	r := newTestRouter(healthyBudget())

	d := r.Decide(mediumQuery(), "")
	assert.Equal(t, datatypes.StrategyCascade, d.Strategy)
	require.Len(t, d.CascadeChain, 3)
	assert.False(t, d.EmergencyMode)
}

// TestDecide_RealtimeCascadeOpensWithSearch covers the realtime pin:
// tier one must be search-capable.
func TestDecide_RealtimeCascadeOpensWithSearch(t *testing.T) {
	r := newTestRouter(healthyBudget())

	d := r.Decide(simpleRealtimeQuery(), "")
	require.NotEmpty(t, d.CascadeChain)

	book := costbook.New()
	head, ok := book.Get(d.CascadeChain[0].Provider, d.CascadeChain[0].Model)
	require.True(t, ok)
	assert.True(t, head.HasCapability(costbook.CapabilityWebSearch))
}

// TestDecide_CascadeThresholdsRise pins the default quality ladder.
func TestDecide_CascadeThresholdsRise(t *testing.T) {
	r := newTestRouter(healthyBudget())

	d := r.Decide(mediumQuery(), "")
	require.Len(t, d.CascadeChain, 3)
	assert.Equal(t, 7.0, d.CascadeChain[0].QualityThreshold)
	assert.Equal(t, 8.5, d.CascadeChain[1].QualityThreshold)
	assert.Equal(t, 9.0, d.CascadeChain[2].QualityThreshold)
}

// TestDecide_LatchForcesEmergency verifies the latch overrides even an
// explicit caller strategy.
func TestDecide_LatchForcesEmergency(t *testing.T) {
	r := newTestRouter(stubBudget{emergency: true, remaining: 1.0})

	d := r.Decide(mediumQuery(), datatypes.StrategyPriority)
	assert.Equal(t, datatypes.StrategyEmergency, d.Strategy)
	assert.True(t, d.EmergencyMode)
	assert.Empty(t, d.CascadeChain)
}

func TestDecide_OverrideRespected(t *testing.T) {
	r := newTestRouter(healthyBudget())

	d := r.Decide(mediumQuery(), datatypes.StrategyCostOptimized)
	assert.Equal(t, datatypes.StrategyCostOptimized, d.Strategy)
}

// TestDecide_CostOptimized picks the ranking head, filtered to search
// capability for realtime queries.
func TestDecide_CostOptimized(t *testing.T) {
	r := newTestRouter(healthyBudget())

	d := r.Decide(mediumQuery(), datatypes.StrategyCostOptimized)
	assert.Equal(t, "gpt-4o-mini", d.Model)

	d = r.Decide(simpleRealtimeQuery(), datatypes.StrategyCostOptimized)
	assert.Equal(t, "perplexity", d.Provider)
	assert.Equal(t, "sonar", d.Model)
}

// TestDecide_PriorityBranches walks the capability branching table.
func TestDecide_PriorityBranches(t *testing.T) {
	r := newTestRouter(healthyBudget())

	d := r.Decide(simpleRealtimeQuery(), datatypes.StrategyPriority)
	assert.Equal(t, "perplexity", d.Provider, "search queries go to a search provider")

	d = r.Decide(mediumQuery(), datatypes.StrategyPriority)
	book := costbook.New()
	p, ok := book.Get(d.Provider, d.Model)
	require.True(t, ok)
	assert.True(t, p.HasCapability(costbook.CapabilityReasoning), "reasoning intent needs a reasoning model")

	code := datatypes.ClassifiedQuery{
		Text:            "Write a function that merges two sorted lists",
		Complexity:      datatypes.ComplexityMedium,
		Intent:          datatypes.IntentCode,
		EstimatedTokens: 12,
	}
	d = r.Decide(code, datatypes.StrategyPriority)
	p, ok = book.Get(d.Provider, d.Model)
	require.True(t, ok)
	assert.True(t, p.HasCapability(costbook.CapabilityCode))
}

// TestDecide_DisabledProviderReroutes covers the post-check: priority
// picks a disabled provider, the router falls back to emergency and the
// result avoids that provider.
func TestDecide_DisabledProviderReroutes(t *testing.T) {
	budget := stubBudget{
		emergency: false,
		disabled:  map[string]bool{"anthropic": true},
		remaining: 10.0,
	}
	r := newTestRouter(budget)

	// Complex priority routing lands on the highest tier, which is an
	// anthropic model in the default registry.
	d := r.Decide(complexQuery(), datatypes.StrategyPriority)
	assert.Equal(t, datatypes.StrategyEmergency, d.Strategy)
	assert.NotEqual(t, "anthropic", d.Provider)
}

// TestDecide_EmergencyFallsBackWhenNothingFits covers the hardcoded
// floor: zero remaining budget and every provider disabled.
func TestDecide_EmergencyFallsBackWhenNothingFits(t *testing.T) {
	budget := stubBudget{
		emergency: true,
		disabled:  map[string]bool{"openai": true, "anthropic": true, "perplexity": true},
		remaining: 0,
	}
	r := newTestRouter(budget)

	d := r.Decide(mediumQuery(), "")
	assert.Equal(t, datatypes.StrategyEmergency, d.Strategy)
	assert.Equal(t, "openai", d.Provider)
	assert.Equal(t, "gpt-4o-mini", d.Model)
}

// TestDecide_EstimatedCostMatchesBook verifies the decision's estimate
// is exactly the book's estimate for the selected model.
func TestDecide_EstimatedCostMatchesBook(t *testing.T) {
	r := newTestRouter(healthyBudget())
	q := mediumQuery()

	d := r.Decide(q, datatypes.StrategyCostOptimized)

	book := costbook.New()
	outTok := costbook.EstimateOutputTokens(q.Complexity, q.EstimatedTokens)
	want := book.EstimateCost(d.Provider, d.Model, q.EstimatedTokens, outTok)
	assert.Equal(t, want, d.EstimatedCost)
}
