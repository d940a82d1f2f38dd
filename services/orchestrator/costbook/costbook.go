// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package costbook is the static registry of model cost profiles and the
// pure cost-estimation functions built on it.
//
// # Description
//
// The cost book is the single source of pricing truth for the gateway.
// Provider adapters and the router both derive their estimates from the
// same profiles, so a price correction lands in exactly one place.
// Estimating a model the book does not know returns a zero-cost sentinel
// rather than an error; the router treats such models as free and the
// budget tracker records whatever the provider actually reported.
//
// # Thread Safety
//
// A Book is immutable after construction and safe for concurrent use.
package costbook

import (
	"sort"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// Capability names used across profiles and routing.
const (
	CapabilityWebSearch = "web_search"
	CapabilityReasoning = "reasoning"
	CapabilityCode      = "code"
	CapabilityCitations = "citations"
)

// Book holds the process-lifetime registry of model cost profiles.
type Book struct {
	profiles []datatypes.ModelCostProfile
	index    map[string]datatypes.ModelCostProfile // provider + "/" + model
}

// New returns a Book loaded with the default model registry.
func New() *Book {
	return NewWithProfiles(defaultProfiles())
}

// NewWithProfiles returns a Book over the given profiles. Intended for
// tests and deployments with a custom model fleet.
func NewWithProfiles(profiles []datatypes.ModelCostProfile) *Book {
	b := &Book{
		profiles: profiles,
		index:    make(map[string]datatypes.ModelCostProfile, len(profiles)),
	}
	for _, p := range profiles {
		b.index[key(p.Provider, p.Model)] = p
	}
	return b
}

func key(provider, model string) string { return provider + "/" + model }

// Get returns the profile for a provider/model pair.
func (b *Book) Get(provider, model string) (datatypes.ModelCostProfile, bool) {
	p, ok := b.index[key(provider, model)]
	return p, ok
}

// All returns every registered profile.
func (b *Book) All() []datatypes.ModelCostProfile {
	out := make([]datatypes.ModelCostProfile, len(b.profiles))
	copy(out, b.profiles)
	return out
}

// EstimateCost projects the cost of a call. The estimate always satisfies
// EstimatedCost == Breakdown.InputCost + Breakdown.OutputCost +
// Breakdown.PerRequestCost. An unknown model yields a zero-cost estimate,
// not an error.
func (b *Book) EstimateCost(provider, model string, inputTokens, outputTokens int) datatypes.CostEstimate {
	est := datatypes.CostEstimate{
		Provider:              provider,
		Model:                 model,
		EstimatedInputTokens:  inputTokens,
		EstimatedOutputTokens: outputTokens,
	}
	p, ok := b.Get(provider, model)
	if !ok {
		return est
	}

	est.Breakdown = datatypes.CostBreakdown{
		InputCost:      float64(inputTokens) / 1000.0 * p.InputCostPer1K,
		OutputCost:     float64(outputTokens) / 1000.0 * p.OutputCostPer1K,
		PerRequestCost: p.PerRequestCost,
	}
	est.EstimatedCost = est.Breakdown.InputCost + est.Breakdown.OutputCost + est.Breakdown.PerRequestCost
	return est
}

// EstimateOutputTokens projects how many tokens a response will need for
// a given complexity band: roughly a multiple of the input size, floored
// and capped per band.
func EstimateOutputTokens(complexity datatypes.Complexity, inputTokens int) int {
	switch complexity {
	case datatypes.ComplexitySimple:
		return clampInt(2*inputTokens, 50, 200)
	case datatypes.ComplexityMedium:
		return clampInt(3*inputTokens, 200, 800)
	default:
		return clampInt(4*inputTokens, 500, 4000)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ListModelsByCost returns the profiles whose SuitableFor includes the
// complexity band, sorted ascending by estimated cost for the given token
// counts. Ties break by provider then model name for determinism.
func (b *Book) ListModelsByCost(complexity datatypes.Complexity, inputTokens, outputTokens int) []datatypes.ModelCostProfile {
	var suitable []datatypes.ModelCostProfile
	for _, p := range b.profiles {
		if p.SuitableForComplexity(complexity) {
			suitable = append(suitable, p)
		}
	}
	sort.SliceStable(suitable, func(i, j int) bool {
		ci := b.EstimateCost(suitable[i].Provider, suitable[i].Model, inputTokens, outputTokens).EstimatedCost
		cj := b.EstimateCost(suitable[j].Provider, suitable[j].Model, inputTokens, outputTokens).EstimatedCost
		if ci != cj {
			return ci < cj
		}
		if suitable[i].Provider != suitable[j].Provider {
			return suitable[i].Provider < suitable[j].Provider
		}
		return suitable[i].Model < suitable[j].Model
	})
	return suitable
}

// CheapestModelWithinBudget returns the first model of the cost ranking
// whose estimate fits the remaining budget, or false when nothing fits.
func (b *Book) CheapestModelWithinBudget(complexity datatypes.Complexity, inputTokens, outputTokens int, remaining float64) (datatypes.ModelCostProfile, bool) {
	for _, p := range b.ListModelsByCost(complexity, inputTokens, outputTokens) {
		if b.EstimateCost(p.Provider, p.Model, inputTokens, outputTokens).EstimatedCost <= remaining {
			return p, true
		}
	}
	return datatypes.ModelCostProfile{}, false
}

// defaultProfiles is the shipped model fleet. Prices are USD per 1000
// tokens. The Perplexity per-request fee is $0.005 and is charged on
// every call regardless of token usage.
func defaultProfiles() []datatypes.ModelCostProfile {
	return []datatypes.ModelCostProfile{
		{
			Provider: "perplexity", Model: "sonar",
			InputCostPer1K: 0.001, OutputCostPer1K: 0.001, PerRequestCost: 0.005,
			ContextWindow: 127072, MaxOutputTokens: 4000,
			SuitableFor:  []datatypes.Complexity{datatypes.ComplexitySimple, datatypes.ComplexityMedium},
			Capabilities: []string{CapabilityWebSearch, CapabilityCitations},
		},
		{
			Provider: "perplexity", Model: "sonar-pro",
			InputCostPer1K: 0.003, OutputCostPer1K: 0.015, PerRequestCost: 0.005,
			ContextWindow: 200000, MaxOutputTokens: 8000,
			SuitableFor:  []datatypes.Complexity{datatypes.ComplexityMedium, datatypes.ComplexityComplex},
			Capabilities: []string{CapabilityWebSearch, CapabilityCitations},
		},
		{
			Provider: "openai", Model: "gpt-4o-mini",
			InputCostPer1K: 0.00015, OutputCostPer1K: 0.0006, PerRequestCost: 0,
			ContextWindow: 128000, MaxOutputTokens: 16384,
			SuitableFor:  []datatypes.Complexity{datatypes.ComplexitySimple, datatypes.ComplexityMedium},
			Capabilities: []string{CapabilityCode},
		},
		{
			Provider: "openai", Model: "gpt-4o",
			InputCostPer1K: 0.0025, OutputCostPer1K: 0.01, PerRequestCost: 0,
			ContextWindow: 128000, MaxOutputTokens: 16384,
			SuitableFor:  []datatypes.Complexity{datatypes.ComplexityMedium, datatypes.ComplexityComplex},
			Capabilities: []string{CapabilityCode, CapabilityReasoning},
		},
		{
			Provider: "anthropic", Model: "claude-3-5-haiku-20241022",
			InputCostPer1K: 0.0008, OutputCostPer1K: 0.004, PerRequestCost: 0,
			ContextWindow: 200000, MaxOutputTokens: 8192,
			SuitableFor:  []datatypes.Complexity{datatypes.ComplexitySimple, datatypes.ComplexityMedium},
			Capabilities: []string{CapabilityCode},
		},
		{
			Provider: "anthropic", Model: "claude-3-5-sonnet-20241022",
			InputCostPer1K: 0.003, OutputCostPer1K: 0.015, PerRequestCost: 0,
			ContextWindow: 200000, MaxOutputTokens: 8192,
			SuitableFor:  []datatypes.Complexity{datatypes.ComplexityMedium, datatypes.ComplexityComplex},
			Capabilities: []string{CapabilityCode, CapabilityReasoning},
		},
		{
			Provider: "anthropic", Model: "claude-3-opus-20240229",
			InputCostPer1K: 0.015, OutputCostPer1K: 0.075, PerRequestCost: 0,
			ContextWindow: 200000, MaxOutputTokens: 4096,
			SuitableFor:  []datatypes.Complexity{datatypes.ComplexityComplex},
			Capabilities: []string{CapabilityReasoning},
		},
	}
}
