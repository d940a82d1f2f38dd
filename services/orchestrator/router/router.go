// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package router turns a classified query plus budget state into a
// routing decision.
//
// # Description
//
// Strategy resolution is strict: the budget latch forces emergency, then
// a caller override applies, then the configured default (cascade). Each
// strategy selects from the cost book's registry; cascade additionally
// builds a three-tier escalation chain whose quality gates rise with
// each rung. A post-check re-routes through emergency whenever the
// chosen provider is disabled by the latch.
//
// # Thread Safety
//
// A Router is immutable after construction and safe for concurrent use;
// all mutable state lives in the budget tracker it reads.
package router

import (
	"fmt"

	"github.com/meridian-ai/meridian/services/orchestrator/costbook"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// BudgetState is the slice of the budget tracker the router reads.
type BudgetState interface {
	IsEmergencyMode() bool
	IsProviderDisabled(provider string) bool
	GetStatus(period datatypes.Period) datatypes.BudgetStatus
}

// Config tunes routing behavior.
type Config struct {
	// DefaultStrategy applies when the caller sends no override.
	// Default cascade.
	DefaultStrategy datatypes.Strategy

	// CascadeMinQuality is the acceptance bar at the first cascade
	// tier; later tiers demand more. Default 7.0.
	CascadeMinQuality float64
}

// DefaultConfig returns the shipped routing tuning.
func DefaultConfig() Config {
	return Config{
		DefaultStrategy:   datatypes.StrategyCascade,
		CascadeMinQuality: 7.0,
	}
}

// fallbackProvider/Model is the hardcoded floor when even the emergency
// scan finds nothing within budget.
const (
	fallbackProvider = "openai"
	fallbackModel    = "gpt-4o-mini"
)

// Router computes routing decisions.
type Router struct {
	book   *costbook.Book
	budget BudgetState
	cfg    Config
}

// New returns a Router over the given cost book and budget state.
func New(book *costbook.Book, budget BudgetState, cfg Config) *Router {
	def := DefaultConfig()
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = def.DefaultStrategy
	}
	if cfg.CascadeMinQuality <= 0 {
		cfg.CascadeMinQuality = def.CascadeMinQuality
	}
	return &Router{book: book, budget: budget, cfg: cfg}
}

// Decide produces the routing decision for a classified query. override
// is the caller's optional strategy; an empty value defers to the
// default.
func (r *Router) Decide(query datatypes.ClassifiedQuery, override datatypes.Strategy) datatypes.RoutingDecision {
	strategy := r.resolveStrategy(override)

	var decision datatypes.RoutingDecision
	switch strategy {
	case datatypes.StrategyPriority:
		decision = r.decidePriority(query)
	case datatypes.StrategyCostOptimized:
		decision = r.decideCostOptimized(query)
	case datatypes.StrategyEmergency:
		decision = r.decideEmergency(query)
	default:
		decision = r.decideCascade(query)
	}

	// The latch can disable a provider the strategy still prefers.
	if r.budget.IsProviderDisabled(decision.Provider) && decision.Strategy != datatypes.StrategyEmergency {
		decision = r.decideEmergency(query)
		decision.Reason = "selected provider disabled by emergency mode; " + decision.Reason
	}

	decision.EmergencyMode = r.budget.IsEmergencyMode()
	return decision
}

func (r *Router) resolveStrategy(override datatypes.Strategy) datatypes.Strategy {
	if r.budget.IsEmergencyMode() {
		return datatypes.StrategyEmergency
	}
	if datatypes.ValidStrategy(override) {
		return override
	}
	return r.cfg.DefaultStrategy
}

// =============================================================================
// Strategies
// =============================================================================

func (r *Router) decidePriority(query datatypes.ClassifiedQuery) datatypes.RoutingDecision {
	needsSearch := query.IsRealtime || query.Intent == datatypes.IntentSearch

	var profile datatypes.ModelCostProfile
	var reason string
	switch {
	case needsSearch:
		profile = r.cheapestWithCapability(query, costbook.CapabilityWebSearch)
		reason = "realtime or search intent routed to a search-capable model"
	case query.Intent == datatypes.IntentReasoning:
		profile = r.cheapestWithCapability(query, costbook.CapabilityReasoning)
		reason = "reasoning intent routed to a reasoning-capable model"
	case query.Intent == datatypes.IntentCode:
		profile = r.bestWithCapability(query, costbook.CapabilityCode)
		reason = "code intent routed to the strongest code model"
	case query.Complexity == datatypes.ComplexityComplex:
		profile = r.highestTier(query)
		reason = "complex query routed to the highest available tier"
	default:
		profile = r.cheapestSuitable(query)
		reason = "routed to the cheapest suitable model"
	}

	return r.decisionFor(profile, datatypes.StrategyPriority, reason, query)
}

func (r *Router) decideCostOptimized(query datatypes.ClassifiedQuery) datatypes.RoutingDecision {
	inTok := query.EstimatedTokens
	outTok := costbook.EstimateOutputTokens(query.Complexity, inTok)

	ranked := r.book.ListModelsByCost(query.Complexity, inTok, outTok)
	needsSearch := query.IsRealtime || query.Intent == datatypes.IntentSearch
	if needsSearch {
		filtered := ranked[:0:0]
		for _, p := range ranked {
			if p.HasCapability(costbook.CapabilityWebSearch) {
				filtered = append(filtered, p)
			}
		}
		ranked = filtered
	}

	if len(ranked) == 0 {
		return r.decideEmergency(query)
	}
	return r.decisionFor(ranked[0], datatypes.StrategyCostOptimized, "cheapest model at the head of the cost ranking", query)
}

func (r *Router) decideCascade(query datatypes.ClassifiedQuery) datatypes.RoutingDecision {
	chain := r.buildChain(query)

	head := chain[0]
	decision := r.decisionForModel(head.Provider, head.Model, datatypes.StrategyCascade,
		fmt.Sprintf("cascade over %d tiers starting at %s/%s", len(chain), head.Provider, head.Model), query)
	decision.CascadeChain = chain
	return decision
}

func (r *Router) decideEmergency(query datatypes.ClassifiedQuery) datatypes.RoutingDecision {
	inTok := query.EstimatedTokens
	outTok := costbook.EstimateOutputTokens(query.Complexity, inTok)
	remaining := r.budget.GetStatus(datatypes.PeriodDaily).Remaining

	// Cheapest model that both fits the remaining budget and is not on
	// the latch's disable list.
	for _, p := range r.book.ListModelsByCost(query.Complexity, inTok, outTok) {
		if r.budget.IsProviderDisabled(p.Provider) {
			continue
		}
		if r.book.EstimateCost(p.Provider, p.Model, inTok, outTok).EstimatedCost <= remaining {
			return r.decisionFor(p, datatypes.StrategyEmergency, "cheapest model within the remaining daily budget", query)
		}
	}

	// Nothing fits; degrade to the cheapest non-disabled model, then to
	// the hardcoded floor.
	for _, p := range r.book.ListModelsByCost(query.Complexity, inTok, outTok) {
		if !r.budget.IsProviderDisabled(p.Provider) {
			return r.decisionFor(p, datatypes.StrategyEmergency, "no model fits the remaining budget; using cheapest available", query)
		}
	}
	return r.decisionForModel(fallbackProvider, fallbackModel, datatypes.StrategyEmergency,
		"no suitable model available; using hardcoded fallback", query)
}

// =============================================================================
// Cascade chains
// =============================================================================

// chainModels are the fixed three-tier ladders per complexity band. Tier
// one is the cheapest search-capable model for the band so realtime
// queries need no rebuild.
var chainModels = map[datatypes.Complexity][3][2]string{
	datatypes.ComplexitySimple: {
		{"perplexity", "sonar"},
		{"openai", "gpt-4o-mini"},
		{"anthropic", "claude-3-5-haiku-20241022"},
	},
	datatypes.ComplexityMedium: {
		{"perplexity", "sonar"},
		{"openai", "gpt-4o-mini"},
		{"openai", "gpt-4o"},
	},
	datatypes.ComplexityComplex: {
		{"perplexity", "sonar-pro"},
		{"openai", "gpt-4o"},
		{"anthropic", "claude-3-5-sonnet-20241022"},
	},
}

// tierBumps raises the quality gate at each rung above the configured
// minimum.
var tierBumps = [3]float64{0, 1.5, 2.0}

func (r *Router) buildChain(query datatypes.ClassifiedQuery) []datatypes.CascadeStep {
	models, ok := chainModels[query.Complexity]
	if !ok {
		models = chainModels[datatypes.ComplexityMedium]
	}

	inTok := query.EstimatedTokens
	outTok := costbook.EstimateOutputTokens(query.Complexity, inTok)

	chain := make([]datatypes.CascadeStep, 0, len(models))
	for i, pm := range models {
		threshold := r.cfg.CascadeMinQuality + tierBumps[i]
		if threshold > 10 {
			threshold = 10
		}
		chain = append(chain, datatypes.CascadeStep{
			Provider:         pm[0],
			Model:            pm[1],
			QualityThreshold: threshold,
			MaxCost:          r.book.EstimateCost(pm[0], pm[1], inTok, outTok).EstimatedCost,
		})
	}

	// Realtime queries must open with a search-capable tier.
	if query.IsRealtime {
		if p, ok := r.book.Get(chain[0].Provider, chain[0].Model); !ok || !p.HasCapability(costbook.CapabilityWebSearch) {
			search := r.cheapestWithCapability(query, costbook.CapabilityWebSearch)
			chain[0].Provider = search.Provider
			chain[0].Model = search.Model
			chain[0].MaxCost = r.book.EstimateCost(search.Provider, search.Model, inTok, outTok).EstimatedCost
		}
	}
	return chain
}

// =============================================================================
// Selection helpers
// =============================================================================

func (r *Router) cheapestSuitable(query datatypes.ClassifiedQuery) datatypes.ModelCostProfile {
	inTok := query.EstimatedTokens
	outTok := costbook.EstimateOutputTokens(query.Complexity, inTok)
	ranked := r.book.ListModelsByCost(query.Complexity, inTok, outTok)
	if len(ranked) == 0 {
		p, _ := r.book.Get(fallbackProvider, fallbackModel)
		return p
	}
	return ranked[0]
}

func (r *Router) cheapestWithCapability(query datatypes.ClassifiedQuery, capability string) datatypes.ModelCostProfile {
	inTok := query.EstimatedTokens
	outTok := costbook.EstimateOutputTokens(query.Complexity, inTok)
	for _, p := range r.book.ListModelsByCost(query.Complexity, inTok, outTok) {
		if p.HasCapability(capability) {
			return p
		}
	}
	return r.cheapestSuitable(query)
}

func (r *Router) bestWithCapability(query datatypes.ClassifiedQuery, capability string) datatypes.ModelCostProfile {
	inTok := query.EstimatedTokens
	outTok := costbook.EstimateOutputTokens(query.Complexity, inTok)
	ranked := r.book.ListModelsByCost(query.Complexity, inTok, outTok)
	for i := len(ranked) - 1; i >= 0; i-- {
		if ranked[i].HasCapability(capability) {
			return ranked[i]
		}
	}
	return r.cheapestSuitable(query)
}

func (r *Router) highestTier(query datatypes.ClassifiedQuery) datatypes.ModelCostProfile {
	inTok := query.EstimatedTokens
	outTok := costbook.EstimateOutputTokens(query.Complexity, inTok)
	ranked := r.book.ListModelsByCost(query.Complexity, inTok, outTok)
	if len(ranked) == 0 {
		return r.cheapestSuitable(query)
	}
	return ranked[len(ranked)-1]
}

func (r *Router) decisionFor(p datatypes.ModelCostProfile, strategy datatypes.Strategy, reason string, query datatypes.ClassifiedQuery) datatypes.RoutingDecision {
	return r.decisionForModel(p.Provider, p.Model, strategy, reason, query)
}

func (r *Router) decisionForModel(provider, model string, strategy datatypes.Strategy, reason string, query datatypes.ClassifiedQuery) datatypes.RoutingDecision {
	inTok := query.EstimatedTokens
	outTok := costbook.EstimateOutputTokens(query.Complexity, inTok)
	return datatypes.RoutingDecision{
		Provider:      provider,
		Model:         model,
		Strategy:      strategy,
		Reason:        reason,
		EstimatedCost: r.book.EstimateCost(provider, model, inTok, outTok),
	}
}
