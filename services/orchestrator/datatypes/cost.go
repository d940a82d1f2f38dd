// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// ModelCostProfile describes the pricing and capability envelope of one
// model at one provider. Profiles live in the cost book for the lifetime
// of the process and are the single source of pricing truth; provider
// adapters derive their own estimates from the same numbers.
type ModelCostProfile struct {
	Provider        string       `json:"provider"`
	Model           string       `json:"model"`
	InputCostPer1K  float64      `json:"inputCostPer1k"`  // USD per 1000 input tokens
	OutputCostPer1K float64      `json:"outputCostPer1k"` // USD per 1000 output tokens
	PerRequestCost  float64      `json:"perRequestCost"`  // flat USD fee per call
	ContextWindow   int          `json:"contextWindow"`
	MaxOutputTokens int          `json:"maxOutputTokens"`
	SuitableFor     []Complexity `json:"suitableFor"`
	Capabilities    []string     `json:"capabilities"`
}

// HasCapability reports whether the profile lists the given capability.
func (p ModelCostProfile) HasCapability(cap string) bool {
	for _, c := range p.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// SuitableForComplexity reports whether the profile is rated for the band.
func (p ModelCostProfile) SuitableForComplexity(c Complexity) bool {
	for _, s := range p.SuitableFor {
		if s == c {
			return true
		}
	}
	return false
}

// CostBreakdown itemizes an estimate into its three components.
// EstimatedCost on the parent always equals Input + Output + PerRequest.
type CostBreakdown struct {
	InputCost      float64 `json:"inputCost"`
	OutputCost     float64 `json:"outputCost"`
	PerRequestCost float64 `json:"perRequestCost"`
}

// CostEstimate is a pure, pre-call projection of what a request will cost.
type CostEstimate struct {
	Provider              string        `json:"provider"`
	Model                 string        `json:"model"`
	EstimatedInputTokens  int           `json:"estimatedInputTokens"`
	EstimatedOutputTokens int           `json:"estimatedOutputTokens"`
	EstimatedCost         float64       `json:"estimatedCost"`
	Breakdown             CostBreakdown `json:"breakdown"`
}

// ActualCost records what a completed provider call really cost, computed
// from the returned token usage. Appended to the budget tracker's log.
type ActualCost struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"inputTokens"`
	OutputTokens int       `json:"outputTokens"`
	TotalCost    float64   `json:"totalCost"`
	Timestamp    time.Time `json:"timestamp"`
}
