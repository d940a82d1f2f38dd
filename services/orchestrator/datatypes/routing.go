// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Strategy identifies how a routing decision was made. Cache hits are
// represented as a separate artifact type, never as a strategy.
type Strategy string

const (
	// StrategyPriority routes by capability: search queries to search
	// providers, reasoning to reasoning models, and so on.
	StrategyPriority Strategy = "priority"

	// StrategyCostOptimized always picks the cheapest suitable model.
	StrategyCostOptimized Strategy = "cost-optimized"

	// StrategyCascade builds an escalation chain that starts cheap and
	// climbs tiers only when measured quality misses the gate.
	StrategyCascade Strategy = "cascade"

	// StrategyEmergency is forced while the budget latch is active; it
	// routes to the cheapest model that fits the remaining daily budget.
	StrategyEmergency Strategy = "emergency"
)

// ValidStrategy reports whether s is one of the recognized strategies.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyPriority, StrategyCostOptimized, StrategyCascade, StrategyEmergency:
		return true
	}
	return false
}

// CascadeStep is one rung of an escalation chain. The executor accepts a
// response at this step when its quality score meets QualityThreshold.
type CascadeStep struct {
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	QualityThreshold float64 `json:"qualityThreshold"` // 0-10
	MaxCost          float64 `json:"maxCost"`          // USD ceiling for this step
}

// RoutingDecision is the router's immutable answer for one request.
// CascadeChain is non-empty exactly when Strategy is StrategyCascade.
type RoutingDecision struct {
	Provider      string        `json:"provider"`
	Model         string        `json:"model"`
	Strategy      Strategy      `json:"strategy"`
	Reason        string        `json:"reason"`
	EstimatedCost CostEstimate  `json:"estimatedCost"`
	CascadeChain  []CascadeStep `json:"cascadeChain,omitempty"`
	EmergencyMode bool          `json:"emergencyMode"`
}
