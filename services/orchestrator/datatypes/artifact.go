// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// ArtifactType discriminates the variants of a routing artifact. Every
// artifact shares the same header (Id, QueryId, EpochMs, Tags); the
// optional blocks that are populated depend on the type.
type ArtifactType string

const (
	ArtifactRouteDecision     ArtifactType = "route_decision"
	ArtifactCacheHit          ArtifactType = "cache_hit"
	ArtifactBudgetReject      ArtifactType = "budget_reject"
	ArtifactCascadeStep       ArtifactType = "cascade_step"
	ArtifactCascadeEscalation ArtifactType = "cascade_escalation"
	ArtifactCascadeSuccess    ArtifactType = "cascade_success"
	ArtifactError             ArtifactType = "error"
)

// CascadeTrailEntry records one attempted rung of a cascade chain.
type CascadeTrailEntry struct {
	Provider  string  `json:"provider"`
	Model     string  `json:"model"`
	Score     float64 `json:"score"`
	StepIndex int     `json:"stepIndex"`
	Accepted  bool    `json:"accepted"`
	Failed    bool    `json:"failed"`
	Error     string  `json:"error,omitempty"`
}

// ArtifactCacheInfo describes the cache hit that satisfied a query.
type ArtifactCacheInfo struct {
	QueryHash  string  `json:"queryHash"`
	Similarity float64 `json:"similarity"`
	HitCount   int     `json:"hitCount"`
	CostSaved  float64 `json:"costSaved"`
}

// ArtifactResponseInfo summarizes the response an artifact was enriched
// with. The full response text is never stored; only its shape.
type ArtifactResponseInfo struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	ContentLength  int    `json:"contentLength"`
	InputTokens    int    `json:"inputTokens"`
	OutputTokens   int    `json:"outputTokens"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	CitationCount  int    `json:"citationCount"`
}

// RoutingArtifact is the auditable record of one routing decision or
// outcome. Artifacts are immutable once enriched; EnrichWithResponse on
// the artifact store is the only permitted in-place mutation, and it may
// touch only ActualCost, Response, Quality and Confidence.
type RoutingArtifact struct {
	Id         string       `json:"id"`
	QueryId    string       `json:"queryId"`
	EpochMs    int64        `json:"epochMs"`
	Type       ArtifactType `json:"type"`
	Complexity Complexity   `json:"complexity"`

	SelectedProvider string  `json:"selectedProvider,omitempty"`
	SelectedModel    string  `json:"selectedModel,omitempty"`
	EstimatedCost    float64 `json:"estimatedCost"`
	ActualCost       float64 `json:"actualCost,omitempty"`
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning"`

	CascadeTrail   []CascadeTrailEntry   `json:"cascadeTrail,omitempty"`
	Quality        *QualityReport        `json:"quality,omitempty"`
	Cache          *ArtifactCacheInfo    `json:"cache,omitempty"`
	BudgetSnapshot *BudgetStatus         `json:"budgetSnapshot,omitempty"`
	Response       *ArtifactResponseInfo `json:"response,omitempty"`

	Tags []string `json:"tags"`
}

// ArtifactSummary aggregates today's routing activity.
type ArtifactSummary struct {
	TodayCount        int                  `json:"todayCount"`
	CountsByType      map[ArtifactType]int `json:"countsByType"`
	TotalCostToday    float64              `json:"totalCostToday"`
	EscalationCount   int                  `json:"escalationCount"`
	CacheHitCount     int                  `json:"cacheHitCount"`
	AverageConfidence float64              `json:"averageConfidence"`
}

// HasTag reports whether the artifact carries the given tag.
func (a *RoutingArtifact) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
