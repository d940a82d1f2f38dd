// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// AnalyticsEventType labels an analytics event.
type AnalyticsEventType string

const (
	AnalyticsEventQuery    AnalyticsEventType = "query"
	AnalyticsEventCacheHit AnalyticsEventType = "cache_hit"
	AnalyticsEventError    AnalyticsEventType = "error"
)

// AnalyticsEvent is one immutable entry in the bounded analytics log.
type AnalyticsEvent struct {
	Id             string             `json:"id"`
	Timestamp      time.Time          `json:"timestamp"`
	EventType      AnalyticsEventType `json:"eventType"`
	Query          string             `json:"query,omitempty"`
	Classification *ClassifiedQuery   `json:"classification,omitempty"`
	Routing        *RoutingDecision   `json:"routing,omitempty"`
	Cost           *ActualCost        `json:"cost,omitempty"`
	ResponseTimeMs int64              `json:"responseTimeMs,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// AnalyticsSummary aggregates the analytics log for dashboards.
type AnalyticsSummary struct {
	TotalQueries      int64              `json:"totalQueries"`
	CacheHits         int64              `json:"cacheHits"`
	CacheHitRate      float64            `json:"cacheHitRate"`
	Errors            int64              `json:"errors"`
	TotalCost         float64            `json:"totalCost"`
	AvgResponseTimeMs float64            `json:"avgResponseTimeMs"`
	ByProvider        map[string]int64   `json:"byProvider"`
	ByModel           map[string]int64   `json:"byModel"`
	ByIntent          map[string]int64   `json:"byIntent"`
	ByComplexity      map[string]int64   `json:"byComplexity"`
	CostByProvider    map[string]float64 `json:"costByProvider"`
	CostByModel       map[string]float64 `json:"costByModel"`
}
