// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability holds the gateway's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Query Routing
// =============================================================================

var (
	// QueriesTotal counts processed queries.
	// Labels: strategy (priority, cost-optimized, cascade, emergency, cache), status (success, error, rejected)
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meridian",
		Subsystem: "gateway",
		Name:      "queries_total",
		Help:      "Total queries processed by the gateway",
	}, []string{"strategy", "status"})

	// QueryDuration measures end-to-end query latency.
	// Labels: strategy
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meridian",
		Subsystem: "gateway",
		Name:      "query_duration_seconds",
		Help:      "End-to-end query latency in seconds",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"strategy"})

	// ProviderCalls counts upstream provider calls.
	// Labels: provider, model, status (success, error, rate_limited)
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meridian",
		Subsystem: "provider",
		Name:      "calls_total",
		Help:      "Total upstream provider calls",
	}, []string{"provider", "model", "status"})

	// ProviderLatency measures upstream call latency.
	// Labels: provider, model
	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meridian",
		Subsystem: "provider",
		Name:      "latency_seconds",
		Help:      "Upstream provider call latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider", "model"})

	// QueryCost observes the actual USD cost per provider-backed query.
	// Labels: provider, model
	QueryCost = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meridian",
		Subsystem: "budget",
		Name:      "query_cost_usd",
		Help:      "Actual cost per query in USD",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"provider", "model"})

	// BudgetPercentUsed exposes the current spend level per period.
	// Labels: period (daily, weekly, monthly)
	BudgetPercentUsed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "meridian",
		Subsystem: "budget",
		Name:      "percent_used",
		Help:      "Budget percent used per rolling period",
	}, []string{"period"})

	// EmergencyMode is 1 while the budget latch is engaged.
	EmergencyMode = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "meridian",
		Subsystem: "budget",
		Name:      "emergency_mode",
		Help:      "1 while emergency routing is latched",
	})

	// CacheLookups counts semantic cache lookups.
	// Labels: result (hit_exact, hit_semantic, miss)
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meridian",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Semantic cache lookups by result",
	}, []string{"result"})

	// CacheCostSaved accumulates USD avoided by cache hits.
	CacheCostSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meridian",
		Subsystem: "cache",
		Name:      "cost_saved_usd_total",
		Help:      "Cumulative USD saved by cache hits",
	})

	// CascadeEscalations counts quality-gated climbs to a higher tier.
	// Labels: from_model, to_model
	CascadeEscalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meridian",
		Subsystem: "cascade",
		Name:      "escalations_total",
		Help:      "Cascade escalations between tiers",
	}, []string{"from_model", "to_model"})

	// QualityScore tracks the distribution of overall quality scores.
	// Labels: model
	QualityScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meridian",
		Subsystem: "quality",
		Name:      "score",
		Help:      "Distribution of response quality scores (0-10)",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 8.5, 9, 9.5, 10},
	}, []string{"model"})

	// TokensProcessed counts tokens flowing through providers.
	// Labels: direction (input, output), model
	TokensProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meridian",
		Subsystem: "provider",
		Name:      "tokens_total",
		Help:      "Tokens processed by upstream providers",
	}, []string{"direction", "model"})

	// WSClients tracks currently connected websocket clients.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "meridian",
		Subsystem: "ws",
		Name:      "clients",
		Help:      "Currently connected websocket clients",
	})

	// HubDroppedEvents counts events lost to subscriber back-pressure.
	// Labels: topic
	HubDroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meridian",
		Subsystem: "hub",
		Name:      "dropped_events_total",
		Help:      "Events dropped by slow hub subscribers",
	}, []string{"topic"})
)
