// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator drives the request pipeline of the Meridian
// gateway.
//
// # Description
//
// ProcessQuery is the single entry point: classify, consult the
// semantic cache, admit against the daily budget, route, execute the
// provider call or cascade, account the actual cost and fan out the
// results. Every subsystem is an explicit constructor argument; there
// is no process-wide state, so tests swap any piece.
//
// # Thread Safety
//
// An Engine is safe for concurrent ProcessQuery calls. All shared
// mutable state lives behind the subsystems' own locks.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ai/meridian/services/llm"
	"github.com/meridian-ai/meridian/services/orchestrator/analytics"
	"github.com/meridian-ai/meridian/services/orchestrator/artifacts"
	"github.com/meridian-ai/meridian/services/orchestrator/budget"
	"github.com/meridian-ai/meridian/services/orchestrator/cache"
	"github.com/meridian-ai/meridian/services/orchestrator/cascade"
	"github.com/meridian-ai/meridian/services/orchestrator/classifier"
	"github.com/meridian-ai/meridian/services/orchestrator/costbook"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/meridian-ai/meridian/services/orchestrator/hub"
	"github.com/meridian-ai/meridian/services/orchestrator/observability"
	"github.com/meridian-ai/meridian/services/orchestrator/quality"
	"github.com/meridian-ai/meridian/services/orchestrator/router"
)

// Per-step provider deadlines. Reasoning-capable models get longer.
const (
	providerTimeout          = 60 * time.Second
	reasoningProviderTimeout = 120 * time.Second
)

// Service is the orchestration interface the HTTP layer consumes.
type Service interface {
	// ProcessQuery runs the full pipeline for one query.
	ProcessQuery(ctx context.Context, text string, opts datatypes.QueryOptions) (datatypes.AgentResponse, error)
}

// Config assembles the engine's subsystem tuning.
type Config struct {
	Classifier        classifier.Thresholds
	TTL               classifier.TTLPolicy
	Budget            budget.Config
	Cache             cache.Config
	Router            router.Config
	ArtifactCapacity  int
	AnalyticsCapacity int
	HubQueueSize      int
}

// DefaultConfig returns the shipped engine tuning.
func DefaultConfig() Config {
	return Config{
		Classifier: classifier.DefaultThresholds(),
		TTL:        classifier.DefaultTTLPolicy(),
		Budget:     budget.DefaultConfig(),
		Cache:      cache.DefaultConfig(),
		Router:     router.DefaultConfig(),
	}
}

// Engine wires the gateway's subsystems into the request pipeline.
type Engine struct {
	classifier *classifier.Classifier
	book       *costbook.Book
	budget     *budget.Tracker
	cache      *cache.SemanticCache
	router     *router.Router
	artifacts  *artifacts.Store
	analytics  *analytics.Log
	hub        *hub.Hub
	providers  *llm.Registry
	ttl        classifier.TTLPolicy

	now func() time.Time
}

// New builds an Engine over the given provider registry. A nil adapter
// uses in-memory cache storage.
func New(cfg Config, providers *llm.Registry, cacheAdapter cache.Adapter) *Engine {
	events := hub.New(cfg.HubQueueSize)

	book := costbook.New()
	tracker := budget.New(cfg.Budget, func(alert datatypes.BudgetAlert) {
		events.Budget.Publish(alert)
	})
	store := artifacts.New(cfg.ArtifactCapacity, func(a datatypes.RoutingArtifact) {
		events.Artifacts.Publish(a)
	})
	if cacheAdapter == nil {
		cacheAdapter = cache.NewMemoryAdapter()
	}

	return &Engine{
		classifier: classifier.New(cfg.Classifier),
		book:       book,
		budget:     tracker,
		cache:      cache.New(cacheAdapter, cfg.Cache, nil),
		router:     router.New(book, tracker, cfg.Router),
		artifacts:  store,
		analytics:  analytics.New(cfg.AnalyticsCapacity),
		hub:        events,
		providers:  providers,
		ttl:        cfg.TTL,
		now:        time.Now,
	}
}

// Subsystem accessors for the HTTP layer.

func (e *Engine) Budget() *budget.Tracker     { return e.budget }
func (e *Engine) Cache() *cache.SemanticCache { return e.cache }
func (e *Engine) Artifacts() *artifacts.Store { return e.artifacts }
func (e *Engine) Analytics() *analytics.Log   { return e.analytics }
func (e *Engine) Hub() *hub.Hub               { return e.hub }
func (e *Engine) Providers() *llm.Registry    { return e.providers }
func (e *Engine) Book() *costbook.Book        { return e.book }

// ProcessQuery runs the pipeline described in the package doc.
func (e *Engine) ProcessQuery(ctx context.Context, text string, opts datatypes.QueryOptions) (datatypes.AgentResponse, error) {
	if text == "" {
		return datatypes.AgentResponse{}, fmt.Errorf("%w: empty query", datatypes.ErrInvalidInput)
	}

	queryId := uuid.NewString()
	start := e.now()

	// Classification is pure and sub-millisecond; running it first keeps
	// the skip-cache decision ahead of any adapter round trip.
	classified := e.classifier.Classify(text)
	skipCache := classifier.ShouldSkipCache(classified)

	if !skipCache {
		if result, hit := e.cache.Lookup(ctx, text); hit {
			return e.serveCacheHit(queryId, classified, result, start), nil
		}
		observability.CacheLookups.WithLabelValues("miss").Inc()
	}

	// Budget admission happens before any provider spend.
	daily := e.budget.GetStatus(datatypes.PeriodDaily)
	if daily.PercentUsed >= 100 {
		e.artifacts.RecordBudgetReject(queryId, classified, daily)
		e.analytics.RecordError(text, "daily budget exhausted")
		observability.QueriesTotal.WithLabelValues("", "rejected").Inc()
		return datatypes.AgentResponse{}, fmt.Errorf("%w: daily budget at %.2f%%", datatypes.ErrBudgetExceeded, daily.PercentUsed)
	}

	decision := e.router.Decide(classified, opts.Strategy)
	routeArtifact := e.artifacts.RecordRouteDecision(queryId, classified, decision, &daily)

	req := datatypes.ChatRequest{
		Id:                  queryId,
		Content:             text,
		SystemPrompt:        opts.SystemPrompt,
		ConversationHistory: opts.ConversationHistory,
		MaxTokens:           opts.MaxTokens,
		Temperature:         opts.Temperature,
	}

	var resp datatypes.ChatResponse
	var report datatypes.QualityReport
	var err error
	if len(decision.CascadeChain) > 0 {
		resp, report, err = e.runCascade(ctx, queryId, classified, decision.CascadeChain, req)
	} else {
		resp, err = e.callProvider(ctx, decision.Provider, decision.Model, req)
		if err == nil {
			report = quality.Estimate(resp, classified)
		}
	}
	if err != nil {
		e.artifacts.RecordError(queryId, classified, err.Error())
		e.analytics.RecordError(text, err.Error())
		observability.QueriesTotal.WithLabelValues(string(decision.Strategy), "error").Inc()
		return datatypes.AgentResponse{}, err
	}

	actual := datatypes.ActualCost{
		Provider:     resp.Provider,
		Model:        resp.Model,
		InputTokens:  resp.Tokens.Input,
		OutputTokens: resp.Tokens.Output,
		TotalCost:    e.book.EstimateCost(resp.Provider, resp.Model, resp.Tokens.Input, resp.Tokens.Output).EstimatedCost,
		Timestamp:    e.now(),
	}
	resp.Cost = actual.TotalCost
	totalMs := time.Since(start).Milliseconds()

	// Independent post-steps fan out; none of them can fail the request.
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if !skipCache {
			ttl := time.Duration(e.ttl.SuggestMs(classified)) * time.Millisecond
			e.cache.Store(ctx, text, resp.Content, resp.Provider, resp.Model, actual.TotalCost, resp.Tokens.Total, ttl)
			e.hub.Cache.Publish(datatypes.CacheEvent{
				Kind:      "store",
				QueryHash: cache.HashQuery(text),
				Timestamp: e.now(),
			})
		}
	}()
	go func() {
		defer wg.Done()
		e.analytics.RecordQuery(text, classified, decision, actual, totalMs)
	}()
	go func() {
		defer wg.Done()
		e.budget.RecordCost(actual)
		e.publishBudgetMetrics()
	}()
	wg.Wait()

	e.artifacts.EnrichWithResponse(routeArtifact.Id, resp, &report)

	observability.QueriesTotal.WithLabelValues(string(decision.Strategy), "success").Inc()
	observability.QueryDuration.WithLabelValues(string(decision.Strategy)).Observe(float64(totalMs) / 1000)
	observability.QueryCost.WithLabelValues(resp.Provider, resp.Model).Observe(actual.TotalCost)
	observability.QualityScore.WithLabelValues(resp.Model).Observe(report.OverallScore)

	return datatypes.AgentResponse{
		Response:       resp,
		Classification: classified,
		Routing:        decision,
		Artifacts:      e.artifacts.GetByQueryId(queryId),
		CacheHit:       false,
		TotalTimeMs:    totalMs,
	}, nil
}

// serveCacheHit builds the synthetic zero-cost response for a hit.
func (e *Engine) serveCacheHit(queryId string, classified datatypes.ClassifiedQuery, result datatypes.CacheLookupResult, start time.Time) datatypes.AgentResponse {
	e.artifacts.RecordCacheHit(queryId, classified, result)
	totalMs := time.Since(start).Milliseconds()
	e.analytics.RecordCacheHit(classified.Text, classified, totalMs)

	kind := "hit_semantic"
	if result.Similarity >= 1.0 {
		kind = "hit_exact"
	}
	observability.QueriesTotal.WithLabelValues("cache", "success").Inc()
	observability.CacheLookups.WithLabelValues(kind).Inc()
	observability.CacheCostSaved.Add(result.Entry.Cost)
	e.hub.Cache.Publish(datatypes.CacheEvent{
		Kind:       "hit",
		QueryHash:  result.Entry.QueryHash,
		Similarity: result.Similarity,
		CostSaved:  result.Entry.Cost,
		Timestamp:  e.now(),
	})

	resp := datatypes.ChatResponse{
		Id:       queryId,
		Content:  result.Entry.Response,
		Provider: result.Entry.Provider,
		Model:    result.Entry.Model,
		Tokens:   datatypes.TokenUsage{Input: 0, Output: result.Entry.TokensUsed, Total: result.Entry.TokensUsed},
		Cost:     0,
	}
	return datatypes.AgentResponse{
		Response:       resp,
		Classification: classified,
		Routing:        datatypes.RoutingDecision{Provider: resp.Provider, Model: resp.Model},
		Artifacts:      e.artifacts.GetByQueryId(queryId),
		CacheHit:       true,
		Similarity:     result.Similarity,
		TotalTimeMs:    totalMs,
	}
}

// runCascade executes the chain, emitting step, escalation and success
// artifacts along the way.
func (e *Engine) runCascade(ctx context.Context, queryId string, classified datatypes.ClassifiedQuery, chain []datatypes.CascadeStep, req datatypes.ChatRequest) (datatypes.ChatResponse, datatypes.QualityReport, error) {
	var mu sync.Mutex
	var trail []datatypes.CascadeTrailEntry
	reports := make(map[int]datatypes.QualityReport)

	run := func(stepCtx context.Context, provider, model string) (datatypes.ChatResponse, error) {
		return e.callProvider(stepCtx, provider, model, req)
	}
	evaluate := func(resp datatypes.ChatResponse) float64 {
		report := quality.Estimate(resp, classified)
		mu.Lock()
		reports[len(trail)] = report
		mu.Unlock()
		return report.OverallScore
	}
	onStep := func(provider, model string, score float64, index int) {
		entry := datatypes.CascadeTrailEntry{
			Provider:  provider,
			Model:     model,
			Score:     score,
			StepIndex: index,
		}
		mu.Lock()
		prevScored := len(trail) > 0
		var prev datatypes.CascadeTrailEntry
		if prevScored {
			prev = trail[len(trail)-1]
		}
		trail = append(trail, entry)
		mu.Unlock()

		e.artifacts.RecordCascadeStep(queryId, classified, entry)
		if prevScored {
			e.artifacts.RecordCascadeEscalation(queryId, classified, prev, entry)
			observability.CascadeEscalations.WithLabelValues(prev.Model, entry.Model).Inc()
		}
	}

	result, err := cascade.Execute(ctx, chain, run, evaluate, onStep)
	if err != nil {
		return datatypes.ChatResponse{}, datatypes.QualityReport{}, err
	}

	mu.Lock()
	finalTrail := make([]datatypes.CascadeTrailEntry, len(trail))
	copy(finalTrail, trail)
	for i := range finalTrail {
		if finalTrail[i].StepIndex == result.StepIndex {
			finalTrail[i].Accepted = true
		}
	}
	report := reports[indexOfStep(finalTrail, result.StepIndex)]
	mu.Unlock()

	e.artifacts.RecordCascadeSuccess(queryId, classified, finalTrail, result.Score)
	return result.Response, report, nil
}

func indexOfStep(trail []datatypes.CascadeTrailEntry, stepIndex int) int {
	for i, entry := range trail {
		if entry.StepIndex == stepIndex {
			return i
		}
	}
	return len(trail) - 1
}

// callProvider resolves the adapter, applies the per-step deadline and
// performs the call with metrics.
func (e *Engine) callProvider(ctx context.Context, providerName, model string, req datatypes.ChatRequest) (datatypes.ChatResponse, error) {
	provider, ok := e.providers.Get(providerName)
	if !ok {
		return datatypes.ChatResponse{}, fmt.Errorf("%w: provider %s not registered", datatypes.ErrModelNotFound, providerName)
	}

	timeout := providerTimeout
	if profile, ok := e.book.Get(providerName, model); ok && profile.HasCapability(costbook.CapabilityReasoning) {
		timeout = reasoningProviderTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := e.now()
	resp, err := provider.Chat(callCtx, model, req)
	elapsed := time.Since(start)
	observability.ProviderLatency.WithLabelValues(providerName, model).Observe(elapsed.Seconds())
	e.providers.RecordOutcome(providerName, err == nil)

	if err != nil {
		status := "error"
		if pe, ok := datatypes.IsProviderError(err); ok && pe.RateLimited() {
			status = "rate_limited"
		}
		observability.ProviderCalls.WithLabelValues(providerName, model, status).Inc()
		return datatypes.ChatResponse{}, err
	}
	observability.ProviderCalls.WithLabelValues(providerName, model, "success").Inc()
	observability.TokensProcessed.WithLabelValues("input", model).Add(float64(resp.Tokens.Input))
	observability.TokensProcessed.WithLabelValues("output", model).Add(float64(resp.Tokens.Output))
	if resp.ResponseTimeMs == 0 {
		resp.ResponseTimeMs = elapsed.Milliseconds()
	}
	return resp, nil
}

func (e *Engine) publishBudgetMetrics() {
	for _, period := range []datatypes.Period{datatypes.PeriodDaily, datatypes.PeriodWeekly, datatypes.PeriodMonthly} {
		observability.BudgetPercentUsed.WithLabelValues(string(period)).Set(e.budget.GetStatus(period).PercentUsed)
	}
	if e.budget.IsEmergencyMode() {
		observability.EmergencyMode.Set(1)
	} else {
		observability.EmergencyMode.Set(0)
	}
}

// PruneLoop runs periodic maintenance (cache expiry, budget retention,
// alert rollover) until ctx is done.
func (e *Engine) PruneLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.budget.Rollover()
			e.publishBudgetMetrics()
			pruned := e.cache.PruneExpired(ctx)
			dropped := e.budget.Prune()
			if pruned > 0 || dropped > 0 {
				slog.Debug("maintenance pass", "cachePruned", pruned, "costRecordsDropped", dropped)
			}
		case <-ctx.Done():
			return
		}
	}
}

var _ Service = (*Engine)(nil)

// IsClientFault reports whether the error maps to a 4xx class failure.
func IsClientFault(err error) bool {
	return errors.Is(err, datatypes.ErrInvalidInput)
}
