// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analytics keeps a bounded in-memory log of request outcomes
// and serves aggregate views over it.
package analytics

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// DefaultCapacity is the event log size when the caller passes zero.
const DefaultCapacity = 10000

// Log is the bounded analytics event log. Newest events first.
type Log struct {
	mu       sync.Mutex
	events   []datatypes.AnalyticsEvent
	capacity int

	totalQueries int64
	cacheHits    int64
	errors       int64

	now func() time.Time
}

// New returns an empty Log with the given capacity (0 = DefaultCapacity).
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, now: time.Now}
}

// RecordQuery logs a completed provider-backed request.
func (l *Log) RecordQuery(query string, classification datatypes.ClassifiedQuery, routing datatypes.RoutingDecision, cost datatypes.ActualCost, responseTimeMs int64) {
	c := classification
	r := routing
	ac := cost
	l.record(datatypes.AnalyticsEvent{
		EventType:      datatypes.AnalyticsEventQuery,
		Query:          query,
		Classification: &c,
		Routing:        &r,
		Cost:           &ac,
		ResponseTimeMs: responseTimeMs,
	})
	l.mu.Lock()
	l.totalQueries++
	l.mu.Unlock()
}

// RecordCacheHit logs a request satisfied from the cache.
func (l *Log) RecordCacheHit(query string, classification datatypes.ClassifiedQuery, responseTimeMs int64) {
	c := classification
	l.record(datatypes.AnalyticsEvent{
		EventType:      datatypes.AnalyticsEventCacheHit,
		Query:          query,
		Classification: &c,
		ResponseTimeMs: responseTimeMs,
	})
	l.mu.Lock()
	l.totalQueries++
	l.cacheHits++
	l.mu.Unlock()
}

// RecordError logs a failed request.
func (l *Log) RecordError(query string, errMsg string) {
	l.record(datatypes.AnalyticsEvent{
		EventType: datatypes.AnalyticsEventError,
		Query:     query,
		Error:     errMsg,
	})
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
}

func (l *Log) record(e datatypes.AnalyticsEvent) {
	e.Id = uuid.NewString()
	e.Timestamp = l.now()

	l.mu.Lock()
	l.events = append([]datatypes.AnalyticsEvent{e}, l.events...)
	if len(l.events) > l.capacity {
		l.events = l.events[:l.capacity]
	}
	l.mu.Unlock()
}

// Events returns a page of the log, newest first.
func (l *Log) Events(limit, offset int) []datatypes.AnalyticsEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if offset < 0 || offset >= len(l.events) {
		return nil
	}
	end := len(l.events)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]datatypes.AnalyticsEvent, end-offset)
	copy(out, l.events[offset:end])
	return out
}

// Summary aggregates the retained events plus the lifetime counters.
func (l *Log) Summary() datatypes.AnalyticsSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	sum := datatypes.AnalyticsSummary{
		TotalQueries:   l.totalQueries,
		CacheHits:      l.cacheHits,
		Errors:         l.errors,
		ByProvider:     make(map[string]int64),
		ByModel:        make(map[string]int64),
		ByIntent:       make(map[string]int64),
		ByComplexity:   make(map[string]int64),
		CostByProvider: make(map[string]float64),
		CostByModel:    make(map[string]float64),
	}
	if l.totalQueries > 0 {
		sum.CacheHitRate = float64(l.cacheHits) / float64(l.totalQueries)
	}

	var timed int64
	var timeSum int64
	for i := range l.events {
		e := &l.events[i]
		if e.ResponseTimeMs > 0 {
			timed++
			timeSum += e.ResponseTimeMs
		}
		if e.Classification != nil {
			sum.ByIntent[string(e.Classification.Intent)]++
			sum.ByComplexity[string(e.Classification.Complexity)]++
		}
		if e.Routing != nil {
			sum.ByProvider[e.Routing.Provider]++
			sum.ByModel[e.Routing.Model]++
		}
		if e.Cost != nil {
			sum.TotalCost += e.Cost.TotalCost
			sum.CostByProvider[e.Cost.Provider] += e.Cost.TotalCost
			sum.CostByModel[e.Cost.Model] += e.Cost.TotalCost
		}
	}
	if timed > 0 {
		sum.AvgResponseTimeMs = float64(timeSum) / float64(timed)
	}
	return sum
}

// Size returns the number of retained events.
func (l *Log) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
