// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package artifacts keeps the auditable trail of routing decisions.
//
// # Description
//
// The store is a bounded ring: newest first, trimmed at capacity, FIFO
// eviction by age. Record constructors build each artifact variant,
// publish it to an optional observer and return a copy. Artifacts are
// immutable once recorded except for EnrichWithResponse, which back-fills
// the actual cost, response shape and quality report after the provider
// call completes.
//
// # Thread Safety
//
// One mutex guards the ring. Query methods return copies; callers never
// hold references into the buffer.
package artifacts

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// DefaultCapacity is the ring size when the caller passes zero.
const DefaultCapacity = 5000

// PublishFunc observes every recorded artifact; the event hub attaches
// here. Called synchronously under no lock.
type PublishFunc func(artifact datatypes.RoutingArtifact)

// Store is the bounded in-memory artifact ring.
type Store struct {
	mu       sync.Mutex
	ring     []datatypes.RoutingArtifact // newest first
	capacity int
	publish  PublishFunc
	now      func() time.Time
}

// New returns a Store with the given capacity (0 = DefaultCapacity) and
// optional publish hook.
func New(capacity int, publish PublishFunc) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		publish:  publish,
		now:      time.Now,
	}
}

// =============================================================================
// Record constructors
// =============================================================================

// RecordRouteDecision captures the router's choice for a query.
func (s *Store) RecordRouteDecision(queryId string, query datatypes.ClassifiedQuery, decision datatypes.RoutingDecision, budget *datatypes.BudgetStatus) datatypes.RoutingArtifact {
	a := s.header(queryId, datatypes.ArtifactRouteDecision, query)
	a.SelectedProvider = decision.Provider
	a.SelectedModel = decision.Model
	a.EstimatedCost = decision.EstimatedCost.EstimatedCost
	a.Confidence = 0.8
	a.Reasoning = decision.Reason
	a.BudgetSnapshot = budget
	a.Tags = append(a.Tags, string(decision.Strategy))
	if decision.EmergencyMode {
		a.Tags = append(a.Tags, "emergency")
	}
	return s.append(a)
}

// RecordCacheHit captures a query satisfied from the cache.
func (s *Store) RecordCacheHit(queryId string, query datatypes.ClassifiedQuery, result datatypes.CacheLookupResult) datatypes.RoutingArtifact {
	a := s.header(queryId, datatypes.ArtifactCacheHit, query)
	a.SelectedProvider = result.Entry.Provider
	a.SelectedModel = result.Entry.Model
	a.Confidence = result.Similarity
	a.Reasoning = "served from semantic cache"
	a.Cache = &datatypes.ArtifactCacheInfo{
		QueryHash:  result.Entry.QueryHash,
		Similarity: result.Similarity,
		HitCount:   result.Entry.HitCount,
		CostSaved:  result.Entry.Cost,
	}
	a.Tags = append(a.Tags, "cache")
	return s.append(a)
}

// RecordBudgetReject captures a query refused at budget admission.
func (s *Store) RecordBudgetReject(queryId string, query datatypes.ClassifiedQuery, status datatypes.BudgetStatus) datatypes.RoutingArtifact {
	a := s.header(queryId, datatypes.ArtifactBudgetReject, query)
	a.Confidence = 1.0
	a.Reasoning = "daily budget exhausted"
	snapshot := status
	a.BudgetSnapshot = &snapshot
	a.Tags = append(a.Tags, "budget")
	return s.append(a)
}

// RecordCascadeStep captures one attempted rung.
func (s *Store) RecordCascadeStep(queryId string, query datatypes.ClassifiedQuery, entry datatypes.CascadeTrailEntry) datatypes.RoutingArtifact {
	a := s.header(queryId, datatypes.ArtifactCascadeStep, query)
	a.SelectedProvider = entry.Provider
	a.SelectedModel = entry.Model
	a.Confidence = entry.Score / 10
	a.Reasoning = "cascade step evaluated"
	a.CascadeTrail = []datatypes.CascadeTrailEntry{entry}
	a.Tags = append(a.Tags, "cascade")
	return s.append(a)
}

// RecordCascadeEscalation captures a climb from one tier to the next.
func (s *Store) RecordCascadeEscalation(queryId string, query datatypes.ClassifiedQuery, from, to datatypes.CascadeTrailEntry) datatypes.RoutingArtifact {
	a := s.header(queryId, datatypes.ArtifactCascadeEscalation, query)
	a.SelectedProvider = to.Provider
	a.SelectedModel = to.Model
	a.Confidence = from.Score / 10
	a.Reasoning = "quality gate missed, escalating"
	a.CascadeTrail = []datatypes.CascadeTrailEntry{from, to}
	a.Tags = append(a.Tags, "cascade", "escalation")
	return s.append(a)
}

// RecordCascadeSuccess captures the accepted end of a cascade with its
// full trail.
func (s *Store) RecordCascadeSuccess(queryId string, query datatypes.ClassifiedQuery, trail []datatypes.CascadeTrailEntry, score float64) datatypes.RoutingArtifact {
	a := s.header(queryId, datatypes.ArtifactCascadeSuccess, query)
	if n := len(trail); n > 0 {
		a.SelectedProvider = trail[n-1].Provider
		a.SelectedModel = trail[n-1].Model
	}
	a.Confidence = score / 10
	a.Reasoning = "cascade accepted a response"
	a.CascadeTrail = trail
	a.Tags = append(a.Tags, "cascade")
	return s.append(a)
}

// RecordError captures a failed query.
func (s *Store) RecordError(queryId string, query datatypes.ClassifiedQuery, reason string) datatypes.RoutingArtifact {
	a := s.header(queryId, datatypes.ArtifactError, query)
	a.Confidence = 1.0
	a.Reasoning = reason
	a.Tags = append(a.Tags, "error")
	return s.append(a)
}

func (s *Store) header(queryId string, t datatypes.ArtifactType, query datatypes.ClassifiedQuery) datatypes.RoutingArtifact {
	return datatypes.RoutingArtifact{
		Id:         uuid.NewString(),
		QueryId:    queryId,
		EpochMs:    s.now().UnixMilli(),
		Type:       t,
		Complexity: query.Complexity,
		Tags:       []string{string(t)},
	}
}

func (s *Store) append(a datatypes.RoutingArtifact) datatypes.RoutingArtifact {
	s.mu.Lock()
	s.ring = append([]datatypes.RoutingArtifact{a}, s.ring...)
	if len(s.ring) > s.capacity {
		s.ring = s.ring[:s.capacity]
	}
	s.mu.Unlock()

	if s.publish != nil {
		s.publish(a)
	}
	return a
}

// EnrichWithResponse back-fills the one artifact with the provider
// outcome. Returns false when the id is unknown (already evicted).
func (s *Store) EnrichWithResponse(id string, resp datatypes.ChatResponse, report *datatypes.QualityReport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.ring {
		if s.ring[i].Id != id {
			continue
		}
		s.ring[i].ActualCost = resp.Cost
		s.ring[i].Response = &datatypes.ArtifactResponseInfo{
			Provider:       resp.Provider,
			Model:          resp.Model,
			ContentLength:  len(resp.Content),
			InputTokens:    resp.Tokens.Input,
			OutputTokens:   resp.Tokens.Output,
			ResponseTimeMs: resp.ResponseTimeMs,
			CitationCount:  len(resp.Citations),
		}
		if report != nil {
			s.ring[i].Quality = report
			s.ring[i].Confidence = report.Confidence
		}
		return true
	}
	return false
}

// =============================================================================
// Queries
// =============================================================================

// GetRecent returns up to n artifacts, newest first.
func (s *Store) GetRecent(n int) []datatypes.RoutingArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.ring) {
		n = len(s.ring)
	}
	out := make([]datatypes.RoutingArtifact, n)
	copy(out, s.ring[:n])
	return out
}

// GetByQueryId returns every artifact for one query, newest first.
func (s *Store) GetByQueryId(queryId string) []datatypes.RoutingArtifact {
	return s.filter(0, func(a *datatypes.RoutingArtifact) bool { return a.QueryId == queryId })
}

// GetByType returns up to n artifacts of one type (0 = all).
func (s *Store) GetByType(t datatypes.ArtifactType, n int) []datatypes.RoutingArtifact {
	return s.filter(n, func(a *datatypes.RoutingArtifact) bool { return a.Type == t })
}

// GetByTag returns up to n artifacts carrying the tag (0 = all).
func (s *Store) GetByTag(tag string, n int) []datatypes.RoutingArtifact {
	return s.filter(n, func(a *datatypes.RoutingArtifact) bool { return a.HasTag(tag) })
}

// GetByTimeRange returns artifacts with from <= EpochMs < to.
func (s *Store) GetByTimeRange(from, to time.Time) []datatypes.RoutingArtifact {
	a, b := from.UnixMilli(), to.UnixMilli()
	return s.filter(0, func(art *datatypes.RoutingArtifact) bool {
		return art.EpochMs >= a && art.EpochMs < b
	})
}

func (s *Store) filter(n int, keep func(*datatypes.RoutingArtifact) bool) []datatypes.RoutingArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []datatypes.RoutingArtifact
	for i := range s.ring {
		if keep(&s.ring[i]) {
			out = append(out, s.ring[i])
			if n > 0 && len(out) == n {
				break
			}
		}
	}
	return out
}

// GetSummary aggregates today's activity.
func (s *Store) GetSummary() datatypes.ArtifactSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UnixMilli()

	summary := datatypes.ArtifactSummary{
		CountsByType: make(map[datatypes.ArtifactType]int),
	}
	confidenceSum := 0.0
	for i := range s.ring {
		a := &s.ring[i]
		if a.EpochMs < dayStart {
			continue
		}
		summary.TodayCount++
		summary.CountsByType[a.Type]++
		summary.TotalCostToday += a.ActualCost
		confidenceSum += a.Confidence
		switch a.Type {
		case datatypes.ArtifactCascadeEscalation:
			summary.EscalationCount++
		case datatypes.ArtifactCacheHit:
			summary.CacheHitCount++
		}
	}
	if summary.TodayCount > 0 {
		summary.AverageConfidence = confidenceSum / float64(summary.TodayCount)
	}
	return summary
}

// Size returns the current ring occupancy.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ring)
}
