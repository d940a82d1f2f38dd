// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package artifacts

import (
	"fmt"
	"testing"
	"time"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuery() datatypes.ClassifiedQuery {
	return datatypes.ClassifiedQuery{
		Text:       "Explain quantum computing",
		Complexity: datatypes.ComplexityMedium,
		Intent:     datatypes.IntentReasoning,
	}
}

func testDecision() datatypes.RoutingDecision {
	return datatypes.RoutingDecision{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Strategy: datatypes.StrategyCascade,
		Reason:   "cascade over 3 tiers",
	}
}

// TestRecord_CapacityNeverExceeded verifies the ring trims oldest-first.
func TestRecord_CapacityNeverExceeded(t *testing.T) {
	s := New(3, nil)

	for i := 0; i < 5; i++ {
		s.RecordRouteDecision(fmt.Sprintf("q-%d", i), testQuery(), testDecision(), nil)
	}

	assert.Equal(t, 3, s.Size())
	recent := s.GetRecent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "q-4", recent[0].QueryId, "newest first")
	assert.Equal(t, "q-2", recent[2].QueryId, "oldest survivor")
}

// TestRecord_PublishesToObserver checks the hub hook fires per record.
func TestRecord_PublishesToObserver(t *testing.T) {
	var published []datatypes.RoutingArtifact
	s := New(10, func(a datatypes.RoutingArtifact) { published = append(published, a) })

	s.RecordRouteDecision("q-1", testQuery(), testDecision(), nil)
	s.RecordError("q-1", testQuery(), "provider down")

	require.Len(t, published, 2)
	assert.Equal(t, datatypes.ArtifactRouteDecision, published[0].Type)
	assert.Equal(t, datatypes.ArtifactError, published[1].Type)
}

// TestEnrichWithResponse verifies the only permitted mutation.
func TestEnrichWithResponse(t *testing.T) {
	s := New(10, nil)
	a := s.RecordRouteDecision("q-1", testQuery(), testDecision(), nil)

	resp := datatypes.ChatResponse{
		Content:        "an answer",
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		Tokens:         datatypes.TokenUsage{Input: 10, Output: 50},
		Cost:           0.0012,
		ResponseTimeMs: 800,
		Citations:      []string{"https://a.com/1"},
	}
	report := &datatypes.QualityReport{OverallScore: 8.1, Confidence: 0.9}

	require.True(t, s.EnrichWithResponse(a.Id, resp, report))

	got := s.GetByQueryId("q-1")
	require.Len(t, got, 1)
	assert.Equal(t, 0.0012, got[0].ActualCost)
	require.NotNil(t, got[0].Response)
	assert.Equal(t, 9, got[0].Response.ContentLength)
	assert.Equal(t, 1, got[0].Response.CitationCount)
	assert.Equal(t, 0.9, got[0].Confidence)
	require.NotNil(t, got[0].Quality)

	assert.False(t, s.EnrichWithResponse("no-such-id", resp, nil))
}

func TestQueries(t *testing.T) {
	s := New(100, nil)

	s.RecordRouteDecision("q-1", testQuery(), testDecision(), nil)
	s.RecordCacheHit("q-2", testQuery(), datatypes.CacheLookupResult{
		Entry:      datatypes.CacheEntry{QueryHash: "abc", Provider: "openai", Model: "gpt-4o-mini", Cost: 0.002, HitCount: 3},
		Similarity: 0.91,
	})
	s.RecordCascadeEscalation("q-3", testQuery(),
		datatypes.CascadeTrailEntry{Provider: "perplexity", Model: "sonar", Score: 6.5, StepIndex: 0},
		datatypes.CascadeTrailEntry{Provider: "openai", Model: "gpt-4o-mini", StepIndex: 1})

	assert.Len(t, s.GetByQueryId("q-2"), 1)
	assert.Len(t, s.GetByType(datatypes.ArtifactCacheHit, 0), 1)
	assert.Len(t, s.GetByTag("cascade", 0), 1)
	assert.Len(t, s.GetByTag("escalation", 0), 1)
	assert.Len(t, s.GetRecent(2), 2)

	hit := s.GetByType(datatypes.ArtifactCacheHit, 0)[0]
	require.NotNil(t, hit.Cache)
	assert.Equal(t, 0.91, hit.Cache.Similarity)
	assert.Equal(t, 3, hit.Cache.HitCount)
}

func TestGetByTimeRange(t *testing.T) {
	s := New(100, nil)
	base := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	s.RecordRouteDecision("q-old", testQuery(), testDecision(), nil)
	s.now = func() time.Time { return base.Add(time.Hour) }
	s.RecordRouteDecision("q-new", testQuery(), testDecision(), nil)

	got := s.GetByTimeRange(base.Add(30*time.Minute), base.Add(2*time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, "q-new", got[0].QueryId)
}

// TestGetSummary aggregates only today's artifacts.
func TestGetSummary(t *testing.T) {
	s := New(100, nil)
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return now.AddDate(0, 0, -1) }
	s.RecordRouteDecision("q-yesterday", testQuery(), testDecision(), nil)

	s.now = func() time.Time { return now }
	a := s.RecordRouteDecision("q-1", testQuery(), testDecision(), nil)
	s.EnrichWithResponse(a.Id, datatypes.ChatResponse{Cost: 0.01}, nil)
	s.RecordCacheHit("q-2", testQuery(), datatypes.CacheLookupResult{Similarity: 0.9})
	s.RecordCascadeEscalation("q-3", testQuery(),
		datatypes.CascadeTrailEntry{Score: 6.0}, datatypes.CascadeTrailEntry{})

	sum := s.GetSummary()
	assert.Equal(t, 3, sum.TodayCount)
	assert.Equal(t, 1, sum.CountsByType[datatypes.ArtifactRouteDecision])
	assert.Equal(t, 1, sum.CacheHitCount)
	assert.Equal(t, 1, sum.EscalationCount)
	assert.InDelta(t, 0.01, sum.TotalCostToday, 1e-9)
}
