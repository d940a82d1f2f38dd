// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classifier

import (
	"strings"
	"testing"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClassify_RealtimeSearchQuery verifies the canonical realtime case:
// a short price question classifies as simple search with the realtime
// flag set.
func TestClassify_RealtimeSearchQuery(t *testing.T) {
	c := New(DefaultThresholds())

	q := c.Classify("What is the current Bitcoin price?")

	assert.Equal(t, datatypes.ComplexitySimple, q.Complexity)
	assert.Equal(t, datatypes.IntentSearch, q.Intent)
	assert.True(t, q.IsRealtime)
	assert.True(t, ShouldSkipCache(q), "realtime queries must skip the cache")
}

// TestClassify_CreativeQuery verifies creative intent detection and the
// cache skip policy for creative output.
func TestClassify_CreativeQuery(t *testing.T) {
	c := New(DefaultThresholds())

	q := c.Classify("Write a poem about the ocean at sunset")

	assert.Equal(t, datatypes.IntentCreative, q.Intent)
	assert.False(t, q.IsRealtime)
	assert.True(t, ShouldSkipCache(q))
}

// TestClassify_ComplexityBands exercises representative queries across
// the three bands.
func TestClassify_ComplexityBands(t *testing.T) {
	c := New(DefaultThresholds())

	tests := []struct {
		name string
		text string
		want datatypes.Complexity
	}{
		{
			name: "greeting is simple",
			text: "Hello there!",
			want: datatypes.ComplexitySimple,
		},
		{
			name: "short definition is simple",
			text: "What is a mutex?",
			want: datatypes.ComplexitySimple,
		},
		{
			name: "long analytical prompt is complex",
			text: "Analyze the following distributed system design step by step. " +
				"Evaluate the trade-off between consistency and availability, " +
				"critique the partitioning scheme, and prove that the replication " +
				"protocol preserves linearizability. " + strings.Repeat("Consider the failure modes carefully. ", 20),
			want: datatypes.ComplexityComplex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := c.Classify(tt.text)
			assert.Equal(t, tt.want, q.Complexity, "score was %.3f", q.ComplexityScore)
		})
	}
}

// TestClassify_Deterministic verifies the classifier is pure: identical
// inputs give identical outputs.
func TestClassify_Deterministic(t *testing.T) {
	c := New(DefaultThresholds())
	text := "Explain how garbage collection works in Go, step by step."

	first := c.Classify(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(text))
	}
}

// TestClassify_ScoreClamped verifies the score never escapes [0,1].
func TestClassify_ScoreClamped(t *testing.T) {
	c := New(DefaultThresholds())

	tests := []string{
		"hi",
		"what is this? thanks",
		"Analyze, evaluate, critique, synthesize, prove, derive, debug, refactor, " +
			"implement and optimize this architecture in depth, step by step. " +
			strings.Repeat("More detail please. ", 100),
	}
	for _, text := range tests {
		q := c.Classify(text)
		assert.GreaterOrEqual(t, q.ComplexityScore, 0.0)
		assert.LessOrEqual(t, q.ComplexityScore, 1.0)
	}
}

// TestEstimateTokens verifies the ceil(len/4) contract.
func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"12345678", 2},
		{strings.Repeat("x", 101), 26},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.text), "text length %d", len(tt.text))
	}
}

// TestClassify_EstimatedTokensMatchesHelper ties the classifier output to
// the exported estimator.
func TestClassify_EstimatedTokensMatchesHelper(t *testing.T) {
	c := New(DefaultThresholds())
	text := "Explain quantum computing"
	q := c.Classify(text)
	require.Equal(t, EstimateTokens(text), q.EstimatedTokens)
}

// TestSuggestCacheTTLMs verifies the TTL policy table.
func TestSuggestCacheTTLMs(t *testing.T) {
	tests := []struct {
		name string
		q    datatypes.ClassifiedQuery
		want int64
	}{
		{"realtime", datatypes.ClassifiedQuery{IsRealtime: true}, 5 * 60 * 1000},
		{"search", datatypes.ClassifiedQuery{Intent: datatypes.IntentSearch}, 30 * 60 * 1000},
		{"chat", datatypes.ClassifiedQuery{Intent: datatypes.IntentChat}, 60 * 60 * 1000},
		{"code", datatypes.ClassifiedQuery{Intent: datatypes.IntentCode}, 60 * 60 * 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestCacheTTLMs(tt.q))
		})
	}
}

// TestTTLPolicy_Overrides verifies configured lifetimes win and zero
// fields fall back to the shipped table.
func TestTTLPolicy_Overrides(t *testing.T) {
	p := TTLPolicy{RealtimeMs: 120000, DefaultMs: 7200000}

	assert.Equal(t, int64(120000), p.SuggestMs(datatypes.ClassifiedQuery{IsRealtime: true}))
	assert.Equal(t, int64(7200000), p.SuggestMs(datatypes.ClassifiedQuery{Intent: datatypes.IntentChat}))
	// SearchMs unset falls back.
	assert.Equal(t, int64(30*60*1000), p.SuggestMs(datatypes.ClassifiedQuery{Intent: datatypes.IntentSearch}))

	// The zero policy is the shipped table.
	var zero TTLPolicy
	assert.Equal(t, SuggestCacheTTLMs(datatypes.ClassifiedQuery{IsRealtime: true}),
		zero.SuggestMs(datatypes.ClassifiedQuery{IsRealtime: true}))
}

// TestShouldSkipCache covers the two skip conditions.
func TestShouldSkipCache(t *testing.T) {
	assert.True(t, ShouldSkipCache(datatypes.ClassifiedQuery{IsRealtime: true}))
	assert.True(t, ShouldSkipCache(datatypes.ClassifiedQuery{Intent: datatypes.IntentCreative}))
	assert.False(t, ShouldSkipCache(datatypes.ClassifiedQuery{Intent: datatypes.IntentChat}))
}

// TestClassify_CustomThresholds verifies configurable band boundaries.
func TestClassify_CustomThresholds(t *testing.T) {
	strict := New(Thresholds{Medium: 0.05, Complex: 0.10})
	q := strict.Classify("Explain how does a B-tree work and why is it balanced?")
	assert.Equal(t, datatypes.ComplexityComplex, q.Complexity)
}
