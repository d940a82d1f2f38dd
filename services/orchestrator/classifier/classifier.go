// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package classifier derives routing signals from raw query text.
//
// # Description
//
// Classification is a pure function: text in, ClassifiedQuery out. No
// I/O, no clocks, no randomness — identical input always produces an
// identical verdict. The complexity score blends a length term, weighted
// keyword matches with diminishing returns, and structural boosts, then
// thresholds into simple/medium/complex. Intent is an argmax over
// per-intent keyword scores with a base chat prior.
//
// # Thread Safety
//
// A Classifier is immutable after construction and safe for concurrent
// use from any number of goroutines.
package classifier

import (
	"regexp"
	"strings"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// Thresholds carve the [0,1] complexity score into bands. A score at or
// below Medium is simple; at or below Complex is medium; above is complex.
type Thresholds struct {
	Medium  float64
	Complex float64
}

// DefaultThresholds matches the documented 0.30 / 0.70 split.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 0.30, Complex: 0.70}
}

// Classifier scores queries. Construct once with New and share.
type Classifier struct {
	thresholds Thresholds
}

// New returns a Classifier with the given thresholds. Zero-valued
// thresholds fall back to the defaults.
func New(t Thresholds) *Classifier {
	if t.Medium <= 0 {
		t.Medium = 0.30
	}
	if t.Complex <= 0 {
		t.Complex = 0.70
	}
	return &Classifier{thresholds: t}
}

// Keyword weights. The first match of a list earns the full weight;
// every further match earns the diminished increment.
const (
	complexFirst  = 0.25
	complexNext   = 0.05
	mediumFirst   = 0.12
	mediumNext    = 0.03
	simpleFirst   = 0.15 // subtracted
	simpleNext    = 0.03 // subtracted

	multiSentenceBoost = 0.08
	multiQuestionBoost = 0.05
	listMarkerBoost    = 0.07

	chatPrior        = 0.15
	shortChatBonus   = 0.10
	realtimeSearchBias = 1.0
)

var complexIndicators = []string{
	"analyze", "architect", "architecture", "compare and contrast",
	"comprehensive", "critique", "debug", "derive", "design a",
	"evaluate", "explain in detail", "implement", "in depth",
	"mathematical", "optimize", "proof", "prove", "refactor",
	"step by step", "synthesize", "trade-off", "tradeoff",
}

var mediumIndicators = []string{
	"compare", "describe", "difference between", "explain", "how does",
	"how do", "how to", "pros and cons", "summarize", "walk me through",
	"why does", "why is",
}

var simpleIndicators = []string{
	"define", "hello", "hi ", "how much", "list", "name", "thanks",
	"what is", "what's", "when is", "when was", "where is", "who is",
	"who was",
}

var realtimeIndicators = []string{
	"breaking", "currently", "latest", "live", "now", "recent",
	"right now", "this week", "today", "tonight", "yesterday",
	"current",
}

var intentIndicators = map[datatypes.Intent][]string{
	datatypes.IntentSearch: {
		"find", "look up", "news", "price", "search", "stock", "weather",
		"what happened", "when did", "where can",
	},
	datatypes.IntentReasoning: {
		"analyze", "deduce", "derive", "evaluate", "explain why", "figure out",
		"logic", "proof", "prove", "reason", "solve", "step by step", "why",
	},
	datatypes.IntentCreative: {
		"brainstorm", "compose", "creative", "fiction", "imagine", "lyrics",
		"novel", "poem", "song", "story", "write a poem", "write a story",
	},
	datatypes.IntentCode: {
		"algorithm", "bug", "code", "compile", "debug", "function",
		"implement", "program", "python", "refactor", "regex", "script",
		"sql", "typescript", "golang", "javascript",
	},
}

var listMarkerRe = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)])\s`)

// Classify produces the full verdict for a query.
func (c *Classifier) Classify(text string) datatypes.ClassifiedQuery {
	lower := strings.ToLower(text)
	tokens := EstimateTokens(text)

	score := lengthTerm(tokens)
	var matched []string

	score += keywordTerm(lower, complexIndicators, complexFirst, complexNext, &matched)
	score += keywordTerm(lower, mediumIndicators, mediumFirst, mediumNext, &matched)
	score -= keywordTerm(lower, simpleIndicators, simpleFirst, simpleNext, &matched)

	if strings.Count(text, ".")+strings.Count(text, "!") >= 3 {
		score += multiSentenceBoost
	}
	if strings.Count(text, "?") >= 2 {
		score += multiQuestionBoost
	}
	if listMarkerRe.MatchString(text) {
		score += listMarkerBoost
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	isRealtime := false
	for _, kw := range realtimeIndicators {
		if strings.Contains(lower, kw) {
			isRealtime = true
			matched = append(matched, kw)
			break
		}
	}

	return datatypes.ClassifiedQuery{
		Text:              text,
		Complexity:        c.band(score),
		ComplexityScore:   score,
		Intent:            detectIntent(lower, tokens, isRealtime),
		IsRealtime:        isRealtime,
		EstimatedTokens:   tokens,
		MatchedIndicators: matched,
	}
}

func (c *Classifier) band(score float64) datatypes.Complexity {
	switch {
	case score <= c.thresholds.Medium:
		return datatypes.ComplexitySimple
	case score <= c.thresholds.Complex:
		return datatypes.ComplexityMedium
	default:
		return datatypes.ComplexityComplex
	}
}

// lengthTerm bins the token count into a monotonically non-decreasing
// contribution.
func lengthTerm(tokens int) float64 {
	switch {
	case tokens <= 20:
		return 0.05
	case tokens <= 100:
		return 0.15
	case tokens <= 300:
		return 0.30
	case tokens <= 800:
		return 0.40
	default:
		return 0.50
	}
}

// keywordTerm sums list matches with diminishing returns past the first.
func keywordTerm(lower string, indicators []string, first, next float64, matched *[]string) float64 {
	total := 0.0
	count := 0
	for _, kw := range indicators {
		if strings.Contains(lower, kw) {
			if count == 0 {
				total += first
			} else {
				total += next
			}
			count++
			*matched = append(*matched, kw)
		}
	}
	return total
}

func detectIntent(lower string, tokens int, isRealtime bool) datatypes.Intent {
	scores := map[datatypes.Intent]float64{
		datatypes.IntentChat: chatPrior,
	}
	if tokens <= 15 {
		scores[datatypes.IntentChat] += shortChatBonus
	}

	for intent, kws := range intentIndicators {
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				scores[intent] += 0.20
			}
		}
	}
	if isRealtime {
		scores[datatypes.IntentSearch] += realtimeSearchBias
	}

	best := datatypes.IntentChat
	bestScore := scores[datatypes.IntentChat]
	// Deterministic order for tie-breaking.
	for _, intent := range []datatypes.Intent{
		datatypes.IntentSearch, datatypes.IntentReasoning,
		datatypes.IntentCode, datatypes.IntentCreative,
	} {
		if scores[intent] > bestScore {
			best = intent
			bestScore = scores[intent]
		}
	}
	return best
}

// EstimateTokens approximates the token count as ceil(len/4), the common
// four-characters-per-token heuristic for English text.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// ShouldSkipCache reports whether caching is pointless for the query:
// real-time answers go stale immediately and creative output should not
// repeat.
func ShouldSkipCache(q datatypes.ClassifiedQuery) bool {
	return q.IsRealtime || q.Intent == datatypes.IntentCreative
}

// Shipped cache TTL suggestions by query kind.
const (
	realtimeTTLMs = 5 * 60 * 1000
	searchTTLMs   = 30 * 60 * 1000
	defaultTTLMs  = 60 * 60 * 1000
)

// TTLPolicy holds the cache lifetimes suggested per query kind, in
// milliseconds. Zero or negative fields fall back to the shipped
// values, so a partially configured policy still covers every kind.
type TTLPolicy struct {
	RealtimeMs int64
	SearchMs   int64
	DefaultMs  int64
}

// DefaultTTLPolicy returns the shipped table: 5 minutes for real-time,
// 30 minutes for search, one hour otherwise.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		RealtimeMs: realtimeTTLMs,
		SearchMs:   searchTTLMs,
		DefaultMs:  defaultTTLMs,
	}
}

// SuggestMs returns the cache lifetime appropriate for the query.
func (p TTLPolicy) SuggestMs(q datatypes.ClassifiedQuery) int64 {
	switch {
	case q.IsRealtime:
		return fallback(p.RealtimeMs, realtimeTTLMs)
	case q.Intent == datatypes.IntentSearch:
		return fallback(p.SearchMs, searchTTLMs)
	default:
		return fallback(p.DefaultMs, defaultTTLMs)
	}
}

func fallback(v, def int64) int64 {
	if v <= 0 {
		return def
	}
	return v
}

// SuggestCacheTTLMs applies the shipped TTL policy.
func SuggestCacheTTLMs(q datatypes.ClassifiedQuery) int64 {
	return DefaultTTLPolicy().SuggestMs(q)
}
