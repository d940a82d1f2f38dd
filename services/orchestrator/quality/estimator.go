// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package quality scores provider responses without calling a judge
// model.
//
// # Description
//
// The estimator is a pure function from (response, classified query) to
// a QualityReport: six weighted heuristic signals, an overall 0-10
// score, a letter grade, a confidence derived from signal agreement and
// an accept/escalate/reject recommendation. It is the gate the cascade
// executor consults before escalating to a more expensive model.
//
// # Limitations
//
// The signals are surface heuristics (citations, hedging language,
// markdown structure, length, latency, token ratio). They rank
// responses well enough to drive escalation but are not a substitute
// for task-specific evaluation.
package quality

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// Signal weights. They sum to 1.0.
const (
	weightCitations  = 0.25
	weightConfidence = 0.20
	weightStructure  = 0.20
	weightLength     = 0.15
	weightLatency    = 0.10
	weightEfficiency = 0.10
)

// Recommendation bars per complexity: accept at or above the first,
// reject below the second, escalate in between.
var recommendBars = map[datatypes.Complexity][2]float64{
	datatypes.ComplexitySimple:  {6, 3},
	datatypes.ComplexityMedium:  {7, 4},
	datatypes.ComplexityComplex: {8, 5},
}

// searchProviders answer with retrieved sources, so a citation-free
// response from them is a stronger negative signal.
var searchProviders = map[string]bool{
	"perplexity": true,
}

var refusalPatterns = []string{
	"i cannot",
	"i can't",
	"i am unable",
	"i'm unable",
	"i won't",
	"as an ai",
	"i do not have access",
	"i don't have access",
}

var highConfidencePhrases = []string{
	"definitely",
	"certainly",
	"clearly",
	"specifically",
	"precisely",
	"in fact",
	"research shows",
	"studies show",
}

var lowConfidencePhrases = []string{
	"might",
	"maybe",
	"possibly",
	"perhaps",
	"i think",
	"i believe",
	"not sure",
	"unclear",
	"it seems",
	"probably",
}

var (
	headingRe  = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	bulletRe   = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+\S`)
	codeFence  = regexp.MustCompile("```")
	boldRe     = regexp.MustCompile(`\*\*[^*]+\*\*`)
	paragraphs = regexp.MustCompile(`\n\s*\n`)
)

// lengthBand is the expected response size per complexity, in estimated
// tokens.
type lengthBand struct {
	min, max, ideal float64
}

var lengthBands = map[datatypes.Complexity]lengthBand{
	datatypes.ComplexitySimple:  {50, 500, 200},
	datatypes.ComplexityMedium:  {150, 1500, 600},
	datatypes.ComplexityComplex: {300, 4000, 1500},
}

// latencyBaselineMs is the expected wall time per complexity.
var latencyBaselineMs = map[datatypes.Complexity]float64{
	datatypes.ComplexitySimple:  2000,
	datatypes.ComplexityMedium:  5000,
	datatypes.ComplexityComplex: 10000,
}

// Estimate scores a response against its classified query.
func Estimate(resp datatypes.ChatResponse, query datatypes.ClassifiedQuery) datatypes.QualityReport {
	signals := []datatypes.QualitySignal{
		citationSignal(resp),
		confidenceSignal(resp.Content),
		structureSignal(resp.Content, query),
		lengthSignal(resp.Content, query.Complexity),
		latencySignal(resp.ResponseTimeMs, query.Complexity),
		efficiencySignal(resp.Tokens),
	}

	overall := 0.0
	for _, s := range signals {
		overall += s.Weight * s.Score
	}

	return datatypes.QualityReport{
		OverallScore:   overall,
		Signals:        signals,
		Grade:          grade(overall),
		Confidence:     confidenceFromSpread(signals),
		Recommendation: recommend(overall, query.Complexity),
	}
}

func citationSignal(resp datatypes.ChatResponse) datatypes.QualitySignal {
	count := len(resp.Citations)
	var score float64
	switch {
	case count == 0:
		if searchProviders[resp.Provider] {
			score = 3
		} else {
			score = 6
		}
	case count == 1:
		score = 6
	case count <= 5:
		score = 9
	case count <= 8:
		score = 7.5
	default:
		score = 6
	}

	if count > 0 {
		hosts := map[string]bool{}
		for _, c := range resp.Citations {
			if u, err := url.Parse(c); err == nil && u.Hostname() != "" {
				hosts[u.Hostname()] = true
			}
		}
		if len(hosts) >= min(3, count) {
			score += 0.5
		}
	}
	if score > 10 {
		score = 10
	}

	return datatypes.QualitySignal{
		Name:   "citationQuality",
		Score:  score,
		Weight: weightCitations,
		Detail: fmt.Sprintf("%d citations", count),
	}
}

func confidenceSignal(content string) datatypes.QualitySignal {
	lower := strings.ToLower(content)

	for _, p := range refusalPatterns {
		if strings.Contains(lower, p) {
			return datatypes.QualitySignal{
				Name:   "confidenceLanguage",
				Score:  1,
				Weight: weightConfidence,
				Detail: "refusal pattern: " + p,
			}
		}
	}

	high := 0
	for _, p := range highConfidencePhrases {
		high += strings.Count(lower, p)
	}
	low := 0
	for _, p := range lowConfidencePhrases {
		low += strings.Count(lower, p)
	}

	adj := clamp(0.5*float64(high-2*low), -5, 3)
	score := clamp(7+adj, 0, 10)

	return datatypes.QualitySignal{
		Name:   "confidenceLanguage",
		Score:  score,
		Weight: weightConfidence,
		Detail: fmt.Sprintf("%d confident, %d hedging", high, low),
	}
}

func structureSignal(content string, query datatypes.ClassifiedQuery) datatypes.QualitySignal {
	credits := 0.0
	if headingRe.MatchString(content) {
		credits += 1
	}
	if bulletRe.MatchString(content) {
		credits += 1
	}
	hasCode := len(codeFence.FindAllString(content, -1)) >= 2
	if hasCode {
		credits += 1.5
	}
	if boldRe.MatchString(content) {
		credits += 0.5
	}
	paraCount := len(paragraphs.Split(strings.TrimSpace(content), -1))
	switch {
	case paraCount >= 3:
		credits += 1
	case paraCount == 2:
		credits += 0.5
	}

	// Structure matters more on complex queries than on simple ones.
	scale := 1.0
	switch query.Complexity {
	case datatypes.ComplexitySimple:
		scale = 0.6
	case datatypes.ComplexityComplex:
		scale = 1.2
	}

	score := 5 + scale*credits
	if query.Intent == datatypes.IntentCode && !hasCode {
		score -= 2
	}
	score = clamp(score, 0, 10)

	return datatypes.QualitySignal{
		Name:   "structuralCompleteness",
		Score:  score,
		Weight: weightStructure,
		Detail: fmt.Sprintf("%.1f credits over %d paragraphs", credits, paraCount),
	}
}

func lengthSignal(content string, complexity datatypes.Complexity) datatypes.QualitySignal {
	band, ok := lengthBands[complexity]
	if !ok {
		band = lengthBands[datatypes.ComplexityMedium]
	}
	tokens := float64((len(content) + 3) / 4)

	var score float64
	switch {
	case tokens < band.min:
		score = math.Max(2, (tokens/band.min)*7)
	case tokens > band.max:
		over := tokens / band.max
		score = math.Max(4, 10-3*(over-1))
	default:
		dev := math.Abs(tokens-band.ideal) / band.ideal
		score = math.Max(7, 10-3*dev)
	}

	return datatypes.QualitySignal{
		Name:   "lengthAppropriateness",
		Score:  score,
		Weight: weightLength,
		Detail: fmt.Sprintf("~%.0f tokens, band [%.0f, %.0f]", tokens, band.min, band.max),
	}
}

func latencySignal(latencyMs int64, complexity datatypes.Complexity) datatypes.QualitySignal {
	baseline, ok := latencyBaselineMs[complexity]
	if !ok {
		baseline = latencyBaselineMs[datatypes.ComplexityMedium]
	}

	var score float64
	switch {
	case latencyMs <= 0:
		score = 7 // unknown
	case float64(latencyMs) <= baseline/2:
		score = 10
	case float64(latencyMs) <= baseline:
		score = 9
	case float64(latencyMs) <= 2*baseline:
		score = 6
	default:
		score = 3
	}

	return datatypes.QualitySignal{
		Name:   "latencyVsExpected",
		Score:  score,
		Weight: weightLatency,
		Detail: fmt.Sprintf("%dms against %.0fms baseline", latencyMs, baseline),
	}
}

func efficiencySignal(tokens datatypes.TokenUsage) datatypes.QualitySignal {
	var score float64
	var detail string
	if tokens.Input <= 0 || tokens.Output <= 0 {
		score = 5
		detail = "token usage unknown"
	} else {
		ratio := float64(tokens.Output) / float64(tokens.Input)
		switch {
		case ratio < 0.5:
			score = 4
		case ratio <= 5:
			score = 9
		case ratio <= 10:
			score = 7
		default:
			score = 5
		}
		detail = fmt.Sprintf("output/input ratio %.2f", ratio)
	}

	return datatypes.QualitySignal{
		Name:   "tokenEfficiency",
		Score:  score,
		Weight: weightEfficiency,
		Detail: detail,
	}
}

func grade(overall float64) string {
	switch {
	case overall >= 8.5:
		return "A"
	case overall >= 7.0:
		return "B"
	case overall >= 5.0:
		return "C"
	case overall >= 3.0:
		return "D"
	default:
		return "F"
	}
}

func recommend(overall float64, complexity datatypes.Complexity) datatypes.Recommendation {
	bars, ok := recommendBars[complexity]
	if !ok {
		bars = recommendBars[datatypes.ComplexityMedium]
	}
	switch {
	case overall >= bars[0]:
		return datatypes.RecommendAccept
	case overall < bars[1]:
		return datatypes.RecommendReject
	default:
		return datatypes.RecommendEscalate
	}
}

// confidenceFromSpread shrinks confidence as signals disagree, using the
// population standard deviation of raw scores.
func confidenceFromSpread(signals []datatypes.QualitySignal) float64 {
	if len(signals) == 0 {
		return 0.2
	}
	mean := 0.0
	for _, s := range signals {
		mean += s.Score
	}
	mean /= float64(len(signals))

	variance := 0.0
	for _, s := range signals {
		d := s.Score - mean
		variance += d * d
	}
	variance /= float64(len(signals))

	return math.Max(0.2, math.Min(1.0, 1-math.Sqrt(variance)/5))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
