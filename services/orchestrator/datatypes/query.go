// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the shared entities of the Meridian gateway.
//
// # Description
//
// Every subsystem (classifier, cost book, budget tracker, semantic cache,
// quality estimator, router, cascade executor, artifact store, analytics)
// exchanges data through the types in this package. All of them are plain
// value types; immutability is by convention — a produced value is never
// mutated after it crosses a package boundary, with the single documented
// exception of artifact enrichment (see RoutingArtifact).
//
// # Thread Safety
//
// Values are safe to share once constructed. Slices and maps inside a
// value must be treated as read-only by consumers.
package datatypes

// Complexity is the derived difficulty band of a query. It drives model
// selection, cascade chain construction, and output token estimation.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Intent is the dominant purpose detected in a query.
type Intent string

const (
	IntentSearch    Intent = "search"
	IntentReasoning Intent = "reasoning"
	IntentChat      Intent = "chat"
	IntentCreative  Intent = "creative"
	IntentCode      Intent = "code"
)

// ClassifiedQuery is the classifier's verdict for a single query.
//
// # Fields
//
//   - Text: the raw query text, unmodified.
//   - Complexity: thresholded band derived from ComplexityScore.
//   - ComplexityScore: scalar in [0,1] before thresholding.
//   - Intent: argmax over intent keyword scores.
//   - IsRealtime: true when any real-time keyword matched.
//   - EstimatedTokens: ceil(len(Text)/4).
//   - MatchedIndicators: keyword indicators that contributed to the score.
//
// Produced once per request and never mutated afterwards.
type ClassifiedQuery struct {
	Text              string     `json:"text"`
	Complexity        Complexity `json:"complexity"`
	ComplexityScore   float64    `json:"complexityScore"`
	Intent            Intent     `json:"intent"`
	IsRealtime        bool       `json:"isRealtime"`
	EstimatedTokens   int        `json:"estimatedTokens"`
	MatchedIndicators []string   `json:"matchedIndicators"`
}
