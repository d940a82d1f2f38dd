// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Recommendation is the quality estimator's verdict on a response.
type Recommendation string

const (
	RecommendAccept   Recommendation = "accept"
	RecommendEscalate Recommendation = "escalate"
	RecommendReject   Recommendation = "reject"
)

// QualitySignal is one weighted component of a quality report. Weights
// across the six signals sum to 1.0.
type QualitySignal struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`  // 0-10
	Weight float64 `json:"weight"` // contribution to the overall score
	Detail string  `json:"detail"`
}

// QualityReport is the multi-signal score for one (response, query) pair.
//
// OverallScore is the weighted sum of signal scores. Confidence shrinks as
// the signals disagree: max(0.2, min(1.0, 1 - stddev/5)). The grade bands
// are A>=8.5, B>=7.0, C>=5.0, D>=3.0, else F. Recommendation thresholds
// depend on query complexity; scores between the accept and reject bars
// map to escalate.
type QualityReport struct {
	OverallScore   float64         `json:"overallScore"` // 0-10
	Signals        []QualitySignal `json:"signals"`
	Grade          string          `json:"grade"` // A/B/C/D/F
	Confidence     float64         `json:"confidence"`
	Recommendation Recommendation  `json:"recommendation"`
}
