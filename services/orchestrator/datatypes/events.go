// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// CacheEvent announces cache activity on the event hub.
type CacheEvent struct {
	Kind       string    `json:"kind"` // "hit", "store", "clear"
	QueryHash  string    `json:"queryHash,omitempty"`
	Similarity float64   `json:"similarity,omitempty"`
	CostSaved  float64   `json:"costSaved,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HealthEvent announces a provider health transition.
type HealthEvent struct {
	Provider  string    `json:"provider"`
	Healthy   bool      `json:"healthy"`
	LatencyMs int64     `json:"latencyMs,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}
