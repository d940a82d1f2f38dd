// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// CacheEntry is one stored response in the semantic cache.
//
// HitCount is the only field that mutates after creation; it is bumped on
// every exact or semantic hit and used by the capacity eviction policy
// (lowest hit count, then oldest, goes first).
type CacheEntry struct {
	QueryHash  string    `json:"queryHash"`
	QueryText  string    `json:"queryText"`
	Response   string    `json:"response"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Cost       float64   `json:"cost"`
	TokensUsed int       `json:"tokensUsed"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	HitCount   int       `json:"hitCount"`
}

// Expired reports whether the entry must no longer be served.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// CacheLookupResult is a cache hit together with the similarity that
// produced it: 1.0 for exact hash matches, otherwise the cosine
// similarity of the best semantic candidate.
type CacheLookupResult struct {
	Entry      CacheEntry `json:"entry"`
	Similarity float64    `json:"similarity"`
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Entries      int     `json:"entries"`
	MaxEntries   int     `json:"maxEntries"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	HitRate      float64 `json:"hitRate"`
	Evictions    int64   `json:"evictions"`
	CostSavedUSD float64 `json:"costSaved"`
}
