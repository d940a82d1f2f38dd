// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// Config tunes the semantic layer.
type Config struct {
	// SimilarityThreshold is the minimum cosine similarity for a
	// semantic hit. Default 0.82.
	SimilarityThreshold float64

	// MaxEntries caps the store; a write at capacity evicts the entry
	// with the lowest hit count (oldest first on ties). Default 1000.
	MaxEntries int

	// DefaultTTL applies when the caller does not supply one.
	// Default one hour.
	DefaultTTL time.Duration
}

// DefaultConfig returns the shipped cache tuning.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.82,
		MaxEntries:          1000,
		DefaultTTL:          time.Hour,
	}
}

// Scorer computes similarity between a query and candidate texts. It is
// the seam for swapping the bag-of-words baseline for an external
// embedding service without touching the cache protocol.
type Scorer interface {
	// Scores returns one similarity in [0,1] per candidate.
	Scores(query string, candidates []string) []float64
}

// SemanticCache layers exact-hash and similarity lookup over an Adapter.
type SemanticCache struct {
	mu      sync.Mutex
	adapter Adapter
	cfg     Config
	scorer  Scorer

	hits      int64
	misses    int64
	evictions int64
	costSaved float64

	now func() time.Time
}

// New returns a SemanticCache over the given adapter. A nil scorer uses
// the token-count cosine baseline. Zero config fields take defaults.
func New(adapter Adapter, cfg Config, scorer Scorer) *SemanticCache {
	def := DefaultConfig()
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}
	if scorer == nil {
		scorer = bowScorer{}
	}
	return &SemanticCache{
		adapter: adapter,
		cfg:     cfg,
		scorer:  scorer,
		now:     time.Now,
	}
}

// HashQuery derives the exact-match key: SHA-256 of the lowercased,
// trimmed text, truncated to 16 hex characters.
func HashQuery(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])[:16]
}

// Lookup finds a usable cached response for the query, preferring the
// exact hash index and falling back to the semantic scan. A storage
// failure degrades to a miss.
func (c *SemanticCache) Lookup(ctx context.Context, query string) (datatypes.CacheLookupResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	hash := HashQuery(query)

	entry, found, err := c.adapter.Get(ctx, hash)
	if err != nil {
		slog.Warn("cache lookup failed, treating as miss", "error", err)
		c.misses++
		return datatypes.CacheLookupResult{}, false
	}
	if found && !entry.Expired(now) {
		c.bumpLocked(ctx, &entry)
		return datatypes.CacheLookupResult{Entry: entry, Similarity: 1.0}, true
	}

	// Semantic scan over non-expired entries.
	entries, err := c.adapter.Entries(ctx)
	if err != nil {
		slog.Warn("cache scan failed, treating as miss", "error", err)
		c.misses++
		return datatypes.CacheLookupResult{}, false
	}

	var live []datatypes.CacheEntry
	var texts []string
	for _, e := range entries {
		if e.Expired(now) {
			continue
		}
		live = append(live, e)
		texts = append(texts, e.QueryText)
	}
	if len(live) == 0 {
		c.misses++
		return datatypes.CacheLookupResult{}, false
	}

	scores := c.scorer.Scores(query, texts)
	bestIdx, bestScore := -1, 0.0
	for i, s := range scores {
		if s > bestScore {
			bestIdx, bestScore = i, s
		}
	}

	if bestIdx < 0 || bestScore < c.cfg.SimilarityThreshold {
		c.misses++
		return datatypes.CacheLookupResult{}, false
	}

	best := live[bestIdx]
	c.bumpLocked(ctx, &best)
	return datatypes.CacheLookupResult{Entry: best, Similarity: bestScore}, true
}

// bumpLocked increments a hit counter and persists it best-effort.
// Caller holds c.mu.
func (c *SemanticCache) bumpLocked(ctx context.Context, entry *datatypes.CacheEntry) {
	entry.HitCount++
	c.hits++
	c.costSaved += entry.Cost
	if err := c.adapter.Set(ctx, entry.QueryHash, *entry); err != nil {
		slog.Warn("cache hit-count persist failed", "key", entry.QueryHash, "error", err)
	}
}

// Store writes a response into the cache, evicting the least valuable
// entry when at capacity. ttl <= 0 uses the configured default. Storage
// failures are logged and swallowed.
func (c *SemanticCache) Store(ctx context.Context, query, response, provider, model string, cost float64, tokensUsed int, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	now := c.now()

	size, err := c.adapter.Size(ctx)
	if err != nil {
		slog.Warn("cache store failed at size check", "error", err)
		return
	}
	if size >= c.cfg.MaxEntries {
		c.evictOneLocked(ctx)
	}

	hash := HashQuery(query)
	entry := datatypes.CacheEntry{
		QueryHash:  hash,
		QueryText:  query,
		Response:   response,
		Provider:   provider,
		Model:      model,
		Cost:       cost,
		TokensUsed: tokensUsed,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := c.adapter.Set(ctx, hash, entry); err != nil {
		slog.Warn("cache store failed", "key", hash, "error", err)
	}
}

// evictOneLocked removes the entry with the lowest hit count, breaking
// ties by age. Caller holds c.mu.
func (c *SemanticCache) evictOneLocked(ctx context.Context) {
	entries, err := c.adapter.Entries(ctx)
	if err != nil || len(entries) == 0 {
		return
	}
	victim := entries[0]
	for _, e := range entries[1:] {
		if e.HitCount < victim.HitCount ||
			(e.HitCount == victim.HitCount && e.CreatedAt.Before(victim.CreatedAt)) {
			victim = e
		}
	}
	if err := c.adapter.Delete(ctx, victim.QueryHash); err != nil {
		slog.Warn("cache eviction failed", "key", victim.QueryHash, "error", err)
		return
	}
	c.evictions++
}

// PruneExpired deletes every expired entry and returns how many went.
func (c *SemanticCache) PruneExpired(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.adapter.Entries(ctx)
	if err != nil {
		slog.Warn("cache prune failed", "error", err)
		return 0
	}
	now := c.now()
	pruned := 0
	for _, e := range entries {
		if e.Expired(now) {
			if err := c.adapter.Delete(ctx, e.QueryHash); err == nil {
				pruned++
			}
		}
	}
	return pruned
}

// Clear empties the cache.
func (c *SemanticCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adapter.Clear(ctx)
}

// Entries returns a snapshot of stored entries, capped at limit
// (0 = no cap).
func (c *SemanticCache) Entries(ctx context.Context, limit int) []datatypes.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.adapter.Entries(ctx)
	if err != nil {
		slog.Warn("cache entries snapshot failed", "error", err)
		return nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Stats returns effectiveness counters plus the current size.
func (c *SemanticCache) Stats(ctx context.Context) datatypes.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	size, err := c.adapter.Size(ctx)
	if err != nil {
		size = 0
	}
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return datatypes.CacheStats{
		Entries:      size,
		MaxEntries:   c.cfg.MaxEntries,
		Hits:         c.hits,
		Misses:       c.misses,
		HitRate:      rate,
		Evictions:    c.evictions,
		CostSavedUSD: c.costSaved,
	}
}

// =============================================================================
// Bag-of-words cosine baseline
// =============================================================================

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// Tokenize lowercases, strips non-word characters, splits on whitespace
// and drops tokens of length <= 1.
func Tokenize(text string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// bowScorer is the default token-count cosine similarity.
type bowScorer struct{}

func (bowScorer) Scores(query string, candidates []string) []float64 {
	queryCounts := tokenCounts(Tokenize(query))
	scores := make([]float64, len(candidates))
	for i, cand := range candidates {
		scores[i] = cosine(queryCounts, tokenCounts(Tokenize(cand)))
	}
	return scores
}

func tokenCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

func cosine(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dot := 0.0
	for t, ca := range a {
		if cb, ok := b[t]; ok {
			dot += float64(ca * cb)
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (norm(a) * norm(b))
}

func norm(m map[string]int) float64 {
	sum := 0.0
	for _, c := range m {
		sum += float64(c * c)
	}
	return math.Sqrt(sum)
}
