// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache implements the semantic response cache.
//
// # Description
//
// The cache fronts a pluggable key-value adapter with two lookup paths:
// an exact SHA-256 hash index and a linear cosine-similarity scan over
// token-count vectors. Storage failures never abort a request — they are
// logged and degrade to cache misses on lookup and no-ops on store.
//
// # Adapters
//
// Adapter is a small, total method set. The memory adapter is the
// default; the redis adapter shares state across restarts. Adapters are
// registered at construction, not discovered dynamically.
//
// # Thread Safety
//
// The semantic layer serializes lookups and stores through one mutex.
// The semantic scan reads a snapshot of entries and may race with
// concurrent writes; stale entries are filtered by expiry, so the race
// is benign.
package cache

import (
	"context"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// Adapter is the storage contract under the semantic cache. All methods
// are total: a missing key is (zero, false, nil), never an error.
type Adapter interface {
	// Get returns the entry for key, with found=false when absent.
	Get(ctx context.Context, key string) (datatypes.CacheEntry, bool, error)

	// Set writes or replaces the entry for key.
	Set(ctx context.Context, key string, entry datatypes.CacheEntry) error

	// Delete removes the entry for key; deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Size returns the number of stored entries.
	Size(ctx context.Context) (int, error)

	// Entries returns a snapshot of every stored entry.
	Entries(ctx context.Context) ([]datatypes.CacheEntry, error)
}
