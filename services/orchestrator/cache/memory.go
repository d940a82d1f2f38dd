// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"sync"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// MemoryAdapter is the default in-process storage backend.
type MemoryAdapter struct {
	mu      sync.RWMutex
	entries map[string]datatypes.CacheEntry
}

// NewMemoryAdapter returns an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{entries: make(map[string]datatypes.CacheEntry)}
}

func (m *MemoryAdapter) Get(_ context.Context, key string) (datatypes.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryAdapter) Set(_ context.Context, key string, entry datatypes.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
	return nil
}

func (m *MemoryAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryAdapter) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]datatypes.CacheEntry)
	return nil
}

func (m *MemoryAdapter) Size(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *MemoryAdapter) Entries(_ context.Context) ([]datatypes.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]datatypes.CacheEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

var _ Adapter = (*MemoryAdapter)(nil)
