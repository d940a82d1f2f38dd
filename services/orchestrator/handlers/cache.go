// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meridian-ai/meridian/services/orchestrator/cache"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/meridian-ai/meridian/services/orchestrator/hub"
)

// cacheEntriesShown caps the entry listing in GET /api/cache.
const cacheEntriesShown = 100

// CacheResponse is the GET /api/cache reply.
type CacheResponse struct {
	Stats   datatypes.CacheStats   `json:"stats"`
	Entries []datatypes.CacheEntry `json:"entries"`
}

// HandleCacheStats reports cache statistics plus the most recent
// entries.
func HandleCacheStats(sc *cache.SemanticCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, CacheResponse{
			Stats:   sc.Stats(ctx),
			Entries: sc.Entries(ctx, cacheEntriesShown),
		})
	}
}

// HandleCacheClear drops every cached entry. events may be nil.
func HandleCacheClear(sc *cache.SemanticCache, events *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sc.Clear(c.Request.Context()); err != nil {
			slog.Error("cache clear failed", "error", err)
			writeError(c, err, nil)
			return
		}
		if events != nil {
			events.Cache.Publish(datatypes.CacheEvent{Kind: "clear", Timestamp: time.Now()})
		}
		c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
	}
}
