// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meridian-ai/meridian/services/orchestrator/analytics"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

const defaultEventLimit = 50

// HandleAnalyticsSummary reports the aggregate usage view.
func HandleAnalyticsSummary(log *analytics.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, log.Summary())
	}
}

// EventsResponse is the GET /api/analytics/events reply.
type EventsResponse struct {
	Events []datatypes.AnalyticsEvent `json:"events"`
	Total  int                        `json:"total"`
}

// HandleAnalyticsEvents pages through the retained event log.
func HandleAnalyticsEvents(log *analytics.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", defaultEventLimit)
		offset := queryInt(c, "offset", 0)
		c.JSON(http.StatusOK, EventsResponse{
			Events: log.Events(limit, offset),
			Total:  log.Size(),
		})
	}
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
