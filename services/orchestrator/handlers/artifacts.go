// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meridian-ai/meridian/services/orchestrator/artifacts"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

const defaultArtifactLimit = 50

// ArtifactsResponse is the GET /api/artifacts reply.
type ArtifactsResponse struct {
	Artifacts []datatypes.RoutingArtifact `json:"artifacts"`
	Summary   datatypes.ArtifactSummary   `json:"summary"`
}

// HandleArtifacts lists recent routing artifacts, optionally filtered
// by type or tag.
func HandleArtifacts(store *artifacts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", defaultArtifactLimit)

		var result []datatypes.RoutingArtifact
		switch {
		case c.Query("type") != "":
			result = store.GetByType(datatypes.ArtifactType(c.Query("type")), limit)
		case c.Query("tag") != "":
			result = store.GetByTag(c.Query("tag"), limit)
		default:
			result = store.GetRecent(limit)
		}

		c.JSON(http.StatusOK, ArtifactsResponse{
			Artifacts: result,
			Summary:   store.GetSummary(),
		})
	}
}

// HandleArtifactsByQuery lists every artifact emitted for one query.
func HandleArtifactsByQuery(store *artifacts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		found := store.GetByQueryId(c.Param("queryId"))
		c.JSON(http.StatusOK, gin.H{"artifacts": found})
	}
}
