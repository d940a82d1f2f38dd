// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the gateway's HTTP surface onto a gin engine.
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridian-ai/meridian/services/orchestrator"
	"github.com/meridian-ai/meridian/services/orchestrator/handlers"
)

// Options tunes the HTTP surface.
type Options struct {
	// CORSOrigin is the allowed origin; empty disables the CORS headers.
	CORSOrigin string
	// WSToken authenticates socket clients; empty disables auth.
	WSToken string
}

// SetupRoutes mounts every endpoint and returns the socket gateway so
// the caller can observe client counts.
func SetupRoutes(router *gin.Engine, engine *orchestrator.Engine, opts Options) *handlers.SocketGateway {
	started := time.Now()
	gateway := handlers.NewSocketGateway(engine.Hub(), opts.WSToken)

	if opts.CORSOrigin != "" {
		router.Use(corsMiddleware(opts.CORSOrigin))
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/query", handlers.HandleQuery(engine, engine.Budget()))
		api.GET("/health", handlers.HandleHealth(engine.Providers(), gateway.Clients, started))
		api.GET("/analytics", handlers.HandleAnalyticsSummary(engine.Analytics()))
		api.GET("/analytics/events", handlers.HandleAnalyticsEvents(engine.Analytics()))
		api.GET("/budget", handlers.HandleBudgetStatus(engine.Budget()))
		api.GET("/cache", handlers.HandleCacheStats(engine.Cache()))
		api.POST("/cache/clear", handlers.HandleCacheClear(engine.Cache(), engine.Hub()))
		api.GET("/artifacts", handlers.HandleArtifacts(engine.Artifacts()))
		api.GET("/artifacts/:queryId", handlers.HandleArtifactsByQuery(engine.Artifacts()))
		api.GET("/manager-view", handlers.HandleManagerView(engine))
		api.GET("/ws", gateway.Handle())
	}

	return gateway
}

// corsMiddleware sets the minimal header set for browser dashboards.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
