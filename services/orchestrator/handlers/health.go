// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meridian-ai/meridian/services/llm"
)

// ProviderHealth is the per-provider block of GET /api/health.
type ProviderHealth struct {
	Live        bool    `json:"live"`
	Healthy     bool    `json:"healthy"`
	LatencyMs   int64   `json:"latencyMs"`
	SuccessRate float64 `json:"successRate"`
	Error       string  `json:"error,omitempty"`
}

// HealthResponse is the GET /api/health reply.
type HealthResponse struct {
	Status    string                    `json:"status"`
	Providers map[string]ProviderHealth `json:"providers"`
	WsClients int                       `json:"wsClients"`
	Uptime    float64                   `json:"uptime"`
	Timestamp time.Time                 `json:"timestamp"`
}

// HandleHealth reports provider liveness and gateway vitals. wsClients
// may be nil when no socket gateway is mounted.
func HandleHealth(registry *llm.Registry, wsClients func() int, started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := registry.Health()
		outcomes := registry.Outcomes()

		status := "ok"
		providers := make(map[string]ProviderHealth, len(health))
		for name, event := range health {
			if !event.Healthy {
				status = "degraded"
			}
			providers[name] = ProviderHealth{
				Live:        true,
				Healthy:     event.Healthy,
				LatencyMs:   event.LatencyMs,
				SuccessRate: outcomes[name].SuccessRate(),
				Error:       event.Error,
			}
		}
		if len(providers) == 0 {
			status = "degraded"
		}

		clients := 0
		if wsClients != nil {
			clients = wsClients()
		}
		c.JSON(http.StatusOK, HealthResponse{
			Status:    status,
			Providers: providers,
			WsClients: clients,
			Uptime:    time.Since(started).Seconds(),
			Timestamp: time.Now(),
		})
	}
}
