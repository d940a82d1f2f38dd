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

	"github.com/meridian-ai/meridian/services/orchestrator"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// ManagerView is the one-call operational snapshot.
type ManagerView struct {
	Budget        BudgetResponse              `json:"budget"`
	Cache         datatypes.CacheStats        `json:"cache"`
	Analytics     datatypes.AnalyticsSummary  `json:"analytics"`
	Artifacts     datatypes.ArtifactSummary   `json:"artifacts"`
	Recent        []datatypes.RoutingArtifact `json:"recentArtifacts"`
	Providers     map[string]ProviderHealth   `json:"providers"`
	EmergencyMode bool                        `json:"emergencyMode"`
	Timestamp     time.Time                   `json:"timestamp"`
}

// HandleManagerView aggregates the dashboard snapshot from every
// subsystem.
func HandleManagerView(e *orchestrator.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		statuses := make(map[string]datatypes.BudgetStatus, 3)
		for _, period := range []datatypes.Period{datatypes.PeriodDaily, datatypes.PeriodWeekly, datatypes.PeriodMonthly} {
			statuses[string(period)] = e.Budget().GetStatus(period)
		}

		health := e.Providers().Health()
		outcomes := e.Providers().Outcomes()
		providers := make(map[string]ProviderHealth, len(health))
		for name, event := range health {
			providers[name] = ProviderHealth{
				Live:        true,
				Healthy:     event.Healthy,
				LatencyMs:   event.LatencyMs,
				SuccessRate: outcomes[name].SuccessRate(),
				Error:       event.Error,
			}
		}

		c.JSON(http.StatusOK, ManagerView{
			Budget: BudgetResponse{
				Statuses:      statuses,
				EmergencyMode: e.Budget().IsEmergencyMode(),
				ByProvider:    e.Budget().SpendByProvider(),
				ByModel:       e.Budget().SpendByModel(),
			},
			Cache:         e.Cache().Stats(c.Request.Context()),
			Analytics:     e.Analytics().Summary(),
			Artifacts:     e.Artifacts().GetSummary(),
			Recent:        e.Artifacts().GetRecent(10),
			Providers:     providers,
			EmergencyMode: e.Budget().IsEmergencyMode(),
			Timestamp:     time.Now(),
		})
	}
}
