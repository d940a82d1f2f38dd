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

	"github.com/meridian-ai/meridian/services/orchestrator/budget"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// BudgetResponse is the GET /api/budget reply.
type BudgetResponse struct {
	Statuses      map[string]datatypes.BudgetStatus `json:"statuses"`
	EmergencyMode bool                              `json:"emergencyMode"`
	ByProvider    map[string]float64                `json:"byProvider"`
	ByModel       map[string]float64                `json:"byModel"`
}

// HandleBudgetStatus reports spend across all periods.
func HandleBudgetStatus(tracker *budget.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		statuses := make(map[string]datatypes.BudgetStatus, 3)
		for _, period := range []datatypes.Period{datatypes.PeriodDaily, datatypes.PeriodWeekly, datatypes.PeriodMonthly} {
			statuses[string(period)] = tracker.GetStatus(period)
		}
		c.JSON(http.StatusOK, BudgetResponse{
			Statuses:      statuses,
			EmergencyMode: tracker.IsEmergencyMode(),
			ByProvider:    tracker.SpendByProvider(),
			ByModel:       tracker.SpendByModel(),
		})
	}
}
