// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meridian-ai/meridian/services/orchestrator"
	"github.com/meridian-ai/meridian/services/orchestrator/budget"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// QueryRequest is the POST /api/query body.
type QueryRequest struct {
	Content             string              `json:"content" binding:"required"`
	SystemPrompt        string              `json:"systemPrompt"`
	MaxTokens           int                 `json:"maxTokens" binding:"omitempty,gte=1,lte=128000"`
	Temperature         *float32            `json:"temperature" binding:"omitempty,gte=0,lte=2"`
	ConversationHistory []datatypes.Message `json:"conversationHistory" binding:"omitempty,dive"`
	Strategy            string              `json:"strategy" binding:"omitempty,oneof=priority cost-optimized cascade emergency"`
}

// QueryResponse is the POST /api/query reply.
type QueryResponse struct {
	Id             string                      `json:"id"`
	Content        string                      `json:"content"`
	Provider       string                      `json:"provider"`
	Model          string                      `json:"model"`
	CacheHit       bool                        `json:"cacheHit"`
	Similarity     float64                     `json:"similarity,omitempty"`
	Cost           float64                     `json:"cost"`
	Tokens         datatypes.TokenUsage        `json:"tokens"`
	ResponseTimeMs int64                       `json:"responseTimeMs"`
	TotalTimeMs    int64                       `json:"totalTimeMs"`
	Citations      []string                    `json:"citations,omitempty"`
	FinishReason   string                      `json:"finishReason,omitempty"`
	Classification datatypes.ClassifiedQuery   `json:"classification"`
	Routing        datatypes.RoutingDecision   `json:"routing"`
	Artifacts      []datatypes.RoutingArtifact `json:"artifacts,omitempty"`
}

// HandleQuery runs one query through the pipeline. The tracker is only
// consulted to attach spend details to budget rejections.
func HandleQuery(svc orchestrator.Service, tracker *budget.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		opts := datatypes.QueryOptions{
			SystemPrompt:        req.SystemPrompt,
			ConversationHistory: req.ConversationHistory,
			MaxTokens:           req.MaxTokens,
			Temperature:         req.Temperature,
			Strategy:            datatypes.Strategy(req.Strategy),
		}

		result, err := svc.ProcessQuery(c.Request.Context(), req.Content, opts)
		if err != nil {
			var details any
			if errors.Is(err, datatypes.ErrBudgetExceeded) && tracker != nil {
				daily := tracker.GetStatus(datatypes.PeriodDaily)
				details = gin.H{"spent": daily.Spent, "limit": daily.Limit, "percentUsed": daily.PercentUsed}
			}
			slog.Warn("query failed", "error", err)
			writeError(c, err, details)
			return
		}

		c.JSON(http.StatusOK, QueryResponse{
			Id:             result.Response.Id,
			Content:        result.Response.Content,
			Provider:       result.Response.Provider,
			Model:          result.Response.Model,
			CacheHit:       result.CacheHit,
			Similarity:     result.Similarity,
			Cost:           result.Response.Cost,
			Tokens:         result.Response.Tokens,
			ResponseTimeMs: result.Response.ResponseTimeMs,
			TotalTimeMs:    result.TotalTimeMs,
			Citations:      result.Response.Citations,
			FinishReason:   result.Response.FinishReason,
			Classification: result.Classification,
			Routing:        result.Routing,
			Artifacts:      result.Artifacts,
		})
	}
}
