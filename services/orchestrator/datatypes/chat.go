// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Message is one turn of conversation history, provider-neutral.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// TokenUsage is the token accounting returned by a provider call.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// ChatRequest is the uniform request every provider adapter consumes.
type ChatRequest struct {
	Id                  string    `json:"id"`
	Content             string    `json:"content"`
	SystemPrompt        string    `json:"systemPrompt,omitempty"`
	ConversationHistory []Message `json:"conversationHistory,omitempty"`
	MaxTokens           int       `json:"maxTokens,omitempty"`
	Temperature         *float32  `json:"temperature,omitempty"`
}

// ChatResponse is the uniform response every provider adapter produces.
// Cost is derived from the cost book, not from vendor billing metadata.
type ChatResponse struct {
	Id             string     `json:"id"`
	Content        string     `json:"content"`
	Provider       string     `json:"provider"`
	Model          string     `json:"model"`
	Tokens         TokenUsage `json:"tokens"`
	Cost           float64    `json:"cost"`
	ResponseTimeMs int64      `json:"responseTimeMs"`
	Citations      []string   `json:"citations,omitempty"`
	FinishReason   string     `json:"finishReason,omitempty"`
}

// QueryOptions carries per-request overrides into the orchestrator.
type QueryOptions struct {
	SystemPrompt        string    `json:"systemPrompt,omitempty"`
	ConversationHistory []Message `json:"conversationHistory,omitempty"`
	MaxTokens           int       `json:"maxTokens,omitempty"`
	Temperature         *float32  `json:"temperature,omitempty"`
	Strategy            Strategy  `json:"strategy,omitempty"` // optional routing override
}

// AgentResponse is what the orchestrator hands back per request: the
// provider response plus the full routing trace.
type AgentResponse struct {
	Response       ChatResponse      `json:"response"`
	Classification ClassifiedQuery   `json:"classification"`
	Routing        RoutingDecision   `json:"routing"`
	Artifacts      []RoutingArtifact `json:"artifacts"`
	CacheHit       bool              `json:"cacheHit"`
	Similarity     float64           `json:"similarity,omitempty"`
	TotalTimeMs    int64             `json:"totalTimeMs"`
}
