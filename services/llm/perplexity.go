// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/meridian-ai/meridian/services/orchestrator/costbook"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

const perplexityBaseURL = "https://api.perplexity.ai/chat/completions"

// The wire format is OpenAI-compatible plus a citations array, which is
// the whole reason this adapter exists.
type perplexityRequest struct {
	Model       string              `json:"model"`
	Messages    []perplexityMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float32            `json:"temperature,omitempty"`
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityResponse struct {
	Id        string   `json:"id"`
	Citations []string `json:"citations"`
	Choices   []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// PerplexityProvider adapts the Perplexity search-grounded chat API.
type PerplexityProvider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	book       *costbook.Book
	models     []string
}

// NewPerplexityProvider builds the adapter from PERPLEXITY_API_KEY.
func NewPerplexityProvider(book *costbook.Book) (*PerplexityProvider, error) {
	apiKey := os.Getenv("PERPLEXITY_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("PERPLEXITY_API_KEY is missing")
	}
	return &PerplexityProvider{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     apiKey,
		baseURL:    perplexityBaseURL,
		book:       book,
		models:     modelsFor(book, "perplexity"),
	}, nil
}

func (p *PerplexityProvider) Name() string { return "perplexity" }

func (p *PerplexityProvider) Models() []string { return p.models }

func (p *PerplexityProvider) Chat(ctx context.Context, model string, req datatypes.ChatRequest) (datatypes.ChatResponse, error) {
	return withRetry(ctx, p.Name(), model, func() (datatypes.ChatResponse, error) {
		return p.chatOnce(ctx, model, req)
	})
}

func (p *PerplexityProvider) chatOnce(ctx context.Context, model string, req datatypes.ChatRequest) (datatypes.ChatResponse, error) {
	messages := make([]perplexityMessage, 0, len(req.ConversationHistory)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, perplexityMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.ConversationHistory {
		messages = append(messages, perplexityMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, perplexityMessage{Role: "user", Content: req.Content})

	body, err := json.Marshal(perplexityRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return datatypes.ChatResponse{}, fmt.Errorf("marshal perplexity request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return datatypes.ChatResponse{}, fmt.Errorf("build perplexity request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return datatypes.ChatResponse{}, &datatypes.ProviderError{Provider: p.Name(), Model: model, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return datatypes.ChatResponse{}, &datatypes.ProviderError{Provider: p.Name(), Model: model, Err: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		return datatypes.ChatResponse{}, &datatypes.ProviderError{
			Provider:   p.Name(),
			Model:      model,
			StatusCode: httpResp.StatusCode,
			RetryAfter: retryAfterSeconds(httpResp),
			Err:        fmt.Errorf("perplexity: %s", strings.TrimSpace(string(raw))),
		}
	}

	var apiResp perplexityResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return datatypes.ChatResponse{}, &datatypes.ProviderError{Provider: p.Name(), Model: model, Err: err}
	}
	if len(apiResp.Choices) == 0 {
		return datatypes.ChatResponse{}, &datatypes.ProviderError{
			Provider: p.Name(), Model: model, Err: fmt.Errorf("empty choices"),
		}
	}

	usage := datatypes.TokenUsage{
		Input:  apiResp.Usage.PromptTokens,
		Output: apiResp.Usage.CompletionTokens,
		Total:  apiResp.Usage.TotalTokens,
	}
	return datatypes.ChatResponse{
		Id:             req.Id,
		Content:        apiResp.Choices[0].Message.Content,
		Provider:       p.Name(),
		Model:          model,
		Tokens:         usage,
		Cost:           p.book.EstimateCost(p.Name(), model, usage.Input, usage.Output).EstimatedCost,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Citations:      apiResp.Citations,
		FinishReason:   apiResp.Choices[0].FinishReason,
	}, nil
}

func (p *PerplexityProvider) HealthCheck(ctx context.Context) error {
	temp := float32(0)
	_, err := p.chatOnce(ctx, p.models[0], datatypes.ChatRequest{
		Content:     "ping",
		MaxTokens:   1,
		Temperature: &temp,
	})
	return err
}

var _ Provider = (*PerplexityProvider)(nil)
