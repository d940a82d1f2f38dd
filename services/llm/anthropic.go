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
	"strconv"
	"strings"
	"time"

	"github.com/meridian-ai/meridian/services/orchestrator/costbook"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

const (
	anthropicAPIVersion = "2023-06-01"
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"
	anthropicMaxTokens  = 4096
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Id      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AnthropicProvider adapts the Anthropic messages API over raw HTTP.
type AnthropicProvider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	book       *costbook.Book
	models     []string
}

// NewAnthropicProvider builds the adapter from ANTHROPIC_API_KEY.
func NewAnthropicProvider(book *costbook.Book) (*AnthropicProvider, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is missing")
	}
	return &AnthropicProvider{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		baseURL:    anthropicBaseURL,
		book:       book,
		models:     modelsFor(book, "anthropic"),
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Models() []string { return p.models }

func (p *AnthropicProvider) Chat(ctx context.Context, model string, req datatypes.ChatRequest) (datatypes.ChatResponse, error) {
	return withRetry(ctx, p.Name(), model, func() (datatypes.ChatResponse, error) {
		return p.chatOnce(ctx, model, req)
	})
}

func (p *AnthropicProvider) chatOnce(ctx context.Context, model string, req datatypes.ChatRequest) (datatypes.ChatResponse, error) {
	messages := make([]anthropicMessage, 0, len(req.ConversationHistory)+1)
	for _, m := range req.ConversationHistory {
		if m.Role == "system" {
			continue // Anthropic takes the system prompt top-level
		}
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, anthropicMessage{Role: "user", Content: req.Content})

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	body, err := json.Marshal(anthropicRequest{
		Model:       model,
		Messages:    messages,
		System:      req.SystemPrompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return datatypes.ChatResponse{}, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return datatypes.ChatResponse{}, fmt.Errorf("build anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

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
			Err:        fmt.Errorf("anthropic: %s", strings.TrimSpace(string(raw))),
		}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return datatypes.ChatResponse{}, &datatypes.ProviderError{Provider: p.Name(), Model: model, Err: err}
	}
	if apiResp.Error != nil {
		return datatypes.ChatResponse{}, &datatypes.ProviderError{
			Provider: p.Name(), Model: model,
			Err: fmt.Errorf("anthropic %s: %s", apiResp.Error.Type, apiResp.Error.Message),
		}
	}

	var content strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	usage := datatypes.TokenUsage{
		Input:  apiResp.Usage.InputTokens,
		Output: apiResp.Usage.OutputTokens,
		Total:  apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
	}
	return datatypes.ChatResponse{
		Id:             req.Id,
		Content:        content.String(),
		Provider:       p.Name(),
		Model:          model,
		Tokens:         usage,
		Cost:           p.book.EstimateCost(p.Name(), model, usage.Input, usage.Output).EstimatedCost,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		FinishReason:   apiResp.StopReason,
	}, nil
}

func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	temp := float32(0)
	_, err := p.chatOnce(ctx, p.models[0], datatypes.ChatRequest{
		Content:     "ping",
		MaxTokens:   1,
		Temperature: &temp,
	})
	return err
}

var _ Provider = (*AnthropicProvider)(nil)

// retryAfterSeconds parses a Retry-After header, 0 when absent.
func retryAfterSeconds(resp *http.Response) int {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}
