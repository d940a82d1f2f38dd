// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meridian-ai/meridian/services/orchestrator/costbook"
	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
)

// OpenAIProvider adapts the OpenAI chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	book   *costbook.Book
	models []string
}

// NewOpenAIProvider builds the adapter from OPENAI_API_KEY.
func NewOpenAIProvider(book *costbook.Book) (*OpenAIProvider, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is missing")
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		book:   book,
		models: modelsFor(book, "openai"),
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Models() []string { return p.models }

func (p *OpenAIProvider) Chat(ctx context.Context, model string, req datatypes.ChatRequest) (datatypes.ChatResponse, error) {
	return withRetry(ctx, p.Name(), model, func() (datatypes.ChatResponse, error) {
		return p.chatOnce(ctx, model, req)
	})
}

func (p *OpenAIProvider) chatOnce(ctx context.Context, model string, req datatypes.ChatRequest) (datatypes.ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.ConversationHistory)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt,
		})
	}
	for _, m := range req.ConversationHistory {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: req.Content,
	})

	apiReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		apiReq.Temperature = *req.Temperature
	}

	start := time.Now()
	apiResp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return datatypes.ChatResponse{}, p.wrapError(model, err)
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
		FinishReason:   string(apiResp.Choices[0].FinishReason),
	}, nil
}

func (p *OpenAIProvider) wrapError(model string, err error) error {
	pe := &datatypes.ProviderError{Provider: p.Name(), Model: model, Err: err}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.HTTPStatusCode
	}
	return pe
}

func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	return err
}

var _ Provider = (*OpenAIProvider)(nil)

// modelsFor pulls a provider's model ids out of the cost book so the
// fleet is declared in exactly one place.
func modelsFor(book *costbook.Book, provider string) []string {
	var models []string
	for _, profile := range book.All() {
		if profile.Provider == provider {
			models = append(models, profile.Model)
		}
	}
	return models
}
