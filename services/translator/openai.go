// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package translator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var openaiTracer = otel.Tracer("curon.translator.openai")

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.1-8b-instant"
)

// OpenAIClient talks to any OpenAI-compatible chat completion
// endpoint. The default base URL points at Groq, which serves the
// production plan model.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client from the environment:
//
//   - CURON_LLM_API_KEY: API key (falls back to GROQ_API_KEY)
//   - CURON_LLM_BASE_URL: endpoint (default: Groq)
//   - CURON_LLM_MODEL: model name (default: llama-3.1-8b-instant)
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("CURON_LLM_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if apiKey == "" {
		secretPath := "/run/secrets/curon_llm_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the model API key from container secrets")
		} else {
			slog.Error("CURON_LLM_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("CURON_LLM_API_KEY environment variable not set")
		}
	}

	baseURL := os.Getenv("CURON_LLM_BASE_URL")
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	model := os.Getenv("CURON_LLM_MODEL")
	if model == "" {
		model = defaultGroqModel
		slog.Warn("CURON_LLM_MODEL not set, defaulting", "model", model)
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimSuffix(baseURL, "/")

	slog.Info("Initializing OpenAI-compatible client", "base_url", config.BaseURL, "model", model)
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Generate implements the Client interface. Low temperature keeps the
// plan output deterministic enough to parse.
func (o *OpenAIClient) Generate(ctx context.Context, system, user string) (string, error) {
	ctx, span := openaiTracer.Start(ctx, "OpenAIClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))
	slog.Debug("Generating plan via OpenAI-compatible endpoint", "model", o.model)

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		TopP:        0.9,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("chat completion call failed", "error", err)
		return "", fmt.Errorf("chat completion call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("model returned no choices")
		return "", fmt.Errorf("model returned no choices")
	}
	slog.Debug("Received model response", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
