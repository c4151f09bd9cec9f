// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package translator converts natural-language utterances into
// structured plans via an external language model.
//
// The model is an untrusted, non-deterministic collaborator: its raw
// output goes through a schema-validating adapter before a Plan is
// handed to the planner, and any network, timeout, or shape failure
// surfaces as ErrTranslation so the caller can degrade to a fallback
// instead of failing the turn.
package translator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/curonhq/curon/services/server/datatypes"
)

// ErrTranslation indicates the model was unreachable, timed out, or
// returned output that failed the shape check. Never surfaced to the
// end user as a hard failure.
var ErrTranslation = errors.New("translation failed")

// Client is the raw text-generation backend underneath the translator.
type Client interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Translator produces a Plan from an utterance plus context.
type Translator interface {
	Translate(ctx context.Context, utterance, contextJSON, scopeID string) (*datatypes.Plan, error)
}

// Config holds translator configuration.
type Config struct {
	// Backend selects the generation client: "openai" (any
	// OpenAI-compatible endpoint, Groq included) or "ollama".
	// Default: "openai".
	Backend string

	// Timeout bounds a single model call. Default: 60s.
	Timeout time.Duration

	// RequestsPerSecond rate-limits outbound model calls.
	// Default: 5. Set negative to disable.
	RequestsPerSecond float64
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = "openai"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5
	}
}

// modelTranslator is the production Translator: one generation client
// behind a rate limiter and a per-call timeout, with the plan adapter
// on the way out.
type modelTranslator struct {
	client  Client
	timeout time.Duration
	limiter *rate.Limiter
}

// New builds a Translator for the configured backend.
func New(cfg Config) (Translator, error) {
	cfg.applyDefaults()

	var client Client
	var err error
	switch cfg.Backend {
	case "openai":
		client, err = NewOpenAIClient()
	case "ollama":
		client, err = NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown translator backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing generation client. Used by tests to
// substitute a stub backend.
func NewWithClient(client Client, cfg Config) Translator {
	cfg.applyDefaults()
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &modelTranslator{
		client:  client,
		timeout: cfg.Timeout,
		limiter: limiter,
	}
}

// Translate implements Translator.
func (t *modelTranslator) Translate(ctx context.Context, utterance, contextJSON, scopeID string) (*datatypes.Plan, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %s", ErrTranslation, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	raw, err := t.client.Generate(ctx, SystemPrompt, BuildUserMessage(utterance, contextJSON, scopeID))
	if err != nil {
		slog.Error("model call failed", "error", err)
		return nil, fmt.Errorf("%w: %s", ErrTranslation, err)
	}

	plan, err := ParsePlan(raw)
	if err != nil {
		slog.Warn("model returned malformed plan", "error", err)
		return nil, err
	}
	return plan, nil
}
