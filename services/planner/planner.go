// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package planner is the plan interpretation and execution state
// machine: it reconciles externally produced plans against persisted
// intents, defers mutating plans proposed during a focused
// conversation behind a confirmation, and applies approved mutations
// atomically and idempotently.
//
// One conversational turn flows through four stages:
//
//	context builder -> proposal gate -> translator -> interpreter
//
// The gate only runs when the turn is focused on an intent holding a
// pending proposal; when it short-circuits, the translator is never
// invoked.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/curonhq/curon/services/server/datatypes"
	"github.com/curonhq/curon/services/storage"
	"github.com/curonhq/curon/services/translator"
)

var plannerTracer = otel.Tracer("curon.planner")

// ErrValidation indicates the caller's input was missing a required
// field. Surfaced as a rejected request; no mutation is attempted.
var ErrValidation = errors.New("invalid input")

// fallbackMessage is the degraded reply when translation fails. The
// turn never surfaces a translation failure to the end user.
const fallbackMessage = "I had trouble processing that. Can you restate what you want to work on?"

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curon_plan_turns_total",
		Help: "Plan turns handled, by resulting action and mode",
	}, []string{"action", "mode"})

	translationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curon_translation_fallbacks_total",
		Help: "Turns degraded to the ask fallback after a translation failure",
	})

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curon_turn_duration_seconds",
		Help:    "End-to-end latency of one plan turn",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)

// Repository is the narrow persistence contract the planner consumes.
// *storage.Store satisfies it.
type Repository interface {
	CreateIntent(ctx context.Context, userID, title, status string, question *string, thoughtID string) (*storage.Intent, error)
	CreateIntentWithTasks(ctx context.Context, userID, title, status string, question *string, thoughtID string, seeds []storage.TaskSeed) (*storage.Intent, []*storage.Task, error)
	GetOwnedIntent(ctx context.Context, intentID, userID string) (*storage.Intent, error)
	ListIntents(ctx context.Context, userID string, statuses []string) ([]*storage.Intent, error)
	UpdateIntent(ctx context.Context, intentID, userID string, upd storage.IntentUpdate) (*storage.Intent, error)
	UpdateIntentWithTasks(ctx context.Context, intentID, userID string, upd storage.IntentUpdate, upserts []storage.TaskUpsert) (*storage.Intent, []*storage.Task, error)
	DeleteIntent(ctx context.Context, intentID, userID string) error
	DeleteTask(ctx context.Context, userID, taskID string) error
	ListTasks(ctx context.Context, intentID string) ([]*storage.Task, error)
	SetProposal(ctx context.Context, intentID, userID string, plan datatypes.Plan) (*storage.Proposal, error)
	ClearProposal(ctx context.Context, intentID, proposalID string) (bool, error)
	AppendChatEntry(ctx context.Context, intentID, role, content string) (*storage.ChatEntry, error)
	CreateThought(ctx context.Context, userID, content, topic, source string) (*storage.Thought, error)
}

// Engine ties the context builder, proposal gate, translator, and
// interpreter into the per-utterance control flow.
type Engine struct {
	repo   Repository
	trans  translator.Translator
	interp *Interpreter
	gate   *Gate
}

// New builds an Engine over the repository and translator.
func New(repo Repository, trans translator.Translator) *Engine {
	interp := NewInterpreter(repo)
	return &Engine{
		repo:   repo,
		trans:  trans,
		interp: interp,
		gate:   NewGate(repo, interp),
	}
}

// HandleUtterance processes one conversational turn and returns the
// plan-shaped result. focusID scopes the turn to a single intent; an
// empty or unresolvable focus id makes the turn global.
func (e *Engine) HandleUtterance(ctx context.Context, userID, utterance, focusID string) (*datatypes.Plan, error) {
	start := time.Now()
	defer func() { turnDuration.Observe(time.Since(start).Seconds()) }()

	ctx, span := plannerTracer.Start(ctx, "Engine.HandleUtterance")
	defer span.End()

	if strings.TrimSpace(utterance) == "" {
		return nil, fmt.Errorf("%w: utterance must not be empty", ErrValidation)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id must not be empty", ErrValidation)
	}

	tc, err := BuildContext(ctx, e.repo, userID, focusID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	mode := "global"
	scopeID := ""
	if tc.Focus != nil {
		mode = "focused"
		scopeID = tc.Focus.ID
	}
	span.SetAttributes(attribute.String("turn.mode", mode))

	// A pending proposal on the focus intent is resolved before the
	// translator is considered.
	if tc.Focus != nil && tc.Focus.Proposal != nil {
		result, err := e.gate.Resolve(ctx, tc.Focus, userID, utterance)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if result != nil {
			turnsTotal.WithLabelValues(result.Action, mode).Inc()
			return result, nil
		}
		// Ambiguous reply: the stale proposal was discarded, refresh
		// the focus snapshot and fall through to translation.
		tc.Focus, err = e.repo.GetOwnedIntent(ctx, tc.Focus.ID, userID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("refresh focus intent: %w", err)
		}
	}

	plan, err := e.trans.Translate(ctx, utterance, tc.JSON, scopeID)
	if err != nil {
		// Degrade instead of failing the turn. No repository state
		// has been touched yet.
		slog.Warn("translation failed, degrading to ask fallback", "error", err)
		translationFallbacks.Inc()
		turnsTotal.WithLabelValues(datatypes.ActionAsk, mode).Inc()
		return fallbackPlan(), nil
	}

	var result *datatypes.Plan
	if tc.Focus != nil {
		result, err = e.interp.ApplyFocused(ctx, plan, tc.Focus, userID, utterance)
	} else {
		result, err = e.interp.Apply(ctx, plan, userID, utterance)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	turnsTotal.WithLabelValues(result.Action, mode).Inc()
	return result, nil
}

// fallbackPlan is the ask-shaped result substituted for a failed
// translation.
func fallbackPlan() *datatypes.Plan {
	return &datatypes.Plan{
		Action:  datatypes.ActionAsk,
		Message: datatypes.StringPtr(fallbackMessage),
		Intents: []datatypes.PlanIntent{},
	}
}
