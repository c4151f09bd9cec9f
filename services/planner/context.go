// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/curonhq/curon/services/storage"
)

// ContextIntent is the projection of an intent handed to the
// translator as model context. It deliberately omits the pending
// proposal and any other user's data.
type ContextIntent struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Status          string        `json:"status"`
	PendingQuestion *string       `json:"pending_question,omitempty"`
	Tasks           []ContextTask `json:"tasks"`
}

// ContextTask is the task projection inside a ContextIntent.
type ContextTask struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority *int   `json:"priority"`
}

// TurnContext is the assembled context for one conversational turn.
type TurnContext struct {
	// Focus is the resolved focus intent, or nil when the turn is
	// unfocused (including a focus id that did not resolve to an
	// intent owned by the caller).
	Focus *storage.Intent

	// Intents are the intents visible to the translator this turn.
	Intents []*storage.Intent

	// JSON is the serialized CONTEXT_INTENTS array for the model.
	JSON string
}

// BuildContext gathers the intents the translator may see. Pure read.
//
// Selection order:
//  1. A supplied focus id that resolves to an owned intent scopes the
//     context to that single intent. Mandatory once focus is set: the
//     model must not be given other intents to affect.
//  2. Otherwise, an intent awaiting clarification is resumed alone
//     before anything new is considered.
//  3. Otherwise, all of the caller's active and
//     clarification-requested intents.
func BuildContext(ctx context.Context, repo Repository, userID, focusID string) (*TurnContext, error) {
	if focusID != "" {
		focus, err := repo.GetOwnedIntent(ctx, focusID, userID)
		if err == nil {
			return assembleContext(ctx, repo, focus, []*storage.Intent{focus})
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("resolve focus intent: %w", err)
		}
		// Unresolvable focus falls through to unfocused handling.
	}

	open, err := repo.ListIntents(ctx, userID, []string{storage.StatusActive, storage.StatusClarificationRequested})
	if err != nil {
		return nil, fmt.Errorf("list intents: %w", err)
	}

	for _, intent := range open {
		if intent.Status == storage.StatusClarificationRequested {
			return assembleContext(ctx, repo, nil, []*storage.Intent{intent})
		}
	}

	return assembleContext(ctx, repo, nil, open)
}

func assembleContext(ctx context.Context, repo Repository, focus *storage.Intent, intents []*storage.Intent) (*TurnContext, error) {
	projected := make([]ContextIntent, 0, len(intents))
	for _, intent := range intents {
		tasks, err := repo.ListTasks(ctx, intent.ID)
		if err != nil {
			return nil, fmt.Errorf("list tasks for intent %s: %w", intent.ID, err)
		}
		projected = append(projected, projectIntent(intent, tasks))
	}

	raw, err := json.Marshal(projected)
	if err != nil {
		return nil, fmt.Errorf("marshal context intents: %w", err)
	}

	return &TurnContext{
		Focus:   focus,
		Intents: intents,
		JSON:    string(raw),
	}, nil
}

func projectIntent(intent *storage.Intent, tasks []*storage.Task) ContextIntent {
	projected := ContextIntent{
		ID:              intent.ID,
		Title:           intent.Title,
		Status:          intent.Status,
		PendingQuestion: intent.PendingQuestion,
		Tasks:           make([]ContextTask, 0, len(tasks)),
	}
	for _, t := range tasks {
		status := "pending"
		if t.Done {
			status = "completed"
		}
		projected.Tasks = append(projected.Tasks, ContextTask{
			ID:       t.ID,
			Title:    t.Title,
			Status:   status,
			Priority: t.Priority,
		})
	}
	return projected
}
