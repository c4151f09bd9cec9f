// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/curonhq/curon/services/server/datatypes"
	"github.com/curonhq/curon/services/storage"
)

var interpreterTracer = otel.Tracer("curon.planner.interpreter")

const (
	// placeholderTitle names an intent the model asked about without
	// supplying a label.
	placeholderTitle = "New intent"

	// genericReply fills a focused system chat entry when the plan
	// carried no message.
	genericReply = "Okay, noted."

	// genericStatusReply fills a focused status query without a message.
	genericStatusReply = "Here is the current status of this intent."
)

// Interpreter applies a translated plan against the repository.
//
// Identities inside a plan are never trusted: every intent or task id
// is honored only when it resolves to a record owned by the calling
// user. A multi-intent plan is per-intent atomic but batch non-atomic:
// an unresolvable intent is skipped, a storage failure aborts the
// whole turn.
type Interpreter struct {
	repo Repository
}

// NewInterpreter builds an Interpreter over the repository.
func NewInterpreter(repo Repository) *Interpreter {
	return &Interpreter{repo: repo}
}

// Apply executes a plan in global (unfocused) mode. The originating
// utterance is durably logged as a thought before any branch. The
// returned plan is the caller-visible result: for create/update/get
// its intents are replaced by the fully materialized records.
//
// An unrecognized action is a deliberate permissive pass-through: the
// plan comes back unchanged and nothing is mutated beyond the
// utterance log.
func (in *Interpreter) Apply(ctx context.Context, plan *datatypes.Plan, userID, origin string) (*datatypes.Plan, error) {
	ctx, span := interpreterTracer.Start(ctx, "Interpreter.Apply")
	defer span.End()
	span.SetAttributes(attribute.String("plan.action", plan.Action))

	thought, err := in.repo.CreateThought(ctx, userID, origin, "", "planner")
	if err != nil {
		return nil, fmt.Errorf("log utterance: %w", err)
	}

	switch plan.Action {
	case datatypes.ActionAsk:
		return in.applyAsk(ctx, plan, userID, thought.ID)
	case datatypes.ActionCreate:
		return in.applyCreate(ctx, plan, userID, thought.ID)
	case datatypes.ActionUpdate:
		return in.applyUpdate(ctx, plan, userID)
	case datatypes.ActionGet:
		return in.applyGet(ctx, plan, userID)
	case datatypes.ActionDelete:
		return in.applyDelete(ctx, plan, userID)
	case datatypes.ActionChat:
		return plan, nil
	default:
		slog.Warn("unrecognized plan action, passing through", "action", plan.Action)
		return plan, nil
	}
}

// ApplyFocused executes a plan scoped to a focused intent. Every
// focused turn appends the raw utterance to the transcript first.
// Mutating actions are not applied: the plan is stored verbatim as the
// intent's pending proposal and an ask-shaped result carries the
// confirmation question. Reads and chat are never gated.
func (in *Interpreter) ApplyFocused(ctx context.Context, plan *datatypes.Plan, focus *storage.Intent, userID, utterance string) (*datatypes.Plan, error) {
	ctx, span := interpreterTracer.Start(ctx, "Interpreter.ApplyFocused")
	defer span.End()
	span.SetAttributes(
		attribute.String("plan.action", plan.Action),
		attribute.String("intent.id", focus.ID),
	)

	if _, err := in.repo.AppendChatEntry(ctx, focus.ID, storage.RoleUser, utterance); err != nil {
		return nil, fmt.Errorf("append user chat entry: %w", err)
	}

	switch {
	case datatypes.MutatingAction(plan.Action):
		if _, err := in.repo.SetProposal(ctx, focus.ID, userID, *plan); err != nil {
			return nil, fmt.Errorf("store proposal: %w", err)
		}
		question := fmt.Sprintf("I suggest executing this action (%s). Do you want to proceed?", plan.Action)
		if _, err := in.repo.AppendChatEntry(ctx, focus.ID, storage.RoleSystem, question); err != nil {
			return nil, fmt.Errorf("append system chat entry: %w", err)
		}
		return &datatypes.Plan{
			Action:  datatypes.ActionAsk,
			Message: datatypes.StringPtr(question),
			Intents: []datatypes.PlanIntent{},
		}, nil

	case plan.Action == datatypes.ActionGet:
		reply := plan.MessageOr(genericStatusReply)
		if _, err := in.repo.AppendChatEntry(ctx, focus.ID, storage.RoleSystem, reply); err != nil {
			return nil, fmt.Errorf("append system chat entry: %w", err)
		}
		resolved, err := in.resolveIntents(ctx, plan, userID, focus)
		if err != nil {
			return nil, err
		}
		plan.Intents = resolved
		return plan, nil

	default:
		// chat, ask, and unrecognized actions: transcript only.
		reply := plan.MessageOr(genericReply)
		if _, err := in.repo.AppendChatEntry(ctx, focus.ID, storage.RoleSystem, reply); err != nil {
			return nil, fmt.Errorf("append system chat entry: %w", err)
		}
		return plan, nil
	}
}

// applyAsk marks the named intent as awaiting clarification, or
// creates a fresh one already in that state. Tasks inside the plan are
// ignored for this action. The result echoes the plan (and its
// question) unchanged.
func (in *Interpreter) applyAsk(ctx context.Context, plan *datatypes.Plan, userID, thoughtID string) (*datatypes.Plan, error) {
	question := plan.Message

	if target := plan.FirstExistingIntent(); target != nil {
		id, _ := target.IntentID()
		status := storage.StatusClarificationRequested
		_, err := in.repo.UpdateIntent(ctx, id, userID, storage.IntentUpdate{
			Status:   &status,
			Question: question,
		})
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("mark intent for clarification: %w", err)
		}
		// Id did not resolve to an owned intent; treat as new below.
	}

	title := placeholderTitle
	if len(plan.Intents) > 0 && plan.Intents[0].Title != "" {
		title = plan.Intents[0].Title
	}
	_, err := in.repo.CreateIntent(ctx, userID, title, storage.StatusClarificationRequested, question, thoughtID)
	if err != nil {
		return nil, fmt.Errorf("create clarification intent: %w", err)
	}
	return plan, nil
}

// applyCreate materializes every plan intent as a new active intent
// with its seed tasks.
func (in *Interpreter) applyCreate(ctx context.Context, plan *datatypes.Plan, userID, thoughtID string) (*datatypes.Plan, error) {
	materialized := make([]datatypes.PlanIntent, 0, len(plan.Intents))
	for _, pi := range plan.Intents {
		seeds := make([]storage.TaskSeed, 0, len(pi.Tasks))
		for _, pt := range pi.Tasks {
			seeds = append(seeds, storage.TaskSeed{
				Title:    pt.Title,
				Done:     pt.Done(),
				Priority: pt.Priority,
			})
		}
		intent, tasks, err := in.repo.CreateIntentWithTasks(ctx, userID, pi.Title, storage.StatusActive, nil, thoughtID, seeds)
		if err != nil {
			return nil, fmt.Errorf("create intent: %w", err)
		}
		materialized = append(materialized, materializeIntent(intent, tasks))
	}
	plan.Intents = materialized
	return plan, nil
}

// applyUpdate mutates every plan intent that carries an owned
// identity: title when supplied, status forced back to active (an
// update implicitly resolves an outstanding clarification), and each
// plan task upserted. Intents without an identity never create through
// update; unresolvable identities are skipped.
func (in *Interpreter) applyUpdate(ctx context.Context, plan *datatypes.Plan, userID string) (*datatypes.Plan, error) {
	materialized := make([]datatypes.PlanIntent, 0, len(plan.Intents))
	for _, pi := range plan.Intents {
		id, ok := pi.IntentID()
		if !ok {
			continue
		}
		upserts := make([]storage.TaskUpsert, 0, len(pi.Tasks))
		for _, pt := range pi.Tasks {
			upserts = append(upserts, storage.TaskUpsert{
				ID:       pt.ID,
				Title:    pt.Title,
				Done:     pt.Done(),
				Priority: pt.Priority,
			})
		}
		status := storage.StatusActive
		upd := storage.IntentUpdate{
			Status:        &status,
			ClearQuestion: true,
		}
		if pi.Title != "" {
			upd.Title = &pi.Title
		}
		intent, tasks, err := in.repo.UpdateIntentWithTasks(ctx, id, userID, upd, upserts)
		if errors.Is(err, storage.ErrNotFound) {
			slog.Warn("skipping update for unresolvable intent id", "intent_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update intent %s: %w", id, err)
		}
		materialized = append(materialized, materializeIntent(intent, tasks))
	}
	plan.Intents = materialized
	return plan, nil
}

// applyGet resolves the named intents, or lists every open intent when
// the plan names none. Never mutates state.
func (in *Interpreter) applyGet(ctx context.Context, plan *datatypes.Plan, userID string) (*datatypes.Plan, error) {
	resolved, err := in.resolveIntents(ctx, plan, userID, nil)
	if err != nil {
		return nil, err
	}
	plan.Intents = resolved
	return plan, nil
}

// applyDelete removes the named tasks, or the whole intent (tasks
// included) when no task ids are given. Unresolvable identities are
// silent no-ops. The original plan comes back as the result; there is
// nothing left to materialize.
func (in *Interpreter) applyDelete(ctx context.Context, plan *datatypes.Plan, userID string) (*datatypes.Plan, error) {
	for _, pi := range plan.Intents {
		taskIDs := make([]string, 0, len(pi.Tasks))
		for _, pt := range pi.Tasks {
			if id, ok := pt.TaskID(); ok {
				taskIDs = append(taskIDs, id)
			}
		}

		if len(taskIDs) > 0 {
			for _, taskID := range taskIDs {
				err := in.repo.DeleteTask(ctx, userID, taskID)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return nil, fmt.Errorf("delete task %s: %w", taskID, err)
				}
			}
			continue
		}

		if id, ok := pi.IntentID(); ok {
			err := in.repo.DeleteIntent(ctx, id, userID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("delete intent %s: %w", id, err)
			}
		}
	}
	return plan, nil
}

// resolveIntents loads the intents a plan names (skipping identities
// that do not resolve to owned records), or every open intent when the
// plan names none. In focused mode an id-less plan resolves to the
// focus intent alone.
func (in *Interpreter) resolveIntents(ctx context.Context, plan *datatypes.Plan, userID string, focus *storage.Intent) ([]datatypes.PlanIntent, error) {
	var targets []*storage.Intent

	named := false
	for _, pi := range plan.Intents {
		id, ok := pi.IntentID()
		if !ok {
			continue
		}
		named = true
		intent, err := in.repo.GetOwnedIntent(ctx, id, userID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve intent %s: %w", id, err)
		}
		targets = append(targets, intent)
	}

	if !named {
		if focus != nil {
			targets = []*storage.Intent{focus}
		} else {
			open, err := in.repo.ListIntents(ctx, userID, []string{storage.StatusActive, storage.StatusClarificationRequested})
			if err != nil {
				return nil, fmt.Errorf("list intents: %w", err)
			}
			targets = open
		}
	}

	resolved := make([]datatypes.PlanIntent, 0, len(targets))
	for _, intent := range targets {
		tasks, err := in.repo.ListTasks(ctx, intent.ID)
		if err != nil {
			return nil, fmt.Errorf("list tasks for intent %s: %w", intent.ID, err)
		}
		resolved = append(resolved, materializeIntent(intent, tasks))
	}
	return resolved, nil
}

// materializeIntent converts persisted records into the plan-shaped
// result the caller sees.
func materializeIntent(intent *storage.Intent, tasks []*storage.Task) datatypes.PlanIntent {
	out := datatypes.PlanIntent{
		ID:    datatypes.StringPtr(intent.ID),
		Title: intent.Title,
		Tasks: make([]datatypes.PlanTask, 0, len(tasks)),
	}
	for _, t := range tasks {
		status := datatypes.TaskStatusPending
		if t.Done {
			status = datatypes.TaskStatusCompleted
		}
		out.Tasks = append(out.Tasks, datatypes.PlanTask{
			ID:       datatypes.StringPtr(t.ID),
			Title:    t.Title,
			Status:   status,
			Priority: t.Priority,
		})
	}
	return out
}
