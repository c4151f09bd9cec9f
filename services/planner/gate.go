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
	"regexp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/curonhq/curon/services/server/datatypes"
	"github.com/curonhq/curon/services/storage"
)

var gateTracer = otel.Tracer("curon.planner.gate")

// Outcome is the gate's classification of a reply to a pending
// proposal.
type Outcome int

const (
	OutcomeAmbiguous Outcome = iota
	OutcomeConfirm
	OutcomeReject
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirm:
		return "confirm"
	case OutcomeReject:
		return "reject"
	default:
		return "ambiguous"
	}
}

// Messages appended to the transcript when a proposal is resolved.
const (
	msgExecuted  = "Action executed successfully."
	msgCancelled = "Action cancelled."
)

var (
	affirmPattern = regexp.MustCompile(`(?i)\b(yes|yeah|yep|confirm|confirmed|ok|okay|sure|do it|proceed|go ahead)\b`)
	negatePattern = regexp.MustCompile(`(?i)\b(no|nope|cancel|stop|don'?t|reject|never mind)\b`)
)

// Classify buckets an utterance into confirm, reject, or ambiguous.
// If both or neither pattern matches, the reply is ambiguous and the
// utterance falls through to normal translation.
func Classify(utterance string) Outcome {
	affirm := affirmPattern.MatchString(utterance)
	negate := negatePattern.MatchString(utterance)
	switch {
	case affirm && !negate:
		return OutcomeConfirm
	case negate && !affirm:
		return OutcomeReject
	default:
		return OutcomeAmbiguous
	}
}

// Gate resolves confirmation replies for a focused intent that holds a
// pending proposal. It runs before the translator is ever invoked.
type Gate struct {
	repo   Repository
	interp *Interpreter
}

// NewGate builds a Gate sharing the interpreter used for confirmed
// proposals.
func NewGate(repo Repository, interp *Interpreter) *Gate {
	return &Gate{repo: repo, interp: interp}
}

// Resolve handles one reply against the focus intent's pending
// proposal. A nil result with a nil error means the reply was
// ambiguous: the stale proposal has been discarded and the caller must
// fall through to normal translation with the original utterance.
//
// Every resolution path clears the proposal with a conditional
// compare-and-clear keyed on the proposal id; execution of a confirmed
// proposal happens only in the turn that won the clear, which makes it
// at-most-once under concurrent confirmations.
func (g *Gate) Resolve(ctx context.Context, focus *storage.Intent, userID, utterance string) (*datatypes.Plan, error) {
	ctx, span := gateTracer.Start(ctx, "Gate.Resolve")
	defer span.End()

	proposal := focus.Proposal
	if proposal == nil {
		return nil, nil
	}

	outcome := Classify(utterance)
	span.SetAttributes(
		attribute.String("gate.outcome", outcome.String()),
		attribute.String("intent.id", focus.ID),
	)

	cleared, err := g.repo.ClearProposal(ctx, focus.ID, proposal.ID)
	if err != nil {
		return nil, fmt.Errorf("clear proposal: %w", err)
	}

	switch outcome {
	case OutcomeConfirm:
		if !cleared {
			// Another turn already resolved this proposal.
			return &datatypes.Plan{
				Action:  datatypes.ActionChat,
				Message: datatypes.StringPtr("That proposal has already been resolved."),
				Intents: []datatypes.PlanIntent{},
			}, nil
		}
		return g.execute(ctx, focus, userID, proposal)

	case OutcomeReject:
		if cleared {
			if _, err := g.repo.AppendChatEntry(ctx, focus.ID, storage.RoleSystem, msgCancelled); err != nil {
				return nil, fmt.Errorf("append system chat entry: %w", err)
			}
		}
		return &datatypes.Plan{
			Action:  datatypes.ActionChat,
			Message: datatypes.StringPtr(msgCancelled),
			Intents: []datatypes.PlanIntent{},
		}, nil

	default:
		// Ambiguous: the stale proposal is discarded, not re-asked,
		// and the utterance goes through normal translation.
		return nil, nil
	}
}

// execute applies a confirmed proposal through the interpreter as if
// it had just arrived from the translator, then returns the freshly
// reloaded focus intent. When the proposal deleted the intent itself
// the result carries no intents.
func (g *Gate) execute(ctx context.Context, focus *storage.Intent, userID string, proposal *storage.Proposal) (*datatypes.Plan, error) {
	plan := proposal.Plan
	if _, err := g.interp.Apply(ctx, &plan, userID, "Confirmed proposal"); err != nil {
		return nil, fmt.Errorf("execute confirmed proposal: %w", err)
	}

	result := &datatypes.Plan{
		Action:  datatypes.ActionGet,
		Message: datatypes.StringPtr(msgExecuted),
		Intents: []datatypes.PlanIntent{},
	}

	reloaded, err := g.repo.GetOwnedIntent(ctx, focus.ID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		// The proposal deleted the focus intent; nothing to report
		// and nowhere to append the transcript line.
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reload intent: %w", err)
	}

	if _, err := g.repo.AppendChatEntry(ctx, focus.ID, storage.RoleSystem, msgExecuted); err != nil {
		return nil, fmt.Errorf("append system chat entry: %w", err)
	}

	tasks, err := g.repo.ListTasks(ctx, reloaded.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	result.Intents = []datatypes.PlanIntent{materializeIntent(reloaded, tasks)}
	return result, nil
}
