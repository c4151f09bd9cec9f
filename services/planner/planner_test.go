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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curonhq/curon/services/server/datatypes"
	"github.com/curonhq/curon/services/storage"
	"github.com/curonhq/curon/services/translator"
)

// stubTranslator returns a canned plan or error and records the
// context it was handed.
type stubTranslator struct {
	plan        *datatypes.Plan
	err         error
	gotContext  string
	gotScope    string
	timesCalled int
}

func (s *stubTranslator) Translate(ctx context.Context, utterance, contextJSON, scopeID string) (*datatypes.Plan, error) {
	s.timesCalled++
	s.gotContext = contextJSON
	s.gotScope = scopeID
	if s.err != nil {
		return nil, s.err
	}
	plan := *s.plan
	return &plan, nil
}

func plainDeletePlan(intentID string) datatypes.Plan {
	return datatypes.Plan{
		Action:  datatypes.ActionDelete,
		Intents: []datatypes.PlanIntent{{ID: &intentID}},
	}
}

// TestHandleUtteranceValidation verifies empty inputs are rejected
// before anything else runs.
func TestHandleUtteranceValidation(t *testing.T) {
	store := newTestStore(t)
	stub := &stubTranslator{plan: &datatypes.Plan{Action: datatypes.ActionChat}}
	engine := New(store, stub)
	ctx := context.Background()

	_, err := engine.HandleUtterance(ctx, "user-1", "   ", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = engine.HandleUtterance(ctx, "", "hello", "")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, stub.timesCalled)
}

// TestHandleUtteranceTranslationFallback verifies a failed translation
// degrades to the canned ask and mutates nothing.
func TestHandleUtteranceTranslationFallback(t *testing.T) {
	store := newTestStore(t)
	stub := &stubTranslator{err: translator.ErrTranslation}
	engine := New(store, stub)
	ctx := context.Background()

	result, err := engine.HandleUtterance(ctx, "user-1", "garble warble", "")
	require.NoError(t, err)

	assert.Equal(t, datatypes.ActionAsk, result.Action)
	require.NotNil(t, result.Message)
	assert.Equal(t, "I had trouble processing that. Can you restate what you want to work on?", *result.Message)
	assert.Empty(t, result.Intents)

	// No intent, task, or thought was written.
	intents, err := store.ListIntents(ctx, "user-1", nil)
	require.NoError(t, err)
	assert.Empty(t, intents)
	thoughts, err := store.ListThoughts(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, thoughts)
}

// TestHandleUtteranceGlobalCreate verifies the unfocused happy path
// end to end with a stubbed model.
func TestHandleUtteranceGlobalCreate(t *testing.T) {
	store := newTestStore(t)
	stub := &stubTranslator{plan: &datatypes.Plan{
		Action:  datatypes.ActionCreate,
		Message: datatypes.StringPtr("Starting a reading habit."),
		Intents: []datatypes.PlanIntent{
			{Title: "Read more", Tasks: []datatypes.PlanTask{{Title: "Pick a book", Status: datatypes.TaskStatusPending}}},
		},
	}}
	engine := New(store, stub)
	ctx := context.Background()

	result, err := engine.HandleUtterance(ctx, "user-1", "I want to read more", "")
	require.NoError(t, err)

	require.Len(t, result.Intents, 1)
	id, ok := result.Intents[0].IntentID()
	require.True(t, ok)

	stored, err := store.GetOwnedIntent(ctx, id, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Read more", stored.Title)

	assert.Equal(t, 1, stub.timesCalled)
	assert.Equal(t, "[]", stub.gotContext)
	assert.Empty(t, stub.gotScope)
}

// TestHandleUtteranceFocusedScope verifies the translator sees only
// the focus intent and receives the scope id.
func TestHandleUtteranceFocusedScope(t *testing.T) {
	store := newTestStore(t)
	stub := &stubTranslator{plan: &datatypes.Plan{
		Action:  datatypes.ActionChat,
		Message: datatypes.StringPtr("Noted."),
	}}
	engine := New(store, stub)
	ctx := context.Background()

	focus, err := store.CreateIntent(ctx, "user-1", "Focused goal", "", nil, "")
	require.NoError(t, err)
	_, err = store.CreateIntent(ctx, "user-1", "Unrelated goal", "", nil, "")
	require.NoError(t, err)

	result, err := engine.HandleUtterance(ctx, "user-1", "just thinking out loud", focus.ID)
	require.NoError(t, err)
	assert.Equal(t, datatypes.ActionChat, result.Action)

	assert.Equal(t, focus.ID, stub.gotScope)
	assert.Contains(t, stub.gotContext, "Focused goal")
	assert.NotContains(t, stub.gotContext, "Unrelated goal")

	entries, err := store.ListChatEntries(ctx, focus.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// TestHandleUtteranceGateShortCircuits verifies a pending proposal is
// resolved without ever calling the translator.
func TestHandleUtteranceGateShortCircuits(t *testing.T) {
	store := newTestStore(t)
	stub := &stubTranslator{plan: &datatypes.Plan{Action: datatypes.ActionChat}}
	engine := New(store, stub)
	ctx := context.Background()

	focus, err := store.CreateIntent(ctx, "user-1", "Doomed goal", "", nil, "")
	require.NoError(t, err)
	_, err = store.SetProposal(ctx, focus.ID, "user-1", plainDeletePlan(focus.ID))
	require.NoError(t, err)

	result, err := engine.HandleUtterance(ctx, "user-1", "yes do it", focus.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Message)
	assert.Equal(t, "Action executed successfully.", *result.Message)

	assert.Zero(t, stub.timesCalled)
	_, err = store.GetIntent(ctx, focus.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// TestHandleUtteranceAmbiguousReplyTranslates verifies an ambiguous
// reply to a proposal discards it and translates the utterance
// normally.
func TestHandleUtteranceAmbiguousReplyTranslates(t *testing.T) {
	store := newTestStore(t)
	stub := &stubTranslator{plan: &datatypes.Plan{
		Action:  datatypes.ActionChat,
		Message: datatypes.StringPtr("Happy to explain."),
	}}
	engine := New(store, stub)
	ctx := context.Background()

	focus, err := store.CreateIntent(ctx, "user-1", "Goal", "", nil, "")
	require.NoError(t, err)
	_, err = store.SetProposal(ctx, focus.ID, "user-1", plainDeletePlan(focus.ID))
	require.NoError(t, err)

	result, err := engine.HandleUtterance(ctx, "user-1", "what exactly would that remove?", focus.ID)
	require.NoError(t, err)
	assert.Equal(t, datatypes.ActionChat, result.Action)
	assert.Equal(t, 1, stub.timesCalled)

	stored, err := store.GetIntent(ctx, focus.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Proposal)
}

// TestHandleUtteranceOtherError verifies non-translation errors from
// the translator also degrade.
func TestHandleUtteranceOtherError(t *testing.T) {
	store := newTestStore(t)
	stub := &stubTranslator{err: errors.New("connection refused")}
	engine := New(store, stub)

	result, err := engine.HandleUtterance(context.Background(), "user-1", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, datatypes.ActionAsk, result.Action)
}
