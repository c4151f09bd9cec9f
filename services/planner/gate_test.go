// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package planner

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curonhq/curon/services/server/datatypes"
	"github.com/curonhq/curon/services/storage"
)

// TestClassify tables the confirm/reject/ambiguous buckets.
func TestClassify(t *testing.T) {
	cases := []struct {
		utterance string
		want      Outcome
	}{
		{"yes", OutcomeConfirm},
		{"Yes, go ahead", OutcomeConfirm},
		{"ok sure", OutcomeConfirm},
		{"do it", OutcomeConfirm},
		{"proceed", OutcomeConfirm},
		{"no", OutcomeReject},
		{"No, cancel that", OutcomeReject},
		{"don't", OutcomeReject},
		{"never mind", OutcomeReject},
		{"stop", OutcomeReject},
		{"maybe later", OutcomeAmbiguous},
		{"what would that do?", OutcomeAmbiguous},
		{"yes and no", OutcomeAmbiguous},
		{"", OutcomeAmbiguous},
		{"add a task to buy flour", OutcomeAmbiguous},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.utterance), "utterance %q", tc.utterance)
	}
}

// newGateFixture stores a delete proposal on a focus intent and
// returns everything a Resolve test needs.
func newGateFixture(t *testing.T) (*storage.Store, *Gate, *storage.Intent) {
	t.Helper()
	store := newTestStore(t)
	interp := NewInterpreter(store)
	gate := NewGate(store, interp)
	ctx := context.Background()

	focus, _, err := store.CreateIntentWithTasks(ctx, "user-1", "Focused goal", "", nil, "", []storage.TaskSeed{{Title: "step"}})
	require.NoError(t, err)
	_, err = store.SetProposal(ctx, focus.ID, "user-1", datatypes.Plan{
		Action:  datatypes.ActionDelete,
		Intents: []datatypes.PlanIntent{{ID: &focus.ID}},
	})
	require.NoError(t, err)

	// Reload so the fixture carries the stored proposal.
	focus, err = store.GetOwnedIntent(ctx, focus.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, focus.Proposal)
	return store, gate, focus
}

// TestGateConfirmExecutes verifies a confirmation executes the stored
// plan exactly as proposed and clears it.
func TestGateConfirmExecutes(t *testing.T) {
	store, gate, focus := newGateFixture(t)
	ctx := context.Background()

	result, err := gate.Resolve(ctx, focus, "user-1", "yes")
	require.NoError(t, err)
	require.NotNil(t, result)

	// The proposal deleted the focus intent itself.
	assert.Equal(t, datatypes.ActionGet, result.Action)
	require.NotNil(t, result.Message)
	assert.Equal(t, "Action executed successfully.", *result.Message)
	assert.Empty(t, result.Intents)

	_, err = store.GetIntent(ctx, focus.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// TestGateConfirmSurvivingIntent verifies a confirmed update reloads
// the focus intent into the result and appends the execution line.
func TestGateConfirmSurvivingIntent(t *testing.T) {
	store := newTestStore(t)
	interp := NewInterpreter(store)
	gate := NewGate(store, interp)
	ctx := context.Background()

	focus, err := store.CreateIntent(ctx, "user-1", "Old title", "", nil, "")
	require.NoError(t, err)
	_, err = store.SetProposal(ctx, focus.ID, "user-1", datatypes.Plan{
		Action:  datatypes.ActionUpdate,
		Intents: []datatypes.PlanIntent{{ID: &focus.ID, Title: "New title"}},
	})
	require.NoError(t, err)
	focus, err = store.GetOwnedIntent(ctx, focus.ID, "user-1")
	require.NoError(t, err)

	result, err := gate.Resolve(ctx, focus, "user-1", "confirm")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Intents, 1)
	assert.Equal(t, "New title", result.Intents[0].Title)

	stored, err := store.GetIntent(ctx, focus.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", stored.Title)
	assert.Nil(t, stored.Proposal)

	entries, err := store.ListChatEntries(ctx, focus.ID)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "Action executed successfully.", entries[len(entries)-1].Content)
}

// TestGateRejectCancels verifies a rejection discards the proposal
// without executing it.
func TestGateRejectCancels(t *testing.T) {
	store, gate, focus := newGateFixture(t)
	ctx := context.Background()

	result, err := gate.Resolve(ctx, focus, "user-1", "no, keep it")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, datatypes.ActionChat, result.Action)
	require.NotNil(t, result.Message)
	assert.Equal(t, "Action cancelled.", *result.Message)

	stored, err := store.GetIntent(ctx, focus.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Proposal)

	entries, err := store.ListChatEntries(ctx, focus.ID)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "Action cancelled.", entries[len(entries)-1].Content)
}

// TestGateAmbiguousFallsThrough verifies an ambiguous reply discards
// the proposal and returns nil so the turn goes to translation.
func TestGateAmbiguousFallsThrough(t *testing.T) {
	store, gate, focus := newGateFixture(t)
	ctx := context.Background()

	result, err := gate.Resolve(ctx, focus, "user-1", "hmm, what would that do")
	require.NoError(t, err)
	assert.Nil(t, result)

	stored, err := store.GetIntent(ctx, focus.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Proposal)
}

// TestGateConcurrentConfirm verifies two turns confirming the same
// proposal execute it at most once.
func TestGateConcurrentConfirm(t *testing.T) {
	_, gate, focus := newGateFixture(t)
	ctx := context.Background()

	results := make([]*datatypes.Plan, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = gate.Resolve(ctx, focus, "user-1", "yes")
		}(i)
	}
	wg.Wait()

	executed := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		if results[i].Message != nil && *results[i].Message == "Action executed successfully." {
			executed++
		}
	}
	assert.Equal(t, 1, executed)
}
