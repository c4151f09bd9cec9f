// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestActionPredicates tables the action classification helpers.
func TestActionPredicates(t *testing.T) {
	assert.True(t, KnownAction(ActionCreate))
	assert.True(t, KnownAction(ActionChat))
	assert.False(t, KnownAction("summarize"))
	assert.False(t, KnownAction(""))

	assert.True(t, MutatingAction(ActionCreate))
	assert.True(t, MutatingAction(ActionUpdate))
	assert.True(t, MutatingAction(ActionDelete))
	assert.False(t, MutatingAction(ActionGet))
	assert.False(t, MutatingAction(ActionAsk))
	assert.False(t, MutatingAction(ActionChat))
}

// TestIdentityHelpers verifies nil and empty ids read as absent.
func TestIdentityHelpers(t *testing.T) {
	empty := ""
	id := "intent-1"

	_, ok := PlanIntent{}.IntentID()
	assert.False(t, ok)
	_, ok = PlanIntent{ID: &empty}.IntentID()
	assert.False(t, ok)
	got, ok := PlanIntent{ID: &id}.IntentID()
	require.True(t, ok)
	assert.Equal(t, "intent-1", got)

	_, ok = PlanTask{}.TaskID()
	assert.False(t, ok)
}

// TestFirstExistingIntent verifies the first id-carrying intent wins.
func TestFirstExistingIntent(t *testing.T) {
	id := "intent-2"
	plan := &Plan{Intents: []PlanIntent{
		{Title: "new one"},
		{ID: &id, Title: "existing"},
	}}

	target := plan.FirstExistingIntent()
	require.NotNil(t, target)
	assert.Equal(t, "existing", target.Title)

	assert.Nil(t, (&Plan{Intents: []PlanIntent{{Title: "only new"}}}).FirstExistingIntent())
}

// TestMessageOr verifies nil and empty messages fall back.
func TestMessageOr(t *testing.T) {
	assert.Equal(t, "fallback", (&Plan{}).MessageOr("fallback"))
	assert.Equal(t, "fallback", (&Plan{Message: StringPtr("")}).MessageOr("fallback"))
	assert.Equal(t, "hi", (&Plan{Message: StringPtr("hi")}).MessageOr("fallback"))
}

// TestNormalize verifies slice repair and status collapsing.
func TestNormalize(t *testing.T) {
	plan := &Plan{
		Action: ActionCreate,
		Intents: []PlanIntent{
			{Title: "no tasks"},
			{Title: "weird status", Tasks: []PlanTask{
				{Title: "a", Status: "in_progress"},
				{Title: "b", Status: TaskStatusCompleted},
			}},
		},
	}
	plan.Normalize()

	assert.NotNil(t, plan.Intents[0].Tasks)
	assert.Equal(t, TaskStatusPending, plan.Intents[1].Tasks[0].Status)
	assert.Equal(t, TaskStatusCompleted, plan.Intents[1].Tasks[1].Status)

	nilIntents := &Plan{Action: ActionChat}
	nilIntents.Normalize()
	assert.NotNil(t, nilIntents.Intents)
}

// TestPromptRequestValidation verifies required fields and the size
// cap.
func TestPromptRequestValidation(t *testing.T) {
	valid := PromptRequest{Prompt: "hello", UserID: "user-1"}
	assert.NoError(t, valid.Validate())

	missingUser := PromptRequest{Prompt: "hello"}
	assert.Error(t, missingUser.Validate())

	big := make([]byte, MaxPromptBytes+1)
	for i := range big {
		big[i] = 'a'
	}
	oversized := PromptRequest{Prompt: string(big), UserID: "user-1"}
	assert.Error(t, oversized.Validate())
}
