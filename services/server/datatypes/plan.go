// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides wire types for the Curon server.
//
// This file contains the Plan shape exchanged with the translator.
// The plan is the unit of work the language model produces from a
// natural-language utterance: one action plus a list of intent and
// task mutations. The interpreter never trusts identities carried in
// a plan; every id is re-validated against caller ownership before it
// is acted on.
package datatypes

// Plan actions recognized by the interpreter. Anything else is passed
// through untouched as a no-op.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionGet    = "get"
	ActionDelete = "delete"
	ActionAsk    = "ask"
	ActionChat   = "chat"
)

// Task statuses on the wire. The stored record uses a done boolean;
// "completed" maps to done=true, everything else to done=false.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Plan is the structured output of the translator.
//
// The exact field set is part of the wire contract with the model:
// {action, message, intents: [{id, title, tasks: [...]}]}. Message is
// nullable; intents and tasks are always present as (possibly empty)
// arrays after normalization.
type Plan struct {
	Action  string       `json:"action"`
	Message *string      `json:"message"`
	Intents []PlanIntent `json:"intents"`
}

// PlanIntent is a single intent mutation inside a plan. A nil ID means
// "create a new intent"; a non-nil ID is only honored when it resolves
// to an intent owned by the calling user.
type PlanIntent struct {
	ID    *string    `json:"id"`
	Title string     `json:"title"`
	Tasks []PlanTask `json:"tasks"`
}

// PlanTask is a single task mutation inside a plan intent. A nil ID
// means "create a new task"; a non-nil ID is only honored when it
// resolves to a persisted task under the target intent.
type PlanTask struct {
	ID       *string `json:"id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Priority *int    `json:"priority"`
}

// KnownAction reports whether the action is one of the six recognized
// plan actions.
func KnownAction(action string) bool {
	switch action {
	case ActionCreate, ActionUpdate, ActionGet, ActionDelete, ActionAsk, ActionChat:
		return true
	}
	return false
}

// MutatingAction reports whether the action changes persistent state.
// In a focused conversation these are deferred behind a confirmation.
func MutatingAction(action string) bool {
	switch action {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Done maps the wire status onto the stored done flag.
func (t PlanTask) Done() bool {
	return t.Status == TaskStatusCompleted
}

// IntentID returns the intent id if present and non-empty.
func (i PlanIntent) IntentID() (string, bool) {
	if i.ID != nil && *i.ID != "" {
		return *i.ID, true
	}
	return "", false
}

// TaskID returns the task id if present and non-empty.
func (t PlanTask) TaskID() (string, bool) {
	if t.ID != nil && *t.ID != "" {
		return *t.ID, true
	}
	return "", false
}

// FirstExistingIntent returns the first plan intent carrying a
// non-empty id, or nil if every intent in the plan is new.
func (p *Plan) FirstExistingIntent() *PlanIntent {
	for idx := range p.Intents {
		if _, ok := p.Intents[idx].IntentID(); ok {
			return &p.Intents[idx]
		}
	}
	return nil
}

// MessageOr returns the plan message, or fallback when the message is
// null or empty.
func (p *Plan) MessageOr(fallback string) string {
	if p.Message != nil && *p.Message != "" {
		return *p.Message
	}
	return fallback
}

// Normalize repairs the optional parts of a decoded plan in place:
// nil intent/task slices become empty slices and unknown task statuses
// collapse to "pending". Shape violations beyond that (missing action,
// intents not an array) are the adapter's job to reject.
func (p *Plan) Normalize() {
	if p.Intents == nil {
		p.Intents = []PlanIntent{}
	}
	for i := range p.Intents {
		if p.Intents[i].Tasks == nil {
			p.Intents[i].Tasks = []PlanTask{}
		}
		for j := range p.Intents[i].Tasks {
			if p.Intents[i].Tasks[j].Status != TaskStatusCompleted {
				p.Intents[i].Tasks[j].Status = TaskStatusPending
			}
		}
	}
}

// StringPtr is a convenience for building plans in tests and fallbacks.
func StringPtr(s string) *string { return &s }

// IntPtr is a convenience for building plans in tests and fallbacks.
func IntPtr(n int) *int { return &n }
