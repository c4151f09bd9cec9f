// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"github.com/curonhq/curon/services/server/datatypes"
)

// Intent statuses. An intent in clarification_requested status has an
// outstanding question the user has not answered yet; the planner
// resumes it before considering anything new.
const (
	StatusActive                 = "active"
	StatusClarificationRequested = "clarification_requested"
)

// Chat roles for intent transcripts.
const (
	RoleUser   = "user"
	RoleSystem = "system"
)

// Intent is a user's high-level goal. Tasks and chat entries are owned
// exclusively: they are deleted with the intent. Timestamps are Unix
// milliseconds UTC.
type Intent struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	PendingQuestion *string   `json:"pending_question,omitempty"`
	Proposal        *Proposal `json:"proposal,omitempty"`
	ThoughtID       string    `json:"thought_id,omitempty"`
	CreatedAt       int64     `json:"created_at"`
	UpdatedAt       int64     `json:"updated_at"`
}

// Proposal is a stored, not-yet-applied plan awaiting user
// confirmation inside a focused conversation. A nil *Proposal on the
// intent means no proposal is pending; clearing is conditional on the
// proposal ID so two concurrent confirmations cannot both execute it.
type Proposal struct {
	ID        string         `json:"id"`
	Plan      datatypes.Plan `json:"plan"`
	CreatedAt int64          `json:"created_at"`
}

// Task is a concrete sub-step under an intent.
type Task struct {
	ID        string `json:"id"`
	IntentID  string `json:"intent_id"`
	Title     string `json:"title"`
	Done      bool   `json:"done"`
	Priority  *int   `json:"priority,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// ChatEntry is one line of an intent's conversation transcript.
// Append-only, ordered by creation time.
type ChatEntry struct {
	ID        string `json:"id"`
	IntentID  string `json:"intent_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Thought is a freestanding note: the durable record of an utterance
// that arrived outside any focused conversation.
type Thought struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	Topic     string `json:"topic,omitempty"`
	Source    string `json:"source,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// User is an account record. The plan pipeline itself takes the caller
// identity as given; this record backs the user CRUD surface.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// IntentUpdate describes a partial intent mutation. Nil pointer fields
// are left untouched. ClearQuestion wipes the pending question even
// when Question is nil.
type IntentUpdate struct {
	Title         *string
	Status        *string
	Question      *string
	ClearQuestion bool
}

// TaskSeed describes a task to create under an intent.
type TaskSeed struct {
	Title    string
	Done     bool
	Priority *int
}

// TaskUpsert describes a task mutation keyed on an optional identity:
// a nil or unresolvable ID creates a new task, a resolvable ID updates
// the existing one.
type TaskUpsert struct {
	ID       *string
	Title    string
	Done     bool
	Priority *int
}

// TaskPatch describes a partial task mutation. Nil fields are left
// untouched.
type TaskPatch struct {
	Title    *string
	Done     *bool
	Priority *int
}

// ThoughtPatch describes a partial thought mutation.
type ThoughtPatch struct {
	Content *string
	Topic   *string
	Source  *string
}

// UserPatch describes a partial user mutation.
type UserPatch struct {
	Name  *string
	Email *string
}
