// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Request types for the Curon HTTP surface. Validation uses a shared
// validator instance; handlers call Validate() after binding and map
// failures to 400 responses.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

const (
	// MaxPromptBytes caps a single utterance. Checked in bytes, not
	// runes, so oversized payloads cannot exhaust memory before the
	// translator call.
	MaxPromptBytes = 16 * 1024
)

// requestValidate is the validator instance shared by request types.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("maxpromptbytes", validatePromptBytes)
}

func validatePromptBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxPromptBytes
}

// PromptRequest is the body of POST /v1/prompt: one conversational
// turn. IntentID scopes the turn to a single focused intent; when set,
// the translator context is restricted to that intent and mutating
// plans go through the confirmation protocol.
type PromptRequest struct {
	Prompt   string `json:"prompt" validate:"required,maxpromptbytes"`
	UserID   string `json:"user_id" validate:"required"`
	IntentID string `json:"intent_id" validate:"omitempty"`
}

// Validate checks required fields and size limits.
func (r *PromptRequest) Validate() error {
	return requestValidate.Struct(r)
}

// CreateIntentRequest is the body of POST /v1/intents.
type CreateIntentRequest struct {
	Title     string `json:"title" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	ThoughtID string `json:"thought_id"`
}

func (r *CreateIntentRequest) Validate() error {
	return requestValidate.Struct(r)
}

// UpdateIntentRequest is the body of PATCH /v1/intents/:id. Nil fields
// are left untouched.
type UpdateIntentRequest struct {
	UserID string  `json:"user_id" validate:"required"`
	Title  *string `json:"title"`
	Status *string `json:"status" validate:"omitempty,oneof=active clarification_requested"`
}

func (r *UpdateIntentRequest) Validate() error {
	return requestValidate.Struct(r)
}

// CreateTaskRequest is the body of POST /v1/tasks.
type CreateTaskRequest struct {
	Title    string `json:"title" validate:"required"`
	IntentID string `json:"intent_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	Priority *int   `json:"priority"`
}

func (r *CreateTaskRequest) Validate() error {
	return requestValidate.Struct(r)
}

// UpdateTaskRequest is the body of PATCH /v1/tasks/:id.
type UpdateTaskRequest struct {
	UserID   string  `json:"user_id" validate:"required"`
	Title    *string `json:"title"`
	Done     *bool   `json:"done"`
	Priority *int    `json:"priority"`
}

func (r *UpdateTaskRequest) Validate() error {
	return requestValidate.Struct(r)
}

// CreateThoughtRequest is the body of POST /v1/thoughts.
type CreateThoughtRequest struct {
	Content string `json:"content" validate:"required,maxpromptbytes"`
	UserID  string `json:"user_id" validate:"required"`
	Topic   string `json:"topic"`
	Source  string `json:"source"`
}

func (r *CreateThoughtRequest) Validate() error {
	return requestValidate.Struct(r)
}

// UpdateThoughtRequest is the body of PATCH /v1/thoughts/:id.
type UpdateThoughtRequest struct {
	UserID  string  `json:"user_id" validate:"required"`
	Content *string `json:"content"`
	Topic   *string `json:"topic"`
	Source  *string `json:"source"`
}

func (r *UpdateThoughtRequest) Validate() error {
	return requestValidate.Struct(r)
}

// CreateUserRequest is the body of POST /v1/users.
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func (r *CreateUserRequest) Validate() error {
	return requestValidate.Struct(r)
}

// UpdateUserRequest is the body of PATCH /v1/users/:id.
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitempty,email"`
}

func (r *UpdateUserRequest) Validate() error {
	return requestValidate.Struct(r)
}
