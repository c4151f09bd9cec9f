// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/curonhq/curon/services/server/datatypes"
	"github.com/curonhq/curon/services/storage"
)

// respondStoreError maps repository failures onto HTTP statuses.
func respondStoreError(c *gin.Context, err error, what string) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	slog.Error("storage operation failed", "error", err, "subject", what)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// callerID resolves the caller identity for read/delete endpoints.
// Auth is assumed pre-resolved upstream; the id arrives as a query
// parameter.
func callerID(c *gin.Context) (string, bool) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return "", false
	}
	return userID, true
}

func CreateIntent(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateIntentRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		intent, err := store.CreateIntent(c.Request.Context(), req.UserID, req.Title, storage.StatusActive, nil, req.ThoughtID)
		if err != nil {
			respondStoreError(c, err, "intent")
			return
		}
		c.JSON(http.StatusCreated, intent)
	}
}

func GetIntent(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		intent, err := store.GetOwnedIntent(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			respondStoreError(c, err, "intent")
			return
		}
		tasks, err := store.ListTasks(c.Request.Context(), intent.ID)
		if err != nil {
			respondStoreError(c, err, "tasks")
			return
		}
		c.JSON(http.StatusOK, gin.H{"intent": intent, "tasks": tasks})
	}
}

func ListIntents(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		statuses := c.QueryArray("status")
		intents, err := store.ListIntents(c.Request.Context(), userID, statuses)
		if err != nil {
			respondStoreError(c, err, "intents")
			return
		}
		c.JSON(http.StatusOK, intents)
	}
}

func UpdateIntent(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateIntentRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		intent, err := store.UpdateIntent(c.Request.Context(), c.Param("id"), req.UserID, storage.IntentUpdate{
			Title:  req.Title,
			Status: req.Status,
		})
		if err != nil {
			respondStoreError(c, err, "intent")
			return
		}
		c.JSON(http.StatusOK, intent)
	}
}

func DeleteIntent(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		intentID := c.Param("id")
		if err := store.DeleteIntent(c.Request.Context(), intentID, userID); err != nil {
			respondStoreError(c, err, "intent")
			return
		}
		slog.Info("deleted intent", "intent_id", intentID, "user_id", userID)
		c.JSON(http.StatusOK, gin.H{"message": "Intent deleted successfully"})
	}
}

// GetIntentChat returns an intent's transcript in creation order.
func GetIntentChat(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		intent, err := store.GetOwnedIntent(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			respondStoreError(c, err, "intent")
			return
		}
		entries, err := store.ListChatEntries(c.Request.Context(), intent.ID)
		if err != nil {
			respondStoreError(c, err, "chat entries")
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}
