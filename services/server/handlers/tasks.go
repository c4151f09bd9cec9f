// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/curonhq/curon/services/server/datatypes"
	"github.com/curonhq/curon/services/storage"
)

func CreateTask(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateTaskRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task, err := store.CreateTask(c.Request.Context(), req.UserID, req.IntentID, storage.TaskSeed{
			Title:    req.Title,
			Priority: req.Priority,
		})
		if err != nil {
			respondStoreError(c, err, "intent")
			return
		}
		c.JSON(http.StatusCreated, task)
	}
}

func UpdateTask(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateTaskRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task, err := store.UpdateTask(c.Request.Context(), req.UserID, c.Param("id"), storage.TaskPatch{
			Title:    req.Title,
			Done:     req.Done,
			Priority: req.Priority,
		})
		if err != nil {
			respondStoreError(c, err, "task")
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func DeleteTask(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		if err := store.DeleteTask(c.Request.Context(), userID, c.Param("id")); err != nil {
			respondStoreError(c, err, "task")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
	}
}
