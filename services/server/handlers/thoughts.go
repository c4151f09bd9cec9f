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

func CreateThought(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateThoughtRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		thought, err := store.CreateThought(c.Request.Context(), req.UserID, req.Content, req.Topic, req.Source)
		if err != nil {
			respondStoreError(c, err, "thought")
			return
		}
		c.JSON(http.StatusCreated, thought)
	}
}

func GetThought(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		thought, err := store.GetThought(c.Request.Context(), c.Param("id"), userID)
		if err != nil {
			respondStoreError(c, err, "thought")
			return
		}
		c.JSON(http.StatusOK, thought)
	}
}

func ListThoughts(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		thoughts, err := store.ListThoughts(c.Request.Context(), userID)
		if err != nil {
			respondStoreError(c, err, "thoughts")
			return
		}
		c.JSON(http.StatusOK, thoughts)
	}
}

func UpdateThought(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateThoughtRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		thought, err := store.UpdateThought(c.Request.Context(), c.Param("id"), req.UserID, storage.ThoughtPatch{
			Content: req.Content,
			Topic:   req.Topic,
			Source:  req.Source,
		})
		if err != nil {
			respondStoreError(c, err, "thought")
			return
		}
		c.JSON(http.StatusOK, thought)
	}
}

func DeleteThought(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}
		if err := store.DeleteThought(c.Request.Context(), c.Param("id"), userID); err != nil {
			respondStoreError(c, err, "thought")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Thought deleted successfully"})
	}
}
