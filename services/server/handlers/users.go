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

func CreateUser(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateUserRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := store.CreateUser(c.Request.Context(), req.Name, req.Email)
		if err != nil {
			respondStoreError(c, err, "user")
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func GetUser(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := store.GetUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondStoreError(c, err, "user")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func ListUsers(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := store.ListUsers(c.Request.Context())
		if err != nil {
			respondStoreError(c, err, "users")
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func UpdateUser(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateUserRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := store.UpdateUser(c.Request.Context(), c.Param("id"), storage.UserPatch{
			Name:  req.Name,
			Email: req.Email,
		})
		if err != nil {
			respondStoreError(c, err, "user")
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func DeleteUser(store *storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
			respondStoreError(c, err, "user")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
	}
}
