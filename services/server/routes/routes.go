// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/curonhq/curon/services/planner"
	"github.com/curonhq/curon/services/server/handlers"
	"github.com/curonhq/curon/services/storage"
)

// SetupRoutes registers the full HTTP surface: the conversational
// prompt endpoint plus CRUD for intents, tasks, thoughts, and users.
func SetupRoutes(router *gin.Engine, store *storage.Store, engine *planner.Engine) {
	router.GET("/health", handlers.HealthCheck(store))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/prompt", handlers.HandlePrompt(engine))

		intents := v1.Group("/intents")
		{
			intents.POST("", handlers.CreateIntent(store))
			intents.GET("", handlers.ListIntents(store))
			intents.GET("/:id", handlers.GetIntent(store))
			intents.PATCH("/:id", handlers.UpdateIntent(store))
			intents.DELETE("/:id", handlers.DeleteIntent(store))
			intents.GET("/:id/chat", handlers.GetIntentChat(store))
		}

		tasks := v1.Group("/tasks")
		{
			tasks.POST("", handlers.CreateTask(store))
			tasks.PATCH("/:id", handlers.UpdateTask(store))
			tasks.DELETE("/:id", handlers.DeleteTask(store))
		}

		thoughts := v1.Group("/thoughts")
		{
			thoughts.POST("", handlers.CreateThought(store))
			thoughts.GET("", handlers.ListThoughts(store))
			thoughts.GET("/:id", handlers.GetThought(store))
			thoughts.PATCH("/:id", handlers.UpdateThought(store))
			thoughts.DELETE("/:id", handlers.DeleteThought(store))
		}

		users := v1.Group("/users")
		{
			users.POST("", handlers.CreateUser(store))
			users.GET("", handlers.ListUsers(store))
			users.GET("/:id", handlers.GetUser(store))
			users.PATCH("/:id", handlers.UpdateUser(store))
			users.DELETE("/:id", handlers.DeleteUser(store))
		}
	}
}
