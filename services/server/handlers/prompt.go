// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers for the Curon HTTP
// surface. Handlers are closures over their dependencies; request
// bodies are bound, validated, and mapped onto the planner or the
// repository.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/curonhq/curon/services/planner"
	"github.com/curonhq/curon/services/server/datatypes"
)

var promptTracer = otel.Tracer("curon.server.handlers")

// HandlePrompt processes one conversational turn: context assembly,
// proposal gating, translation, and plan interpretation all happen
// behind this endpoint. The response is always a plan-shaped result;
// translation failures degrade to an ask fallback inside the engine
// and never surface here.
func HandlePrompt(engine *planner.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := promptTracer.Start(c.Request.Context(), "HandlePrompt")
		defer span.End()

		var req datatypes.PromptRequest
		if err := c.BindJSON(&req); err != nil {
			slog.Error("Failed to parse the prompt request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := engine.HandleUtterance(ctx, req.UserID, req.Prompt, req.IntentID)
		if err != nil {
			if errors.Is(err, planner.ErrValidation) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("plan turn failed", "error", err, "user_id", req.UserID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
