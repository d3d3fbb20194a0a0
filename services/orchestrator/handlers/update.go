// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/homewiz/querygate/services/nlquery"
	"github.com/homewiz/querygate/services/orchestrator/datatypes"
	"github.com/homewiz/querygate/services/orchestrator/middleware"
	"github.com/homewiz/querygate/services/orchestrator/observability"
	"github.com/homewiz/querygate/services/update"
)

// UpdateService is the write pipeline as consumed by the HTTP layer.
// Satisfied by *update.Processor.
type UpdateService interface {
	ProcessUpdate(ctx context.Context, naturalQuery string, user nlquery.UserContext) nlquery.FrontendResponse
	ValidateUpdate(ctx context.Context, naturalQuery string, user nlquery.UserContext) update.ValidationResult
}

// HandleUpdate serves POST /v1/update.
func HandleUpdate(svc UpdateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		start := time.Now()
		resp := svc.ProcessUpdate(c.Request.Context(), req.Query, middleware.GetUserContext(c))
		observability.ObserveRequest("update", resp.Success, time.Since(start).Seconds())
		if !resp.Success && strings.Contains(resp.Message, "Safety limit:") {
			observability.ObserveSafetyLimitHit()
		}

		c.JSON(http.StatusOK, resp)
	}
}

// HandleUpdateValidate serves POST /v1/update/validate: generates the
// specification and previews its match set without committing.
func HandleUpdateValidate(svc UpdateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result := svc.ValidateUpdate(c.Request.Context(), req.Query, middleware.GetUserContext(c))
		c.JSON(http.StatusOK, result)
	}
}
