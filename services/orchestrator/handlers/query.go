// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP handlers for the query gateway.
// Handlers are thin: bind the request, resolve the caller's context,
// call the pipeline, record metrics, return the pipeline's response
// verbatim. All policy lives below this layer.
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
)

// QueryService is the read pipeline as consumed by the HTTP layer.
// Satisfied by *nlquery.Processor.
type QueryService interface {
	ProcessQuery(ctx context.Context, naturalQuery string, user nlquery.UserContext) nlquery.FrontendResponse
	ProcessBatch(ctx context.Context, queries []string, user nlquery.UserContext) []nlquery.FrontendResponse
	Validate(ctx context.Context, naturalQuery string, user nlquery.UserContext) nlquery.ValidationResult
	Suggestions(partial string, user nlquery.UserContext) []string
	Statistics(ctx context.Context, user nlquery.UserContext) map[string]any
}

// HandleQuery serves POST /v1/query.
func HandleQuery(svc QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		start := time.Now()
		resp := svc.ProcessQuery(c.Request.Context(), req.Query, middleware.GetUserContext(c))
		recordQueryOutcome("query", resp, time.Since(start))

		c.JSON(http.StatusOK, resp)
	}
}

// HandleBatch serves POST /v1/query/batch. Member queries run strictly
// sequentially; the response preserves submission order.
func HandleBatch(svc QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.BatchQueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		start := time.Now()
		responses := svc.ProcessBatch(c.Request.Context(), req.Queries, middleware.GetUserContext(c))
		elapsed := time.Since(start)
		for _, resp := range responses {
			recordQueryOutcome("batch", resp, elapsed/time.Duration(len(responses)))
		}

		c.JSON(http.StatusOK, gin.H{"responses": responses})
	}
}

// HandleValidate serves POST /v1/query/validate: a generate-only dry
// run, nothing touches the store.
func HandleValidate(svc QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result := svc.Validate(c.Request.Context(), req.Query, middleware.GetUserContext(c))
		c.JSON(http.StatusOK, result)
	}
}

// HandleSuggestions serves GET /v1/query/suggestions?q=partial.
func HandleSuggestions(svc QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		suggestions := svc.Suggestions(c.Query("q"), middleware.GetUserContext(c))
		c.JSON(http.StatusOK, datatypes.SuggestionsResponse{Suggestions: suggestions})
	}
}

// HandleStatistics serves GET /v1/query/statistics.
func HandleStatistics(svc QueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := svc.Statistics(c.Request.Context(), middleware.GetUserContext(c))
		c.JSON(http.StatusOK, stats)
	}
}

// recordQueryOutcome maps a pipeline response onto the metric surface.
func recordQueryOutcome(endpoint string, resp nlquery.FrontendResponse, elapsed time.Duration) {
	observability.ObserveRequest(endpoint, resp.Success, elapsed.Seconds())
	if resp.Success {
		return
	}
	if resultType, _ := resp.Metadata["result_type"].(string); resultType == "permission_denied" {
		observability.ObservePermissionDenial(endpoint)
	}
	if strings.Contains(resp.Message, "possible hallucination detected") {
		observability.ObserveHallucinationRejection()
	}
}
