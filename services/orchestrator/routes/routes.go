// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/homewiz/querygate/services/orchestrator/handlers"
	"github.com/homewiz/querygate/services/orchestrator/middleware"
)

// SetupRoutes registers the full HTTP surface. The pinger may be nil
// when no store is configured (e.g. in tests); /ready is then omitted.
func SetupRoutes(router *gin.Engine, querySvc handlers.QueryService, updateSvc handlers.UpdateService, pinger handlers.Pinger) {
	router.GET("/health", handlers.HealthCheck)
	if pinger != nil {
		router.GET("/ready", handlers.ReadyCheck(pinger))
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.UserContextMiddleware())
	{
		query := v1.Group("/query")
		{
			query.POST("", handlers.HandleQuery(querySvc))
			query.POST("/batch", handlers.HandleBatch(querySvc))
			query.POST("/validate", handlers.HandleValidate(querySvc))
			query.GET("/suggestions", handlers.HandleSuggestions(querySvc))
			query.GET("/statistics", handlers.HandleStatistics(querySvc))
		}

		v1.POST("/update", handlers.HandleUpdate(updateSvc))
		v1.POST("/update/validate", handlers.HandleUpdateValidate(updateSvc))
	}
}
