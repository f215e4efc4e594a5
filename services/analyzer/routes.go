// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all analyzer routes with the router.
//
// Description:
//
//	Registers all /v1/impact/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/impact/graph - Build and cache a dependency graph
//	GET  /v1/impact/graph/:id - Cached graph statistics
//	POST /v1/impact/analyze - Run an impact analysis
//	GET  /v1/impact/health - Health check
//	GET  /v1/impact/ready - Readiness check
//
// Example:
//
//	service := analyzer.NewService(analyzer.DefaultServiceConfig())
//	handlers := analyzer.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	analyzer.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	impact := rg.Group("/impact")
	{
		// Graph lifecycle
		impact.POST("/graph", handlers.HandleBuildGraph)
		impact.GET("/graph/:id", handlers.HandleGraphInfo)

		// Impact analysis
		impact.POST("/analyze", handlers.HandleAnalyze)

		// Health checks
		impact.GET("/health", handlers.HandleHealth)
		impact.GET("/ready", handlers.HandleReady)
	}
}
