// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/layerai/impactgate/services/analyzer/config"
	"github.com/layerai/impactgate/services/analyzer/impact"
	"github.com/layerai/impactgate/services/analyzer/scan"
)

// Handlers contains the HTTP handlers for the analyzer service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleBuildGraph handles POST /v1/impact/graph.
//
// Description:
//
//	Builds the dependency graph for a project root and caches it. The
//	project's own config file drives scanner options and targets; the
//	request may override languages and ignored directories.
//
// Request Body:
//
//	BuildRequest
//
// Response:
//
//	200 OK: BuildResponse
//	400 Bad Request: Validation error
//	409 Conflict: Build already running for this root
//	504 Gateway Timeout: Build exceeded the configured limit
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleBuildGraph(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleBuildGraph")

	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Building graph", "project_root", req.ProjectRoot)

	resp, err := h.svc.BuildGraph(c.Request.Context(), &req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "BUILD_FAILED"

		if errors.Is(err, ErrRelativePath) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_PATH"
		} else if errors.Is(err, ErrPathTraversal) {
			statusCode = http.StatusBadRequest
			errCode = "PATH_TRAVERSAL"
		} else if errors.Is(err, ErrBuildInProgress) {
			statusCode = http.StatusConflict
			errCode = "BUILD_IN_PROGRESS"
		} else if errors.Is(err, ErrBuildTimeout) {
			statusCode = http.StatusGatewayTimeout
			errCode = "BUILD_TIMEOUT"
		} else if errors.Is(err, scan.ErrRootNotFound) {
			statusCode = http.StatusBadRequest
			errCode = "ROOT_NOT_FOUND"
		} else if errors.Is(err, scan.ErrNotADirectory) {
			statusCode = http.StatusBadRequest
			errCode = "NOT_A_DIRECTORY"
		} else if errors.Is(err, scan.ErrTooManyFiles) {
			statusCode = http.StatusBadRequest
			errCode = "PROJECT_TOO_LARGE"
		} else if errors.Is(err, config.ErrInvalidConfig) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_CONFIG"
		}

		logger.Error("Build failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Graph built",
		"graph_id", resp.GraphID,
		"modules", resp.Modules,
		"edges", resp.Edges,
		"build_time_ms", resp.BuildTimeMs)

	c.JSON(http.StatusOK, resp)
}

// HandleAnalyze handles POST /v1/impact/analyze.
//
// Description:
//
//	Runs an impact analysis against a cached graph and returns the
//	pattern line plus per-target impact sets. The graph is selected by
//	ID or by project root; a root without a cached graph is built first.
//
// Request Body:
//
//	AnalyzeRequest
//
// Response:
//
//	200 OK: AnalyzeResponse
//	400 Bad Request: Validation error
//	404 Not Found: Unknown graph ID
//	410 Gone: Graph expired
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyze")

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Analyzing impact",
		"graph_id", req.GraphID,
		"project_root", req.ProjectRoot,
		"targets", len(req.Targets))

	resp, err := h.svc.Analyze(c.Request.Context(), &req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "ANALYZE_FAILED"

		if errors.Is(err, ErrNoGraphReference) {
			statusCode = http.StatusBadRequest
			errCode = "MISSING_GRAPH_REFERENCE"
		} else if errors.Is(err, ErrGraphNotFound) {
			statusCode = http.StatusNotFound
			errCode = "GRAPH_NOT_FOUND"
		} else if errors.Is(err, ErrGraphExpired) {
			statusCode = http.StatusGone
			errCode = "GRAPH_EXPIRED"
		} else if errors.Is(err, ErrRelativePath) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_PATH"
		} else if errors.Is(err, ErrPathTraversal) {
			statusCode = http.StatusBadRequest
			errCode = "PATH_TRAVERSAL"
		} else if errors.Is(err, ErrBuildInProgress) {
			statusCode = http.StatusConflict
			errCode = "BUILD_IN_PROGRESS"
		} else if errors.Is(err, ErrBuildTimeout) {
			statusCode = http.StatusGatewayTimeout
			errCode = "BUILD_TIMEOUT"
		} else if errors.Is(err, scan.ErrRootNotFound) {
			statusCode = http.StatusBadRequest
			errCode = "ROOT_NOT_FOUND"
		} else if errors.Is(err, impact.ErrNoTargets) {
			statusCode = http.StatusBadRequest
			errCode = "NO_TARGETS"
		} else if errors.Is(err, impact.ErrEncoding) {
			errCode = "ENCODING_FAILED"
		} else if errors.Is(err, impact.ErrTruncated) {
			errCode = "ANALYSIS_TRUNCATED"
		}

		logger.Error("Analysis failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Analysis complete",
		"graph_id", resp.GraphID,
		"patterns", len(resp.Patterns),
		"line", resp.Line)

	c.JSON(http.StatusOK, resp)
}

// HandleGraphInfo handles GET /v1/impact/graph/:id.
//
// Description:
//
//	Returns statistics and captured config for a cached graph.
//
// Path Parameters:
//
//	id: Graph ID (required)
//
// Response:
//
//	200 OK: GraphInfoResponse
//	404 Not Found: Unknown graph ID
//	410 Gone: Graph expired
func (h *Handlers) HandleGraphInfo(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGraphInfo")

	graphID := c.Param("id")

	cached, err := h.svc.GetGraph(graphID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "GRAPH_LOOKUP_FAILED"

		if errors.Is(err, ErrGraphNotFound) {
			statusCode = http.StatusNotFound
			errCode = "GRAPH_NOT_FOUND"
		} else if errors.Is(err, ErrGraphExpired) {
			statusCode = http.StatusGone
			errCode = "GRAPH_EXPIRED"
		}

		logger.Warn("Graph lookup failed", "graph_id", graphID, "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	c.JSON(http.StatusOK, GraphInfoResponse{
		Stats:          cached.Graph.Stats(),
		Root:           cached.Root,
		Targets:        cached.Targets,
		BuiltAtMilli:   cached.BuiltAtMilli,
		ExpiresAtMilli: cached.ExpiresAtMilli,
	})
}

// HandleHealth handles GET /v1/impact/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/impact/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, ReadyResponse{
		Ready:      true,
		GraphCount: h.svc.GraphCount(),
	})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
