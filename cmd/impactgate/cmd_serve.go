// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/layerai/impactgate/services/analyzer"
	"github.com/layerai/impactgate/services/analyzer/telemetry"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	servePort       int
	serveAllowRoots []string
	serveMaxGraphs  int
	serveGraphTTL   time.Duration
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the impact analysis HTTP server",
	Long: `Start an HTTP server that builds dependency graphs on request and
caches them in memory, so repeated analyses of the same tree skip the
scan. A local development mode: CI should call patterns or check.

Telemetry exporters are selected via environment variables:
  OTEL_TRACES_EXPORTER   stdout | none (default none)
  OTEL_METRICS_EXPORTER  prometheus | stdout | none (default none)

With prometheus metrics enabled, scrape GET /metrics.

Examples:
  impactgate serve
  impactgate serve --port 9090 --allow-root ~/code
  OTEL_METRICS_EXPORTER=prometheus impactgate serve`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080,
		"Port to listen on")
	serveCmd.Flags().StringSliceVar(&serveAllowRoots, "allow-root", nil,
		"Restrict project roots to these path prefixes (repeatable)")
	serveCmd.Flags().IntVar(&serveMaxGraphs, "max-graphs", 0,
		"Maximum cached graphs, oldest evicted first (0 = default)")
	serveCmd.Flags().DurationVar(&serveGraphTTL, "graph-ttl", 0,
		"Expire cached graphs after this duration (0 = never)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runServe(cmd *cobra.Command, args []string) {
	if verbose {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.ServiceVersion = analyzer.ServiceVersion
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetryCfg)
	if err != nil {
		fatal("Failed to initialize telemetry", err)
	}

	// With exporters disabled the global meter is a no-op, so the
	// instruments cost nothing.
	metrics, err := telemetry.NewMetrics(otel.Meter("impactgate"))
	if err != nil {
		fatal("Failed to create metrics", err)
	}

	svc := analyzer.NewService(serveServiceConfig()).WithMetrics(metrics)
	handlers := analyzer.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	if verbose {
		router.Use(gin.Logger())
	}
	router.Use(analyzer.MetricsMiddleware(metrics))
	if telemetryCfg.TraceExporter != "none" && telemetryCfg.TraceExporter != "" {
		router.Use(otelgin.Middleware(telemetryCfg.ServiceName))
	}

	v1 := router.Group("/v1")
	analyzer.RegisterRoutes(v1, handlers)

	if telemetryCfg.MetricExporter == "prometheus" {
		router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	}

	printServeBanner(servePort)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down impactgate server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("Telemetry shutdown failed", "error", err)
		}
		closeLogger()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", servePort)
	slog.Info("Starting impactgate server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		fatal("Server failed", err)
	}
}

// serveServiceConfig builds the service configuration from the defaults
// and the serve flags.
func serveServiceConfig() analyzer.ServiceConfig {
	cfg := analyzer.DefaultServiceConfig()
	if len(serveAllowRoots) > 0 {
		cfg.AllowedRoots = serveAllowRoots
	}
	if serveMaxGraphs > 0 {
		cfg.MaxCachedGraphs = serveMaxGraphs
	}
	if serveGraphTTL > 0 {
		cfg.GraphTTL = serveGraphTTL
	}
	return cfg
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func printServeBanner(port int) {
	fmt.Printf(`impactgate server listening on :%d

  POST /v1/impact/graph       build and cache a dependency graph
  GET  /v1/impact/graph/:id   stats for a cached graph
  POST /v1/impact/analyze     compute impact patterns
  GET  /v1/impact/health      liveness probe
  GET  /v1/impact/ready       readiness probe

Press Ctrl+C to stop.
`, port)
}
