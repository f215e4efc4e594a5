// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/layerai/impactgate/services/analyzer/telemetry"
)

// MetricsMiddleware creates Gin middleware that records request metrics.
//
// Description:
//
//	Records HTTP request count, duration, and active request count.
//	Metrics include labels for method, route, and status code. The route
//	label uses the matched route template, not the raw path, so metric
//	cardinality stays bounded.
//
// Inputs:
//
//	metrics - Pre-configured Metrics instance.
//
// Outputs:
//
//	gin.HandlerFunc to pass to router.Use.
//
// Example:
//
//	metrics, _ := telemetry.NewMetrics(otel.Meter("impactgate"))
//	router := gin.New()
//	router.Use(analyzer.MetricsMiddleware(metrics))
//
// Thread Safety: Safe for concurrent use.
func MetricsMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		metrics.HTTPActiveRequests.Add(ctx, 1)
		defer metrics.HTTPActiveRequests.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.Int("status", c.Writer.Status()),
		)

		metrics.HTTPRequestsTotal.Add(ctx, 1, attrs)
		metrics.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
