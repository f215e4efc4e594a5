// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the impact analyzer.
//
// All metrics use the "impactgate_" prefix.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- Scan Metrics ---

	// FilesScannedTotal counts candidate files found per scan, by language.
	FilesScannedTotal metric.Int64Counter

	// ParseFailuresTotal counts files skipped or degraded with a diagnostic.
	ParseFailuresTotal metric.Int64Counter

	// ScanDuration records tree scan duration in seconds.
	ScanDuration metric.Float64Histogram

	// --- Graph Metrics ---

	// GraphBuildsTotal counts graph build operations by status.
	GraphBuildsTotal metric.Int64Counter

	// GraphBuildDuration records graph build duration in seconds.
	GraphBuildDuration metric.Float64Histogram

	// GraphModulesTotal counts modules added to graphs, by language.
	GraphModulesTotal metric.Int64Counter

	// --- Analysis Metrics ---

	// AnalysesTotal counts impact analyses by status.
	AnalysesTotal metric.Int64Counter

	// ClosureDuration records dependency closure duration in seconds.
	ClosureDuration metric.Float64Histogram

	// PatternsEmitted counts patterns produced per analysis.
	PatternsEmitted metric.Int64Counter

	// --- HTTP Metrics (serve mode) ---

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks currently active HTTP requests.
	HTTPActiveRequests metric.Int64UpDownCounter

	// --- Error Metrics ---

	// ErrorsTotal counts errors by component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all metrics registered.
//
// Inputs:
//
//	meter - The OTel meter to use for metric registration.
//
// Outputs:
//
//	*Metrics - The metrics instance with every instrument initialized.
//	error - Non-nil if metric registration fails.
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- Scan Metrics ---
	m.FilesScannedTotal, err = meter.Int64Counter(
		"impactgate_files_scanned_total",
		metric.WithDescription("Total candidate files found by scans"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create files_scanned_total: %w", err)
	}

	m.ParseFailuresTotal, err = meter.Int64Counter(
		"impactgate_parse_failures_total",
		metric.WithDescription("Total files skipped or degraded during parsing"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create parse_failures_total: %w", err)
	}

	m.ScanDuration, err = meter.Float64Histogram(
		"impactgate_scan_duration_seconds",
		metric.WithDescription("Tree scan duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("create scan_duration: %w", err)
	}

	// --- Graph Metrics ---
	m.GraphBuildsTotal, err = meter.Int64Counter(
		"impactgate_graph_builds_total",
		metric.WithDescription("Total graph build operations"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create graph_builds_total: %w", err)
	}

	m.GraphBuildDuration, err = meter.Float64Histogram(
		"impactgate_graph_build_duration_seconds",
		metric.WithDescription("Graph build duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create graph_build_duration: %w", err)
	}

	m.GraphModulesTotal, err = meter.Int64Counter(
		"impactgate_graph_modules_total",
		metric.WithDescription("Total modules added to graphs"),
		metric.WithUnit("{module}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create graph_modules_total: %w", err)
	}

	// --- Analysis Metrics ---
	m.AnalysesTotal, err = meter.Int64Counter(
		"impactgate_analyses_total",
		metric.WithDescription("Total impact analyses"),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create analyses_total: %w", err)
	}

	m.ClosureDuration, err = meter.Float64Histogram(
		"impactgate_closure_duration_seconds",
		metric.WithDescription("Dependency closure duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("create closure_duration: %w", err)
	}

	m.PatternsEmitted, err = meter.Int64Counter(
		"impactgate_patterns_emitted_total",
		metric.WithDescription("Total patterns produced by analyses"),
		metric.WithUnit("{pattern}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create patterns_emitted: %w", err)
	}

	// --- HTTP Metrics ---
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"impactgate_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"impactgate_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"impactgate_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	// --- Error Metrics ---
	m.ErrorsTotal, err = meter.Int64Counter(
		"impactgate_errors_total",
		metric.WithDescription("Total errors by component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}
