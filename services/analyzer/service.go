// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analyzer provides the serve-mode facade over scanning, graph
// construction, and impact analysis. It caches built graphs in memory,
// keyed by graph ID, and exposes them through the HTTP handlers in this
// package. Serve mode is a local development aid; the CI entry point is
// the CLI, which runs the same pipeline without this cache.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/layerai/impactgate/services/analyzer/config"
	"github.com/layerai/impactgate/services/analyzer/graph"
	"github.com/layerai/impactgate/services/analyzer/impact"
	"github.com/layerai/impactgate/services/analyzer/scan"
	"github.com/layerai/impactgate/services/analyzer/telemetry"
)

// ServiceConfig holds the analyzer service configuration.
type ServiceConfig struct {
	// MaxBuildDuration is the maximum time allowed for a scan plus graph
	// build. Default: 60s
	MaxBuildDuration time.Duration

	// MaxCachedGraphs is the maximum number of graphs to cache, evicting
	// the oldest first. 0 means unlimited. Default: 8
	MaxCachedGraphs int

	// GraphTTL is how long graphs are cached before expiry.
	// Default: 0 (no expiry)
	GraphTTL time.Duration

	// AllowedRoots is an optional list of allowed project root prefixes.
	// If empty, all absolute paths are allowed.
	AllowedRoots []string
}

// DefaultServiceConfig returns the default service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxBuildDuration: 60 * time.Second,
		MaxCachedGraphs:  8,
		GraphTTL:         0,
	}
}

// Service owns the in-memory graph cache and runs builds and analyses
// against it.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	config     ServiceConfig
	graphs     map[string]*CachedGraph
	mu         sync.RWMutex
	buildLocks sync.Map // project root -> *sync.Mutex

	// metrics is optional; nil disables instrument recording.
	metrics *telemetry.Metrics
}

// NewService creates an analyzer service with the given configuration.
func NewService(config ServiceConfig) *Service {
	return &Service{
		config: config,
		graphs: make(map[string]*CachedGraph),
	}
}

// WithMetrics sets the telemetry instruments and returns the service for
// chaining.
func (s *Service) WithMetrics(m *telemetry.Metrics) *Service {
	s.metrics = m
	return s
}

// BuildGraph scans a project root, builds its dependency graph, and caches
// the frozen result.
//
// Description:
//
//	Loads the project's own config file from the root (scanner options,
//	watched targets, strict mode), applies any request overrides, scans
//	the tree, and builds the import graph. At most one cached graph per
//	project root is kept: rebuilding a root replaces its previous entry
//	and reports the replaced ID.
//
// Inputs:
//
//	ctx - Context for cancellation. MaxBuildDuration is applied on top.
//	req - Build request; ProjectRoot must be absolute.
//
// Outputs:
//
//	*BuildResponse - Graph ID and build statistics.
//	error - ErrRelativePath, ErrPathTraversal, ErrBuildInProgress,
//	        ErrBuildTimeout, or a scan/build failure.
func (s *Service) BuildGraph(ctx context.Context, req *BuildRequest) (*BuildResponse, error) {
	root, err := s.validateProjectRoot(req.ProjectRoot)
	if err != nil {
		return nil, err
	}

	// One build per root at a time. Concurrent callers get an error
	// rather than queueing behind a scan of unknown length.
	lock := s.getBuildLock(root)
	if !lock.TryLock() {
		return nil, ErrBuildInProgress
	}
	defer lock.Unlock()

	if s.config.MaxBuildDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.MaxBuildDuration)
		defer cancel()
	}

	start := time.Now()

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load project config: %w", err)
	}
	if len(req.Languages) > 0 {
		cfg.Languages = req.Languages
	}
	if len(req.IgnoreDirs) > 0 {
		cfg.IgnoreDirs = req.IgnoreDirs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scanner := scan.NewScanner(cfg.ScannerOptions()...)
	scanResult, err := scanner.Scan(ctx, root)
	if err != nil {
		s.recordBuild(ctx, start, nil, "error")
		return nil, s.buildErr(err)
	}

	builder := graph.NewBuilder(
		graph.WithRoot(root),
		graph.WithGoModulePath(scanResult.GoModulePath),
	)
	buildResult, err := builder.Build(ctx, scanResult.Results)
	if err != nil {
		s.recordBuild(ctx, start, nil, "error")
		return nil, s.buildErr(err)
	}

	g := buildResult.Graph
	stats := g.Stats()

	cached := &CachedGraph{
		Graph:        g,
		Root:         root,
		Targets:      cfg.Targets,
		Strict:       cfg.StrictPatterns,
		BuiltAtMilli: time.Now().UnixMilli(),
	}
	if s.config.GraphTTL > 0 {
		cached.ExpiresAtMilli = time.Now().Add(s.config.GraphTTL).UnixMilli()
	}

	s.mu.Lock()
	var previousID string
	for id, old := range s.graphs {
		if old.Root == root {
			previousID = id
			delete(s.graphs, id)
			break
		}
	}
	s.graphs[g.ID] = cached
	s.evictLocked()
	s.mu.Unlock()

	s.recordBuild(ctx, start, scanResult, "ok")
	if s.metrics != nil {
		s.metrics.GraphModulesTotal.Add(ctx, int64(stats.NodeCount))
	}

	diags := make([]string, 0, len(scanResult.Diagnostics))
	for _, d := range scanResult.Diagnostics {
		diags = append(diags, d.Error())
	}

	return &BuildResponse{
		GraphID:      g.ID,
		IsRefresh:    previousID != "",
		PreviousID:   previousID,
		Root:         root,
		FilesScanned: scanResult.Stats.FilesScanned,
		FilesParsed:  scanResult.Stats.FilesParsed,
		Modules:      stats.NodeCount,
		Edges:        stats.EdgeCount,
		BuildTimeMs:  time.Since(start).Milliseconds(),
		Incomplete:   buildResult.Incomplete,
		Diagnostics:  diags,
	}, nil
}

// Analyze runs an impact analysis against a cached graph.
//
// Description:
//
//	Resolves the graph from the request (by ID, or by project root with
//	a build on cache miss), picks the targets (request override, then
//	the project config captured at build time, then the defaults), and
//	computes the impact sets and pattern line.
//
// Outputs:
//
//	*AnalyzeResponse - Pattern line, per-target sets, and stats.
//	error - ErrNoGraphReference, ErrGraphNotFound, ErrGraphExpired, a
//	        build failure, or an analysis failure such as
//	        impact.ErrEncoding.
func (s *Service) Analyze(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	cached, err := s.resolveGraph(ctx, req)
	if err != nil {
		return nil, err
	}

	targets := req.Targets
	if len(targets) == 0 {
		targets = cached.Targets
	}
	if len(targets) == 0 {
		targets = impact.DefaultTargets()
	}

	strict := cached.Strict
	if req.Strict != nil {
		strict = *req.Strict
	}

	a, err := impact.NewAnalyzer(cached.Graph, impact.WithStrictPatterns(strict))
	if err != nil {
		return nil, err
	}
	analysis, err := a.Analyze(ctx, targets)
	if err != nil {
		s.recordAnalysis(ctx, nil, "error")
		return nil, err
	}
	s.recordAnalysis(ctx, analysis, "ok")

	return &AnalyzeResponse{
		GraphID:  cached.Graph.ID,
		Root:     cached.Root,
		Line:     analysis.Line,
		Patterns: analysis.Patterns,
		Sets:     analysis.Sets,
		Stats:    analysis.Stats,
	}, nil
}

// GetGraph returns the cached graph for the given ID.
//
// Outputs:
//
//	*CachedGraph - The cache entry.
//	error - ErrGraphNotFound or ErrGraphExpired.
func (s *Service) GetGraph(graphID string) (*CachedGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached, ok := s.graphs[graphID]
	if !ok {
		return nil, ErrGraphNotFound
	}
	if cached.Expired(time.Now().UnixMilli()) {
		return nil, ErrGraphExpired
	}
	return cached, nil
}

// GraphCount returns the number of cached graphs, expired entries included.
func (s *Service) GraphCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graphs)
}

// resolveGraph picks the cache entry an analyze request refers to.
func (s *Service) resolveGraph(ctx context.Context, req *AnalyzeRequest) (*CachedGraph, error) {
	if req.GraphID != "" {
		return s.GetGraph(req.GraphID)
	}
	if req.ProjectRoot == "" {
		return nil, ErrNoGraphReference
	}

	root, err := s.validateProjectRoot(req.ProjectRoot)
	if err != nil {
		return nil, err
	}
	if cached := s.lookupByRoot(root); cached != nil {
		return cached, nil
	}

	resp, err := s.BuildGraph(ctx, &BuildRequest{ProjectRoot: req.ProjectRoot})
	if err != nil {
		return nil, err
	}
	return s.GetGraph(resp.GraphID)
}

// lookupByRoot returns the unexpired cache entry for a project root, or nil.
func (s *Service) lookupByRoot(root string) *CachedGraph {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UnixMilli()
	for _, cached := range s.graphs {
		if cached.Root == root && !cached.Expired(now) {
			return cached
		}
	}
	return nil
}

// validateProjectRoot checks a requested root and returns it cleaned.
func (s *Service) validateProjectRoot(projectRoot string) (string, error) {
	if !filepath.IsAbs(projectRoot) {
		return "", ErrRelativePath
	}
	// Check the raw path: Clean would silently fold ".." away.
	if strings.Contains(projectRoot, "..") {
		return "", ErrPathTraversal
	}
	root := filepath.Clean(projectRoot)

	// Resolve symlinks so the allowlist check sees the real path.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", scan.ErrRootNotFound, root)
		}
		return "", fmt.Errorf("resolve path: %w", err)
	}

	if len(s.config.AllowedRoots) > 0 {
		allowed := false
		for _, prefix := range s.config.AllowedRoots {
			if strings.HasPrefix(resolved, prefix) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", ErrPathTraversal
		}
	}
	return root, nil
}

// getBuildLock returns the per-root build mutex.
func (s *Service) getBuildLock(root string) *sync.Mutex {
	lock, _ := s.buildLocks.LoadOrStore(root, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// evictLocked removes the oldest entries until the cache fits. Caller must
// hold the write lock.
func (s *Service) evictLocked() {
	if s.config.MaxCachedGraphs <= 0 {
		return
	}
	for len(s.graphs) > s.config.MaxCachedGraphs {
		oldestID := ""
		var oldestTime int64
		for id, cached := range s.graphs {
			if oldestID == "" || cached.BuiltAtMilli < oldestTime {
				oldestID = id
				oldestTime = cached.BuiltAtMilli
			}
		}
		delete(s.graphs, oldestID)
	}
}

// buildErr maps a deadline hit during scan or build to ErrBuildTimeout.
func (s *Service) buildErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && s.config.MaxBuildDuration > 0 {
		return fmt.Errorf("%w after %s", ErrBuildTimeout, s.config.MaxBuildDuration)
	}
	return err
}

// recordBuild records scan and build instruments when metrics are enabled.
func (s *Service) recordBuild(ctx context.Context, start time.Time, scanResult *scan.ScanResult, status string) {
	if s.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	s.metrics.GraphBuildsTotal.Add(ctx, 1, attrs)
	s.metrics.GraphBuildDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	if scanResult != nil {
		s.metrics.FilesScannedTotal.Add(ctx, int64(scanResult.Stats.FilesScanned))
		s.metrics.ParseFailuresTotal.Add(ctx, int64(scanResult.Stats.FilesFailed))
		s.metrics.ScanDuration.Record(ctx, float64(scanResult.Stats.DurationMilli)/1000.0)
	}
}

// recordAnalysis records analysis instruments when metrics are enabled.
func (s *Service) recordAnalysis(ctx context.Context, analysis *impact.Analysis, status string) {
	if s.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	s.metrics.AnalysesTotal.Add(ctx, 1, attrs)
	if analysis != nil {
		s.metrics.ClosureDuration.Record(ctx, float64(analysis.Stats.DurationMicro)/1e6, attrs)
		s.metrics.PatternsEmitted.Add(ctx, int64(len(analysis.Patterns)))
	}
}
