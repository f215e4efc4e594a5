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
	"path/filepath"

	"github.com/layerai/impactgate/services/analyzer/cicd"
	"github.com/layerai/impactgate/services/analyzer/config"
	"github.com/layerai/impactgate/services/analyzer/graph"
	"github.com/layerai/impactgate/services/analyzer/impact"
	"github.com/layerai/impactgate/services/analyzer/scan"
)

// pipeline holds the results of one scan-and-build pass over the tree.
type pipeline struct {
	Root   string
	Config *config.Config
	Scan   *scan.ScanResult
	Build  *graph.BuildResult
}

// resolveRoot turns the --root flag into an absolute path.
func resolveRoot() (string, error) {
	root := repoRoot
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	return abs, nil
}

// loadConfig loads the project config, honoring the --config override.
func loadConfig(root string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(root)
}

// runPipeline scans the tree and builds the import graph. Per-file parse
// problems are logged at warn level and excluded; they never fail the run.
func runPipeline(ctx context.Context) (*pipeline, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}

	scanner := scan.NewScanner(cfg.ScannerOptions()...)
	scanResult, err := scanner.Scan(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, d := range scanResult.Diagnostics {
		slog.Warn("Skipping file", "path", d.FilePath, "error", d.Err)
	}

	builder := graph.NewBuilder(
		graph.WithRoot(root),
		graph.WithGoModulePath(scanResult.GoModulePath),
	)
	buildResult, err := builder.Build(ctx, scanResult.Results)
	if err != nil {
		return nil, err
	}

	slog.Debug("Graph built",
		"root", root,
		"files", scanResult.Stats.FilesScanned,
		"modules", buildResult.Graph.NodeCount(),
		"edges", buildResult.Graph.EdgeCount(),
		"external_imports", buildResult.Stats.ExternalImports)

	return &pipeline{
		Root:   root,
		Config: cfg,
		Scan:   scanResult,
		Build:  buildResult,
	}, nil
}

// analyze computes the impact sets for the configured targets.
func (p *pipeline) analyze(ctx context.Context) (*impact.Analysis, error) {
	a, err := impact.NewAnalyzer(p.Build.Graph, p.Config.AnalyzerOptions()...)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, p.Config.Targets)
}

// appendGitHubOutputs appends action output variables to $GITHUB_OUTPUT.
func appendGitHubOutputs(outputs map[string]string) error {
	path := os.Getenv(cicd.GitHubOutputEnv)
	if path == "" {
		return fmt.Errorf("%s is not set", cicd.GitHubOutputEnv)
	}
	return cicd.AppendActionOutputs(path, outputs)
}
