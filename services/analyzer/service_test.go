// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/layerai/impactgate/services/analyzer/impact"
	"github.com/layerai/impactgate/services/analyzer/scan"
)

// Helper to write a file under root, creating parent directories.
func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	absPath := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", relPath, err)
	}
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", relPath, err)
	}
}

// writeProject creates a small Python repository with an SDK package, a
// nested subpackage, and an e2e suite that imports the SDK.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "layer/__init__.py", "")
	writeFile(t, root, "layer/config.py", "import os\n")
	writeFile(t, root, "layer/model.py", "import layer.config\n")
	writeFile(t, root, "layer/datasets/__init__.py", "")
	writeFile(t, root, "layer/datasets/dataset.py", "import layer.config\n")
	writeFile(t, root, "test/e2e/run.py", "import layer.model\n")
	return root
}

func TestDefaultServiceConfig(t *testing.T) {
	cfg := DefaultServiceConfig()
	if cfg.MaxBuildDuration != 60*time.Second {
		t.Errorf("MaxBuildDuration = %v, expected 60s", cfg.MaxBuildDuration)
	}
	if cfg.MaxCachedGraphs != 8 {
		t.Errorf("MaxCachedGraphs = %d, expected 8", cfg.MaxCachedGraphs)
	}
	if cfg.GraphTTL != 0 {
		t.Errorf("GraphTTL = %v, expected 0", cfg.GraphTTL)
	}
}

func TestService_BuildGraph(t *testing.T) {
	root := writeProject(t)
	svc := NewService(DefaultServiceConfig())

	resp, err := svc.BuildGraph(context.Background(), &BuildRequest{ProjectRoot: root})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.GraphID == "" {
		t.Error("expected a graph ID")
	}
	if resp.IsRefresh {
		t.Error("first build should not be a refresh")
	}
	if resp.FilesScanned != 6 || resp.FilesParsed != 6 {
		t.Errorf("scanned/parsed = %d/%d, expected 6/6", resp.FilesScanned, resp.FilesParsed)
	}
	if resp.Modules != 6 {
		t.Errorf("Modules = %d, expected 6", resp.Modules)
	}
	if resp.Edges == 0 {
		t.Error("expected import edges")
	}
	if resp.Incomplete {
		t.Error("build should be complete")
	}
	if svc.GraphCount() != 1 {
		t.Errorf("GraphCount = %d, expected 1", svc.GraphCount())
	}

	t.Run("rebuild replaces the cached graph", func(t *testing.T) {
		again, err := svc.BuildGraph(context.Background(), &BuildRequest{ProjectRoot: root})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !again.IsRefresh {
			t.Error("expected IsRefresh=true")
		}
		if again.PreviousID != resp.GraphID {
			t.Errorf("PreviousID = %q, expected %q", again.PreviousID, resp.GraphID)
		}
		if again.GraphID == resp.GraphID {
			t.Error("rebuild should mint a new graph ID")
		}
		if svc.GraphCount() != 1 {
			t.Errorf("GraphCount = %d, expected 1 after refresh", svc.GraphCount())
		}
		if _, err := svc.GetGraph(resp.GraphID); !errors.Is(err, ErrGraphNotFound) {
			t.Errorf("old graph should be gone, got %v", err)
		}
	})
}

func TestService_BuildGraph_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  ServiceConfig
		root    string
		wantErr error
	}{
		{
			name:    "relative path",
			root:    "relative/path",
			wantErr: ErrRelativePath,
		},
		{
			name:    "path traversal",
			root:    "/some/path/../traversal",
			wantErr: ErrPathTraversal,
		},
		{
			name:    "outside allowed roots",
			config:  ServiceConfig{AllowedRoots: []string{"/nonexistent-prefix"}},
			root:    os.TempDir(),
			wantErr: ErrPathTraversal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			_, err := svc.BuildGraph(context.Background(), &BuildRequest{ProjectRoot: tt.root})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("missing root", func(t *testing.T) {
		svc := NewService(DefaultServiceConfig())
		missing := filepath.Join(t.TempDir(), "missing")
		_, err := svc.BuildGraph(context.Background(), &BuildRequest{ProjectRoot: missing})
		if !errors.Is(err, scan.ErrRootNotFound) {
			t.Errorf("expected ErrRootNotFound, got %v", err)
		}
	})
}

func TestService_BuildGraph_InProgress(t *testing.T) {
	root := writeProject(t)
	svc := NewService(DefaultServiceConfig())

	lock := svc.getBuildLock(filepath.Clean(root))
	lock.Lock()
	defer lock.Unlock()

	_, err := svc.BuildGraph(context.Background(), &BuildRequest{ProjectRoot: root})
	if !errors.Is(err, ErrBuildInProgress) {
		t.Errorf("expected ErrBuildInProgress, got %v", err)
	}
}

func TestService_BuildGraph_ProjectConfigCaptured(t *testing.T) {
	root := writeProject(t)
	writeFile(t, root, ".impactgate.yaml",
		"targets:\n  - name: layer\n    roots: [layer]\n")
	svc := NewService(DefaultServiceConfig())

	resp, err := svc.BuildGraph(context.Background(), &BuildRequest{ProjectRoot: root})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	analysis, err := svc.Analyze(context.Background(), &AnalyzeRequest{GraphID: resp.GraphID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Line != "layer/**" {
		t.Errorf("Line = %q, expected config targets to drive analysis", analysis.Line)
	}
}

func TestService_GetGraph(t *testing.T) {
	svc := NewService(DefaultServiceConfig())

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.GetGraph("nonexistent")
		if !errors.Is(err, ErrGraphNotFound) {
			t.Errorf("expected ErrGraphNotFound, got %v", err)
		}
	})

	t.Run("expired entry", func(t *testing.T) {
		svc.mu.Lock()
		svc.graphs["stale"] = &CachedGraph{Root: "/old", BuiltAtMilli: 1, ExpiresAtMilli: 1}
		svc.mu.Unlock()

		_, err := svc.GetGraph("stale")
		if !errors.Is(err, ErrGraphExpired) {
			t.Errorf("expected ErrGraphExpired, got %v", err)
		}
	})
}

func TestService_Analyze(t *testing.T) {
	root := writeProject(t)
	svc := NewService(DefaultServiceConfig())

	built, err := svc.BuildGraph(context.Background(), &BuildRequest{ProjectRoot: root})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("by graph id", func(t *testing.T) {
		resp, err := svc.Analyze(context.Background(), &AnalyzeRequest{GraphID: built.GraphID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Line != "layer/**,test/e2e/**" {
			t.Errorf("Line = %q, expected layer/**,test/e2e/**", resp.Line)
		}
		if len(resp.Sets) != 2 {
			t.Errorf("Sets = %d, expected 2", len(resp.Sets))
		}
		if resp.GraphID != built.GraphID {
			t.Errorf("GraphID = %q, expected %q", resp.GraphID, built.GraphID)
		}
	})

	t.Run("by project root reuses the cache", func(t *testing.T) {
		resp, err := svc.Analyze(context.Background(), &AnalyzeRequest{ProjectRoot: root})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.GraphID != built.GraphID {
			t.Errorf("GraphID = %q, expected cached %q", resp.GraphID, built.GraphID)
		}
		if svc.GraphCount() != 1 {
			t.Errorf("GraphCount = %d, expected 1", svc.GraphCount())
		}
	})

	t.Run("by project root builds on cache miss", func(t *testing.T) {
		fresh := NewService(DefaultServiceConfig())
		resp, err := fresh.Analyze(context.Background(), &AnalyzeRequest{ProjectRoot: root})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Line != "layer/**,test/e2e/**" {
			t.Errorf("Line = %q, expected layer/**,test/e2e/**", resp.Line)
		}
		if fresh.GraphCount() != 1 {
			t.Errorf("GraphCount = %d, expected 1", fresh.GraphCount())
		}
	})

	t.Run("no graph reference", func(t *testing.T) {
		_, err := svc.Analyze(context.Background(), &AnalyzeRequest{})
		if !errors.Is(err, ErrNoGraphReference) {
			t.Errorf("expected ErrNoGraphReference, got %v", err)
		}
	})

	t.Run("target override", func(t *testing.T) {
		resp, err := svc.Analyze(context.Background(), &AnalyzeRequest{
			GraphID: built.GraphID,
			Targets: []impact.Target{{Name: "e2e", Roots: []string{"test/e2e"}}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// The e2e suite imports the SDK, so both directories gate it.
		if resp.Line != "layer/**,test/e2e/**" {
			t.Errorf("Line = %q", resp.Line)
		}
		if len(resp.Sets) != 1 || resp.Sets[0].Target != "e2e" {
			t.Errorf("Sets = %+v, expected the override target only", resp.Sets)
		}
	})

	t.Run("strict keeps nested directories", func(t *testing.T) {
		strict := true
		resp, err := svc.Analyze(context.Background(), &AnalyzeRequest{
			GraphID: built.GraphID,
			Strict:  &strict,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Line != "layer/**,layer/datasets/**,test/e2e/**" {
			t.Errorf("Line = %q, expected no ancestor subsumption", resp.Line)
		}
	})
}

func TestService_Evict(t *testing.T) {
	first := writeProject(t)
	second := writeProject(t)
	svc := NewService(ServiceConfig{MaxCachedGraphs: 1})

	respFirst, err := svc.BuildGraph(context.Background(), &BuildRequest{ProjectRoot: first})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Distinct timestamps so the eviction order is stable.
	time.Sleep(5 * time.Millisecond)

	respSecond, err := svc.BuildGraph(context.Background(), &BuildRequest{ProjectRoot: second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if svc.GraphCount() != 1 {
		t.Fatalf("GraphCount = %d, expected 1", svc.GraphCount())
	}
	if _, err := svc.GetGraph(respFirst.GraphID); !errors.Is(err, ErrGraphNotFound) {
		t.Errorf("oldest graph should be evicted, got %v", err)
	}
	if _, err := svc.GetGraph(respSecond.GraphID); err != nil {
		t.Errorf("newest graph should survive, got %v", err)
	}
}
