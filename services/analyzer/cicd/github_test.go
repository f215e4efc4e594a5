// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cicd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/layerai/impactgate/services/analyzer/impact"
)

func TestPatternOutputs(t *testing.T) {
	analysis := &impact.Analysis{
		Patterns: []string{"layer/**", "test/e2e/**"},
		Line:     "layer/**,test/e2e/**",
		Stats:    impact.AnalysisStats{Targets: 2},
	}

	outputs := PatternOutputs(analysis)

	if outputs["patterns"] != "layer/**,test/e2e/**" {
		t.Errorf("patterns = %q, expected the serialized line", outputs["patterns"])
	}
	if outputs["pattern_count"] != "2" {
		t.Errorf("pattern_count = %q, expected 2", outputs["pattern_count"])
	}
	if outputs["targets"] != "2" {
		t.Errorf("targets = %q, expected 2", outputs["targets"])
	}
}

func TestGateOutputs(t *testing.T) {
	result := &GateResult{
		ShouldRun:    true,
		MatchedFiles: []string{"layer/model.py", "layer/train.py"},
	}

	outputs := GateOutputs(result)

	if outputs["should_run"] != "true" {
		t.Errorf("should_run = %q, expected true", outputs["should_run"])
	}
	if outputs["matched_count"] != "2" {
		t.Errorf("matched_count = %q, expected 2", outputs["matched_count"])
	}
	if outputs["matched_files"] != "layer/model.py,layer/train.py" {
		t.Errorf("matched_files = %q", outputs["matched_files"])
	}
}

func TestAppendActionOutputs(t *testing.T) {
	t.Run("writes sorted key=value lines", func(t *testing.T) {
		outputPath := filepath.Join(t.TempDir(), "github_output")

		err := AppendActionOutputs(outputPath, map[string]string{
			"should_run": "true",
			"patterns":   "layer/**",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("reading output file: %v", err)
		}
		want := "patterns=layer/**\nshould_run=true\n"
		if string(data) != want {
			t.Errorf("output = %q, expected %q", string(data), want)
		}
	})

	t.Run("appends to existing content", func(t *testing.T) {
		outputPath := filepath.Join(t.TempDir(), "github_output")
		if err := os.WriteFile(outputPath, []byte("existing=1\n"), 0644); err != nil {
			t.Fatalf("seeding output file: %v", err)
		}

		if err := AppendActionOutputs(outputPath, map[string]string{"patterns": "**"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("reading output file: %v", err)
		}
		want := "existing=1\npatterns=**\n"
		if string(data) != want {
			t.Errorf("output = %q, expected %q", string(data), want)
		}
	})

	t.Run("multi-line value rejected", func(t *testing.T) {
		outputPath := filepath.Join(t.TempDir(), "github_output")

		err := AppendActionOutputs(outputPath, map[string]string{"bad": "a\nb"})
		if err == nil {
			t.Fatal("expected error for multi-line value")
		}
		if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
			t.Error("output file should not be created on error")
		}
	})
}
