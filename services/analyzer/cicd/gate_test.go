// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cicd

import (
	"reflect"
	"testing"
)

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		pattern string
		file    string
		want    bool
	}{
		{"layer/**", "layer/model.py", true},
		{"layer/**", "layer/decorators/dataset.py", true},
		{"layer/**", "layer", true},
		{"layer/**", "layerx/model.py", false},
		{"layer/**", "test/e2e/run.py", false},
		{"test/e2e/**", "test/e2e/run.py", true},
		{"test/e2e/**", "test/unit/run.py", false},
		{"**", "anything/at/all.txt", true},
		{"**", "README.md", true},
		{"setup.py", "setup.py", true},
		{"setup.py", "setup.pyc", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" vs "+tt.file, func(t *testing.T) {
			if got := MatchesPattern(tt.pattern, tt.file); got != tt.want {
				t.Errorf("MatchesPattern(%q, %q) = %v, expected %v",
					tt.pattern, tt.file, got, tt.want)
			}
		})
	}
}

func TestGate_Evaluate(t *testing.T) {
	t.Run("impacted change gates positive", func(t *testing.T) {
		gate := NewGate([]string{"layer/**", "test/e2e/**"})

		result := gate.Evaluate([]string{"layer/model.py", "docs/readme.md"})

		if !result.ShouldRun {
			t.Error("expected ShouldRun for a change under layer/")
		}
		if !reflect.DeepEqual(result.MatchedFiles, []string{"layer/model.py"}) {
			t.Errorf("MatchedFiles = %v, expected [layer/model.py]", result.MatchedFiles)
		}
		if result.MatchedBy["layer/model.py"] != "layer/**" {
			t.Errorf("MatchedBy = %v, expected layer/** attribution", result.MatchedBy)
		}
	})

	t.Run("unimpacted change gates negative", func(t *testing.T) {
		gate := NewGate([]string{"layer/**"})

		result := gate.Evaluate([]string{"docs/readme.md", ".github/workflows/ci.yaml"})

		if result.ShouldRun {
			t.Errorf("expected gate negative, matched %v", result.MatchedFiles)
		}
		if len(result.MatchedFiles) != 0 {
			t.Errorf("MatchedFiles = %v, expected none", result.MatchedFiles)
		}
	})

	t.Run("no changed files gates negative", func(t *testing.T) {
		gate := NewGate([]string{"layer/**"})

		if result := gate.Evaluate(nil); result.ShouldRun {
			t.Error("expected gate negative for empty change set")
		}
	})

	t.Run("no patterns gates negative", func(t *testing.T) {
		gate := NewGate(nil)

		if result := gate.Evaluate([]string{"layer/model.py"}); result.ShouldRun {
			t.Error("expected gate negative with no patterns")
		}
	})

	t.Run("changed paths are cleaned and deduplicated", func(t *testing.T) {
		gate := NewGate([]string{"layer/**"})

		result := gate.Evaluate([]string{"./layer/model.py", "layer/model.py", " layer/model.py"})

		if !reflect.DeepEqual(result.ChangedFiles, []string{"layer/model.py"}) {
			t.Errorf("ChangedFiles = %v, expected single cleaned path", result.ChangedFiles)
		}
	})

	t.Run("catch-all pattern matches everything", func(t *testing.T) {
		gate := NewGate([]string{"**"})

		result := gate.Evaluate([]string{"anywhere/file.txt"})
		if !result.ShouldRun {
			t.Error("expected ShouldRun with catch-all pattern")
		}
	})
}
