package ast

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// Test source code samples (embedded, no file I/O).
const pythonTestSource = `"""SDK entry point."""

from typing import Optional
import logging

from layer.config import settings
from .client import Client
from ..shared import util
import layer.datasets as datasets

def init(project: Optional[str] = None) -> None:
    import layer.telemetry
    logging.info("init %s", project)

class Runner:
    def run(self) -> None:
        from layer.executor import execute
        execute(self)
`

func TestPythonParser_Parse_EmptyFile(t *testing.T) {
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(""), "empty.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result == nil {
		t.Fatal("expected non-nil result")
	}

	if result.Language != "python" {
		t.Errorf("expected language 'python', got %q", result.Language)
	}

	if result.FilePath != "empty.py" {
		t.Errorf("expected file path 'empty.py', got %q", result.FilePath)
	}

	if len(result.Imports) != 0 {
		t.Errorf("expected no imports, got %d", len(result.Imports))
	}
}

func TestPythonParser_Parse_Import(t *testing.T) {
	source := `import os`

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(result.Imports))
	}

	imp := result.Imports[0]
	if imp.Path != "os" {
		t.Errorf("expected import path 'os', got %q", imp.Path)
	}
	if imp.IsRelative {
		t.Error("expected absolute import")
	}
	if imp.Location.StartLine != 1 {
		t.Errorf("expected start line 1, got %d", imp.Location.StartLine)
	}
}

func TestPythonParser_Parse_DottedImport(t *testing.T) {
	source := `import layer.config.settings`

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(result.Imports))
	}

	if result.Imports[0].Path != "layer.config.settings" {
		t.Errorf("expected dotted path, got %q", result.Imports[0].Path)
	}
}

func TestPythonParser_Parse_ImportAlias(t *testing.T) {
	source := `import numpy as np`

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(result.Imports))
	}

	imp := result.Imports[0]
	if imp.Path != "numpy" {
		t.Errorf("expected import path 'numpy', got %q", imp.Path)
	}
	if imp.Alias != "np" {
		t.Errorf("expected alias 'np', got %q", imp.Alias)
	}
}

func TestPythonParser_Parse_MultipleTargets(t *testing.T) {
	source := `import os, sys`

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(result.Imports))
	}

	if result.Imports[0].Path != "os" || result.Imports[1].Path != "sys" {
		t.Errorf("expected os and sys, got %q and %q", result.Imports[0].Path, result.Imports[1].Path)
	}
}

func TestPythonParser_Parse_ImportFrom(t *testing.T) {
	source := `from collections import OrderedDict, Counter`

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(result.Imports))
	}

	imp := result.Imports[0]
	if imp.Path != "collections" {
		t.Errorf("expected import path 'collections', got %q", imp.Path)
	}
	if len(imp.Names) != 2 {
		t.Errorf("expected 2 names, got %d", len(imp.Names))
	}
}

func TestPythonParser_Parse_ImportFromAliased(t *testing.T) {
	source := `from layer.client import Dataset as DS`

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(result.Imports))
	}

	imp := result.Imports[0]
	if imp.Path != "layer.client" {
		t.Errorf("expected import path 'layer.client', got %q", imp.Path)
	}
	if len(imp.Names) != 1 || imp.Names[0] != "Dataset as DS" {
		t.Errorf("expected aliased name, got %v", imp.Names)
	}
}

func TestPythonParser_Parse_ImportWildcard(t *testing.T) {
	source := `from module import *`

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(result.Imports))
	}

	imp := result.Imports[0]
	if !imp.IsWildcard {
		t.Error("expected wildcard import")
	}
	if imp.Path != "module" {
		t.Errorf("expected import path 'module', got %q", imp.Path)
	}
}

func TestPythonParser_Parse_RelativeImport(t *testing.T) {
	source := `from . import local`

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(result.Imports))
	}

	imp := result.Imports[0]
	if !imp.IsRelative {
		t.Error("expected relative import")
	}
	if imp.Path != "." {
		t.Errorf("expected bare dot path, got %q", imp.Path)
	}
	if len(imp.Names) != 1 || imp.Names[0] != "local" {
		t.Errorf("expected imported name 'local', got %v", imp.Names)
	}
}

func TestPythonParser_Parse_RelativeImportParent(t *testing.T) {
	source := `from ..utils import helper`

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(result.Imports))
	}

	imp := result.Imports[0]
	if !imp.IsRelative {
		t.Error("expected relative import")
	}
	if imp.Path != "..utils" {
		t.Errorf("expected path '..utils', got %q", imp.Path)
	}
}

func TestPythonParser_Parse_NestedImports(t *testing.T) {
	source := `def lazy():
    import layer.telemetry

class C:
    def m(self):
        from layer.executor import execute
`
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Imports inside bodies still create dependencies and must be collected.
	if len(result.Imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(result.Imports))
	}

	paths := map[string]bool{}
	for _, imp := range result.Imports {
		paths[imp.Path] = true
	}
	if !paths["layer.telemetry"] || !paths["layer.executor"] {
		t.Errorf("missing nested imports, got %v", paths)
	}
}

func TestPythonParser_Parse_ConditionalImport(t *testing.T) {
	source := `import sys

if sys.version_info >= (3, 8):
    from typing import Protocol
else:
    from typing_extensions import Protocol
`
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %d", len(result.Imports))
	}
}

func TestPythonParser_Parse_ComprehensiveExample(t *testing.T) {
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(pythonTestSource), "layer/__init__.py")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.HasSyntaxErrors {
		t.Error("expected clean parse")
	}

	want := map[string]struct {
		relative bool
		alias    string
	}{
		"typing":          {},
		"logging":         {},
		"layer.config":    {},
		".client":         {relative: true},
		"..shared":        {relative: true},
		"layer.datasets":  {alias: "datasets"},
		"layer.telemetry": {},
		"layer.executor":  {},
	}

	if len(result.Imports) != len(want) {
		t.Fatalf("expected %d imports, got %d", len(want), len(result.Imports))
	}

	for _, imp := range result.Imports {
		spec, ok := want[imp.Path]
		if !ok {
			t.Errorf("unexpected import %q", imp.Path)
			continue
		}
		if imp.IsRelative != spec.relative {
			t.Errorf("import %q: relative = %v, want %v", imp.Path, imp.IsRelative, spec.relative)
		}
		if spec.alias != "" && imp.Alias != spec.alias {
			t.Errorf("import %q: alias = %q, want %q", imp.Path, imp.Alias, spec.alias)
		}
		delete(want, imp.Path)
	}

	if len(want) > 0 {
		t.Errorf("missing imports: %v", want)
	}
}

func TestPythonParser_Parse_SyntaxError(t *testing.T) {
	source := `def broken(
    # Missing closing paren and body

import os
`
	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(source), "test.py")

	// Should return partial result, not error
	if err != nil {
		t.Fatalf("expected partial result, got error: %v", err)
	}

	if result == nil {
		t.Fatal("expected non-nil result")
	}

	if !result.HasSyntaxErrors {
		t.Error("expected HasSyntaxErrors for broken source")
	}
}

func TestPythonParser_Parse_FileTooLarge(t *testing.T) {
	parser := NewPythonParser(WithPythonMaxFileSize(100)) // 100 bytes max

	largeContent := make([]byte, 200)
	for i := range largeContent {
		largeContent[i] = 'x'
	}

	_, err := parser.Parse(context.Background(), largeContent, "large.py")

	if err == nil {
		t.Fatal("expected error for file too large")
	}

	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got: %v", err)
	}
}

func TestPythonParser_Parse_InvalidUTF8(t *testing.T) {
	parser := NewPythonParser()

	// Invalid UTF-8 sequence
	invalidContent := []byte{0xff, 0xfe}

	_, err := parser.Parse(context.Background(), invalidContent, "invalid.py")

	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}

	if !errors.Is(err, ErrInvalidContent) {
		t.Errorf("expected ErrInvalidContent, got: %v", err)
	}
}

func TestPythonParser_Parse_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	parser := NewPythonParser()
	_, err := parser.Parse(ctx, []byte("import os"), "test.py")

	if err == nil {
		t.Error("expected error from canceled context")
	}

	if !strings.Contains(err.Error(), "canceled") {
		t.Errorf("expected canceled error, got: %v", err)
	}
}

func TestPythonParser_Parse_Hash(t *testing.T) {
	parser := NewPythonParser()
	content := []byte("import os")

	result1, err := parser.Parse(context.Background(), content, "test.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result2, err := parser.Parse(context.Background(), content, "test.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result1.Hash == "" {
		t.Error("expected non-empty hash")
	}

	if result1.Hash != result2.Hash {
		t.Error("expected deterministic hash for same content")
	}

	result3, err := parser.Parse(context.Background(), []byte("import sys"), "test.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result1.Hash == result3.Hash {
		t.Error("expected different hash for different content")
	}
}

func TestPythonParser_Parse_Concurrent(t *testing.T) {
	parser := NewPythonParser()
	sources := []string{
		`import os`,
		`from layer.config import settings`,
		`from . import client`,
		`import numpy as np`,
		`from module import *`,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(sources)*10)

	// Run many concurrent parses
	for i := 0; i < 10; i++ {
		for _, src := range sources {
			wg.Add(1)
			go func(source string) {
				defer wg.Done()
				_, err := parser.Parse(context.Background(), []byte(source), "test.py")
				if err != nil {
					errCh <- err
				}
			}(src)
		}
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent parse error: %v", err)
	}
}

func TestPythonParser_Language(t *testing.T) {
	parser := NewPythonParser()
	if parser.Language() != "python" {
		t.Errorf("expected language 'python', got %q", parser.Language())
	}
}

func TestPythonParser_Extensions(t *testing.T) {
	parser := NewPythonParser()
	extensions := parser.Extensions()

	expectedExts := map[string]bool{".py": true, ".pyi": true}
	for _, ext := range extensions {
		if !expectedExts[ext] {
			t.Errorf("unexpected extension: %q", ext)
		}
		delete(expectedExts, ext)
	}

	if len(expectedExts) > 0 {
		t.Errorf("missing extensions: %v", expectedExts)
	}
}
