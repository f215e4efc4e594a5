// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/layerai/impactgate/services/analyzer/ast"
)

// Default configuration values.
const (
	// DefaultWorkers is the default size of the parse worker pool.
	DefaultWorkers = 8

	// DefaultMaxFiles is the default limit on files per scan.
	DefaultMaxFiles = 100_000
)

// DefaultIgnoreDirs are directory names skipped during the walk. Generated,
// vendored, and tooling directories never contribute watched modules.
var DefaultIgnoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".idea":        true,
	".vscode":      true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".mypy_cache":  true,
	".tox":         true,
	"eggs":         true,
	".eggs":        true,
	"node_modules": true,
	"vendor":       true,
	"build":        true,
	"dist":         true,
	".next":        true,
	"coverage":     true,
	".cache":       true,
	"target":       true,
}

// Diagnostic records a per-file problem that did not stop the scan.
type Diagnostic struct {
	// FilePath is the file's path relative to the scan root.
	FilePath string `json:"file_path"`

	// Err is the underlying problem.
	Err error `json:"-"`

	// Message is the rendered problem, for serialization.
	Message string `json:"message"`
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %v", d.FilePath, d.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// ScanStats contains metrics about a scan.
type ScanStats struct {
	// FilesScanned is the number of candidate files found by the walk.
	FilesScanned int `json:"files_scanned"`

	// FilesParsed is the number of files parsed successfully.
	FilesParsed int `json:"files_parsed"`

	// FilesFailed is the number of files skipped with a diagnostic.
	FilesFailed int `json:"files_failed"`

	// DurationMilli is the total scan duration in milliseconds.
	DurationMilli int64 `json:"duration_milli"`
}

// ScanResult is the outcome of one tree scan.
type ScanResult struct {
	// Root is the absolute scan root.
	Root string `json:"root"`

	// Files lists every candidate file found, relative slash paths in
	// lexicographic order. Includes files that later failed to parse.
	Files []string `json:"files"`

	// Results holds the parse results in file order. Files that failed
	// outright are absent here; files with syntax errors keep their
	// partial result and also carry a diagnostic.
	Results []*ast.ParseResult `json:"-"`

	// Diagnostics lists per-file problems, in file order.
	Diagnostics []*Diagnostic `json:"diagnostics,omitempty"`

	// GoModulePath is the module path from the root's go.mod, empty when
	// the tree has none.
	GoModulePath string `json:"go_module_path,omitempty"`

	// Stats contains scan metrics.
	Stats ScanStats `json:"stats"`
}

// ScannerOptions configures the Scanner.
type ScannerOptions struct {
	// Registry supplies the parsers. Default: ast.DefaultRegistry().
	Registry *ast.ParserRegistry

	// Workers bounds the parse worker pool.
	// Default: 8
	Workers int

	// MaxFiles caps the number of candidate files.
	// Default: 100,000
	MaxFiles int

	// IgnoreDirs are directory names to skip, replacing the default set.
	IgnoreDirs map[string]bool

	// IgnorePatterns are additional path patterns (filepath.Match against
	// the relative path) that exclude directories and files.
	IgnorePatterns []string
}

// ScannerOption is a functional option for configuring the Scanner.
type ScannerOption func(*ScannerOptions)

// WithRegistry sets the parser registry.
func WithRegistry(registry *ast.ParserRegistry) ScannerOption {
	return func(o *ScannerOptions) {
		o.Registry = registry
	}
}

// WithWorkers sets the parse worker pool size.
func WithWorkers(n int) ScannerOption {
	return func(o *ScannerOptions) {
		o.Workers = n
	}
}

// WithMaxFiles caps the number of candidate files per scan.
func WithMaxFiles(n int) ScannerOption {
	return func(o *ScannerOptions) {
		o.MaxFiles = n
	}
}

// WithIgnoreDirs replaces the default ignored directory names.
func WithIgnoreDirs(names []string) ScannerOption {
	return func(o *ScannerOptions) {
		set := make(map[string]bool, len(names))
		for _, name := range names {
			set[name] = true
		}
		o.IgnoreDirs = set
	}
}

// WithIgnorePatterns adds relative-path patterns to exclude.
func WithIgnorePatterns(patterns []string) ScannerOption {
	return func(o *ScannerOptions) {
		o.IgnorePatterns = patterns
	}
}

// Scanner walks a source tree and parses every supported file.
//
// Description:
//
//	Scan runs in two phases. The walk phase enumerates candidate files:
//	regular files whose extension has a registered parser, outside ignored
//	directories, sorted lexicographically. The parse phase feeds the
//	candidates through a bounded worker pool; results land in
//	per-file slots so worker scheduling cannot affect output order.
//
// Thread Safety:
//
//	Scanner is stateless apart from its options and safe for concurrent
//	use.
type Scanner struct {
	options ScannerOptions
}

// NewScanner creates a Scanner with the given options.
func NewScanner(opts ...ScannerOption) *Scanner {
	options := ScannerOptions{
		Workers:    DefaultWorkers,
		MaxFiles:   DefaultMaxFiles,
		IgnoreDirs: DefaultIgnoreDirs,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Registry == nil {
		options.Registry = ast.DefaultRegistry()
	}
	if options.Workers <= 0 {
		options.Workers = DefaultWorkers
	}
	if options.MaxFiles <= 0 {
		options.MaxFiles = DefaultMaxFiles
	}
	if options.IgnoreDirs == nil {
		options.IgnoreDirs = DefaultIgnoreDirs
	}
	return &Scanner{options: options}
}

// Scan enumerates and parses the tree under root.
//
// Description:
//
//	Walks root once, parses every supported file, and returns the results
//	in lexicographic file order together with non-fatal per-file
//	diagnostics. The go.mod module path is read when present so Go imports
//	can resolve.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	root - Path to the tree to scan. Must exist and be a directory.
//
// Outputs:
//
//	*ScanResult - Parse results, diagnostics, and stats.
//	error - Non-nil for tree-level failures only.
//
// Errors:
//
//	ErrRootNotFound - Root does not exist
//	ErrNotADirectory - Root is not a directory
//	ErrTooManyFiles - Tree exceeds the file limit
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	start := time.Now()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, fmt.Errorf("stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, root)
	}

	files, err := s.enumerate(ctx, absRoot)
	if err != nil {
		return nil, err
	}

	parsed := make([]*ast.ParseResult, len(files))
	diags := make([]*Diagnostic, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.Workers)

	for i, relPath := range files {
		g.Go(func() error {
			diag, result := s.parseFile(gctx, absRoot, relPath)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			parsed[i] = result
			diags[i] = diag
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parsing files: %w", err)
	}

	result := &ScanResult{
		Root:  absRoot,
		Files: files,
	}
	result.Stats.FilesScanned = len(files)

	for i := range files {
		if diags[i] != nil {
			result.Diagnostics = append(result.Diagnostics, diags[i])
			slog.Warn("file skipped or degraded",
				slog.String("file", diags[i].FilePath),
				slog.String("reason", diags[i].Message),
			)
		}
		if parsed[i] != nil {
			result.Results = append(result.Results, parsed[i])
			result.Stats.FilesParsed++
		} else {
			result.Stats.FilesFailed++
		}
	}

	modPath, err := GoModulePath(absRoot)
	if err != nil {
		// A broken go.mod degrades Go resolution, it does not stop the scan.
		result.Diagnostics = append(result.Diagnostics, &Diagnostic{
			FilePath: "go.mod",
			Err:      err,
			Message:  err.Error(),
		})
		slog.Warn("go.mod unreadable, Go imports treated as external",
			slog.String("error", err.Error()),
		)
	}
	result.GoModulePath = modPath

	result.Stats.DurationMilli = time.Since(start).Milliseconds()
	return result, nil
}

// enumerate walks the tree and returns candidate files as sorted relative
// slash paths.
func (s *Scanner) enumerate(ctx context.Context, absRoot string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			// Inaccessible entries are skipped, the tree may still be usable.
			slog.Debug("skipping inaccessible path",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
			return nil
		}

		relPath, relErr := filepath.Rel(absRoot, p)
		if relErr != nil {
			return nil
		}
		relSlash := filepath.ToSlash(relPath)

		if d.IsDir() {
			if p == absRoot {
				return nil
			}
			if s.options.IgnoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			if s.matchesIgnorePattern(relSlash) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are skipped to avoid cycles and double counting.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if _, ok := s.options.Registry.GetByExtension(path.Ext(relSlash)); !ok {
			return nil
		}
		if s.matchesIgnorePattern(relSlash) {
			return nil
		}

		if len(files) >= s.options.MaxFiles {
			return fmt.Errorf("%w: limit %d reached under %s",
				ErrTooManyFiles, s.options.MaxFiles, absRoot)
		}

		files = append(files, relSlash)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The walk is already ordered on most platforms; sorting makes it a
	// guarantee.
	sort.Strings(files)
	return files, nil
}

// matchesIgnorePattern reports whether the relative path matches any
// configured ignore pattern.
func (s *Scanner) matchesIgnorePattern(relSlash string) bool {
	for _, pattern := range s.options.IgnorePatterns {
		if matched, _ := path.Match(pattern, relSlash); matched {
			return true
		}
	}
	return false
}

// parseFile reads and parses one file. Only one of the return values is
// meaningful per failure mode: a hard failure yields a diagnostic and no
// result; a recoverable syntax problem yields both.
func (s *Scanner) parseFile(ctx context.Context, absRoot, relPath string) (*Diagnostic, *ast.ParseResult) {
	absPath := filepath.Join(absRoot, filepath.FromSlash(relPath))

	content, err := os.ReadFile(absPath)
	if err != nil {
		return &Diagnostic{
			FilePath: relPath,
			Err:      err,
			Message:  fmt.Sprintf("read failed: %v", err),
		}, nil
	}

	parser, ok := s.options.Registry.GetByExtension(path.Ext(relPath))
	if !ok {
		return nil, nil
	}

	result, err := parser.Parse(ctx, content, relPath)
	if err != nil {
		return &Diagnostic{
			FilePath: relPath,
			Err:      err,
			Message:  fmt.Sprintf("parse failed: %v", err),
		}, nil
	}

	if result.HasSyntaxErrors {
		// Partial imports are still folded in; dropping the file entirely
		// would hide its dependencies from the graph.
		return &Diagnostic{
			FilePath: relPath,
			Err:      ast.ErrParseFailed,
			Message:  "syntax errors, imports may be incomplete",
		}, result
	}

	return nil, result
}
