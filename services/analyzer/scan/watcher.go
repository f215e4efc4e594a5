// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/layerai/impactgate/services/analyzer/ast"
)

// Change represents one file system change relevant to the analysis.
type Change struct {
	// Path is the absolute path to the changed file.
	Path string

	// Op is the type of change.
	Op ChangeOp

	// Time is when the change was detected.
	Time time.Time
}

// ChangeOp represents the type of file operation.
type ChangeOp int

const (
	// ChangeOpCreate indicates a file was created.
	ChangeOpCreate ChangeOp = iota

	// ChangeOpWrite indicates a file was modified.
	ChangeOpWrite

	// ChangeOpRemove indicates a file was deleted.
	ChangeOpRemove

	// ChangeOpRename indicates a file was renamed.
	ChangeOpRename
)

// String returns the string representation of the operation.
func (op ChangeOp) String() string {
	switch op {
	case ChangeOpCreate:
		return "create"
	case ChangeOpWrite:
		return "write"
	case ChangeOpRemove:
		return "remove"
	case ChangeOpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with a debounced batch of changes.
type ChangeHandler func(changes []Change)

// Default watcher configuration.
const (
	// DefaultDebounceWindow is how long to wait for more changes before
	// invoking the handler. Re-analysis is a full scan, so the window is
	// generous.
	DefaultDebounceWindow = 500 * time.Millisecond

	// DefaultChangeBuffer is the size of the change channel.
	DefaultChangeBuffer = 1000
)

// WatcherOptions configures the Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for more changes before
	// triggering the handler.
	DebounceWindow time.Duration

	// BufferSize is the size of the change buffer channel.
	BufferSize int

	// IgnoreDirs are directory names never watched.
	IgnoreDirs map[string]bool

	// Extensions restricts file events to these extensions (with dot).
	// Empty means every registered parser extension.
	Extensions []string
}

// WatcherOption is a functional option for configuring the Watcher.
type WatcherOption func(*WatcherOptions)

// WithDebounceWindow sets the debounce window.
func WithDebounceWindow(d time.Duration) WatcherOption {
	return func(o *WatcherOptions) {
		o.DebounceWindow = d
	}
}

// WithWatcherIgnoreDirs replaces the ignored directory names.
func WithWatcherIgnoreDirs(names []string) WatcherOption {
	return func(o *WatcherOptions) {
		set := make(map[string]bool, len(names))
		for _, name := range names {
			set[name] = true
		}
		o.IgnoreDirs = set
	}
}

// WithWatcherExtensions restricts file events to the given extensions.
func WithWatcherExtensions(exts []string) WatcherOption {
	return func(o *WatcherOptions) {
		o.Extensions = exts
	}
}

// Watcher watches a source tree and reports debounced batches of changes.
//
// Description:
//
//	Wraps fsnotify with recursive directory registration, ignore rules,
//	source-extension filtering, and a debounce window so a burst of saves
//	triggers one re-analysis instead of dozens.
//
// Thread Safety:
//
//	Safe for concurrent use. The handler is called from a single
//	goroutine.
type Watcher struct {
	root       string
	watcher    *fsnotify.Watcher
	handler    ChangeHandler
	debounce   time.Duration
	ignoreDirs map[string]bool
	extensions map[string]bool

	changes  chan Change
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a watcher for the given root directory.
//
// Inputs:
//
//	root - Absolute path to the directory to watch.
//	handler - Function called with batched changes after the debounce.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Watcher - Ready-to-use watcher (call Start to begin watching).
//	error - Non-nil if the underlying watcher could not be created.
func NewWatcher(root string, handler ChangeHandler, opts ...WatcherOption) (*Watcher, error) {
	options := WatcherOptions{
		DebounceWindow: DefaultDebounceWindow,
		BufferSize:     DefaultChangeBuffer,
		IgnoreDirs:     DefaultIgnoreDirs,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.DebounceWindow <= 0 {
		options.DebounceWindow = DefaultDebounceWindow
	}
	if options.BufferSize <= 0 {
		options.BufferSize = DefaultChangeBuffer
	}
	if options.IgnoreDirs == nil {
		options.IgnoreDirs = DefaultIgnoreDirs
	}
	if len(options.Extensions) == 0 {
		options.Extensions = ast.DefaultRegistry().Extensions()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extSet := make(map[string]bool, len(options.Extensions))
	for _, ext := range options.Extensions {
		extSet[ext] = true
	}

	return &Watcher{
		root:       root,
		watcher:    fsWatcher,
		handler:    handler,
		debounce:   options.DebounceWindow,
		ignoreDirs: options.IgnoreDirs,
		extensions: extSet,
		changes:    make(chan Change, options.BufferSize),
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching for file changes.
//
// Description:
//
//	Recursively registers the root and all subdirectories, then runs an
//	event processor and a debouncer until the context is cancelled or
//	Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching returns true if the watcher is currently active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// addRecursive registers a directory and all subdirectories.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.ignoreDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

// relevantFile reports whether a file event should drive re-analysis.
func (w *Watcher) relevantFile(p string) bool {
	slash := filepath.ToSlash(p)
	for _, segment := range strings.Split(slash, "/") {
		if w.ignoreDirs[segment] {
			return false
		}
	}
	return w.extensions[path.Ext(slash)]
}

// processEvents converts fsnotify events into Changes.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// New directories join the watch set immediately so files
			// created inside them are seen.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.ignoreDirs[filepath.Base(event.Name)] {
						if err := w.addRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory",
								slog.String("path", event.Name),
								slog.String("error", err.Error()),
							)
						}
					}
					continue
				}
			}

			if !w.relevantFile(event.Name) {
				continue
			}

			change := Change{
				Path: event.Name,
				Time: time.Now(),
				Op:   convertOp(event.Op),
			}

			select {
			case w.changes <- change:
			default:
				// Buffer full. The debouncer triggers a full re-analysis
				// anyway, so dropping extra events loses nothing.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// convertOp maps fsnotify operations onto ChangeOps.
func convertOp(op fsnotify.Op) ChangeOp {
	switch {
	case op.Has(fsnotify.Create):
		return ChangeOpCreate
	case op.Has(fsnotify.Write):
		return ChangeOpWrite
	case op.Has(fsnotify.Remove):
		return ChangeOpRemove
	case op.Has(fsnotify.Rename):
		return ChangeOpRename
	default:
		return ChangeOpWrite
	}
}

// debounceLoop batches changes and calls the handler when the window closes.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			deduped := dedupeChanges(batch)
			if len(deduped) > 0 && w.handler != nil {
				w.handler(deduped)
			}
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case change := <-w.changes:
			batch = append(batch, change)

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			flush()
		}
	}
}

// dedupeChanges keeps the most recent change per path, preserving first-seen
// order.
func dedupeChanges(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	result := make([]Change, 0, len(changes))

	for _, change := range changes {
		if idx, exists := seen[change.Path]; exists {
			result[idx] = change
		} else {
			seen[change.Path] = len(result)
			result = append(result, change)
		}
	}

	return result
}
