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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/layerai/impactgate/services/analyzer/scan"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var watchDebounce time.Duration

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-emit patterns whenever the source tree changes",
	Long: `Watch the source tree and print a fresh pattern line on stdout after
every debounced batch of file changes. A local development mode: edit a
file, see immediately which targets the change impacts.

The first line is printed before watching starts. Stop with Ctrl-C.

Examples:
  impactgate watch
  impactgate watch --debounce 2s --root ~/code/layer`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", scan.DefaultDebounceWindow,
		"How long to wait for more changes before re-analyzing")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runWatch(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := runPipeline(ctx)
	if err != nil {
		fatal("Analysis failed", err)
	}
	analysis, err := p.analyze(ctx)
	if err != nil {
		fatal("Analysis failed", err)
	}
	fmt.Println(analysis.Line)

	handler := func(changes []scan.Change) {
		if ctx.Err() != nil {
			return
		}
		for _, change := range changes {
			slog.Debug("File changed", "path", change.Path, "op", change.Op.String())
		}
		slog.Info("Re-analyzing", "changes", len(changes))

		p, err := runPipeline(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("Re-analysis failed", "error", err)
			}
			return
		}
		analysis, err := p.analyze(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("Re-analysis failed", "error", err)
			}
			return
		}
		fmt.Println(analysis.Line)
	}

	opts := []scan.WatcherOption{scan.WithDebounceWindow(watchDebounce)}
	if len(p.Config.IgnoreDirs) > 0 {
		opts = append(opts, scan.WithWatcherIgnoreDirs(p.Config.IgnoreDirs))
	}

	watcher, err := scan.NewWatcher(p.Root, handler, opts...)
	if err != nil {
		fatal("Failed to create watcher", err)
	}
	if err := watcher.Start(ctx); err != nil {
		fatal("Failed to start watcher", err)
	}
	defer watcher.Stop()

	slog.Info("Watching for changes", "root", p.Root, "debounce", watchDebounce.String())
	<-ctx.Done()
	slog.Info("Watcher stopped")
}
