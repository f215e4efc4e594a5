// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command impactgate decides which expensive CI jobs a change affects.
//
// It scans a repository, builds the internal import graph, and emits the
// directory glob patterns whose modification affects each watched target
// (the installable package, the e2e suite). The pattern line on stdout is
// the machine contract consumed by changed-file detection; logs and
// summaries go to stderr only.
//
// # Usage
//
//	impactgate patterns                    # emit the pattern line
//	impactgate check --changed a.py,b.py   # gate on changed files
//	impactgate graph --format stats        # inspect the import graph
//	impactgate watch                       # re-emit on tree changes
//	impactgate serve --port 8080           # local HTTP API
//
// # CI Usage
//
//	PATTERNS=$(impactgate patterns)
//	git diff --name-only origin/main | impactgate check --stdin --exit-code
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/layerai/impactgate/pkg/logging"
	"github.com/layerai/impactgate/services/analyzer/cicd"
	"github.com/layerai/impactgate/services/analyzer/config"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

var (
	// Persistent flags
	repoRoot   string
	configPath string
	logLevel   string
	logDir     string
	verbose    bool
	quiet      bool

	cliLogger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "impactgate",
		Short: "Dependency impact analyzer for CI test gating",
		Long: `impactgate builds a repository's internal import graph and emits the
path patterns whose modification should trigger expensive test jobs.

Standard output carries only machine-read results (the pattern line for
"patterns", the should_run line for "check"). Logs, warnings, and human
summaries always go to standard error.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.ParseLevel(logLevel)
			if verbose {
				level = logging.LevelDebug
			}
			cliLogger = logging.New(logging.Config{
				Level:   level,
				LogDir:  logDir,
				Service: "cli",
				Quiet:   quiet,
			})
			cliLogger.Install()
		},
	}
)

func main() {
	defer closeLogger()
	if err := rootCmd.Execute(); err != nil {
		// Cobra already printed the message to stderr.
		closeLogger()
		os.Exit(cicd.ExitError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoRoot, "root", ".",
		"Repository root to analyze")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default: <root>/"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Also write JSON logs to this directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Debug logging and the stderr summary, TTY or not")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Suppress stderr logging")

	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// fatal reports an error on stderr and exits. Stdout is never touched, so
// a failed run can always be told apart from an empty result.
func fatal(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	closeLogger()
	os.Exit(cicd.ExitError)
}

func closeLogger() {
	if cliLogger != nil {
		cliLogger.Close()
	}
}
