// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scan enumerates and parses the source tree. The scanner walks the
// root once, filters by registered parser extensions and ignore rules, parses
// files in a bounded worker pool, and returns parse results in a
// deterministic order. Failures that affect a single file become
// non-fatal diagnostics; failures that affect the whole tree (missing root,
// runaway file counts) are errors.
package scan

import "errors"

// Sentinel errors for scan operations.
var (
	// ErrRootNotFound indicates the scan root does not exist.
	ErrRootNotFound = errors.New("scan root not found")

	// ErrNotADirectory indicates the scan root is not a directory.
	ErrNotADirectory = errors.New("scan root is not a directory")

	// ErrTooManyFiles indicates the tree exceeded the file limit, which
	// usually means the scanner was pointed at the wrong directory.
	ErrTooManyFiles = errors.New("too many source files")
)
