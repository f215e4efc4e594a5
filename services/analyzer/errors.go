// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import "errors"

var (
	// ErrRelativePath is returned when a project root is not absolute.
	ErrRelativePath = errors.New("project root must be an absolute path")

	// ErrPathTraversal is returned when a project root contains ".." or
	// resolves outside the allowed roots.
	ErrPathTraversal = errors.New("project root failed path validation")

	// ErrBuildInProgress is returned when a build for the same project
	// root is already running.
	ErrBuildInProgress = errors.New("a build for this project root is already in progress")

	// ErrBuildTimeout is returned when a build exceeds MaxBuildDuration.
	ErrBuildTimeout = errors.New("graph build timed out")

	// ErrGraphNotFound is returned when no cached graph matches the
	// requested ID.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrGraphExpired is returned when the cached graph's TTL has passed.
	ErrGraphExpired = errors.New("graph has expired, rebuild it")

	// ErrNoGraphReference is returned when an analyze request names
	// neither a graph ID nor a project root.
	ErrNoGraphReference = errors.New("request needs graph_id or project_root")
)
