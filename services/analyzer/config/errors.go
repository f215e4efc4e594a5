// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import "errors"

// Sentinel errors for configuration loading.
var (
	// ErrInvalidConfig indicates the configuration file is malformed or
	// violates a semantic constraint (empty roots, absolute paths, path
	// traversal, delimiter collisions).
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConfigNotFound indicates an explicitly requested configuration
	// file does not exist. The default file being absent is not an error;
	// a --config flag pointing at nothing is.
	ErrConfigNotFound = errors.New("configuration file not found")
)
