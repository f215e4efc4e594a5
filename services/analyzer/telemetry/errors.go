// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import "errors"

// Sentinel errors for telemetry initialization.
var (
	// ErrNilContext indicates Init was called without a context.
	ErrNilContext = errors.New("context must not be nil")

	// ErrUnknownExporter indicates the configured exporter name is not
	// one of the supported values.
	ErrUnknownExporter = errors.New("unknown exporter")
)
