// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cicd

import "errors"

// ErrDiffParse indicates the provided content is not a parseable unified
// diff. The gate refuses to guess: an unreadable diff fails the run
// instead of silently gating on nothing.
var ErrDiffParse = errors.New("diff is not parseable")
