// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// GoModulePath reads the module path from the go.mod at root.
//
// Description:
//
//	Uses the official Go module parser. A tree without a go.mod (a pure
//	Python repo, for instance) returns "" with no error; Go imports then
//	resolve as external.
//
// Outputs:
//
//	string - Module path ("example.com/svc"), or "" when absent.
//	error - Non-nil only when a go.mod exists but cannot be read or parsed.
func GoModulePath(root string) (string, error) {
	goModPath := filepath.Join(root, "go.mod")

	content, err := os.ReadFile(goModPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading go.mod: %w", err)
	}

	f, err := modfile.Parse("go.mod", content, nil)
	if err != nil {
		return "", fmt.Errorf("parse go.mod: %w", err)
	}
	if f.Module == nil {
		return "", fmt.Errorf("parse go.mod: missing module directive")
	}

	return f.Module.Mod.Path, nil
}
