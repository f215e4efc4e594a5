// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cicd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// ChangedFilesFromDiff extracts changed file paths from a unified diff.
//
// Description:
//
//	Parses the diff (git diff / git format-patch output) and collects
//	every path that appears on either side of a file diff. Renames and
//	deletions count as changes to both names: a file moved out of an
//	impacted directory still means that directory's content changed.
//	The "a/" and "b/" prefixes git adds are stripped; "/dev/null" (file
//	creation or deletion) is skipped.
//
// Inputs:
//
//	patch - The unified diff content.
//
// Outputs:
//
//	[]string - Sorted, deduplicated relative paths.
//	error - ErrDiffParse when the content is not a parseable diff.
func ChangedFilesFromDiff(patch string) ([]string, error) {
	if strings.TrimSpace(patch) == "" {
		return nil, nil
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiffParse, err)
	}
	if len(fileDiffs) == 0 {
		// The reader treats leading non-diff content as EOF. Non-empty
		// input that produced nothing was not a diff; gating on it
		// would silently skip every test.
		return nil, fmt.Errorf("%w: no file headers found", ErrDiffParse)
	}

	seen := make(map[string]struct{}, len(fileDiffs))
	files := make([]string, 0, len(fileDiffs))

	add := func(name string) {
		if name == "" || name == "/dev/null" {
			return
		}
		name = strings.TrimPrefix(name, "a/")
		name = strings.TrimPrefix(name, "b/")
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		files = append(files, name)
	}

	for _, fd := range fileDiffs {
		add(fd.OrigName)
		add(fd.NewName)
	}

	sort.Strings(files)
	return files, nil
}
