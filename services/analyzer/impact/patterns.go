// Copyright (C) 2026 Layer AI (engineering@layer.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package impact

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// Delimiter separates patterns in the serialized output line. It is part
// of the CI contract and must never appear inside an emitted path.
const Delimiter = ','

// globSuffix turns a directory into a pattern covering it and all
// descendants.
const globSuffix = "/**"

// PatternFor returns the glob pattern covering a directory and everything
// under it. The scan root itself ("." or "") becomes the catch-all "**".
func PatternFor(dir string) string {
	dir = path.Clean(strings.TrimSuffix(dir, "/"))
	if dir == "" || dir == "." {
		return "**"
	}
	return dir + globSuffix
}

// Patterns converts directory paths into the deduplicated, ordered pattern
// list.
//
// Description:
//
//	Each directory is cleaned and exact-deduplicated, then (unless strict)
//	subsumed: a directory covered by an ancestor already in the set is
//	dropped, because the ancestor's pattern matches every file the
//	descendant's would. "." covers everything and collapses the whole set
//	to "**". The survivors are expanded to "dir/**" globs in lexicographic
//	order.
//
// Inputs:
//
//	dirs - Directory paths relative to the scan root. Order is irrelevant.
//	strict - When true, only exact duplicates are removed; ancestor
//	         subsumption is disabled.
//
// Outputs:
//
//	[]string - Ordered glob patterns. Empty input yields an empty slice.
func Patterns(dirs []string, strict bool) []string {
	seen := make(map[string]struct{}, len(dirs))
	cleaned := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		d := path.Clean(strings.TrimSuffix(dir, "/"))
		if d == "" {
			d = "."
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		cleaned = append(cleaned, d)
	}
	sort.Strings(cleaned)

	if !strict {
		if _, hasRoot := seen["."]; hasRoot {
			return []string{"**"}
		}
		cleaned = subsume(cleaned)
	}

	patterns := make([]string, 0, len(cleaned))
	for _, d := range cleaned {
		patterns = append(patterns, PatternFor(d))
	}
	// Sorting directories is not quite sorting patterns: "a" < "a.b" as
	// directories, but "a.b/**" < "a/**" as patterns ('.' sorts before
	// '/'). The contract orders the emitted patterns, so sort those.
	sort.Strings(patterns)
	return patterns
}

// subsume drops every directory that has an ancestor in the set. Input
// must be sorted and deduplicated; output stays sorted.
func subsume(sorted []string) []string {
	kept := make(map[string]struct{}, len(sorted))
	result := make([]string, 0, len(sorted))

	for _, d := range sorted {
		if hasKeptAncestor(kept, d) {
			continue
		}
		kept[d] = struct{}{}
		result = append(result, d)
	}
	return result
}

// hasKeptAncestor walks d's parent chain looking for a kept directory.
func hasKeptAncestor(kept map[string]struct{}, d string) bool {
	for anc := path.Dir(d); anc != "." && anc != "/"; anc = path.Dir(anc) {
		if _, ok := kept[anc]; ok {
			return true
		}
	}
	return false
}

// Serialize joins patterns into the single output line.
//
// Description:
//
//	Joins with the fixed delimiter after verifying no pattern contains it.
//	A delimiter inside a path would split into two bogus patterns on the
//	consuming side, so the collision is fatal and detected before any
//	output is produced.
//
// Outputs:
//
//	string - The comma-joined line. Empty pattern list yields "".
//	error - ErrEncoding when a pattern contains the delimiter.
func Serialize(patterns []string) (string, error) {
	for _, p := range patterns {
		if strings.ContainsRune(p, Delimiter) {
			return "", fmt.Errorf("%w: %q", ErrEncoding, p)
		}
	}
	return strings.Join(patterns, string(Delimiter)), nil
}
