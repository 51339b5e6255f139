// Copyright (C) 2022  Shanhu Tech Inc.
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, either version 3 of the License, or (at your
// option) any later version.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
// for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package nant

import (
	"strings"
)

// matchAll is the effective include pattern when a scanner has no include
// patterns configured: every file at any depth.
const matchAll = "**"

// matchPattern reports whether a slash-separated, base-relative path matches
// a glob pattern. The match is anchored: the whole path must match, not a
// substring. Within a segment, '*' matches any run of characters and '?'
// matches exactly one; a full "**" segment matches zero or more entire path
// segments. An empty pattern matches only an empty path.
//
// Matching is byte-wise: '?' matches exactly one byte, so a multi-byte
// character needs one '?' per byte, and case folding covers ASCII-mapped
// cases only.
func matchPattern(pattern, p string, caseSensitive bool) bool {
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
		p = strings.ToLower(p)
	}
	if pattern == "" {
		return p == ""
	}
	return matchSegments(splitSegments(pattern), splitSegments(p))
}

func splitSegments(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// matchSegments matches pattern segments against path segments. A "**"
// pattern segment tries every possible consumption count, shortest first,
// and succeeds on the first that lets the remainder match.
func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == matchAll {
			pat = pat[1:]
			if len(pat) == 0 {
				return true // Trailing "**" swallows everything beneath.
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pat, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if !matchSegment(pat[0], segs[0]) {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}

// matchSegment matches '*' and '?' wildcards within a single path segment,
// using iterative greedy matching with backtracking on the last star.
func matchSegment(pattern, seg string) bool {
	pIdx, sIdx := 0, 0
	star, starSeg := -1, 0

	for sIdx < len(seg) {
		if pIdx < len(pattern) &&
			(pattern[pIdx] == '?' || pattern[pIdx] == seg[sIdx]) {
			pIdx++
			sIdx++
			continue
		}
		if pIdx < len(pattern) && pattern[pIdx] == '*' {
			star = pIdx
			pIdx++
			starSeg = sIdx
			continue
		}
		if star >= 0 {
			// Mismatch after a star: let the star consume one more
			// character and retry from the token after it.
			pIdx = star + 1
			starSeg++
			sIdx = starSeg
			continue
		}
		return false
	}

	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}
	return pIdx == len(pattern)
}

// isBareName reports whether a pattern is a plain file name: no wildcard
// characters and no directory separator. Only bare names go through the
// reference resolution ladder.
func isBareName(pattern string) bool {
	if pattern == "" {
		return false
	}
	return !strings.ContainsAny(pattern, "*?/")
}
