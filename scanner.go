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
	"log"
	"os"
	"path"
	"path/filepath"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/strutil"
)

// defaultExcludes are always-on exclude patterns for version control
// metadata and editor backup/swap files. A scanner drops them only when
// default excludes are explicitly disabled.
var defaultExcludes = []string{
	"**/*~",
	"**/#*#",
	"**/.#*",
	"**/%*%",
	"**/*.swp",
	"**/CVS",
	"**/CVS/**",
	"**/.cvsignore",
	"**/SCCS",
	"**/SCCS/**",
	"**/vssver.scc",
	"**/_svn",
	"**/_svn/**",
	"**/.svn",
	"**/.svn/**",
	"**/.git",
	"**/.git/**",
	"**/.gitignore",
	"**/.gitattributes",
	"**/.hg",
	"**/.hg/**",
	"**/.DS_Store",
}

// DirScanner walks a base directory tree and collects the base-relative
// paths of regular files that match at least one include pattern and no
// exclude pattern. When no include pattern is configured the scanner
// includes everything at any depth. Results are sorted, de-duplicated and
// cached; mutating patterns or the base directory invalidates the cache.
//
// A scanner is not safe for concurrent mutation and scanning; callers
// serialize access to a single instance.
type DirScanner struct {
	baseDir string

	includes []string
	excludes []string

	// caseSensitive controls pattern matching; default is case sensitive.
	caseSensitive bool

	// useDefaultExcludes unions defaultExcludes into the exclude set.
	useDefaultExcludes bool

	// strict turns unreadable subdirectories into scan errors instead of
	// logged skips.
	strict bool

	scanned bool
	results []string
}

// NewDirScanner creates an empty scanner with default excludes enabled and
// case-sensitive matching.
func NewDirScanner(baseDir string) *DirScanner {
	return &DirScanner{
		baseDir:            baseDir,
		caseSensitive:      true,
		useDefaultExcludes: true,
	}
}

// SetBaseDir points the scanner at a new base directory and invalidates any
// cached result.
func (s *DirScanner) SetBaseDir(dir string) {
	s.baseDir = dir
	s.invalidate()
}

// BaseDir returns the scanner's base directory.
func (s *DirScanner) BaseDir() string { return s.baseDir }

// AddInclude appends an include pattern.
func (s *DirScanner) AddInclude(pattern string) {
	s.includes = append(s.includes, pattern)
	s.invalidate()
}

// AddExclude appends an exclude pattern.
func (s *DirScanner) AddExclude(pattern string) {
	s.excludes = append(s.excludes, pattern)
	s.invalidate()
}

// SetCaseSensitive sets pattern matching case sensitivity.
func (s *DirScanner) SetCaseSensitive(b bool) {
	s.caseSensitive = b
	s.invalidate()
}

// SetDefaultExcludes enables or disables the built-in exclude patterns.
func (s *DirScanner) SetDefaultExcludes(b bool) {
	s.useDefaultExcludes = b
	s.invalidate()
}

// SetStrict makes unreadable subdirectories fatal.
func (s *DirScanner) SetStrict(b bool) {
	s.strict = b
	s.invalidate()
}

// Includes returns a copy of the include patterns.
func (s *DirScanner) Includes() []string {
	return append([]string(nil), s.includes...)
}

// clone returns a scanner with the same configuration and no scan state.
func (s *DirScanner) clone() *DirScanner {
	return &DirScanner{
		baseDir:            s.baseDir,
		includes:           append([]string(nil), s.includes...),
		excludes:           append([]string(nil), s.excludes...),
		caseSensitive:      s.caseSensitive,
		useDefaultExcludes: s.useDefaultExcludes,
		strict:             s.strict,
	}
}

func (s *DirScanner) invalidate() {
	s.scanned = false
	s.results = nil
}

func (s *DirScanner) included(rel string) bool {
	if len(s.includes) == 0 {
		return matchPattern(matchAll, rel, s.caseSensitive)
	}
	for _, p := range s.includes {
		if matchPattern(p, rel, s.caseSensitive) {
			return true
		}
	}
	return false
}

func (s *DirScanner) excluded(rel string) bool {
	for _, p := range s.excludes {
		if matchPattern(p, rel, s.caseSensitive) {
			return true
		}
	}
	if s.useDefaultExcludes {
		for _, p := range defaultExcludes {
			if matchPattern(p, rel, s.caseSensitive) {
				return true
			}
		}
	}
	return false
}

func (s *DirScanner) matches(rel string) bool {
	return s.included(rel) && !s.excluded(rel)
}

// Scan walks the base directory and returns the sorted base-relative paths
// of matching regular files. The result is cached; repeated calls without
// configuration changes return the identical list.
func (s *DirScanner) Scan() ([]string, error) {
	if s.scanned {
		return s.results, nil
	}
	m, err := s.scanTree(false)
	if err != nil {
		return nil, err
	}
	s.results = strutil.SortedList(m)
	s.scanned = true
	return s.results, nil
}

// ScanDirs is Scan in directory mode: it returns matching directories
// instead of regular files. Used to enumerate library directory sets.
func (s *DirScanner) ScanDirs() ([]string, error) {
	m, err := s.scanTree(true)
	if err != nil {
		return nil, err
	}
	return strutil.SortedList(m), nil
}

func (s *DirScanner) scanTree(dirs bool) (map[string]bool, error) {
	if s.baseDir == "" {
		return nil, errcode.InvalidArgf("scanner has no base directory")
	}
	info, err := os.Stat(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errcode.NotFoundf(
				"base directory %q not found", s.baseDir,
			)
		}
		return nil, errcode.Annotatef(err, "stat base directory %q", s.baseDir)
	}
	if !info.IsDir() {
		return nil, errcode.InvalidArgf("%q is not a directory", s.baseDir)
	}

	w := &treeWalker{
		scanner: s,
		dirs:    dirs,
		visited: make(map[string]bool),
		matched: make(map[string]bool),
	}
	if err := w.enter(s.baseDir); err != nil {
		return nil, err
	}
	if err := w.walk(s.baseDir, ""); err != nil {
		return nil, err
	}
	return w.matched, nil
}

// treeWalker carries the state of a single tree traversal. Symbolic links
// are followed; visited tracks real directory paths so link cycles
// terminate.
type treeWalker struct {
	scanner *DirScanner
	dirs    bool
	visited map[string]bool
	matched map[string]bool
}

// enter marks a directory's real path as visited. It reports an already
// visited directory as a no-op by leaving the caller to check visited.
func (w *treeWalker) enter(dir string) error {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	w.visited[real] = true
	return nil
}

func (w *treeWalker) seen(dir string) (bool, error) {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false, err
	}
	return w.visited[real], nil
}

func (w *treeWalker) walk(dir, rel string) error {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if w.scanner.strict {
			return errcode.Annotatef(err, "read directory %q", dir)
		}
		log.Printf("skip unreadable directory %q: %s", dir, err)
		return nil
	}

	for _, ent := range ents {
		name := ent.Name()
		entRel := path.Join(rel, name)
		entPath := filepath.Join(dir, name)

		isDir := ent.IsDir()
		if ent.Type()&os.ModeSymlink != 0 {
			// Follow the link to classify its target; a broken link is
			// skipped with a warning.
			info, err := os.Stat(entPath)
			if err != nil {
				log.Printf("skip broken link %q: %s", entPath, err)
				continue
			}
			isDir = info.IsDir()
		}

		if !isDir {
			if !w.dirs && w.scanner.matches(entRel) {
				w.matched[entRel] = true
			}
			continue
		}

		if w.dirs && w.scanner.matches(entRel) {
			w.matched[entRel] = true
		}

		seen, err := w.seen(entPath)
		if err != nil {
			if w.scanner.strict {
				return errcode.Annotatef(err, "resolve %q", entPath)
			}
			log.Printf("skip %q: %s", entPath, err)
			continue
		}
		if seen {
			continue
		}
		if err := w.enter(entPath); err != nil {
			log.Printf("skip %q: %s", entPath, err)
			continue
		}
		if err := w.walk(entPath, entRel); err != nil {
			return err
		}
	}
	return nil
}
