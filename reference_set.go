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
	"path/filepath"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/osutil"
)

// libDirSet enumerates a reference set's library directories. It is a
// nested file set pinned to its parent: the base directory is derived from
// the parent and cannot be set independently.
type libDirSet struct {
	parent   *fileSet
	patterns []string
}

func (l *libDirSet) baseDir() string { return l.parent.baseDir }

// dirs returns the library directories in declared pattern order. Absolute
// patterns are taken literally when the directory exists; relative patterns
// reuse the scanner in directory mode.
func (l *libDirSet) dirs() ([]string, error) {
	var out []string
	for _, p := range l.patterns {
		if filepath.IsAbs(p) {
			info, err := os.Stat(p)
			if err != nil || !info.IsDir() {
				log.Printf("lib dir %q not found", p)
				continue
			}
			out = append(out, p)
			continue
		}

		s := NewDirScanner(l.baseDir())
		s.SetDefaultExcludes(false)
		s.AddInclude(p)
		matches, err := s.ScanDirs()
		if err != nil {
			return nil, errcode.Annotatef(err, "scan lib dirs %q", p)
		}
		for _, rel := range matches {
			out = append(out, filepath.Join(
				l.baseDir(), filepath.FromSlash(rel),
			))
		}
	}
	return out, nil
}

// referenceSet is the runtime of a References rule. On top of the normal
// file set resolution it resolves bare include names through an ordered
// ladder: base directory, library directories, framework directory.
type referenceSet struct {
	*fileSet

	rule    *References
	libDirs *libDirSet
	strict  bool
}

func newReferenceSet(env *env, p string, r *References) (
	*referenceSet, error,
) {
	fs, err := newFileSet(env, p, &r.FileSet)
	if err != nil {
		return nil, err
	}
	return &referenceSet{
		fileSet: fs,
		rule:    r,
		libDirs: &libDirSet{parent: fs, patterns: r.LibDirs},
		strict:  r.Strict || env.strict,
	}, nil
}

// bareNames returns the live include patterns that are plain file names.
// Only these go through the resolution ladder; globs and paths stay with
// the scanner.
func (rs *referenceSet) bareNames() []string {
	var names []string
	for _, e := range rs.rule.Includes {
		if e == nil || !e.live() || e.AsIs || e.FromPath {
			continue
		}
		if isBareName(e.Pattern) {
			names = append(names, e.Pattern)
		}
	}
	return names
}

// resolveLadder resolves one bare name that is absent from the base
// directory. The first library directory hit wins; the framework directory
// is consulted last.
func (rs *referenceSet) resolveLadder(
	env *env, name string, libDirs []string,
) (string, bool, error) {
	for _, dir := range libDirs {
		f := filepath.Join(dir, name)
		ok, err := osutil.IsRegular(f)
		if err != nil {
			return "", false, errcode.Annotatef(err, "check %q", f)
		}
		if ok {
			return f, true, nil
		}
	}

	if env.frameworkDir != "" {
		f := filepath.Join(env.frameworkDir, name)
		ok, err := osutil.IsRegular(f)
		if err != nil {
			return "", false, errcode.Annotatef(err, "check %q", f)
		}
		if ok {
			return f, true, nil
		}
	}

	return "", false, nil
}

// scan resolves the set: the regular file set merge, then the ladder pass
// over bare names that the scanner did not cover.
func (rs *referenceSet) scan(env *env) error {
	if rs.scanned {
		return nil
	}

	files, err := rs.merged()
	if err != nil {
		return err
	}
	list := newFileList()
	list.addAll(files)

	bare := rs.bareNames()
	var libDirs []string
	if len(bare) > 0 {
		dirs, err := rs.libDirs.dirs()
		if err != nil {
			return err
		}
		libDirs = dirs
	}

	for _, name := range bare {
		local := filepath.Join(rs.baseDir, name)
		ok, err := osutil.IsRegular(local)
		if err != nil {
			return errcode.Annotatef(err, "check %q", local)
		}
		if ok {
			continue // Already covered by the scanner match.
		}

		f, found, err := rs.resolveLadder(env, name, libDirs)
		if err != nil {
			return err
		}
		if !found {
			if rs.strict {
				return errcode.NotFoundf(
					"reference %q of %q not resolved", name, rs.name,
				)
			}
			log.Printf("reference %q of %q not resolved", name, rs.name)
			continue
		}
		list.add(f)
	}

	if rs.failOnEmpty && len(list.files) == 0 {
		return errcode.InvalidArgf("file set %q selects no files", rs.name)
	}
	rs.files = list.files
	rs.scanned = true
	return nil
}

func (rs *referenceSet) fileNames(env *env) ([]string, error) {
	if err := rs.scan(env); err != nil {
		return nil, err
	}
	return rs.files, nil
}

// meta shares the embedded file set's dependency list, so a list file is a
// tracked input here too; only the digest is derived from the full rule.
func (rs *referenceSet) meta(env *env) (*buildRuleMeta, error) {
	meta, err := rs.fileSet.meta(env)
	if err != nil {
		return nil, err
	}
	d, err := makeRuleDigest(ruleReferences, rs.name, rs.rule)
	if err != nil {
		return nil, errcode.Annotate(err, "digest")
	}
	meta.digest = d
	return meta, nil
}

func (rs *referenceSet) build(env *env, opts *buildOpts) error {
	files, err := rs.fileNames(env)
	if err != nil {
		return err
	}
	return rs.buildManifest(env, files, opts)
}
