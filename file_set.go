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
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/jsonutil"
)

// fileList is an ordered, de-duplicated path collection. First occurrence
// wins; later duplicates are dropped.
type fileList struct {
	m     map[string]bool
	files []string
}

func newFileList() *fileList {
	return &fileList{m: make(map[string]bool)}
}

func (l *fileList) add(p string) {
	if l.m[p] {
		return
	}
	l.m[p] = true
	l.files = append(l.files, p)
}

func (l *fileList) addAll(ps []string) {
	for _, p := range ps {
		l.add(p)
	}
}

// fileSet is the runtime of a FileSet rule. It aggregates a directory
// scanner, as-is entries, from-path entries and an optional list file into
// one merged, de-duplicated list of absolute file paths.
//
// A fileSet memoizes its scan; concurrent use of one instance must be
// serialized by the caller.
type fileSet struct {
	name string
	rule *FileSet

	// baseDir is absolute. When the rule leaves Dir empty it defaults to
	// the declaring directory under the project source root.
	baseDir string

	scanner  *DirScanner
	asIs     []string
	fromPath []string
	searcher *pathSearcher
	listFile string // absolute; empty when the rule has none

	refs        []string
	failOnEmpty bool

	out string // Output file list.

	scanned bool
	files   []string
}

func fileSetOut(name string) string { return name + ".fileset" }

func newFileSet(env *env, p string, r *FileSet) (*fileSet, error) {
	name := makeRelPath(p, r.Name)

	baseRel := p
	if r.Dir != "" {
		baseRel = makeRelPath(p, r.Dir)
	}
	baseDir := env.src(baseRel)

	scanner := NewDirScanner(baseDir)
	if r.CaseSensitive != nil {
		scanner.SetCaseSensitive(*r.CaseSensitive)
	}
	if r.DefaultExcludes != nil {
		scanner.SetDefaultExcludes(*r.DefaultExcludes)
	}
	scanner.SetStrict(env.strict)
	for _, x := range r.Excludes {
		scanner.AddExclude(x)
	}

	fs := &fileSet{
		name:        name,
		rule:        r,
		baseDir:     baseDir,
		scanner:     scanner,
		searcher:    newPathSearcher(env.pathVar),
		failOnEmpty: r.FailOnEmpty,
		out:         fileSetOut(name),
	}

	// Conditional entries are decided here, before anything reaches the
	// scanner or the searcher.
	for _, e := range r.Includes {
		if e == nil || !e.live() {
			continue
		}
		switch {
		case e.AsIs && e.FromPath:
			return nil, errcode.InvalidArgf(
				"entry %q is both as-is and from-path", e.Pattern,
			)
		case e.AsIs:
			fs.asIs = append(fs.asIs, e.Pattern)
		case e.FromPath:
			fs.fromPath = append(fs.fromPath, e.Pattern)
		default:
			scanner.AddInclude(e.Pattern)
		}
	}

	if r.ListFile != "" {
		fs.listFile = filepath.Join(baseDir, filepath.FromSlash(r.ListFile))
	}

	for _, ref := range r.Refs {
		fs.refs = append(fs.refs, makeRelPath(p, ref))
	}

	return fs, nil
}

func (fs *fileSet) refNames() []string { return fs.refs }

// merged computes the merged file list in deterministic order: scanner
// matches (sorted) first, then as-is entries, then from-path entries, then
// list-file entries. It does not touch the memo or the emptiness policy.
func (fs *fileSet) merged() ([]string, error) {
	matches, err := fs.scanner.Scan()
	if err != nil {
		return nil, errcode.Annotatef(err, "scan file set %q", fs.name)
	}

	list := newFileList()
	for _, rel := range matches {
		list.add(filepath.Join(fs.baseDir, filepath.FromSlash(rel)))
	}
	list.addAll(fs.asIs)
	list.addAll(fs.searcher.resolve(fs.fromPath))

	if fs.listFile != "" {
		lines, err := readListFile(fs.listFile)
		if err != nil {
			return nil, errcode.Annotatef(
				err, "list file of file set %q", fs.name,
			)
		}
		list.addAll(lines)
	}

	return list.files, nil
}

// scan populates the cached file list. It is safe to call repeatedly; only
// a real scan re-evaluates the emptiness policy.
func (fs *fileSet) scan(env *env) error {
	if fs.scanned {
		return nil
	}
	files, err := fs.merged()
	if err != nil {
		return err
	}
	if fs.failOnEmpty && len(files) == 0 {
		return errcode.InvalidArgf("file set %q selects no files", fs.name)
	}
	fs.files = files
	fs.scanned = true
	return nil
}

// fileNames returns the merged absolute paths, scanning on first access.
func (fs *fileSet) fileNames(env *env) ([]string, error) {
	if err := fs.scan(env); err != nil {
		return nil, err
	}
	return fs.files, nil
}

// clone copies the configuration but not the scan state; the clone must be
// rescanned independently.
func (fs *fileSet) clone() *fileSet {
	return &fileSet{
		name:        fs.name,
		rule:        fs.rule,
		baseDir:     fs.baseDir,
		scanner:     fs.scanner.clone(),
		asIs:        append([]string(nil), fs.asIs...),
		fromPath:    append([]string(nil), fs.fromPath...),
		searcher:    fs.searcher,
		listFile:    fs.listFile,
		refs:        append([]string(nil), fs.refs...),
		failOnEmpty: fs.failOnEmpty,
		out:         fs.out,
	}
}

// readListFile reads a list file into as-is entries, one per non-empty
// line. Failure to open the file is a configuration error, not a skip.
func readListFile(f string) ([]string, error) {
	bs, err := os.ReadFile(f)
	if err != nil {
		return nil, errcode.Annotatef(err, "read list file %q", f)
	}
	var entries []string
	for _, line := range strings.Split(string(bs), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries, nil
}

func (fs *fileSet) meta(env *env) (*buildRuleMeta, error) {
	d, err := makeRuleDigest(ruleFileSet, fs.name, fs.rule)
	if err != nil {
		return nil, errcode.Annotate(err, "digest")
	}

	var deps []string
	deps = append(deps, fs.refs...)
	if fs.rule.ListFile != "" {
		rel, err := filepath.Rel(env.src(), fs.listFile)
		if err == nil && !strings.HasPrefix(rel, "..") {
			deps = append(deps, filepath.ToSlash(rel))
		}
	}

	return &buildRuleMeta{
		name:   fs.name,
		deps:   deps,
		outs:   []string{fs.out},
		digest: d,
	}, nil
}

func referenceFileSet(env *env, name string) (string, error) {
	if t := env.nodeType(name); t == nodeRule {
		switch rt := env.ruleType(name); rt {
		case ruleFileSet, ruleReferences:
			return fileSetOut(name), nil
		default:
			return "", fmt.Errorf("not a file set, but %q", rt)
		}
	} else if t != nodeOut {
		return "", fmt.Errorf("not a file set, but %q", t)
	}
	return name, nil
}

// buildManifest resolves the set, merges referenced manifests and writes
// the sorted manifest to the output directory.
func (fs *fileSet) buildManifest(
	env *env, files []string, opts *buildOpts,
) error {
	m := make(map[string]*fileStat)
	add := func(s *fileStat) {
		if _, ok := m[s.Name]; !ok {
			m[s.Name] = s
		}
	}

	for _, f := range files {
		s, err := newSrcFileStat(env, f)
		if err != nil {
			if errcode.IsNotFound(err) {
				// As-is entries carry no existence guarantee; record the
				// miss and move on.
				log.Printf("file set %q: %s", fs.name, err)
				continue
			}
			return errcode.Annotatef(err, "file stat %q", f)
		}
		add(s)
	}

	for _, ref := range fs.refs {
		out, err := referenceFileSet(env, ref)
		if err != nil {
			return errcode.Annotatef(err, "ref %q", ref)
		}

		var list []*fileStat
		if err := jsonutil.ReadFile(env.out(out), &list); err != nil {
			return errcode.Annotatef(err, "read file set %q", ref)
		}
		for _, entry := range list {
			add(entry)
		}
	}

	list := sortedStats(m)
	out, err := env.prepareOut(fs.out)
	if err != nil {
		return errcode.Annotate(err, "prepare output")
	}
	return jsonutil.WriteFile(out, list)
}

func (fs *fileSet) build(env *env, opts *buildOpts) error {
	files, err := fs.fileNames(env)
	if err != nil {
		return err
	}
	return fs.buildManifest(env, files, opts)
}
