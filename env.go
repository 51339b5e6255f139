package nant

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

type env struct {
	workDir string
	srcDir  string
	outDir  string

	// frameworkDir is the platform-provided directory consulted last when
	// resolving bare references. Empty disables the fallback.
	frameworkDir string

	// pathVar is the search-path environment variable for from-path
	// entries.
	pathVar string

	// strict makes scan warnings and unresolved references fatal.
	strict bool

	// Wired by the builder during a build.
	nodeType func(name string) string
	ruleType func(name string) string
}

func (e *env) src(ps ...string) string { return joinUnder(e.srcDir, ps) }
func (e *env) out(ps ...string) string { return joinUnder(e.outDir, ps) }

func (e *env) prepareOut(ps ...string) (string, error) {
	p := e.out(ps...)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return p, nil
}

func joinUnder(dir string, ps []string) string {
	if len(ps) == 0 {
		return dir
	}
	p := path.Join(ps...)
	return filepath.Join(dir, filepath.FromSlash(p))
}

// makeRelPath makes a path that is under p.
// It cannot escape p.
func makeRelPath(p, f string) string {
	f = path.Clean(path.Join("/", f))
	return strings.TrimPrefix(path.Join("/", p, f), "/")
}

// absDir resolves dir against workDir when it is relative.
func absDir(workDir, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(workDir, dir)
}
