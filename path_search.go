package nant

import (
	"log"
	"os"
	"path/filepath"

	"shanhu.io/misc/osutil"
)

const defaultPathVar = "PATH"

// pathSearcher resolves literal file names against the ordered directory
// list of a search-path environment variable. The environment is re-read on
// every call so late changes are picked up.
type pathSearcher struct {
	pathVar string
}

func newPathSearcher(pathVar string) *pathSearcher {
	if pathVar == "" {
		pathVar = defaultPathVar
	}
	return &pathSearcher{pathVar: pathVar}
}

// resolve returns the absolute path of the first directory on the search
// path containing each name, in input order. Names found in no directory
// are logged and dropped; a sparse environment is not an error.
func (s *pathSearcher) resolve(names []string) []string {
	dirs := filepath.SplitList(os.Getenv(s.pathVar))

	var found []string
	for _, name := range names {
		p, ok := searchDirs(dirs, name)
		if !ok {
			log.Printf("%q not found on %s", name, s.pathVar)
			continue
		}
		found = append(found, p)
	}
	return found
}

func searchDirs(dirs []string, name string) (string, bool) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		f := filepath.Join(dir, name)
		ok, err := osutil.IsRegular(f)
		if err != nil || !ok {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		return abs, true
	}
	return "", false
}
