package nant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"shanhu.io/misc/jsonutil"
)

func newTestEnv(t *testing.T) *env {
	t.Helper()
	src := t.TempDir()
	return &env{
		workDir: src,
		srcDir:  src,
		outDir:  t.TempDir(),
		pathVar: "NANT_TEST_PATH",
	}
}

func writeSrc(t *testing.T, env *env, files ...string) {
	t.Helper()
	for _, f := range files {
		p := env.src(f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0700))
		require.NoError(t, os.WriteFile(p, []byte(f), 0600))
	}
}

func globs(ps ...string) []*Entry {
	var entries []*Entry
	for _, p := range ps {
		entries = append(entries, &Entry{Pattern: p})
	}
	return entries
}

func TestFileSetMerge(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt", "b.log", "sub/c.txt", "sub/CVS/entry")

	rule := &FileSet{
		Name:     "docs",
		Includes: globs("**/*.txt"),
	}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)

	files, err := fs.fileNames(env)
	require.NoError(t, err)

	want := []string{env.src("a.txt"), env.src("sub/c.txt")}
	assert.Equal(t, want, files)
}

func TestFileSetAsIsOrderAndDedup(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt", "b.txt")

	rule := &FileSet{
		Name: "mixed",
		Includes: []*Entry{
			{Pattern: "*.txt"},
			// Duplicates a scanner match; must appear exactly once.
			{Pattern: env.src("a.txt"), AsIs: true},
			{Pattern: "/opt/ghost.dll", AsIs: true},
		},
	}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)

	files, err := fs.fileNames(env)
	require.NoError(t, err)

	// Scanner matches first (sorted), then as-is in declaration order.
	// The as-is ghost entry survives without any existence check.
	want := []string{
		env.src("a.txt"),
		env.src("b.txt"),
		"/opt/ghost.dll",
	}
	assert.Equal(t, want, files)
}

func TestFileSetConditionalEntries(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt", "b.log")

	no := false
	rule := &FileSet{
		Name: "cond",
		Includes: []*Entry{
			{Pattern: "*.txt"},
			{Pattern: "*.log", If: &no},
			{Pattern: "*.log", Unless: true},
		},
	}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)

	files, err := fs.fileNames(env)
	require.NoError(t, err)
	assert.Equal(t, []string{env.src("a.txt")}, files)
}

func TestFileSetFromPath(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt")

	tools := t.TempDir()
	tool := filepath.Join(tools, "tool.exe")
	require.NoError(t, os.WriteFile(tool, []byte("x"), 0600))
	t.Setenv("NANT_TEST_PATH", tools)

	rule := &FileSet{
		Name: "tools",
		Includes: []*Entry{
			{Pattern: "*.txt"},
			{Pattern: "tool.exe", FromPath: true},
			{Pattern: "missing.exe", FromPath: true},
		},
	}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)

	files, err := fs.fileNames(env)
	require.NoError(t, err)
	assert.Equal(t, []string{env.src("a.txt"), tool}, files)
}

func TestFileSetListFile(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt")
	require.NoError(t, os.WriteFile(
		env.src("refs.txt"), []byte("x.dll\ny.dll\n"), 0600,
	))

	rule := &FileSet{
		Name:     "listed",
		Includes: globs("a.txt"),
		ListFile: "refs.txt",
	}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)

	files, err := fs.fileNames(env)
	require.NoError(t, err)

	// The trailing blank line never becomes an entry.
	assert.Equal(t, []string{env.src("a.txt"), "x.dll", "y.dll"}, files)
}

func TestFileSetListFileMissing(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt")

	rule := &FileSet{
		Name:     "broken",
		Includes: globs("a.txt"),
		ListFile: "nope.txt",
	}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)

	_, err = fs.fileNames(env)
	require.Error(t, err)
}

func TestFileSetFailOnEmpty(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt")

	rule := &FileSet{
		Name:        "empty",
		Includes:    globs("*.nothing"),
		FailOnEmpty: true,
	}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)
	_, err = fs.fileNames(env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selects no files")

	rule2 := &FileSet{
		Name:     "empty-ok",
		Includes: globs("*.nothing"),
	}
	fs2, err := newFileSet(env, "", rule2)
	require.NoError(t, err)
	files, err := fs2.fileNames(env)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileSetScanMemoized(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt")

	rule := &FileSet{Name: "memo", Includes: globs("*.txt")}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)

	first, err := fs.fileNames(env)
	require.NoError(t, err)

	// A file added after the first scan is invisible until a fresh
	// instance rescans.
	writeSrc(t, env, "late.txt")
	second, err := fs.fileNames(env)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	fresh := fs.clone()
	files, err := fresh.fileNames(env)
	require.NoError(t, err)
	assert.Equal(t, []string{env.src("a.txt"), env.src("late.txt")}, files)
}

func TestFileSetCloneIndependent(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt")

	rule := &FileSet{Name: "orig", Includes: globs("*.txt")}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)
	_, err = fs.fileNames(env)
	require.NoError(t, err)

	c := fs.clone()
	assert.False(t, c.scanned)
	assert.Nil(t, c.files)

	// Mutating the clone's scanner must not leak into the original.
	c.scanner.AddExclude("*.txt")
	files, err := c.fileNames(env)
	require.NoError(t, err)
	assert.Empty(t, files)

	files, err = fs.fileNames(env)
	require.NoError(t, err)
	assert.Equal(t, []string{env.src("a.txt")}, files)
}

func TestFileSetBaseDir(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "sub/a.txt", "top.txt")

	rule := &FileSet{
		Name:     "subset",
		Dir:      "sub",
		Includes: globs("**"),
	}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)

	files, err := fs.fileNames(env)
	require.NoError(t, err)
	assert.Equal(t, []string{env.src("sub/a.txt")}, files)
}

func TestFileSetBuildManifest(t *testing.T) {
	env := newTestEnv(t)
	writeSrc(t, env, "a.txt", "b.txt")
	env.nodeType = func(string) string { return "" }
	env.ruleType = func(string) string { return "" }

	rule := &FileSet{Name: "man", Includes: globs("*.txt")}
	fs, err := newFileSet(env, "", rule)
	require.NoError(t, err)
	require.NoError(t, fs.build(env, &buildOpts{log: os.Stderr}))

	var list []*fileStat
	require.NoError(t, jsonutil.ReadFile(env.out("man.fileset"), &list))
	require.Len(t, list, 2)
	assert.Equal(t, env.src("a.txt"), list[0].Name)
	assert.Equal(t, env.src("b.txt"), list[1].Name)
	for _, s := range list {
		assert.Equal(t, fileTypeSrc, s.Type)
		assert.NotZero(t, s.Size)
	}
}
