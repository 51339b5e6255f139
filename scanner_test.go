package nant

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"shanhu.io/misc/errcode"
)

func makeTestTree(t *testing.T, files []string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			t.Fatalf("make dir for %q: %s", f, err)
		}
		if err := os.WriteFile(p, []byte(f), 0600); err != nil {
			t.Fatalf("write %q: %s", f, err)
		}
	}
	return dir
}

func TestDirScanner(t *testing.T) {
	dir := makeTestTree(t, []string{
		"a.txt",
		"b.log",
		"sub/c.txt",
		"sub/CVS/entry",
	})

	s := NewDirScanner(dir)
	s.AddInclude("**/*.txt")

	got, err := s.Scan()
	if err != nil {
		t.Fatalf("scan: %s", err)
	}
	want := []string{"a.txt", "sub/c.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scan got %q, want %q", got, want)
	}
}

func TestDirScannerNoIncludes(t *testing.T) {
	dir := makeTestTree(t, []string{"a.txt", "sub/b.log"})

	// No include patterns means everything at any depth.
	s := NewDirScanner(dir)
	got, err := s.Scan()
	if err != nil {
		t.Fatalf("scan: %s", err)
	}
	want := []string{"a.txt", "sub/b.log"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scan got %q, want %q", got, want)
	}
}

func TestDirScannerExcludeWins(t *testing.T) {
	dir := makeTestTree(t, []string{"a.txt", "b.txt"})

	s := NewDirScanner(dir)
	// Declaration order does not matter; any exclude match vetoes.
	s.AddExclude("b.*")
	s.AddInclude("**/*.txt")

	got, err := s.Scan()
	if err != nil {
		t.Fatalf("scan: %s", err)
	}
	want := []string{"a.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scan got %q, want %q", got, want)
	}
}

func TestDirScannerDefaultExcludesOff(t *testing.T) {
	dir := makeTestTree(t, []string{"a.txt", "CVS/entry.txt"})

	s := NewDirScanner(dir)
	s.AddInclude("**/*.txt")
	s.SetDefaultExcludes(false)

	got, err := s.Scan()
	if err != nil {
		t.Fatalf("scan: %s", err)
	}
	want := []string{"CVS/entry.txt", "a.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scan got %q, want %q", got, want)
	}
}

func TestDirScannerIdempotent(t *testing.T) {
	dir := makeTestTree(t, []string{"a.txt", "b.txt"})

	s := NewDirScanner(dir)
	s.AddInclude("*.txt")

	first, err := s.Scan()
	if err != nil {
		t.Fatalf("first scan: %s", err)
	}
	second, err := s.Scan()
	if err != nil {
		t.Fatalf("second scan: %s", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("scans differ: %q vs %q", first, second)
	}
}

func TestDirScannerInvalidation(t *testing.T) {
	dir := makeTestTree(t, []string{"a.txt", "b.log"})

	s := NewDirScanner(dir)
	s.AddInclude("*.txt")
	got, err := s.Scan()
	if err != nil {
		t.Fatalf("scan: %s", err)
	}
	if want := []string{"a.txt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("scan got %q, want %q", got, want)
	}

	// Adding a pattern invalidates the cached result.
	s.AddInclude("*.log")
	got, err = s.Scan()
	if err != nil {
		t.Fatalf("rescan: %s", err)
	}
	if want := []string{"a.txt", "b.log"}; !reflect.DeepEqual(got, want) {
		t.Errorf("rescan got %q, want %q", got, want)
	}
}

func TestDirScannerSetStrictInvalidates(t *testing.T) {
	dir := makeTestTree(t, []string{"a.txt"})

	s := NewDirScanner(dir)
	s.AddInclude("*.txt")
	if _, err := s.Scan(); err != nil {
		t.Fatalf("scan: %s", err)
	}

	// A strictness change drops the cached result, so the rescan runs
	// under the new policy and sees the new file.
	s.SetStrict(true)
	if err := os.WriteFile(
		filepath.Join(dir, "b.txt"), []byte("b"), 0600,
	); err != nil {
		t.Fatalf("write: %s", err)
	}
	got, err := s.Scan()
	if err != nil {
		t.Fatalf("rescan: %s", err)
	}
	want := []string{"a.txt", "b.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rescan got %q, want %q", got, want)
	}
}

func TestDirScannerMissingBase(t *testing.T) {
	s := NewDirScanner(filepath.Join(t.TempDir(), "nope"))
	if _, err := s.Scan(); !errcode.IsNotFound(err) {
		t.Errorf("scan of missing base got %v, want not-found", err)
	}
}

func TestDirScannerCaseInsensitive(t *testing.T) {
	dir := makeTestTree(t, []string{"Readme.TXT"})

	s := NewDirScanner(dir)
	s.AddInclude("**/*.txt")
	got, err := s.Scan()
	if err != nil {
		t.Fatalf("scan: %s", err)
	}
	if len(got) != 0 {
		t.Errorf("case-sensitive scan got %q, want none", got)
	}

	s.SetCaseSensitive(false)
	got, err = s.Scan()
	if err != nil {
		t.Fatalf("rescan: %s", err)
	}
	if want := []string{"Readme.TXT"}; !reflect.DeepEqual(got, want) {
		t.Errorf("case-insensitive scan got %q, want %q", got, want)
	}
}

func TestDirScannerScanDirs(t *testing.T) {
	dir := makeTestTree(t, []string{
		"lib/one/x.lib",
		"lib/two/y.lib",
		"src/z.go",
	})

	s := NewDirScanner(dir)
	s.AddInclude("lib/*")
	got, err := s.ScanDirs()
	if err != nil {
		t.Fatalf("scan dirs: %s", err)
	}
	want := []string{"lib/one", "lib/two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scan dirs got %q, want %q", got, want)
	}
}

func TestDirScannerSymlinkCycle(t *testing.T) {
	dir := makeTestTree(t, []string{"sub/a.txt"})
	// A link back to the root would loop forever without the visited set.
	link := filepath.Join(dir, "sub", "loop")
	if err := os.Symlink(dir, link); err != nil {
		t.Skipf("symlink not supported: %s", err)
	}

	s := NewDirScanner(dir)
	s.AddInclude("**/*.txt")
	got, err := s.Scan()
	if err != nil {
		t.Fatalf("scan: %s", err)
	}
	want := []string{"sub/a.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scan got %q, want %q", got, want)
	}
}
