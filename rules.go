package nant

// Rule type names used in BUILD.nant files.
const (
	ruleFileSet    = "fileset"
	ruleReferences = "references"
	ruleBundle     = "bundle"
)

// Entry is one include entry of a file set declaration.
type Entry struct {
	// Pattern is a glob pattern, or a literal name for as-is and from-path
	// entries.
	Pattern string

	// If includes the entry only when true. Unset means true.
	If *bool `json:",omitempty"`
	// Unless drops the entry when true.
	Unless bool `json:",omitempty"`

	// AsIs adds the pattern verbatim, without pattern evaluation or
	// existence checking.
	AsIs bool `json:",omitempty"`
	// FromPath resolves the pattern as a literal name on the search path.
	FromPath bool `json:",omitempty"`
}

func (e *Entry) live() bool {
	return (e.If == nil || *e.If) && !e.Unless
}

// FileSet selects a set of files under a base directory.
type FileSet struct {
	Name string

	// Dir is the base directory, relative to the declaring build file's
	// directory. Empty means that directory itself.
	Dir string `json:",omitempty"`

	// Includes selects files. Entries with no flag are glob patterns
	// matched against the base directory tree.
	Includes []*Entry `json:",omitempty"`

	// Excludes vetoes included files. An exclude match always wins.
	Excludes []string `json:",omitempty"`

	// ListFile names a text file, relative to the base directory, whose
	// non-empty lines become as-is entries.
	ListFile string `json:",omitempty"`

	// Refs merges in other named file sets.
	Refs []string `json:",omitempty"`

	// DefaultExcludes unions the built-in version-control and editor
	// artifact patterns into the excludes. Unset means true.
	DefaultExcludes *bool `json:",omitempty"`

	// CaseSensitive controls pattern matching. Unset means true.
	CaseSensitive *bool `json:",omitempty"`

	// FailOnEmpty makes an empty result a build failure.
	FailOnEmpty bool `json:",omitempty"`
}

// References selects assembly-style references. It is a file set whose bare
// include names (no wildcard, no separator) additionally resolve through an
// ordered ladder: the base directory, each library directory, then the
// framework directory.
type References struct {
	FileSet

	// LibDirs are directory patterns, relative to the base directory,
	// searched in declared order for bare names.
	LibDirs []string `json:",omitempty"`

	// Strict turns an unresolved bare name into an error instead of a
	// logged skip.
	Strict bool `json:",omitempty"`
}

// Bundle is a set of build rules in a bundle. A bundle has no build action;
// it just groups rules together.
type Bundle struct {
	// Name of the rule.
	Name string

	// Other rule names.
	Deps []string
}
