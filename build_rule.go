package nant

import (
	"io"
)

type buildRuleMeta struct {
	name string
	deps []string
	outs []string

	// digest captures all non-dependency input of the rule. An empty
	// string means the rule always needs re-execution.
	digest string
}

type buildOpts struct {
	log io.Writer
}

type buildRule interface {
	// meta returns meta information of a build rule.
	meta(env *env) (*buildRuleMeta, error)

	// build executes the build action.
	build(env *env, opts *buildOpts) error
}

// fileResolver is implemented by rules that resolve to a file list in
// memory, without writing manifests.
type fileResolver interface {
	fileNames(env *env) ([]string, error)
	refNames() []string
}
