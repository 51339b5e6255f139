package nant

import (
	"shanhu.io/misc/errcode"
)

// bundle is the runtime of a Bundle rule. Building a bundle builds its
// dependencies; the bundle itself has no action and no output.
type bundle struct {
	name string
	rule *Bundle
	deps []string
}

func newBundle(env *env, p string, r *Bundle) *bundle {
	name := makeRelPath(p, r.Name)
	var deps []string
	for _, d := range r.Deps {
		deps = append(deps, makeRelPath(p, d))
	}
	return &bundle{name: name, rule: r, deps: deps}
}

func (b *bundle) meta(env *env) (*buildRuleMeta, error) {
	d, err := makeRuleDigest(ruleBundle, b.name, b.rule)
	if err != nil {
		return nil, errcode.Annotate(err, "digest")
	}
	return &buildRuleMeta{
		name:   b.name,
		deps:   b.deps,
		digest: d,
	}, nil
}

func (b *bundle) build(env *env, opts *buildOpts) error { return nil }
