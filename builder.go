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

// Package nant resolves declarative file set rules into concrete,
// deterministic file lists. Build files declare glob-based file sets,
// assembly-style reference sets and bundles; the builder loads them,
// resolves them against the filesystem and writes file list manifests.
package nant

import (
	"errors"
	"log"
	"os"

	"shanhu.io/misc/errcode"
	"shanhu.io/text/lexing"
)

// Config provides the configuration to start a builder.
type Config struct {
	Root string // Root directory
	Src  string // Source directory
	Out  string // Output directory

	// Framework is the platform-provided directory consulted last when
	// resolving bare references.
	Framework string

	// PathVar is the search-path environment variable for from-path
	// entries. Empty means PATH.
	PathVar string

	// Strict makes scan warnings and unresolved references fatal.
	Strict bool
}

// Builder resolves and builds file set rules.
type Builder struct {
	env *env
}

// NewBuilder creates a new builder rooted at workDir.
func NewBuilder(workDir string, config *Config) *Builder {
	root := absDir(workDir, config.Root)
	if root == "" {
		root = workDir
	}
	src := absDir(workDir, config.Src)
	if src == "" {
		src = root
	}
	out := absDir(workDir, config.Out)
	if out == "" {
		out = workDir
	}

	env := &env{
		workDir:      workDir,
		srcDir:       src,
		outDir:       out,
		frameworkDir: absDir(workDir, config.Framework),
		pathVar:      config.PathVar,
		strict:       config.Strict,
	}

	return &Builder{env: env}
}

// Src returns the filesystem path to a source file.
func (b *Builder) Src(f string) string { return b.env.src(f) }

// Out returns the filesystem path to an output file.
func (b *Builder) Out(f string) string { return b.env.out(f) }

// FileNames resolves a named file set to its merged, de-duplicated list of
// absolute file paths, merging referenced sets recursively.
func (b *Builder) FileNames(name string) ([]string, []*lexing.Error) {
	_, nodeMap, errs := loadNodes(b.env, []string{name})
	if errs != nil {
		return nil, errs
	}

	list := newFileList()
	if err := b.mergeFileNames(nodeMap, name, list); err != nil {
		return nil, lexing.SingleErr(err)
	}
	return list.files, nil
}

func (b *Builder) mergeFileNames(
	nodes map[string]*buildNode, name string, list *fileList,
) error {
	n := nodes[name]
	if n == nil {
		return errcode.NotFoundf("file set %q not found", name)
	}
	if n.typ == nodeOut && len(n.deps) == 1 {
		// Follow a manifest name back to its producing rule.
		return b.mergeFileNames(nodes, n.deps[0], list)
	}
	r, ok := n.rule.(fileResolver)
	if !ok {
		return errcode.InvalidArgf("%q is not a file set", name)
	}

	files, err := r.fileNames(b.env)
	if err != nil {
		return err
	}
	list.addAll(files)

	// Reference cycles are already rejected at load time.
	for _, ref := range r.refNames() {
		if err := b.mergeFileNames(nodes, ref, list); err != nil {
			return errcode.Annotatef(err, "ref %q", ref)
		}
	}
	return nil
}

// Build builds the given rules, writing file set manifests for rules whose
// inputs changed since the last run.
func (b *Builder) Build(names []string) []*lexing.Error {
	nodes, nodeMap, errs := loadNodes(b.env, names)
	if errs != nil {
		return errs
	}
	cache, err := newBuildCache(b.env.out("CACHE"))
	if err != nil {
		err := errcode.Annotate(err, "create build cache")
		return lexing.SingleErr(err)
	}

	ctx := &buildContext{
		nodes: nodeMap,
		built: make(map[string]string),
		cache: cache,
	}
	return b.buildNodes(ctx, nodes)
}

type buildContext struct {
	nodes map[string]*buildNode
	built map[string]string
	cache *buildCache
}

func (c *buildContext) nodeType(name string) string {
	if n := c.nodes[name]; n != nil {
		return n.typ
	}
	return ""
}

func (c *buildContext) ruleType(name string) string {
	if n := c.nodes[name]; n != nil {
		return n.ruleType
	}
	return ""
}

func (b *Builder) buildNodes(
	ctx *buildContext, nodes []*buildNode,
) []*lexing.Error {
	b.env.nodeType = ctx.nodeType
	b.env.ruleType = ctx.ruleType

	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.typ == nodeSrc {
			log.Printf("%s is a source file", n.name)
			continue
		}
		if _, err := b.buildNode(ctx, n); err != nil {
			return lexing.SingleErr(err)
		}
	}
	return nil
}

func (b *Builder) buildNode(ctx *buildContext, n *buildNode) (
	string, error,
) {
	if digest, ok := ctx.built[n.name]; ok {
		return digest, nil
	}
	digest := ""
	defer func() { ctx.built[n.name] = digest }()

	deps := make(map[string]string)
	for _, dep := range n.deps {
		depNode := ctx.nodes[dep]
		if depNode == nil {
			return "", errcode.InvalidArgf(
				"dep %q for %q not found", dep, n.name,
			)
		}
		d, err := b.buildNode(ctx, depNode)
		if err != nil {
			return "", err
		}
		if d == "" {
			// If any dep is always rebuilding, then this node is also
			// always rebuilding.
			deps = nil
		} else if deps != nil {
			deps[dep] = d
		}
	}

	if n.typ == nodeSrc {
		s, err := newSrcFileStat(b.env, b.env.src(n.name))
		if err != nil {
			return "", errcode.Annotatef(err, "stat source %q", n.name)
		}
		d, err := makeRuleDigest(nodeSrc, n.name, s)
		if err != nil {
			return "", errcode.Annotate(err, "digest source")
		}
		digest = d
		return digest, nil
	}
	if n.typ == nodeOut {
		// An out node's digest is its producing rule's digest.
		if len(n.deps) == 1 {
			digest = deps[n.deps[0]]
		}
		return digest, nil
	}

	if deps != nil { // Not always rebuilding, so calculate the digest
		d, err := ruleActionDigest(n, deps)
		if err != nil {
			return "", errcode.Annotate(err, "digest")
		}
		digest = d
	}

	outputChanged := true
	if digest != "" {
		built, err := ctx.cache.get(digest)
		if err != nil {
			if !errors.Is(err, errNotFoundInCache) {
				return "", errcode.Annotate(err, "check from build cache")
			}
		} else {
			same, err := checkSameBuilt(b.env, built)
			if err != nil {
				return "", errcode.Annotate(err, "check built")
			}
			outputChanged = !same
		}
	}

	if !outputChanged { // Cache hit.
		return digest, nil
	}
	if err := ctx.cache.remove(digest); err != nil {
		return "", errcode.Annotate(err, "invalidate cache")
	}

	if n.rule != nil {
		log.Printf("BUILD %s", n.name)
		opts := &buildOpts{log: os.Stderr}
		if err := n.rule.build(b.env, opts); err != nil {
			return "", errcode.Annotatef(err, "build %s", n.name)
		}

		built, err := newBuilt(b.env, n.ruleMeta)
		if err != nil {
			return "", errcode.Annotate(err, "make built")
		}
		if err := ctx.cache.put(digest, built); err != nil {
			return "", errcode.Annotate(err, "save in build cache")
		}
	}

	return digest, nil
}
