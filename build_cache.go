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
	"errors"
	"os"
	"path/filepath"
	"strings"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/jsonutil"
)

var errNotFoundInCache = errors.New("not found in cache")

// buildOutput records what a rule execution produced, for freshness checks
// on later runs.
type buildOutput struct {
	Outs []*fileStat `json:",omitempty"`
}

// buildCache stores build outputs keyed by rule digest, one JSON file per
// digest.
type buildCache struct {
	dir string
}

func newBuildCache(dir string) (*buildCache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errcode.Annotate(err, "make cache dir")
	}
	return &buildCache{dir: dir}, nil
}

// entryFile maps a digest to its cache file. Digests are of the form
// "sha256:<hex>"; the colon is not portable in file names.
func (c *buildCache) entryFile(digest string) string {
	return filepath.Join(c.dir, strings.ReplaceAll(digest, ":", "-"))
}

func (c *buildCache) get(digest string) (*buildOutput, error) {
	if digest == "" {
		return nil, errNotFoundInCache
	}
	f := c.entryFile(digest)
	if _, err := os.Lstat(f); err != nil {
		if os.IsNotExist(err) {
			return nil, errNotFoundInCache
		}
		return nil, err
	}
	out := new(buildOutput)
	if err := jsonutil.ReadFile(f, out); err != nil {
		return nil, errcode.Annotate(err, "read cache entry")
	}
	return out, nil
}

func (c *buildCache) put(digest string, out *buildOutput) error {
	if digest == "" {
		return nil
	}
	return jsonutil.WriteFile(c.entryFile(digest), out)
}

func (c *buildCache) remove(digest string) error {
	if digest == "" {
		return nil
	}
	if err := os.Remove(c.entryFile(digest)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

// newBuilt stats a rule's outputs after a successful build.
func newBuilt(env *env, meta *buildRuleMeta) (*buildOutput, error) {
	out := new(buildOutput)
	for _, o := range meta.outs {
		s, err := newOutFileStat(env, o)
		if err != nil {
			return nil, err
		}
		out.Outs = append(out.Outs, s)
	}
	return out, nil
}

// checkSameBuilt reports whether all recorded outputs are unchanged on
// disk.
func checkSameBuilt(env *env, built *buildOutput) (bool, error) {
	for _, s := range built.Outs {
		same, err := sameFileStat(env, s)
		if err != nil {
			return false, err
		}
		if !same {
			return false, nil
		}
	}
	return true, nil
}
