// Copyright 2024 The Confd Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schema

import (
	"strings"
	"sync"

	"github.com/derekparker/trie"
	"github.com/golang/glog"

	"github.com/netconfd/confd/cpath"
)

// Source is the external collaborator that parses the on-disk template
// DSL (§1, §6 "Template layout") and exposes the root of the resulting
// schema tree. The core never parses node.def files itself.
type Source interface {
	// Root returns the template node for the root of the tree ([]
	// path).
	Root() *Node
}

// TagValue is recorded for each tag component consumed while resolving
// a path, so that callers (the validator, the variable-reference
// resolver) can tell which components were schema-fixed names and
// which were user-supplied tag values.
type TagValue struct {
	Index int    // position in the path
	Value string // the component itself
}

// Resolution is the result of walking a path against the template
// tree, as described in §4.3.
type Resolution struct {
	Node *Node
	// TerminatesAtValue is true when the last component consumed was a
	// tag value. A leaf's value is not a path component here: a path
	// that continues past a leaf node does not resolve, so leaf values
	// never set this flag.
	TerminatesAtValue bool
	TagValues         []TagValue
}

// Registry caches template lookups by escaped path string, and indexes
// every path that has resolved through Parse in a prefix trie, so that
// PrefixSearch lists the cached paths under a prefix in O(prefix
// length) instead of re-walking the schema tree.
type Registry struct {
	src Source

	mu    sync.RWMutex
	cache map[string]*Resolution
	index *trie.Trie
}

// NewRegistry builds a Registry over src.
func NewRegistry(src Source) *Registry {
	return &Registry{
		src:   src,
		cache: map[string]*Resolution{},
		index: trie.New(),
	}
}

func cacheKey(p []string) string {
	escaped := make([]string, len(p))
	for i, c := range p {
		escaped[i] = cpath.Escape(c)
	}
	return strings.Join(escaped, "/")
}

// Parse resolves the schema node for path p, per §4.3: walk from root,
// at each step consuming one component; prefer a literal child, fall
// back to the tag-child template (recording the component as a tag
// value) when the current node is a tag node. Returns nil if the path
// does not resolve.
func (r *Registry) Parse(p []string) *Resolution {
	key := cacheKey(p)

	r.mu.RLock()
	if res, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return res
	}
	r.mu.RUnlock()

	res := r.walk(p)

	r.mu.Lock()
	r.cache[key] = res
	if res != nil {
		r.index.Add(key, res)
	}
	r.mu.Unlock()

	return res
}

func (r *Registry) walk(p []string) *Resolution {
	cur := r.src.Root()
	res := &Resolution{}

	for i, comp := range p {
		if cur == nil {
			return nil
		}
		if child := cur.Child(comp); child != nil {
			cur = child
			continue
		}
		if cur.IsTag && cur.TagChild != nil {
			res.TagValues = append(res.TagValues, TagValue{Index: i, Value: comp})
			cur = cur.TagChild
			continue
		}
		glog.V(3).Infof("schema: path %s does not resolve at component %q", cpath.String(p), comp)
		return nil
	}

	if cur == nil {
		return nil
	}
	res.Node = cur

	// A path terminates at a value when the last component consumed
	// was a tag value (we just walked into a TagChild on the last
	// iteration). A component after a leaf has no child or tag template
	// to resolve to, so the loop above has already returned nil for a
	// path that carries a leaf's value.
	if len(res.TagValues) > 0 && res.TagValues[len(res.TagValues)-1].Index == len(p)-1 {
		res.TerminatesAtValue = true
	}
	if !cur.IsTag && (!cur.IsMulti && !cur.IsTypeless()) {
		// single-value leaf node: its value is passed separately from
		// the path, so there is nothing to record here.
	}

	return res
}

// PrefixSearch returns every cached, resolvable path (as escaped
// strings) under prefix p, used for tag-value/completion enumeration.
func (r *Registry) PrefixSearch(p []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.PrefixSearch(cacheKey(p))
}

// Descendant is a convenience wrapper returning just the template node
// for p, or nil.
func (r *Registry) Descendant(p []string) *Node {
	res := r.Parse(p)
	if res == nil {
		return nil
	}
	return res.Node
}
