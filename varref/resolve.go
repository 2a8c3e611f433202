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

// Package varref implements the C5 variable-reference resolver: the
// $VAR(...) operand of an action tree (§4.5). A reference is a
// '/'-separated path expression, walked component by component
// starting at the path of the node the reference is embedded in:
// ".." steps to the parent (stepping past a tag value in one move,
// the way cstore's VarRef::process_ref does), "." is a no-op, a plain
// component descends one level (re-using the original path's tag
// value when the current template position is a tag node, so a
// sideways reference stays within the same tag instance), "@" denotes
// "the value at this position" (the node's own bound value when still
// within the original path, the evaluation-time "at" string for a
// true self-reference), and "@@" denotes "every value at this
// position" (every tag-value child for a tag node, every leaf value
// for a multi node).
package varref

import (
	"strings"

	"github.com/netconfd/confd/cpath"
	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/store"
	"github.com/netconfd/confd/validate"
)

// Resolver implements validate.Evaluator over a schema registry and a
// layered store.
type Resolver struct {
	Registry *schema.Registry
	Store    *store.Store
}

// New builds a Resolver.
func New(reg *schema.Registry, st *store.Store) *Resolver {
	return &Resolver{Registry: reg, Store: st}
}

// selector distinguishes the trailing token of a reference.
type selector int

const (
	selectOne selector = iota
	selectAll
)

// target is the result of walking a reference string relative to the
// node at origPath: the path to look up in the store, and whether the
// caller wants one value or the full set at that path.
type target struct {
	path []string
	sel  selector
	// self is true when the reference collapsed to exactly origPath, so
	// a trailing "@" means "the value currently being evaluated" (ctx.At)
	// rather than a value already committed to the store.
	self bool
}

// walkRef implements process_ref's iterative core: it threads pcomps
// through the token list, consulting the schema registry at each step
// to tell a tag-value position from an ordinary interior node.
func (r *Resolver) walkRef(origPath []string, ref string) target {
	pcomps := cpath.Copy(origPath)

	var toks []string
	for _, t := range strings.Split(ref, "/") {
		if t != "" {
			toks = append(toks, t)
		}
	}

	for i, tok := range toks {
		last := i == len(toks)-1
		atOrig := len(pcomps) <= len(origPath) && cpath.Equal(pcomps, origPath[:len(pcomps)])

		switch tok {
		case ".":
			// no-op

		case "..":
			if len(pcomps) == 0 {
				continue
			}
			pcomps = pcomps[:len(pcomps)-1]
			if r.atTagValue(pcomps) && len(pcomps) > 0 {
				pcomps = pcomps[:len(pcomps)-1]
			}

		case "@":
			if last {
				return target{path: cpath.Copy(pcomps), sel: selectOne, self: atOrig && len(pcomps) == len(origPath)}
			}
			if atOrig && len(pcomps) < len(origPath) {
				pcomps = cpath.CopyAppend(pcomps, origPath[len(pcomps)])
			}

		case "@@":
			if last {
				return target{path: cpath.Copy(pcomps), sel: selectAll}
			}
			if atOrig && len(pcomps) < len(origPath) {
				pcomps = cpath.CopyAppend(pcomps, origPath[len(pcomps)])
			}

		default:
			if r.atTagNode(pcomps) && atOrig && len(pcomps) < len(origPath) {
				// Stepping sideways from within a tag node: stay under
				// the original path's tag value before descending.
				pcomps = cpath.CopyAppend(pcomps, origPath[len(pcomps)])
			}
			pcomps = cpath.CopyAppend(pcomps, tok)
		}
	}

	return target{path: cpath.Copy(pcomps), sel: selectOne}
}

func (r *Resolver) atTagNode(p []string) bool {
	n := r.Registry.Descendant(p)
	return n != nil && n.IsTag
}

// atTagValue reports whether p names a tag's value slot, i.e. its
// parent template is a tag node.
func (r *Resolver) atTagValue(p []string) bool {
	if len(p) == 0 {
		return false
	}
	return r.atTagNode(p[:len(p)-1])
}

// ResolveOne resolves ref to the single value a scalar comparison
// needs: the first value at the target path (§4.5's "first value
// wins" rule for a non-"@@" reference against a multi-valued leaf).
func (r *Resolver) ResolveOne(view validate.EvalView, curPath []string, ref string) (string, schema.Type, error) {
	t := r.walkRef(curPath, ref)
	layer := layerOf(view)
	typ := r.typeOf(t.path)

	if t.self {
		// A bare "$VAR(@)" self-reference resolves to the value being
		// evaluated, not whatever is already committed at curPath; the
		// caller substitutes it via EvalContext.At before getting here,
		// so a resolver-level lookup only ever sees non-self references.
		return "", typ, errs.New(errs.KindInternal, curPath, "self-reference must be substituted by the caller")
	}

	vals := r.Store.ReadValues(t.path, layer)
	if len(vals) == 0 {
		return "", typ, errs.New(errs.KindInvalidValue, t.path, "referenced node has no value")
	}
	return vals[0], typ, nil
}

// ResolveSet resolves ref to every value at the target path, used for
// "in" comparisons against a multi-valued leaf and for "@@" expansion.
func (r *Resolver) ResolveSet(view validate.EvalView, curPath []string, ref string) ([]validate.ResolvedValue, error) {
	t := r.walkRef(curPath, ref)
	layer := layerOf(view)
	typ := r.typeOf(t.path)

	if r.atTagNode(t.path) {
		names := r.Store.Children(t.path, layer, nil)
		out := make([]validate.ResolvedValue, 0, len(names))
		for _, name := range names {
			out = append(out, validate.ResolvedValue{Path: cpath.CopyAppend(t.path, name), Value: name, Type: schema.TypeText})
		}
		return out, nil
	}

	vals := r.Store.ReadValues(t.path, layer)
	out := make([]validate.ResolvedValue, 0, len(vals))
	for _, v := range vals {
		out = append(out, validate.ResolvedValue{Path: t.path, Value: v, Type: typ})
	}
	return out, nil
}

func (r *Resolver) typeOf(p []string) schema.Type {
	n := r.Registry.Descendant(p)
	if n == nil {
		return schema.TypeText
	}
	return n.Type1
}

func layerOf(view validate.EvalView) store.Layer {
	if view == validate.ViewActive {
		return store.Active
	}
	return store.Working
}
