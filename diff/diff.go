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

// Package diff implements the C7 commit-tree builder: a side-by-side
// comparison of the active and working layers of a store.Store, used
// both by the commit engine (package commit) to decide what to run and
// by the output facade (package query) to answer changed/added/deleted
// queries.
package diff

import (
	"github.com/netconfd/confd/cpath"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/store"
)

// Status is the four-valued commit-tree status of §4.7.
type Status int

const (
	StatusUnchanged Status = iota
	StatusAdded
	StatusDeleted
	StatusChanged
)

func (s Status) String() string {
	switch s {
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusChanged:
		return "changed"
	default:
		return "unchanged"
	}
}

// ValueDiff is one value of a multi-leaf together with its status and
// the index it held on each side, used to distinguish a reordering
// (changed) from an untouched value at the same index (unchanged).
type ValueDiff struct {
	Value        string
	Status       Status
	ActiveIndex  int // -1 if not present in active
	WorkingIndex int // -1 if not present in working
}

// CommentDiff carries the independent four-valued diff of a node's
// comment text, per §4.7 "Comments diff independently".
type CommentDiff struct {
	Active, Working string
	Status          Status
}

// Node is one node of the commit tree.
type Node struct {
	Path     []string
	Name     string
	Status   Status
	Template *schema.Node

	// InActive/InWorking report whether the node is present (and not
	// hidden by deactivation) on each side; used by the commit engine
	// to tell "deleted" from "never existed".
	InActive, InWorking bool

	// Values holds the per-value diff for a leaf node (single- or
	// multi-value); empty for typeless/tag nodes.
	Values []ValueDiff

	Comment CommentDiff

	Children []*Node
}

// AnyDescendantChanged reports whether n or any node beneath it is
// non-unchanged, the test used to decide whether a priority subtree's
// per-subtree execution (§4.8 step 1) can be skipped entirely.
func (n *Node) AnyDescendantChanged() bool {
	if n.Status != StatusUnchanged {
		return true
	}
	for _, c := range n.Children {
		if c.AnyDescendantChanged() {
			return true
		}
	}
	return false
}

// Builder constructs commit trees over a store and the schema it is
// edited against.
type Builder struct {
	Store    *store.Store
	Registry *schema.Registry
}

// New builds a Builder.
func New(st *store.Store, reg *schema.Registry) *Builder {
	return &Builder{Store: st, Registry: reg}
}

// CommitTree builds the full commit tree rooted at [].
func (b *Builder) CommitTree() *Node {
	return b.build(nil)
}

// Subtree builds the commit tree rooted at p.
func (b *Builder) Subtree(p []string) *Node {
	return b.build(cpath.Copy(p))
}

func (b *Builder) build(p []string) *Node {
	tmpl := b.Registry.Descendant(p)

	n := &Node{
		Path:      cpath.Copy(p),
		Name:      name(p),
		Template:  tmpl,
		InActive:  b.present(p, store.Active),
		InWorking: b.present(p, store.Working),
	}

	n.Comment = b.diffComment(p)

	if tmpl != nil && !tmpl.IsTag && !tmpl.IsTypeless() {
		n.Values = b.diffValues(p, tmpl)
	}

	cmp := childComparator(tmpl)
	for _, name := range unionChildren(b.Store, p, cmp) {
		n.Children = append(n.Children, b.build(cpath.CopyAppend(p, name)))
	}

	n.Status = b.nodeStatus(n)
	return n
}

func name(p []string) string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// present reports whether p is visible on layer l, treating a
// deactivated node as absent per §4.7 "Deactivated subtrees are
// treated as absent on their side".
func (b *Builder) present(p []string, l store.Layer) bool {
	if len(p) == 0 {
		return true
	}
	return b.Store.Exists(p, l) && !b.Store.Marked(p, store.MarkDeactivated, l)
}

func (b *Builder) diffComment(p []string) CommentDiff {
	active, _ := b.Store.GetComment(p, store.Active)
	working, _ := b.Store.GetComment(p, store.Working)
	cd := CommentDiff{Active: active, Working: working}
	switch {
	case active == "" && working == "":
		cd.Status = StatusUnchanged
	case active == "" && working != "":
		cd.Status = StatusAdded
	case active != "" && working == "":
		cd.Status = StatusDeleted
	case active != working:
		cd.Status = StatusChanged
	default:
		cd.Status = StatusUnchanged
	}
	return cd
}

func (b *Builder) diffValues(p []string, tmpl *schema.Node) []ValueDiff {
	var activeVals, workingVals []string
	if b.present(p, store.Active) {
		activeVals = b.Store.ReadValues(p, store.Active)
	}
	if b.present(p, store.Working) {
		workingVals = b.Store.ReadValues(p, store.Working)
	}

	activeIdx := indexOf(activeVals)
	workingIdx := indexOf(workingVals)

	seen := map[string]bool{}
	var out []ValueDiff
	for i, v := range activeVals {
		if seen[v] {
			continue
		}
		seen[v] = true
		wi, inW := workingIdx[v]
		out = append(out, valueDiff(v, i, true, wi, inW))
	}
	for i, v := range workingVals {
		if seen[v] {
			continue
		}
		seen[v] = true
		ai, inA := activeIdx[v]
		out = append(out, valueDiff(v, ai, inA, i, true))
	}
	return out
}

func valueDiff(v string, ai int, inA bool, wi int, inW bool) ValueDiff {
	vd := ValueDiff{Value: v}
	switch {
	case !inA && inW:
		vd.Status, vd.ActiveIndex, vd.WorkingIndex = StatusAdded, -1, wi
	case inA && !inW:
		vd.Status, vd.ActiveIndex, vd.WorkingIndex = StatusDeleted, ai, -1
	case ai == wi:
		vd.Status, vd.ActiveIndex, vd.WorkingIndex = StatusUnchanged, ai, wi
	default:
		// Present on both sides but at a different index: a
		// reordering, not an identity (§4.7).
		vd.Status, vd.ActiveIndex, vd.WorkingIndex = StatusChanged, ai, wi
	}
	return vd
}

func indexOf(vals []string) map[string]int {
	m := make(map[string]int, len(vals))
	for i, v := range vals {
		if _, ok := m[v]; !ok {
			m[v] = i
		}
	}
	return m
}

func (b *Builder) nodeStatus(n *Node) Status {
	switch {
	case !n.InActive && n.InWorking:
		return StatusAdded
	case n.InActive && !n.InWorking:
		return StatusDeleted
	case !n.InActive && !n.InWorking:
		return StatusUnchanged
	}

	if n.Template != nil && !n.Template.IsTag && !n.Template.IsTypeless() {
		for _, vd := range n.Values {
			if vd.Status != StatusUnchanged {
				return StatusChanged
			}
		}
		if n.Comment.Status != StatusUnchanged {
			return StatusChanged
		}
		return StatusUnchanged
	}

	// Typeless/tag node: changed iff any descendant (or the comment
	// itself) is non-unchanged.
	if n.Comment.Status != StatusUnchanged {
		return StatusChanged
	}
	for _, c := range n.Children {
		if c.Status != StatusUnchanged {
			return StatusChanged
		}
	}
	return StatusUnchanged
}

func childComparator(tmpl *schema.Node) store.Comparator {
	if tmpl != nil && tmpl.VersionOrdered {
		return store.DebianVersionComparator{}
	}
	return store.DefaultComparator{}
}

// unionChildren returns the union of a node's active and working
// children, sorted by cmp, so that a child present on only one side
// still gets a commit-tree node and ordering stays stable for
// value-order-sensitive callers (§4.2).
func unionChildren(s *store.Store, p []string, cmp store.Comparator) []string {
	seen := map[string]bool{}
	var out []string
	add := func(names []string) {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = appendSorted(out, name, cmp)
		}
	}
	add(s.Children(p, store.Working, cmp))
	add(s.Children(p, store.Active, cmp))
	return out
}

func appendSorted(names []string, name string, cmp store.Comparator) []string {
	idx := len(names)
	for i, existing := range names {
		if cmp.Less(name, existing) {
			idx = i
			break
		}
	}
	names = append(names, "")
	copy(names[idx+1:], names[idx:])
	names[idx] = name
	return names
}
