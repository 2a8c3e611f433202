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

// Package query implements the C9 output/query facade: changed/added/
// deleted/effective lookups over a store, answered from the same
// commit-tree diff package builds used to answer them, rather than a
// parallel ad hoc comparison.
package query

import (
	"github.com/netconfd/confd/cpath"
	"github.com/netconfd/confd/diff"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/store"
)

// Facade answers read-only questions about a store without mutating
// it, backing the read-only verbs of cli-shell-api (§3) and grpcapi's
// Get.
type Facade struct {
	Store    *store.Store
	Registry *schema.Registry
}

// New builds a Facade.
func New(st *store.Store, reg *schema.Registry) *Facade {
	return &Facade{Store: st, Registry: reg}
}

// Exists reports whether p is present in the working layer, honoring
// deactivation the way diff.present does.
func (f *Facade) Exists(p []string) bool {
	return f.Store.Exists(p, store.Working) && !f.Store.Marked(p, store.MarkDeactivated, store.Working)
}

// ExistsActive reports whether p is present in the active layer.
func (f *Facade) ExistsActive(p []string) bool {
	return f.Store.Exists(p, store.Active) && !f.Store.Marked(p, store.MarkDeactivated, store.Active)
}

// Changed reports whether p (or anything beneath it) differs between
// active and working.
func (f *Facade) Changed(p []string) bool {
	n := diff.New(f.Store, f.Registry).Subtree(p)
	return n.AnyDescendantChanged()
}

// Added reports whether p is present in working but not active.
func (f *Facade) Added(p []string) bool {
	n := diff.New(f.Store, f.Registry).Subtree(p)
	return n.Status == diff.StatusAdded
}

// Deleted reports whether p is present in active but not working.
func (f *Facade) Deleted(p []string) bool {
	n := diff.New(f.Store, f.Registry).Subtree(p)
	return n.Status == diff.StatusDeleted
}

// IsDefault reports whether p's current working value is its schema
// default, i.e. it carries the display-default marker, which a bare
// set or a delete-to-default leaves on a materialized default and an
// explicit set clears.
func (f *Facade) IsDefault(p []string) bool {
	return f.Store.Marked(p, store.MarkDisplayDefault, store.Working)
}

// GetComment returns p's working-layer comment, if any.
func (f *Facade) GetComment(p []string) (string, bool) {
	return f.Store.GetComment(p, store.Working)
}

// GetType returns the declared schema type name(s) of p, as reported
// to cli-shell-api's getType verb.
func (f *Facade) GetType(p []string) (schema.Type, schema.Type, bool) {
	n := f.Registry.Descendant(p)
	if n == nil {
		return schema.TypeNone, schema.TypeNone, false
	}
	return n.Type1, n.Type2, true
}

// ListActive lists p's children in the active layer, in codepoint
// order, or Debian version order for a version-ordered node.
func (f *Facade) ListActive(p []string) []string {
	return f.Store.Children(p, store.Active, f.comparator(p))
}

// ListWorking lists p's children in the working layer, in codepoint
// order, or Debian version order for a version-ordered node.
func (f *Facade) ListWorking(p []string) []string {
	return f.Store.Children(p, store.Working, f.comparator(p))
}

func (f *Facade) comparator(p []string) store.Comparator {
	n := f.Registry.Descendant(p)
	if n != nil && n.VersionOrdered {
		return store.DebianVersionComparator{}
	}
	return store.DefaultComparator{}
}

// GetTree returns the full commit-tree diff rooted at p, the backing
// structure for cli-shell-api's getTree and showCfg verbs.
func (f *Facade) GetTree(p []string) *diff.Node {
	return diff.New(f.Store, f.Registry).Subtree(p)
}

// Effective returns the values a leaf would take after commit: the
// working-layer values if p is present there, else nil. For a tag
// node whose terminal leaf differs per tag value, callers walk
// Effective across each EffectiveTagValues() result rather than
// calling it on the tag node itself, per §4.2's "effective value during
// commit is evaluated per tag-value instance".
func (f *Facade) Effective(p []string) []string {
	if !f.Exists(p) {
		return nil
	}
	return f.Store.ReadValues(p, store.Working)
}

// EffectiveTagValues lists the live (non-deactivated) tag values
// beneath a tag node in the working layer, the disjunction-over-tag-
// values variant of Effective used during commit to enumerate which
// instances a per-instance action must run against.
func (f *Facade) EffectiveTagValues(p []string) []string {
	var out []string
	for _, name := range f.ListWorking(p) {
		child := cpath.CopyAppend(p, name)
		if f.Exists(child) {
			out = append(out, name)
		}
	}
	return out
}
