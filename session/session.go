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

// Package session implements the C6 edit/session API: set, delete,
// activate, deactivate, rename, copy, move, comment, and discard, each
// operating on the working layer of a store.Store and leaving the
// store unchanged on failure. Callers are expected to have already
// resolved and validated p with package validate; session applies the
// policy store.Store deliberately stays agnostic of — default
// materialization, limit enforcement, and cascading tag/multi cleanup.
package session

import (
	"strings"

	"github.com/golang/glog"

	"github.com/netconfd/confd/cpath"
	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/store"
	"github.com/netconfd/confd/validate"
)

// Session binds a store to the schema registry and validator it is
// edited against.
type Session struct {
	Store     *store.Store
	Registry  *schema.Registry
	Validator *validate.Validator
}

// New builds a Session over an already-set-up store.
func New(st *store.Store, reg *schema.Registry, v *validate.Validator) *Session {
	return &Session{Store: st, Registry: reg, Validator: v}
}

// Set implements set(p) of §4.6. An empty value means the caller gave
// no explicit value for a single-value leaf, e.g. a bare `set system
// host-name`: if the leaf has a template default it is materialized
// and display-default is marked, otherwise the node is simply created
// valueless. A non-empty value is always an explicit user value, and
// clears display-default even when it happens to equal the default.
func (s *Session) Set(p []string, value string) error {
	if err := s.Validator.ValidateSetPath(p); err != nil {
		return err
	}
	res := s.Registry.Parse(p)
	n := res.Node

	if n.IsTypeless() && !n.IsTag {
		return s.setInterior(p)
	}

	if value == "" && !n.IsMulti && n.HasDefault {
		return s.setDefault(p, n)
	}
	if value == "" {
		return s.setInterior(p)
	}

	if err := s.Validator.ValidateValue(p, value); err != nil {
		return err
	}

	if n.IsMulti {
		return s.setMulti(p, n, value)
	}
	return s.setSingle(p, n, value)
}

func (s *Session) setDefault(p []string, n *schema.Node) error {
	if err := s.checkTagLimitForNewChild(p); err != nil {
		return err
	}
	if err := s.Store.WriteValues(p, []string{n.DefaultValue}); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	if err := s.Store.Mark(p, store.MarkDisplayDefault); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	return s.Store.Mark(p, store.MarkChanged)
}

func (s *Session) setInterior(p []string) error {
	if err := s.checkTagLimitForNewChild(p); err != nil {
		return err
	}
	if err := s.Store.AddChild(p); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	return s.Store.Mark(p, store.MarkChanged)
}

func (s *Session) setSingle(p []string, n *schema.Node, value string) error {
	existing := s.Store.ReadValues(p, store.Working)
	alreadySet := len(existing) == 1 && existing[0] == value

	if err := s.checkTagLimitForNewChild(p); err != nil {
		return err
	}
	if err := s.Store.WriteValues(p, []string{value}); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	// An explicit value always clears display-default, even if it
	// happens to equal the template default (§4.6: "explicitly setting
	// the current value is allowed and clears display-default").
	if err := s.Store.Unmark(p, store.MarkDisplayDefault); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	if err := s.Store.Mark(p, store.MarkChanged); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	if alreadySet {
		return errs.New(errs.KindAlreadyExists, p, "the specified value already exists")
	}
	return nil
}

func (s *Session) setMulti(p []string, n *schema.Node, value string) error {
	existing := s.Store.ReadValues(p, store.Working)
	for _, v := range existing {
		if v == value {
			return errs.New(errs.KindAlreadyExists, p, "the specified value already exists")
		}
	}
	if err := s.Validator.CheckMultiLimit(n, len(existing)); err != nil {
		return err
	}
	if err := s.checkTagLimitForNewChild(p); err != nil {
		return err
	}
	if err := s.Store.WriteValues(p, append(append([]string{}, existing...), value)); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	return s.Store.Mark(p, store.MarkChanged)
}

// checkTagLimitForNewChild enforces tag_limit against every tag value
// p introduces that is not already present in the working view,
// grounded in cli_new.c's set-time (not only commit-time) limit check.
func (s *Session) checkTagLimitForNewChild(p []string) error {
	res := s.Registry.Parse(p)
	for _, tv := range res.TagValues {
		tagNodePath := p[:tv.Index]
		if s.Store.Exists(p[:tv.Index+1], store.Working) {
			continue // existing tag value, not a new one
		}
		tagNode := s.Registry.Descendant(tagNodePath)
		if tagNode == nil {
			continue
		}
		count := len(s.Store.Children(tagNodePath, store.Working, nil))
		if err := s.Validator.CheckTagLimit(tagNode, count); err != nil {
			return err
		}
	}
	return nil
}

// Delete implements delete(p) of §4.6: if the leaf has a default, the
// value reverts to the default and display-default is set; otherwise
// the node (or, for a multi-leaf, a single value) is removed, and a
// tag value it leaves empty is removed along with it, followed by a tag
// node left with no tag values.
func (s *Session) Delete(p []string, value string) error {
	if !s.Store.Exists(p, store.Working) {
		return errs.New(errs.KindNotExists, p, "the specified configuration node does not exist")
	}
	n := s.Registry.Descendant(p)

	if n != nil && n.IsMulti && value != "" {
		return s.deleteMultiValue(p, n, value)
	}

	if n != nil && !n.IsTag && !n.IsMulti && n.HasDefault {
		if err := s.Store.WriteValues(p, []string{n.DefaultValue}); err != nil {
			return errs.Wrap(errs.KindIO, p, err)
		}
		s.Store.Mark(p, store.MarkDisplayDefault)
		return s.Store.Mark(p, store.MarkChanged)
	}

	return s.removeSubtree(p)
}

func (s *Session) deleteMultiValue(p []string, n *schema.Node, value string) error {
	existing := s.Store.ReadValues(p, store.Working)
	out := existing[:0:0]
	found := false
	for _, v := range existing {
		if v == value {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		return errs.New(errs.KindNotExists, p, "the specified value does not exist")
	}
	if len(out) == 0 {
		return s.removeSubtree(p)
	}
	if err := s.Store.WriteValues(p, out); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	return s.Store.Mark(p, store.MarkChanged)
}

func (s *Session) removeSubtree(p []string) error {
	if err := s.Store.RemoveSubtree(p); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	// Prune the ancestors the removal emptied: a tag value left with no
	// children, then a tag node left with no tag values.
	dir, _ := cpath.Parent(p)
	for len(dir) > 0 && len(s.Store.Children(dir, store.Working, nil)) == 0 {
		up, _ := cpath.Parent(dir)
		tmpl, upTmpl := s.Registry.Descendant(dir), s.Registry.Descendant(up)
		if (tmpl == nil || !tmpl.IsTag) && (upTmpl == nil || !upTmpl.IsTag) {
			break
		}
		if err := s.Store.RemoveSubtree(dir); err != nil {
			return errs.Wrap(errs.KindIO, dir, err)
		}
		dir = up
	}
	return s.Store.Mark(dir, store.MarkChanged)
}

// Activate implements activate(p): clears the deactivated marker,
// failing if p was not deactivated. A tag value being reactivated must
// still fit within its tag node's tag_limit, the strict reading of
// §9's open question chosen over the legacy warning-only behavior.
func (s *Session) Activate(p []string) error {
	if !s.Store.Marked(p, store.MarkDeactivated, store.Working) {
		return errs.New(errs.KindInvalidPath, p, "path is not deactivated")
	}
	if last := s.Registry.Parse(p); last != nil && len(last.TagValues) > 0 && last.TagValues[len(last.TagValues)-1].Index == len(p)-1 {
		tagNodePath := p[:len(p)-1]
		if tagNode := s.Registry.Descendant(tagNodePath); tagNode != nil {
			active := 0
			for _, name := range s.Store.Children(tagNodePath, store.Working, nil) {
				child := cpath.CopyAppend(tagNodePath, name)
				if !s.Store.Marked(child, store.MarkDeactivated, store.Working) {
					active++
				}
			}
			if err := s.Validator.CheckTagLimit(tagNode, active); err != nil {
				return err
			}
		}
	}
	if err := s.Store.MaterializePresence(p); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	if err := s.Store.Unmark(p, store.MarkDeactivated); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	return s.Store.Mark(p, store.MarkChanged)
}

// Deactivate implements deactivate(p): sets the deactivated marker and
// clears every descendant's own deactivation marker, since a
// deactivated subtree is already absent as a whole (§4.7).
func (s *Session) Deactivate(p []string) error {
	if err := s.Store.MaterializePresence(p); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	if err := s.Store.Mark(p, store.MarkDeactivated); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	s.clearDescendantDeactivation(p)
	return s.Store.Mark(p, store.MarkChanged)
}

func (s *Session) clearDescendantDeactivation(p []string) {
	for _, name := range s.Store.Children(p, store.Working, nil) {
		child := cpath.CopyAppend(p, name)
		s.Store.Unmark(child, store.MarkDeactivated)
		s.clearDescendantDeactivation(child)
	}
}

// Rename implements rename(tag, old, new): tag must be a tag node, old
// must exist under it, new must not.
func (s *Session) Rename(tag []string, old, new string) error {
	if err := s.checkTagRename(tag, old, new); err != nil {
		return err
	}
	if err := s.Store.RenameChild(tag, old, new); err != nil {
		return errs.Wrap(errs.KindIO, tag, err)
	}
	return s.Store.Mark(tag, store.MarkChanged)
}

// Copy implements copy(tag, old, new) with the same preconditions as
// Rename, but leaves old in place.
func (s *Session) Copy(tag []string, old, new string) error {
	if err := s.checkTagRename(tag, old, new); err != nil {
		return err
	}
	if err := s.Store.CopyChild(tag, old, new); err != nil {
		return errs.Wrap(errs.KindIO, tag, err)
	}
	return s.Store.Mark(tag, store.MarkChanged)
}

// Move implements move(oldParent, name, newParent): sugar for
// "edit parent; rename" (§4.6), relocating a tag value's subtree to a
// new parent tag node of the same kind.
func (s *Session) Move(oldParent []string, name string, newParent []string) error {
	n := s.Registry.Descendant(newParent)
	if n == nil || !n.IsTag {
		return errs.New(errs.KindInvalidPath, newParent, "destination is not a tag node")
	}
	if s.Store.Exists(cpath.CopyAppend(newParent, name), store.Working) {
		return errs.New(errs.KindAlreadyExists, newParent, "destination tag value already exists")
	}
	if err := s.Store.MoveChild(oldParent, name, newParent); err != nil {
		return errs.Wrap(errs.KindIO, oldParent, err)
	}
	s.Store.Mark(oldParent, store.MarkChanged)
	return s.Store.Mark(newParent, store.MarkChanged)
}

func (s *Session) checkTagRename(tag []string, old, new string) error {
	n := s.Registry.Descendant(tag)
	if n == nil || !n.IsTag {
		return errs.New(errs.KindInvalidPath, tag, "not a tag node")
	}
	if !s.Store.Exists(cpath.CopyAppend(tag, old), store.Working) {
		return errs.New(errs.KindNotExists, tag, "source tag value does not exist")
	}
	if s.Store.Exists(cpath.CopyAppend(tag, new), store.Working) {
		return errs.New(errs.KindAlreadyExists, tag, "destination tag value already exists")
	}
	return nil
}

// Comment implements comment(p, s): forbidden on tag nodes and on leaf
// values, and rejects the literal '*' in the comment text (§4.6).
func (s *Session) Comment(p []string, comment string) error {
	n := s.Registry.Descendant(p)
	if n != nil && n.IsTag {
		return errs.New(errs.KindInvalidPath, p, "cannot comment a tag node")
	}
	res := s.Registry.Parse(p)
	if res != nil && res.TerminatesAtValue && !res.Node.IsTypeless() {
		return errs.New(errs.KindInvalidPath, p, "cannot comment a leaf value")
	}
	if strings.Contains(comment, "*") {
		return errs.New(errs.KindInvalidValue, p, "comment must not contain '*'")
	}
	if err := s.Store.MaterializePresence(p); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	if comment == "" {
		if err := s.Store.RemoveComment(p); err != nil {
			return errs.Wrap(errs.KindIO, p, err)
		}
		return nil
	}
	if err := s.Store.SetComment(p, comment); err != nil {
		return errs.Wrap(errs.KindIO, p, err)
	}
	return nil
}

// Discard implements discard: removes everything from the change
// layer except the unsaved marker, restoring it if it was set, and
// returns the number of top-level changes that were discarded.
func (s *Session) Discard() int {
	n := s.Store.DiscardChanges()
	glog.V(1).Infof("session: discarded %d top-level change(s)", n)
	return n
}
