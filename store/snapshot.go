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

package store

import "github.com/netconfd/confd/cpath"

// Snapshot is an immutable plane built by SnapshotBuilder, ready to be
// installed as the new active layer via Store.ReplaceActive. It is the
// in-memory analogue of the commit engine's "tmp" staging area (§3).
type Snapshot struct {
	plane *plane
}

// SnapshotBuilder assembles the next active layer for the commit
// engine's publication step (§4.8): for each priority subtree, the
// commit engine copies either the working or the active version of
// that subtree onto the builder, then calls Build.
type SnapshotBuilder struct {
	store *Store
	p     *plane
}

// NewSnapshotBuilder begins staging a new active layer.
func (s *Store) NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{store: s, p: newPlane()}
}

// CopySubtreeFromWorking copies the working-view subtree rooted at p
// (as it exists in the session being committed) into the snapshot, with
// changed/unsaved markers cleared since the new active layer has no
// notion of a pending session.
func (b *SnapshotBuilder) CopySubtreeFromWorking(p []string) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if !b.store.existsWorkingLocked(key(p)) {
		return
	}
	b.copyLocked(p, Working)
}

// CopySubtreeFromActive copies the pre-commit active subtree rooted at
// p into the snapshot unchanged, used when a priority subtree's
// execution failed and the prior state must be preserved (§4.8
// Publication).
func (b *SnapshotBuilder) CopySubtreeFromActive(p []string) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	k := key(p)
	// Drop whatever a broader working copy already staged at p, so the
	// pre-commit version (or its absence) is what the snapshot keeps.
	for ek := range b.p.entries {
		if k == "" || ek == k || (len(ek) > len(k) && ek[len(k)] == '/' && ek[:len(k)] == k) {
			delete(b.p.entries, ek)
			delete(b.p.children, ek)
		}
	}
	_, inActive := b.store.active.entries[k]
	if pk, ok := parentKey(k); ok {
		name := cpath.Escape(p[len(p)-1])
		b.p.children[pk] = removeName(b.p.children[pk], name)
		if inActive {
			b.p.children[pk] = append(b.p.children[pk], name)
		}
	}
	if inActive {
		b.copyLocked(p, Active)
	}
}

func (b *SnapshotBuilder) copyLocked(p []string, from Layer) {
	k := key(p)
	var vals []string
	if v, ok := b.store.readValuesLocked(p, from); ok {
		vals = v
	}
	e := newEntry()
	e.values = append([]string{}, vals...)
	if c, ok := b.store.commentLocked(p, from); ok {
		e.hasComment, e.comment = true, c
	}
	if b.store.markedLocked(p, MarkDeactivated, from) {
		e.markers[MarkDeactivated] = true
	}
	if b.store.markedLocked(p, MarkDisplayDefault, from) {
		e.markers[MarkDisplayDefault] = true
	}
	b.p.entries[k] = e

	for _, name := range b.store.childrenLocked(p, from, DefaultComparator{}) {
		childPath := cpath.CopyAppend(p, name)
		childKey := key(childPath)
		b.p.children[k] = append(b.p.children[k], cpath.Escape(name))
		b.copyLocked(childPath, from)
		_ = childKey
	}
}

// Build finalizes the staged plane into a Snapshot.
func (b *SnapshotBuilder) Build() *Snapshot {
	return &Snapshot{plane: b.p}
}
