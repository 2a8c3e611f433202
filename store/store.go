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

// Package store implements the C2 layered store: the active baseline,
// the per-session change overlay, the union "working" view, and the
// tmp staging area used during commit. The layering is implemented
// entirely in user space (maps plus an explicit whiteout set), per
// §9's note that a union mount is not required, while still honoring
// the on-disk layout of §6 for external consumers through the
// companion disk.go codec.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/netconfd/confd/cpath"
)

// Layer names one of the three logical views a Store exposes.
type Layer int

const (
	// Active is the read-only running configuration.
	Active Layer = iota
	// Working is the union of Change shadowing Active.
	Working
)

// Marker is one of the per-node presence-file flags of §3/§6.
type Marker int

const (
	MarkDeactivated Marker = iota
	MarkDisplayDefault
	MarkChanged
	MarkUnsaved
)

func (m Marker) String() string {
	switch m {
	case MarkDeactivated:
		return "deactivated"
	case MarkDisplayDefault:
		return "display-default"
	case MarkChanged:
		return "changed"
	case MarkUnsaved:
		return "unsaved"
	default:
		return "unknown"
	}
}

type entry struct {
	values     []string
	markers    map[Marker]bool
	hasComment bool
	comment    string
}

func newEntry() *entry {
	return &entry{markers: map[Marker]bool{}}
}

// plane holds one physical layer's worth of nodes: active, change, or
// tmp. children is maintained explicitly (rather than derived from
// scanning keys) so that ordering and subtree removal stay O(children)
// rather than O(all nodes).
type plane struct {
	entries  map[string]*entry
	children map[string][]string // parent key -> child names, insertion order
	// whiteouts records per-key deletions recorded in this plane that
	// should hide a same-named node or subtree from an underlying
	// plane (only meaningful for the change plane). opaque additionally
	// means "this plane owns this entire subtree"; planes that are not
	// overlays (active, tmp) never populate either map.
	whiteouts map[string]bool
	opaque    map[string]bool
}

func newPlane() *plane {
	return &plane{
		entries:   map[string]*entry{},
		children:  map[string][]string{},
		whiteouts: map[string]bool{},
		opaque:    map[string]bool{},
	}
}

// Store is the C2 layered store for a single session.
type Store struct {
	mu sync.Mutex

	active *plane
	change *plane
	tmp    *plane

	inSession       bool
	sessionUnsaved  bool
}

// New returns a Store with an empty active layer and no session.
func New() *Store {
	return &Store{active: newPlane()}
}

func key(p []string) string {
	if len(p) == 0 {
		return ""
	}
	escaped := make([]string, len(p))
	for i, c := range p {
		escaped[i] = cpath.Escape(c)
	}
	return strings.Join(escaped, "/")
}

func parentKey(k string) (string, bool) {
	if k == "" {
		return "", false
	}
	idx := strings.LastIndex(k, "/")
	if idx < 0 {
		return "", true
	}
	return k[:idx], true
}

// SetupSession creates the change overlay for a new editing session.
func (s *Store) SetupSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.change = newPlane()
	s.tmp = nil
	s.inSession = true
	s.sessionUnsaved = false
}

// TeardownSession discards the change overlay, ending the session.
func (s *Store) TeardownSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.change = nil
	s.inSession = false
	s.sessionUnsaved = false
}

// InSession reports whether a session is currently set up.
func (s *Store) InSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inSession
}

// SessionChanged reports whether the root of the working view carries
// the changed marker, i.e. there is at least one pending edit.
func (s *Store) SessionChanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return false
	}
	e := s.change.entries[""]
	return e != nil && e.markers[MarkChanged]
}

// SessionUnsaved reports whether the session carries the unsaved
// marker: set by Mark(MarkUnsaved), cleared by Unmark and SetupSession,
// and kept across DiscardChanges and restored by LoadChange.
func (s *Store) SessionUnsaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionUnsaved
}

func (s *Store) plane(l Layer) *plane {
	if l == Active {
		return s.active
	}
	return s.change
}

// existsWorking implements union lookup for Working: change shadows
// active, and a whiteout (or ancestor opaque whiteout) hides the
// corresponding active subtree.
func (s *Store) existsWorking(k string) bool {
	if s.change != nil {
		if _, ok := s.change.entries[k]; ok {
			return true
		}
		if s.hiddenByWhiteout(k) {
			return false
		}
	}
	_, ok := s.active.entries[k]
	return ok
}

func (s *Store) hiddenByWhiteout(k string) bool {
	if s.change == nil {
		return false
	}
	if s.change.whiteouts[k] {
		return true
	}
	// An ancestor's whiteout hides this node along with the rest of the
	// ancestor's active subtree, and an ancestor's opaque whiteout hides
	// it too, matching the "entire active subtree at this level is
	// hidden" semantics of a .wh.__dir_opaque; in both cases the node
	// has no whiteout entry of its own.
	cur := k
	for {
		pk, ok := parentKey(cur)
		if !ok {
			return false
		}
		if s.change.opaque[pk] || s.change.whiteouts[pk] {
			return true
		}
		cur = pk
	}
}

// Exists reports whether p is present in the given layer.
func (s *Store) Exists(p []string, l Layer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(p)
	if l == Active {
		_, ok := s.active.entries[k]
		return ok
	}
	return s.existsWorking(k)
}

// IsLeafValue reports whether p holds values in the given layer.
func (s *Store) IsLeafValue(p []string, l Layer) bool {
	vals, ok := s.readValuesLocked(p, l)
	return ok && len(vals) > 0
}

// ReadValues returns the ordered value list stored at p in the given
// layer.
func (s *Store) ReadValues(p []string, l Layer) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals, _ := s.readValuesLocked(p, l)
	return vals
}

func (s *Store) readValuesLocked(p []string, l Layer) ([]string, bool) {
	k := key(p)
	if l == Active {
		e, ok := s.active.entries[k]
		if !ok {
			return nil, false
		}
		return e.values, true
	}
	if s.change != nil {
		if e, ok := s.change.entries[k]; ok {
			return e.values, true
		}
		if s.hiddenByWhiteout(k) {
			return nil, false
		}
	}
	e, ok := s.active.entries[k]
	if !ok {
		return nil, false
	}
	return e.values, true
}

func sortedInsert(names []string, name string, cmp Comparator) []string {
	idx := sort.Search(len(names), func(i int) bool {
		return !cmp.Less(names[i], name)
	})
	if idx < len(names) && names[idx] == name {
		return names
	}
	names = append(names, "")
	copy(names[idx+1:], names[idx:])
	names[idx] = name
	return names
}

// Children returns the child component names of p in the given layer,
// ordered by cmp (nil selects the default codepoint comparator).
func (s *Store) Children(p []string, l Layer, cmp Comparator) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.childrenLocked(p, l, cmp)
}

func (s *Store) childrenLocked(p []string, l Layer, cmp Comparator) []string {
	if cmp == nil {
		cmp = DefaultComparator{}
	}
	k := key(p)

	if l == Active {
		return s.decodeChildNames(s.active.children[k], cmp)
	}

	// Working: union of change children (minus whiteouts) with active
	// children, unless an opaque whiteout on k hides active entirely.
	seen := map[string]bool{}
	var out []string
	if s.change != nil {
		for _, escChild := range s.change.children[k] {
			name := cpath.Unescape(escChild)
			if seen[name] {
				continue
			}
			childKey := childKeyOf(k, escChild)
			if s.change.whiteouts[childKey] {
				seen[name] = true // hide, and do not show active's version either
				continue
			}
			seen[name] = true
			out = appendSorted(out, name, cmp)
		}
	}
	if s.change == nil || !s.change.opaque[k] {
		for _, escChild := range s.active.children[k] {
			name := cpath.Unescape(escChild)
			if seen[name] {
				continue
			}
			childKey := childKeyOf(k, escChild)
			if s.hiddenByWhiteout(childKey) {
				continue
			}
			seen[name] = true
			out = appendSorted(out, name, cmp)
		}
	}
	return out
}

func (s *Store) decodeChildNames(escChildren []string, cmp Comparator) []string {
	var out []string
	for _, ec := range escChildren {
		out = appendSorted(out, cpath.Unescape(ec), cmp)
	}
	return out
}

func appendSorted(names []string, name string, cmp Comparator) []string {
	return sortedInsert(names, name, cmp)
}

func childKeyOf(parentK, escChildName string) string {
	if parentK == "" {
		return escChildName
	}
	return parentK + "/" + escChildName
}

// WriteValues replaces the value list at p in the change layer
// (session edits only ever touch change; active is written only by
// commit's publication step via ReplaceActive).
func (s *Store) WriteValues(p []string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return fmt.Errorf("store: no active session")
	}
	s.addChildLocked(p)
	k := key(p)
	e := s.change.entries[k]
	if e == nil {
		e = newEntry()
		s.change.entries[k] = e
	}
	e.values = append([]string{}, values...)
	delete(s.change.whiteouts, k)
	return nil
}

// AddChild ensures p exists as an (initially valueless) node in the
// change layer, creating every missing ancestor along the way.
func (s *Store) AddChild(p []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return fmt.Errorf("store: no active session")
	}
	s.addChildLocked(p)
	return nil
}

func (s *Store) addChildLocked(p []string) {
	for i := 0; i <= len(p); i++ {
		k := key(p[:i])
		if _, ok := s.change.entries[k]; !ok {
			s.change.entries[k] = newEntry()
		}
		delete(s.change.whiteouts, k)
		if i == 0 {
			continue
		}
		parentK := key(p[:i-1])
		name := cpath.Escape(p[i-1])
		if !slices.Contains(s.change.children[parentK], name) {
			s.change.children[parentK] = append(s.change.children[parentK], name)
		}
	}
}

// RemoveSubtree removes p and everything below it from the change
// layer. If p (or an ancestor) also exists in active, a whiteout is
// recorded so the union view treats it as deleted.
func (s *Store) RemoveSubtree(p []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return fmt.Errorf("store: no active session")
	}
	k := key(p)
	s.removeChangeSubtreeLocked(k)
	if s.activeSubtreeExists(k) {
		s.change.whiteouts[k] = true
	}
	// detach from parent's child list
	if parentK, ok := parentKey(k); ok {
		if len(p) > 0 {
			name := cpath.Escape(p[len(p)-1])
			s.change.children[parentK] = removeName(s.change.children[parentK], name)
		}
	}
	return nil
}

func (s *Store) activeSubtreeExists(k string) bool {
	if _, ok := s.active.entries[k]; ok {
		return true
	}
	return false
}

func (s *Store) removeChangeSubtreeLocked(k string) {
	delete(s.change.entries, k)
	delete(s.change.opaque, k)
	for _, escChild := range s.change.children[k] {
		s.removeChangeSubtreeLocked(childKeyOf(k, escChild))
	}
	delete(s.change.children, k)
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}

// RenameChild renames the child named old of parent to new within the
// change layer, materializing the current (working) subtree under old
// first so a rename of an as-yet-uncommitted active-only subtree still
// works.
func (s *Store) RenameChild(parent []string, old, new string) error {
	return s.copyOrRename(parent, old, new, true)
}

// CopyChild copies the subtree at parent/old to parent/new.
func (s *Store) CopyChild(parent []string, old, new string) error {
	return s.copyOrRename(parent, old, new, false)
}

func (s *Store) copyOrRename(parent []string, old, new string, remove bool) error {
	oldPath := cpath.CopyAppend(parent, old)
	newPath := cpath.CopyAppend(parent, new)
	return s.copyOrMove(oldPath, parent, old, newPath, remove)
}

// MoveChild relocates the subtree at oldParent/name to newParent/name,
// the primitive behind the edit API's "move" sugar (§4.6: "equivalent
// to edit parent; rename"), generalizing copyOrRename to a destination
// under a different parent.
func (s *Store) MoveChild(oldParent []string, name string, newParent []string) error {
	oldPath := cpath.CopyAppend(oldParent, name)
	newPath := cpath.CopyAppend(newParent, name)
	return s.copyOrMove(oldPath, oldParent, name, newPath, true)
}

func (s *Store) copyOrMove(oldPath, oldParent []string, old string, newPath []string, remove bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return fmt.Errorf("store: no active session")
	}
	snap := s.snapshotWorkingLocked(oldPath)
	s.materializeLocked(newPath, snap)
	if remove {
		k := key(oldPath)
		s.removeChangeSubtreeLocked(k)
		if s.activeSubtreeExists(k) {
			s.change.whiteouts[k] = true
		}
		pk := key(oldParent)
		s.change.children[pk] = removeName(s.change.children[pk], cpath.Escape(old))
	}
	return nil
}

// subtreeSnapshot is a plain recursive copy of a working-view subtree,
// used by rename/copy to materialize an active-only subtree into the
// change layer under a new name.
type subtreeSnapshot struct {
	values   []string
	markers  map[Marker]bool
	comment  string
	hasCmt   bool
	children map[string]*subtreeSnapshot
}

func (s *Store) snapshotWorkingLocked(p []string) *subtreeSnapshot {
	k := key(p)
	if !s.existsWorkingLocked(k) {
		return nil
	}
	snap := &subtreeSnapshot{children: map[string]*subtreeSnapshot{}}
	if vals, ok := s.readValuesLockedNoMu(p); ok {
		snap.values = vals
	}
	snap.markers = map[Marker]bool{}
	for _, m := range []Marker{MarkDeactivated, MarkDisplayDefault, MarkChanged} {
		if s.markedLocked(p, m, Working) {
			snap.markers[m] = true
		}
	}
	if c, ok := s.commentLocked(p, Working); ok {
		snap.comment, snap.hasCmt = c, true
	}
	for _, name := range s.childrenLocked(p, Working, DefaultComparator{}) {
		snap.children[name] = s.snapshotWorkingLocked(cpath.CopyAppend(p, name))
	}
	return snap
}

func (s *Store) materializeLocked(p []string, snap *subtreeSnapshot) {
	s.addChildLocked(p)
	if snap == nil {
		return
	}
	k := key(p)
	e := s.change.entries[k]
	if e == nil {
		e = newEntry()
		s.change.entries[k] = e
	}
	if snap.values != nil {
		e.values = append([]string{}, snap.values...)
	}
	for m, v := range snap.markers {
		if v {
			e.markers[m] = true
		}
	}
	if snap.hasCmt {
		e.hasComment = true
		e.comment = snap.comment
	}
	for name, child := range snap.children {
		s.materializeLocked(cpath.CopyAppend(p, name), child)
	}
}

func (s *Store) existsWorkingLocked(k string) bool { return s.existsWorking(k) }

func (s *Store) readValuesLockedNoMu(p []string) ([]string, bool) {
	return s.readValuesLocked(p, Working)
}

// MaterializePresence ensures p has an entry of its own in the change
// layer, carrying forward whatever values are currently visible
// through the working view. Mark and SetComment only ever touch the
// change layer directly: calling them on a node that so far exists
// only in active would otherwise create an empty change entry that
// shadows the active values through the union read path. Callers that
// mark or comment a possibly-active-only node call this first.
func (s *Store) MaterializePresence(p []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return fmt.Errorf("store: no active session")
	}
	if _, ok := s.change.entries[key(p)]; ok {
		return nil
	}
	vals, _ := s.readValuesLocked(p, Working)
	s.addChildLocked(p)
	if len(vals) > 0 {
		s.change.entries[key(p)].values = append([]string{}, vals...)
	}
	return nil
}

// Mark sets flag on p in the change layer.
func (s *Store) Mark(p []string, flag Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return fmt.Errorf("store: no active session")
	}
	s.addChildLocked(p)
	k := key(p)
	s.change.entries[k].markers[flag] = true
	if flag == MarkChanged {
		s.propagateChangedLocked(p)
	}
	if flag == MarkUnsaved {
		s.sessionUnsaved = true
	}
	return nil
}

func (s *Store) propagateChangedLocked(p []string) {
	for i := len(p); i >= 0; i-- {
		k := key(p[:i])
		if _, ok := s.change.entries[k]; !ok {
			s.change.entries[k] = newEntry()
		}
		s.change.entries[k].markers[MarkChanged] = true
	}
}

// Unmark clears flag on p in the change layer.
func (s *Store) Unmark(p []string, flag Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return fmt.Errorf("store: no active session")
	}
	k := key(p)
	if e, ok := s.change.entries[k]; ok {
		delete(e.markers, flag)
	}
	if flag == MarkUnsaved {
		s.sessionUnsaved = false
	}
	return nil
}

// Marked reports whether p carries flag in the given layer.
func (s *Store) Marked(p []string, flag Marker, l Layer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markedLocked(p, flag, l)
}

func (s *Store) markedLocked(p []string, flag Marker, l Layer) bool {
	k := key(p)
	if l == Active {
		e, ok := s.active.entries[k]
		return ok && e.markers[flag]
	}
	if s.change != nil {
		if e, ok := s.change.entries[k]; ok {
			return e.markers[flag]
		}
	}
	e, ok := s.active.entries[k]
	return ok && e.markers[flag]
}

// GetComment returns the comment on p in the given layer.
func (s *Store) GetComment(p []string, l Layer) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commentLocked(p, l)
}

func (s *Store) commentLocked(p []string, l Layer) (string, bool) {
	k := key(p)
	if l == Active {
		e, ok := s.active.entries[k]
		if !ok || !e.hasComment {
			return "", false
		}
		return e.comment, true
	}
	if s.change != nil {
		if e, ok := s.change.entries[k]; ok {
			if e.hasComment {
				return e.comment, true
			}
			return "", false
		}
	}
	e, ok := s.active.entries[k]
	if !ok || !e.hasComment {
		return "", false
	}
	return e.comment, true
}

// SetComment sets the comment on p in the change layer.
func (s *Store) SetComment(p []string, c string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return fmt.Errorf("store: no active session")
	}
	s.addChildLocked(p)
	e := s.change.entries[key(p)]
	e.hasComment = true
	e.comment = c
	return nil
}

// RemoveComment clears the comment on p.
func (s *Store) RemoveComment(p []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return fmt.Errorf("store: no active session")
	}
	s.addChildLocked(p)
	e := s.change.entries[key(p)]
	e.hasComment = false
	e.comment = ""
	return nil
}

// DiscardChanges removes everything from the change layer except a
// preserved unsaved marker, per §4.6's discard contract. It returns
// the number of top-level paths that were discarded.
func (s *Store) DiscardChanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return 0
	}
	count := len(s.change.children[""])
	wasUnsaved := s.sessionUnsaved
	s.change = newPlane()
	if wasUnsaved {
		s.change.entries[""] = newEntry()
		s.change.entries[""].markers[MarkUnsaved] = true
		s.sessionUnsaved = true
	}
	return count
}

// ReplaceActive atomically installs newActive as the active layer and
// clears the change overlay, used by the commit engine's publication
// step (§4.8).
func (s *Store) ReplaceActive(newActive *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = newActive.plane
	s.change = newPlane()
}
