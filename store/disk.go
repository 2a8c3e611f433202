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

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/glog"
)

// Disk file/marker names, per §6 "Persisted state layout". There is no
// ecosystem library in the reference corpus for this union-mount-style
// directory codec (it is a bespoke on-disk format, not a general
// serialization format), so it is implemented directly against os/
// path/filepath — see DESIGN.md for why that is the right call here.
const (
	valueFile        = "node.val"
	deactivatedMark  = ".disable"
	displayDefault   = "def"
	changedMark      = ".modified"
	unsavedMark      = ".unsaved"
	commentFile      = ".comment"
	whiteoutPrefix   = ".wh."
	dirOpaqueMark    = ".wh.__dir_opaque"
)

// SaveActive writes the active layer to dir using the on-disk layout
// of §6, so that external consumers (daemons, action scripts reading
// TEMPLATE_ROOT-relative state) see a faithful directory tree.
func (s *Store) SaveActive(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSubtree(dir, "", s.active)
}

func saveSubtree(dir, k string, p *plane) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	e := p.entries[k]
	if e != nil {
		if len(e.values) > 0 {
			if err := writeLines(filepath.Join(dir, valueFile), e.values); err != nil {
				return err
			}
		}
		if e.markers[MarkDeactivated] {
			if err := touch(filepath.Join(dir, deactivatedMark)); err != nil {
				return err
			}
		}
		if e.markers[MarkDisplayDefault] {
			if err := touch(filepath.Join(dir, displayDefault)); err != nil {
				return err
			}
		}
		if e.markers[MarkChanged] {
			if err := touch(filepath.Join(dir, changedMark)); err != nil {
				return err
			}
		}
		if e.hasComment {
			if err := writeLines(filepath.Join(dir, commentFile), []string{e.comment}); err != nil {
				return err
			}
		}
	}
	children := append([]string{}, p.children[k]...)
	sort.Strings(children)
	for _, escChild := range children {
		childKey := childKeyOf(k, escChild)
		if err := saveSubtree(filepath.Join(dir, escChild), childKey, p); err != nil {
			return err
		}
	}
	return nil
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func touch(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// LoadActive populates the active layer by reading dir using the §6
// on-disk layout. It is the inverse of SaveActive for a layer with no
// whiteouts (active never carries any).
func LoadActive(dir string) (*Store, error) {
	s := New()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return s, nil
	}
	if err := loadSubtree(dir, "", s.active); err != nil {
		return nil, err
	}
	return s, nil
}

func loadSubtree(dir, k string, p *plane) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		glog.Warningf("store: failed reading %s: %v", dir, err)
		return err
	}
	e := newEntry()
	for _, de := range entries {
		name := de.Name()
		switch {
		case name == valueFile:
			vals, err := readLines(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			e.values = vals
		case name == deactivatedMark:
			e.markers[MarkDeactivated] = true
		case name == displayDefault:
			e.markers[MarkDisplayDefault] = true
		case name == changedMark:
			e.markers[MarkChanged] = true
		case name == commentFile:
			lines, err := readLines(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			if len(lines) > 0 {
				e.hasComment, e.comment = true, lines[0]
			}
		case de.IsDir():
			childKey := childKeyOf(k, name)
			p.children[k] = append(p.children[k], name)
			if err := loadSubtree(filepath.Join(dir, name), childKey, p); err != nil {
				return err
			}
		}
	}
	p.entries[k] = e
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// SaveChange persists the change (session) overlay to dir using the
// same per-node layout as SaveActive, plus a root-level unsaved marker
// file, so that a CLI invocation (cmd/set, cmd/delete, ...) started as
// a fresh process can still see the edits an earlier invocation in the
// same shell session made to CHANGES_ROOT. Whiteouts (pending deletes)
// are not round-tripped by this on-disk encoding yet — see DESIGN.md
// for the limitation this leaves open.
func (s *Store) SaveChange(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.change == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := saveSubtree(dir, "", s.change); err != nil {
		return err
	}
	markerPath := filepath.Join(dir, unsavedMark)
	if s.sessionUnsaved {
		return touch(markerPath)
	}
	if _, err := os.Stat(markerPath); err == nil {
		return os.Remove(markerPath)
	}
	return nil
}

// LoadChange restores a previously-saved change overlay from dir,
// leaving the store mid-session exactly as SetupSession would except
// with the prior session's edits already applied. If dir does not
// exist, it behaves like SetupSession (a fresh, empty session).
func (s *Store) LoadChange(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := newPlane()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		s.change = p
		s.tmp = nil
		s.inSession = true
		s.sessionUnsaved = false
		return nil
	}
	if err := loadSubtree(dir, "", p); err != nil {
		return err
	}
	s.change = p
	s.tmp = nil
	s.inSession = true
	_, err := os.Stat(filepath.Join(dir, unsavedMark))
	s.sessionUnsaved = err == nil
	return nil
}
