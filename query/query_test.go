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

package query_test

import (
	"testing"

	"github.com/netconfd/confd/query"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/store"
)

type staticSource struct{ root *schema.Node }

func (s *staticSource) Root() *schema.Node { return s.root }

func buildSchema() *schema.Node {
	root := &schema.Node{}
	system := &schema.Node{}
	hostname := &schema.Node{Type1: schema.TypeText, DefaultValue: "vyatta", HasDefault: true}
	system.SetChild("host-name", hostname)
	root.SetChild("system", system)
	return root
}

func newFacade(t *testing.T) (*query.Facade, *store.Store) {
	t.Helper()
	st := store.New()
	st.SetupSession()
	reg := schema.NewRegistry(&staticSource{root: buildSchema()})
	return query.New(st, reg), st
}

func TestAddedAndChanged(t *testing.T) {
	f, st := newFacade(t)
	path := []string{"system", "host-name"}
	if err := st.WriteValues(path, []string{"router1"}); err != nil {
		t.Fatalf("WriteValues: %v", err)
	}
	if !f.Added(path) {
		t.Error("Added = false, want true")
	}
	if !f.Changed(nil) {
		t.Error("Changed(root) = false, want true")
	}
	if f.Deleted(path) {
		t.Error("Deleted = true, want false")
	}
}

func TestEffectiveReflectsWorking(t *testing.T) {
	f, st := newFacade(t)
	path := []string{"system", "host-name"}
	st.WriteValues(path, []string{"router1"})

	got := f.Effective(path)
	if len(got) != 1 || got[0] != "router1" {
		t.Errorf("Effective = %v, want [router1]", got)
	}
}

func TestExistsActiveFalseBeforeCommit(t *testing.T) {
	f, st := newFacade(t)
	path := []string{"system", "host-name"}
	st.WriteValues(path, []string{"router1"})

	if f.ExistsActive(path) {
		t.Error("ExistsActive = true before any commit, want false")
	}
	if !f.Exists(path) {
		t.Error("Exists = false, want true (present in working)")
	}
}
