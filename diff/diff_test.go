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

package diff_test

import (
	"testing"

	"github.com/netconfd/confd/diff"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/store"
)

type staticSource struct{ root *schema.Node }

func (s *staticSource) Root() *schema.Node { return s.root }

func buildSchema() *schema.Node {
	root := &schema.Node{}
	hostname := &schema.Node{Type1: schema.TypeText}
	nameserver := &schema.Node{Type1: schema.TypeIPv4, IsMulti: true}
	system := &schema.Node{}
	system.SetChild("host-name", hostname)
	system.SetChild("name-server", nameserver)
	root.SetChild("system", system)
	return root
}

func findChild(n *diff.Node, name string) *diff.Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func seedActive(t *testing.T, st *store.Store, p []string, values []string) {
	t.Helper()
	st.SetupSession()
	if err := st.WriteValues(p, values); err != nil {
		t.Fatalf("seed WriteValues: %v", err)
	}
	b := st.NewSnapshotBuilder()
	b.CopySubtreeFromWorking(nil)
	st.ReplaceActive(b.Build())
	st.SetupSession()
}

func TestUnchangedNode(t *testing.T) {
	st := store.New()
	seedActive(t, st, []string{"system", "host-name"}, []string{"vyatta"})
	reg := schema.NewRegistry(&staticSource{root: buildSchema()})

	tree := diff.New(st, reg).CommitTree()
	hostname := findChild(findChild(tree, "system"), "host-name")
	if hostname == nil {
		t.Fatalf("host-name node not found")
	}
	if hostname.Status != diff.StatusUnchanged {
		t.Errorf("Status = %v, want Unchanged", hostname.Status)
	}
}

func TestAddedLeaf(t *testing.T) {
	st := store.New()
	st.SetupSession()
	reg := schema.NewRegistry(&staticSource{root: buildSchema()})
	if err := st.WriteValues([]string{"system", "host-name"}, []string{"vyatta"}); err != nil {
		t.Fatalf("WriteValues: %v", err)
	}

	tree := diff.New(st, reg).CommitTree()
	hostname := findChild(findChild(tree, "system"), "host-name")
	if hostname.Status != diff.StatusAdded {
		t.Errorf("Status = %v, want Added", hostname.Status)
	}
	system := findChild(tree, "system")
	if system.Status != diff.StatusChanged {
		t.Errorf("system.Status = %v, want Changed (has an added descendant)", system.Status)
	}
}

func TestDeletedLeaf(t *testing.T) {
	st := store.New()
	seedActive(t, st, []string{"system", "host-name"}, []string{"vyatta"})
	reg := schema.NewRegistry(&staticSource{root: buildSchema()})

	if err := st.RemoveSubtree([]string{"system", "host-name"}); err != nil {
		t.Fatalf("RemoveSubtree: %v", err)
	}

	tree := diff.New(st, reg).CommitTree()
	hostname := findChild(findChild(tree, "system"), "host-name")
	if hostname.Status != diff.StatusDeleted {
		t.Errorf("Status = %v, want Deleted", hostname.Status)
	}
}

func TestMultiLeafReorderIsChangedNotUnchanged(t *testing.T) {
	st := store.New()
	seedActive(t, st, []string{"system", "name-server"}, []string{"1.1.1.1", "8.8.8.8"})
	reg := schema.NewRegistry(&staticSource{root: buildSchema()})

	if err := st.WriteValues([]string{"system", "name-server"}, []string{"8.8.8.8", "1.1.1.1"}); err != nil {
		t.Fatalf("WriteValues: %v", err)
	}

	tree := diff.New(st, reg).CommitTree()
	ns := findChild(findChild(tree, "system"), "name-server")
	if ns.Status != diff.StatusChanged {
		t.Errorf("Status = %v, want Changed (reordering)", ns.Status)
	}
	for _, vd := range ns.Values {
		if vd.Status != diff.StatusChanged {
			t.Errorf("value %q status = %v, want Changed", vd.Value, vd.Status)
		}
	}
}

func TestMultiLeafSameIndexIsUnchanged(t *testing.T) {
	st := store.New()
	seedActive(t, st, []string{"system", "name-server"}, []string{"1.1.1.1", "8.8.8.8"})
	reg := schema.NewRegistry(&staticSource{root: buildSchema()})

	if err := st.WriteValues([]string{"system", "name-server"}, []string{"1.1.1.1", "8.8.8.8", "9.9.9.9"}); err != nil {
		t.Fatalf("WriteValues: %v", err)
	}

	tree := diff.New(st, reg).CommitTree()
	ns := findChild(findChild(tree, "system"), "name-server")
	if ns.Status != diff.StatusChanged {
		t.Errorf("Status = %v, want Changed (a value was added)", ns.Status)
	}
	byValue := map[string]diff.Status{}
	for _, vd := range ns.Values {
		byValue[vd.Value] = vd.Status
	}
	if byValue["1.1.1.1"] != diff.StatusUnchanged {
		t.Errorf("1.1.1.1 status = %v, want Unchanged", byValue["1.1.1.1"])
	}
	if byValue["8.8.8.8"] != diff.StatusUnchanged {
		t.Errorf("8.8.8.8 status = %v, want Unchanged", byValue["8.8.8.8"])
	}
	if byValue["9.9.9.9"] != diff.StatusAdded {
		t.Errorf("9.9.9.9 status = %v, want Added", byValue["9.9.9.9"])
	}
}

func TestDeactivatedTreatedAsAbsent(t *testing.T) {
	st := store.New()
	seedActive(t, st, []string{"system", "host-name"}, []string{"vyatta"})
	reg := schema.NewRegistry(&staticSource{root: buildSchema()})

	if err := st.Mark([]string{"system", "host-name"}, store.MarkDeactivated); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	tree := diff.New(st, reg).CommitTree()
	hostname := findChild(findChild(tree, "system"), "host-name")
	if hostname.Status != diff.StatusDeleted {
		t.Errorf("Status = %v, want Deleted (deactivated is absent on the working side)", hostname.Status)
	}
}

func TestCommentDiffIndependent(t *testing.T) {
	st := store.New()
	seedActive(t, st, []string{"system", "host-name"}, []string{"vyatta"})
	reg := schema.NewRegistry(&staticSource{root: buildSchema()})

	if err := st.MaterializePresence([]string{"system", "host-name"}); err != nil {
		t.Fatalf("MaterializePresence: %v", err)
	}
	if err := st.SetComment([]string{"system", "host-name"}, "primary router"); err != nil {
		t.Fatalf("SetComment: %v", err)
	}

	tree := diff.New(st, reg).CommitTree()
	hostname := findChild(findChild(tree, "system"), "host-name")
	if hostname.Comment.Status != diff.StatusAdded {
		t.Errorf("Comment.Status = %v, want Added", hostname.Comment.Status)
	}
	if hostname.Status != diff.StatusChanged {
		t.Errorf("Status = %v, want Changed (comment-only change)", hostname.Status)
	}
	for _, vd := range hostname.Values {
		if vd.Status != diff.StatusUnchanged {
			t.Errorf("value %q status = %v, want Unchanged", vd.Value, vd.Status)
		}
	}
}
