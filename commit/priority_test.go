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

// White-box tests for extractSubtrees, in package commit itself (not
// commit_test) so they can inspect the unexported subtree forest
// directly instead of only observing it through a full Commit run.
package commit

import (
	"testing"

	"github.com/netconfd/confd/diff"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/store"
)

type priorityTestSource struct{ root *schema.Node }

func (s *priorityTestSource) Root() *schema.Node { return s.root }

func prio(p uint) *uint { return &p }

// priorityTestSchema mirrors spec.md §8's ethernet/eth0/address
// example: the tag node "ethernet" and its TagChild both carry
// priority 400 (see commit_test.go's buildEthernetSchema doc comment
// for why both carry it), "address" carries 500.
func priorityTestSchema() *schema.Node {
	root := &schema.Node{}
	interfaces := &schema.Node{}
	addr := &schema.Node{Type1: schema.TypeIPv4Net, IsMulti: true, Priority: prio(500)}
	tagChild := &schema.Node{Priority: prio(400)}
	tagChild.SetChild("address", addr)
	ethernet := &schema.Node{IsTag: true, TagChild: tagChild, Priority: prio(400)}
	interfaces.SetChild("ethernet", ethernet)
	root.SetChild("interfaces", interfaces)
	return root
}

func TestExtractSubtreesSkipsTagContainerButNotTagValue(t *testing.T) {
	st := store.New()
	st.SetupSession()
	if err := st.WriteValues([]string{"interfaces", "ethernet", "eth0", "address"}, []string{"10.0.0.1/24"}); err != nil {
		t.Fatalf("WriteValues: %v", err)
	}

	reg := schema.NewRegistry(&priorityTestSource{root: priorityTestSchema()})
	tree := diff.New(st, reg).CommitTree()
	subtrees, _ := extractSubtrees(tree)

	var ethernetRoots, eth0Roots, addressRoots int
	for _, st := range subtrees {
		if st.root.Template == nil {
			continue
		}
		switch {
		case st.root.Template.IsTag:
			ethernetRoots++
		case len(st.root.Path) > 0 && st.root.Path[len(st.root.Path)-1] == "address":
			addressRoots++
		case len(st.root.Path) > 0 && st.root.Path[len(st.root.Path)-1] == "eth0":
			eth0Roots++
		}
	}

	if ethernetRoots != 0 {
		t.Errorf("got %d subtree(s) rooted at a tag-container (IsTag) node, want 0", ethernetRoots)
	}
	if eth0Roots != 1 {
		t.Errorf("got %d subtree(s) rooted at the eth0 tag value, want 1", eth0Roots)
	}
	if addressRoots != 1 {
		t.Errorf("got %d subtree(s) rooted at address, want 1", addressRoots)
	}
}

func TestExtractSubtreesMultipleTagValuesEachGetOwnSubtree(t *testing.T) {
	st := store.New()
	st.SetupSession()
	st.WriteValues([]string{"interfaces", "ethernet", "eth0", "address"}, []string{"10.0.0.1/24"})
	st.WriteValues([]string{"interfaces", "ethernet", "eth1", "address"}, []string{"10.0.0.2/24"})

	reg := schema.NewRegistry(&priorityTestSource{root: priorityTestSchema()})
	tree := diff.New(st, reg).CommitTree()
	subtrees, _ := extractSubtrees(tree)

	var tagValueRoots int
	for _, sub := range subtrees {
		if sub.root.Template == nil || sub.root.Template.IsTag {
			continue
		}
		name := ""
		if len(sub.root.Path) > 0 {
			name = sub.root.Path[len(sub.root.Path)-1]
		}
		if name == "eth0" || name == "eth1" {
			tagValueRoots++
			if sub.priority != 400 {
				t.Errorf("subtree at %v has priority %d, want 400", sub.root.Path, sub.priority)
			}
		}
	}
	if tagValueRoots != 2 {
		t.Errorf("got %d tag-value subtrees, want 2 (eth0, eth1)", tagValueRoots)
	}
}
