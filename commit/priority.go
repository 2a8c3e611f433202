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

package commit

import (
	"math"

	"github.com/golang/glog"

	"github.com/netconfd/confd/diff"
)

// subtree is one priority subtree of §4.8's priority-extraction forest.
// The tree of subtrees mirrors the commit tree's ancestor/descendant
// structure: subtree.parent is the nearest enclosing priority subtree,
// possibly several plain (unprioritized) commit-tree levels above
// subtree.root.
type subtree struct {
	root        *diff.Node
	priority    int
	hasPriority bool
	parent       *subtree
	children     []*subtree
	succeeded    bool
	skipped      bool
	deleteFailed bool
}

// noPriority is the implicit priority of the synthetic top-level
// subtree, lower than any real template priority can be, so the root
// subtree always runs first on the create path and last on delete.
const noPriority = math.MinInt64

// extractSubtrees partitions tree into the priority-extraction forest
// of §4.8, returning every subtree (including the synthetic root) in
// no particular order, and a lookup from a commit-tree node to the
// subtree it is the root of (used to find a subtree's local execution
// boundary: its own descendants up to, but not including, any nested
// subtree's root).
func extractSubtrees(tree *diff.Node) ([]*subtree, map[*diff.Node]*subtree) {
	roots := map[*diff.Node]*subtree{}
	root := &subtree{root: tree, priority: noPriority, hasPriority: false}
	roots[tree] = root
	all := []*subtree{root}
	extractInto(tree, root, roots, &all)
	return all, roots
}

func extractInto(n *diff.Node, enclosing *subtree, roots map[*diff.Node]*subtree, all *[]*subtree) {
	for _, child := range n.Children {
		// A tag node itself never roots a priority subtree, even if its
		// template carries a Priority: commit-algorithm.cpp only detaches
		// "non-tag" nodes ("'tag nodes' not used in prio tree"). Its tag
		// values (the IsTag node's children) are ordinary nodes and are
		// eligible, so a Priority on the tag node's own template applies
		// to nothing and the walk simply continues into its children
		// without creating a subtree here.
		if child.Template != nil && child.Template.Priority != nil && !child.Template.IsTag {
			st := &subtree{
				root:        child,
				priority:    int(*child.Template.Priority),
				hasPriority: true,
				parent:      enclosing,
			}
			enforceHierarchicalConstraint(st)
			enclosing.children = append(enclosing.children, st)
			roots[child] = st
			*all = append(*all, st)
			extractInto(child, st, roots, all)
			continue
		}
		extractInto(child, enclosing, roots, all)
	}
}

// enforceHierarchicalConstraint implements §4.8's rule that a priority
// subtree's priority must be strictly greater than its parent
// subtree's: on violation it warns and raises the child to parent+1,
// rather than rejecting the commit outright.
func enforceHierarchicalConstraint(st *subtree) {
	if !st.parent.hasPriority {
		return
	}
	if st.priority > st.parent.priority {
		return
	}
	glog.Warningf("commit: priority %d at %v does not exceed parent priority %d; raising to %d",
		st.priority, st.root.Path, st.parent.priority, st.parent.priority+1)
	st.priority = st.parent.priority + 1
}
