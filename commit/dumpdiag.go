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
	"sort"
	"strings"

	"github.com/golang/glog"

	"github.com/netconfd/confd/cpath"
	"github.com/netconfd/confd/diff"
	"github.com/netconfd/confd/internal/dump"
)

// logSubtreeDiff renders a subtree's pre-commit (active) and
// post-commit (working) leaf values as text and logs a unified diff
// between them at glog.V(2), purely for commit diagnostics — never
// part of any cmd/* stdout contract.
func logSubtreeDiff(st *subtree) {
	if !glog.V(2) {
		return
	}
	before := renderValues(st.root, true)
	after := renderValues(st.root, false)
	text, err := dump.UnifiedDiff(cpath.String(st.root.Path), before, after)
	if err != nil {
		glog.V(2).Infof("commit: diff render failed at %v: %v", st.root.Path, err)
		return
	}
	if text != "" {
		glog.V(2).Infof("commit: subtree diff at %v:\n%s", st.root.Path, text)
	}
}

// renderValues flattens every leaf under n into "path=value" lines,
// from the active side when fromActive is true, otherwise the working
// side, sorted for a stable diff.
func renderValues(n *diff.Node, fromActive bool) string {
	var lines []string
	collectValues(n, fromActive, &lines)
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func collectValues(n *diff.Node, fromActive bool, out *[]string) {
	present := n.InWorking
	if fromActive {
		present = n.InActive
	}
	if present {
		for _, vd := range n.Values {
			if (fromActive && vd.ActiveIndex >= 0) || (!fromActive && vd.WorkingIndex >= 0) {
				*out = append(*out, cpath.String(n.Path)+"="+vd.Value)
			}
		}
	}
	for _, c := range n.Children {
		collectValues(c, fromActive, out)
	}
}
