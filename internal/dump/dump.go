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

// Package dump holds the debug pretty-printers used for glog.V(2)
// commit diagnostics and cmd/commit's --debug stderr dump, never for
// cmd/* stdout: a nested
// Go-value dump (kr/pretty, as the teacher's own tests use it), an
// indented tree rendering of a diff.Node (kylelemons/godebug/pretty),
// and a unified text diff between two rendered snapshots
// (pmezard/go-difflib, transitively pulled in by kylelemons/godebug's
// own module graph).
package dump

import (
	"fmt"
	"strings"

	krpretty "github.com/kr/pretty"
	kpretty "github.com/kylelemons/godebug/pretty"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/netconfd/confd/diff"
)

// Sdump renders v as a multi-line, field-labeled Go value dump, the
// same role github.com/kr/pretty.Sprint plays in the teacher's own
// _test.go failure messages, here used for a commit.Outcome at
// glog.V(2) instead of a test assertion.
func Sdump(v interface{}) string {
	return krpretty.Sprint(v)
}

// treeNode is the shape kylelemons/godebug/pretty renders for
// PrettyTree: its own field names (not diff.Node's) are what appear in
// the indented dump, so they are deliberately terse.
type treeNode struct {
	Path     string
	Status   string
	Children []*treeNode
}

// PrettyTree renders n as an indented tree of path/status pairs using
// kylelemons/godebug/pretty, the internal analogue of the out-of-scope
// show/compare formatters — used only for glog.V(2) commit
// diagnostics, never shown to a cmd/* caller.
func PrettyTree(n *diff.Node) string {
	return kpretty.Sprint(toTreeNode(n))
}

func toTreeNode(n *diff.Node) *treeNode {
	if n == nil {
		return nil
	}
	t := &treeNode{
		Path:   "/" + strings.Join(n.Path, "/"),
		Status: n.Status.String(),
	}
	for _, c := range n.Children {
		t.Children = append(t.Children, toTreeNode(c))
	}
	return t
}

// UnifiedDiff renders a unified diff between beforeText and afterText
// (the pre-commit and post-commit rendered text of a priority
// subtree), logged at glog.V(2) during commit for diagnostics only.
func UnifiedDiff(label string, beforeText, afterText string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(beforeText),
		B:        difflib.SplitLines(afterText),
		FromFile: fmt.Sprintf("%s (active)", label),
		ToFile:   fmt.Sprintf("%s (working)", label),
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}
