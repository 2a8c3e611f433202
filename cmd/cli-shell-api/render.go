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

package main

import (
	"fmt"
	"strings"

	"github.com/netconfd/confd/diff"
	"github.com/netconfd/confd/query"
)

// getTreeText and showCfgText deliberately render a plain, minimal
// text form rather than the real vyatta "show"/"compare" output: that
// formatting is an out-of-scope external collaborator (SPEC_FULL.md §4
// Non-goals), and package internal/dump is reserved for glog.V(2) debug
// diagnostics, not cmd/* stdout — so this is its own small renderer,
// just enough to make the verb usable.

func getTreeText(q *query.Facade, p []string) (string, bool) {
	n := q.GetTree(p)
	if n == nil || (!n.InActive && !n.InWorking) {
		return "", false
	}
	var b strings.Builder
	writeTreeLines(&b, n)
	return b.String(), true
}

func showCfgText(q *query.Facade, p []string) (string, bool) {
	n := q.GetTree(p)
	if n == nil || !n.InWorking {
		return "", false
	}
	var b strings.Builder
	writeWorkingLines(&b, n)
	return b.String(), true
}

func writeTreeLines(b *strings.Builder, n *diff.Node) {
	path := "/" + strings.Join(n.Path, "/")
	for _, vd := range n.Values {
		fmt.Fprintf(b, "%s=%s [%s]\n", path, vd.Value, vd.Status)
	}
	if len(n.Values) == 0 {
		fmt.Fprintf(b, "%s [%s]\n", path, n.Status)
	}
	for _, c := range n.Children {
		writeTreeLines(b, c)
	}
}

func writeWorkingLines(b *strings.Builder, n *diff.Node) {
	if !n.InWorking {
		return
	}
	path := "/" + strings.Join(n.Path, "/")
	for _, vd := range n.Values {
		if vd.WorkingIndex >= 0 {
			fmt.Fprintf(b, "%s %s\n", path, vd.Value)
		}
	}
	if len(n.Values) == 0 && len(n.Path) > 0 {
		fmt.Fprintf(b, "%s\n", path)
	}
	for _, c := range n.Children {
		writeWorkingLines(b, c)
	}
}

func listActiveText(q *query.Facade, p []string) (string, bool) {
	if !q.ExistsActive(p) {
		return "", false
	}
	var b strings.Builder
	for _, name := range q.ListActive(p) {
		fmt.Fprintln(&b, name)
	}
	return b.String(), true
}

func getTypeText(q *query.Facade, p []string) (string, bool) {
	t1, t2, ok := q.GetType(p)
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "type1=%s\n", t1)
	if t2 != "" && t2 != "none" {
		fmt.Fprintf(&b, "type2=%s\n", t2)
	}
	return b.String(), true
}

func getCommentText(q *query.Facade, p []string) (string, bool) {
	c, ok := q.GetComment(p)
	if !ok {
		return "", false
	}
	return c + "\n", true
}
