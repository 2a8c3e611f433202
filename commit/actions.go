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
	"context"

	"github.com/golang/glog"

	"github.com/netconfd/confd/diff"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/store"
)

// runSyntaxRecheck re-runs the "syntax" action (§4.4) of every changed
// or added node in the subtree bottom-up, per §4.8 step 2: values that
// passed at set time can be invalidated by other changes committed in
// the same transaction (a variable reference resolving differently,
// for instance), so they are re-checked once more against the final
// working tree before anything is actually applied.
func (e *Engine) runSyntaxRecheck(n *diff.Node, roots map[*diff.Node]*subtree) error {
	for _, c := range n.Children {
		if roots[c] != nil {
			continue
		}
		if err := e.runSyntaxRecheck(c, roots); err != nil {
			return err
		}
	}
	if n.Template == nil || n.Template.IsTag || n.Template.IsTypeless() {
		return nil
	}
	if n.Status != diff.StatusAdded && n.Status != diff.StatusChanged {
		return nil
	}
	if n.Template.IsMulti {
		for _, vd := range n.Values {
			if vd.Status == diff.StatusDeleted {
				continue
			}
			if err := e.Validator.ValidateValue(n.Path, vd.Value); err != nil {
				return err
			}
		}
		return nil
	}
	for _, v := range e.Store.ReadValues(n.Path, store.Working) {
		if err := e.Validator.ValidateValue(n.Path, v); err != nil {
			return err
		}
	}
	return nil
}

// runDeletePass implements §4.8 step 3: post-order, bottom-up. A
// node whose descendant failed to delete is itself left undeleted —
// failure is sticky upward.
func (e *Engine) runDeletePass(ctx context.Context, n *diff.Node, roots map[*diff.Node]*subtree, ancestors []*diff.Node) bool {
	ok := true
	childAncestors := append(append([]*diff.Node{}, ancestors...), n)
	for _, c := range n.Children {
		if roots[c] != nil {
			continue
		}
		if !e.runDeletePass(ctx, c, roots, childAncestors) {
			ok = false
		}
	}
	if !ok {
		return false
	}

	if n.Status == diff.StatusDeleted {
		if !e.runDeleteHooks(ctx, n, ancestors, "") {
			return false
		}
	}
	if n.Status == diff.StatusChanged && n.Template != nil && n.Template.IsMulti {
		for _, vd := range n.Values {
			if vd.Status != diff.StatusDeleted {
				continue
			}
			if !e.runDeleteHooks(ctx, n, ancestors, vd.Value) {
				return false
			}
		}
	}
	return true
}

// runCreateUpdatePass implements §4.8 step 4: pre-order, top-down. A
// node whose own create hook fails blocks descent into its
// descendants, but does not stop sibling subtrees elsewhere in the
// pass; a failed update hook marks the pass failed while its
// descendants are still visited.
func (e *Engine) runCreateUpdatePass(ctx context.Context, n *diff.Node, roots map[*diff.Node]*subtree, ancestors []*diff.Node) bool {
	ok := true

	switch n.Status {
	case diff.StatusAdded:
		if !e.runCreateHooks(ctx, n, ancestors, "") {
			return false
		}
	case diff.StatusChanged:
		if !e.runUpdateHook(ctx, n, "") {
			ok = false
		}
		if n.Template != nil && n.Template.IsMulti {
			for _, vd := range n.Values {
				if vd.Status != diff.StatusAdded {
					continue
				}
				if !e.runCreateHooks(ctx, n, ancestors, vd.Value) {
					ok = false
				}
			}
		}
	}

	childAncestors := append(append([]*diff.Node{}, ancestors...), n)
	for _, c := range n.Children {
		if roots[c] != nil {
			continue
		}
		if !e.runCreateUpdatePass(ctx, c, roots, childAncestors) {
			ok = false
		}
	}
	return ok
}

func (e *Engine) runDeleteHooks(ctx context.Context, n *diff.Node, ancestors []*diff.Node, at string) bool {
	if !e.runHook(ctx, resolveInherited(n, ancestors, schema.ActionBegin), at, n.Path, "begin") {
		return false
	}
	if !e.runHook(ctx, ownAction(n, schema.ActionDelete), at, n.Path, "delete") {
		return false
	}
	return e.runHook(ctx, resolveInherited(n, ancestors, schema.ActionEnd), at, n.Path, "end")
}

func (e *Engine) runCreateHooks(ctx context.Context, n *diff.Node, ancestors []*diff.Node, at string) bool {
	if !e.runHook(ctx, resolveInherited(n, ancestors, schema.ActionBegin), at, n.Path, "begin") {
		return false
	}
	create := ownAction(n, schema.ActionCreate)
	if create == nil {
		create = ownAction(n, schema.ActionUpdate)
	}
	if !e.runHook(ctx, create, at, n.Path, "create") {
		return false
	}
	if !e.runHook(ctx, ownAction(n, schema.ActionActivate), at, n.Path, "activate") {
		return false
	}
	return e.runHook(ctx, resolveInherited(n, ancestors, schema.ActionEnd), at, n.Path, "end")
}

func (e *Engine) runUpdateHook(ctx context.Context, n *diff.Node, at string) bool {
	return e.runHook(ctx, ownAction(n, schema.ActionUpdate), at, n.Path, "update")
}

func (e *Engine) runHook(ctx context.Context, a *schema.ActionNode, at string, path []string, kind string) bool {
	if a == nil {
		return true
	}
	ok, _, err := e.Runner.RunActions(ctx, a, at)
	if err != nil {
		glog.Errorf("commit: %s action at %v: %v", kind, path, err)
		return false
	}
	if !ok {
		glog.Errorf("commit: %s action at %v exited non-zero", kind, path)
	}
	return ok
}

func ownAction(n *diff.Node, kind schema.ActionKind) *schema.ActionNode {
	if n.Template == nil {
		return nil
	}
	return n.Template.Actions[kind]
}

// resolveInherited implements §4.8's "nodes whose template has no
// begin/end inherit their nearest ancestor's enclosing block": only
// begin and end look up the ancestor chain when the node's own
// template doesn't define one.
func resolveInherited(n *diff.Node, ancestors []*diff.Node, kind schema.ActionKind) *schema.ActionNode {
	if a := ownAction(n, kind); a != nil {
		return a
	}
	for i := len(ancestors) - 1; i >= 0; i-- {
		if a := ownAction(ancestors[i], kind); a != nil {
			return a
		}
	}
	return nil
}
