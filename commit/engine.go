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

// Package commit implements the C8 commit engine of §4.8: priority
// extraction, the delete/update priority queues, per-subtree action
// execution, and publication of the new active layer.
package commit

import (
	"context"
	"sort"

	"github.com/golang/glog"

	"github.com/netconfd/confd/diff"
	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/internal/dump"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/store"
	"github.com/netconfd/confd/validate"
)

// ActionRunner is implemented by package runner; kept as an interface
// here so the commit engine is testable without spawning real
// processes.
type ActionRunner interface {
	RunActions(ctx context.Context, n *schema.ActionNode, at string) (bool, string, error)
}

// Outcome is the §4.8 "Outcome tracking" report for one commit. Failed
// accumulates one errs.CfgError per priority subtree that did not
// apply, each carrying the subtree's root path, so cmd/commit can
// print per-path context instead of a bare pass/fail flag.
type Outcome struct {
	Status string // "SUCCESS", "PARTIAL", or "FAILURE"
	Failed errs.Errors
}

// Engine drives a commit over a store.
type Engine struct {
	Store     *store.Store
	Registry  *schema.Registry
	Validator *validate.Validator
	Runner    ActionRunner
	Lock      Locker
}

// Locker acquires the process-wide commit lock of §4.8 "Locking".
type Locker interface {
	TryLock() (bool, error)
	Unlock() error
}

// New builds an Engine.
func New(st *store.Store, reg *schema.Registry, v *validate.Validator, r ActionRunner, lock Locker) *Engine {
	return &Engine{Store: st, Registry: reg, Validator: v, Runner: r, Lock: lock}
}

// Commit runs the full commit sequence of §4.8 and publishes the new
// active layer.
func (e *Engine) Commit(ctx context.Context) (Outcome, error) {
	if e.Lock != nil {
		ok, err := e.Lock.TryLock()
		if err != nil {
			return Outcome{}, errs.Wrap(errs.KindIO, nil, err)
		}
		if !ok {
			return Outcome{}, errs.New(errs.KindLocked, nil, "configuration locked")
		}
		defer e.Lock.Unlock()
	}

	tree := diff.New(e.Store, e.Registry).CommitTree()
	if glog.V(2) {
		glog.V(2).Infof("commit: pre-commit tree:\n%s", dump.PrettyTree(tree))
	}
	subtrees, roots := extractSubtrees(tree)

	deleteQueue, updateQueue := scheduleQueues(subtrees)

	for _, st := range deleteQueue {
		e.runSubtree(ctx, st, roots, commitActionDelete)
	}
	for _, st := range updateQueue {
		e.runSubtree(ctx, st, roots, commitActionSet)
	}

	outcome, err := e.publish(subtrees)
	if glog.V(2) {
		glog.V(2).Infof("commit: outcome:\n%s", dump.Sdump(outcome))
	}
	return outcome, err
}

// scheduleQueues builds the delete and update priority queues of
// §4.8. The spec's prose description of the two orderings is
// internally inconsistent about which numeric direction "ascending"/
// "descending" means; this implementation resolves the ambiguity in
// favor of the rule it states as the actual rationale — a parent
// subtree's actions run before its children's on the create/update
// path and after them on the delete path — which, combined with the
// hierarchical constraint that a child's priority number always
// exceeds its parent's, means: delete highest priority number first
// (children before parents), update/create lowest priority number
// first (parents before children). See DESIGN.md.
func scheduleQueues(subtrees []*subtree) (deleteQueue, updateQueue []*subtree) {
	deleteQueue = append([]*subtree{}, subtrees...)
	sort.SliceStable(deleteQueue, func(i, j int) bool {
		return deleteQueue[i].priority > deleteQueue[j].priority
	})
	updateQueue = append([]*subtree{}, subtrees...)
	sort.SliceStable(updateQueue, func(i, j int) bool {
		return updateQueue[i].priority < updateQueue[j].priority
	})
	return deleteQueue, updateQueue
}

type commitAction int

const (
	commitActionDelete commitAction = iota
	commitActionSet
)

// runSubtree executes the per-subtree steps of §4.8 for phase (delete
// or update/create); it is called once per subtree per phase, so a
// subtree's delete-phase and update-phase work happen in separate
// passes over the whole forest, matching "process delete queue to
// completion, then update queue".
func (e *Engine) runSubtree(ctx context.Context, st *subtree, roots map[*diff.Node]*subtree, phase commitAction) {
	if phase == commitActionDelete {
		if !localHasStatus(st.root, roots, diff.StatusDeleted) && !localHasMultiValueStatus(st.root, roots, diff.StatusDeleted) {
			return
		}
		if err := e.runSyntaxRecheck(st.root, roots); err != nil {
			glog.Errorf("commit: syntax re-check failed at %v: %v", st.root.Path, err)
			st.deleteFailed = true
			return
		}
		if !e.runDeletePass(ctx, st.root, roots, nil) {
			st.deleteFailed = true
		}
		return
	}

	if st.deleteFailed {
		st.succeeded = false
		return
	}
	if st.root.Status == diff.StatusUnchanged && !st.root.AnyDescendantChanged() {
		st.skipped = true
		st.succeeded = true
		return
	}
	if err := e.runSyntaxRecheck(st.root, roots); err != nil {
		glog.Errorf("commit: syntax re-check failed at %v: %v", st.root.Path, err)
		st.succeeded = false
		return
	}
	if !e.runCreateUpdatePass(ctx, st.root, roots, nil) {
		st.succeeded = false
		return
	}
	st.succeeded = true
	logSubtreeDiff(st)
}

func localHasStatus(n *diff.Node, roots map[*diff.Node]*subtree, status diff.Status) bool {
	if n.Status == status {
		return true
	}
	for _, c := range n.Children {
		if roots[c] != nil {
			continue
		}
		if localHasStatus(c, roots, status) {
			return true
		}
	}
	return false
}

func localHasMultiValueStatus(n *diff.Node, roots map[*diff.Node]*subtree, status diff.Status) bool {
	for _, vd := range n.Values {
		if vd.Status == status {
			return true
		}
	}
	for _, c := range n.Children {
		if roots[c] != nil {
			continue
		}
		if localHasMultiValueStatus(c, roots, status) {
			return true
		}
	}
	return false
}
