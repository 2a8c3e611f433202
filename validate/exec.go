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

package validate

import "github.com/netconfd/confd/schema"

// Runner executes an external EXEC/ASSIGN command and reports its exit
// status, per §5's process model. It is implemented by package runner
// (C10) and kept here as an interface so validate never imports the
// process-execution machinery directly; set-time syntax evaluation
// never constructs an EvalContext with InExec true, so most callers
// never need a Runner at all.
type Runner interface {
	Run(ctx *EvalContext, command string) (ok bool, stdout string, err error)
}

// evalExec runs ctx's bound command through v.Runner and reports
// whether it exited zero. evalBool reaches it for an EXEC node in any
// mode; a Validator with no Runner set evaluates every EXEC node to
// false.
func (v *Validator) evalExec(ctx *EvalContext, n *schema.ActionNode) (bool, string, error) {
	if v.Runner == nil {
		return false, "", nil
	}
	ok, _, err := v.Runner.Run(ctx, substituteAt(n.Command, ctx.At))
	if err != nil {
		return false, "", err
	}
	return ok, "", nil
}

// evalAssign runs ctx's bound command for its side effect and always
// reports success, matching the action-tree's use of ASSIGN as a
// commit-time side-effecting statement rather than a predicate (§4.4).
func (v *Validator) evalAssign(ctx *EvalContext, n *schema.ActionNode) (bool, string, error) {
	if v.Runner == nil {
		return true, "", nil
	}
	if _, _, err := v.Runner.Run(ctx, substituteAt(n.Command, ctx.At)); err != nil {
		return false, "", err
	}
	return true, "", nil
}
