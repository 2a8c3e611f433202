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

import (
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/netconfd/confd/schema"
)

// EvalContext replaces the teacher's process-global at_string/
// in_commit/current-path singletons (§9 "Global mutable state") with
// an explicit value threaded through every evaluation call. The commit
// engine constructs one EvalContext per action invocation.
type EvalContext struct {
	Path   []string
	At     string // the value being validated; bound to "@" in syntax actions
	View   EvalView
	InExec bool // true only during commit-time "exec" evaluation (ASSIGN is only legal here)
}

// evalBool evaluates an action-tree node as a boolean predicate,
// returning (ok, helpMessage, error). error is reserved for exec/eval
// failures that are not simply "the predicate is false" (e.g. a
// variable reference that fails to resolve).
func (v *Validator) evalBool(ctx *EvalContext, n *schema.ActionNode) (bool, string, error) {
	switch n.Op {
	case schema.OpList:
		for _, child := range n.Operands {
			ok, msg, err := v.evalBool(ctx, child)
			if err != nil || !ok {
				return ok, msg, err
			}
		}
		return true, "", nil

	case schema.OpAnd:
		for _, child := range n.Operands {
			ok, msg, err := v.evalBool(ctx, child)
			if err != nil || !ok {
				return ok, msg, err
			}
		}
		return true, "", nil

	case schema.OpOr:
		var lastMsg string
		for _, child := range n.Operands {
			ok, msg, err := v.evalBool(ctx, child)
			if err != nil {
				return false, "", err
			}
			if ok {
				return true, "", nil
			}
			lastMsg = msg
		}
		return false, lastMsg, nil

	case schema.OpNot:
		if len(n.Operands) != 1 {
			return false, "", nil
		}
		ok, _, err := v.evalBool(ctx, n.Operands[0])
		if err != nil {
			return false, "", err
		}
		return !ok, "", nil

	case schema.OpHelp:
		if len(n.Operands) != 1 {
			return false, "", nil
		}
		ok, _, err := v.evalBool(ctx, n.Operands[0])
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, n.HelpText, nil
		}
		return true, "", nil

	case schema.OpCond:
		return v.evalCond(ctx, n)

	case schema.OpPattern:
		return v.evalPattern(ctx, n)

	case schema.OpExec:
		return v.evalExec(ctx, n)

	case schema.OpAssign:
		if !ctx.InExec {
			// §4.4 item "ASSIGN ... only evaluated in exec mode during
			// commit, not during set-time validation": treat as a
			// vacuous success outside exec mode.
			return true, "", nil
		}
		return v.evalAssign(ctx, n)

	default:
		return false, "", nil
	}
}

// evalValue resolves a VAL/VAR leaf operand to its (string, type)
// pair, for use as an operand of a COND or "in" comparison.
//
// A VAR node's reference string is a path expression, not free text:
// "@"/"@@" inside it select "this position's value(s)" and are
// resolved by the Evaluator's own path walk, never by substituting
// ctx.At into the string. The one exception is the bare reference
// "@" with nothing else in it, which denotes a pure self-reference
// ($VAR(@)) to the value currently being evaluated — that value isn't
// committed to the store yet, so it has to be supplied here rather
// than looked up.
func (v *Validator) evalValue(ctx *EvalContext, n *schema.ActionNode) (string, schema.Type, error) {
	switch n.Op {
	case schema.OpVal:
		if n.Literal == "@" {
			return ctx.At, v.selfType(ctx), nil
		}
		return substituteAt(n.Literal, ctx.At), schema.TypeText, nil
	case schema.OpVar:
		if n.VarRef == "@" {
			return ctx.At, v.selfType(ctx), nil
		}
		return v.Eval.ResolveOne(ctx.View, ctx.Path, n.VarRef)
	default:
		return "", schema.TypeText, nil
	}
}

// selfType returns the declared type of the node at ctx.Path, used to
// give a self-reference ($VAR(@)) the right comparison semantics.
func (v *Validator) selfType(ctx *EvalContext) schema.Type {
	if n := v.Registry.Descendant(ctx.Path); n != nil {
		return n.Type1
	}
	return schema.TypeText
}

func substituteAt(s, at string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	return strings.ReplaceAll(s, "@", at)
}

func (v *Validator) evalCond(ctx *EvalContext, n *schema.ActionNode) (bool, string, error) {
	if len(n.Operands) != 2 {
		return false, "", nil
	}
	left, right := n.Operands[0], n.Operands[1]

	if n.CondOp == schema.CmpIn {
		lv, _, err := v.evalValue(ctx, left)
		if err != nil {
			return false, "", err
		}
		set, err := v.evalSet(ctx, right)
		if err != nil {
			return false, "", err
		}
		for _, rv := range set {
			if lv == rv.Value {
				return true, "", nil
			}
		}
		return false, "", nil
	}

	lv, lt, err := v.evalValue(ctx, left)
	if err != nil {
		return false, "", err
	}
	rv, rt, err := v.evalValue(ctx, right)
	if err != nil {
		return false, "", err
	}
	typ := lt
	if typ == schema.TypeText && rt != schema.TypeText {
		typ = rt
	}
	cmp := compareByType(typ, lv, rv)
	switch n.CondOp {
	case schema.CmpEQ:
		return cmp == 0, "", nil
	case schema.CmpNE:
		return cmp != 0, "", nil
	case schema.CmpLT:
		return cmp < 0, "", nil
	case schema.CmpLE:
		return cmp <= 0, "", nil
	case schema.CmpGT:
		return cmp > 0, "", nil
	case schema.CmpGE:
		return cmp >= 0, "", nil
	default:
		return false, "", nil
	}
}

// evalSet resolves the right-hand operand of an "in" comparison to its
// full multiset of values, per §4.4 item 4's short-circuit-on-first-
// match semantics (the short-circuit itself lives in evalCond).
func (v *Validator) evalSet(ctx *EvalContext, n *schema.ActionNode) ([]ResolvedValue, error) {
	if n.Op == schema.OpVar {
		if n.VarRef == "@" {
			return []ResolvedValue{{Value: ctx.At, Type: v.selfType(ctx)}}, nil
		}
		return v.Eval.ResolveSet(ctx.View, ctx.Path, n.VarRef)
	}
	val, typ, err := v.evalValue(ctx, n)
	if err != nil {
		return nil, err
	}
	return []ResolvedValue{{Value: val, Type: typ}}, nil
}

// compareByType implements §4.4 item 4's type-dependent comparison
// semantics: numeric for int, tuple-of-unsigned-parts for ipv4/ipv6/
// mac, byte-string for text and bool.
func compareByType(t schema.Type, a, b string) int {
	switch t {
	case schema.TypeInt, schema.TypePriority:
		ai, aerr := strconv.ParseInt(a, 10, 64)
		bi, berr := strconv.ParseInt(b, 10, 64)
		if aerr == nil && berr == nil {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			default:
				return 0
			}
		}
	case schema.TypeIPv4, schema.TypeIPv4Net, schema.TypeIPv6, schema.TypeIPv6Net:
		if c, ok := compareIPTuples(a, b); ok {
			return c
		}
	case schema.TypeMAC:
		if c, ok := compareMACTuples(a, b); ok {
			return c
		}
	}
	return strings.Compare(a, b)
}

func compareIPTuples(a, b string) (int, bool) {
	ah, al := splitPrefix(a)
	bh, bl := splitPrefix(b)
	aip := net.ParseIP(ah)
	bip := net.ParseIP(bh)
	if aip == nil || bip == nil {
		return 0, false
	}
	c := compareBytes(aip, bip)
	if c != 0 {
		return c, true
	}
	if al != bl {
		if al < bl {
			return -1, true
		}
		return 1, true
	}
	return 0, true
}

func splitPrefix(s string) (addr string, prefix int) {
	idx := strings.IndexByte(s, '/')
	if idx < 0 {
		return s, -1
	}
	p, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		p = -1
	}
	return s[:idx], p
}

func compareBytes(a, b net.IP) int {
	a16, b16 := a.To16(), b.To16()
	for i := range a16 {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func compareMACTuples(a, b string) (int, bool) {
	amac, aerr := net.ParseMAC(a)
	bmac, berr := net.ParseMAC(b)
	if aerr != nil || berr != nil {
		return 0, false
	}
	for i := range amac {
		if amac[i] != bmac[i] {
			if amac[i] < bmac[i] {
				return -1, true
			}
			return 1, true
		}
	}
	return 0, true
}

func (v *Validator) evalPattern(ctx *EvalContext, n *schema.ActionNode) (bool, string, error) {
	re, err := regexp.Compile(n.Pattern)
	if err != nil {
		return false, "", err
	}
	return re.MatchString(ctx.At), "", nil
}
