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

// Package validate implements the C4 validator: path resolution for
// "set" style operations, and value validation against a template's
// declared types and embedded syntax action tree.
package validate

import (
	"strings"

	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/schema"
)

// TypeChecker is the external collaborator that validates a value
// against a single primitive type name (§1: "the core only invokes
// it through a single validate_type(name, value) call").
type TypeChecker interface {
	ValidateType(typeName schema.Type, value string) error
}

// Validator implements C4 over a schema registry, a type checker, and
// a Resolver for evaluating VAR operands of the syntax action tree.
type Validator struct {
	Registry *schema.Registry
	Types    TypeChecker
	Eval     Evaluator
	Runner   Runner
}

// Evaluator resolves VAR/ASSIGN operands during syntax-action
// evaluation; it is implemented by package varref (C5), kept as an
// interface here so validate does not import varref directly (varref
// itself depends on the schema registry, not on validate).
type Evaluator interface {
	// ResolveOne resolves ref (as it appears in a VAR node) against
	// view, relative to curPath, and returns the single value a
	// scalar comparison needs.
	ResolveOne(view EvalView, curPath []string, ref string) (value string, typ schema.Type, err error)
	// ResolveSet resolves ref to every (value, type) pair it denotes,
	// for "in" comparisons and @@ expansion.
	ResolveSet(view EvalView, curPath []string, ref string) ([]ResolvedValue, error)
}

// ResolvedValue is a single tuple produced by variable-reference
// resolution (§4.5).
type ResolvedValue struct {
	Path  []string
	Value string
	Type  schema.Type
}

// EvalView selects which configuration view $VAR references resolve
// against.
type EvalView int

const (
	ViewWorking EvalView = iota
	ViewActive
)

// NewValidator builds a Validator.
func NewValidator(reg *schema.Registry, types TypeChecker, eval Evaluator) *Validator {
	return &Validator{Registry: reg, Types: types, Eval: eval}
}

// ValidateSetPath validates that p resolves against the template tree
// for a "set" style operation (§4.4): it must resolve via the
// registry; a typeless interior node may terminate the path without a
// value; a path that must carry a value (tag value, leaf value) is
// checked separately by the caller via ValidateValue once the value
// itself is known.
func (v *Validator) ValidateSetPath(p []string) error {
	res := v.Registry.Parse(p)
	if res == nil {
		return errs.New(errs.KindInvalidPath, p, "The specified configuration node is not valid")
	}
	return nil
}

// ValidateValue validates value against the template node at p,
// running the checks of §4.4 item-by-item: illegal characters, the
// declared primitive type(s), and the template's "syntax" action tree.
func (v *Validator) ValidateValue(p []string, value string) error {
	if err := checkIllegalChars(value); err != nil {
		return errs.Wrap(errs.KindInvalidValue, p, err)
	}

	res := v.Registry.Parse(p)
	if res == nil {
		return errs.New(errs.KindInvalidPath, p, "The specified configuration node is not valid")
	}
	n := res.Node

	if n.NumTypes() > 0 && v.Types != nil {
		if err := v.validateType(n, value); err != nil {
			if n.TypeHelp != "" {
				return errs.New(errs.KindInvalidValue, p, n.TypeHelp)
			}
			return errs.New(errs.KindInvalidValue, p, typeErrorMessage(n, value))
		}
	}

	if syntax := n.Actions[schema.ActionSyntax]; syntax != nil {
		ctx := &EvalContext{Path: p, At: value, View: ViewWorking}
		ok, msg, err := v.evalBool(ctx, syntax)
		if err != nil {
			return errs.Wrap(errs.KindSyntaxAction, p, err)
		}
		if !ok {
			if msg == "" {
				msg = "syntax check failed"
			}
			return errs.New(errs.KindSyntaxAction, p, msg)
		}
	}

	return nil
}

func (v *Validator) validateType(n *schema.Node, value string) error {
	if err := v.Types.ValidateType(n.Type1, value); err == nil {
		return nil
	} else if n.NumTypes() < 2 {
		return err
	}
	return v.Types.ValidateType(n.Type2, value)
}

func typeErrorMessage(n *schema.Node, value string) string {
	name := string(n.Type1)
	if n.NumTypes() == 2 {
		name = string(n.Type1) + "\" or \"" + string(n.Type2)
	}
	return "\"" + value + "\" is not a valid value of type \"" + name + "\""
}

func checkIllegalChars(v string) error {
	if strings.ContainsAny(v, "'\"\n") {
		return errs.New(errs.KindInvalidValue, nil, "value must not contain a single quote, double quote, or newline")
	}
	return nil
}

// CheckMultiLimit (with CheckTagLimit below) enforces the
// tag_limit/multi_limit bound of §7, called
// by the edit API (C6) before a set is applied. It is exported here,
// rather than living in the edit package, because it is driven purely
// by template data the validator already has cached.
func (v *Validator) CheckMultiLimit(n *schema.Node, currentCount int) error {
	if n.MultiLimit == 0 || currentCount < int(n.MultiLimit) {
		return nil
	}
	return errs.New(errs.KindLimitExceeded, nil, limitMessage(n.MultiLimit))
}

func (v *Validator) CheckTagLimit(n *schema.Node, currentCount int) error {
	if n.TagLimit == 0 || currentCount < int(n.TagLimit) {
		return nil
	}
	return errs.New(errs.KindLimitExceeded, nil, limitMessage(n.TagLimit))
}

func limitMessage(limit uint) string {
	return "number of values exceeds limit (" + itoa(limit) + " allowed)"
}

func itoa(u uint) string {
	if u == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for u > 0 {
		i--
		b[i] = byte('0' + u%10)
		u /= 10
	}
	return string(b[i:])
}
