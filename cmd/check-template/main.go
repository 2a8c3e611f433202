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

// Command check-template implements the internal `check-template` entry
// point of spec.md §6: it resolves a path against the already-parsed
// template tree and reports whether it is valid, the one piece of
// "does this template path make sense" checking that belongs to the
// core rather than to the external template-DSL lexer/parser (itself a
// Non-goal; see schema.Source).
package main

import (
	"fmt"

	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/internal/confdenv"
)

func main() {
	confdenv.Main("check-template PATH...", "validate a path against the template tree", 1, run)
}

func run(stack *confdenv.Stack, args []string) error {
	n := stack.Registry.Descendant(args)
	if n == nil {
		return errs.New(errs.KindInvalidPath, args, "the specified configuration node is not valid")
	}
	fmt.Println("valid=true")
	return nil
}
