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

// Command move implements the `move` entry point of spec.md §6 ("sugar:
// equivalent to edit parent; rename"): `move PATH-TO-TAG-VALUE to
// NEW-PARENT-PATH`, relocating a tag value's subtree to a new parent
// tag node of the same kind.
package main

import (
	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/internal/confdenv"
)

func main() {
	confdenv.Main("move PATH to NEW-PARENT", "move a tag value's subtree to a new parent", 3, run)
}

func run(stack *confdenv.Stack, args []string) error {
	oldPath, newParent, ok := confdenv.SplitOnTo(args)
	if !ok || len(oldPath) < 1 || len(newParent) < 1 {
		return errs.New(errs.KindInvalidPath, args, `usage: move PATH to NEW-PARENT`)
	}
	oldParent, name := oldPath[:len(oldPath)-1], oldPath[len(oldPath)-1]
	if err := stack.Session.Move(oldParent, name, newParent); err != nil {
		return err
	}
	return stack.Persist()
}
