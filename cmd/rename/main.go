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

// Command rename implements the `rename` entry point of spec.md §6:
// `rename PATH-TO-OLD-TAG-VALUE to NEW-NAME`, the path's last component
// being the tag value to rename and everything before it the enclosing
// tag node.
package main

import (
	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/internal/confdenv"
)

func main() {
	confdenv.Main("rename PATH to NEW-NAME", "rename a tag value", 3, run)
}

func run(stack *confdenv.Stack, args []string) error {
	oldPath, after, ok := confdenv.SplitOnTo(args)
	if !ok || len(after) != 1 {
		return errs.New(errs.KindInvalidPath, args, `usage: rename PATH to NEW-NAME`)
	}
	tag, old := oldPath[:len(oldPath)-1], oldPath[len(oldPath)-1]
	if err := stack.Session.Rename(tag, old, after[0]); err != nil {
		return err
	}
	return stack.Persist()
}
