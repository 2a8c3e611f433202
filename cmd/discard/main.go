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

// Command discard implements the `discard` entry point of spec.md §6:
// it removes everything from the change layer and, per SPEC_FULL.md's
// supplemented accounting (grounded in commit2.c's session teardown),
// echoes the number of top-level changes it discarded.
package main

import (
	"fmt"

	"github.com/netconfd/confd/internal/confdenv"
)

func main() {
	confdenv.Main("discard", "discard all uncommitted changes", 0, run)
}

func run(stack *confdenv.Stack, args []string) error {
	n := stack.Session.Discard()
	fmt.Printf("discarded=%d\n", n)
	return stack.Persist()
}
