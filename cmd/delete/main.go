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

// Command delete implements the `delete` entry point of spec.md §6.
package main

import (
	"github.com/netconfd/confd/internal/confdenv"
)

func main() {
	confdenv.Main("delete PATH... [VALUE]", "delete a configuration node or value", 1, run)
}

func run(stack *confdenv.Stack, args []string) error {
	path, value := confdenv.SplitPathValue(stack, args)
	if err := stack.Session.Delete(path, value); err != nil {
		return err
	}
	return stack.Persist()
}
