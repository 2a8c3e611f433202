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

// Command set implements the `set` entry point of spec.md §6: set a
// path, optionally to an explicit value given as the last argument.
package main

import (
	"github.com/netconfd/confd/internal/confdenv"
)

func main() {
	confdenv.Main("set PATH... [VALUE]", "set a configuration value", 1, run)
}

func run(stack *confdenv.Stack, args []string) error {
	path, value := confdenv.SplitPathValue(stack, args)
	if err := stack.Session.Set(path, value); err != nil {
		return err
	}
	return stack.Persist()
}
