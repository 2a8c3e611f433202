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

package confdenv

// BuildStack loads the environment contract and builds the shared
// Stack, the common first step of every cmd/* main (including
// cli-shell-api's command tree, which is not built through Main since
// it dispatches several cobra subcommands instead of one).
func BuildStack() (*Stack, error) {
	env := Load()
	DumpEnv()
	return Build(env, NopTemplateSource{}, ExternalTypeChecker{})
}

// SplitPathValue splits args into a schema-resolved path and an
// optional trailing value, for set/delete: args is walked one
// component at a time against stack.Registry until the longest
// resolving prefix names a leaf node (not a tag, not typeless); any
// remaining single argument after that point is the value. A path that
// never resolves to a leaf within args is returned whole, with no
// value, letting Session.Set/Delete report the resulting error.
func SplitPathValue(stack *Stack, args []string) (path []string, value string) {
	for i := 1; i <= len(args); i++ {
		prefix := args[:i]
		n := stack.Registry.Descendant(prefix)
		if n != nil && !n.IsTag && !n.IsTypeless() {
			if i < len(args) {
				return prefix, args[i]
			}
			return prefix, ""
		}
	}
	return args, ""
}

// SplitOnTo splits args on a literal "to" element, the CLI convention
// rename/copy/move use to separate a source path from its destination
// (e.g. `rename interfaces ethernet eth0 to eth1`, `move interfaces
// ethernet eth0 to interfaces bonding bond0`). ok is false if "to" does
// not appear exactly once.
func SplitOnTo(args []string) (before, after []string, ok bool) {
	idx := -1
	for i, a := range args {
		if a == "to" {
			if idx != -1 {
				return nil, nil, false
			}
			idx = i
		}
	}
	if idx <= 0 || idx == len(args)-1 {
		return nil, nil, false
	}
	return args[:idx], args[idx+1:], true
}
