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

// Command cli-shell-api is the one CLI entry point of spec.md §6 that
// multiplexes several read-only queries from a single argv[0]-style
// first argument, grounded in src/cli_shell_api.cpp's subcommand
// table: exists, existsActive, getTree, showCfg, listActive, isDefault,
// getType, getComment. Unlike every other cmd/*, it is a cobra command
// tree (one cobra subcommand per verb) rather than a single
// confdenv.Main command, since it has more than one verb to dispatch.
package main

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/internal/confdenv"
	"github.com/netconfd/confd/query"
)

func main() {
	defer glog.Flush()

	root := &cobra.Command{Use: "cli-shell-api", Short: "read-only configuration queries"}
	root.AddCommand(
		boolVerb("exists", "report whether PATH exists in the working layer", func(q *query.Facade, p []string) bool { return q.Exists(p) }),
		boolVerb("existsActive", "report whether PATH exists in the active layer", func(q *query.Facade, p []string) bool { return q.ExistsActive(p) }),
		boolVerb("isDefault", "report whether PATH currently holds its schema default", func(q *query.Facade, p []string) bool { return q.IsDefault(p) }),
		textVerb("getTree", "print the commit-tree diff rooted at PATH", getTreeText),
		textVerb("showCfg", "print the working-layer configuration under PATH", showCfgText),
		textVerb("listActive", "list PATH's active-layer children, one per line", listActiveText),
		textVerb("getType", "print PATH's declared schema type(s)", getTypeText),
		textVerb("getComment", "print PATH's comment, if any", getCommentText),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func boolVerb(use, short string, f func(q *query.Facade, p []string) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PATH...",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := confdenv.BuildStack()
			if err != nil {
				return err
			}
			if !f(stack.Query, args) {
				os.Exit(1)
			}
			return nil
		},
	}
}

func textVerb(use, short string, f func(q *query.Facade, p []string) (string, bool)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PATH...",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := confdenv.BuildStack()
			if err != nil {
				return err
			}
			text, ok := f(stack.Query, args)
			if !ok {
				return errs.New(errs.KindNotExists, args, "the specified configuration node does not exist")
			}
			fmt.Print(text)
			return nil
		},
	}
}
