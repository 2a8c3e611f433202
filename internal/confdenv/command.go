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

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netconfd/confd/cpath"
	"github.com/netconfd/confd/errs"
)

// Verb is one cmd/* entry point's body: args are the whitespace-
// separated path components (plus, for set/delete/comment, a trailing
// value) cobra already split for it, exactly as §6 describes them.
type Verb func(stack *Stack, args []string) error

// Main builds a single-command cobra.Command in the shape of the
// teacher's gnmidiff/cmd/setrequest.go (one cobra.Command per binary,
// not a subcommand tree — cli-shell-api is the sole exception, built
// separately as a command tree), runs run against the Stack built from
// the bound environment contract, maps any returned *errs.CfgError
// (or errs.Errors) onto the exit-code contract of §6, and calls
// glog.Flush() before the process exits. The --debug persistent flag
// registered here is read back via viper.GetBool("debug") by any verb
// that wants it — cmd/commit does, to print its internal/dump-rendered
// outcome to stderr, matching §3's "cmd/commit prints it to stderr
// when --debug is passed".
func Main(use, short string, minArgs int, run Verb) {
	defer glog.Flush()

	var debug bool
	root := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(minArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := BuildStack()
			if err != nil {
				return errs.Wrap(errs.KindIO, nil, err)
			}
			return run(stack, args)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "print verbose diagnostics to stderr")
	root.Flags().AddGoFlagSet(flag.CommandLine)
	viper.BindPFlags(root.PersistentFlags())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(exitCode(err))
	}
}

// errorMessage renders err the way §6 wants stderr formatted: a
// structured errs value renders its own path-prefixed text, anything
// else falls back to err.Error().
func errorMessage(err error) string {
	if ce, ok := err.(*errs.CfgError); ok {
		if len(ce.Path) > 0 {
			return fmt.Sprintf("%s: %s", cpath.String(ce.Path), ce.Error())
		}
		return ce.Error()
	}
	return err.Error()
}

// exitCode maps err onto §6's exit-code contract: 0 is unreachable
// here (Execute only reports actual errors), 1 for user errors, 255
// for internal/I-O inconsistencies.
func exitCode(err error) int {
	switch e := err.(type) {
	case *errs.CfgError:
		return e.ExitCode()
	case errs.Errors:
		return (&errs.CfgError{Kind: e.WorstKind()}).ExitCode()
	default:
		return 255
	}
}
