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

// Command commit implements the `commit` entry point of spec.md §6:
// runs the full commit engine (C8) and reports SUCCESS/PARTIAL/FAILURE,
// with the failed subtrees listed on stderr whenever any failed, and a
// dump of the whole commit outcome on stderr when --debug is passed.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/internal/confdenv"
	"github.com/netconfd/confd/internal/dump"
)

func main() {
	confdenv.Main("commit", "apply all pending changes to the active configuration", 0, run)
}

func run(stack *confdenv.Stack, args []string) error {
	outcome, err := stack.RunCommit(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("status=%s\n", outcome.Status)
	if viper.GetBool("debug") {
		fmt.Fprintln(os.Stderr, dump.Sdump(outcome))
	}
	if len(outcome.Failed) > 0 {
		fmt.Fprintln(os.Stderr, outcome.Failed.Error())
		return &errs.CfgError{Kind: outcome.Failed.WorstKind(), Msg: "commit did not fully succeed"}
	}
	return nil
}
