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

package runner_test

import (
	"context"
	"strings"
	"testing"

	"github.com/netconfd/confd/runner"
	"github.com/netconfd/confd/schema"
)

func TestRunSuccess(t *testing.T) {
	r := runner.New(runner.Env{})
	res, err := r.Run(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Ok() {
		t.Errorf("Ok() = false, want true")
	}
	if !strings.Contains(res.Output, "hello") {
		t.Errorf("Output = %q, want to contain hello", res.Output)
	}
}

func TestRunFailureExitCode(t *testing.T) {
	r := runner.New(runner.Env{})
	res, err := r.Run(context.Background(), "exit 3")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Ok() {
		t.Errorf("Ok() = true, want false")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRunStripsErrLocByDefault(t *testing.T) {
	r := runner.New(runner.Env{})
	res, err := r.Run(context.Background(), "printf '_errloc_:boom\\n'")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.HasErrLocation {
		t.Errorf("HasErrLocation = false, want true")
	}
	if strings.Contains(res.Output, "_errloc_:") {
		t.Errorf("Output = %q, want errloc prefix stripped", res.Output)
	}
	if !strings.Contains(res.Output, "boom") {
		t.Errorf("Output = %q, want to contain boom", res.Output)
	}
}

func TestRunPreservesErrLocWhenRequested(t *testing.T) {
	r := runner.New(runner.Env{})
	r.IncludeErrLoc = true
	res, err := r.Run(context.Background(), "printf '_errloc_:boom\\n'")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(res.Output, "_errloc_:") {
		t.Errorf("Output = %q, want errloc prefix preserved", res.Output)
	}
}

func TestRunActionsStopsAtFirstFailure(t *testing.T) {
	r := runner.New(runner.Env{})
	tree := &schema.ActionNode{
		Op: schema.OpList,
		Operands: []*schema.ActionNode{
			{Op: schema.OpExec, Command: "echo first"},
			{Op: schema.OpExec, Command: "exit 1"},
			{Op: schema.OpExec, Command: "echo third"},
		},
	}
	ok, output, err := r.RunActions(context.Background(), tree, "")
	if err != nil {
		t.Fatalf("RunActions: %v", err)
	}
	if ok {
		t.Errorf("ok = true, want false")
	}
	if !strings.Contains(output, "first") {
		t.Errorf("output = %q, want to contain first", output)
	}
	if strings.Contains(output, "third") {
		t.Errorf("output = %q, want to NOT contain third (stopped at failure)", output)
	}
}

func TestRunActionsSubstitutesAt(t *testing.T) {
	r := runner.New(runner.Env{})
	tree := &schema.ActionNode{Op: schema.OpExec, Command: "echo @"}
	ok, output, err := r.RunActions(context.Background(), tree, "eth0")
	if err != nil {
		t.Fatalf("RunActions: %v", err)
	}
	if !ok {
		t.Errorf("ok = false, want true")
	}
	if !strings.Contains(output, "eth0") {
		t.Errorf("output = %q, want to contain eth0", output)
	}
}
