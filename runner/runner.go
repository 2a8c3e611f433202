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

// Package runner implements the §5 process model for external action
// programs: each command runs under "sh -c", its combined stdout and
// stderr are drained as they arrive rather than buffered until exit,
// and the runner waits only for its direct child, never for
// grandchildren the child may have spawned (the deliberate fix
// described in cli_new.c's system_out, which this package's Run is
// grounded on: the C implementation polls a pipe with select() and a
// 100ms timeout so it can notice the child has exited via a
// WNOHANG waitpid even if descendants still hold the pipe's write end
// open; Run gets the same property from exec.Cmd.WaitDelay, which
// stops reading the pipe 100ms after the direct child has exited even
// if a descendant still holds its write end).
package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/netconfd/confd/schema"
)

// errLocPrefix marks a line of action-program output as carrying an
// "error location" annotation the caller may want surfaced or
// stripped, per cli_new.c's "_errloc_:" handling.
const errLocPrefix = "_errloc_:"

// Env is the environment contract of §6 that every action program
// invocation is run under.
type Env struct {
	ActiveRoot, ChangesRoot, WorkingRoot, TmpRoot, TemplateRoot string
	EditLevel, TemplateLevel                                   string
	CommitAction                                                string // "SET", "DELETE", or "ACTIVE"
	SiblingPosition                                             string // "FIRST", "LAST", or ""
}

func (e Env) environ() []string {
	out := append([]string{}, os.Environ()...)
	out = append(out,
		"ACTIVE_ROOT="+e.ActiveRoot,
		"CHANGES_ROOT="+e.ChangesRoot,
		"WORKING_ROOT="+e.WorkingRoot,
		"TMP_ROOT="+e.TmpRoot,
		"TEMPLATE_ROOT="+e.TemplateRoot,
		"EDIT_LEVEL="+e.EditLevel,
		"TEMPLATE_LEVEL="+e.TemplateLevel,
	)
	if e.CommitAction != "" {
		out = append(out, "COMMIT_ACTION="+e.CommitAction)
	}
	if e.SiblingPosition != "" {
		out = append(out, "SIBLING_POSITION="+e.SiblingPosition)
	}
	return out
}

// Result is the outcome of one action-program invocation.
type Result struct {
	ExitCode       int
	Output         string // combined stdout+stderr, with the errloc prefix handled per IncludeErrLoc
	HasErrLocation bool   // the program's first output chunk carried an "_errloc_:" annotation
}

// Ok reports whether the program exited zero.
func (r Result) Ok() bool { return r.ExitCode == 0 }

// Runner executes action-program commands with the environment
// contract of §6, logging their combined output to Log (the
// per-session log file of §5) as it streams in.
type Runner struct {
	Env Env
	// Log receives every byte of a command's combined stdout/stderr as
	// it is read, independent of what Run returns; nil discards it.
	Log io.Writer
	// IncludeErrLoc controls whether an "_errloc_:" prefix on the
	// program's output is preserved in Result.Output (true) or
	// stripped (false); either way HasErrLocation reports whether one
	// was present.
	IncludeErrLoc bool
	// PrependMsg, when set and the program's output did not itself
	// carry an "_errloc_:" prefix, is written ahead of the output as
	// "[PrependMsg]\n", matching system_out's prepend_msg behavior.
	PrependMsg string
}

// New builds a Runner for env.
func New(env Env) *Runner {
	return &Runner{Env: env}
}

// Run executes command under "sh -c" and waits for it to complete,
// never for any grandchild it may have spawned.
func (r *Runner) Run(ctx context.Context, command string) (Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = r.Env.environ()
	// Once the direct child has exited, Wait gives the output pipe 100ms
	// to reach EOF and then stops reading it, so a background grandchild
	// holding the write end open does not keep Run waiting.
	cmd.WaitDelay = 100 * time.Millisecond

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return Result{}, err
	}

	done := make(chan struct{})
	var out bytes.Buffer
	var hasErrLoc bool
	go func() {
		defer close(done)
		first := true
		buf := make([]byte, 4096)
		for {
			n, err := pr.Read(buf)
			if n > 0 {
				chunk := buf[:n]
				if first {
					first = false
					chunk, hasErrLoc = r.handleFirstChunk(chunk)
				}
				out.Write(chunk)
				if r.Log != nil {
					r.Log.Write(chunk)
				}
			}
			if err != nil {
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		waitErr = nil // the child exited zero; only the pipe was left open
	}
	pw.Close()
	<-done

	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{}, waitErr
		}
	}

	glog.V(2).Infof("runner: %q exited %d", command, exitCode)
	return Result{ExitCode: exitCode, Output: out.String(), HasErrLocation: hasErrLoc}, nil
}

// handleFirstChunk applies the "_errloc_:" handling of cli_new.c's
// system_out to the first chunk of a command's output only: later
// chunks pass through untouched.
func (r *Runner) handleFirstChunk(chunk []byte) ([]byte, bool) {
	if bytes.HasPrefix(chunk, []byte(errLocPrefix)) {
		if r.IncludeErrLoc {
			return chunk, true
		}
		return chunk[len(errLocPrefix):], true
	}
	var b bytes.Buffer
	if r.IncludeErrLoc {
		b.WriteString(errLocPrefix)
	}
	if r.PrependMsg != "" {
		b.WriteString("[" + r.PrependMsg + "]\n")
	}
	b.Write(chunk)
	return b.Bytes(), false
}

// RunActions walks a begin/create/delete/update/activate/end action
// tree, per ActionNode's doc comment: the core treats everything but
// "syntax" and "commit" actions as an opaque payload for this package,
// which interprets only OpExec/OpList/OpAnd here — the minimal subset
// the template DSL actually uses for these hooks — running each
// OpExec command in order and stopping at the first failure.
func (r *Runner) RunActions(ctx context.Context, n *schema.ActionNode, at string) (bool, string, error) {
	if n == nil {
		return true, "", nil
	}
	var output strings.Builder
	ok, err := r.runActionsNode(ctx, n, at, &output)
	return ok, output.String(), err
}

func (r *Runner) runActionsNode(ctx context.Context, n *schema.ActionNode, at string, output *strings.Builder) (bool, error) {
	switch n.Op {
	case schema.OpList, schema.OpAnd:
		for _, child := range n.Operands {
			ok, err := r.runActionsNode(ctx, child, at, output)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	case schema.OpExec:
		res, err := r.Run(ctx, substituteAt(n.Command, at))
		if err != nil {
			return false, err
		}
		output.WriteString(res.Output)
		return res.Ok(), nil
	default:
		return true, nil
	}
}

func substituteAt(s, at string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	return strings.ReplaceAll(s, "@", at)
}
