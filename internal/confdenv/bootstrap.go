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
	"context"
	"os/exec"
	"path/filepath"

	"github.com/netconfd/confd/commit"
	"github.com/netconfd/confd/query"
	"github.com/netconfd/confd/runner"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/session"
	"github.com/netconfd/confd/store"
	"github.com/netconfd/confd/validate"
	"github.com/netconfd/confd/varref"
)

// lockFileName is the well-known commit lock of §6 ("Persisted state
// layout": "The global commit lock is an advisory lock on
// .commit-lock").
const lockFileName = ".commit-lock"

// Stack is the shared core wiring every cmd/* entry point drives: a
// store restored from ACTIVE_ROOT/CHANGES_ROOT, the registry and
// validator built over it, a ready-to-use Session, a read-only Query
// facade, and a Commit engine guarded by the process-wide file lock.
type Stack struct {
	Env       Env
	Store     *store.Store
	Registry  *schema.Registry
	Validator *validate.Validator
	Session   *session.Session
	Query     *query.Facade
	Commit    *commit.Engine
}

// NopTemplateSource is a placeholder schema.Source returning an empty
// template tree. Template-file DSL parsing is, per spec.md's
// Non-goals, an external collaborator specified only by interface
// (schema.Source); production wiring replaces this with the real
// TEMPLATE_ROOT lexer/parser, which is out of this repository's scope.
type NopTemplateSource struct{}

// Root implements schema.Source.
func (NopTemplateSource) Root() *schema.Node { return &schema.Node{} }

// ExternalTypeChecker shells out to a `validate_type <type> <value>`
// helper process, grounded in §5's "launching the external
// validate_type helper" blocking point: the core never validates
// primitive types itself, only invokes this single external call.
type ExternalTypeChecker struct {
	// Path is the validate_type executable; defaults to looking it up
	// on PATH when empty.
	Path string
}

// ValidateType implements validate.TypeChecker.
func (c ExternalTypeChecker) ValidateType(typ schema.Type, value string) error {
	path := c.Path
	if path == "" {
		path = "validate_type"
	}
	cmd := exec.Command(path, string(typ), value)
	return cmd.Run()
}

// Build wires the full Stack from env over src (the injected template
// source — see NopTemplateSource) and types (the injected primitive
// type checker — see ExternalTypeChecker), restoring the active layer
// from env.ActiveRoot and the change overlay from env.ChangesRoot (or
// starting a fresh session if neither exists yet).
func Build(env Env, src schema.Source, types validate.TypeChecker) (*Stack, error) {
	st, err := store.LoadActive(env.ActiveRoot)
	if err != nil {
		return nil, err
	}
	if env.ChangesRoot != "" {
		if err := st.LoadChange(env.ChangesRoot); err != nil {
			return nil, err
		}
	} else {
		st.SetupSession()
	}

	reg := schema.NewRegistry(src)
	resolver := varref.New(reg, st)
	v := validate.NewValidator(reg, types, resolver)
	sess := session.New(st, reg, v)
	q := query.New(st, reg)

	r := runner.New(env.RunnerEnv())
	var lock commit.Locker
	if env.TmpRoot != "" {
		lock = commit.NewFileLock(filepath.Join(env.TmpRoot, lockFileName))
	}
	ce := commit.New(st, reg, v, r, lock)

	return &Stack{
		Env:       env,
		Store:     st,
		Registry:  reg,
		Validator: v,
		Session:   sess,
		Query:     q,
		Commit:    ce,
	}, nil
}

// Persist saves the store's active and change layers back to
// ACTIVE_ROOT/CHANGES_ROOT, so the next cmd/* invocation in the same
// shell session sees this one's edits. Called by every mutating cmd/*
// main after its verb succeeds.
func (s *Stack) Persist() error {
	if s.Env.ActiveRoot != "" {
		if err := s.Store.SaveActive(s.Env.ActiveRoot); err != nil {
			return err
		}
	}
	if s.Env.ChangesRoot != "" {
		if err := s.Store.SaveChange(s.Env.ChangesRoot); err != nil {
			return err
		}
	}
	return nil
}

// RunCommit runs the commit engine and persists the resulting active
// and change layers, so a successful or partial commit is reflected on
// disk for the next invocation.
func (s *Stack) RunCommit(ctx context.Context) (commit.Outcome, error) {
	outcome, err := s.Commit.Commit(ctx)
	if err != nil {
		return outcome, err
	}
	if s.Env.ActiveRoot != "" {
		if err := s.Store.SaveActive(s.Env.ActiveRoot); err != nil {
			return outcome, err
		}
	}
	if s.Env.ChangesRoot != "" {
		if err := s.Store.SaveChange(s.Env.ChangesRoot); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}
