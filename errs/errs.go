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

// Package errs collects the multi-error and user-facing error
// plumbing shared by every core package.
package errs

import (
	"strings"

	"github.com/netconfd/confd/cpath"
)

// Kind enumerates the user-visible error categories of §7.
type Kind int

const (
	// KindInvalidPath is returned when a path does not resolve against
	// the template tree.
	KindInvalidPath Kind = iota
	// KindInvalidValue is returned when a value fails type or syntax
	// validation.
	KindInvalidValue
	// KindLimitExceeded is returned when a tag_limit/multi_limit bound
	// is violated.
	KindLimitExceeded
	// KindAlreadyExists marks a no-op set of an identical value.
	KindAlreadyExists
	// KindNotExists marks a delete of a path that is not present.
	KindNotExists
	// KindSyntaxAction is returned when a commit-time syntax action
	// fails.
	KindSyntaxAction
	// KindActionFailed is returned when an action-script subprocess
	// exits non-zero.
	KindActionFailed
	// KindLocked is returned when the commit lock is already held.
	KindLocked
	// KindIO is returned for filesystem/store failures.
	KindIO
	// KindInternal marks an internal inconsistency.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidPath:
		return "invalid path"
	case KindInvalidValue:
		return "invalid value"
	case KindLimitExceeded:
		return "limit exceeded"
	case KindAlreadyExists:
		return "already exists"
	case KindNotExists:
		return "not exists"
	case KindSyntaxAction:
		return "syntax action failed"
	case KindActionFailed:
		return "action failed"
	case KindLocked:
		return "configuration locked"
	case KindIO:
		return "I/O error"
	default:
		return "internal error"
	}
}

// severityRank orders Kind values for Errors.WorstKind: an I/O or
// internal failure always outranks a user-facing validation error,
// and a lock contention outranks a plain validation error but not a
// storage failure.
func severityRank(k Kind) int {
	switch k {
	case KindInternal, KindIO:
		return 2
	case KindLocked:
		return 1
	default:
		return 0
	}
}

// CfgError is the structured error value carried through the core so that
// cmd/* entry points can map it onto the exit-code/stderr contract of §6
// without re-parsing message text.
type CfgError struct {
	Kind Kind
	Path []string
	Msg  string
	Err  error
}

func (e *CfgError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *CfgError) Unwrap() error { return e.Err }

// ExitCode maps a CfgError onto the exit-code contract of §6: 0 is never
// returned from here (callers only map actual errors), 1 for user errors,
// -1 (255) for internal inconsistencies and I/O failures.
func (e *CfgError) ExitCode() int {
	if e.Kind == KindInternal || e.Kind == KindIO {
		return 255
	}
	return 1
}

// New builds a CfgError of the given kind for path, with message msg.
func New(kind Kind, path []string, msg string) *CfgError {
	return &CfgError{Kind: kind, Path: path, Msg: msg}
}

// Wrap builds a CfgError of the given kind for path, wrapping err.
func Wrap(kind Kind, path []string, err error) *CfgError {
	return &CfgError{Kind: kind, Path: path, Err: err}
}

// Errors accumulates CfgErrors gathered while processing more than one
// node at once, such as every priority subtree a commit (§4.8) failed
// to apply.
// Unlike a plain []error, every element already carries the path it
// belongs to, so ToString/PrefixErrors can report per-node context
// without the caller having to thread path strings through fmt.Errorf
// by hand.
type Errors []*CfgError

// Error implements the error interface.
func (e Errors) Error() string { return ToString(e) }

// String implements the stringer interface.
func (e Errors) String() string { return e.Error() }

// NewErrs returns an Errors holding a single CfgError, or nil if err is
// nil.
func NewErrs(err *CfgError) Errors {
	if err == nil {
		return nil
	}
	return Errors{err}
}

// AppendErr appends err to errors if it is not nil and returns the
// result.
func AppendErr(errors Errors, err *CfgError) Errors {
	if err == nil {
		return errors
	}
	return append(errors, err)
}

// AppendErrs appends every non-nil element of newErrs to errors.
func AppendErrs(errors Errors, newErrs Errors) Errors {
	for _, e := range newErrs {
		errors = AppendErr(errors, e)
	}
	return errors
}

// ToString renders errors as a single "path: message; path: message"
// line, skipping the "path: " prefix for an error with no path (e.g.
// one reported against the edit level itself).
func ToString(errors Errors) string {
	var b strings.Builder
	first := true
	for _, e := range errors {
		if e == nil {
			continue
		}
		if !first {
			b.WriteString("; ")
		}
		first = false
		if len(e.Path) > 0 {
			b.WriteString(cpath.String(e.Path))
			b.WriteString(": ")
		}
		b.WriteString(e.Error())
	}
	return b.String()
}

// PrefixErrors prepends seg as the new leading path component of every
// error in errors, used by a parent node's caller to report a child
// walk's errors relative to the parent (e.g. a tag node prefixing each
// child's CfgError.Path with its own tag value).
func PrefixErrors(errors Errors, seg string) Errors {
	if len(errors) == 0 {
		return nil
	}
	out := make(Errors, 0, len(errors))
	for _, e := range errors {
		ce := *e
		ce.Path = cpath.CopyAppend([]string{seg}, e.Path...)
		out = append(out, &ce)
	}
	return out
}

// UniqueErrors removes duplicate errors from errors, where two errors
// are duplicates if they share a Kind, Path, and message, keeping the
// first occurrence of each.
func UniqueErrors(errors Errors) Errors {
	if len(errors) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var out Errors
	for _, e := range errors {
		key := e.Kind.String() + "|" + cpath.String(e.Path) + "|" + e.Error()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// WorstKind returns the most severe Kind among errors (KindIO/
// KindInternal outrank KindLocked, which outranks every other user
// error), the rule cmd/* entry points use to pick a single process
// exit code when a command accumulated failures from more than one
// node.
func (e Errors) WorstKind() Kind {
	worst := KindInternal
	worstRank := -1
	found := false
	for _, ce := range e {
		if ce == nil {
			continue
		}
		if r := severityRank(ce.Kind); r > worstRank {
			worstRank = r
			worst = ce.Kind
			found = true
		}
	}
	if !found {
		return KindInternal
	}
	return worst
}
