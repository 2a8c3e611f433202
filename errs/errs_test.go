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

package errs

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ceAt(path ...string) *CfgError {
	return &CfgError{Kind: KindInvalidValue, Path: path, Msg: "bad value"}
}

func TestErrorsError(t *testing.T) {
	e := Errors{ceAt("system", "host-name"), ceAt("system", "domain-name")}
	want := "/system/host-name: bad value; /system/domain-name: bad value"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestAppendErr(t *testing.T) {
	var e Errors
	e = AppendErr(e, nil)
	if got, want := e.String(), ""; got != want {
		t.Errorf("got: %s, want: %s", got, want)
	}
	e = AppendErr(e, ceAt("a"))
	e = AppendErr(e, ceAt("b"))
	if len(e) != 2 {
		t.Fatalf("len(e) = %d, want 2", len(e))
	}
}

func TestAppendErrs(t *testing.T) {
	var e Errors
	e = AppendErrs(e, nil)
	e = AppendErrs(e, Errors{ceAt("a"), ceAt("b")})
	if len(e) != 2 {
		t.Fatalf("len(e) = %d, want 2", len(e))
	}
}

func TestPrefixErrors(t *testing.T) {
	got := PrefixErrors(Errors{ceAt("host-name"), ceAt("domain-name")}, "system")
	want := Errors{ceAt("system", "host-name"), ceAt("system", "domain-name")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PrefixErrors() mismatch (-want +got):\n%s", diff)
	}
}

func TestUniqueErrors(t *testing.T) {
	in := Errors{ceAt("a"), ceAt("a"), ceAt("b")}
	got := UniqueErrors(in)
	var paths []string
	for _, e := range got {
		paths = append(paths, e.Path[0])
	}
	sort.Strings(paths)
	want := []string{"a", "b"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("UniqueErrors() mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorsWorstKind(t *testing.T) {
	tests := []struct {
		name string
		in   Errors
		want Kind
	}{
		{"empty", nil, KindInternal},
		{"single user error", Errors{New(KindInvalidValue, nil, "x")}, KindInvalidValue},
		{"locked outranks invalid value", Errors{New(KindInvalidValue, nil, "x"), New(KindLocked, nil, "y")}, KindLocked},
		{"io outranks locked", Errors{New(KindLocked, nil, "x"), New(KindIO, nil, "y")}, KindIO},
	}
	for _, tt := range tests {
		if got := tt.in.WorstKind(); got != tt.want {
			t.Errorf("%s: WorstKind() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCfgErrorExitCode(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInvalidPath, 1},
		{KindLimitExceeded, 1},
		{KindIO, 255},
		{KindInternal, 255},
	}
	for _, tt := range tests {
		e := New(tt.kind, nil, "msg")
		if got := e.ExitCode(); got != tt.want {
			t.Errorf("CfgError{Kind: %v}.ExitCode() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
