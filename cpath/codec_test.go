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

package cpath_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/netconfd/confd/cpath"
)

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"eth0",
		"100%",
		"a/b",
		"a%b/c",
		"%%%",
		"10.0.0.1/24",
	}
	for _, comp := range tests {
		esc := cpath.Escape(comp)
		got := cpath.Unescape(esc)
		if got != comp {
			t.Errorf("Unescape(Escape(%q)) = %q, want %q", comp, got, comp)
		}
	}
}

func TestEscapeKnownForms(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "%%%"},
		{"a", "a"},
		{"a%b", "a%25b"},
		{"a/b", "a%2Fb"},
	}
	for _, tt := range tests {
		if got := cpath.Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	got := cpath.Join("/cfg/active", "/", []string{"interfaces", "eth0/1", "address"})
	want := "/cfg/active/interfaces/eth0%2F1/address"
	if got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}
}

func TestParent(t *testing.T) {
	parent, last := cpath.Parent([]string{"a", "b", "c"})
	if diff := cmp.Diff([]string{"a", "b"}, parent); diff != "" {
		t.Errorf("Parent() parent mismatch (-want +got):\n%s", diff)
	}
	if last != "c" {
		t.Errorf("Parent() last = %q, want %q", last, "c")
	}
}

func TestCopyAppendDoesNotAlias(t *testing.T) {
	base := []string{"a", "b"}
	p1 := cpath.CopyAppend(base, "c")
	p2 := cpath.CopyAppend(base, "d")
	if p1[2] != "c" || p2[2] != "d" {
		t.Errorf("CopyAppend aliased backing arrays: p1=%v p2=%v", p1, p2)
	}
}

func TestReservedInTagValue(t *testing.T) {
	if !cpath.ReservedInTagValue("a/b") {
		t.Error("ReservedInTagValue(\"a/b\") = false, want true")
	}
	if cpath.ReservedInTagValue("eth0") {
		t.Error("ReservedInTagValue(\"eth0\") = true, want false")
	}
}
