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

// Package cpath implements the C1 path/name codec: escaping of logical
// path components for on-disk storage, and composition of storage
// paths from a layer root and a sequence of components.
//
// The escaping scheme mirrors the on-disk union-filesystem layout of
// the original cstore implementation: '%' becomes "%25", '/' becomes
// "%2F", and the empty component is encoded as the distinguished token
// "%%%" since it cannot otherwise be represented as a directory name.
package cpath

import (
	"strings"
)

const (
	emptyToken = "%%%"
	percentEsc = "%25"
	slashEsc   = "%2F"
)

// Escape converts a single logical path component into its on-disk
// representation.
func Escape(comp string) string {
	if comp == "" {
		return emptyToken
	}
	var b strings.Builder
	b.Grow(len(comp))
	for i := 0; i < len(comp); i++ {
		switch comp[i] {
		case '%':
			b.WriteString(percentEsc)
		case '/':
			b.WriteString(slashEsc)
		default:
			b.WriteByte(comp[i])
		}
	}
	return b.String()
}

// Unescape converts an on-disk component back into its logical form.
// Unescape is the inverse of Escape: Unescape(Escape(c)) == c for every
// string c.
func Unescape(comp string) string {
	if comp == emptyToken {
		return ""
	}
	var b strings.Builder
	b.Grow(len(comp))
	for i := 0; i < len(comp); i++ {
		if comp[i] == '%' && i+2 < len(comp) {
			switch comp[i : i+3] {
			case percentEsc:
				b.WriteByte('%')
				i += 2
				continue
			case slashEsc:
				b.WriteByte('/')
				i += 2
				continue
			}
		}
		b.WriteByte(comp[i])
	}
	return b.String()
}

// ReservedInTagValue reports whether comp contains a character that may
// not appear, unescaped, in a tag value before storage escaping
// (invariant 8 of §3).
func ReservedInTagValue(comp string) bool {
	return strings.ContainsAny(comp, "/%")
}

// Join composes the storage path for root followed by the escaped,
// separator-joined components of p.
func Join(root string, sep string, p []string) string {
	if len(p) == 0 {
		return root
	}
	escaped := make([]string, len(p))
	for i, c := range p {
		escaped[i] = Escape(c)
	}
	return root + sep + strings.Join(escaped, sep)
}

// Equal reports whether two logical paths denote the same sequence of
// components.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Copy returns a defensive copy of p.
func Copy(p []string) []string {
	out := make([]string, len(p))
	copy(out, p)
	return out
}

// CopyAppend returns a new path consisting of p followed by comps,
// without mutating p's backing array.
func CopyAppend(p []string, comps ...string) []string {
	out := make([]string, 0, len(p)+len(comps))
	out = append(out, p...)
	out = append(out, comps...)
	return out
}

// String renders a logical path for diagnostics as a '/'-joined,
// unescaped string, e.g. "/interfaces/ethernet/eth0/address".
func String(p []string) string {
	if len(p) == 0 {
		return "/"
	}
	return "/" + strings.Join(p, "/")
}

// Parent returns p without its last component, and the last component
// itself. Calling Parent on an empty path returns (nil, "").
func Parent(p []string) ([]string, string) {
	if len(p) == 0 {
		return nil, ""
	}
	return p[:len(p)-1], p[len(p)-1]
}
