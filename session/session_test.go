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

package session_test

import (
	"testing"

	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/session"
	"github.com/netconfd/confd/store"
	"github.com/netconfd/confd/validate"
)

type staticSource struct{ root *schema.Node }

func (s *staticSource) Root() *schema.Node { return s.root }

type permissiveTypes struct{}

func (permissiveTypes) ValidateType(schema.Type, string) error { return nil }

func buildSchema() *schema.Node {
	root := &schema.Node{}

	hostname := &schema.Node{Type1: schema.TypeText, DefaultValue: "vyatta", HasDefault: true}
	domain := &schema.Node{Type1: schema.TypeText}
	system := &schema.Node{}
	system.SetChild("host-name", hostname)
	system.SetChild("domain-name", domain)
	root.SetChild("system", system)

	addr := &schema.Node{Type1: schema.TypeIPv4Net, IsMulti: true, MultiLimit: 2}
	mtu := &schema.Node{Type1: schema.TypeInt}
	tagChild := &schema.Node{}
	tagChild.SetChild("address", addr)
	tagChild.SetChild("mtu", mtu)
	ethernet := &schema.Node{IsTag: true, TagChild: tagChild, TagLimit: 2}
	interfaces := &schema.Node{}
	interfaces.SetChild("ethernet", ethernet)
	bonding := &schema.Node{IsTag: true, TagChild: tagChild}
	interfaces.SetChild("bonding", bonding)
	root.SetChild("interfaces", interfaces)

	return root
}

func newSession() *session.Session {
	st := store.New()
	st.SetupSession()
	reg := schema.NewRegistry(&staticSource{root: buildSchema()})
	v := validate.NewValidator(reg, permissiveTypes{}, nil)
	return session.New(st, reg, v)
}

func TestSetSingleLeafExplicitValue(t *testing.T) {
	s := newSession()
	if err := s.Set([]string{"system", "host-name"}, "foo"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Store.ReadValues([]string{"system", "host-name"}, store.Working); len(got) != 1 || got[0] != "foo" {
		t.Errorf("ReadValues = %v, want [foo]", got)
	}
	if s.Store.Marked([]string{"system", "host-name"}, store.MarkDisplayDefault, store.Working) {
		t.Errorf("display-default marked after explicit set, want cleared")
	}
}

func TestSetSingleLeafBareMaterializesDefault(t *testing.T) {
	s := newSession()
	if err := s.Set([]string{"system", "host-name"}, ""); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Store.ReadValues([]string{"system", "host-name"}, store.Working); len(got) != 1 || got[0] != "vyatta" {
		t.Errorf("ReadValues = %v, want [vyatta]", got)
	}
	if !s.Store.Marked([]string{"system", "host-name"}, store.MarkDisplayDefault, store.Working) {
		t.Errorf("display-default not marked after bare set")
	}
}

func TestSetTwiceReportsAlreadyExists(t *testing.T) {
	s := newSession()
	if err := s.Set([]string{"system", "host-name"}, "foo"); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	err := s.Set([]string{"system", "host-name"}, "foo")
	if err == nil {
		t.Fatalf("second Set = nil, want already-exists error")
	}
	ce, ok := err.(*errs.CfgError)
	if !ok || ce.Kind != errs.KindAlreadyExists {
		t.Errorf("error = %v, want KindAlreadyExists", err)
	}
}

func TestDeleteRevertsToDefault(t *testing.T) {
	s := newSession()
	s.Set([]string{"system", "host-name"}, "foo")

	if err := s.Delete([]string{"system", "host-name"}, ""); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := s.Store.ReadValues([]string{"system", "host-name"}, store.Working); len(got) != 1 || got[0] != "vyatta" {
		t.Errorf("ReadValues after delete = %v, want [vyatta]", got)
	}
	if !s.Store.Marked([]string{"system", "host-name"}, store.MarkDisplayDefault, store.Working) {
		t.Errorf("display-default not set after delete-to-default")
	}
}

func TestDeleteNoDefaultRemovesNode(t *testing.T) {
	s := newSession()
	s.Set([]string{"system", "domain-name"}, "example.com")

	if err := s.Delete([]string{"system", "domain-name"}, ""); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Store.Exists([]string{"system", "domain-name"}, store.Working) {
		t.Errorf("node still exists after delete")
	}
}

func TestMultiLimitEnforced(t *testing.T) {
	s := newSession()
	s.Set([]string{"interfaces", "ethernet", "eth0", "address"}, "10.0.0.1/24")
	if err := s.Set([]string{"interfaces", "ethernet", "eth0", "address"}, "10.0.0.2/24"); err != nil {
		t.Fatalf("second address Set: %v", err)
	}
	err := s.Set([]string{"interfaces", "ethernet", "eth0", "address"}, "10.0.0.3/24")
	if err == nil {
		t.Fatalf("third address Set = nil, want limit-exceeded error")
	}
	ce, ok := err.(*errs.CfgError)
	if !ok || ce.Kind != errs.KindLimitExceeded {
		t.Errorf("error = %v, want KindLimitExceeded", err)
	}
}

func TestTagLimitEnforced(t *testing.T) {
	s := newSession()
	if err := s.Set([]string{"interfaces", "ethernet", "eth0", "mtu"}, "1500"); err != nil {
		t.Fatalf("eth0 Set: %v", err)
	}
	if err := s.Set([]string{"interfaces", "ethernet", "eth1", "mtu"}, "1500"); err != nil {
		t.Fatalf("eth1 Set: %v", err)
	}
	err := s.Set([]string{"interfaces", "ethernet", "eth2", "mtu"}, "1500")
	if err == nil {
		t.Fatalf("eth2 Set = nil, want limit-exceeded error (tag_limit=2)")
	}
	ce, ok := err.(*errs.CfgError)
	if !ok || ce.Kind != errs.KindLimitExceeded {
		t.Errorf("error = %v, want KindLimitExceeded", err)
	}
}

func TestDeleteLastAddressRemovesTagValue(t *testing.T) {
	s := newSession()
	s.Set([]string{"interfaces", "ethernet", "eth0", "address"}, "10.0.0.1/24")

	if err := s.Delete([]string{"interfaces", "ethernet", "eth0", "address"}, "10.0.0.1/24"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Store.Exists([]string{"interfaces", "ethernet", "eth0"}, store.Working) {
		t.Errorf("eth0 tag value still exists after its last address was deleted")
	}
}

func TestActivateRequiresDeactivated(t *testing.T) {
	s := newSession()
	s.Set([]string{"system", "domain-name"}, "example.com")

	if err := s.Activate([]string{"system", "domain-name"}); err == nil {
		t.Errorf("Activate on a non-deactivated node = nil, want error")
	}
}

func TestDeactivateThenActivate(t *testing.T) {
	s := newSession()
	s.Set([]string{"system", "domain-name"}, "example.com")

	if err := s.Deactivate([]string{"system", "domain-name"}); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if !s.Store.Marked([]string{"system", "domain-name"}, store.MarkDeactivated, store.Working) {
		t.Errorf("not marked deactivated")
	}
	if err := s.Activate([]string{"system", "domain-name"}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if s.Store.Marked([]string{"system", "domain-name"}, store.MarkDeactivated, store.Working) {
		t.Errorf("still marked deactivated after Activate")
	}
	if got := s.Store.ReadValues([]string{"system", "domain-name"}, store.Working); len(got) != 1 || got[0] != "example.com" {
		t.Errorf("value lost across deactivate/activate: %v", got)
	}
}

func TestRenameTagValue(t *testing.T) {
	s := newSession()
	s.Set([]string{"interfaces", "ethernet", "eth0", "mtu"}, "1500")

	if err := s.Rename([]string{"interfaces", "ethernet"}, "eth0", "eth9"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if s.Store.Exists([]string{"interfaces", "ethernet", "eth0"}, store.Working) {
		t.Errorf("old tag value still exists")
	}
	if got := s.Store.ReadValues([]string{"interfaces", "ethernet", "eth9", "mtu"}, store.Working); len(got) != 1 || got[0] != "1500" {
		t.Errorf("ReadValues(eth9/mtu) = %v, want [1500]", got)
	}
}

func TestRenameRejectsExistingDestination(t *testing.T) {
	s := newSession()
	s.Set([]string{"interfaces", "ethernet", "eth0", "mtu"}, "1500")
	s.Set([]string{"interfaces", "ethernet", "eth1", "mtu"}, "9000")

	if err := s.Rename([]string{"interfaces", "ethernet"}, "eth0", "eth1"); err == nil {
		t.Errorf("Rename onto existing destination = nil, want error")
	}
}

func TestMoveAcrossTagNodes(t *testing.T) {
	s := newSession()
	s.Set([]string{"interfaces", "ethernet", "eth0", "mtu"}, "1500")

	if err := s.Move([]string{"interfaces", "ethernet"}, "eth0", []string{"interfaces", "bonding"}); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := s.Store.ReadValues([]string{"interfaces", "bonding", "eth0", "mtu"}, store.Working); len(got) != 1 || got[0] != "1500" {
		t.Errorf("ReadValues(bonding/eth0/mtu) = %v, want [1500]", got)
	}
}

func TestCommentRejectsTagNodeAndStar(t *testing.T) {
	s := newSession()
	s.Set([]string{"interfaces", "ethernet", "eth0", "mtu"}, "1500")

	if err := s.Comment([]string{"interfaces", "ethernet"}, "hi"); err == nil {
		t.Errorf("Comment on tag node = nil, want error")
	}
	if err := s.Comment([]string{"interfaces", "ethernet", "eth0", "mtu"}, "bad*comment"); err == nil {
		t.Errorf("Comment containing '*' = nil, want error")
	}
	if err := s.Comment([]string{"interfaces", "ethernet", "eth0"}, "uplink"); err != nil {
		t.Fatalf("Comment: %v", err)
	}
	got, ok := s.Store.GetComment([]string{"interfaces", "ethernet", "eth0"}, store.Working)
	if !ok || got != "uplink" {
		t.Errorf("GetComment = (%q, %v), want (uplink, true)", got, ok)
	}
}

func TestDiscardReturnsCount(t *testing.T) {
	s := newSession()
	s.Set([]string{"system", "domain-name"}, "example.com")
	s.Set([]string{"interfaces", "ethernet", "eth0", "mtu"}, "1500")

	n := s.Discard()
	if n == 0 {
		t.Errorf("Discard() = 0, want > 0")
	}
	if s.Store.Exists([]string{"system", "domain-name"}, store.Working) {
		t.Errorf("domain-name still exists after Discard")
	}
}

func TestSetInvalidPathRejected(t *testing.T) {
	s := newSession()
	if err := s.Set([]string{"no", "such", "node"}, "x"); err == nil {
		t.Errorf("Set(no/such/node) = nil, want error")
	}
}
