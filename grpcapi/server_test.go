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

package grpcapi_test

import (
	"context"
	"testing"

	"github.com/golang/protobuf/proto"

	gpb "github.com/openconfig/gnmi/proto/gnmi"

	"github.com/netconfd/confd/grpcapi"
	"github.com/netconfd/confd/query"
	"github.com/netconfd/confd/schema"
	"github.com/netconfd/confd/session"
	"github.com/netconfd/confd/store"
	"github.com/netconfd/confd/validate"
)

type staticSource struct{ root *schema.Node }

func (s *staticSource) Root() *schema.Node { return s.root }

type permissiveTypes struct{}

func (permissiveTypes) ValidateType(schema.Type, string) error { return nil }

// buildEthernetSchema mirrors the ethernet/eth0/address shape used
// elsewhere in this repository: a tag node (interfaces ethernet) whose
// tag values carry a multi-value address leaf.
func buildEthernetSchema() *schema.Node {
	root := &schema.Node{}
	interfaces := &schema.Node{}
	root.SetChild("interfaces", interfaces)

	addressLeaf := &schema.Node{Type1: schema.TypeText, IsMulti: true}
	eth0Tmpl := &schema.Node{}
	eth0Tmpl.SetChild("address", addressLeaf)

	ethernet := &schema.Node{IsTag: true, TagChild: eth0Tmpl}
	interfaces.SetChild("ethernet", ethernet)
	return root
}

func newStack(t *testing.T) *grpcapi.Server {
	t.Helper()
	st := store.New()
	st.SetupSession()
	reg := schema.NewRegistry(&staticSource{root: buildEthernetSchema()})
	v := validate.NewValidator(reg, permissiveTypes{}, nil)
	sess := session.New(st, reg, v)
	q := query.New(st, reg)
	return grpcapi.New(sess, q, nil)
}

func pathElem(name, key string) *gpb.PathElem {
	if key == "" {
		return &gpb.PathElem{Name: name}
	}
	return &gpb.PathElem{Name: name, Key: map[string]string{"name": key}}
}

func TestSetThenGetAddress(t *testing.T) {
	srv := newStack(t)

	setReq := &gpb.SetRequest{}
	if err := proto.UnmarshalText(`
		update: <
			path: <
				elem: < name: "interfaces" >
				elem: < name: "ethernet" >
				elem: < name: "eth0" >
				elem: < name: "address" >
			>
			val: < string_val: "10.0.0.1/24" >
		>
	`, setReq); err != nil {
		t.Fatalf("UnmarshalText(SetRequest): %v", err)
	}

	resp, err := srv.Set(context.Background(), setReq)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(resp.Response) != 1 || resp.Response[0].Op != gpb.UpdateResult_UPDATE {
		t.Fatalf("Set response = %+v, want one UPDATE result", resp.Response)
	}

	getReq := &gpb.GetRequest{
		Path: []*gpb.Path{{
			Elem: []*gpb.PathElem{
				pathElem("interfaces", ""),
				pathElem("ethernet", ""),
				pathElem("eth0", ""),
				pathElem("address", ""),
			},
		}},
	}
	getResp, err := srv.Get(context.Background(), getReq)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(getResp.Notification) != 1 || len(getResp.Notification[0].Update) != 1 {
		t.Fatalf("Get response = %+v, want one notification with one update", getResp)
	}
	got := getResp.Notification[0].Update[0].Val.GetStringVal()
	if got != "10.0.0.1/24" {
		t.Fatalf("Get address = %q, want 10.0.0.1/24", got)
	}
}

func TestGetMissingPathNotFound(t *testing.T) {
	srv := newStack(t)

	_, err := srv.Get(context.Background(), &gpb.GetRequest{
		Path: []*gpb.Path{{Elem: []*gpb.PathElem{pathElem("interfaces", "")}}},
	})
	if err == nil {
		t.Fatal("Get on an absent path: want error, got nil")
	}
}

func TestCapabilitiesReportsJSONEncoding(t *testing.T) {
	srv := newStack(t)
	resp, err := srv.Capabilities(context.Background(), &gpb.CapabilityRequest{})
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	found := false
	for _, e := range resp.SupportedEncodings {
		if e == gpb.Encoding_JSON {
			found = true
		}
	}
	if !found {
		t.Fatalf("Capabilities() encodings = %v, want JSON among them", resp.SupportedEncodings)
	}
}
