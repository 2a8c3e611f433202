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

// Package grpcapi is the management-plane transport the core's
// out-of-scope "interactive shell wrappers" would normally speak to: a
// small gnmi.GNMIServer (Get, Set, Capabilities; Subscribe is
// unimplemented) backed directly by package session and package query,
// translating gnmi.Path to confd's logical []string paths with
// package cpath.
package grpcapi

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	gpb "github.com/openconfig/gnmi/proto/gnmi"

	"github.com/netconfd/confd/cpath"
	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/query"
	"github.com/netconfd/confd/session"
)

// gnmiVersion is reported verbatim in CapabilityResponse; confd speaks
// gNMI only as a thin path/value transport, not a full target.
const gnmiVersion = "0.7.0"

// Server implements gpb.GNMIServer over a single confd session/query
// pair. It carries no concurrency control of its own: callers share the
// same store-level locking session.Session and query.Facade already
// rely on.
type Server struct {
	gpb.UnimplementedGNMIServer

	Session *session.Session
	Query   *query.Facade

	// Persist is called after a Set that changed anything, to write the
	// mutated store back to disk the same way a cmd/* invocation's
	// Stack.Persist does; nil disables persistence (e.g. in tests).
	Persist func() error
}

// New builds a Server over sess/q.
func New(sess *session.Session, q *query.Facade, persist func() error) *Server {
	return &Server{Session: sess, Query: q, Persist: persist}
}

// Capabilities implements gpb.GNMIServer.
func (s *Server) Capabilities(ctx context.Context, req *gpb.CapabilityRequest) (*gpb.CapabilityResponse, error) {
	return &gpb.CapabilityResponse{
		SupportedEncodings: []gpb.Encoding{gpb.Encoding_JSON},
		GNMIVersion:        gnmiVersion,
	}, nil
}

// Get implements gpb.GNMIServer: each requested path is read from the
// working layer via package query and reported as one Update in a
// single Notification, mirroring §4.2's "effective value" semantics
// rather than active-layer semantics (gNMI Get has no active/working
// distinction to offer).
func (s *Server) Get(ctx context.Context, req *gpb.GetRequest) (*gpb.GetResponse, error) {
	prefix := pathToLogical(req.GetPrefix())
	var updates []*gpb.Update

	for _, gp := range req.GetPath() {
		p := append(append([]string{}, prefix...), pathToLogical(gp)...)
		if !s.Query.Exists(p) {
			return nil, status.Errorf(codes.NotFound, "%s: not found", cpath.String(p))
		}
		vals := s.Query.Effective(p)
		update := &gpb.Update{Path: logicalToPath(p)}
		switch len(vals) {
		case 0:
			update.Val = &gpb.TypedValue{Value: &gpb.TypedValue_StringVal{StringVal: ""}}
		case 1:
			update.Val = &gpb.TypedValue{Value: &gpb.TypedValue_StringVal{StringVal: vals[0]}}
		default:
			leaflist := &gpb.ScalarArray{}
			for _, v := range vals {
				leaflist.Element = append(leaflist.Element, &gpb.TypedValue{Value: &gpb.TypedValue_StringVal{StringVal: v}})
			}
			update.Val = &gpb.TypedValue{Value: &gpb.TypedValue_LeaflistVal{LeaflistVal: leaflist}}
		}
		updates = append(updates, update)
	}

	return &gpb.GetResponse{
		Notification: []*gpb.Notification{{
			Prefix: clonePrefix(req.GetPrefix()),
			Update: updates,
		}},
	}, nil
}

// Set implements gpb.GNMIServer: deletes are applied before replace/
// update, matching gNMI's documented ordering, each top-level operation
// reported as one gpb.UpdateResult. A failure on any single path is
// reported back as an UpdateResult of INVALID rather than aborting the
// whole request, since package session already leaves the store
// unchanged on a per-path failure.
func (s *Server) Set(ctx context.Context, req *gpb.SetRequest) (*gpb.SetResponse, error) {
	prefix := pathToLogical(req.GetPrefix())
	var results []*gpb.UpdateResult
	changed := false

	for _, gp := range req.GetDelete() {
		p := append(append([]string{}, prefix...), pathToLogical(gp)...)
		op := gpb.UpdateResult_DELETE
		if err := s.Session.Delete(p, ""); err != nil {
			op = gpb.UpdateResult_INVALID
		} else {
			changed = true
		}
		results = append(results, &gpb.UpdateResult{Path: gp, Op: op})
	}
	for _, u := range req.GetReplace() {
		results = append(results, s.applySet(prefix, u, gpb.UpdateResult_REPLACE, &changed))
	}
	for _, u := range req.GetUpdate() {
		results = append(results, s.applySet(prefix, u, gpb.UpdateResult_UPDATE, &changed))
	}

	if changed && s.Persist != nil {
		if err := s.Persist(); err != nil {
			return nil, status.Errorf(codes.Internal, "%v", err)
		}
	}

	return &gpb.SetResponse{Prefix: clonePrefix(req.GetPrefix()), Response: results}, nil
}

// clonePrefix returns a deep copy of p so a response never aliases the
// request message it was built from, the same defensive habit the
// teacher's util package applies to any *gpb.Path it hands back.
func clonePrefix(p *gpb.Path) *gpb.Path {
	if p == nil {
		return nil
	}
	return proto.Clone(p).(*gpb.Path)
}

func (s *Server) applySet(prefix []string, u *gpb.Update, op gpb.UpdateResult_Operation, changed *bool) *gpb.UpdateResult {
	p := append(append([]string{}, prefix...), pathToLogical(u.GetPath())...)
	value := typedValueToString(u.GetVal())
	if err := s.Session.Set(p, value); err != nil {
		if ce, ok := err.(*errs.CfgError); ok && ce.Kind == errs.KindAlreadyExists {
			*changed = true
			return &gpb.UpdateResult{Path: u.GetPath(), Op: op}
		}
		return &gpb.UpdateResult{Path: u.GetPath(), Op: gpb.UpdateResult_INVALID}
	}
	*changed = true
	return &gpb.UpdateResult{Path: u.GetPath(), Op: op}
}

// pathToLogical flattens a gpb.Path into confd's logical path: each
// PathElem's Name is one component, and (since confd has no YANG list
// key model) a single Key value, if present, follows as the tag value
// component immediately after its tag node's name — the same
// tag-node/tag-value pairing package cpath and package schema use
// everywhere else in this repository.
func pathToLogical(p *gpb.Path) []string {
	var out []string
	for _, elem := range p.GetElem() {
		out = append(out, elem.GetName())
		for _, v := range elem.GetKey() {
			out = append(out, v)
			break
		}
	}
	return out
}

// logicalToPath is the inverse rendering used for Get responses: plain
// path elements, with no attempt to reconstruct which trailing
// component was a tag value, since a bare []string carries no such
// marker on its own.
func logicalToPath(p []string) *gpb.Path {
	elems := make([]*gpb.PathElem, len(p))
	for i, name := range p {
		elems[i] = &gpb.PathElem{Name: name}
	}
	return &gpb.Path{Elem: elems}
}

func typedValueToString(v *gpb.TypedValue) string {
	switch val := v.GetValue().(type) {
	case *gpb.TypedValue_StringVal:
		return val.StringVal
	case *gpb.TypedValue_IntVal:
		return strconv.FormatInt(val.IntVal, 10)
	case *gpb.TypedValue_UintVal:
		return strconv.FormatUint(val.UintVal, 10)
	case *gpb.TypedValue_BoolVal:
		if val.BoolVal {
			return "true"
		}
		return "false"
	case *gpb.TypedValue_AsciiVal:
		return val.AsciiVal
	default:
		return ""
	}
}
