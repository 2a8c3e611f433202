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

package grpcapi

import (
	"net"

	"google.golang.org/grpc"

	gpb "github.com/openconfig/gnmi/proto/gnmi"
)

// Serve registers srv as the gnmi.GNMIServer on a new grpc.Server and
// blocks accepting connections on lis, the standard pattern the
// generated gnmi.pb.go's RegisterGNMIServer exists to support — confd
// has no cmd/* of its own for this (the twelve entries of §6 are the
// shell-invoked ones; this is wired up by whatever out-of-scope daemon
// embeds package grpcapi).
func Serve(lis net.Listener, srv *Server) error {
	s := grpc.NewServer()
	gpb.RegisterGNMIServer(s, srv)
	return s.Serve(lis)
}
