/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"net"

	"github.com/badu/httpserver/hdr"
	"github.com/badu/httpserver/parser"
	"github.com/badu/httpserver/transport"
	"github.com/jonboulle/clockwork"
)

// newTestConnection builds a Connection over an in-memory net.Pipe, backed
// by a fake clock, for tests that need a live Connection/Request pair
// without binding a real socket.
func newTestConnection(t testingT) (*Connection, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	srv := NewServer(&Config{Clock: clockwork.NewFakeClock()}, ConnectionCallbacks{})
	conn := newConnection(srv, 1, transport.NewPlain(server))
	return conn, client
}

// newTestRequest builds a Request bound to conn, bypassing the wire parser.
func newTestRequest(conn *Connection, method, target string, protoMajor, protoMinor int) *Request {
	head := &parser.Head{
		Method:     method,
		Target:     target,
		ProtoMajor: protoMajor,
		ProtoMinor: protoMinor,
		Header:     make(hdr.Header),
		ContentLen: -1,
	}
	req := newRequest(conn, 1, head)
	req.response = newResponse(req)
	return req
}

// testingT is the subset of *testing.T this file's helpers need, so they
// don't have to import "testing" just for the type.
type testingT interface {
	Helper()
}
