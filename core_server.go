/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"crypto/tls"
	"net"
	"sync/atomic"

	"github.com/badu/httpserver/transport"
)

// Server holds configuration, the live ConnectionList, and constructs a
// Connection for each accepted socket: a plain, zero-value-friendly config
// holder that builds one connection-core Server per listener.
type Server struct {
	config    *Config
	callbacks ConnectionCallbacks
	list      *ConnectionList

	nextConnID uint64
}

// NewServer constructs a Server from cfg (copied by reference; callers
// should not mutate it after this call) and the application's callback
// bundle (spec §6 "Callback interface exposed to application").
func NewServer(cfg *Config, callbacks ConnectionCallbacks) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Server{
		config:    cfg,
		callbacks: callbacks,
		list:      newConnectionList(),
	}
}

// ConnectionList exposes the Server's live-connection tracker, e.g. for
// SwitchIOLoop or diagnostics.
func (s *Server) ConnectionList() *ConnectionList { return s.list }

// Accept constructs a Connection for an already-wrapped transport.Stream.
// The caller is responsible for calling Connection.Serve (typically in its
// own goroutine) and for the accept loop itself — binding a listener is
// explicitly an external-collaborator concern (spec §1 "the event loop and
// socket primitives").
func (s *Server) Accept(stream transport.Stream) *Connection {
	id := atomic.AddUint64(&s.nextConnID, 1)
	c := newConnection(s, id, stream)
	s.list.add(c)
	return c
}

// AcceptConn wraps a freshly-accepted net.Conn per s.config.TLSConfig
// (tls.Server + handshake when set, plain passthrough otherwise) and hands
// the result to Accept. It is the convenience path spec §6's "ssl" config
// key implies: a caller with a plain net.Listener doesn't need to know
// about the transport package's Stream types at all.
func (s *Server) AcceptConn(conn net.Conn) (*Connection, error) {
	if s.config.TLSConfig == nil {
		return s.Accept(transport.NewPlain(conn)), nil
	}
	stream, err := transport.NewSecure(tls.Server(conn, s.config.TLSConfig), s.config.TLSHandshakeTimeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s.Accept(stream), nil
}
