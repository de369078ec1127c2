/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package transport abstracts the plain-TCP and TLS variants of the
// connection's underlying byte stream behind one capability set, dispatching
// between *net.TCPConn and *tls.Conn via interface satisfaction rather than
// inheritance.
package transport

import (
	"crypto/tls"
	"net"
	"time"
)

// Stream is the capability set a Connection needs from its socket: reads,
// writes, deadlines and close, regardless of whether TLS terminates on top
// of it — one explicit interface in place of an implicit
// net.Conn-or-*tls.Conn duality.
type Stream interface {
	net.Conn

	// IsTLS reports whether this stream is the TLS variant. Handlers that
	// need req.TLS population (out of this core's scope) use it; the core
	// itself never calls it (Server.AcceptConn decides on a handshake from
	// Config.TLSConfig).
	IsTLS() bool
}

// plainStream is the non-TLS variant; it is Stream with IsTLS always false.
type plainStream struct {
	net.Conn
}

func (plainStream) IsTLS() bool { return false }

// NewPlain wraps a raw net.Conn as a plain Stream.
func NewPlain(c net.Conn) Stream { return plainStream{c} }

// secureStream wraps *tls.Conn. The spec calls this an "opaque SecureStream
// wrapper" and places it out of scope; this is the minimal concrete shim
// needed to satisfy Stream, handshake included.
type secureStream struct {
	*tls.Conn
}

func (secureStream) IsTLS() bool { return true }

// NewSecure wraps a *tls.Conn as a TLS Stream and performs the handshake
// with the given deadline (zero means no deadline).
func NewSecure(c *tls.Conn, handshakeDeadline time.Duration) (Stream, error) {
	if handshakeDeadline > 0 {
		_ = c.SetDeadline(time.Now().Add(handshakeDeadline))
	}
	if err := c.Handshake(); err != nil {
		return nil, err
	}
	if handshakeDeadline > 0 {
		_ = c.SetDeadline(time.Time{})
	}
	return secureStream{c}, nil
}

// ConnectionState returns the TLS connection state, or the zero value and
// false if the stream is not TLS.
func ConnectionState(s Stream) (tls.ConnectionState, bool) {
	if ss, ok := s.(secureStream); ok {
		return ss.Conn.ConnectionState(), true
	}
	return tls.ConnectionState{}, false
}

// closeWriter is implemented by stream types that can half-close their
// write side (e.g. *net.TCPConn); CloseWrite checks for it.
type closeWriter interface {
	CloseWrite() error
}

// CloseWrite half-closes the write side if the underlying stream supports
// it, via the same optional-interface pattern net/http's keep-alive
// listener uses for graceful shutdown; otherwise it closes the stream.
func CloseWrite(s Stream) error {
	var target interface{} = s
	if ps, ok := s.(plainStream); ok {
		target = ps.Conn
	}
	if cw, ok := target.(closeWriter); ok {
		return cw.CloseWrite()
	}
	return s.Close()
}

// Listener re-exports net.Listener so callers constructing a Server don't
// need a direct net import for the common case.
type Listener = net.Listener
