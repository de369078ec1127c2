/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"io"
	"strings"
	"sync/atomic"

	"github.com/badu/httpserver/chunked"
	"github.com/badu/httpserver/hdr"
)

// writeLoop is the "trigger responses" function of spec §4.1's Write
// path: a single goroutine that scans the queue from head, writing
// whichever response is ready, strictly in request-arrival order
// (invariant 1). It blocks on c.wake between scans.
func (c *Connection) writeLoop() {
	for {
		head := c.peekHead()
		if head == nil {
			if c.isClosed() {
				return
			}
			<-c.wake
			continue
		}

		switch head.State() {
		case StateReadyToRespond:
			c.writeResponse(head)
		case StateFinished, StateAborted:
			c.dequeueHead()
			continue
		default:
			<-c.wake
			continue
		}

		if atomic.LoadInt32(&c.closeIndicated) == 1 && c.count() == 0 {
			c.destroy(nil)
			return
		}
	}
}

// shouldClose implements spec §9's resolved open question: the handler
// setting Connection: close on the response is authoritative; absent an
// explicit choice, the request's own wantsClose (HTTP/1.0 without
// keep-alive, or an explicit Connection: close on the request) decides.
func (c *Connection) shouldClose(req *Request, resp *Response) bool {
	if resp.haveConnection {
		return strings.EqualFold(resp.header.Get(hdr.Connection), DoClose)
	}
	return req.wantsClose
}

func (c *Connection) writeResponse(req *Request) {
	// The response holds its own stake in req while it writes.
	req.ref()
	defer req.unref(nil)
	resp := req.Response()
	proto10 := req.protoMajor == 1 && req.protoMinor == 0
	willClose := c.shouldClose(req, resp)

	closes, err := resp.decideFraming(proto10, willClose)
	if err != nil {
		req.failed = true
		c.destroy(err)
		return
	}
	willClose = willClose || closes

	c.writeMu.Lock()
	err = resp.writeHead(c.stream)
	c.writeMu.Unlock()
	if err != nil {
		req.abort(newError(KindTransportWrite, 0, "write error"))
		c.destroy(err)
		return
	}
	req.setState(StateSentResponse)

	if resp.tunnel != nil {
		c.handoffTunnel(req, resp)
		return
	}

	// A CONNECT request that reaches here without a tunnel callback (the
	// handler accepted but never called SetTunnel) still needs its read
	// loop unblocked — runConnect only resolves the reject path itself.
	if strings.EqualFold(req.method, CONNECT) {
		req.resolveConnect()
	}

	switch resp.mode {
	case BodyNone:
		req.setState(StateFinished)
	case BodyStreamPull:
		req.setState(StatePayloadOut)
		c.pumpStreamPull(req, resp)
	case BodyBlockingPush:
		req.setState(StatePayloadOut)
		c.pumpBlockingPush(req, resp)
	}

	if willClose {
		atomic.StoreInt32(&c.closeIndicated, 1)
	}
}

func (c *Connection) pumpStreamPull(req *Request, resp *Response) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var enc io.Writer = c.stream
	var cw *chunked.Writer
	if resp.framing == framingChunked {
		cw = newChunkedEncoder(c.stream)
		enc = cw
	}

	n, err := io.Copy(enc, resp.bodyReader)
	c.stats.addBytesOut(n)
	if err == nil && cw != nil {
		err = cw.Close()
	}
	if err == nil && resp.framing == framingContentLength && n != resp.contentLength {
		err = newError(KindPayloadEncoding, 0, "content length mismatch during send")
	}
	if err != nil {
		req.abort(newError(KindTransportWrite, 0, "write error"))
		c.config().logger().Errorf("%s: %v", req, err)
		c.destroy(err)
		return
	}
	req.setState(StateFinished)
}

func (c *Connection) pumpBlockingPush(req *Request, resp *Response) {
	c.writeMu.Lock()
	var enc io.Writer = c.stream
	var cw *chunked.Writer
	if resp.framing == framingChunked {
		cw = newChunkedEncoder(c.stream)
		enc = cw
	}
	c.writeMu.Unlock()

	lw := &lockedWriter{c: c, w: enc}
	err := resp.bodyWriter.pumpTo(lw)
	if err == nil && cw != nil {
		c.writeMu.Lock()
		err = cw.Close()
		c.writeMu.Unlock()
	}
	if err == nil && resp.framing == framingContentLength && lw.written != resp.contentLength {
		err = newError(KindPayloadEncoding, 0, "content length mismatch during send")
	}
	if err != nil {
		req.abort(newError(KindTransportWrite, 0, "write error"))
		c.config().logger().Errorf("%s: %v", req, err)
		c.destroy(err)
		return
	}
	req.setState(StateFinished)
}

// lockedWriter serializes concurrent writes onto the connection's socket
// through writeMu, needed because pumpBlockingPush's encoder is written to
// from the handler's own goroutine via pushWriter.pumpTo. It also tallies
// bytes actually written so the caller can catch a Content-Length mismatch
// once the handler's push finishes.
type lockedWriter struct {
	c       *Connection
	w       io.Writer
	written int64
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.c.writeMu.Lock()
	defer lw.c.writeMu.Unlock()
	n, err := lw.w.Write(p)
	lw.c.stats.addBytesOut(int64(n))
	lw.written += int64(n)
	return n, err
}

// handoffTunnel hands the raw stream and any bytes already buffered past
// the request head to the tunnel callback, then detaches this connection
// from further HTTP processing (spec §4.1 "Tunnel upgrade").
func (c *Connection) handoffTunnel(req *Request, resp *Response) {
	buffered := drainBuffered(c.bufr)
	// Only now is it safe to let readLoop touch c.bufr again — and it won't,
	// since closeIndicated is about to be set and no further head is parsed.
	req.resolveConnect()
	req.setState(StateFinished)
	atomic.StoreInt32(&c.closeIndicated, 1)
	cb := resp.tunnel
	stream := c.stream
	go func() {
		cb(stream, buffered)
	}()
}

func drainBuffered(br interface {
	Buffered() int
	Peek(int) ([]byte, error)
}) []byte {
	n := br.Buffered()
	if n == 0 {
		return nil
	}
	b, _ := br.Peek(n)
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
