/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/badu/httpserver/hdr"
	"github.com/badu/httpserver/parser"
	"github.com/badu/httpserver/transport"
)

// TunnelCallback receives the raw stream and any bytes the parser had
// already buffered past the request head, once a CONNECT response has been
// flushed (spec §4.1 "Tunnel upgrade"). After it returns, or is invoked,
// no further HTTP processing occurs on this connection.
type TunnelCallback func(stream transport.Stream, buffered []byte)

// ConnectionCallbacks is the callback bundle spec §4.1's "Public contract"
// names: handle_request, handle_connect_tunnel, connection_destroy.
type ConnectionCallbacks struct {
	HandleRequest func(conn *Connection, req *Request)
	HandleConnect func(conn *Connection, req *Request) bool
	ConnectionDestroy func(conn *Connection, reason error)
}

// Connection owns one accepted socket: parser, request queue, read/write
// goroutines, and timers (spec §3 "Connection", §4.1). Where the original
// drives everything from one ioloop thread, this module uses one goroutine
// for the read/parse side and one for the strictly-ordered write side,
// synchronized through the request queue and a handful of channels rather
// than shared ioloop callbacks — the Go-idiomatic rendering of spec §5's
// "single-threaded cooperative per ioloop" model.
type Connection struct {
	id     uint64
	srv    *Server
	stream transport.Stream
	bufr   *bufio.Reader

	writeMu sync.Mutex // serializes all writes to stream (100-continue + responses)

	qmu       sync.Mutex
	qcond     *sync.Cond // signaled when queueCount drops, for pipeline back-pressure
	head, tail *Request
	queueCount int
	nextReqID  uint64

	wake chan struct{} // signals the writer goroutine to re-scan the queue

	closed         int32 // atomic bool
	closeIndicated int32 // atomic bool
	inputBrokenF   int32 // atomic bool
	switchingIOLoop int32

	stats *statsTracker

	timerMu      sync.Mutex // guards idleTimer/headerTimer: armIdleTimer now also runs off the handler goroutine (PayloadPump.onRead), not just readLoop
	idleTimer    clockwork.Timer
	headerTimer  clockwork.Timer

	destroyOnce sync.Once
}

func newConnection(srv *Server, id uint64, stream transport.Stream) *Connection {
	stats := newStatsTracker(srv.config.clock())
	c := &Connection{
		id:     id,
		srv:    srv,
		stream: stream,
		bufr:   bufio.NewReader(countingReader{stream, stats}),
		wake:   make(chan struct{}, 1),
		stats:  stats,
	}
	c.qcond = sync.NewCond(&c.qmu)
	return c
}

// countingReader wraps the raw socket so every byte that reaches c.bufr —
// request heads and payload bytes alike, regardless of which code path
// pulls them — is attributed to ConnectionStats.BytesIn in one place,
// rather than each reader of c.bufr tracking it separately.
type countingReader struct {
	r     io.Reader
	stats *statsTracker
}

func (cr countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.stats.addBytesIn(int64(n))
	}
	return n, err
}

func (c *Connection) config() *Config { return c.srv.config }

func (c *Connection) String() string {
	return "[Conn" + itoa(c.id) + "]"
}

// Stats reports a point-in-time snapshot of this connection's counters.
func (c *Connection) Stats() ConnectionStats { return c.stats.snapshot() }

func (c *Connection) inputBroken() bool { return atomic.LoadInt32(&c.inputBrokenF) == 1 }
func (c *Connection) setInputBroken()    { atomic.StoreInt32(&c.inputBrokenF, 1) }
func (c *Connection) isClosed() bool     { return atomic.LoadInt32(&c.closed) == 1 }

// PendingPayload reports whether a request payload is currently being read
// on this connection — recovered from the original's
// http_server_connection_pending_payload, used by an ioloop to decide
// read-readiness registration; here it is informational only, since this
// module's read goroutine blocks directly rather than polling readiness.
func (c *Connection) PendingPayload() bool {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	for r := c.head; r != nil; r = r.next {
		if r.State() == StatePayloadIn {
			return true
		}
	}
	return false
}

// --- queue management -------------------------------------------------

func (c *Connection) enqueue(r *Request) {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	r.prev = c.tail
	if c.tail != nil {
		c.tail.next = r
	}
	c.tail = r
	if c.head == nil {
		c.head = r
	}
	c.queueCount++
}

// dequeueHead unlinks the current head, called only once it is Finished
// or Aborted.
func (c *Connection) dequeueHead() {
	c.qmu.Lock()
	r := c.head
	if r == nil {
		c.qmu.Unlock()
		return
	}
	c.head = r.next
	if c.head != nil {
		c.head.prev = nil
	} else {
		c.tail = nil
	}
	r.next = nil
	c.queueCount--
	c.qmu.Unlock()
	c.qcond.Broadcast()
	// A Finished request leaving the queue releases the queue's ref; an
	// Aborted one already released it in abort.
	if r.State() == StateFinished {
		r.unref(nil)
	}
}

func (c *Connection) peekHead() *Request {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	return c.head
}

func (c *Connection) count() int {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	return c.queueCount
}

func (c *Connection) signalWriter() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// --- serve loop ---------------------------------------------------------

// Serve drives the connection until the socket is released or a fatal
// error occurs (spec §4.1 "Public contract"). It returns once the
// connection has fully torn down.
func (c *Connection) Serve() {
	go c.writeLoop()
	c.readLoop()
}

func (c *Connection) readLoop() {
	limits := c.config().parserLimits()
	for {
		if c.inputBroken() || atomic.LoadInt32(&c.closeIndicated) == 1 {
			break
		}
		c.qmu.Lock()
		for c.queueCount >= c.config().maxPipelined() && !c.isClosed() {
			c.qcond.Wait()
		}
		c.qmu.Unlock()
		if c.isClosed() {
			return
		}

		// The header-read timer starts at the first byte of the next head,
		// not while the connection sits idle between requests.
		if _, err := c.bufr.Peek(1); err != nil {
			c.handleParseError(err)
			break
		}
		c.armHeaderTimer()
		head, err := parser.ParseHead(c.bufr, limits)
		c.disarmHeaderTimer()
		if err != nil {
			c.handleParseError(err)
			break
		}
		c.armIdleTimer()

		req := c.newQueuedRequest(head)

		if limit := c.config().MaxPayloadSize; limit > 0 && req.contentLen > limit {
			// Reject before the handler ever sees this request, so
			// Payload() never runs and no 100-continue is sent for a
			// body we already know we won't accept (spec §8 scenario 2).
			// The unread body is still on the wire, so the connection
			// closes once the 413 is written.
			req.Submit(errPayloadTooLarge)
			c.closeAfterCurrentResponse()
		} else if isConnect := c.dispatch(req); isConnect {
			// Suspend further reads on the shared bufio.Reader until the
			// CONNECT decision (and, on acceptance, the tunnel handoff's
			// buffered-byte drain) fully resolves — otherwise the parser
			// and handoffTunnel race over the same unsynchronized reader
			// (spec §4.1 "no further HTTP processing occurs on this
			// socket").
			<-req.connectResolved
		} else if req.hasBody() {
			c.waitForPayloadDisposal(req)
		}
	}
	c.waitForDrainAndDestroy(c.lastCloseReason())
}

func (c *Connection) newQueuedRequest(head *parser.Head) *Request {
	id := atomic.AddUint64(&c.nextReqID, 1)
	req := newRequest(c, id, head)
	c.enqueue(req)
	req.setState(StateQueued)
	c.stats.addRequest()
	return req
}

// dispatch spawns the application's handler goroutine for req, guarded by
// the in-callback marker so teardown never races a live callback (spec §9
// "Reentrancy"). It reports whether req is a CONNECT request handed off to
// runConnect, so the caller knows to wait on req.connectResolved rather
// than treat it as an ordinary body-bearing request.
func (c *Connection) dispatch(req *Request) (isConnect bool) {
	if strings.EqualFold(req.method, CONNECT) && c.srv.callbacks.HandleConnect != nil {
		go c.runConnect(req)
		return true
	}
	handler := c.srv.callbacks.HandleRequest
	if handler == nil {
		req.Submit(errNotImplemented)
		return false
	}
	req.enterCallback()
	go func() {
		defer req.exitCallback()
		defer func() {
			if rec := recover(); rec != nil {
				c.config().logger().Errorf("%s: handler panic: %v", req, rec)
				req.Submit(newError(KindHandlerSubmitError, 500, "internal server error"))
			}
		}()
		handler(c, req)
		req.finishIfUnsubmitted()
	}()
	return false
}

// runConnect decides the CONNECT request and, on rejection, resolves it
// immediately since nothing further touches the shared bufio.Reader; on
// acceptance, handoffTunnel resolves it once the buffered-byte drain that
// follows the response write completes (see writeResponse).
func (c *Connection) runConnect(req *Request) {
	req.enterCallback()
	defer req.exitCallback()
	defer func() {
		if rec := recover(); rec != nil {
			c.config().logger().Errorf("%s: connect handler panic: %v", req, rec)
			req.Submit(newError(KindHandlerSubmitError, 500, "internal server error"))
			req.resolveConnect()
		}
	}()
	ok := c.srv.callbacks.HandleConnect(c, req)
	if !ok {
		req.Submit(newError(KindNotImplemented, 501, "CONNECT not supported"))
		req.resolveConnect()
		return
	}
	req.SubmitConnect()
}

// waitForPayloadDisposal blocks the read goroutine until req's payload is
// no longer in flight: either the handler drained it to EOF, or the
// connection itself discards whatever remains once a response is
// submitted early (spec §4.1 "Payload skip/discard"), preserving invariant
// 3 (at most one in-flight incoming payload at a time).
func (c *Connection) waitForPayloadDisposal(req *Request) {
	select {
	case <-req.payloadDrained:
	case <-req.submittedEarly:
		c.discardRemainingPayload(req)
	}
}

func (c *Connection) discardRemainingPayload(req *Request) {
	p := req.payload()
	if p == nil || req.isComplete() {
		req.setStateIfCurrent(StateSubmittedResponse, StateReadyToRespond)
		return
	}
	_, err := io.Copy(io.Discard, p)
	if err != nil && err != io.EOF {
		req.failed = true
		c.closeAfterCurrentResponse()
	}
	req.setStateIfCurrent(StateSubmittedResponse, StateReadyToRespond)
	c.signalWriter()
}

func (c *Connection) closeAfterCurrentResponse() {
	atomic.StoreInt32(&c.closeIndicated, 1)
}

func (c *Connection) handleParseError(err error) {
	// Parser errors carry no ErrorKind of their own; map them onto the
	// sentinels whose kind and status the disposition below uses.
	var malformed parser.ErrMalformed
	switch {
	case err == parser.ErrTargetTooLong:
		err = errTargetTooLong
	case err == parser.ErrHeaderTooLarge:
		err = errHeaderTooLarge
	case errors.As(err, &malformed):
		err = errClientProtocol
	}
	kind, hasKind := errorKind(err)
	c.setInputBroken()
	if !hasKind {
		return
	}
	if kind == KindTargetTooLong || kind == KindRequestTooLarge || kind == KindClientProtocol {
		id := atomic.AddUint64(&c.nextReqID, 1)
		req := newRequest(c, id, &parser.Head{Method: "-", Target: "-", ContentLen: -1})
		c.enqueue(req)
		req.setState(StateQueued)
		req.Submit(err)
		atomic.StoreInt32(&c.closeIndicated, 1)
		c.signalWriter()
	}
}

func (c *Connection) lastCloseReason() error {
	if c.inputBroken() {
		return errClientProtocol
	}
	return nil
}

// --- 100-continue -------------------------------------------------------

func (c *Connection) maybeSend100Continue(req *Request) {
	if req.sent100 {
		return
	}
	if !strings.EqualFold(req.header.Get(hdr.Expect), "100-continue") {
		return
	}
	req.sent100 = true
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	io.WriteString(c.stream, "HTTP/1.1 100 Continue\r\n\r\n")
}

// --- timers ---------------------------------------------------------

func (c *Connection) armIdleTimer() {
	d := c.config().MaxClientIdleTime
	if d <= 0 {
		return
	}
	c.timerMu.Lock()
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	t := c.config().clock().NewTimer(d)
	c.idleTimer = t
	c.timerMu.Unlock()
	go c.watchIdleTimer(t)
}

func (c *Connection) watchIdleTimer(t clockwork.Timer) {
	<-t.Chan()
	c.timerMu.Lock()
	current := t == c.idleTimer
	c.timerMu.Unlock()
	if current {
		c.destroy(newError(KindIdleTimeout, 0, "connection timed out"))
	}
}

func (c *Connection) armHeaderTimer() {
	d := c.config().MaxHeaderReadTime
	if d <= 0 {
		return
	}
	c.timerMu.Lock()
	t := c.config().clock().NewTimer(d)
	c.headerTimer = t
	c.timerMu.Unlock()
	go func(t clockwork.Timer) {
		<-t.Chan()
		c.timerMu.Lock()
		current := t == c.headerTimer
		c.timerMu.Unlock()
		if current {
			c.setInputBroken()
			c.destroy(newError(KindIdleTimeout, 0, "header read timeout"))
		}
	}(t)
}

func (c *Connection) disarmHeaderTimer() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.headerTimer != nil {
		c.headerTimer.Stop()
		c.headerTimer = nil
	}
}

// --- teardown ---------------------------------------------------------

// waitForDrainAndDestroy lets the write loop finish every request still
// queued once the read side has stopped taking new ones, then tears the
// connection down; a destroy from elsewhere (e.g. a timer) ends the wait.
func (c *Connection) waitForDrainAndDestroy(reason error) {
	c.qmu.Lock()
	for c.queueCount > 0 && !c.isClosed() {
		c.qcond.Wait()
	}
	c.qmu.Unlock()
	c.destroy(reason)
	c.signalWriter() // let writeLoop see the connection closed and return
}

// destroy aborts every queued request, closes the socket, and invokes the
// connection_destroy callback exactly once (spec §4.1, §5 "Cancellation").
func (c *Connection) destroy(reason error) {
	c.destroyOnce.Do(func() {
		atomic.StoreInt32(&c.closed, 1)
		c.qcond.Broadcast()
		c.timerMu.Lock()
		if c.idleTimer != nil {
			c.idleTimer.Stop()
		}
		if c.headerTimer != nil {
			c.headerTimer.Stop()
		}
		c.timerMu.Unlock()

		var merr *multierror.Error
		c.qmu.Lock()
		reqs := make([]*Request, 0, c.queueCount)
		for r := c.head; r != nil; r = r.next {
			reqs = append(reqs, r)
		}
		c.qmu.Unlock()
		for _, r := range reqs {
			r.abort(reason)
			if r.failed {
				merr = multierror.Append(merr, errors.Wrapf(reason, "%s aborted", r))
			}
		}

		c.stream.Close()
		if c.srv.list != nil {
			c.srv.list.remove(c)
		}
		if cb := c.srv.callbacks.ConnectionDestroy; cb != nil {
			if merr != nil && merr.Len() > 0 {
				cb(c, merr)
			} else {
				cb(c, reason)
			}
		}
	})
}

// beginIOLoopSwitch/endIOLoopSwitch bracket a ConnectionList.SwitchIOLoop
// pass over this connection (spec §4.5); while set, destroy() still runs
// (this module has no re-registration step to defer), but the flag is
// available to a caller's onSwitch hook that needs to know migration is
// in flight.
func (c *Connection) beginIOLoopSwitch() { atomic.StoreInt32(&c.switchingIOLoop, 1) }
func (c *Connection) endIOLoopSwitch()   { atomic.StoreInt32(&c.switchingIOLoop, 0) }

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
