/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/badu/httpserver/hdr"
	"github.com/badu/httpserver/parser"
)

// DestroyCallback is invoked, at most once, when a Request is torn down —
// normally or via Abort — so a handler that registered one can release any
// resources tied to the exchange.
type DestroyCallback func(req *Request, reason error)

// Request represents one request+response exchange on a Connection (spec
// §3). It is held by up to three owners at once — the connection's queue,
// an in-progress handler invocation, and its Response while writing a
// payload (spec §4.2 "Request reference counting") — tracked with an
// atomic refcount rather than a GC-unsafe manual one, since Go's garbage
// collector already owns the memory; what the refcount actually protects is
// ordering, not memory safety: teardown must never run while a handler
// callback for this request is still on the stack.
type Request struct {
	id     uint64
	conn   *Connection // non-owning back-pointer, never extends lifetime
	method string
	target string
	protoMajor, protoMinor int
	header hdr.Header

	mu    sync.Mutex
	state RequestState

	// incomingPayload is non-nil only while state == StatePayloadIn,
	// borrowed by the handler (spec invariant 3).
	incomingPayload *PayloadPump
	response        *Response

	payloadHalted  bool
	sent100        bool
	failed         bool
	destroyPending bool

	destroyCallback DestroyCallback
	destroyed       bool
	inCallback      bool // true while a handler goroutine is running for this request

	refcount int32 // atomic

	// body bookkeeping — set at construction from the parsed head.
	contentLen       int64 // -1 if absent
	chunkedIn        bool
	wantsClose       bool
	payloadRequested bool

	payloadDrained chan struct{}
	drainOnce      sync.Once
	submittedEarly chan struct{}
	submitOnce     sync.Once

	// connectResolved is closed once a CONNECT request's tunnel-or-reject
	// decision is fully settled, including any handoff read off the
	// shared connection bufio.Reader — the read loop blocks on it instead
	// of parsing the next request head while that decision, and any
	// buffered-byte handoff it triggers, is still in flight.
	connectResolved chan struct{}
	connectOnce     sync.Once

	// queue linkage — doubly linked, owned by Connection.
	prev, next *Request
}

func newRequest(conn *Connection, id uint64, head *parser.Head) *Request {
	return &Request{
		id:             id,
		conn:           conn,
		method:         head.Method,
		target:         head.Target,
		protoMajor:     head.ProtoMajor,
		protoMinor:     head.ProtoMinor,
		header:         head.Header,
		state:          StateNew,
		refcount:       1, // held by the connection queue
		contentLen:     head.ContentLen,
		chunkedIn:      head.HasTELength,
		wantsClose:     head.Close,
		payloadDrained:   make(chan struct{}),
		submittedEarly:   make(chan struct{}),
		connectResolved:  make(chan struct{}),
	}
}

// resolveConnect unblocks the read loop's wait for this request's CONNECT
// decision (see connectResolved). Safe to call more than once or from
// more than one goroutine.
func (r *Request) resolveConnect() {
	r.connectOnce.Do(func() { close(r.connectResolved) })
}

// SetDestroyCallback registers cb as this request's DestroyCallback,
// replacing any earlier registration.
func (r *Request) SetDestroyCallback(cb DestroyCallback) {
	r.mu.Lock()
	r.destroyCallback = cb
	r.mu.Unlock()
}

// ID is the per-connection monotonic request identifier.
func (r *Request) ID() uint64 { return r.id }

// Method, Target, Header expose the parsed request head. Header is shared
// with no one else and may be read freely; it must not be mutated after
// the handler invocation returns.
func (r *Request) Method() string     { return r.method }
func (r *Request) Target() string     { return r.target }
func (r *Request) Header() hdr.Header { return r.header }

// Proto reports the request's HTTP version.
func (r *Request) Proto() (major, minor int) { return r.protoMajor, r.protoMinor }

// State reports the request's current position in spec §4.2's machine.
func (r *Request) State() RequestState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// String renders a compact debug label ("[Req12: GET /x]"), recovered
// from the original's http_server_request_label for use in log lines.
func (r *Request) String() string {
	return fmt.Sprintf("[Req%d: %s %s]", r.id, r.method, r.target)
}

// setState performs a checked transition, panicking on a transition the
// table in spec §4.2 forbids — a programming error in this package, never
// a condition reachable from untrusted input.
func (r *Request) setState(to RequestState) {
	r.mu.Lock()
	from := r.state
	if !canTransition(from, to) {
		r.mu.Unlock()
		panic(fmt.Sprintf("%s: illegal transition %s -> %s", r, from, to))
	}
	r.state = to
	r.mu.Unlock()
	r.conn.config().logger().Debugf("%s: %s -> %s", r, from, to)
}

// ref increments the reference count. Called when the connection queue,
// a handler invocation, or a streaming Response each take a stake in the
// Request's lifetime.
func (r *Request) ref() {
	atomic.AddInt32(&r.refcount, 1)
}

// unref decrements the reference count and, if it reaches zero and the
// request is in a terminal state, tears it down — unless a handler
// callback is currently in flight for this request, in which case teardown
// is deferred until that callback unwinds (spec §9 "deferred destruction").
func (r *Request) unref(reason error) {
	if atomic.AddInt32(&r.refcount, -1) > 0 {
		return
	}
	r.mu.Lock()
	inCallback := r.inCallback
	terminal := r.state.IsTerminal()
	r.mu.Unlock()
	if !terminal {
		return
	}
	if inCallback {
		r.mu.Lock()
		r.destroyPending = true
		r.mu.Unlock()
		return
	}
	r.destroy(reason)
}

// enterCallback marks a handler invocation as in flight for r, deferring
// any teardown unref triggers until exitCallback runs (spec §9
// "Reentrancy"). It takes a ref on behalf of the callback, which
// exitCallback releases.
func (r *Request) enterCallback() {
	r.ref()
	r.mu.Lock()
	r.inCallback = true
	r.mu.Unlock()
}

// exitCallback clears the in-flight marker and performs any teardown the
// callback deferred, then releases the callback's ref.
func (r *Request) exitCallback() {
	r.mu.Lock()
	r.inCallback = false
	pending := r.destroyPending
	r.destroyPending = false
	r.mu.Unlock()
	if pending {
		r.destroy(nil)
	}
	r.unref(nil)
}

// destroy runs the registered DestroyCallback exactly once. Called either
// directly from unref, or by the Connection on callback-return for a
// request that set destroyPending mid-callback.
func (r *Request) destroy(reason error) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	cb := r.destroyCallback
	r.mu.Unlock()
	if cb != nil {
		cb(r, reason)
	}
}

// abort transitions the request to Aborted from any non-terminal state and
// releases the reference the connection queue holds, used on connection
// close (spec §5 "Cancellation") and on unrecoverable per-request errors.
func (r *Request) abort(reason error) {
	r.mu.Lock()
	if r.state.IsTerminal() {
		r.mu.Unlock()
		return
	}
	r.state = StateAborted
	r.failed = true
	r.mu.Unlock()
	if p := r.incomingPayload; p != nil {
		p.abort(reason)
	}
	r.resolveConnect()
	r.unref(reason)
}

// isComplete reports whether this request's payload has been fully
// consumed, or no longer needs to be: either the payload stream already
// hit EOF, the connection's input is already broken, or a later request is
// already queued behind it (meaning the peer already finished sending this
// one's body to get that far). Recovered from the original's
// http_server_request_is_complete, gating payload discard (spec §4.1
// "Payload skip/discard").
func (r *Request) isComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.incomingPayload == nil {
		return true
	}
	if r.incomingPayload.atEOF() {
		return true
	}
	if r.conn.inputBroken() {
		return true
	}
	return r.next != nil
}
