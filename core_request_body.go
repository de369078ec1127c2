/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"bufio"
	"bytes"
	"io"

	"github.com/badu/httpserver/chunked"
	"github.com/badu/httpserver/hdr"
)

// hasBody reports whether the request head announced a payload at all —
// either a positive Content-Length or chunked Transfer-Encoding.
func (r *Request) hasBody() bool {
	return r.chunkedIn || r.contentLen > 0
}

// buildPayload constructs the PayloadPump for this request's body, wired
// to the shared connection bufio.Reader. It must only be called once, and
// only for a request with hasBody() true.
func (r *Request) buildPayload(br *bufio.Reader) {
	var src io.Reader
	if r.chunkedIn {
		src = chunked.NewReader(br, false)
	} else {
		src = io.LimitReader(br, r.contentLen)
	}
	r.incomingPayload = newPayloadPump(src, r.conn.config().MaxPayloadSize, func() {
		r.onPayloadDrained()
	})
	// Payload bytes arrive off the handler's own read of the pump, not off
	// readLoop's ParseHead — without this the idle timer would only reset
	// once per request head instead of on every byte received (spec §4.1
	// "Timers").
	r.incomingPayload.SetOnRead(func(int) { r.conn.armIdleTimer() })
}

// Payload returns the stream the handler reads the request body from,
// transitioning Queued -> PayloadIn on first access (spec §4.2) and
// sending a pending 100-continue on that first access, before any payload
// byte is read. It returns nil if the request has no body.
func (r *Request) Payload() *PayloadPump {
	if !r.hasBody() {
		return nil
	}
	r.mu.Lock()
	if r.incomingPayload == nil {
		r.buildPayload(r.conn.bufr)
	}
	first := !r.payloadRequested
	r.payloadRequested = true
	st := r.state
	r.mu.Unlock()

	if first {
		r.conn.maybeSend100Continue(r)
		if st == StateQueued {
			r.setState(StatePayloadIn)
		}
	}
	return r.incomingPayload
}

// payload returns the PayloadPump without triggering any state transition
// or 100-continue, building it on demand — used by the connection's own
// discard path when the handler never called Payload() itself.
func (r *Request) payload() *PayloadPump {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasBody() {
		return nil
	}
	if r.incomingPayload == nil {
		r.buildPayload(r.conn.bufr)
	}
	r.incomingPayload.Continue() // force-resume: discard never waits on a halt
	return r.incomingPayload
}

// onPayloadDrained fires once the incoming payload stream reaches EOF,
// whether because the handler read it all or the connection discarded it.
func (r *Request) onPayloadDrained() {
	r.mu.Lock()
	if r.state == StatePayloadIn {
		r.state = StateProcessing
	}
	r.mu.Unlock()
	r.drainOnce.Do(func() { close(r.payloadDrained) })
}

// Response returns this request's Response, creating it on first access.
func (r *Request) Response() *Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.response == nil {
		r.response = newResponse(r)
	}
	return r.response
}

// Submit finalizes this request's response. err, if non-nil, is an
// internally-synthesized protocol error (spec §7): the status is taken
// from err (500 if it carries none), a plain-text body is generated unless
// the handler already set Content-Length or Transfer-Encoding, and the
// request is marked failed. Submit does not mark the connection to close;
// the callers that need that (parse errors, the early 413) do it themselves.
func (r *Request) Submit(err error) {
	resp := r.Response()
	if err != nil {
		status := 500
		if ce, ok := err.(*coreError); ok && ce.status != 0 {
			status = ce.status
		}
		resp.SetStatus(status, "")
		if !resp.haveBodySpec {
			body := []byte(err.Error() + "\n")
			resp.SetHeader(hdr.ContentType, "text/plain; charset=utf-8")
			resp.SetBodyStreamPull(bytes.NewReader(body), int64(len(body)))
		}
		r.mu.Lock()
		r.failed = true
		r.mu.Unlock()
	}
	r.finalizeSubmission()
}

// SubmitConnect finalizes a CONNECT/tunnel acceptance: a bodyless 2xx
// response whose Response.tunnel callback the connection invokes once the
// headers are flushed (spec §4.1 "Tunnel upgrade").
func (r *Request) SubmitConnect() {
	r.finalizeSubmission()
}

// finishIfUnsubmitted auto-submits a 200 OK with no body if the handler
// returned without ever calling Submit — matching net/http's own handler
// contract where returning implies "done," generalized to this module's
// explicit submission model so a forgetful handler doesn't wedge the
// connection.
func (r *Request) finishIfUnsubmitted() {
	r.mu.Lock()
	// Every state from SubmittedResponse onward, terminal ones included,
	// means Submit already ran.
	already := r.state >= StateSubmittedResponse
	r.mu.Unlock()
	if already {
		return
	}
	r.Submit(nil)
}

func (r *Request) finalizeSubmission() {
	r.mu.Lock()
	switch r.state {
	case StateQueued:
		r.state = StateProcessing
		fallthrough
	case StateProcessing, StatePayloadIn:
		r.state = StateSubmittedResponse
	}
	r.mu.Unlock()
	r.conn.config().logger().Debugf("%s: -> SubmittedResponse", r)

	r.submitOnce.Do(func() { close(r.submittedEarly) })
	if r.hasBody() && !r.isComplete() {
		return
	}
	r.setStateIfCurrent(StateSubmittedResponse, StateReadyToRespond)
	r.conn.signalWriter()
}

// setStateIfCurrent transitions to `to` only if the request is currently
// in state `from`, used by code paths racing with the submission flow
// above (e.g. the connection's discard completion).
func (r *Request) setStateIfCurrent(from, to RequestState) {
	r.mu.Lock()
	if r.state != from {
		r.mu.Unlock()
		return
	}
	r.state = to
	r.mu.Unlock()
	r.conn.config().logger().Debugf("%s: %s -> %s", r, from, to)
}
