/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import "github.com/pkg/errors"

// ErrorKind classifies a connection-core failure into one of the
// dispositions enumerated in spec §7, so a single switch at the point of
// failure decides status code and connection fate instead of string
// matching on error text.
type ErrorKind int

const (
	// KindClientProtocol covers a malformed request head or bad chunked
	// framing: respond 400, set input-broken, drain the queue, close.
	KindClientProtocol ErrorKind = iota
	// KindRequestTooLarge covers a header or payload exceeding its limit:
	// respond 413/431, close after response.
	KindRequestTooLarge
	// KindTargetTooLong covers a request-URI over the configured maximum:
	// respond 414, close after response.
	KindTargetTooLong
	// KindNotImplemented covers an unsupported method/version feature the
	// server declines: respond 501, connection stays open.
	KindNotImplemented
	// KindHandlerSubmitError covers a handler submitting conflicting
	// headers or an invalid status: abort the request, respond 500, log.
	KindHandlerSubmitError
	// KindPayloadEncoding covers a content-length mismatch while sending:
	// log, close the connection.
	KindPayloadEncoding
	// KindTransportRead and KindTransportWrite cover socket/TLS I/O
	// errors: abort all queued requests, close.
	KindTransportRead
	KindTransportWrite
	// KindIdleTimeout covers no activity within the configured window:
	// close with reason "connection timed out".
	KindIdleTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindClientProtocol:
		return "client_protocol"
	case KindRequestTooLarge:
		return "request_too_large"
	case KindTargetTooLong:
		return "target_too_long"
	case KindNotImplemented:
		return "not_implemented"
	case KindHandlerSubmitError:
		return "handler_submit_error"
	case KindPayloadEncoding:
		return "payload_encoding"
	case KindTransportRead:
		return "transport_read"
	case KindTransportWrite:
		return "transport_write"
	case KindIdleTimeout:
		return "idle_timeout"
	default:
		return "unknown"
	}
}

// coreError is a typed error value carrying an ErrorKind and the status
// code its disposition implies (0 when the disposition doesn't write a
// status, e.g. a pure transport error).
type coreError struct {
	kind   ErrorKind
	status int
	msg    string
}

func (e *coreError) Error() string { return e.msg }

// Kind reports e's ErrorKind, surfacing through any github.com/pkg/errors
// wrapping via errors.Cause, exactly as the ambient stack's error-wrapping
// convention expects.
func (e *coreError) Kind() ErrorKind { return e.kind }

func newError(kind ErrorKind, status int, msg string) error {
	return &coreError{kind: kind, status: status, msg: msg}
}

// errorKind recovers the ErrorKind of err, unwrapping any github.com/pkg/errors
// wrapping applied by a call site adding context. Returns false if err
// carries no typed kind.
func errorKind(err error) (ErrorKind, bool) {
	var ce *coreError
	if ok := errors.As(err, &ce); ok {
		return ce.kind, true
	}
	return 0, false
}

var (
	errClientProtocol   = newError(KindClientProtocol, 400, "malformed request")
	errTargetTooLong    = newError(KindTargetTooLong, 414, "request-URI too long")
	errHeaderTooLarge   = newError(KindRequestTooLarge, 431, "request header fields too large")
	errPayloadTooLarge  = newError(KindRequestTooLarge, 413, "payload too large")
	errNotImplemented   = newError(KindNotImplemented, 501, "not implemented")
	errHandlerSubmit    = newError(KindHandlerSubmitError, 500, "internal server error")
)
