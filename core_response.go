/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/badu/httpserver/chunked"
	"github.com/badu/httpserver/hdr"
)

// BodyMode selects one of spec §4.3's three submission modes.
type BodyMode int

const (
	// BodyNone is the Direct mode: no body.
	BodyNone BodyMode = iota
	// BodyStreamPull: Connection pulls from a handler-supplied io.Reader
	// as output becomes writable.
	BodyStreamPull
	// BodyBlockingPush: the handler receives an io.Writer and writes into
	// it synchronously, back-pressured by the underlying socket.
	BodyBlockingPush
)

// AuthChallenge is one WWW-Authenticate challenge (spec §4.3 "Auth
// challenges"): an auth-scheme token, an optional realm, and zero or more
// parameters.
type AuthChallenge struct {
	Scheme     string
	Realm      string
	Params     []AuthParam
}

type AuthParam struct {
	Name  string
	Value string
}

// framing is the outcome of spec §4.3's framing decision, computed once
// before the first response byte is written.
type framing int

const (
	framingContentLength framing = iota
	framingChunked
	framingCloseDelimited
)

// Response holds everything the handler supplies before a request's reply
// hits the wire (spec §3 "Response"), owned 1:1 by its Request.
type Response struct {
	req *Request // non-owning back-pointer

	status int
	reason string
	header hdr.Header

	haveConnection bool
	haveDate       bool
	haveBodySpec   bool // Content-Length or Transfer-Encoding set by handler

	challenges []AuthChallenge

	mode       BodyMode
	bodyReader io.Reader    // BodyStreamPull source
	bodyWriter *pushWriter  // BodyBlockingPush sink handed to the handler
	knownLen   int64        // >= 0 if BodyStreamPull's length is known a priori; -1 otherwise

	submitted bool
	framing   framing
	contentLength int64

	tunnel TunnelCallback // set alongside a 2xx status to request tunnel handoff
}

func newResponse(req *Request) *Response {
	return &Response{req: req, status: 200, header: make(hdr.Header), knownLen: -1}
}

// SetStatus sets the status line. Called at most meaningfully once before Submit.
func (r *Response) SetStatus(code int, reason string) {
	r.status = code
	r.reason = reason
}

// Header returns the header map the handler fills directly. Only SetHeader
// records that Connection, Date, Content-Length or Transfer-Encoding were
// set by the handler; writes made straight into this map are not tracked,
// and a duplicate or conflicting submission is not detected.
func (r *Response) Header() hdr.Header { return r.header }

// noteHeaderSet records which of the three special header families spec
// §4.3 calls out the handler has set. It only records; it does not compare
// with an earlier value or report a conflict.
func (r *Response) noteHeaderSet(key string) {
	switch key {
	case hdr.Connection:
		r.haveConnection = true
	case hdr.Date:
		r.haveDate = true
	case hdr.ContentLength, hdr.TransferEncoding:
		r.haveBodySpec = true
	}
}

// SetHeader sets a response header value, tracking the special families.
func (r *Response) SetHeader(key, value string) {
	r.header.Set(key, value)
	r.noteHeaderSet(hdr.CanonicalHeaderKey(key))
}

// AddChallenge appends one WWW-Authenticate challenge, serialized in
// insertion order at submit time.
func (r *Response) AddChallenge(c AuthChallenge) {
	r.challenges = append(r.challenges, c)
}

// SetBodyStreamPull selects Stream-pull mode (spec §4.3): src is read
// until EOF; knownLen, if >= 0, lets framing inject Content-Length instead
// of chunked encoding.
func (r *Response) SetBodyStreamPull(src io.Reader, knownLen int64) {
	r.mode = BodyStreamPull
	r.bodyReader = src
	r.knownLen = knownLen
}

// SetBodyBlockingPush selects Blocking-push mode and returns the io.WriteCloser
// the handler writes into; writes block until the connection's output pump
// drains them to the socket.
func (r *Response) SetBodyBlockingPush() io.WriteCloser {
	r.mode = BodyBlockingPush
	r.bodyWriter = newPushWriter()
	return r.bodyWriter
}

// SetTunnel marks this response as the handoff response for a CONNECT
// tunnel (spec §4.1 "Tunnel upgrade"); status must be 2xx and the body
// mode must be BodyNone.
func (r *Response) SetTunnel(cb TunnelCallback) {
	r.tunnel = cb
}

// decideFraming implements spec §4.3's four framing rules, injects the
// Date/Connection headers it owns, and records the chosen framing. proto10
// and willClose reflect the request's HTTP version and the connection's
// close decision.
func (r *Response) decideFraming(proto10, willClose bool) (closes bool, err error) {
	switch {
	case r.haveBodySpec && r.header.Get(hdr.ContentLength) != "":
		n, perr := strconv.ParseInt(r.header.Get(hdr.ContentLength), 10, 64)
		if perr != nil || n < 0 {
			return willClose, newError(KindHandlerSubmitError, 500, "invalid Content-Length")
		}
		r.framing = framingContentLength
		r.contentLength = n
	case r.mode == BodyStreamPull && r.knownLen >= 0:
		r.framing = framingContentLength
		r.contentLength = r.knownLen
		r.header.Set(hdr.ContentLength, strconv.FormatInt(r.knownLen, 10))
	case !proto10:
		r.framing = framingChunked
		r.header.Set(hdr.TransferEncoding, DoChunked)
	default:
		r.framing = framingCloseDelimited
		willClose = true
	}

	if !r.haveDate {
		r.header.Set(hdr.Date, formatHTTPDate(r.req.conn.config().clock().Now()))
	}
	if !r.haveConnection {
		switch {
		case willClose:
			r.header.Set(hdr.Connection, DoClose)
		case proto10:
			r.header.Set(hdr.Connection, DoKeepAlive)
		}
	} else if willClose {
		r.header.Set(hdr.Connection, DoClose)
	}
	return willClose, nil
}

// writeHead serializes the status line, headers, and auth challenges to w.
func (r *Response) writeHead(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %03d %s\r\n", r.status, statusReason(r.status, r.reason)); err != nil {
		return err
	}
	for _, c := range r.challenges {
		if _, err := io.WriteString(w, hdr.WWWAuthenticate+": "+c.encode()+"\r\n"); err != nil {
			return err
		}
	}
	if err := r.header.Write(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// encode serializes one challenge as "scheme realm=\"...\", k=v, ...",
// quoting any parameter value containing a TSPECIALS character, grounded
// on hdr's token/quoting helpers generalized from header-value quoting.
func (c AuthChallenge) encode() string {
	var b strings.Builder
	b.WriteString(c.Scheme)
	wroteAny := false
	writeParam := func(name, value string) {
		if wroteAny {
			b.WriteString(", ")
		} else {
			b.WriteByte(' ')
		}
		wroteAny = true
		b.WriteString(name)
		b.WriteByte('=')
		if isToken(value) {
			b.WriteString(value)
		} else {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(value, `"`, `\"`))
			b.WriteByte('"')
		}
	}
	if c.Realm != "" {
		writeParam("realm", c.Realm)
	}
	for _, p := range c.Params {
		writeParam(p.Name, p.Value)
	}
	return b.String()
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !hdr.IsTokenRune(r) {
			return false
		}
	}
	return true
}

// pushWriter is the io.WriteCloser handed to a Blocking-push handler: each
// Write is relayed, back-pressured, to the connection's chunked/identity
// encoder via a bounded channel, so the handler itself is the writer
// instead of going through a ResponseWriter.Write call.
type pushWriter struct {
	ch     chan []byte
	result chan error
	closed chan struct{}
}

func newPushWriter() *pushWriter {
	return &pushWriter{
		ch:     make(chan []byte),
		result: make(chan error),
		closed: make(chan struct{}),
	}
}

func (w *pushWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case w.ch <- buf:
	case <-w.closed:
		return 0, io.ErrClosedPipe
	}
	err := <-w.result
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *pushWriter) Close() error {
	close(w.ch)
	return nil
}

// pumpTo drains the handler's writes to dst (the connection's output
// encoder), reporting each Write's outcome back to the blocked handler.
func (w *pushWriter) pumpTo(dst io.Writer) error {
	for buf := range w.ch {
		_, err := dst.Write(buf)
		w.result <- err
		if err != nil {
			return err
		}
	}
	return nil
}

// newChunkedEncoder wraps w in the encoder the output pumps use for chunked
// framing; identity and close-delimited bodies go to the stream directly.
func newChunkedEncoder(w io.Writer) *chunked.Writer { return chunked.NewWriter(w) }
