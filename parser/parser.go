/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package parser is the low-level byte-level HTTP message parser the
// connection core treats as an external collaborator: a pure function
// over a buffered byte stream, with no connection state of its own. It
// draws an exact boundary ("invoked as a pure function over a byte
// stream") analogous to the TLS stream, an equally opaque wrapper built
// on crypto/tls.
package parser

import (
	"bufio"
	"net/textproto"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/badu/httpserver/hdr"
)

// Limits bounds what ParseHead will accept, mirroring spec §6's
// request_limits configuration keys.
type Limits struct {
	MaxTargetLength int // spec default 4096
	MaxHeaderBytes  int
}

// DefaultLimits matches spec §6's defaults.
func DefaultLimits() Limits {
	return Limits{MaxTargetLength: 4096, MaxHeaderBytes: 1 << 20}
}

// Head is the parsed request line plus headers; exactly the information
// needed to transition a Request from New to Queued (spec §4.2).
type Head struct {
	Method      string
	Target      string
	ProtoMajor  int
	ProtoMinor  int
	Header      hdr.Header
	ContentLen  int64 // -1 if absent
	HasTELength bool  // Transfer-Encoding: chunked present
	Close       bool  // Connection: close, or HTTP/1.0 without keep-alive
}

// ParseHead reads one request head (request line + headers, through the
// blank line) from r. It is a pure function: it mutates no state but r's
// read position, and returns a typed error the connection core maps to a
// disposition per spec §7.
func ParseHead(r *bufio.Reader, limits Limits) (*Head, error) {
	tp := textproto.NewReader(r)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}
	if line == "" {
		// RFC 7230 §3.5 tolerance: skip a stray leading CRLF some
		// clients send between pipelined requests.
		line, err = tp.ReadLine()
		if err != nil {
			return nil, err
		}
	}

	method, target, proto, ok := parseRequestLine(line)
	if !ok {
		return nil, ErrMalformed("malformed request line")
	}
	if len(target) > limits.MaxTargetLength {
		return nil, ErrTargetTooLong
	}
	major, minor, ok := parseHTTPVersion(proto)
	if !ok {
		return nil, ErrMalformed("malformed HTTP version")
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, ErrMalformed("malformed header block: " + err.Error())
	}
	h := make(hdr.Header, len(mimeHeader))
	total := len(line)
	for k, vv := range mimeHeader {
		ck := hdr.CanonicalHeaderKey(k)
		if !httpguts.ValidHeaderFieldName(ck) {
			return nil, ErrMalformed("invalid header name")
		}
		for _, v := range vv {
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, ErrMalformed("invalid header value")
			}
			total += len(k) + len(v) + 4
		}
		h[ck] = vv
	}
	if limits.MaxHeaderBytes > 0 && total > limits.MaxHeaderBytes {
		return nil, ErrHeaderTooLarge
	}

	head := &Head{
		Method:     method,
		Target:     target,
		ProtoMajor: major,
		ProtoMinor: minor,
		Header:     h,
		ContentLen: -1,
	}

	if major == 1 && minor == 0 {
		if _, ok := h[hdr.TransferEncoding]; ok {
			// Spec open question: Transfer-Encoding on an HTTP/1.0
			// request is spec-illegal; treat it as a protocol error.
			return nil, ErrMalformed("Transfer-Encoding not valid for HTTP/1.0")
		}
	}

	if te := h.Get(hdr.TransferEncoding); strings.EqualFold(te, "chunked") {
		head.HasTELength = true
	} else if cl := h.Get(hdr.ContentLength); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, ErrMalformed("invalid Content-Length")
		}
		head.ContentLen = n
	}

	head.Close = wantsClose(head)
	return head, nil
}

func wantsClose(h *Head) bool {
	conn := h.Header.Get(hdr.Connection)
	switch {
	case strings.EqualFold(conn, "close"):
		return true
	case h.ProtoMajor == 1 && h.ProtoMinor == 0:
		return !strings.EqualFold(conn, "keep-alive")
	default:
		return false
	}
}

func parseRequestLine(line string) (method, target, proto string, ok bool) {
	s1 := strings.IndexByte(line, ' ')
	s2 := strings.IndexByte(line[s1+1:], ' ')
	if s1 < 0 || s2 < 0 {
		return "", "", "", false
	}
	s2 += s1 + 1
	return line[:s1], line[s1+1 : s2], line[s2+1:], true
}

func parseHTTPVersion(vers string) (major, minor int, ok bool) {
	const prefix = "HTTP/"
	if !strings.HasPrefix(vers, prefix) {
		return 0, 0, false
	}
	vers = vers[len(prefix):]
	dot := strings.IndexByte(vers, '.')
	if dot < 0 {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(vers[:dot])
	min, err2 := strconv.Atoi(vers[dot+1:])
	if err1 != nil || err2 != nil || maj < 0 || min < 0 {
		return 0, 0, false
	}
	return maj, min, true
}
