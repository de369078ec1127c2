/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package chunked implements the wire format for
// Transfer-Encoding: chunked (spec §4.4 "Chunked decoding", §4.3 framing
// rule 3), factored out of the connection core into its own encode/decode
// helpers, separate from the connection's read/write loops.
package chunked

import (
	"bufio"
	"errors"
	"io"
	"net/textproto"

	"github.com/badu/httpserver/hdr"
)

const maxLineLength = 4096 // chunk header line, including any extension

// ErrLineTooLong is returned when a chunk-size line exceeds maxLineLength.
var ErrLineTooLong = errors.New("chunked: header line too long")

// ErrMalformed reports any violation of the chunked wire format; per spec
// §4.4 this is fatal for the connection, not just the request.
type ErrMalformed string

func (e ErrMalformed) Error() string { return "chunked: malformed encoding: " + string(e) }

// Reader decodes a chunked body from an underlying *bufio.Reader: Read
// drains one chunk at a time, transparently stepping over chunk-size lines,
// stopping at the zero-length final chunk, and optionally capturing
// trailers.
//
// Reader is also the concrete mechanism behind PayloadPump's "halt/continue"
// suspension point (spec §4.4): the caller simply stops calling Read.
type Reader struct {
	r          *bufio.Reader
	n          uint64 // unread bytes in the current chunk
	err        error
	buf        [2]byte
	readTrailer bool // whether to parse and keep trailers, vs discard
	Trailer     hdr.Header
}

// NewReader wraps r. If captureTrailer is true, trailers after the final
// chunk are parsed into Trailer instead of being discarded — spec §4.4
// "accepted and ignored unless the server explicitly requested them."
func NewReader(r *bufio.Reader, captureTrailer bool) *Reader {
	return &Reader{r: r, readTrailer: captureTrailer}
}

func (cr *Reader) Read(b []byte) (n int, err error) {
	if cr.err != nil {
		return 0, cr.err
	}
	for cr.n == 0 {
		if cr.err = cr.beginChunk(); cr.err != nil {
			return 0, cr.err
		}
	}
	if cr.n == eofChunkSentinel {
		cr.err = io.EOF
		return 0, cr.err
	}
	if uint64(len(b)) > cr.n {
		b = b[:cr.n]
	}
	n, err = cr.r.Read(b)
	cr.n -= uint64(n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		cr.err = err
		return n, err
	}
	if cr.n == 0 {
		// Chunk fully consumed: swallow its trailing CRLF.
		if _, err = io.ReadFull(cr.r, cr.buf[:2]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			cr.err = err
			return n, err
		}
		if cr.buf[0] != '\r' || cr.buf[1] != '\n' {
			cr.err = ErrMalformed("missing chunk CRLF terminator")
			return n, cr.err
		}
	}
	return n, nil
}

// eofChunkSentinel marks that beginChunk has observed the terminal
// zero-length chunk; n stays at this value so Read returns io.EOF without
// a second size-line parse.
const eofChunkSentinel = ^uint64(0)

func (cr *Reader) beginChunk() error {
	line, err := readChunkLine(cr.r)
	if err != nil {
		return err
	}
	size, err := parseHexUint(line)
	if err != nil {
		return ErrMalformed("bad chunk length: " + err.Error())
	}
	if size == 0 {
		if err := cr.finish(); err != nil {
			return err
		}
		cr.n = eofChunkSentinel
		return nil
	}
	cr.n = size
	return nil
}

// finish consumes the trailer section (zero or more header lines then a
// blank line) after the terminal chunk.
func (cr *Reader) finish() error {
	peek, err := cr.r.Peek(2)
	if err == nil && peek[0] == '\r' && peek[1] == '\n' {
		_, err = cr.r.Discard(2)
		return err
	}

	mh, err := readMIMEHeader(cr.r)
	if err != nil {
		return ErrMalformed("invalid trailer: " + err.Error())
	}
	if cr.readTrailer {
		cr.Trailer = mh
	}
	return nil
}

// readChunkLine reads a chunk-size line (up to \n), tolerating a trailing
// chunk-extension.
func readChunkLine(b *bufio.Reader) ([]byte, error) {
	p, err := b.ReadSlice('\n')
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		} else if err == bufio.ErrBufferFull {
			err = ErrLineTooLong
		}
		return nil, err
	}
	if len(p) >= maxLineLength {
		return nil, ErrLineTooLong
	}
	p = trimTrailingWhitespace(p)
	p = removeChunkExtension(p)
	return p, nil
}

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func trimTrailingWhitespace(b []byte) []byte {
	for len(b) > 0 && isASCIISpace(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}

// removeChunkExtension strips any ";token[=value]" chunk-extension; this
// decoder ignores extensions entirely.
func removeChunkExtension(p []byte) []byte {
	for i, c := range p {
		if c == ';' {
			return p[:i]
		}
	}
	return p
}

// readMIMEHeader parses the trailer block the same way the request head's
// header block is parsed, handing back a hdr.Header rather than a
// textproto.MIMEHeader so callers don't need to know the two are distinct
// types.
func readMIMEHeader(r *bufio.Reader) (hdr.Header, error) {
	tp := textproto.NewReader(r)
	mh, err := tp.ReadMIMEHeader()
	if err != nil && len(mh) == 0 {
		return nil, err
	}
	h := make(hdr.Header, len(mh))
	for k, v := range mh {
		h[hdr.CanonicalHeaderKey(k)] = v
	}
	return h, nil
}

func parseHexUint(v []byte) (uint64, error) {
	if len(v) == 0 {
		return 0, errors.New("empty hex chunk-size")
	}
	var n uint64
	for i, b := range v {
		var d byte
		switch {
		case '0' <= b && b <= '9':
			d = b - '0'
		case 'a' <= b && b <= 'f':
			d = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			d = b - 'A' + 10
		default:
			return 0, errors.New("invalid byte in chunk length")
		}
		if i == 16 {
			return 0, errors.New("chunk length too large")
		}
		n <<= 4
		n |= uint64(d)
	}
	return n, nil
}
