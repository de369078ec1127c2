/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package chunked

import (
	"fmt"
	"io"

	"github.com/badu/httpserver/hdr"
)

// Writer encodes a body as chunked transfer-coding onto an underlying
// io.Writer, standalone rather than embedded in a response type so
// Response can use it directly when framing decides on chunked encoding
// (spec §4.3 rule 3).
type Writer struct {
	w       io.Writer
	Trailer hdr.Header // set before Close to emit trailers
	closed  bool
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits p as one chunk: "<hex-size>\r\n<p>\r\n". A zero-length Write
// is a no-op, matching net/http's chunkWriter (an empty chunk would read as
// the terminator to a peer).
func (cw *Writer) Write(p []byte) (n int, err error) {
	if len(p) == 0 || cw.closed {
		return 0, nil
	}
	if _, err = fmt.Fprintf(cw.w, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	if n, err = cw.w.Write(p); err != nil {
		return n, err
	}
	if n != len(p) {
		return n, io.ErrShortWrite
	}
	if _, err = io.WriteString(cw.w, "\r\n"); err != nil {
		return n, err
	}
	return n, nil
}

// Close writes the terminal zero-length chunk and any trailers, per
// RFC 7230 §4.1. It must be called exactly once, after the last Write.
func (cw *Writer) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true
	if _, err := io.WriteString(cw.w, "0\r\n"); err != nil {
		return err
	}
	if err := cw.Trailer.Write(cw.w); err != nil {
		return err
	}
	_, err := io.WriteString(cw.w, "\r\n")
	return err
}
