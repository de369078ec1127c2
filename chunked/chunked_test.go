/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package chunked

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderDecodesMultipleChunks(t *testing.T) {
	src := "4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n"
	r := NewReader(bufio.NewReader(strings.NewReader(src)), false)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Wikipedia", string(got))
}

func TestReaderIgnoresChunkExtension(t *testing.T) {
	src := "4;ext=1\r\nWiki\r\n0\r\n\r\n"
	r := NewReader(bufio.NewReader(strings.NewReader(src)), false)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Wiki", string(got))
}

func TestReaderCapturesTrailerWhenRequested(t *testing.T) {
	src := "4\r\nWiki\r\n0\r\nX-Trailer: done\r\n\r\n"
	r := NewReader(bufio.NewReader(strings.NewReader(src)), true)

	_, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "done", r.Trailer.Get("X-Trailer"))
}

func TestReaderDiscardsTrailerWhenNotRequested(t *testing.T) {
	src := "4\r\nWiki\r\n0\r\nX-Trailer: done\r\n\r\n"
	r := NewReader(bufio.NewReader(strings.NewReader(src)), false)

	_, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Nil(t, r.Trailer)
}

func TestReaderRejectsMissingChunkCRLF(t *testing.T) {
	src := "4\r\nWikiXX0\r\n\r\n"
	r := NewReader(bufio.NewReader(strings.NewReader(src)), false)

	buf := make([]byte, 4)
	_, _ = r.Read(buf)
	_, err := r.Read(buf)
	var malformed ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestReaderRejectsBadHexLength(t *testing.T) {
	src := "zz\r\nWiki\r\n0\r\n\r\n"
	r := NewReader(bufio.NewReader(strings.NewReader(src)), false)

	buf := make([]byte, 4)
	_, err := r.Read(buf)
	var malformed ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestWriterEncodesChunks(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_, err := w.Write([]byte("Wiki"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "4\r\nWiki\r\n0\r\n\r\n", buf.String())
}

func TestWriterEmptyWriteIsNoop(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	n, err := w.Write(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, buf.Len())
}

func TestWriterEmitsTrailer(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Trailer = map[string][]string{"X-Checksum": {"abc"}}
	require.NoError(t, w.Close())

	assert.Contains(t, buf.String(), "X-Checksum: abc\r\n")
}

func TestWriterRoundTripsThroughReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_, err := w.Write([]byte("round"))
	require.NoError(t, err)
	_, err = w.Write([]byte("trip"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := NewReader(bufio.NewReader(&buf), false)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", string(got))
}
