/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package parser

import (
	"bufio"
	"strings"
	"testing"

	"github.com/badu/httpserver/hdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestParseHeadSimpleGet(t *testing.T) {
	head, err := ParseHead(newReader("GET /foo HTTP/1.1\r\nHost: example.com\r\n\r\n"), DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "GET", head.Method)
	assert.Equal(t, "/foo", head.Target)
	assert.Equal(t, 1, head.ProtoMajor)
	assert.Equal(t, 1, head.ProtoMinor)
	assert.Equal(t, "example.com", head.Header.Get(hdr.Host))
	assert.Equal(t, int64(-1), head.ContentLen)
	assert.False(t, head.HasTELength)
	assert.False(t, head.Close)
}

func TestParseHeadSkipsLeadingBlankLine(t *testing.T) {
	head, err := ParseHead(newReader("\r\nGET / HTTP/1.1\r\nHost: x\r\n\r\n"), DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "GET", head.Method)
}

func TestParseHeadParsesContentLength(t *testing.T) {
	head, err := ParseHead(newReader("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\n"), DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, int64(10), head.ContentLen)
}

func TestParseHeadRejectsInvalidContentLength(t *testing.T) {
	_, err := ParseHead(newReader("POST / HTTP/1.1\r\nContent-Length: -5\r\n\r\n"), DefaultLimits())
	var malformed ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestParseHeadDetectsChunkedTransferEncoding(t *testing.T) {
	head, err := ParseHead(newReader("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n"), DefaultLimits())
	require.NoError(t, err)
	assert.True(t, head.HasTELength)
}

func TestParseHeadRejectsTransferEncodingOnHTTP10(t *testing.T) {
	_, err := ParseHead(newReader("POST / HTTP/1.0\r\nTransfer-Encoding: chunked\r\n\r\n"), DefaultLimits())
	var malformed ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestParseHeadMalformedRequestLine(t *testing.T) {
	_, err := ParseHead(newReader("GET\r\n\r\n"), DefaultLimits())
	var malformed ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestParseHeadRejectsTargetTooLong(t *testing.T) {
	longTarget := "/" + strings.Repeat("a", 10)
	_, err := ParseHead(newReader("GET "+longTarget+" HTTP/1.1\r\n\r\n"), Limits{MaxTargetLength: 5, MaxHeaderBytes: 1 << 20})
	assert.Equal(t, ErrTargetTooLong, err)
}

func TestParseHeadRejectsHeaderBlockTooLarge(t *testing.T) {
	_, err := ParseHead(newReader("GET / HTTP/1.1\r\nX-Long: "+strings.Repeat("a", 100)+"\r\n\r\n"), Limits{MaxTargetLength: 4096, MaxHeaderBytes: 10})
	assert.Equal(t, ErrHeaderTooLarge, err)
}

func TestWantsCloseHTTP10WithoutKeepAlive(t *testing.T) {
	head, err := ParseHead(newReader("GET / HTTP/1.0\r\n\r\n"), DefaultLimits())
	require.NoError(t, err)
	assert.True(t, head.Close)
}

func TestWantsCloseHTTP10WithKeepAlive(t *testing.T) {
	head, err := ParseHead(newReader("GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n"), DefaultLimits())
	require.NoError(t, err)
	assert.False(t, head.Close)
}

func TestWantsCloseHTTP11ExplicitClose(t *testing.T) {
	head, err := ParseHead(newReader("GET / HTTP/1.1\r\nConnection: close\r\n\r\n"), DefaultLimits())
	require.NoError(t, err)
	assert.True(t, head.Close)
}

func TestParseHeadRejectsMalformedVersion(t *testing.T) {
	_, err := ParseHead(newReader("GET / FOO/1.1\r\n\r\n"), DefaultLimits())
	var malformed ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}
