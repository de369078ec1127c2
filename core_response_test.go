/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"bytes"
	"strings"
	"testing"

	"github.com/badu/httpserver/hdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideFramingExplicitContentLength(t *testing.T) {
	conn, client := newTestConnection(t)
	defer client.Close()
	req := newTestRequest(conn, GET, "/", 1, 1)
	resp := req.response
	resp.SetHeader(hdr.ContentLength, "42")

	closes, err := resp.decideFraming(false, false)
	require.NoError(t, err)
	assert.False(t, closes)
	assert.Equal(t, framingContentLength, resp.framing)
	assert.Equal(t, int64(42), resp.contentLength)
}

func TestDecideFramingInvalidContentLength(t *testing.T) {
	conn, client := newTestConnection(t)
	defer client.Close()
	req := newTestRequest(conn, GET, "/", 1, 1)
	resp := req.response
	resp.SetHeader(hdr.ContentLength, "not-a-number")

	_, err := resp.decideFraming(false, false)
	assert.Error(t, err)
	kind, ok := errorKind(err)
	assert.True(t, ok)
	assert.Equal(t, KindHandlerSubmitError, kind)
}

func TestDecideFramingKnownLengthStreamPull(t *testing.T) {
	conn, client := newTestConnection(t)
	defer client.Close()
	req := newTestRequest(conn, GET, "/", 1, 1)
	resp := req.response
	resp.SetBodyStreamPull(bytes.NewReader([]byte("hello")), 5)

	closes, err := resp.decideFraming(false, false)
	require.NoError(t, err)
	assert.False(t, closes)
	assert.Equal(t, framingContentLength, resp.framing)
	assert.Equal(t, "5", resp.header.Get(hdr.ContentLength))
}

func TestDecideFramingUnknownLengthHTTP11IsChunked(t *testing.T) {
	conn, client := newTestConnection(t)
	defer client.Close()
	req := newTestRequest(conn, GET, "/", 1, 1)
	resp := req.response
	resp.SetBodyStreamPull(bytes.NewReader([]byte("hello")), -1)

	closes, err := resp.decideFraming(false, false)
	require.NoError(t, err)
	assert.False(t, closes)
	assert.Equal(t, framingChunked, resp.framing)
	assert.Equal(t, DoChunked, resp.header.Get(hdr.TransferEncoding))
}

func TestDecideFramingUnknownLengthHTTP10ClosesConnection(t *testing.T) {
	conn, client := newTestConnection(t)
	defer client.Close()
	req := newTestRequest(conn, GET, "/", 1, 0)
	resp := req.response
	resp.SetBodyStreamPull(bytes.NewReader([]byte("hello")), -1)

	closes, err := resp.decideFraming(true, false)
	require.NoError(t, err)
	assert.True(t, closes, "HTTP/1.0 unknown-length body must be close-delimited")
	assert.Equal(t, framingCloseDelimited, resp.framing)
	assert.Equal(t, DoClose, resp.header.Get(hdr.Connection))
}

func TestDecideFramingInjectsDateWhenUnset(t *testing.T) {
	conn, client := newTestConnection(t)
	defer client.Close()
	req := newTestRequest(conn, GET, "/", 1, 1)
	resp := req.response
	resp.SetHeader(hdr.ContentLength, "0")

	_, err := resp.decideFraming(false, false)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.header.Get(hdr.Date))
}

func TestDecideFramingRespectsHandlerConnectionClose(t *testing.T) {
	conn, client := newTestConnection(t)
	defer client.Close()
	req := newTestRequest(conn, GET, "/", 1, 1)
	resp := req.response
	resp.SetHeader(hdr.ContentLength, "0")
	resp.SetHeader(hdr.Connection, DoClose)

	closes, err := resp.decideFraming(false, false)
	require.NoError(t, err)
	assert.Equal(t, DoClose, resp.header.Get(hdr.Connection))
	_ = closes
}

func TestAuthChallengeEncodeQuotesNonToken(t *testing.T) {
	c := AuthChallenge{
		Scheme: "Basic",
		Realm:  "my realm",
		Params: []AuthParam{{Name: "charset", Value: "UTF-8"}},
	}
	enc := c.encode()
	assert.True(t, strings.HasPrefix(enc, "Basic realm=\"my realm\""))
	assert.Contains(t, enc, "charset=UTF-8")
}

func TestIsToken(t *testing.T) {
	assert.True(t, isToken("UTF-8"))
	assert.False(t, isToken(""))
	assert.False(t, isToken("my realm"))
}

func TestPushWriterPumpToRelaysWrites(t *testing.T) {
	w := newPushWriter()
	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- w.pumpTo(&buf) }()

	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, w.Close())
	require.NoError(t, <-done)
	assert.Equal(t, "hello", buf.String())
}
