/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/httpserver/transport"
)

// serveOverPipe spins up a Connection against one end of a net.Pipe driven
// by callbacks, and hands the test the other end to write requests into and
// read responses from.
func serveOverPipe(t *testing.T, callbacks ConnectionCallbacks) (client net.Conn, done chan struct{}) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	srv := NewServer(&Config{Clock: clockwork.NewFakeClock(), MaxPipelinedRequests: 4}, callbacks)
	conn := srv.Accept(transport.NewPlain(serverSide))
	done = make(chan struct{})
	go func() {
		conn.Serve()
		close(done)
	}()
	return clientSide, done
}

func TestServeRespondsToSimpleGet(t *testing.T) {
	handled := make(chan struct{}, 1)
	client, _ := serveOverPipe(t, ConnectionCallbacks{
		HandleRequest: func(conn *Connection, req *Request) {
			resp := req.Response()
			resp.SetStatus(200, "")
			resp.SetBodyStreamPull(bytes.NewReader([]byte("hello")), 5)
			req.Submit(nil)
			handled <- struct{}{}
		},
	})
	defer client.Close()

	_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}

	r := bufio.NewReader(client)
	statusLine, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", statusLine)

	var bodyStart bool
	var cl string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			bodyStart = true
			break
		}
		if strings.HasPrefix(line, "Content-Length:") {
			cl = line
		}
	}
	assert.True(t, bodyStart)
	assert.Contains(t, cl, "5")

	body := make([]byte, 5)
	_, err = r.Read(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestServeRespondsWithNotImplementedWhenNoHandler(t *testing.T) {
	client, _ := serveOverPipe(t, ConnectionCallbacks{})
	defer client.Close()

	_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	r := bufio.NewReader(client)
	statusLine, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 501 Not Implemented\r\n", statusLine)
}
