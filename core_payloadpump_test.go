/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestPayloadPumpReadsThroughToEOF(t *testing.T) {
	drained := false
	p := newPayloadPump(bytes.NewReader([]byte("hello")), 0, func() { drained = true })

	buf := make([]byte, 16)
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	_, err = p.Read(buf)
	assert.Equal(t, io.EOF, err)
	assert.True(t, p.atEOF())
	assert.True(t, drained)
}

func TestPayloadPumpOnDrainFiresOnce(t *testing.T) {
	calls := 0
	p := newPayloadPump(bytes.NewReader(nil), 0, func() { calls++ })

	buf := make([]byte, 4)
	_, _ = p.Read(buf)
	_, _ = p.Read(buf)
	assert.Equal(t, 1, calls)
}

func TestPayloadPumpEnforcesMaxSize(t *testing.T) {
	p := newPayloadPump(bytes.NewReader([]byte("0123456789")), 4, nil)

	buf := make([]byte, 16)
	_, err := p.Read(buf)
	assert.ErrorIs(t, err, errPayloadTooLarge)
}

func TestPayloadPumpHaltBlocksRead(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := newPayloadPump(bytes.NewReader([]byte("abc")), 0, nil)
	p.Halt()

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 8)
		n, err := p.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "abc", string(buf[:n]))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Read returned while halted")
	case <-time.After(20 * time.Millisecond):
	}

	p.Continue()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Read did not resume after Continue")
	}
}

func TestPayloadPumpContinueWithoutHaltIsNoop(t *testing.T) {
	p := newPayloadPump(bytes.NewReader([]byte("x")), 0, nil)
	p.Continue()
	buf := make([]byte, 1)
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPayloadPumpCloseUnblocksHaltedReader(t *testing.T) {
	p := newPayloadPump(bytes.NewReader([]byte("abc")), 0, nil)
	p.Halt()

	done := make(chan error)
	go func() {
		buf := make([]byte, 8)
		_, err := p.Read(buf)
		done <- err
	}()

	require.NoError(t, p.Close())

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Read did not unblock after Close")
	}
}

func TestPayloadPumpFailSurfacesOnNextRead(t *testing.T) {
	p := newPayloadPump(bytes.NewReader([]byte("abc")), 0, nil)
	sentinel := newError(KindTransportRead, 0, "socket reset")
	p.fail(sentinel)

	buf := make([]byte, 8)
	_, err := p.Read(buf)
	assert.Equal(t, sentinel, err)
}
