/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"io"
	"sync"
)

// PayloadPump is the handler-facing incoming-payload stream (spec §4.4):
// an io.ReadCloser over either identity framing (bounded by a
// Content-Length countdown) or chunked decoding, wrapped with halt/continue
// suspension and a maximum-size cutoff. It is the stream the handler "owns
// reads via" once a request enters StatePayloadIn (spec §4.1(b)).
//
// Halt/continue mirrors conn_reader.go's background-read suspension:
// pausing is modeled as a gate the Read method blocks on, rather than
// unregistering the socket from an ioloop, since this module drives one
// goroutine per connection instead of an ioloop.
type PayloadPump struct {
	src     io.Reader // identity-bounded reader or *chunked.Reader
	maxSize int64
	read    int64

	mu       sync.Mutex
	halted   bool
	resumeCh chan struct{}
	eof      bool
	err      error

	onDrain func() // invoked once, when the stream reaches EOF or is closed
	onRead  func(n int) // invoked after every successful read of n>0 bytes
}

func newPayloadPump(src io.Reader, maxSize int64, onDrain func()) *PayloadPump {
	return &PayloadPump{src: src, maxSize: maxSize, onDrain: onDrain}
}

// SetOnRead registers a callback run after every Read that returns n>0
// bytes — the idle timer hook (spec §4.1 "Timers": reset on every byte
// received), since a payload read here happens off the connection's read
// loop and wouldn't otherwise touch c.armIdleTimer.
func (p *PayloadPump) SetOnRead(f func(n int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRead = f
}

// Read implements io.Reader. It blocks while halted, enforces maxSize, and
// invokes onDrain exactly once when the underlying stream is exhausted.
func (p *PayloadPump) Read(b []byte) (int, error) {
	p.mu.Lock()
	for p.halted && p.err == nil {
		ch := p.resumeCh
		p.mu.Unlock()
		<-ch
		p.mu.Lock()
	}
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return 0, err
	}
	p.mu.Unlock()

	if p.maxSize > 0 && p.read >= p.maxSize {
		p.fail(errPayloadTooLarge)
		return 0, errPayloadTooLarge
	}

	n, err := p.src.Read(b)
	p.read += int64(n)
	if n > 0 {
		p.mu.Lock()
		onRead := p.onRead
		p.mu.Unlock()
		if onRead != nil {
			onRead(n)
		}
	}
	if p.maxSize > 0 && p.read > p.maxSize {
		p.fail(errPayloadTooLarge)
		return n, errPayloadTooLarge
	}
	if err != nil {
		p.mu.Lock()
		if err == io.EOF {
			p.eof = true
		} else {
			p.err = err
		}
		drain := p.onDrain
		p.onDrain = nil
		p.mu.Unlock()
		if drain != nil {
			drain()
		}
	}
	return n, err
}

// Close releases the stream without necessarily reading it to EOF: it runs
// onDrain if that has not run yet, wakes a Read blocked by Halt, and makes
// every later Read return an error. The connection's own discard and abort
// paths do not call it; they read the stream to its end or use abort.
func (p *PayloadPump) Close() error {
	p.mu.Lock()
	if p.err == nil {
		p.err = io.ErrClosedPipe
	}
	drain := p.onDrain
	p.onDrain = nil
	p.halted = false
	if p.resumeCh != nil {
		close(p.resumeCh)
		p.resumeCh = nil
	}
	p.mu.Unlock()
	if drain != nil {
		drain()
	}
	return nil
}

// Halt pauses delivery until Continue is called, per spec §4.4
// "Halt/continue". While halted, the connection's read goroutine must stop
// pulling from the socket for this request — callers arrange that by
// simply not calling Read.
func (p *PayloadPump) Halt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.halted {
		return
	}
	p.halted = true
	p.resumeCh = make(chan struct{})
}

// Continue resumes delivery after Halt.
func (p *PayloadPump) Continue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.halted {
		return
	}
	p.halted = false
	close(p.resumeCh)
	p.resumeCh = nil
}

func (p *PayloadPump) atEOF() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eof
}

func (p *PayloadPump) fail(err error) {
	p.mu.Lock()
	p.err = err
	drain := p.onDrain
	p.onDrain = nil
	p.mu.Unlock()
	if drain != nil {
		drain()
	}
}

func (p *PayloadPump) abort(reason error) {
	p.fail(reason)
}

