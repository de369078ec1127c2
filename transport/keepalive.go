/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package transport

import (
	"net"
	"time"
)

// KeepAliveListener sets TCP keep-alive timeouts on accepted connections,
// so dead peers (laptop lid closed mid-download) eventually go away instead
// of pinning a Connection forever.
type KeepAliveListener struct {
	*net.TCPListener
	Period time.Duration
}

// NewKeepAliveListener wraps ln with a 3-minute keep-alive period, the
// teacher's default.
func NewKeepAliveListener(ln *net.TCPListener) KeepAliveListener {
	return KeepAliveListener{TCPListener: ln, Period: 3 * time.Minute}
}

func (l KeepAliveListener) Accept() (net.Conn, error) {
	c, err := l.AcceptTCP()
	if err != nil {
		return nil, err
	}
	_ = c.SetKeepAlive(true)
	_ = c.SetKeepAlivePeriod(l.Period)
	return c, nil
}
