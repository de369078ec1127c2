/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"crypto/tls"
	"time"

	"github.com/badu/httpserver/parser"
)

// Logger is the logging surface this module calls through, so a caller can
// inject a *logrus.Entry pre-populated with request/connection fields. A
// nil Logger is valid and silently discards.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// debugGatedLogger suppresses Debugf while passing every other level
// through to the embedded Logger unchanged — the mechanism behind
// Config.Debug: per-byte/per-state-transition detail only reaches a
// caller's logger when Debug is set, since every Debugf call site in this
// module (setState transitions, submission bookkeeping) goes through
// Config.logger() rather than a Logger field directly.
type debugGatedLogger struct{ Logger }

func (debugGatedLogger) Debugf(string, ...interface{}) {}

// Config is the enumerated configuration bag from spec §6. It is a plain,
// zero-value-friendly struct passed into NewServer at construction — no
// parsing library is wired here because config/CLI parsing is explicitly
// out of scope for this module.
type Config struct {
	// MaxClientIdleTime bounds time since the last byte received before
	// the connection is closed with KindIdleTimeout. Zero disables it.
	MaxClientIdleTime time.Duration

	// MaxHeaderReadTime bounds the time from the first byte of a request
	// to a fully parsed head. Zero disables it.
	MaxHeaderReadTime time.Duration

	// MaxPipelinedRequests caps requests in flight per connection;
	// reaching it pauses reads until the queue drains below the cap.
	MaxPipelinedRequests int

	// RequestLimits bounds an individual request's wire footprint.
	RequestLimits parser.Limits

	// MaxPayloadSize bounds a request payload's total decoded size,
	// independent of the wire-level header limits above.
	MaxPayloadSize int64

	SocketSendBufferSize int
	SocketRecvBufferSize int

	// TLSConfig, if non-nil, is used by Server.AcceptConn to wrap accepted
	// connections in TLS via the transport package. Read-only after Server
	// construction.
	TLSConfig *tls.Config

	// TLSHandshakeTimeout bounds the TLS handshake Server.AcceptConn runs
	// before a connection is usable. Zero means no deadline.
	TLSHandshakeTimeout time.Duration

	// Debug gates verbose per-byte/per-state-transition logging.
	Debug bool

	// Logger receives all log output; defaults to a no-op logger.
	Logger Logger

	// Clock is the time source for idle/header timers, letting tests
	// substitute clockwork.NewFakeClock(). Defaults to clockwork.NewRealClock().
	Clock Clock
}

func (c *Config) logger() Logger {
	base := c.Logger
	if base == nil {
		base = nopLogger{}
	}
	if !c.Debug {
		return debugGatedLogger{base}
	}
	return base
}

func (c *Config) clock() Clock {
	if c.Clock == nil {
		return realClock{}
	}
	return c.Clock
}

func (c *Config) parserLimits() parser.Limits {
	if c.RequestLimits == (parser.Limits{}) {
		return parser.DefaultLimits()
	}
	return c.RequestLimits
}

func (c *Config) maxPipelined() int {
	if c.MaxPipelinedRequests <= 0 {
		return 1
	}
	return c.MaxPipelinedRequests
}
