/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

// Request method constants, exported the way net/http exports
// MethodGet/MethodPost/etc. — used by applications comparing
// Request.Method() without hand-typing the literal.
const (
	GET      = "GET"
	POST     = "POST"
	CONNECT  = "CONNECT"
	DELETE   = "DELETE"
	HEAD     = "HEAD"
	OPTIONS  = "OPTIONS"
	PUT      = "PUT"
	PROPFIND = "PROPFIND"
	SEARCH   = "SEARCH"
	PATCH    = "PATCH"
	TRACE    = "TRACE"

	HTTP1_1 = "HTTP/1.1"
	HTTP1_0 = "HTTP/1.0"

	// Connection/Transfer-Encoding token values (spec §4.3 framing).
	DoClose     = "close"
	DoKeepAlive = "keep-alive"
	DoChunked   = "chunked"
	DoIdentity  = "identity"
)

var (
	CrLf       = []byte("\r\n")
	Lf         = []byte("\n")
	Cr         = []byte("\r")
	DoubleCrLf = []byte("\r\n\r\n")
)
