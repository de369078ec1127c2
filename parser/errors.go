/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package parser

import "errors"

// ErrMalformed reports a request head that doesn't parse as HTTP at all —
// disposed of as spec §7's ClientProtocol kind (400).
type ErrMalformed string

func (e ErrMalformed) Error() string { return "parser: malformed request: " + string(e) }

var (
	// ErrTargetTooLong is returned when the request-URI exceeds
	// Limits.MaxTargetLength (spec §6, default 4096; disposed of as 414).
	ErrTargetTooLong = errors.New("parser: request target too long")

	// ErrHeaderTooLarge is returned when the accumulated header block
	// exceeds Limits.MaxHeaderBytes (disposed of as 431).
	ErrHeaderTooLarge = errors.New("parser: request header fields too large")
)
