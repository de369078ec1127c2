/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import "io"

const (
	// MaxInt64 is the effective "infinite" value used where a size limit
	// of "no limit" needs to be represented as a concrete int64.
	MaxInt64 = 1<<63 - 1
)

var (
	// NoBody is an io.ReadCloser with no bytes; Read always returns EOF
	// and Close always returns nil.
	NoBody = noBody{}

	_ io.WriterTo   = NoBody
	_ io.ReadCloser = NoBody
)

type noBody struct{}

func (noBody) Read([]byte) (int, error)         { return 0, io.EOF }
func (noBody) Close() error                     { return nil }
func (noBody) WriteTo(io.Writer) (int64, error) { return 0, nil }
