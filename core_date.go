/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"time"

	"github.com/badu/httpserver/hdr"
)

// formatHTTPDate renders t in RFC 7231 IMF-fixdate form, the same format
// hdr.TimeFormat already names for parsing incoming Date headers.
func formatHTTPDate(t time.Time) string {
	return t.UTC().Format(hdr.TimeFormat)
}
