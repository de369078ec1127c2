/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

import (
	"io"
	"sort"
)

// Add appends value to key's existing values, canonicalizing key first.
func (h Header) Add(key, value string) {
	key = CanonicalHeaderKey(key)
	h[key] = append(h[key], value)
}

// Set replaces key's values with the single value given, canonicalizing
// key first — what every call site in this module uses to fill a request
// or response header one field at a time.
func (h Header) Set(key, value string) {
	h[CanonicalHeaderKey(key)] = []string{value}
}

// Get returns the first value for key, case-insensitively, or "" if key
// is absent or h is nil.
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	v := h[CanonicalHeaderKey(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Del removes all values for key, canonicalizing key first.
func (h Header) Del(key string) {
	delete(h, CanonicalHeaderKey(key))
}

// Write serializes h in wire format (one "Key: value\r\n" line per value,
// keys sorted) onto w — the form Response.writeHead emits a status line's
// header block through.
func (h Header) Write(w io.Writer) error {
	return h.WriteSubset(w, nil)
}

// sortedKeyValues returns h's entries sorted by key, along with the
// headerSorter borrowed from the pool to hold them — callers return it via
// headerSorterPool.Put once done walking kvs.
func (h Header) sortedKeyValues(exclude map[string]bool) (kvs []keyValues, hs *headerSorter) {
	hs = headerSorterPool.Get().(*headerSorter)
	if cap(hs.kvs) < len(h) {
		hs.kvs = make([]keyValues, 0, len(h))
	}
	kvs = hs.kvs[:0]
	for k, vv := range h {
		if !exclude[k] {
			kvs = append(kvs, keyValues{k, vv})
		}
	}
	hs.kvs = kvs
	sort.Sort(hs)
	return kvs, hs
}

// WriteSubset writes h in wire format, skipping any key for which
// exclude[key] is true. Values are newline-sanitized and trimmed before
// writing, since a header value traveling through this module's API
// bypasses the parser's own field-value validation on the way out.
func (h Header) WriteSubset(w io.Writer, exclude map[string]bool) error {
	ws, ok := w.(writeStringer)
	if !ok {
		ws = stringWriter{w}
	}
	kvs, sorter := h.sortedKeyValues(exclude)
	for _, kv := range kvs {
		for _, v := range kv.values {
			v = HeaderNewlineToSpace.Replace(v)
			v = TrimString(v)
			for _, s := range []string{kv.key, ": ", v, "\r\n"} {
				if _, err := ws.WriteString(s); err != nil {
					return err
				}
			}
		}
	}
	headerSorterPool.Put(sorter)
	return nil
}
