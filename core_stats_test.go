/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
)

func TestStatsTrackerSnapshot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newStatsTracker(clock)

	s.addRequest()
	s.addRequest()
	s.addBytesIn(100)
	s.addBytesOut(42)
	clock.Advance(5 * time.Second)

	got := s.snapshot()
	want := ConnectionStats{
		RequestsServed: 2,
		BytesIn:        100,
		BytesOut:       42,
		TimeConnected:  5 * time.Second,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestStatsTrackerSnapshotIsIndependentOfPriorSnapshots(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newStatsTracker(clock)

	first := s.snapshot()
	s.addRequest()
	second := s.snapshot()

	if cmp.Equal(first, second, cmpopts.IgnoreFields(ConnectionStats{}, "TimeConnected")) {
		t.Fatal("expected snapshots to diverge after addRequest")
	}
}
