/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the minimal time source the idle-timer and header-read-timer
// paths schedule against, narrowed from clockwork.Clock to just what
// Connection's timers need. Production code gets clockwork.NewRealClock()
// via realClock; tests inject clockwork.NewFakeClock() directly, since it
// already satisfies this interface.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

var sharedRealClock = clockwork.NewRealClock()

type realClock struct{}

func (realClock) Now() time.Time { return sharedRealClock.Now() }

func (realClock) NewTimer(d time.Duration) clockwork.Timer {
	return sharedRealClock.NewTimer(d)
}
