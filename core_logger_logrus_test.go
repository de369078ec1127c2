/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogrusLoggerWritesThroughToEntry(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	l := NewLogrusLogger(base.WithField("conn", 7))
	l.Infof("accepted %d bytes", 128)

	assert.Contains(t, buf.String(), "accepted 128 bytes")
	assert.Contains(t, buf.String(), "conn=7")
}

func TestLogrusLoggerNilEntryFallsBackToStandardLogger(t *testing.T) {
	l := NewLogrusLogger(nil)
	assert.NotNil(t, l)
	l.Debugf("noop")
}
