/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import "github.com/sirupsen/logrus"

// logrusLogger adapts a *logrus.Entry to the Logger interface, letting a
// caller pass Config.Logger = NewLogrusLogger(entry) and get structured
// fields (connection id, remote addr, etc.) on every line this module logs.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps entry as a Logger. A nil entry falls back to the
// standard logrus instance so a bare logrus.New() still works.
func NewLogrusLogger(entry *logrus.Entry) Logger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return logrusLogger{entry: entry}
}

func (l logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
