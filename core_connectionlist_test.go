/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionListAddRemoveLen(t *testing.T) {
	l := newConnectionList()
	conn1, client1 := newTestConnection(t)
	defer client1.Close()
	conn2, client2 := newTestConnection(t)
	defer client2.Close()

	l.add(conn1)
	l.add(conn2)
	assert.Equal(t, 2, l.Len())

	l.remove(conn1)
	assert.Equal(t, 1, l.Len())
}

func TestConnectionListEachVisitsEveryConnection(t *testing.T) {
	l := newConnectionList()
	conn1, client1 := newTestConnection(t)
	defer client1.Close()
	conn2, client2 := newTestConnection(t)
	defer client2.Close()
	l.add(conn1)
	l.add(conn2)

	var visited int32
	l.Each(func(c *Connection) { atomic.AddInt32(&visited, 1) })
	assert.Equal(t, int32(2), visited)
}

func TestSwitchIOLoopCallsOnSwitchForEveryConnection(t *testing.T) {
	l := newConnectionList()
	conn1, client1 := newTestConnection(t)
	defer client1.Close()
	conn2, client2 := newTestConnection(t)
	defer client2.Close()
	l.add(conn1)
	l.add(conn2)

	var switched int32
	err := l.SwitchIOLoop(func(c *Connection) error {
		atomic.AddInt32(&switched, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), switched)
}

func TestSwitchIOLoopPropagatesFirstError(t *testing.T) {
	l := newConnectionList()
	conn1, client1 := newTestConnection(t)
	defer client1.Close()
	l.add(conn1)

	boom := errors.New("switch failed")
	err := l.SwitchIOLoop(func(c *Connection) error { return boom })
	assert.ErrorIs(t, err, boom)
}
