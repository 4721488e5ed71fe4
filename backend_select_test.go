// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSelectBackend_ResizeRejectsBeyondFDSetBits(t *testing.T) {
	b, err := newBackend()
	require.NoError(t, err)
	defer b.close()

	require.NoError(t, b.resize(64))
	err = b.resize(fdSetBits + 1)
	require.Error(t, err)
}

func TestSelectBackend_AddPollDel(t *testing.T) {
	r, w, closeFn := socketPair(t)
	defer closeFn()

	b, err := newBackend()
	require.NoError(t, err)
	defer b.close()
	require.NoError(t, b.resize(64))

	events := make([]fileEvent, 64)
	fired := make([]firedEvent, 64)

	events[r.fd()].mask = EventReadable
	require.NoError(t, b.add(r.fd(), EventReadable))

	_, err = w.Write([]byte{'q'})
	require.NoError(t, err)

	zero := time.Duration(0)
	n, err := b.poll(events, fired, r.fd(), &zero)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, r.fd(), fired[0].fd)
	require.Equal(t, EventReadable, fired[0].mask)

	b.del(r.fd(), EventReadable)
	events[r.fd()].mask = EventNone
	n, err = b.poll(events, fired, r.fd(), &zero)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestSelectBackend_Name(t *testing.T) {
	require.Equal(t, "select", backendName)
	require.Equal(t, "select", BackendName())
}
