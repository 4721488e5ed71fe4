// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build unix

package reactor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// testSocket is a thin handle over one half of a unix domain socketpair,
// grounded in the teacher's poller_test.go style of exercising backends
// against real descriptors rather than mocks.
type testSocket struct {
	raw int
}

func (s testSocket) fd() int { return s.raw }

func (s testSocket) Write(p []byte) (int, error) {
	return unix.Write(s.raw, p)
}

// socketPair returns a connected pair of stream sockets and a cleanup
// function. Both halves are readable and writable, suitable for
// exercising barrier ordering and unified-handler dedup on one fd.
func socketPair(t *testing.T) (r, w testSocket, closeFn func()) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	return testSocket{raw: fds[0]}, testSocket{raw: fds[1]}, func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	}
}
