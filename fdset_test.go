// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package reactor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFdSet_SetClearTest(t *testing.T) {
	var s fdSet
	s.zero()

	require.False(t, s.test(5))
	s.set(5)
	require.True(t, s.test(5))
	s.clear(5)
	require.False(t, s.test(5))
}

func TestFdSet_OutOfRangeIgnored(t *testing.T) {
	var s fdSet
	s.zero()

	s.set(-1)
	s.set(fdSetBits)
	require.False(t, s.test(-1))
	require.False(t, s.test(fdSetBits))
}

func TestFdSet_CopyFrom(t *testing.T) {
	var a, b fdSet
	a.zero()
	b.zero()
	a.set(3)
	a.set(9)

	b.copyFrom(&a)
	require.True(t, b.test(3))
	require.True(t, b.test(9))
	require.False(t, b.test(4))
}
