// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package reactor

import "golang.org/x/sys/unix"

// fdSetBits is the number of descriptors representable in one unix.FdSet,
// matching the platform's FD_SETSIZE. Out-of-range descriptors are
// silently ignored by set/clear and report false from test, mirroring the
// select(2) primitive's own refusal to operate outside its fixed width.
const fdSetBits = unix.FD_SETSIZE

// fdSet is a thin, safe wrapper over unix.FdSet addressed by descriptor
// number, used solely by the bitset (select-style) backend.
type fdSet struct {
	raw unix.FdSet
}

const bitsPerWord = 64

func (s *fdSet) zero() {
	s.raw = unix.FdSet{}
}

func (s *fdSet) set(fd int) {
	if fd < 0 || fd >= fdSetBits {
		return
	}
	s.raw.Bits[fd/bitsPerWord] |= 1 << uint(fd%bitsPerWord)
}

func (s *fdSet) clear(fd int) {
	if fd < 0 || fd >= fdSetBits {
		return
	}
	s.raw.Bits[fd/bitsPerWord] &^= 1 << uint(fd%bitsPerWord)
}

func (s *fdSet) test(fd int) bool {
	if fd < 0 || fd >= fdSetBits {
		return false
	}
	return s.raw.Bits[fd/bitsPerWord]&(1<<uint(fd%bitsPerWord)) != 0
}

// copyFrom overwrites s with the contents of other, for the backend's
// working-copy-per-poll pattern (select(2) mutates its fd_set arguments).
func (s *fdSet) copyFrom(other *fdSet) {
	s.raw = other.raw
}
