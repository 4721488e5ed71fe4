// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// backendName identifies this build's backend for diagnostics.
const backendName = "select"

// newBackend constructs the bitset (select-style) backend.
func newBackend() (backend, error) {
	return &selectBackend{}, nil
}

// selectBackend multiplexes readiness via select(2) over two persistent
// fd_set bitsets (one per direction), matching the original ae_select.c
// exactly: readable and writable are tracked as independent sets, and a
// poll call takes working copies since select(2) mutates its arguments.
type selectBackend struct {
	readable fdSet
	writable fdSet
}

func (b *selectBackend) resize(setsize int) error {
	if setsize > fdSetBits {
		return WrapError("reactor: select backend", ErrCapacity)
	}
	return nil
}

func (b *selectBackend) add(fd int, mask FileEvents) error {
	if fd >= fdSetBits {
		return WrapError("reactor: fd exceeds FD_SETSIZE", ErrCapacity)
	}
	if mask&EventReadable != 0 {
		b.readable.set(fd)
	}
	if mask&EventWritable != 0 {
		b.writable.set(fd)
	}
	return nil
}

func (b *selectBackend) del(fd int, mask FileEvents) {
	if mask&EventReadable != 0 {
		b.readable.clear(fd)
	}
	if mask&EventWritable != 0 {
		b.writable.clear(fd)
	}
}

// poll blocks in select(2) on working copies of the persistent bitsets,
// then scans [0, maxfd] reporting each descriptor whose registered
// direction(s) came back ready. The events table is consulted so a
// descriptor select(2) reports ready but whose registration was removed
// between add and poll is never reported stale.
func (b *selectBackend) poll(events []fileEvent, fired []firedEvent, maxfd int, timeout *time.Duration) (int, error) {
	if maxfd < 0 {
		if timeout != nil {
			time.Sleep(*timeout)
		}
		return 0, nil
	}

	var rset, wset fdSet
	rset.copyFrom(&b.readable)
	wset.copyFrom(&b.writable)

	var tv *unix.Timeval
	var tvStorage unix.Timeval
	if timeout != nil {
		tvStorage = unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &tvStorage
	}

	n, err := unix.Select(maxfd+1, (*unix.FdSet)(&rset.raw), (*unix.FdSet)(&wset.raw), nil, tv)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, WrapError("reactor: select", err)
	}
	if n == 0 {
		return 0, nil
	}

	count := 0
	for fd := 0; fd <= maxfd && count < len(fired); fd++ {
		if fd >= len(events) {
			break
		}
		registered := events[fd].mask
		if registered == EventNone {
			continue
		}
		var m FileEvents
		if registered&EventReadable != 0 && rset.test(fd) {
			m |= EventReadable
		}
		if registered&EventWritable != 0 && wset.test(fd) {
			m |= EventWritable
		}
		if m != EventNone {
			fired[count] = firedEvent{fd: fd, mask: m}
			count++
		}
	}
	return count, nil
}

func (b *selectBackend) name() string { return backendName }

func (b *selectBackend) close() error { return nil }
