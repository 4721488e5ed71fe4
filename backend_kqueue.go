// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// backendName identifies this build's backend for diagnostics.
const backendName = "kqueue"

// newBackend constructs the queue (kqueue-style) backend.
func newBackend() (backend, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, WrapError("reactor: kqueue", err)
	}
	return &kqueueBackend{kq: fd}, nil
}

// mergeMask packs two bits per descriptor (readable, writable) four
// descriptors per byte, mirroring ae_kqueue.rs's event_mask byte array
// exactly: kqueue reports EVFILT_READ/EVFILT_WRITE as independent
// events, so the backend needs its own record of which directions are
// currently registered per fd to collate a poll's two separate kevents
// for the same descriptor into one firedEvent.
type mergeMask struct {
	bytes []byte
}

const (
	maskReadBit  = 1 << 0
	maskWriteBit = 1 << 1
	bitsPerFD    = 2
	fdsPerByte   = 8 / bitsPerFD
)

func newMergeMask(setsize int) mergeMask {
	return mergeMask{bytes: make([]byte, (setsize+fdsPerByte-1)/fdsPerByte)}
}

func (m *mergeMask) resize(setsize int) {
	n := (setsize + fdsPerByte - 1) / fdsPerByte
	if n == len(m.bytes) {
		return
	}
	grown := make([]byte, n)
	copy(grown, m.bytes)
	m.bytes = grown
}

func (m *mergeMask) shift(fd int) uint {
	return uint(fd%fdsPerByte) * bitsPerFD
}

func (m *mergeMask) set(fd int, bit byte) {
	idx := fd / fdsPerByte
	if idx >= len(m.bytes) {
		return
	}
	m.bytes[idx] |= bit << m.shift(fd)
}

func (m *mergeMask) clear(fd int, bit byte) {
	idx := fd / fdsPerByte
	if idx >= len(m.bytes) {
		return
	}
	m.bytes[idx] &^= bit << m.shift(fd)
}

func (m *mergeMask) get(fd int) byte {
	idx := fd / fdsPerByte
	if idx >= len(m.bytes) {
		return 0
	}
	return (m.bytes[idx] >> m.shift(fd)) & (maskReadBit | maskWriteBit)
}

// kqueueBackend multiplexes readiness via a single kqueue(2) descriptor,
// registering one EVFILT_READ and/or EVFILT_WRITE kevent per direction.
type kqueueBackend struct {
	kq       int
	closed   bool
	mask     mergeMask // registration bookkeeping: which filters are currently added, for add/del idempotency
	pollMask mergeMask // poll-scratch: collates raw EVFILT_READ/EVFILT_WRITE records per descriptor within one poll call
	klist    []unix.Kevent_t
}

func (b *kqueueBackend) resize(setsize int) error {
	if len(b.mask.bytes) == 0 {
		b.mask = newMergeMask(setsize)
		b.pollMask = newMergeMask(setsize)
		return nil
	}
	b.mask.resize(setsize)
	b.pollMask.resize(setsize)
	return nil
}

func (b *kqueueBackend) add(fd int, mask FileEvents) error {
	var changes []unix.Kevent_t
	if mask&EventReadable != 0 && b.mask.get(fd)&maskReadBit == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD})
		b.mask.set(fd, maskReadBit)
	}
	if mask&EventWritable != 0 && b.mask.get(fd)&maskWriteBit == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD})
		b.mask.set(fd, maskWriteBit)
	}
	if len(changes) == 0 {
		return nil
	}
	if _, err := unix.Kevent(b.kq, changes, nil, nil); err != nil {
		return WrapError("reactor: kevent add", err)
	}
	return nil
}

func (b *kqueueBackend) del(fd int, mask FileEvents) {
	var changes []unix.Kevent_t
	if mask&EventReadable != 0 && b.mask.get(fd)&maskReadBit != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE})
		b.mask.clear(fd, maskReadBit)
	}
	if mask&EventWritable != 0 && b.mask.get(fd)&maskWriteBit != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE})
		b.mask.clear(fd, maskWriteBit)
	}
	if len(changes) == 0 {
		return
	}
	// Best-effort: the descriptor may already be closed, in which case
	// the kernel has already dropped its kevents.
	_, _ = unix.Kevent(b.kq, changes, nil, nil)
}

// poll blocks in kevent(2) for up to timeout (nil means indefinitely),
// then collates the returned events — which arrive as independent
// read/write records for the same fd — into one firedEvent per
// descriptor, matching ae_kqueue.rs's aeApiPoll merge step.
func (b *kqueueBackend) poll(events []fileEvent, fired []firedEvent, maxfd int, timeout *time.Duration) (int, error) {
	if cap(b.klist) < len(fired) {
		b.klist = make([]unix.Kevent_t, len(fired))
	}
	klist := b.klist[:len(fired)]

	var ts *unix.Timespec
	var tsStorage unix.Timespec
	if timeout != nil {
		tsStorage = unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &tsStorage
	}

	n, err := unix.Kevent(b.kq, nil, klist, ts)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, WrapError("reactor: kevent poll", err)
	}

	// First pass: OR each raw event's direction bit into the poll-scratch
	// merge mask for its descriptor, exactly as ae_kqueue.rs's aeApiPoll
	// does via add_event_mask, so independent EVFILT_READ/EVFILT_WRITE
	// records for one fd collate before any entry is emitted.
	for i := 0; i < n; i++ {
		fd := int(klist[i].Ident)
		if fd < 0 || fd >= len(events) {
			continue
		}
		switch klist[i].Filter {
		case unix.EVFILT_READ:
			b.pollMask.set(fd, maskReadBit)
		case unix.EVFILT_WRITE:
			b.pollMask.set(fd, maskWriteBit)
		}
	}

	// Second pass, same loop indices: the first time a descriptor is
	// encountered with a nonzero merge mask, emit one fired entry and
	// zero the mask so later raw events for the same fd in this batch
	// don't emit again (reset_event_mask in the original).
	count := 0
	for i := 0; i < n && count < len(fired); i++ {
		fd := int(klist[i].Ident)
		if fd < 0 || fd >= len(events) {
			continue
		}
		bits := b.pollMask.get(fd)
		if bits == 0 {
			continue
		}
		b.pollMask.clear(fd, maskReadBit|maskWriteBit)

		registered := events[fd].mask
		var m FileEvents
		if bits&maskReadBit != 0 && registered&EventReadable != 0 {
			m |= EventReadable
		}
		if bits&maskWriteBit != 0 && registered&EventWritable != 0 {
			m |= EventWritable
		}
		if m == EventNone {
			continue
		}
		fired[count] = firedEvent{fd: fd, mask: m}
		count++
	}
	return count, nil
}

func (b *kqueueBackend) name() string { return backendName }

func (b *kqueueBackend) close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return unix.Close(b.kq)
}
