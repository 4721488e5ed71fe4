// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "time"

// FileEvents is a bitwise OR of readiness directions and the barrier
// modifier for one descriptor.
type FileEvents uint8

const (
	// EventNone means no direction is registered.
	EventNone FileEvents = 0
	// EventReadable is set when the descriptor is interested in
	// readability.
	EventReadable FileEvents = 1 << 0
	// EventWritable is set when the descriptor is interested in
	// writability.
	EventWritable FileEvents = 1 << 1
	// EventBarrier inverts the default read-before-write firing order for
	// one descriptor. Only meaningful when EventWritable is also set.
	EventBarrier FileEvents = 1 << 2
)

// ProcessFlags selects which parts of one dispatch iteration run.
type ProcessFlags uint8

const (
	// ProcessFile processes ready file-event handlers.
	ProcessFile ProcessFlags = 1 << 0
	// ProcessTime processes due timer handlers.
	ProcessTime ProcessFlags = 1 << 1
	// ProcessAll is ProcessFile | ProcessTime.
	ProcessAll = ProcessFile | ProcessTime
	// ProcessDontWait forces a zero timeout for this call only.
	ProcessDontWait ProcessFlags = 1 << 2
	// ProcessCallBeforeSleep invokes the before-sleep hook, if installed.
	ProcessCallBeforeSleep ProcessFlags = 1 << 3
	// ProcessCallAfterSleep invokes the after-sleep hook, if installed.
	ProcessCallAfterSleep ProcessFlags = 1 << 4
)

// NoMore is the sentinel a timer handler returns to cancel itself instead
// of being rescheduled.
const NoMore = -1

// deletedTimerID tombstones a timer scheduled for deletion but not yet
// physically removed (refcount > 0).
const deletedTimerID int64 = -1

// firedEvent is one (descriptor, ready-direction) pair produced by a
// backend poll.
type firedEvent struct {
	fd   int
	mask FileEvents
}

// backend abstracts over the platform readiness primitive. There are two
// implementations: the bitset (select-style) backend for Linux and the
// queue (kqueue-style) backend for Darwin/BSD, selected at compile time by
// build tag (see backend_select.go / backend_kqueue.go).
type backend interface {
	// resize is called when the dispatcher's capacity grows or shrinks.
	resize(setsize int) error
	// add begins delivering readiness notifications for fd restricted to
	// mask. Idempotent: adding twice is not an error.
	add(fd int, mask FileEvents) error
	// del stops delivering the indicated direction(s). Tolerates
	// descriptors never added.
	del(fd int, mask FileEvents)
	// poll blocks up to timeout (nil means infinite) and reports ready
	// descriptors into fired[0:n]. events is the dispatcher's file-event
	// table, consulted by the bitset backend to ignore stale entries and
	// by both backends to intersect the reported readiness with what was
	// actually registered.
	poll(events []fileEvent, fired []firedEvent, maxfd int, timeout *time.Duration) (int, error)
	// name identifies the backend for diagnostics ("select" or "kqueue").
	name() string
	// close releases backend resources (e.g. the kqueue fd).
	close() error
}

// BackendName returns the platform backend name compiled into this
// binary: "select" on Linux, "kqueue" on Darwin/BSD. It never returns the
// empty string.
func BackendName() string {
	return backendName
}
