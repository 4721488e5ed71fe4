// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// Wait blocks on a single descriptor outside of any Dispatcher, using
// poll(2) directly. It is the standalone blocking helper from spec.md
// §4.6, useful for a caller that needs to wait on one fd without
// standing up a full dispatcher. timeout <= 0 waits indefinitely.
//
// POLLERR and POLLHUP are folded into the writable bit of the returned
// mask, matching the original's ae_wait (a write to a descriptor in an
// error state is the conventional way such state is observed).
func Wait(fd int, mask FileEvents, timeout time.Duration) (FileEvents, error) {
	var events int16
	if mask&EventReadable != 0 {
		events |= unix.POLLIN
	}
	if mask&EventWritable != 0 {
		events |= unix.POLLOUT
	}

	ms := -1
	if timeout > 0 {
		ms = int(timeout.Milliseconds())
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return EventNone, WrapError("reactor: poll", err)
		}
		if n == 0 {
			return EventNone, nil
		}
		break
	}

	revents := fds[0].Revents
	var result FileEvents
	if revents&unix.POLLIN != 0 {
		result |= EventReadable
	}
	if revents&unix.POLLOUT != 0 {
		result |= EventWritable
	}
	if revents&(unix.POLLERR|unix.POLLHUP) != 0 {
		result |= EventWritable
	}
	return result, nil
}
