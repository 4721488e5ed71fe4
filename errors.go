// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"
	"fmt"
)

// Sentinel errors for the four failure kinds a [Dispatcher] reports
// synchronously to its caller. Use [errors.Is] to test for these even
// when a backend syscall error has been wrapped in via [WrapError].
var (
	// ErrCapacity is returned when registering a descriptor at or beyond
	// the configured set size, or when a resize would orphan a
	// currently-registered descriptor.
	ErrCapacity = errors.New("reactor: capacity exceeded")

	// ErrBackend is returned when the platform backend reports failure
	// from add or resize. A failure to create the backend in New is
	// returned wrapping the backend's own error, not ErrBackend.
	ErrBackend = errors.New("reactor: backend error")

	// ErrTimerNotFound is returned by DeleteTimeEvent for an id that does
	// not (or no longer) identifies a live timer.
	ErrTimerNotFound = errors.New("reactor: timer not found")

	// ErrClosed names the closed-Dispatcher failure. No operation in this
	// package returns it: Close is idempotent, and the other methods do
	// not check whether Close has run.
	ErrClosed = errors.New("reactor: dispatcher closed")
)

// WrapError wraps cause with a message while preserving it for
// [errors.Is] / [errors.As]. Used to attach concrete context (an fd, a
// timer id, a backend name) to one of the sentinels above without
// losing the original syscall error, if any.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
