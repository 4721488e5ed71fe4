// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "time"

// monotonicClock is a source of monotonic microseconds from an arbitrary,
// private epoch. It never goes backwards and is unaffected by wall-clock
// adjustments (time.Since uses the runtime's monotonic reading, not the
// wall clock, as long as the time.Time value came from time.Now()).
//
// All timer arithmetic in the dispatcher goes through this type rather
// than calling time.Now directly. It is a concrete type read from the
// real monotonic clock; the Dispatcher offers no way to substitute
// another clock.
type monotonicClock struct {
	start time.Time
}

func newMonotonicClock() monotonicClock {
	return monotonicClock{start: time.Now()}
}

// nowUS returns monotonic microseconds since the clock was created.
func (c monotonicClock) nowUS() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}
