// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Scenario 1: empty loop.
func TestProcessEvents_EmptyLoop(t *testing.T) {
	d, err := New(64)
	require.NoError(t, err)
	defer d.Close()

	n, err := d.ProcessEvents(ProcessAll | ProcessDontWait)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	require.NotEmpty(t, BackendName())
	require.Contains(t, []string{"select", "kqueue"}, BackendName())
}

// Scenario 2: immediate timer.
func TestCreateTimeEvent_Immediate(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	count := 0
	d.CreateTimeEvent(0, func(d *Dispatcher, id int64, client any) int {
		count++
		return NoMore
	}, nil, nil)

	n, err := d.ProcessEvents(ProcessTime | ProcessDontWait)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, count)

	n, err = d.ProcessEvents(ProcessTime | ProcessDontWait)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 1, count)
}

// Scenario 3: rescheduling timer.
func TestCreateTimeEvent_Reschedule(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	count := 0
	d.CreateTimeEvent(1, func(d *Dispatcher, id int64, client any) int {
		count++
		return 100
	}, nil, nil)

	time.Sleep(5 * time.Millisecond)

	n, err := d.ProcessEvents(ProcessTime | ProcessDontWait)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, count)

	n, err = d.ProcessEvents(ProcessTime | ProcessDontWait)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 1, count)
}

// Scenario 4: resize below maxfd fails.
func TestResize_BelowMaxFDFails(t *testing.T) {
	d, err := New(100)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.CreateFileEvent(40, EventReadable, func(d *Dispatcher, fd int, client any, mask FileEvents) {}, nil))

	err = d.Resize(30)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCapacity))
	require.Equal(t, 100, d.SetSize())

	require.NoError(t, d.Resize(100))
	require.Equal(t, 100, d.SetSize())
}

// Scenario 5: barrier ordering.
func TestDispatch_BarrierOrdering(t *testing.T) {
	r, w, closeFn := socketPair(t)
	defer closeFn()

	d, err := New(64)
	require.NoError(t, err)
	defer d.Close()

	_, err = w.Write([]byte{'a'})
	require.NoError(t, err)

	var trace []string
	require.NoError(t, d.CreateFileEvent(r.fd(), EventReadable, func(d *Dispatcher, fd int, client any, mask FileEvents) {
		trace = append(trace, "read@7")
	}, nil))
	require.NoError(t, d.CreateFileEvent(r.fd(), EventWritable|EventBarrier, func(d *Dispatcher, fd int, client any, mask FileEvents) {
		trace = append(trace, "write@7")
	}, nil))

	_, err = d.ProcessEvents(ProcessFile | ProcessDontWait)
	require.NoError(t, err)
	require.Equal(t, []string{"write@7", "read@7"}, trace)
}

// Scenario 6: partial delete.
func TestDeleteFileEvent_Partial(t *testing.T) {
	d, err := New(64)
	require.NoError(t, err)
	defer d.Close()

	noop := func(d *Dispatcher, fd int, client any, mask FileEvents) {}
	require.NoError(t, d.CreateFileEvent(12, EventReadable|EventWritable, noop, nil))
	require.Equal(t, EventReadable|EventWritable, d.GetFileEvents(12))
	require.Equal(t, 12, d.MaxFD())

	d.DeleteFileEvent(12, EventReadable)
	require.Equal(t, EventWritable, d.GetFileEvents(12))

	d.DeleteFileEvent(12, EventWritable)
	require.Equal(t, EventNone, d.GetFileEvents(12))
	require.Equal(t, -1, d.MaxFD())
}

// Scenario 7: tombstone survives handler execution.
func TestTimer_TombstoneSurvivesHandlerExecution(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	var bFinalized, bInvoked bool
	idB := d.CreateTimeEvent(0, func(d *Dispatcher, id int64, client any) int {
		bInvoked = true
		return NoMore
	}, nil, func(d *Dispatcher, client any) {
		bFinalized = true
	})

	aRan := 0
	d.CreateTimeEvent(0, func(d *Dispatcher, id int64, client any) int {
		aRan++
		require.NoError(t, d.DeleteTimeEvent(idB))
		return NoMore
	}, nil, nil)

	n, err := d.ProcessEvents(ProcessTime | ProcessDontWait)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, aRan)
	require.False(t, bInvoked)
	require.True(t, bFinalized)
}

func TestDeleteTimeEvent_NotFound(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	err = d.DeleteTimeEvent(999)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTimerNotFound))
}

func TestDeleteTimeEvent_StopsFutureDispatch(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	fired := 0
	id := d.CreateTimeEvent(0, func(d *Dispatcher, id int64, client any) int {
		fired++
		return 5
	}, nil, nil)

	require.NoError(t, d.DeleteTimeEvent(id))

	for i := 0; i < 3; i++ {
		_, err := d.ProcessEvents(ProcessTime | ProcessDontWait)
		require.NoError(t, err)
	}
	require.Equal(t, 0, fired)
}

func TestProcessEvents_NoFlagsNoop(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	n, err := d.ProcessEvents(0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestCreateFileEvent_CapacityError(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	err = d.CreateFileEvent(8, EventReadable, func(d *Dispatcher, fd int, client any, mask FileEvents) {}, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCapacity))
}

func TestCreateFileEvent_MaskMerges(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	noop := func(d *Dispatcher, fd int, client any, mask FileEvents) {}
	require.NoError(t, d.CreateFileEvent(3, EventReadable, noop, nil))
	require.NoError(t, d.CreateFileEvent(3, EventWritable, noop, "client"))

	require.Equal(t, EventReadable|EventWritable, d.GetFileEvents(3))
	require.Equal(t, "client", d.GetFileClientData(3))
}

func TestGetFileEvents_UnregisteredNeverErrors(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, EventNone, d.GetFileEvents(5))
	require.Nil(t, d.GetFileClientData(5))
}

func TestUnifiedHandler_FiresOnceForBothDirections(t *testing.T) {
	r, w, closeFn := socketPair(t)
	defer closeFn()

	d, err := New(64)
	require.NoError(t, err)
	defer d.Close()

	_, err = w.Write([]byte{'z'})
	require.NoError(t, err)

	calls := 0
	var lastMask FileEvents
	require.NoError(t, d.CreateFileEvent(r.fd(), EventReadable|EventWritable, func(d *Dispatcher, fd int, client any, mask FileEvents) {
		calls++
		lastMask = mask
	}, nil))

	_, err = d.ProcessEvents(ProcessFile | ProcessDontWait)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Equal(t, EventReadable|EventWritable, lastMask)
}

func TestRun_StopsAtIterationBoundary(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)
	defer d.Close()

	iterations := 0
	d.CreateTimeEvent(0, func(d *Dispatcher, id int64, client any) int {
		iterations++
		if iterations >= 3 {
			d.Stop()
		}
		return 0
	}, nil, nil)

	require.NoError(t, d.Run())
	require.GreaterOrEqual(t, iterations, 3)
}

func TestClose_RunsFinalizersForRemainingTimers(t *testing.T) {
	d, err := New(8)
	require.NoError(t, err)

	finalized := 0
	d.CreateTimeEvent(10_000, func(d *Dispatcher, id int64, client any) int { return 0 }, nil, func(d *Dispatcher, client any) {
		finalized++
	})
	d.CreateTimeEvent(10_000, func(d *Dispatcher, id int64, client any) int { return 0 }, nil, func(d *Dispatcher, client any) {
		finalized++
	})

	require.NoError(t, d.Close())
	require.Equal(t, 2, finalized)

	// idempotent
	require.NoError(t, d.Close())
	require.Equal(t, 2, finalized)
}
