// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "time"

// initialEvents is the default pre-allocation ceiling for the file-event
// and fired-event tables, mirroring the original ae.c's INITIAL_EVENT.
const initialEvents = 1024

// FileHandler is invoked when a registered direction on fd is ready. mask
// is the OR of every direction that fired for fd this iteration that was
// also registered (it may cover both directions even if only one handler
// runs, per the fire-once rule).
type FileHandler func(d *Dispatcher, fd int, client any, mask FileEvents)

// TimerHandler is invoked when a timer is due. A non-negative return
// value reschedules the timer that many milliseconds from now; NoMore
// cancels it.
type TimerHandler func(d *Dispatcher, id int64, client any) int

// Finalizer runs exactly once when a timer is physically removed,
// whether because its handler returned NoMore, it was explicitly
// deleted, or the dispatcher was closed.
type Finalizer func(d *Dispatcher, client any)

// Hook is a before-sleep / after-sleep callback.
type Hook func(d *Dispatcher)

// fileEvent is one record in the dispatcher's file-event table, indexed
// by descriptor number.
//
// Invariant: mask == EventNone iff both read and write are nil. Readable
// set implies read != nil; writable set implies write != nil. unified is
// only ever true when a single CreateFileEvent call set both directions
// to the same handler value, per the re-architecture in the design notes
// (function values are not comparable in Go, so this replaces the
// original's raw pointer-identity check).
type fileEvent struct {
	mask    FileEvents
	read    FileHandler
	write   FileHandler
	unified bool
	client  any
}

// timerNode is one entry in the dispatcher's unordered singly linked
// timer list. The list is intentionally not index-structured: the
// design assumes small N (a handful of periodic housekeeping timers),
// per spec.
type timerNode struct {
	id        int64
	due       uint64 // monotonic microseconds
	handler   TimerHandler
	finalizer Finalizer
	client    any
	refcount  int
	next      *timerNode
}

// Dispatcher is the core reactor: it owns the file-event table, the
// timer list, and a platform backend, and drives the ordered invocation
// protocol described in the package doc. See doc.go for the concurrency
// contract: a Dispatcher is not safe for concurrent use.
type Dispatcher struct {
	events  []fileEvent
	fired   []firedEvent
	maxfd   int
	setsize int

	timerHead   *timerNode
	nextTimerID int64

	beforeSleep Hook
	afterSleep  Hook

	dontWait bool
	stop     bool
	closed   bool

	backend backend
	clock   monotonicClock
	logger  Logger
}

// New creates a Dispatcher admitting descriptors in [0, setsize). The
// events/fired tables are pre-sized to min(setsize, 1024), or to the
// WithInitialCapacity hint clamped to setsize, and grow on demand as
// descriptors are registered (see ensureCapacity).
func New(setsize int, opts ...Option) (*Dispatcher, error) {
	o := dispatcherOptions{logger: NewNoOpLogger()}
	for _, opt := range opts {
		opt.apply(&o)
	}

	b, err := newBackend()
	if err != nil {
		return nil, WrapError("reactor: create backend", err)
	}
	if err := b.resize(setsize); err != nil {
		_ = b.close()
		return nil, WrapError("reactor: size backend", err)
	}

	n := setsize
	if n > initialEvents {
		n = initialEvents
	}
	if o.initialCapacity > 0 {
		n = o.initialCapacity
		if n > setsize {
			n = setsize
		}
	}

	d := &Dispatcher{
		events:  make([]fileEvent, n),
		fired:   make([]firedEvent, n),
		maxfd:   -1,
		setsize: setsize,
		backend: b,
		clock:   newMonotonicClock(),
		logger:  o.logger,
	}
	if d.logger.IsEnabled(LevelDebug) {
		d.logger.Log(LogEntry{Level: LevelDebug, Category: "backend", Message: "dispatcher created using " + b.name() + " backend"})
	}
	return d, nil
}

// SetSize returns the configured set size (the maximum admitted
// descriptor number, exclusive).
func (d *Dispatcher) SetSize() int { return d.setsize }

// MaxFD returns the largest descriptor currently registered, or -1 if
// none are.
func (d *Dispatcher) MaxFD() int { return d.maxfd }

// Resize changes the maximum descriptor the dispatcher admits. A no-op
// if setsize equals the current value. Fails with ErrCapacity if a
// currently-registered descriptor would be orphaned, leaving state
// unchanged. Only shrinks the backing arrays when setsize shrinks them;
// it never grows them proactively (growth happens lazily on
// registration, matching the original's ae_resize_set_size).
func (d *Dispatcher) Resize(setsize int) error {
	if setsize == d.setsize {
		return nil
	}
	if d.maxfd >= setsize {
		return WrapError("reactor: resize below in-use descriptor", ErrCapacity)
	}
	if err := d.backend.resize(setsize); err != nil {
		if d.logger.IsEnabled(LevelError) {
			d.logger.Log(LogEntry{Level: LevelError, Category: "backend", Message: "resize failed", Err: err})
		}
		return WrapError("reactor: backend resize", ErrBackend)
	}
	d.setsize = setsize
	if setsize < len(d.events) {
		d.events = d.events[:setsize]
		d.fired = d.fired[:setsize]
	}
	return nil
}

// SetDontWait toggles a sticky flag that forces ProcessEvents to use a
// zero timeout until cleared, regardless of the per-call ProcessDontWait
// flag.
func (d *Dispatcher) SetDontWait(dontWait bool) { d.dontWait = dontWait }

// Stop requests that Run exit after the current iteration completes.
func (d *Dispatcher) Stop() { d.stop = true }

// SetBeforeSleep installs (or, passed nil, clears) the before-sleep hook.
func (d *Dispatcher) SetBeforeSleep(h Hook) { d.beforeSleep = h }

// SetAfterSleep installs (or, passed nil, clears) the after-sleep hook.
func (d *Dispatcher) SetAfterSleep(h Hook) { d.afterSleep = h }

// Close tears the dispatcher down: every remaining timer's finalizer
// runs exactly once, then the backend is released. Close is idempotent.
func (d *Dispatcher) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	for n := d.timerHead; n != nil; n = n.next {
		if n.finalizer != nil {
			d.runFinalizer(n)
		}
	}
	d.timerHead = nil
	return d.backend.close()
}

// runFinalizer invokes a timer's finalizer, recovering a panic so one
// misbehaving client doesn't abort dispatch of the remaining timers –
// the ambient hardening described in SPEC_FULL.md §4.7, not present in
// the Redis C original (whose finalizers cannot panic).
func (d *Dispatcher) runFinalizer(n *timerNode) {
	defer func() {
		if r := recover(); r != nil && d.logger.IsEnabled(LevelError) {
			d.logger.Log(LogEntry{Level: LevelError, Category: "timer", Message: "finalizer panicked", TimerID: n.id, Err: WrapError("recovered", errAsError(r))})
		}
	}()
	n.finalizer(d, n.client)
}

// errAsError coerces an arbitrary recover() value into an error for
// logging purposes.
func errAsError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return WrapError("panic", ErrBackend)
}

// ensureCapacity grows the events/fired tables (doubling, floor fd+1,
// ceiling setsize) so that index fd is addressable, matching the
// original's nevents growth rule exactly.
func (d *Dispatcher) ensureCapacity(fd int) {
	if fd < len(d.events) {
		return
	}
	n := len(d.events) * 2
	if n == 0 {
		n = 1
	}
	if n < fd+1 {
		n = fd + 1
	}
	if n > d.setsize {
		n = d.setsize
	}
	grownEvents := make([]fileEvent, n)
	copy(grownEvents, d.events)
	d.events = grownEvents

	grownFired := make([]firedEvent, n)
	copy(grownFired, d.fired)
	d.fired = grownFired
}

// CreateFileEvent registers interest in mask's directions on fd, invoking
// handler when they become ready. Calling this again for the same fd
// OR-merges the mask; the handler for each newly-set direction
// supersedes any earlier one for that direction. If mask sets both
// EventReadable and EventWritable in this single call, handler is
// treated as unified: if both directions are ready in one iteration it
// fires exactly once with the combined mask (see the fire-once rule).
func (d *Dispatcher) CreateFileEvent(fd int, mask FileEvents, handler FileHandler, client any) error {
	if fd < 0 || fd >= d.setsize {
		return WrapError("reactor: fd out of range", ErrCapacity)
	}
	d.ensureCapacity(fd)

	if err := d.backend.add(fd, mask); err != nil {
		if d.logger.IsEnabled(LevelError) {
			d.logger.Log(LogEntry{Level: LevelError, Category: "backend", Message: "add failed", FD: fd, Err: err})
		}
		return WrapError("reactor: backend add", ErrBackend)
	}

	fe := &d.events[fd]
	fe.mask |= mask
	if mask&EventReadable != 0 {
		fe.read = handler
	}
	if mask&EventWritable != 0 {
		fe.write = handler
	}
	fe.client = client
	fe.unified = mask&EventReadable != 0 && mask&EventWritable != 0

	if fd > d.maxfd {
		d.maxfd = fd
	}
	return nil
}

// DeleteFileEvent stops delivering the directions in mask for fd.
// Removing EventWritable also removes EventBarrier, since a barrier is
// only meaningful paired with writability. A no-op if fd is out of
// range or already has an empty mask.
func (d *Dispatcher) DeleteFileEvent(fd int, mask FileEvents) {
	if fd < 0 || fd >= len(d.events) {
		return
	}
	fe := &d.events[fd]
	if fe.mask == EventNone {
		return
	}

	removeMask := mask
	if removeMask&EventWritable != 0 {
		removeMask |= EventBarrier
	}

	d.backend.del(fd, removeMask)
	fe.mask &^= removeMask
	if removeMask&EventReadable != 0 {
		fe.read = nil
	}
	if removeMask&EventWritable != 0 {
		fe.write = nil
	}
	if fe.mask == EventNone {
		fe.unified = false
		if fd == d.maxfd {
			j := d.maxfd - 1
			for j >= 0 && (j >= len(d.events) || d.events[j].mask == EventNone) {
				j--
			}
			d.maxfd = j
		}
	}
}

// GetFileEvents returns the currently-registered mask for fd, or
// EventNone if fd is out of range or unregistered. Never errors.
func (d *Dispatcher) GetFileEvents(fd int) FileEvents {
	if fd < 0 || fd >= len(d.events) {
		return EventNone
	}
	return d.events[fd].mask
}

// GetFileClientData returns the opaque client value stored for fd, or
// nil if fd is out of range or unregistered. Never errors.
func (d *Dispatcher) GetFileClientData(fd int) any {
	if fd < 0 || fd >= len(d.events) || d.events[fd].mask == EventNone {
		return nil
	}
	return d.events[fd].client
}

// CreateTimeEvent schedules handler to run after delayMS milliseconds,
// returning its identifier. Identifiers are strictly increasing across
// the Dispatcher's lifetime, starting at 1.
func (d *Dispatcher) CreateTimeEvent(delayMS int64, handler TimerHandler, client any, finalizer Finalizer) int64 {
	d.nextTimerID++
	id := d.nextTimerID
	node := &timerNode{
		id:        id,
		due:       d.clock.nowUS() + uint64(delayMS)*1000,
		handler:   handler,
		finalizer: finalizer,
		client:    client,
		next:      d.timerHead,
	}
	d.timerHead = node
	return id
}

// DeleteTimeEvent marks the timer identified by id for deletion. It is
// physically removed (and its finalizer run) by the end of the
// iteration in which its refcount reaches zero — which may be the very
// iteration in which its own handler is executing. Returns ErrTimerNotFound
// if id does not identify a live timer.
func (d *Dispatcher) DeleteTimeEvent(id int64) error {
	for n := d.timerHead; n != nil; n = n.next {
		if n.id == id {
			n.id = deletedTimerID
			return nil
		}
	}
	return ErrTimerNotFound
}

// usUntilEarliestTimer returns the microseconds until the earliest
// non-tombstoned timer is due (0 if already due), or -1 if there are no
// live timers.
func (d *Dispatcher) usUntilEarliestTimer() int64 {
	var earliest *timerNode
	for n := d.timerHead; n != nil; n = n.next {
		if n.id == deletedTimerID {
			continue
		}
		if earliest == nil || n.due < earliest.due {
			earliest = n
		}
	}
	if earliest == nil {
		return -1
	}
	now := d.clock.nowUS()
	if now >= earliest.due {
		return 0
	}
	return int64(earliest.due - now)
}

// ProcessEvents runs one iteration of the dispatch loop and returns the
// number of file handlers plus timer handlers invoked. See the package
// doc and SPEC_FULL.md §4.6 for the exact ordering contract.
func (d *Dispatcher) ProcessEvents(flags ProcessFlags) (int, error) {
	if flags&(ProcessFile|ProcessTime) == 0 {
		return 0, nil
	}

	processed := 0

	if d.maxfd != -1 || (flags&ProcessTime != 0 && flags&ProcessDontWait == 0) {
		if flags&ProcessCallBeforeSleep != 0 && d.beforeSleep != nil {
			d.beforeSleep(d)
		}

		timeout := d.computeTimeout(flags)

		n, err := d.backend.poll(d.events, d.fired, d.maxfd, timeout)
		if err != nil {
			if d.logger.IsEnabled(LevelError) {
				d.logger.Log(LogEntry{Level: LevelError, Category: "poll", Message: "backend poll failed", Err: err})
			}
			n = 0
		}

		if flags&ProcessCallAfterSleep != 0 && d.afterSleep != nil {
			d.afterSleep(d)
		}

		if flags&ProcessFile != 0 {
			processed += d.dispatchFileEvents(n)
		}
	}

	if flags&ProcessTime != 0 {
		processed += d.processTimeEvents()
	}

	return processed, nil
}

// computeTimeout resolves the backend poll timeout per the DONT_WAIT /
// timer-deadline / infinite-wait rules in SPEC_FULL.md §4.6 step 2.
func (d *Dispatcher) computeTimeout(flags ProcessFlags) *time.Duration {
	if flags&ProcessDontWait != 0 || d.dontWait {
		zero := time.Duration(0)
		return &zero
	}
	if flags&ProcessTime != 0 {
		us := d.usUntilEarliestTimer()
		if us >= 0 {
			t := time.Duration(us) * time.Microsecond
			return &t
		}
		return nil
	}
	return nil
}

// dispatchFileEvents invokes file handlers for the n entries the backend
// reported fired, honoring the barrier rule and the fire-once rule for
// unified handlers. Returns the number of handler invocations.
func (d *Dispatcher) dispatchFileEvents(n int) int {
	fired := 0
	for j := 0; j < n && j < len(d.fired); j++ {
		fd := d.fired[j].fd
		mask := d.fired[j].mask
		if fd < 0 || fd >= len(d.events) {
			continue
		}

		registered := d.events[fd].mask
		m := registered & mask
		if m == 0 {
			continue
		}

		order := [2]FileEvents{EventReadable, EventWritable}
		if registered&EventBarrier != 0 {
			order = [2]FileEvents{EventWritable, EventReadable}
		}

		invoked := 0
		for _, dir := range order {
			if m&dir == 0 {
				continue
			}
			// Re-read: an earlier sub-invocation for this fd may have
			// mutated the registration table (delete_file_event, resize).
			if fd >= len(d.events) {
				break
			}
			fe := &d.events[fd]
			if fe.mask&dir == 0 {
				continue
			}
			if fe.unified && invoked > 0 {
				// Same handler already ran this iteration with the
				// combined mask.
				continue
			}
			var h FileHandler
			if dir == EventReadable {
				h = fe.read
			} else {
				h = fe.write
			}
			if h == nil {
				continue
			}
			h(d, fd, fe.client, m)
			invoked++
			fired++
		}
	}
	return fired
}

// processTimeEvents runs every non-tombstoned timer due at or before the
// snapshot time, then sweeps tombstoned timers whose refcount has
// dropped to zero. Returns the number of timer handlers invoked.
func (d *Dispatcher) processTimeEvents() int {
	processed := 0
	maxID := d.nextTimerID
	now := d.clock.nowUS()

	// Snapshot identifiers before invoking any handler: a timer created
	// by a handler in this pass (id > maxID) or re-registering itself
	// with a 0ms delay must not fire twice in the same iteration.
	var due []int64
	for n := d.timerHead; n != nil; n = n.next {
		if n.id == deletedTimerID || n.id > maxID {
			continue
		}
		if n.due <= now {
			due = append(due, n.id)
		}
	}

	for _, id := range due {
		node := d.findTimer(id)
		if node == nil || node.id == deletedTimerID {
			// Deleted by an earlier handler in this same pass.
			continue
		}
		node.refcount++
		handler := node.handler
		client := node.client

		retval := handler(d, id, client)
		processed++

		after := d.clock.nowUS()
		node.refcount--
		if retval == NoMore {
			node.id = deletedTimerID
		} else {
			node.due = after + uint64(retval)*1000
		}
	}

	d.sweepTimers()
	return processed
}

// findTimer returns the node currently carrying id, or nil.
func (d *Dispatcher) findTimer(id int64) *timerNode {
	for n := d.timerHead; n != nil; n = n.next {
		if n.id == id {
			return n
		}
	}
	return nil
}

// sweepTimers physically removes every tombstoned timer whose refcount
// has reached zero, running its finalizer exactly once first.
func (d *Dispatcher) sweepTimers() {
	var prev *timerNode
	n := d.timerHead
	for n != nil {
		next := n.next
		if n.id == deletedTimerID && n.refcount == 0 {
			if n.finalizer != nil {
				d.runFinalizer(n)
			}
			if prev == nil {
				d.timerHead = next
			} else {
				prev.next = next
			}
		} else {
			prev = n
		}
		n = next
	}
}

// Run clears the stop flag and repeatedly processes all events until
// Stop is called.
func (d *Dispatcher) Run() error {
	d.stop = false
	for !d.stop {
		if _, err := d.ProcessEvents(ProcessAll | ProcessCallBeforeSleep | ProcessCallAfterSleep); err != nil {
			return err
		}
	}
	return nil
}
