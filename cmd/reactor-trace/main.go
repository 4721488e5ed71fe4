// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Command reactor-trace is a small diagnostic tool exercising the
// reactor package's public API end to end. It has no listener or
// protocol of its own — standing one up is out of scope for the
// library — it only drives a Dispatcher through one of
// three canned scenarios and prints a trace line per fired event.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/fenwick-systems/reactor"
)

func main() {
	scenario := flag.String("scenario", "io", "scenario to run: io, timers, barrier")
	flag.Parse()

	var err error
	switch *scenario {
	case "io":
		err = runIO()
	case "timers":
		err = runTimers()
	case "barrier":
		err = runBarrier()
	default:
		err = fmt.Errorf("unknown scenario %q (want io, timers, or barrier)", *scenario)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "reactor-trace:", err)
		os.Exit(1)
	}
}

// runIO creates a self-pipe, registers its read end, writes one byte,
// and runs dispatch iterations until it fires.
func runIO() error {
	d, err := reactor.New(64, reactor.WithLogger(reactor.NewWriterLogger(os.Stdout, reactor.LevelDebug)))
	if err != nil {
		return err
	}
	defer d.Close()

	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	defer r.Close()
	defer w.Close()

	fired := false
	err = d.CreateFileEvent(int(r.Fd()), reactor.EventReadable, func(d *reactor.Dispatcher, fd int, client any, mask reactor.FileEvents) {
		buf := make([]byte, 1)
		r.Read(buf)
		fmt.Printf("io: fd=%d fired mask=%v byte=%q\n", fd, mask, buf)
		fired = true
		d.Stop()
	}, nil)
	if err != nil {
		return err
	}

	if _, err := w.Write([]byte{'x'}); err != nil {
		return err
	}

	for i := 0; i < 10 && !fired; i++ {
		if _, err := d.ProcessEvents(reactor.ProcessAll); err != nil {
			return err
		}
	}
	if !fired {
		return fmt.Errorf("io scenario: read end never fired")
	}
	return nil
}

// runTimers registers a one-shot timer and a rescheduling timer, and
// runs until both have fired their expected number of times.
func runTimers() error {
	d, err := reactor.New(8, reactor.WithLogger(reactor.NewWriterLogger(os.Stdout, reactor.LevelDebug)))
	if err != nil {
		return err
	}
	defer d.Close()

	oneShotFired := false
	d.CreateTimeEvent(5, func(d *reactor.Dispatcher, id int64, client any) int {
		fmt.Printf("timers: one-shot id=%d fired\n", id)
		oneShotFired = true
		return reactor.NoMore
	}, nil, nil)

	repeats := 0
	d.CreateTimeEvent(5, func(d *reactor.Dispatcher, id int64, client any) int {
		repeats++
		fmt.Printf("timers: repeating id=%d fired (count=%d)\n", id, repeats)
		if repeats >= 3 {
			return reactor.NoMore
		}
		return 5
	}, nil, func(d *reactor.Dispatcher, client any) {
		fmt.Println("timers: repeating timer finalized")
	})

	deadline := time.Now().Add(2 * time.Second)
	for (!oneShotFired || repeats < 3) && time.Now().Before(deadline) {
		if _, err := d.ProcessEvents(reactor.ProcessTime); err != nil {
			return err
		}
	}
	if !oneShotFired || repeats < 3 {
		return fmt.Errorf("timers scenario: timed out waiting for both timers")
	}
	return nil
}

// runBarrier registers one socket readable with one handler and
// writable with EventBarrier set with another, to show write-before-read
// ordering for a single descriptor ready in both directions at once.
func runBarrier() error {
	d, err := reactor.New(8, reactor.WithLogger(reactor.NewWriterLogger(os.Stdout, reactor.LevelDebug)))
	if err != nil {
		return err
	}
	defer d.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	// A stream socket is writable as soon as it's connected and
	// readable once the peer has sent something.
	if _, err := unix.Write(fds[1], []byte{'y'}); err != nil {
		return err
	}

	// Registered as two separate calls (distinct handlers per
	// direction) rather than one unified call, so the barrier's
	// write-before-read ordering is observable as two invocations.
	var trace []string
	fd := fds[0]
	err = d.CreateFileEvent(fd, reactor.EventReadable, func(d *reactor.Dispatcher, fd int, client any, mask reactor.FileEvents) {
		trace = append(trace, fmt.Sprintf("read@%d", fd))
	}, nil)
	if err != nil {
		return err
	}
	err = d.CreateFileEvent(fd, reactor.EventWritable|reactor.EventBarrier, func(d *reactor.Dispatcher, fd int, client any, mask reactor.FileEvents) {
		trace = append(trace, fmt.Sprintf("write@%d", fd))
	}, nil)
	if err != nil {
		return err
	}

	if _, err := d.ProcessEvents(reactor.ProcessFile | reactor.ProcessDontWait); err != nil {
		return err
	}
	fmt.Printf("barrier: trace=%v\n", trace)
	return nil
}
