// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package reactor implements a single-threaded, reactor-style event
// dispatcher: readiness notifications for file descriptors plus
// time-driven callbacks are multiplexed onto one cooperative loop.
//
// # Architecture
//
// A [Dispatcher] owns a file-event table, a timer list, and a backend
// that abstracts over the platform readiness primitive:
//   - Linux: a bitset backend built on the select(2)-style primitive
//     ([BackendName] "select").
//   - Darwin/BSD: a queue backend built on kqueue(2) ([BackendName]
//     "kqueue").
//
// Other targets have no backend and the package does not build there.
//
// See backend.go, backend_select.go, and backend_kqueue.go.
//
// # Usage
//
//	d, err := reactor.New(1024)
//	d.CreateFileEvent(fd, reactor.EventReadable, onReadable, nil)
//	d.CreateTimeEvent(100, onTick, nil, nil)
//	err = d.Run()
//
// # Thread safety
//
// A [Dispatcher] is NOT safe for concurrent use. It is constructed on one
// goroutine and driven by [Dispatcher.Run] or [Dispatcher.ProcessEvents]
// from that same goroutine thereafter. Ownership may be handed off to a
// different goroutine as a whole unit (e.g. across a channel) provided
// the old owner never touches it again; the dispatcher holds no mutex
// and performs no atomic operations because exactly one goroutine is
// ever expected to drive it at a time.
//
// Handlers must not block. The only suspension point in the loop is the
// backend's poll call; handlers that block starve every other
// registration sharing the dispatcher.
package reactor
