// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

// dispatcherOptions holds configuration applied at New.
type dispatcherOptions struct {
	logger          Logger
	initialCapacity int
}

// Option configures a Dispatcher at construction time.
type Option interface {
	apply(*dispatcherOptions)
}

type optionFunc func(*dispatcherOptions)

func (f optionFunc) apply(o *dispatcherOptions) { f(o) }

// WithLogger installs a structured logger used for diagnostics (backend
// selection, resize/backend failures, recovered finalizer panics). The
// default is a NoOpLogger.
func WithLogger(logger Logger) Option {
	return optionFunc(func(o *dispatcherOptions) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// WithInitialCapacity hints how many slots to pre-allocate in the
// file-event and fired-event tables, up to setsize. The table still
// grows on demand (see ensureCapacity); this only avoids early
// reallocation for callers that know roughly how many descriptors they
// will register.
func WithInitialCapacity(n int) Option {
	return optionFunc(func(o *dispatcherOptions) {
		if n > 0 {
			o.initialCapacity = n
		}
	})
}
