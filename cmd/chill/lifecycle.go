package main

import (
	"sync"

	"github.com/benjamonnguyen/chilltimer/timer"
)

// focusLifecycle turns terminal focus and job-control events into foreground
// changes. Repeated reports of the same state are dropped.
type focusLifecycle struct {
	mu     sync.Mutex
	fns    map[int]func(bool)
	next   int
	active bool
}

var _ timer.LifecycleSource = (*focusLifecycle)(nil)

func newFocusLifecycle() *focusLifecycle {
	return &focusLifecycle{
		fns:    make(map[int]func(bool)),
		active: true,
	}
}

func (f *focusLifecycle) OnForegroundChange(fn func(active bool)) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.fns[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.fns, id)
	}
}

func (f *focusLifecycle) set(active bool) {
	f.mu.Lock()
	if f.active == active {
		f.mu.Unlock()
		return
	}
	f.active = active
	fns := make([]func(bool), 0, len(f.fns))
	for _, fn := range f.fns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(active)
	}
}
