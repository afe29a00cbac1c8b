package timer

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Queue is a Dispatcher that runs ops one at a time on its own goroutine, in
// dispatch order. It is unbounded so an op may dispatch follow-up ops.
type Queue struct {
	mu      sync.Mutex
	ops     []func(context.Context)
	closing bool // draining; ops are still accepted
	done    bool // loop exited; ops are dropped
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	l      *log.Logger
}

func NewQueue(parent context.Context, l *log.Logger) *Queue {
	ctx, cancel := context.WithCancel(parent)
	q := &Queue{
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		l:      l,
	}
	q.wg.Go(q.loop)
	return q
}

func (q *Queue) Dispatch(op func(context.Context)) {
	q.mu.Lock()
	if q.done {
		q.mu.Unlock()
		q.l.Debug("dropping op dispatched after close")
		return
	}
	q.ops = append(q.ops, op)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close cancels the queue's context and waits until every queued op has run,
// including follow-ups that draining ops dispatch. Ops dispatched after Close
// returns are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closing = true
	q.mu.Unlock()
	q.cancel()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	q.wg.Wait()
}

func (q *Queue) loop() {
	for {
		q.mu.Lock()
		if len(q.ops) == 0 {
			if q.closing {
				q.done = true
				q.mu.Unlock()
				return
			}
			q.mu.Unlock()
			<-q.wake
			continue
		}
		op := q.ops[0]
		q.ops[0] = nil
		q.ops = q.ops[1:]
		q.mu.Unlock()

		q.run(op)
	}
}

func (q *Queue) run(op func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			q.l.Error("dispatched op panicked", "recovered", r)
		}
	}()
	op(q.ctx)
}
