// Package notify delivers the completion notification and the completion cue
// outside the timer engine.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/benjamonnguyen/chilltimer/timer"
)

const (
	DefaultTitle = "Meditation complete"
	DefaultBody  = "Your session has reached its target."

	deliverTimeout = 10 * time.Second
)

type Notification struct {
	ID          timer.NotificationID
	ScheduledAt time.Time
	FireAt      time.Time
	Title, Body string
}

type Deliverer interface {
	Deliver(context.Context, Notification) error
}

type DelivererFunc func(context.Context, Notification) error

func (f DelivererFunc) Deliver(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// afterFunc starts fn after d and returns a func that cancels it, reporting
// whether fn was prevented from running.
type afterFunc func(d time.Duration, fn func()) (stop func() bool)

// Scheduler is a timer.Notifier backed by in-process timers. Each scheduled
// notification is handed to every Deliverer when it fires.
type Scheduler struct {
	mu         sync.Mutex
	pending    map[timer.NotificationID]func() bool
	deliverers []Deliverer
	closed     bool

	title, body string
	after       afterFunc
	now         func() time.Time
	ctx         context.Context
	l           *log.Logger
}

type SchedulerOption func(*Scheduler)

func WithMessage(title, body string) SchedulerOption {
	return func(s *Scheduler) {
		s.title = title
		s.body = body
	}
}

func WithSchedulerLogger(l *log.Logger) SchedulerOption {
	return func(s *Scheduler) { s.l = l }
}

func NewScheduler(ctx context.Context, deliverers []Deliverer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		pending:    make(map[timer.NotificationID]func() bool),
		deliverers: deliverers,
		title:      DefaultTitle,
		body:       DefaultBody,
		after: func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		},
		now: time.Now,
		ctx: ctx,
		l:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ timer.Notifier = (*Scheduler)(nil)

// ScheduleOneShot returns an empty id without scheduling anything when after
// is not positive.
func (s *Scheduler) ScheduleOneShot(ctx context.Context, after time.Duration) (timer.NotificationID, error) {
	if after <= 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", errors.New("scheduler closed")
	}

	now := s.now()
	n := Notification{
		ID:          timer.NotificationID(uuid.NewString()),
		ScheduledAt: now,
		FireAt:      now.Add(after),
		Title:       s.title,
		Body:        s.body,
	}
	s.pending[n.ID] = s.after(after, func() { s.fire(n) })
	s.l.Debug("scheduled notification", "id", n.ID, "fireAt", n.FireAt)
	return n.ID, nil
}

// Cancel is a no-op for ids that are unknown or already fired.
func (s *Scheduler) Cancel(_ context.Context, id timer.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.pending[id]; ok {
		stop()
		delete(s.pending, id)
		s.l.Debug("cancelled notification", "id", id)
	}
	return nil
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels everything pending. Later schedules fail.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, stop := range s.pending {
		stop()
		delete(s.pending, id)
	}
}

func (s *Scheduler) fire(n Notification) {
	s.mu.Lock()
	if _, ok := s.pending[n.ID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, n.ID)
	deliverers := s.deliverers
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, deliverTimeout)
	defer cancel()
	var wg sync.WaitGroup
	for _, d := range deliverers {
		wg.Go(func() {
			if err := d.Deliver(ctx, n); err != nil {
				s.l.Error("failed to deliver notification", "id", n.ID, "err", err)
			}
		})
	}
	wg.Wait()
	s.l.Info("delivered notification", "id", n.ID, "deliverers", len(deliverers))
}
