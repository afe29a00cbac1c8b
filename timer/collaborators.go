package timer

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Ticker invokes fn periodically while started. Only the engine that owns a
// Ticker may start or stop it.
type Ticker interface {
	Start(interval time.Duration, fn func())
	Stop()
}

// CuePlayer plays the completion cue. Play is called off the engine's lock and
// its error is only logged.
type CuePlayer interface {
	Play(ctx context.Context, volume float64) error
}

type NotificationID string

// Notifier schedules the backstop notification that informs the user of
// completion when the host cannot run its own ticking.
type Notifier interface {
	ScheduleOneShot(ctx context.Context, after time.Duration) (NotificationID, error)
	Cancel(ctx context.Context, id NotificationID) error
}

// LifecycleSource reports transitions between foreground-active and
// background/inactive.
type LifecycleSource interface {
	OnForegroundChange(func(active bool)) (unsubscribe func())
}

// Dispatcher runs side effects without the caller waiting. Ops must run in the
// order they were dispatched.
type Dispatcher interface {
	Dispatch(op func(context.Context))
}

type systemTicker struct {
	mu   sync.Mutex
	done chan struct{}
}

func NewTicker() Ticker {
	return &systemTicker{}
}

// Start replaces any running loop. Neither Start nor Stop waits for the old
// loop to exit, so fn may itself call into code that stops the ticker.
func (t *systemTicker) Start(interval time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		close(t.done)
	}
	done := make(chan struct{})
	t.done = done

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

func (t *systemTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
}
