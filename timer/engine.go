// Package timer implements the meditation session state machine: wall-clock
// elapsed time across pause/resume and background gaps, the one-shot completion
// cue, and the backstop notification that covers a suspended host.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/benjamonnguyen/chilltimer"
	"github.com/charmbracelet/log"
)

const TickInterval = time.Second

type Engine struct {
	mu sync.Mutex

	clock    Clock
	ticker   Ticker
	cue      CuePlayer
	notifier Notifier
	dispatch Dispatcher
	l        *log.Logger

	state         State
	targetSeconds int
	accumulated   int       // banked from closed run intervals
	runStart      time.Time // zero unless running or overtime
	sessionStart  time.Time
	observed      int // highest elapsed seen this session
	gongFired     bool
	gongVolume    float64

	pending    NotificationID
	notifyGen  uint64 // bumped whenever a pending or in-flight notification is superseded
	background bool

	listeners    map[int]func(Snapshot)
	nextListener int
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithTicker(t Ticker) Option {
	return func(e *Engine) { e.ticker = t }
}

func WithCuePlayer(p CuePlayer) Option {
	return func(e *Engine) { e.cue = p }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithDispatcher sets where side effects run. The default runs them inline on
// the calling goroutine after the state transition is complete.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatch = d }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.l = l }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		clock:     SystemClock{},
		cue:       nopCue{},
		notifier:  nopNotifier{},
		dispatch:  Inline{},
		l:         log.Default(),
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ticker == nil {
		e.ticker = NewTicker()
	}
	return e
}

// effects are collected under the lock and carried out after it is released.
type effects struct {
	ops     []func(context.Context)
	tick    bool
	changed bool
}

// Start begins a session from idle. Out of range inputs are clamped.
func (e *Engine) Start(durationMinutes int, gongVolume float64) {
	e.mu.Lock()
	if e.state != Idle {
		e.mu.Unlock()
		e.l.Debug("ignoring start", "state", e.State())
		return
	}

	var fx effects
	now := e.clock.Now()
	e.state = Running
	e.targetSeconds = chilltimer.ClampDuration(durationMinutes) * 60
	e.accumulated = 0
	e.observed = 0
	e.gongFired = false
	e.gongVolume = chilltimer.ClampVolume(gongVolume)
	e.runStart = now
	e.sessionStart = now
	e.cancelPendingLocked(&fx)
	e.scheduleLocked(&fx, e.targetSeconds)
	e.startTickingLocked(&fx)
	e.l.Info("started session", "targetSeconds", e.targetSeconds, "gongVolume", e.gongVolume)
	e.mu.Unlock()

	e.apply(fx)
}

// Tick recomputes elapsed time from the wall clock. It is the Ticker callback
// and may also be called directly to resynchronize.
func (e *Engine) Tick() {
	e.mu.Lock()
	fx := e.evaluateLocked()
	e.mu.Unlock()

	e.apply(fx)
}

func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.state.active() {
		e.mu.Unlock()
		e.l.Debug("ignoring pause", "state", e.State())
		return
	}

	var fx effects
	e.accumulated = e.elapsedLocked(e.clock.Now())
	e.observed = e.accumulated
	e.runStart = time.Time{}
	e.state = Paused
	e.ticker.Stop()
	e.cancelPendingLocked(&fx)
	fx.changed = true
	e.l.Info("paused session", "elapsedSeconds", e.accumulated)
	e.mu.Unlock()

	e.apply(fx)
}

func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state != Paused || e.targetSeconds <= 0 {
		e.mu.Unlock()
		e.l.Debug("ignoring resume", "state", e.State())
		return
	}

	var fx effects
	e.runStart = e.clock.Now()
	if e.accumulated >= e.targetSeconds {
		e.state = Overtime
	} else {
		e.state = Running
		e.cancelPendingLocked(&fx)
		e.scheduleLocked(&fx, e.targetSeconds-e.accumulated)
	}
	e.startTickingLocked(&fx)
	e.l.Info("resumed session", "state", e.state, "elapsedSeconds", e.accumulated)
	e.mu.Unlock()

	e.apply(fx)
}

// Stop finalizes the session and returns its record. Called while idle it
// returns a zero-length record stamped with the current time.
func (e *Engine) Stop() chilltimer.SessionRecord {
	e.mu.Lock()
	now := e.clock.Now()
	if e.state == Idle {
		e.mu.Unlock()
		e.l.Debug("stop while idle")
		return chilltimer.SessionRecord{StartTime: now, EndTime: now}
	}

	var fx effects
	total := e.elapsedLocked(now)
	e.accumulated = total
	e.observed = total
	e.runStart = time.Time{}
	e.state = Idle
	e.ticker.Stop()
	e.cancelPendingLocked(&fx)
	fx.changed = true
	record := chilltimer.SessionRecord{
		StartTime:             e.sessionStart,
		EndTime:               now,
		TargetSeconds:         e.targetSeconds,
		ActualDurationSeconds: total,
	}
	e.sessionStart = time.Time{}
	e.l.Info("stopped session", "actualSeconds", total, "targetSeconds", e.targetSeconds)
	e.mu.Unlock()

	e.apply(fx)
	return record
}

// Reset discards the session without producing a record.
func (e *Engine) Reset() {
	e.mu.Lock()
	var fx effects
	e.ticker.Stop()
	e.cancelPendingLocked(&fx)
	e.state = Idle
	e.targetSeconds = 0
	e.accumulated = 0
	e.observed = 0
	e.runStart = time.Time{}
	e.sessionStart = time.Time{}
	e.gongFired = false
	fx.changed = true
	e.l.Info("reset session")
	e.mu.Unlock()

	e.apply(fx)
}

// SetForeground handles the host moving between foreground-active and
// background. The pending notification is left alone in both directions: it
// was scheduled against a fixed target offset and stays correct.
func (e *Engine) SetForeground(active bool) {
	e.mu.Lock()
	e.background = !active
	if !e.state.active() {
		e.mu.Unlock()
		return
	}

	var fx effects
	if active {
		e.startTickingLocked(&fx)
	} else {
		e.ticker.Stop()
	}
	e.l.Debug("foreground changed", "active", active, "state", e.state)
	e.mu.Unlock()

	e.apply(fx)
}

func (e *Engine) WatchLifecycle(src LifecycleSource) (unsubscribe func()) {
	return src.OnForegroundChange(e.SetForeground)
}

// Close stops ticking and cancels any pending notification. State is kept.
func (e *Engine) Close() {
	e.mu.Lock()
	var fx effects
	e.ticker.Stop()
	e.cancelPendingLocked(&fx)
	e.mu.Unlock()

	e.apply(fx)
}

// OnChange registers fn to receive a snapshot after every state change and
// tick. fn runs on the goroutine that caused the change and must not block.
func (e *Engine) OnChange(fn func(Snapshot)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(e.clock.Now())
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) ElapsedSeconds() int {
	return e.Snapshot().ElapsedSeconds
}

func (e *Engine) TargetSeconds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.targetSeconds
}

func (e *Engine) OvertimeSeconds() int {
	return e.Snapshot().OvertimeSeconds
}

func (e *Engine) IsOvertime() bool {
	return e.Snapshot().IsOvertime
}

func (e *Engine) FormattedRemainingOrOvertime() string {
	return e.Snapshot().Display
}

func (e *Engine) evaluateLocked() effects {
	var fx effects
	if !e.state.active() {
		return fx
	}

	total := e.elapsedLocked(e.clock.Now())
	e.observed = total
	if total >= e.targetSeconds && !e.gongFired {
		e.gongFired = true
		e.state = Overtime
		volume := e.gongVolume
		// the backstop cancel is dispatched ahead of the cue
		e.cancelPendingLocked(&fx)
		fx.ops = append(fx.ops, func(ctx context.Context) {
			if err := e.cue.Play(ctx, volume); err != nil {
				e.l.Warn("failed to play completion cue", "volume", volume, "err", err)
			}
		})
		e.l.Info("target reached", "targetSeconds", e.targetSeconds, "elapsedSeconds", total)
	}
	fx.changed = true
	return fx
}

// elapsedLocked never reports less than a previous observation in the same
// session, even if the clock steps backwards.
func (e *Engine) elapsedLocked(now time.Time) int {
	total := e.accumulated
	if !e.runStart.IsZero() {
		total += max(0, int(now.Sub(e.runStart)/time.Second))
	}
	return max(total, e.observed)
}

func (e *Engine) snapshotLocked(now time.Time) Snapshot {
	elapsed := e.elapsedLocked(now)
	s := Snapshot{
		State:           e.state,
		ElapsedSeconds:  elapsed,
		TargetSeconds:   e.targetSeconds,
		OvertimeSeconds: max(0, elapsed-e.targetSeconds),
		IsOvertime: e.state == Overtime ||
			(e.state == Paused && e.targetSeconds > 0 && elapsed >= e.targetSeconds),
	}
	switch {
	case s.IsOvertime:
		s.Display = "+" + chilltimer.FormatClock(s.OvertimeSeconds)
	case e.state == Idle:
		s.Display = chilltimer.FormatClock(e.targetSeconds)
	default:
		s.Display = chilltimer.FormatClock(e.targetSeconds - elapsed)
	}
	return s
}

func (e *Engine) startTickingLocked(fx *effects) {
	if !e.background {
		e.ticker.Start(TickInterval, e.Tick)
	}
	fx.tick = true
}

func (e *Engine) cancelPendingLocked(fx *effects) {
	e.notifyGen++
	if e.pending == "" {
		return
	}
	id := e.pending
	e.pending = ""
	fx.ops = append(fx.ops, e.cancelOp(id))
}

func (e *Engine) scheduleLocked(fx *effects, seconds int) {
	if seconds <= 0 {
		return
	}
	e.notifyGen++
	gen := e.notifyGen
	after := time.Duration(seconds) * time.Second
	fx.ops = append(fx.ops, func(ctx context.Context) {
		id, err := e.notifier.ScheduleOneShot(ctx, after)
		if err != nil {
			e.l.Warn("failed to schedule backstop notification", "after", after, "err", err)
			return
		}
		if id == "" {
			return
		}
		e.adoptNotification(gen, id)
	})
}

// adoptNotification stores id as pending unless the schedule that produced it
// has been superseded, in which case id is cancelled right away.
func (e *Engine) adoptNotification(gen uint64, id NotificationID) {
	e.mu.Lock()
	var fx effects
	if gen == e.notifyGen && e.pending == "" && e.state == Running {
		e.pending = id
	} else {
		e.l.Debug("cancelling stale notification", "id", id)
		fx.ops = append(fx.ops, e.cancelOp(id))
	}
	e.mu.Unlock()

	e.apply(fx)
}

func (e *Engine) cancelOp(id NotificationID) func(context.Context) {
	return func(ctx context.Context) {
		if err := e.notifier.Cancel(ctx, id); err != nil {
			e.l.Warn("failed to cancel backstop notification", "id", id, "err", err)
		}
	}
}

func (e *Engine) apply(fx effects) {
	for _, op := range fx.ops {
		e.dispatch.Dispatch(op)
	}
	if fx.tick {
		e.Tick()
	} else if fx.changed {
		e.publish()
	}
}

func (e *Engine) publish() {
	e.mu.Lock()
	s := e.snapshotLocked(e.clock.Now())
	fns := make([]func(Snapshot), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Inline is a Dispatcher that runs ops immediately on the caller's goroutine.
type Inline struct{}

func (Inline) Dispatch(op func(context.Context)) {
	op(context.Background())
}

type nopCue struct{}

func (nopCue) Play(context.Context, float64) error { return nil }

type nopNotifier struct{}

func (nopNotifier) ScheduleOneShot(context.Context, time.Duration) (NotificationID, error) {
	return "", nil
}

func (nopNotifier) Cancel(context.Context, NotificationID) error { return nil }
