package timer

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsInOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue(context.Background(), log.New(io.Discard))
	var mu sync.Mutex
	var got []int
	for i := range 20 {
		q.Dispatch(func(context.Context) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, i)
		})
	}
	q.Close()

	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueue_FollowUpOps(t *testing.T) {
	t.Parallel()

	q := NewQueue(context.Background(), log.New(io.Discard))
	done := make(chan string, 2)
	q.Dispatch(func(context.Context) {
		done <- "first"
		q.Dispatch(func(context.Context) { done <- "follow-up" })
	})

	assert.Equal(t, "first", <-done)
	select {
	case v := <-done:
		assert.Equal(t, "follow-up", v)
	case <-time.After(time.Second):
		t.Fatal("follow-up op never ran")
	}
	q.Close()
}

func TestQueue_Close(t *testing.T) {
	t.Parallel()

	q := NewQueue(context.Background(), log.New(io.Discard))
	release := make(chan struct{})
	var sawCancel atomic.Bool
	q.Dispatch(func(ctx context.Context) {
		<-release
		<-ctx.Done()
		sawCancel.Store(true)
	})

	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()
	close(release)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.True(t, sawCancel.Load())

	var ran atomic.Bool
	q.Dispatch(func(context.Context) { ran.Store(true) })
	assert.False(t, ran.Load())
}

func TestQueue_RecoversPanics(t *testing.T) {
	t.Parallel()

	q := NewQueue(context.Background(), log.New(io.Discard))
	var ran atomic.Bool
	q.Dispatch(func(context.Context) { panic("boom") })
	q.Dispatch(func(context.Context) { ran.Store(true) })
	q.Close()

	assert.True(t, ran.Load())
}

func TestEngine_WithQueue(t *testing.T) {
	t.Parallel()

	q := NewQueue(context.Background(), log.New(io.Discard))
	h := newHarness(WithDispatcher(q))

	h.engine.Start(1, 0.5)
	h.advance(time.Minute)
	h.engine.Reset()
	q.Close()

	assert.Equal(t, Idle, h.engine.State())
	assert.Len(t, h.cue.volumes, 1)
	h.notifier.mu.Lock()
	defer h.notifier.mu.Unlock()
	assert.Equal(t, []NotificationID{"n1"}, h.notifier.cancelled)
}

func TestSystemTicker(t *testing.T) {
	t.Parallel()

	ticker := NewTicker()
	var ticks atomic.Int32
	ticker.Start(5*time.Millisecond, func() { ticks.Add(1) })

	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	ticker.Stop()
	time.Sleep(20 * time.Millisecond)
	stopped := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, ticks.Load()-stopped, int32(1))
}

func TestQueue_CloseRunsFollowUpsOfDrainingOps(t *testing.T) {
	t.Parallel()

	q := NewQueue(context.Background(), log.New(io.Discard))
	release := make(chan struct{})
	var followUp atomic.Bool
	q.Dispatch(func(context.Context) {
		<-release
		q.Dispatch(func(context.Context) { followUp.Store(true) })
	})

	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()
	assert.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.closing
	}, time.Second, time.Millisecond)
	close(release)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	assert.True(t, followUp.Load())
}

func TestEngine_WithQueue_ResetBeforeScheduleResolves(t *testing.T) {
	t.Parallel()

	q := NewQueue(context.Background(), log.New(io.Discard))
	release := make(chan struct{})
	q.Dispatch(func(context.Context) { <-release })
	h := newHarness(WithDispatcher(q))

	h.engine.Start(5, 0.5)
	h.engine.Reset()
	close(release)
	q.Close()

	h.notifier.mu.Lock()
	defer h.notifier.mu.Unlock()
	assert.Equal(t, []string{"schedule 5m0s", "cancel n1"}, h.notifier.calls)
}
