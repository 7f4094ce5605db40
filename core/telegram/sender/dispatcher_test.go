package sender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type waits struct {
	mu  sync.Mutex
	got []time.Duration
}

func (w *waits) sleep(_ context.Context, d time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.got = append(w.got, d)
	return true
}

func (w *waits) list() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.got...)
}

func TestDispatcherDeliversQueued(t *testing.T) {
	d := New(Options{})
	var mu sync.Mutex
	var kinds []string
	for _, kind := range []string{"order", "reservation"} {
		require.NoError(t, d.Enqueue(context.Background(), kind, func(context.Context) error {
			mu.Lock()
			kinds = append(kinds, kind)
			mu.Unlock()
			return nil
		}))
	}
	d.Close()

	assert.ElementsMatch(t, []string{"order", "reservation"}, kinds)
	assert.Zero(t, d.ErrorCount())
	assert.Empty(t, d.Failures())
}

func TestDispatcherRetriesServerErrors(t *testing.T) {
	d := New(Options{Workers: 1, Attempts: 3, Backoff: time.Second})
	w := &waits{}
	d.sleep = w.sleep

	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), "order", func(context.Context) error {
		calls++
		if calls < 3 {
			return tele.ErrInternal
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, w.list())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherLabelsFailuresByKind(t *testing.T) {
	d := New(Options{Workers: 1, Attempts: 2})
	w := &waits{}
	d.sleep = w.sleep

	blocked := 0
	require.NoError(t, d.Enqueue(context.Background(), "feedback", func(context.Context) error {
		blocked++
		return tele.ErrKickedFromGroup
	}))
	require.NoError(t, d.Enqueue(context.Background(), "order", func(context.Context) error {
		return tele.ErrInternal
	}))
	d.Close()

	assert.Equal(t, 1, blocked, "blocked chats are not retried")
	assert.Len(t, w.list(), 1)
	assert.Equal(t, uint64(2), d.ErrorCount())
	assert.Equal(t, map[string]uint64{"feedback/blocked": 1, "order/server": 1}, d.Failures())
}

func TestDispatcherWaitHonoursRetryAfter(t *testing.T) {
	d := New(Options{Backoff: time.Second, MaxWait: 10 * time.Second})
	defer d.Close()

	assert.Equal(t, 5*time.Second, d.wait(1, tele.FloodError{RetryAfter: 5}))
	assert.Equal(t, 10*time.Second, d.wait(1, tele.FloodError{RetryAfter: 60}))
	assert.Equal(t, 4*time.Second, d.wait(3, tele.ErrInternal))
	assert.Equal(t, 10*time.Second, d.wait(6, tele.ErrInternal))
}

func TestDispatcherRunsInlineWhenFull(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1})
	started := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, d.Enqueue(context.Background(), "order", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "order", func(context.Context) error { return nil }))

	boom := errors.New("boom")
	err := d.Enqueue(context.Background(), "reservation", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, map[string]uint64{"reservation/unknown": 1}, d.Failures())

	close(release)
	d.Close()
}

func TestDispatcherStopsAfterDeadline(t *testing.T) {
	d := New(Options{Workers: 1, Attempts: 5, Deadline: time.Millisecond})
	require.NoError(t, d.Enqueue(context.Background(), "order", func(context.Context) error {
		return tele.ErrInternal
	}))
	d.Close()

	assert.Equal(t, map[string]uint64{"order/timeout": 1}, d.Failures())
}

func TestDispatcherEnqueueAfterClose(t *testing.T) {
	d := New(Options{})
	d.Close()
	d.Close()
	assert.ErrorIs(t, d.Enqueue(context.Background(), "order", func(context.Context) error { return nil }), ErrClosed)
}
