package serial

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitPreservesOrderPerKey(t *testing.T) {
	exec := New(Options{MaxPending: 1000})
	var mu sync.Mutex
	seen := map[int64][]int{}

	for i := 0; i < 200; i++ {
		key := int64(i % 4)
		n := i
		require.NoError(t, exec.Submit(key, func() {
			mu.Lock()
			seen[key] = append(seen[key], n)
			mu.Unlock()
		}))
	}
	exec.Close()

	for key, got := range seen {
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1], got[i], "key %d ran out of order", key)
		}
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 0, exec.Pending())
}

func TestDifferentKeysRunConcurrently(t *testing.T) {
	exec := New(Options{})
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	require.NoError(t, exec.Submit(1, func() { <-release }))
	require.NoError(t, exec.Submit(2, func() { started <- struct{}{} }))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("key 2 was blocked by key 1")
	}
	close(release)
	exec.Close()
}

func TestBacklogAndClose(t *testing.T) {
	exec := New(Options{MaxPending: 1})
	release := make(chan struct{})
	require.NoError(t, exec.Submit(5, func() { <-release }))
	// the first job may already be dequeued, so fill the queue until it rejects
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = exec.Submit(5, func() {})
	}
	assert.ErrorIs(t, err, ErrBacklog)
	close(release)
	exec.Close()

	assert.ErrorIs(t, exec.Submit(5, func() {}), ErrClosed)
}

func TestPanicDoesNotStopQueue(t *testing.T) {
	exec := New(Options{})
	done := false
	require.NoError(t, exec.Submit(9, func() { panic("boom") }))
	require.NoError(t, exec.Submit(9, func() { done = true }))
	exec.Close()
	assert.True(t, done)
}
