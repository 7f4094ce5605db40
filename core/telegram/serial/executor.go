// Package serial runs work items one at a time per key while different keys run in parallel.
package serial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/m3rciful/restobot/core/logger"
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("serial: executor closed")
	// ErrBacklog is returned when a key already has MaxPending queued items.
	ErrBacklog = errors.New("serial: backlog full")
)

// Options tunes the executor.
type Options struct {
	// MaxPending bounds queued items per key; 0 means 64.
	MaxPending int
}

type queue struct {
	jobs []func()
}

// Executor keeps one FIFO and at most one worker goroutine per key.
// Workers exit as soon as their queue drains.
type Executor struct {
	opts   Options
	mu     sync.Mutex
	queues map[int64]*queue
	closed bool
	wg     sync.WaitGroup
}

// New builds an Executor.
func New(opts Options) *Executor {
	if opts.MaxPending <= 0 {
		opts.MaxPending = 64
	}
	return &Executor{
		opts:   opts,
		queues: make(map[int64]*queue),
	}
}

// Submit appends fn to the queue of key. Items of one key run in submission order.
func (e *Executor) Submit(key int64, fn func()) error {
	if fn == nil {
		return errors.New("serial: nil job")
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if q, ok := e.queues[key]; ok {
		if len(q.jobs) >= e.opts.MaxPending {
			e.mu.Unlock()
			return fmt.Errorf("%w: key %d", ErrBacklog, key)
		}
		q.jobs = append(q.jobs, fn)
		e.mu.Unlock()
		return nil
	}
	q := &queue{jobs: []func(){fn}}
	e.queues[key] = q
	e.wg.Add(1)
	e.mu.Unlock()

	go e.drain(key, q)
	return nil
}

// Pending reports how many keys currently have a worker.
func (e *Executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queues)
}

// Close rejects new work and waits for queued items to finish.
func (e *Executor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Executor) drain(key int64, q *queue) {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		if len(q.jobs) == 0 {
			delete(e.queues, key)
			e.mu.Unlock()
			return
		}
		fn := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		e.mu.Unlock()

		run(key, fn)
	}
}

func run(key int64, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(context.Background(), logger.ComponentSerial, "job.panic",
				slog.Int64("user_id", key),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}
