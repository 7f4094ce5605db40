package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/core/logger"
)

var (
	// ErrClosed is returned for writes submitted after Close.
	ErrClosed = errors.New("storage: writer closed")
	// ErrQueueFull means the write was dropped.
	ErrQueueFull = errors.New("storage: queue full")
)

// AsyncOptions sizes the write pool.
type AsyncOptions struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single write.
	Timeout time.Duration
}

type write struct {
	ctx  context.Context
	kind string
	run  func(ctx context.Context) error
}

// Async hands writes to a bounded worker pool. Submissions return once queued;
// failures are logged and never retried.
type Async struct {
	next Store
	opts AsyncOptions

	mu     sync.RWMutex
	closed bool
	jobs   chan write
	wg     sync.WaitGroup
	once   sync.Once
	errs   atomic.Uint64
}

var _ Store = (*Async)(nil)

// NewAsync starts the workers.
func NewAsync(next Store, opts AsyncOptions) *Async {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	a := &Async{next: next, opts: opts, jobs: make(chan write, opts.QueueSize)}
	a.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go a.worker()
	}
	return a
}

func (a *Async) SubmitOrder(ctx context.Context, o record.Order) error {
	return a.enqueue(ctx, "order", func(ctx context.Context) error { return a.next.SubmitOrder(ctx, o) })
}

func (a *Async) SubmitReservation(ctx context.Context, r record.Reservation) error {
	return a.enqueue(ctx, "reservation", func(ctx context.Context) error { return a.next.SubmitReservation(ctx, r) })
}

func (a *Async) SubmitFeedback(ctx context.Context, f record.Feedback) error {
	return a.enqueue(ctx, "feedback", func(ctx context.Context) error { return a.next.SubmitFeedback(ctx, f) })
}

func (a *Async) LogMessage(ctx context.Context, m record.Message) error {
	return a.enqueue(ctx, "message", func(ctx context.Context) error { return a.next.LogMessage(ctx, m) })
}

// Failures returns the number of writes that failed.
func (a *Async) Failures() uint64 { return a.errs.Load() }

// Close stops accepting writes and waits for the queued ones.
func (a *Async) Close() {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.jobs)
		a.mu.Unlock()
		a.wg.Wait()
	})
}

func (a *Async) enqueue(ctx context.Context, kind string, run func(ctx context.Context) error) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.jobs <- write{ctx: context.WithoutCancel(ctx), kind: kind, run: run}:
		return nil
	default:
		logger.Warn(ctx, logger.ComponentStorage, "storage.drop",
			slog.String("kind", kind),
			slog.Int("queue_depth", len(a.jobs)),
		)
		return ErrQueueFull
	}
}

func (a *Async) worker() {
	defer a.wg.Done()
	for w := range a.jobs {
		a.handle(w)
	}
}

func (a *Async) handle(w write) {
	ctx, cancel := context.WithTimeout(w.ctx, a.opts.Timeout)
	defer cancel()

	start := time.Now()
	err := w.run(ctx)
	if err != nil {
		a.errs.Add(1)
		logger.Error(w.ctx, logger.ComponentStorage, "storage.write",
			append(logger.ErrAttrs(err, "DB_WRITE"),
				slog.String("kind", w.kind),
				slog.Duration("took", logger.Took(start)),
			)...,
		)
		return
	}
	logger.Debug(w.ctx, logger.ComponentStorage, "storage.write",
		slog.String("status", "ok"),
		slog.String("kind", w.kind),
		slog.Duration("took", logger.Took(start)),
	)
}
