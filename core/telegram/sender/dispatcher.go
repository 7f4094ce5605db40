// Package sender delivers staff notifications off the update goroutine,
// retrying flood waits and transient failures per notification kind.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/netutil"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("sender: dispatcher closed")

// Options tunes a Dispatcher. Zero fields take the defaults noted.
type Options struct {
	QueueSize int // 128
	Workers   int // 2
	// Attempts is the total number of tries per notification (3).
	Attempts int
	// Backoff is the first retry delay (1s), doubled per retry.
	Backoff time.Duration
	// MaxWait caps a single wait, including Telegram's retry_after (30s).
	MaxWait time.Duration
	// Deadline bounds one notification end to end (1m).
	Deadline time.Duration
}

func (o *Options) defaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 128
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 30 * time.Second
	}
	if o.Deadline <= 0 {
		o.Deadline = time.Minute
	}
}

type job struct {
	ctx  context.Context
	kind string
	send func(context.Context) error
}

// Dispatcher runs notification sends on a small worker pool.
type Dispatcher struct {
	opts  Options
	jobs  chan job
	sleep func(context.Context, time.Duration) bool

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	errs     atomic.Uint64
	failMu   sync.Mutex
	failures map[string]uint64
}

// New starts the workers.
func New(opts Options) *Dispatcher {
	opts.defaults()
	d := &Dispatcher{
		opts:     opts,
		jobs:     make(chan job, opts.QueueSize),
		sleep:    sleepCtx,
		failures: make(map[string]uint64),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules send for the notification kind. When the queue is full
// the send runs on the caller's goroutine and its error is returned.
// send must be safe to call again after a failed attempt.
func (d *Dispatcher) Enqueue(ctx context.Context, kind string, send func(context.Context) error) error {
	if send == nil {
		return errors.New("sender: nil send func")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	j := job{ctx: context.WithoutCancel(ctx), kind: kind, send: send}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrClosed
	}
	select {
	case d.jobs <- j:
		d.mu.RUnlock()
		return nil
	default:
	}
	d.mu.RUnlock()

	logger.Warn(ctx, logger.ComponentSender, "notify.queue_full",
		slog.String("kind", kind),
		slog.Int("queue_depth", len(d.jobs)),
	)
	return d.deliver(j)
}

// Len reports how many notifications wait in the queue.
func (d *Dispatcher) Len() int {
	return len(d.jobs)
}

// ErrorCount returns the number of notifications given up on.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Failures returns a copy of the given-up counts keyed by kind and error
// class, e.g. "order/blocked".
func (d *Dispatcher) Failures() map[string]uint64 {
	d.failMu.Lock()
	defer d.failMu.Unlock()
	out := make(map[string]uint64, len(d.failures))
	for k, v := range d.failures {
		out[k] = v
	}
	return out
}

// Close stops accepting work and waits for queued notifications.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		_ = d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) error {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.Deadline)
	defer cancel()

	started := time.Now()
	var (
		err   error
		class netutil.Class
	)
	attempt := 1
	for ; ; attempt++ {
		err = j.send(ctx)
		if err == nil {
			logger.Debug(ctx, logger.ComponentSender, "notify.sent",
				slog.String("status", "ok"),
				slog.String("kind", j.kind),
				slog.Int("attempt", attempt),
				slog.Duration("took", logger.Took(started)),
			)
			return nil
		}
		class = netutil.Classify(err)
		if !class.Retryable() || attempt >= d.opts.Attempts {
			break
		}
		wait := d.wait(attempt, err)
		logger.Warn(ctx, logger.ComponentSender, "notify.retry",
			slog.String("status", "retry"),
			slog.String("kind", j.kind),
			slog.String("error_kind", string(class)),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait),
		)
		if !d.sleep(ctx, wait) {
			err = ctx.Err()
			class = netutil.Classify(err)
			break
		}
	}

	d.errs.Add(1)
	d.failMu.Lock()
	d.failures[j.kind+"/"+string(class)]++
	d.failMu.Unlock()

	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("kind", j.kind),
		slog.String("error_kind", string(class)),
		slog.Int("attempts", attempt),
		slog.Duration("took", logger.Took(started)),
		slog.String("err", logger.Clip(netutil.Redact(err), 256)),
	}
	if code := netutil.StatusCode(err); code != 0 {
		attrs = append(attrs, slog.Int("http_code", code))
	}
	logger.Error(ctx, logger.ComponentSender, "notify.fail", attrs...)
	return err
}

// wait honours Telegram's retry_after and otherwise backs off exponentially.
func (d *Dispatcher) wait(attempt int, err error) time.Duration {
	w := netutil.RetryAfter(err)
	if w == 0 {
		w = d.opts.Backoff << (attempt - 1)
	}
	if w > d.opts.MaxWait {
		w = d.opts.MaxWait
	}
	return w
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
