package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/notesbot/core/logger"
	"github.com/m3rciful/notesbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job's lane has no free slot.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the total number of pending jobs, split evenly across lanes.
	QueueSize int
	// Workers is the number of lanes, each served by one goroutine.
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher runs outbound Telegram calls off the update goroutine. Jobs for
// one chat always land on the same lane, so a chat sees its messages in the
// order they were queued.
type Dispatcher struct {
	opts  Options
	lanes []chan job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	failed atomic.Uint64
}

// NewDispatcher starts the lanes. Zero options fall back to defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	perLane := max(1, (opts.QueueSize+opts.Workers-1)/opts.Workers)

	d := &Dispatcher{opts: opts, lanes: make([]chan job, opts.Workers)}
	d.wg.Add(opts.Workers)
	for i := range d.lanes {
		d.lanes[i] = make(chan job, perLane)
		go d.serve(d.lanes[i])
	}
	return d
}

// Enqueue schedules run without blocking. run may be called more than once
// when retries are enabled.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.lanes[d.laneFor(ctx)] <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) laneFor(ctx context.Context) int {
	return int(uint64(logger.ChatIDFrom(ctx)) % uint64(len(d.lanes)))
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close rejects new jobs, drains the queued ones and waits for the lanes.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, lane := range d.lanes {
			close(lane)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) serve(lane <-chan job) {
	defer d.wg.Done()
	for j := range lane {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()
	start := time.Now()

	var err error
	attempt := 0
	for {
		attempt++
		if err = j.run(); err == nil {
			break
		}
		wait, retry := d.backoff(err, attempt)
		if !retry || attempt > d.opts.MaxRetries {
			break
		}
		logger.LogEvent(j.ctx, logger.TG, slog.LevelDebug, "send.retry",
			jobAttrs(j, slog.Int("attempt", attempt), slog.Duration("delay", wait))...)
		if !sleep(ctx, wait) {
			break
		}
	}

	elapsed := slog.Duration("elapsed", time.Since(start))
	if err == nil {
		level := slog.LevelDebug
		if attempt > 1 {
			level = slog.LevelInfo
		}
		logger.LogEvent(j.ctx, logger.TG, level, "send.success", jobAttrs(j, slog.Int("attempts", attempt), elapsed)...)
		return
	}
	d.failed.Add(1)
	logger.LogEvent(j.ctx, logger.TG, slog.LevelError, "send.fail", jobAttrs(j,
		slog.Int("attempts", attempt),
		elapsed,
		slog.String("err", redact(err)),
		slog.String("err_kind", errorKind(err)),
	)...)
}

// backoff decides whether err is worth another attempt and how long to wait.
// Flood control errors wait as long as Telegram asks.
func (d *Dispatcher) backoff(err error, attempt int) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return max(time.Duration(flood.RetryAfter)*time.Second, d.opts.RetryBackoff), true
	}
	if netutil.ShouldRetry(err) {
		return d.opts.RetryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

// sleep waits for d and reports false if ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func jobAttrs(j job, extra ...slog.Attr) []slog.Attr {
	return append([]slog.Attr{
		slog.String("component", "tg.sender"),
		slog.String("action", j.action),
		slog.String("endpoint", j.endpoint),
	}, extra...)
}
