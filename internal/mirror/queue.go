package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bilancio/internal/metrics"
	"bilancio/internal/notify"
)

var ErrAlreadyRunning = errors.New("mirror queue is already running")

// Config holds configuration for the queue.
type Config struct {
	// FlushInterval is how often the background loop flushes (default: 30s)
	FlushInterval time.Duration

	// MaxRetries is how many failed flush attempts an op gets before it is dropped (default: 3)
	MaxRetries int
}

func DefaultConfig() Config {
	return Config{
		FlushInterval: 30 * time.Second,
		MaxRetries:    3,
	}
}

type entry struct {
	op       Op
	attempts int
}

// Queue is the offline sync queue. It is constructed once at startup and
// passed to whatever needs it; Init starts the background flush loop and
// Dispose stops it after a last flush.
type Queue struct {
	loader Loader
	sink   Sink
	config Config

	mu        sync.Mutex
	pending   []*entry
	coalesced map[string]*entry

	// flushMu serializes flushes from the loop and from callers.
	flushMu sync.Mutex

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewQueue(loader Loader, sink Sink, config Config) *Queue {
	if sink == nil {
		sink = NopSink{}
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultConfig().FlushInterval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultConfig().MaxRetries
	}
	return &Queue{
		loader:    loader,
		sink:      sink,
		config:    config,
		coalesced: make(map[string]*entry),
	}
}

// Init starts the background flush loop. Returns an error if already running.
func (q *Queue) Init(ctx context.Context) error {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return ErrAlreadyRunning
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.doneCh = make(chan struct{})
	q.mu.Unlock()

	go q.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror queue started", "flush_interval", q.config.FlushInterval)
	return nil
}

// Dispose stops the loop, waits for it and performs a final flush. Calling it
// on a queue that is not running only flushes.
func (q *Queue) Dispose(ctx context.Context) error {
	q.mu.Lock()
	running := q.running
	q.mu.Unlock()

	if running {
		close(q.stopCh)
		select {
		case <-q.doneCh:
		case <-ctx.Done():
			slog.WarnContext(ctx, "Mirror queue stop timed out")
			return ctx.Err()
		}
		q.mu.Lock()
		q.running = false
		q.mu.Unlock()
	}

	n, err := q.Flush(ctx)
	slog.InfoContext(ctx, "Mirror queue stopped", "flushed", n, "pending", q.Pending())
	return err
}

func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Pending returns the number of queued ops.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Enqueue adds op to the tail of the queue. A budget month already waiting
// for the same user is not queued twice.
func (q *Queue) Enqueue(op Op) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if key := op.coalesceKey(); key != "" {
		if _, ok := q.coalesced[key]; ok {
			return
		}
		e := &entry{op: op}
		q.coalesced[key] = e
		q.pending = append(q.pending, e)
	} else {
		q.pending = append(q.pending, &entry{op: op})
	}
	metrics.MirrorQueueDepth.Set(float64(len(q.pending)))
}

// HandleEvent maps change notifications to ops. It has the notify.Handler
// signature so the queue can subscribe to a notifier directly.
func (q *Queue) HandleEvent(_ context.Context, e notify.Event) {
	switch e.Kind {
	case notify.KindTransaction:
		if e.EntityID != "" {
			q.Enqueue(TransactionOp(e.UserID, e.EntityID))
		}
		if !e.Month.IsZero() {
			q.Enqueue(BudgetMonthOp(e.UserID, e.Month))
		}
	case notify.KindBudget:
		if !e.Month.IsZero() {
			q.Enqueue(BudgetMonthOp(e.UserID, e.Month))
		}
	}
}

// Flush drains the ops queued at call time in FIFO order and returns how many
// were written. Failed ops go back to the head of the queue, keeping their
// order, until they have failed MaxRetries times; then they are dropped. The
// returned error joins every failure of this flush.
func (q *Queue) Flush(ctx context.Context) (int, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	for _, e := range batch {
		if key := e.op.coalesceKey(); key != "" && q.coalesced[key] == e {
			delete(q.coalesced, key)
		}
	}
	q.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	var (
		done  int
		retry []*entry
		errs  []error
	)
	for i, e := range batch {
		if err := ctx.Err(); err != nil {
			retry = append(retry, batch[i:]...)
			errs = append(errs, err)
			break
		}

		err := q.process(ctx, e.op)
		if err == nil {
			done++
			continue
		}

		e.attempts++
		metrics.MirrorFlushFailures.Inc()
		errs = append(errs, fmt.Errorf("%s: %w", e.op, err))
		if e.attempts >= q.config.MaxRetries {
			metrics.MirrorDropped.Inc()
			slog.ErrorContext(ctx, "Mirror op dropped after max retries",
				"op", e.op.String(), "attempts", e.attempts, "error", err)
			continue
		}
		slog.WarnContext(ctx, "Mirror op failed, will retry",
			"op", e.op.String(), "attempt", e.attempts, "error", err)
		retry = append(retry, e)
	}

	q.requeue(retry)

	if done > 0 {
		slog.InfoContext(ctx, "Mirror flush completed", "written", done, "failed", len(errs))
	}
	return done, errors.Join(errs...)
}

// requeue puts failed entries back ahead of anything enqueued during the
// flush. A failed budget month is dropped if a fresh request for the same
// month arrived meanwhile.
func (q *Queue) requeue(retry []*entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	keep := make([]*entry, 0, len(retry))
	for _, e := range retry {
		if key := e.op.coalesceKey(); key != "" {
			if _, ok := q.coalesced[key]; ok {
				continue
			}
			q.coalesced[key] = e
		}
		keep = append(keep, e)
	}
	q.pending = append(keep, q.pending...)
	metrics.MirrorQueueDepth.Set(float64(len(q.pending)))
}

func (q *Queue) process(ctx context.Context, op Op) error {
	switch op.Kind {
	case OpTransaction:
		row, err := q.loader.LoadTransaction(ctx, op.UserID, op.TransactionID)
		if err != nil {
			return err
		}
		return q.sink.AppendTransaction(ctx, op.UserID, row)
	case OpBudgetMonth:
		views, err := q.loader.LoadBudgetMonth(ctx, op.UserID, op.Month)
		if err != nil {
			return err
		}
		return q.sink.WriteBudgetMonth(ctx, op.UserID, op.Month, views)
	default:
		return fmt.Errorf("unknown operation: %s", op.Kind)
	}
}

func (q *Queue) runLoop(ctx context.Context) {
	defer close(q.doneCh)

	ticker := time.NewTicker(q.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.Flush(ctx); err != nil {
				slog.WarnContext(ctx, "Mirror flush had failures", "error", err, "pending", q.Pending())
			}
		}
	}
}
