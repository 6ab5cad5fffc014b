package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/notify"
)

type fakeLoader struct {
	failTx map[string]error
}

func (l *fakeLoader) LoadTransaction(_ context.Context, _ string, id string) (TransactionRow, error) {
	if err := l.failTx[id]; err != nil {
		return TransactionRow{}, err
	}
	return TransactionRow{ID: id}, nil
}

func (l *fakeLoader) LoadBudgetMonth(_ context.Context, _ string, month core.MonthKey) ([]budget.View, error) {
	return []budget.View{{Month: month.String()}}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	writes []string
	fail   error
}

func (s *recordingSink) AppendTransaction(_ context.Context, _ string, row TransactionRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.writes = append(s.writes, "tx:"+row.ID)
	return nil
}

func (s *recordingSink) WriteBudgetMonth(_ context.Context, _ string, month core.MonthKey, _ []budget.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.writes = append(s.writes, "budget:"+month.String())
	return nil
}

func (s *recordingSink) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

var march = core.MonthKey{Year: 2025, Month: time.March}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FlushInterval != 30*time.Second {
		t.Errorf("expected FlushInterval 30s, got %v", cfg.FlushInterval)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", cfg.MaxRetries)
	}

	q := NewQueue(&fakeLoader{}, nil, Config{})
	if q.config != DefaultConfig() {
		t.Errorf("zero config should fall back to defaults, got %+v", q.config)
	}
}

func TestQueue_FlushInOrder(t *testing.T) {
	sink := &recordingSink{}
	q := NewQueue(&fakeLoader{}, sink, DefaultConfig())

	q.Enqueue(TransactionOp("u", "t1"))
	q.Enqueue(BudgetMonthOp("u", march))
	q.Enqueue(TransactionOp("u", "t2"))

	n, err := q.Flush(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || q.Pending() != 0 {
		t.Fatalf("expected 3 written and empty queue, got %d / %d", n, q.Pending())
	}
	want := []string{"tx:t1", "budget:03-2025", "tx:t2"}
	if !equal(sink.got(), want) {
		t.Fatalf("got %v, want %v", sink.got(), want)
	}

	if n, err := q.Flush(context.Background()); n != 0 || err != nil {
		t.Fatalf("empty flush: %d, %v", n, err)
	}
}

func TestQueue_CoalescesBudgetMonths(t *testing.T) {
	sink := &recordingSink{}
	q := NewQueue(&fakeLoader{}, sink, DefaultConfig())

	q.Enqueue(BudgetMonthOp("u", march))
	q.Enqueue(BudgetMonthOp("u", march))
	q.Enqueue(BudgetMonthOp("other", march))
	q.Enqueue(BudgetMonthOp("u", march.Next()))
	q.Enqueue(TransactionOp("u", "t1"))
	q.Enqueue(TransactionOp("u", "t1"))

	if q.Pending() != 5 {
		t.Fatalf("expected 5 pending, got %d", q.Pending())
	}
	if _, err := q.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	q.Enqueue(BudgetMonthOp("u", march))
	if q.Pending() != 1 {
		t.Fatalf("flushed month must be queueable again, got %d pending", q.Pending())
	}
}

func TestQueue_RetriesThenDrops(t *testing.T) {
	boom := errors.New("sheets unavailable")
	sink := &recordingSink{}
	loader := &fakeLoader{failTx: map[string]error{"bad": boom}}
	q := NewQueue(loader, sink, Config{FlushInterval: time.Hour, MaxRetries: 2})

	q.Enqueue(TransactionOp("u", "bad"))
	q.Enqueue(TransactionOp("u", "good"))

	n, err := q.Flush(context.Background())
	if n != 1 || !errors.Is(err, boom) {
		t.Fatalf("first flush: n=%d err=%v", n, err)
	}
	if q.Pending() != 1 {
		t.Fatalf("failed op should be retained, pending=%d", q.Pending())
	}

	q.Enqueue(TransactionOp("u", "later"))
	n, err = q.Flush(context.Background())
	if n != 1 || !errors.Is(err, boom) {
		t.Fatalf("second flush: n=%d err=%v", n, err)
	}
	if q.Pending() != 0 {
		t.Fatalf("op should be dropped after max retries, pending=%d", q.Pending())
	}
	want := []string{"tx:good", "tx:later"}
	if !equal(sink.got(), want) {
		t.Fatalf("got %v, want %v", sink.got(), want)
	}
}

func TestQueue_RetryKeepsOrderAheadOfNewOps(t *testing.T) {
	sink := &recordingSink{fail: errors.New("offline")}
	q := NewQueue(&fakeLoader{}, sink, Config{MaxRetries: 5})

	q.Enqueue(TransactionOp("u", "a"))
	q.Enqueue(TransactionOp("u", "b"))
	_, _ = q.Flush(context.Background())

	q.Enqueue(TransactionOp("u", "c"))
	sink.mu.Lock()
	sink.fail = nil
	sink.mu.Unlock()

	n, err := q.Flush(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("recovery flush: n=%d err=%v", n, err)
	}
	want := []string{"tx:a", "tx:b", "tx:c"}
	if !equal(sink.got(), want) {
		t.Fatalf("got %v, want %v", sink.got(), want)
	}
}

func TestQueue_HandleEvent(t *testing.T) {
	q := NewQueue(&fakeLoader{}, &recordingSink{}, DefaultConfig())
	n := notify.New()
	unsubscribe := n.Subscribe(q.HandleEvent, notify.KindTransaction, notify.KindBudget)
	defer unsubscribe()

	ctx := context.Background()
	n.Publish(ctx, notify.Event{Kind: notify.KindTransaction, UserID: "u", EntityID: "t1", Month: march})
	n.Publish(ctx, notify.Event{Kind: notify.KindBudget, UserID: "u", EntityID: "b1", Month: march})
	n.Publish(ctx, notify.Event{Kind: notify.KindBudget, UserID: "u", EntityID: "b2"})
	n.Publish(ctx, notify.Event{Kind: notify.KindAccount, UserID: "u", EntityID: "a1"})

	if q.Pending() != 2 {
		t.Fatalf("expected transaction + one coalesced budget month, got %d", q.Pending())
	}
}

func TestQueue_InitTwiceAndDispose(t *testing.T) {
	sink := &recordingSink{}
	q := NewQueue(&fakeLoader{}, sink, Config{FlushInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !q.IsRunning() {
		t.Fatal("queue should be running after Init")
	}
	if err := q.Init(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	q.Enqueue(TransactionOp("u", "t1"))
	if err := q.Dispose(context.Background()); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if q.IsRunning() || q.Pending() != 0 {
		t.Fatalf("dispose should stop and drain: running=%v pending=%d", q.IsRunning(), q.Pending())
	}
	if !equal(sink.got(), []string{"tx:t1"}) {
		t.Fatalf("final flush missing, got %v", sink.got())
	}

	if err := q.Init(ctx); err != nil {
		t.Fatalf("re-init after dispose: %v", err)
	}
	_ = q.Dispose(context.Background())
}

func TestQueue_BackgroundLoopFlushes(t *testing.T) {
	sink := &recordingSink{}
	q := NewQueue(&fakeLoader{}, sink, Config{FlushInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := q.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer q.Dispose(context.Background())

	q.Enqueue(TransactionOp("u", "t1"))
	deadline := time.Now().Add(2 * time.Second)
	for q.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if q.Pending() != 0 {
		t.Fatal("background loop did not flush")
	}
}
