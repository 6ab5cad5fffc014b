package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"bilancio/internal/core"
	"bilancio/internal/notify"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{70, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"consumer channel", errors.New("message channel closed"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)

		client.recordSuccess()

		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("failure count should be reset after success")
		}
		if atomic.LoadInt32(&client.state) != StateClosed {
			t.Error("state should be closed after success")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		atomic.StoreInt32(&client.state, StateClosed)

		for i := 0; i < maxFailures-1; i++ {
			client.recordFailure()
		}
		if client.isCircuitOpen() {
			t.Fatal("circuit should stay closed below the threshold")
		}
		client.recordFailure()
		if !client.isCircuitOpen() {
			t.Error("circuit should be open after max failures")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("circuit should let a probe through after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open after timeout")
		}
	})

	t.Run("failed probe reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		atomic.StoreInt32(&client.state, StateHalfOpen)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failure in half-open should reopen the circuit")
		}
	})
}

func TestClient_PublishChange_Guards(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}
	e := notify.Event{Kind: notify.KindTransaction, UserID: "u1"}

	t.Run("fails fast when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishChange(context.Background(), e)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateClosed)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishChange(ctx, e); err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestChangeMessage_FromEvent(t *testing.T) {
	at := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	e := notify.Event{
		Kind:     notify.KindBudget,
		UserID:   "u1",
		EntityID: "b1",
		Month:    core.MonthKey{Year: 2025, Month: time.March},
		At:       at,
	}
	msg := NewChangeMessage(e)
	if msg.Month != "03-2025" || !msg.Timestamp.Equal(at) {
		t.Fatalf("unexpected message: %+v", msg)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := ChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("ChangeMessageFromJSON() error = %v", err)
	}
	back, err := parsed.Event()
	if err != nil {
		t.Fatalf("Event() error = %v", err)
	}
	if back.Kind != e.Kind || back.UserID != e.UserID || back.EntityID != e.EntityID || back.Month != e.Month || !back.At.Equal(at) {
		t.Fatalf("round trip changed the event: %+v", back)
	}
}

func TestNewChangeMessage_DefaultsTimestamp(t *testing.T) {
	msg := NewChangeMessage(notify.Event{Kind: notify.KindAccount, UserID: "u1"})
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Second {
		t.Fatalf("timestamp should be recent, got %v", msg.Timestamp)
	}
	if msg.Month != "" {
		t.Fatalf("month should be omitted, got %q", msg.Month)
	}
}

func TestChangeMessageFromJSON_Invalid(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"kind":"expense","user_id":"u1"}`,
		`{"kind":"budget","user_id":" "}`,
		`{"kind":"budget","user_id":"u1","month":"2025-03"}`,
	} {
		if _, err := ChangeMessageFromJSON([]byte(body)); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("%s: expected ErrInvalidMessage, got %v", body, err)
		}
	}
}

type fakeAck struct {
	acked, nacked, requeued int
}

func (f *fakeAck) Ack(uint64, bool) error { f.acked++; return nil }

func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	if requeue {
		f.requeued++
	}
	return nil
}

func (f *fakeAck) Reject(uint64, bool) error { return nil }

func TestHandleDelivery(t *testing.T) {
	client := &Client{queueName: "q"}
	valid := []byte(`{"kind":"transaction","user_id":"u1","month":"03-2025"}`)

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAck{}
		var got *ChangeMessage
		client.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: valid},
			func(_ context.Context, m *ChangeMessage) error { got = m; return nil })
		if ack.acked != 1 || ack.nacked != 0 {
			t.Fatalf("expected ack, got %+v", ack)
		}
		if got == nil || got.UserID != "u1" {
			t.Fatalf("handler not called with message: %+v", got)
		}
	})

	t.Run("reject malformed without requeue", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		client.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: []byte(`{`)},
			func(context.Context, *ChangeMessage) error { called = true; return nil })
		if called || ack.nacked != 1 || ack.requeued != 0 {
			t.Fatalf("expected reject, got %+v called=%v", ack, called)
		}
	})

	t.Run("requeue on handler error", func(t *testing.T) {
		ack := &fakeAck{}
		client.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: valid},
			func(context.Context, *ChangeMessage) error { return errors.New("sheet unavailable") })
		if ack.requeued != 1 || ack.acked != 0 {
			t.Fatalf("expected requeue, got %+v", ack)
		}
	})
}

type fakePublisher struct {
	events []notify.Event
	err    error
}

func (f *fakePublisher) PublishChange(_ context.Context, e notify.Event) error {
	f.events = append(f.events, e)
	return f.err
}

func TestBridge_SwallowsErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	b := NewBridge(pub)
	b.Publish(context.Background(), notify.Event{Kind: notify.KindTransaction, UserID: "u1"})
	if len(pub.events) != 1 {
		t.Fatalf("expected the event to be forwarded, got %d", len(pub.events))
	}
}

func TestRepublish(t *testing.T) {
	n := notify.New()
	var got []notify.Event
	n.Subscribe(func(_ context.Context, e notify.Event) { got = append(got, e) })

	h := Republish(n)
	msg := &ChangeMessage{Kind: notify.KindBudget, UserID: "u1", Month: "04-2025"}
	if err := h(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Month != (core.MonthKey{Year: 2025, Month: time.April}) {
		t.Fatalf("unexpected events: %+v", got)
	}

	bad := &ChangeMessage{Kind: "nope", UserID: "u1"}
	if err := h(context.Background(), bad); err == nil || !strings.Contains(err.Error(), "unknown kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}
