// Package notify is the push-based change notification mechanism. Writers
// publish an Event after each successful mutation and subscribers recompute
// whatever they derive from the changed collection.
package notify

import (
	"context"
	"sync"
	"time"

	"bilancio/internal/core"
)

type Kind string

const (
	KindTransaction Kind = "transaction"
	KindBudget      Kind = "budget"
	KindRecurring   Kind = "recurring"
	KindAccount     Kind = "account"
	KindCategory    Kind = "category"
)

// Event describes a change to one of a user's collections. Month is set for
// budget adjustments and transactions; EntityID when a single row changed.
type Event struct {
	Kind     Kind
	UserID   string
	EntityID string
	Month    core.MonthKey
	At       time.Time
}

// Publisher accepts change events.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Handler receives events. Handlers run synchronously on the publishing
// goroutine and must not block for long.
type Handler func(ctx context.Context, e Event)

type subscription struct {
	id      uint64
	handler Handler
	kinds   map[Kind]struct{}
}

// Notifier is an in-process observer registry. It is safe for concurrent use.
type Notifier struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	now    func() time.Time
}

func New() *Notifier {
	return &Notifier{now: time.Now}
}

// Subscribe registers h for the given kinds, or for every kind when none are
// given. The returned function unsubscribes; calling it more than once is a no-op.
func (n *Notifier) Subscribe(h Handler, kinds ...Kind) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	sub := subscription{id: n.nextID, handler: h}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	n.subs = append(n.subs, sub)

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(sub.id) })
	}
}

func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, s := range n.subs {
		if s.id == id {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to matching subscribers in subscription order.
func (n *Notifier) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = n.now()
	}

	n.mu.RLock()
	targets := make([]Handler, 0, len(n.subs))
	for _, s := range n.subs {
		if s.kinds != nil {
			if _, ok := s.kinds[e.Kind]; !ok {
				continue
			}
		}
		targets = append(targets, s.handler)
	}
	n.mu.RUnlock()

	for _, h := range targets {
		h(ctx, e)
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
