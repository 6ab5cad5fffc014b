package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/balance"
	"bilancio/internal/budget"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/metrics"
	"bilancio/internal/notify"
	"bilancio/internal/recurrence"
	"bilancio/internal/store"
	"bilancio/internal/trend"
)

// Service answers read queries over a store. Full snapshots are cached and
// the cache is emptied on every change event.
type Service struct {
	store store.Store
	cache cache.Cache[*Snapshot]
	loc   *time.Location
	now   func() time.Time

	// gen counts invalidations. A snapshot is cached only if no invalidation
	// happened while it was being built.
	mu  sync.Mutex
	gen uint64
}

// NewService builds a Service. A nil cache disables caching and a nil loc
// means time.Local.
func NewService(st store.Store, c cache.Cache[*Snapshot], loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: st, cache: c, loc: loc, now: time.Now}
}

// Location is the zone calendar boundaries are computed in.
func (s *Service) Location() *time.Location { return s.loc }

// Subscribe purges the cache on every event published by n.
func (s *Service) Subscribe(n *notify.Notifier) (unsubscribe func()) {
	return n.Subscribe(s.Invalidate)
}

// Invalidate drops every cached snapshot. It is a notify.Handler.
func (s *Service) Invalidate(ctx context.Context, e notify.Event) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.gen++
	n := s.cache.Purge()
	s.mu.Unlock()
	if n > 0 {
		slog.DebugContext(ctx, "Dashboard cache purged", "component", "dashboard", "kind", e.Kind, "user_id", e.UserID, "entries", n)
	}
}

type dataset struct {
	accounts  []core.Account
	cats      []core.Category
	txs       []core.Transaction
	budgets   []core.CategoryBudget
	adjs      []core.MonthlyBudgetAdjustment
	recurring []core.RecurringTransaction
}

func (s *Service) load(ctx context.Context, userID string, month core.MonthKey) (dataset, error) {
	var d dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.accounts, err = s.store.ListAccounts(gctx, userID)
		return wrap("accounts", err)
	})
	g.Go(func() (err error) {
		d.cats, err = s.store.ListCategories(gctx, userID)
		return wrap("categories", err)
	})
	g.Go(func() (err error) {
		d.txs, err = s.store.ListTransactions(gctx, userID, 0)
		return wrap("transactions", err)
	})
	g.Go(func() (err error) {
		d.budgets, err = s.store.ListCategoryBudgets(gctx, userID)
		return wrap("budgets", err)
	})
	g.Go(func() (err error) {
		d.adjs, err = s.store.ListMonthlyAdjustments(gctx, userID, month)
		return wrap("adjustments", err)
	})
	g.Go(func() (err error) {
		d.recurring, err = s.store.ListRecurring(gctx, userID)
		return wrap("recurring", err)
	})
	if err := g.Wait(); err != nil {
		return dataset{}, err
	}
	return d, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// Build returns the snapshot for userID. The returned value may be shared
// with other callers and must not be modified.
//
// Cached snapshots are keyed by the day of opts.Now, so a later request on the
// same day gets the snapshot as it was built: GeneratedAt is the build time and
// Upcoming is projected from it. Any change notification forces a rebuild.
func (s *Service) Build(ctx context.Context, userID string, opts Options) (*Snapshot, error) {
	opts = opts.withDefaults(s.now(), s.loc)
	if err := opts.validate(); err != nil {
		return nil, err
	}

	key := opts.cacheKey(userID)
	if s.cache != nil {
		if snap, ok := s.cache.Get(key); ok {
			metrics.SnapshotCacheHits.Inc()
			return snap, nil
		}
	}

	gen := s.generation()
	start := time.Now()
	d, err := s.load(ctx, userID, opts.Month)
	if err != nil {
		return nil, err
	}
	snap, err := s.assemble(userID, opts, d)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.SnapshotBuildDuration.Observe(elapsed.Seconds())
	slog.DebugContext(ctx, "Dashboard snapshot built",
		"component", "dashboard",
		"user_id", userID,
		"month", opts.Month.String(),
		"transactions", len(d.txs),
		"duration_ms", elapsed.Milliseconds())

	s.remember(key, snap, gen)
	return snap, nil
}

func (s *Service) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// remember caches snap unless the cache was invalidated after gen was read.
func (s *Service) remember(key string, snap *Snapshot, gen uint64) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.cache.Set(key, snap)
}

func (s *Service) assemble(userID string, opts Options, d dataset) (*Snapshot, error) {
	snap := &Snapshot{
		UserID:      userID,
		Month:       opts.Month.String(),
		GeneratedAt: opts.Now,
		Granularity: opts.Granularity,
	}

	var err error
	if snap.Accounts, snap.NetWorth, err = accountBalances(d.accounts, d.txs); err != nil {
		return nil, err
	}
	if snap.Budgets, err = budget.Join(d.budgets, d.adjs, d.cats, d.txs, opts.Month, s.loc); err != nil {
		return nil, fmt.Errorf("budgets: %w", err)
	}
	snap.BudgetSummary = budget.Summarize(snap.Budgets)
	if snap.Trend, err = trend.BucketByPeriod(d.txs, opts.Granularity, opts.Window, opts.Now); err != nil {
		return nil, fmt.Errorf("trend: %w", err)
	}
	if snap.Comparison, err = trend.MonthlyComparison(d.txs, opts.Month, s.loc); err != nil {
		return nil, fmt.Errorf("comparison: %w", err)
	}
	if snap.TopCategories, err = trend.TopCategories(d.txs, d.cats, opts.Month, opts.TopN, s.loc); err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}

	horizon := opts.Now.AddDate(0, 0, opts.UpcomingDays)
	occ, err := recurrence.UpcomingAll(d.recurring, opts.Now, horizon)
	if err != nil {
		return nil, fmt.Errorf("upcoming: %w", err)
	}
	snap.Upcoming = upcomingEntries(occ, d.cats)

	start, end, err := core.AccountingPeriod(opts.Now, opts.CutoffDay)
	if err != nil {
		return nil, err
	}
	snap.Period = Period{CutoffDay: opts.CutoffDay, Start: start, End: end}
	return snap, nil
}

func accountBalances(accounts []core.Account, txs []core.Transaction) ([]AccountBalance, int64, error) {
	balances, err := balance.ComputeAll(accounts, txs)
	if err != nil {
		return nil, 0, fmt.Errorf("balances: %w", err)
	}
	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountBalance{
			AccountID: a.ID,
			Name:      a.Name,
			Type:      a.Type,
			Color:     a.Color,
			Balance:   balances[a.ID],
		})
	}
	return out, balance.Total(balances), nil
}

func upcomingEntries(occ []recurrence.Occurrence, cats []core.Category) []UpcomingEntry {
	idx := core.IndexCategories(cats)
	out := make([]UpcomingEntry, 0, len(occ))
	for _, o := range occ {
		out = append(out, UpcomingEntry{
			RecurringID: o.RecurringID,
			Date:        o.Date,
			Type:        o.Type,
			Amount:      o.Amount,
			AccountID:   o.AccountID,
			Category:    idx[o.CategoryID].Name,
			Note:        o.Note,
		})
	}
	return out
}

// Balances returns every account with its current balance and the total.
func (s *Service) Balances(ctx context.Context, userID string) ([]AccountBalance, int64, error) {
	var (
		accounts []core.Account
		txs      []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = s.store.ListAccounts(gctx, userID)
		return wrap("accounts", err)
	})
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, userID, 0)
		return wrap("transactions", err)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return accountBalances(accounts, txs)
}

// Budgets returns the joined budget views for month and their summary.
func (s *Service) Budgets(ctx context.Context, userID string, month core.MonthKey) ([]budget.View, budget.Summary, error) {
	if err := month.Validate(); err != nil {
		return nil, budget.Summary{}, err
	}
	d, err := s.load(ctx, userID, month)
	if err != nil {
		return nil, budget.Summary{}, err
	}
	views, err := budget.Join(d.budgets, d.adjs, d.cats, d.txs, month, s.loc)
	if err != nil {
		return nil, budget.Summary{}, err
	}
	return views, budget.Summarize(views), nil
}

// Trend buckets the user's transactions ending with the period containing now.
// A zero now means the current time.
func (s *Service) Trend(ctx context.Context, userID string, g trend.Granularity, window int, now time.Time) ([]trend.Point, error) {
	if now.IsZero() {
		now = s.now()
	}
	txs, err := s.store.ListTransactions(ctx, userID, 0)
	if err != nil {
		return nil, wrap("transactions", err)
	}
	return trend.BucketByPeriod(txs, g, window, now.In(s.loc))
}

func (s *Service) Comparison(ctx context.Context, userID string, month core.MonthKey) (trend.Comparison, error) {
	txs, err := s.store.ListTransactions(ctx, userID, 0)
	if err != nil {
		return trend.Comparison{}, wrap("transactions", err)
	}
	return trend.MonthlyComparison(txs, month, s.loc)
}

func (s *Service) TopCategories(ctx context.Context, userID string, month core.MonthKey, n int) ([]trend.CategoryEntry, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, userID, 0)
		return wrap("transactions", err)
	})
	g.Go(func() (err error) {
		cats, err = s.store.ListCategories(gctx, userID)
		return wrap("categories", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return trend.TopCategories(txs, cats, month, n, s.loc)
}

// Upcoming projects the next count occurrences of one recurring series.
func (s *Service) Upcoming(ctx context.Context, userID, recurringID string, from time.Time, count int) ([]time.Time, error) {
	def, err := s.store.GetRecurring(ctx, userID, recurringID)
	if err != nil {
		return nil, err
	}
	if from.IsZero() {
		from = s.now().In(s.loc)
	}
	return recurrence.Upcoming(def, from, count)
}
