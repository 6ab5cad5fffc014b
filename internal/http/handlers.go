package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/dashboard"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/trend"
)

const (
	maxWindow       = 120
	maxTopN         = 100
	defaultCount    = 12
	maxCount        = 366
	maxUpcomingDays = 366
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) now() time.Time {
	return time.Now().In(s.deps.Dashboard.Location())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := dashboard.Options{
		Window:    s.deps.Defaults.Window,
		TopN:      s.deps.Defaults.TopN,
		CutoffDay: s.deps.Defaults.CutoffDay,
	}

	var err error
	if q.Get("month") != "" {
		if opts.Month, err = core.ParseMonthKey(q.Get("month")); err != nil {
			errorFor(r.Context(), err).Write(w)
			return
		}
	}
	if g := q.Get("granularity"); g != "" {
		if opts.Granularity, err = trend.ParseGranularity(g); err != nil {
			errorFor(r.Context(), err).Write(w)
			return
		}
	}
	if opts.Window, err = ParseIntParam(q, "window", opts.Window, 0, maxWindow); err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	if opts.TopN, err = ParseIntParam(q, "top", opts.TopN, 0, maxTopN); err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	if opts.CutoffDay, err = ParseIntParam(q, "cutoff", opts.CutoffDay, 0, 28); err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	if opts.UpcomingDays, err = ParseIntParam(q, "upcoming_days", 0, 0, maxUpcomingDays); err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}

	snap, err := s.deps.Dashboard.Build(r.Context(), userFrom(r.Context()), opts)
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(snap).Write(w)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	accounts, total, err := s.deps.Dashboard.Balances(r.Context(), userFrom(r.Context()))
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"accounts":  accounts,
		"net_worth": total,
	}).Write(w)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), "month", s.now())
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	views, summary, err := s.deps.Dashboard.Budgets(r.Context(), userFrom(r.Context()), month)
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"month":   month.String(),
		"budgets": views,
		"summary": summary,
	}).Write(w)
}

type overrideResult struct {
	BudgetID string         `json:"budget_id"`
	Month    string         `json:"month"`
	Outcome  budget.Outcome `json:"outcome"`
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	budgetID := chi.URLParam(r, "budgetID")
	month, err := core.ParseMonthKey(chi.URLParam(r, "month"))
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	amount, err := p.GetAmount("amount", true)
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}

	userID := userFrom(ctx)
	outcome, err := s.deps.Budgets.SetMonthlyOverride(ctx, userID, budgetID, month, amount)
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogOverride(ctx, userID, budgetID, month.String(), amount, string(outcome))
	NewJSONResponse().Body(overrideResult{BudgetID: budgetID, Month: month.String(), Outcome: outcome}).Write(w)
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	budgetID := chi.URLParam(r, "budgetID")
	month, err := core.ParseMonthKey(chi.URLParam(r, "month"))
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	outcome, err := s.deps.Budgets.ClearMonthlyOverride(ctx, userFrom(ctx), budgetID, month)
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	NewJSONResponse().Body(overrideResult{BudgetID: budgetID, Month: month.String(), Outcome: outcome}).Write(w)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g := trend.Monthly
	if v := q.Get("granularity"); v != "" {
		var err error
		if g, err = trend.ParseGranularity(v); err != nil {
			errorFor(r.Context(), err).Write(w)
			return
		}
	}
	window, err := ParseIntParam(q, "window", s.defaultWindow(), 1, maxWindow)
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}

	points, err := s.deps.Dashboard.Trend(r.Context(), userFrom(r.Context()), g, window, time.Time{})
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"granularity": g,
		"points":      points,
	}).Write(w)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), "month", s.now())
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	cmp, err := s.deps.Dashboard.Comparison(r.Context(), userFrom(r.Context()), month)
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(cmp).Write(w)
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := ParseMonthParam(q, "month", s.now())
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	n, err := ParseIntParam(q, "n", s.defaultTopN(), 0, maxTopN)
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	entries, err := s.deps.Dashboard.TopCategories(r.Context(), userFrom(r.Context()), month, n)
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"month":      month.String(),
		"categories": entries,
	}).Write(w)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := chi.URLParam(r, "id")
	from, err := ParseDateParam(q.Get("from"), s.deps.Dashboard.Location())
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	count, err := ParseIntParam(q, "count", defaultCount, 1, maxCount)
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}

	dates, err := s.deps.Dashboard.Upcoming(r.Context(), userFrom(r.Context()), id, from, count)
	if err != nil {
		errorFor(r.Context(), err).Write(w)
		return
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(time.DateOnly))
	}
	NewJSONResponse().Body(map[string]any{
		"recurring_id": id,
		"dates":        out,
	}).Write(w)
}

func (s *Server) handlePause(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.deps.Ledger.SetRecurringPaused(r.Context(), userFrom(r.Context()), id, paused); err != nil {
			errorFor(r.Context(), err).Write(w)
			return
		}
		NewJSONResponse().Status(http.StatusNoContent).Write(w)
	}
}

type transactionJSON struct {
	ID         string               `json:"id"`
	Type       core.TransactionType `json:"type"`
	Amount     int64                `json:"amount"`
	Date       string               `json:"date"`
	AccountID  string               `json:"account_id"`
	CategoryID string               `json:"category_id"`
	Note       string               `json:"note,omitempty"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:         tx.ID,
		Type:       tx.Type,
		Amount:     tx.Amount,
		Date:       tx.Date.Format(time.DateOnly),
		AccountID:  tx.AccountID,
		CategoryID: tx.CategoryID,
		Note:       tx.Note,
	}
}

// parseDateOrToday reads the "date" field, defaulting to today.
func (s *Server) parseDateOrToday(p *RequestBodyParser) (time.Time, error) {
	date, err := ParseDateParam(p.Get("date"), s.deps.Dashboard.Location())
	if err != nil {
		return time.Time{}, err
	}
	if date.IsZero() {
		now := s.now()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	return date, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	amount, err := p.GetAmount("amount", false)
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	date, err := s.parseDateOrToday(p)
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}

	tx, err := s.deps.Ledger.CreateTransaction(ctx, userFrom(ctx), services.NewTransaction{
		Type:      core.TransactionType(p.Get("type")),
		Amount:    amount,
		Date:      date,
		AccountID: p.Get("account_id"),
		Category:  p.Get("category"),
		Note:      p.Get("note"),
	})
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toTransactionJSON(tx)).Write(w)
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	amount, err := p.GetAmount("amount", false)
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	date, err := s.parseDateOrToday(p)
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}

	out, in, err := s.deps.Ledger.CreateTransfer(ctx, userFrom(ctx), p.Get("from_account"), p.Get("to_account"), amount, date, p.Get("note"))
	if err != nil {
		errorFor(ctx, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]transactionJSON{
		"out": toTransactionJSON(out),
		"in":  toTransactionJSON(in),
	}).Write(w)
}

func (s *Server) defaultWindow() int {
	if s.deps.Defaults.Window > 0 {
		return s.deps.Defaults.Window
	}
	return dashboard.DefaultWindow
}

func (s *Server) defaultTopN() int {
	if s.deps.Defaults.TopN > 0 {
		return s.deps.Defaults.TopN
	}
	return dashboard.DefaultTopN
}
