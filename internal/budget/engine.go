// Package budget derives per-category budget consumption for a calendar month
// and owns the monthly override mutation path.
package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// WarningThreshold is the percentage at which a budget still under its limit
// is reported as a warning.
const WarningThreshold = 80

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Progress is the consumption of one budget for one month.
type Progress struct {
	PercentageUsed  int   `json:"percentage_used"`
	RemainingAmount int64 `json:"remaining_amount"`
	IsOverLimit     bool  `json:"is_over_limit"`
}

func (p Progress) Status() Status {
	switch {
	case p.IsOverLimit:
		return StatusCritical
	case p.PercentageUsed >= WarningThreshold:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// ResolveEffectiveLimit returns the override for (b, month) if one exists,
// otherwise b.DefaultAmount.
func ResolveEffectiveLimit(b core.CategoryBudget, adjs []core.MonthlyBudgetAdjustment, month core.MonthKey) int64 {
	if a, ok := findAdjustment(b.ID, adjs, month); ok {
		return a.AdjustedAmount
	}
	return b.DefaultAmount
}

func findAdjustment(budgetID string, adjs []core.MonthlyBudgetAdjustment, month core.MonthKey) (core.MonthlyBudgetAdjustment, bool) {
	for _, a := range adjs {
		if a.BudgetID == budgetID && a.Month == month {
			return a, true
		}
	}
	return core.MonthlyBudgetAdjustment{}, false
}

// SpentForCategory sums expense amounts for categoryID dated inside the
// calendar month, evaluated in loc. A transaction with an unknown type is an
// error rather than a silent skip.
func SpentForCategory(categoryID string, month core.MonthKey, txs []core.Transaction, loc *time.Location) (int64, error) {
	spent, err := spentByCategory(month, txs, loc)
	if err != nil {
		return 0, err
	}
	return spent[categoryID], nil
}

func spentByCategory(month core.MonthKey, txs []core.Transaction, loc *time.Location) (map[string]int64, error) {
	spent := make(map[string]int64)
	for _, tx := range txs {
		if !tx.Type.Valid() {
			_, err := tx.Signed()
			return nil, err
		}
		if tx.Type != core.Expense || !month.Contains(tx.Date, loc) {
			continue
		}
		spent[tx.CategoryID] += tx.Amount
	}
	return spent, nil
}

// ComputeProgress reports how much of limit has been consumed by spent.
// The percentage is rounded half-up and clamped to [0, 100]; the remaining
// amount never goes below zero. A zero limit counts as fully used as soon as
// anything is spent.
func ComputeProgress(limit, spent int64) Progress {
	p := Progress{
		IsOverLimit:     spent > limit,
		RemainingAmount: max(limit-spent, 0),
	}

	switch {
	case limit <= 0:
		if spent > 0 {
			p.PercentageUsed = 100
		}
	case spent > 0:
		pct := decimal.NewFromInt(spent).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(limit)).
			Round(0).
			IntPart()
		p.PercentageUsed = int(min(max(pct, 0), 100))
	}
	return p
}
