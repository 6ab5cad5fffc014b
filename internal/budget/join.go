package budget

import (
	"sort"
	"time"

	"bilancio/internal/core"
)

// View is a budget joined with its category and the month's consumption.
type View struct {
	BudgetID      string   `json:"budget_id"`
	CategoryID    string   `json:"category_id"`
	CategoryName  string   `json:"category_name"`
	CategoryIcon  string   `json:"category_icon,omitempty"`
	Month         string   `json:"month"`
	DefaultAmount int64    `json:"default_amount"`
	Limit         int64    `json:"limit"`
	Spent         int64    `json:"spent"`
	HasOverride   bool     `json:"has_override"`
	Progress      Progress `json:"progress"`
	Status        Status   `json:"status"`
}

// Summary aggregates a set of views.
type Summary struct {
	TotalLimit int64    `json:"total_limit"`
	TotalSpent int64    `json:"total_spent"`
	Progress   Progress `json:"progress"`
	Critical   int      `json:"critical"`
	Warning    int      `json:"warning"`
}

// Join resolves each budget against its category, the month's overrides and
// the month's spending. Categories are indexed once per call. Budgets that
// point at the transfer category or at a category that no longer exists are
// skipped. Results are ordered by category name, then budget ID.
func Join(
	budgets []core.CategoryBudget,
	adjs []core.MonthlyBudgetAdjustment,
	categories []core.Category,
	txs []core.Transaction,
	month core.MonthKey,
	loc *time.Location,
) ([]View, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}

	index := core.IndexCategories(categories)
	spent, err := spentByCategory(month, txs, loc)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(budgets))
	for _, b := range budgets {
		if b.CategoryID == core.TransferCategoryID {
			continue
		}
		cat, ok := index[b.CategoryID]
		if !ok {
			continue
		}

		adj, hasOverride := findAdjustment(b.ID, adjs, month)
		limit := b.DefaultAmount
		if hasOverride {
			limit = adj.AdjustedAmount
		}
		s := spent[b.CategoryID]
		p := ComputeProgress(limit, s)

		views = append(views, View{
			BudgetID:      b.ID,
			CategoryID:    b.CategoryID,
			CategoryName:  cat.Name,
			CategoryIcon:  cat.Icon,
			Month:         month.String(),
			DefaultAmount: b.DefaultAmount,
			Limit:         limit,
			Spent:         s,
			HasOverride:   hasOverride,
			Progress:      p,
			Status:        p.Status(),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].CategoryName != views[j].CategoryName {
			return views[i].CategoryName < views[j].CategoryName
		}
		return views[i].BudgetID < views[j].BudgetID
	})
	return views, nil
}

func Summarize(views []View) Summary {
	var s Summary
	for _, v := range views {
		s.TotalLimit += v.Limit
		s.TotalSpent += v.Spent
		switch v.Status {
		case StatusCritical:
			s.Critical++
		case StatusWarning:
			s.Warning++
		}
	}
	s.Progress = ComputeProgress(s.TotalLimit, s.TotalSpent)
	return s
}
