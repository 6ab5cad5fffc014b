package trend

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

// percentagePlaces is the precision of CategoryEntry.Percentage.
const percentagePlaces = 4

// CategoryEntry is one row of a spending ranking.
type CategoryEntry struct {
	CategoryID       string  `json:"category_id"`
	Category         string  `json:"category"`
	Icon             string  `json:"icon,omitempty"`
	TotalAmount      int64   `json:"total_amount"`
	TransactionCount int     `json:"transaction_count"`
	Percentage       float64 `json:"percentage"`
}

// TopCategories ranks expense categories for month by total spent. Transfers
// are excluded. Percentages are computed over the whole month before
// truncating to n, so the full list sums to 100. Equal totals are ordered by
// category ID. n <= 0 returns the full list; no spending returns an empty list.
// A transaction with an unknown type fails the whole ranking.
func TopCategories(txs []core.Transaction, categories []core.Category, month core.MonthKey, n int, loc *time.Location) ([]CategoryEntry, error) {
	groups := make(map[string]*CategoryEntry)
	var total int64
	for _, tx := range txs {
		if _, err := tx.Signed(); err != nil {
			return nil, err
		}
		if tx.Type != core.Expense || tx.IsTransfer() || !month.Contains(tx.Date, loc) {
			continue
		}
		e, ok := groups[tx.CategoryID]
		if !ok {
			e = &CategoryEntry{CategoryID: tx.CategoryID}
			groups[tx.CategoryID] = e
		}
		e.TotalAmount += tx.Amount
		e.TransactionCount++
		total += tx.Amount
	}
	if total == 0 {
		return []CategoryEntry{}, nil
	}

	index := core.IndexCategories(categories)
	denom := decimal.NewFromInt(total)
	hundred := decimal.NewFromInt(100)

	entries := make([]CategoryEntry, 0, len(groups))
	for id, e := range groups {
		if c, ok := index[id]; ok {
			e.Category = c.Name
			e.Icon = c.Icon
		}
		e.Percentage = decimal.NewFromInt(e.TotalAmount).
			Mul(hundred).
			DivRound(denom, percentagePlaces).
			InexactFloat64()
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalAmount != entries[j].TotalAmount {
			return entries[i].TotalAmount > entries[j].TotalAmount
		}
		return entries[i].CategoryID < entries[j].CategoryID
	})

	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}
