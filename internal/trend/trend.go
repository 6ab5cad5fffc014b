// Package trend buckets transactions into time series and ranks spending.
package trend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bilancio/internal/core"
)

type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

var ErrUnknownGranularity = errors.New("unknown granularity")

func (g Granularity) Valid() bool {
	switch g {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
	return g, nil
}

// Point is one bucket of a trend series. Balance is income minus expense for
// the bucket alone, not a running total.
type Point struct {
	Period  string    `json:"period"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Income  int64     `json:"income"`
	Expense int64     `json:"expense"`
	Balance int64     `json:"balance"`
}

// BucketByPeriod returns exactly window points ending with the period that
// contains now, in ascending order. Periods are computed in now's location.
// Empty periods are still emitted with zero totals. Transactions outside the
// window are ignored.
func BucketByPeriod(txs []core.Transaction, g Granularity, window int, now time.Time) ([]Point, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	if window <= 0 {
		return []Point{}, nil
	}

	points := skeleton(g, window, now)
	loc := now.Location()
	for _, tx := range txs {
		signed, err := tx.Signed()
		if err != nil {
			return nil, err
		}
		i := locate(points, tx.Date.In(loc))
		if i < 0 {
			continue
		}
		if signed > 0 {
			points[i].Income += tx.Amount
		} else {
			points[i].Expense += tx.Amount
		}
	}
	for i := range points {
		points[i].Balance = points[i].Income - points[i].Expense
	}
	return points, nil
}

func skeleton(g Granularity, window int, now time.Time) []Point {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	points := make([]Point, window)

	switch g {
	case Daily:
		for i := range points {
			start := today.AddDate(0, 0, i-(window-1))
			points[i] = Point{
				Period: start.Format(time.DateOnly),
				Start:  start,
				End:    start.AddDate(0, 0, 1).Add(-time.Nanosecond),
			}
		}
	case Weekly:
		monday := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		for i := range points {
			start := monday.AddDate(0, 0, 7*(i-(window-1)))
			year, week := start.ISOWeek()
			points[i] = Point{
				Period: fmt.Sprintf("%04d-W%02d", year, week),
				Start:  start,
				End:    start.AddDate(0, 0, 7).Add(-time.Nanosecond),
			}
		}
	case Monthly:
		current := core.MonthKeyOf(today)
		for i := range points {
			k := current.AddMonths(i - (window - 1))
			points[i] = Point{
				Period: k.String(),
				Start:  k.Start(loc),
				End:    k.End(loc),
			}
		}
	}
	return points
}

// locate returns the index of the point whose span contains t, or -1.
func locate(points []Point, t time.Time) int {
	i := sort.Search(len(points), func(i int) bool { return points[i].Start.After(t) }) - 1
	if i < 0 || t.After(points[i].End) {
		return -1
	}
	return i
}

// Totals is an income/expense pair for a span.
type Totals struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

func (t Totals) Sub(o Totals) Totals {
	return Totals{
		Income:  t.Income - o.Income,
		Expense: t.Expense - o.Expense,
		Balance: t.Balance - o.Balance,
	}
}

// Comparison pairs a month with the one before it.
type Comparison struct {
	Month    string `json:"month"`
	Current  Totals `json:"current"`
	Previous Totals `json:"previous"`
	Delta    Totals `json:"delta"`
}

// MonthlyComparison sums income and expense for ref and for the preceding
// calendar month.
func MonthlyComparison(txs []core.Transaction, ref core.MonthKey, loc *time.Location) (Comparison, error) {
	if err := ref.Validate(); err != nil {
		return Comparison{}, err
	}
	prev := ref.Prev()

	var cur, old Totals
	for _, tx := range txs {
		signed, err := tx.Signed()
		if err != nil {
			return Comparison{}, err
		}
		var dst *Totals
		switch {
		case ref.Contains(tx.Date, loc):
			dst = &cur
		case prev.Contains(tx.Date, loc):
			dst = &old
		default:
			continue
		}
		if signed > 0 {
			dst.Income += tx.Amount
		} else {
			dst.Expense += tx.Amount
		}
	}
	cur.Balance = cur.Income - cur.Expense
	old.Balance = old.Income - old.Expense

	return Comparison{
		Month:    ref.String(),
		Current:  cur,
		Previous: old,
		Delta:    cur.Sub(old),
	}, nil
}
