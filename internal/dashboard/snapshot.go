// Package dashboard assembles the read side: it loads a user's collections,
// runs every engine over them and caches the resulting snapshot until the
// next change notification.
package dashboard

import (
	"fmt"
	"time"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/trend"
)

const (
	DefaultWindow       = 6
	DefaultTopN         = 5
	DefaultCutoffDay    = 1
	DefaultUpcomingDays = 30
)

// Options selects what a snapshot covers. Zero values take defaults.
type Options struct {
	Month        core.MonthKey // defaults to the month of Now
	Granularity  trend.Granularity
	Window       int
	TopN         int
	CutoffDay    int
	UpcomingDays int
	Now          time.Time
}

// withDefaults fills zero fields. now is expressed in loc.
func (o Options) withDefaults(now time.Time, loc *time.Location) Options {
	if o.Now.IsZero() {
		o.Now = now
	}
	o.Now = o.Now.In(loc)
	if o.Month.IsZero() {
		o.Month = core.MonthKeyOf(o.Now)
	}
	if o.Granularity == "" {
		o.Granularity = trend.Monthly
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.CutoffDay == 0 {
		o.CutoffDay = DefaultCutoffDay
	}
	if o.UpcomingDays <= 0 {
		o.UpcomingDays = DefaultUpcomingDays
	}
	return o
}

func (o Options) validate() error {
	if err := o.Month.Validate(); err != nil {
		return err
	}
	if !o.Granularity.Valid() {
		return fmt.Errorf("%w: %q", trend.ErrUnknownGranularity, o.Granularity)
	}
	if o.CutoffDay < 1 || o.CutoffDay > 28 {
		return fmt.Errorf("%w: %d", core.ErrInvalidCutoffDay, o.CutoffDay)
	}
	return nil
}

// cacheKey identifies a snapshot. Now only matters at day resolution: a
// snapshot built at 00:01 answers every request of that day.
func (o Options) cacheKey(userID string) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d|%d|%s",
		userID, o.Month, o.Granularity, o.Window, o.TopN, o.CutoffDay, o.UpcomingDays,
		o.Now.Format(time.DateOnly))
}

type AccountBalance struct {
	AccountID string           `json:"account_id"`
	Name      string           `json:"name"`
	Type      core.AccountType `json:"type"`
	Color     string           `json:"color,omitempty"`
	Balance   int64            `json:"balance"`
}

type UpcomingEntry struct {
	RecurringID string               `json:"recurring_id"`
	Date        time.Time            `json:"date"`
	Type        core.TransactionType `json:"type"`
	Amount      int64                `json:"amount"`
	AccountID   string               `json:"account_id"`
	Category    string               `json:"category"`
	Note        string               `json:"note,omitempty"`
}

// Period is an inclusive accounting period.
type Period struct {
	CutoffDay int       `json:"cutoff_day"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Snapshot is everything the dashboard shows for one user.
type Snapshot struct {
	UserID        string                `json:"user_id"`
	Month         string                `json:"month"`
	GeneratedAt   time.Time             `json:"generated_at"`
	Accounts      []AccountBalance      `json:"accounts"`
	NetWorth      int64                 `json:"net_worth"`
	Budgets       []budget.View         `json:"budgets"`
	BudgetSummary budget.Summary        `json:"budget_summary"`
	Trend         []trend.Point         `json:"trend"`
	Granularity   trend.Granularity     `json:"granularity"`
	Comparison    trend.Comparison      `json:"comparison"`
	TopCategories []trend.CategoryEntry `json:"top_categories"`
	Upcoming      []UpcomingEntry       `json:"upcoming"`
	Period        Period                `json:"period"`
}

