package recurrence

import (
	"sort"
	"time"

	"bilancio/internal/core"
)

// Occurrence is one projected date of a recurring series.
type Occurrence struct {
	RecurringID string
	Date        time.Time
	Type        core.TransactionType
	Amount      int64
	AccountID   string
	CategoryID  string
	Note        string
}

// Upcoming returns at most count occurrence dates of def, starting at the later
// of from and def.StartDate, in ascending order. Fewer are returned only when
// def.EndDate cuts the series short. A paused series projects nothing.
func Upcoming(def core.RecurringTransaction, from time.Time, count int) ([]time.Time, error) {
	out := []time.Time{}
	if def.IsPaused || count <= 0 {
		return out, nil
	}
	err := walk(def, from, func(t time.Time) bool {
		out = append(out, t)
		return len(out) < count
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Next returns the first upcoming occurrence of def, if any.
func Next(def core.RecurringTransaction, from time.Time) (time.Time, bool, error) {
	dates, err := Upcoming(def, from, 1)
	if err != nil || len(dates) == 0 {
		return time.Time{}, false, err
	}
	return dates[0], true, nil
}

// UpcomingAll projects every active series from from up to and including
// horizon, flattened and sorted by date (ties broken by recurring ID).
func UpcomingAll(defs []core.RecurringTransaction, from, horizon time.Time) ([]Occurrence, error) {
	var out []Occurrence
	for _, def := range defs {
		if def.IsPaused {
			continue
		}
		err := walk(def, from, func(t time.Time) bool {
			if t.After(horizon) {
				return false
			}
			out = append(out, Occurrence{
				RecurringID: def.ID,
				Date:        t,
				Type:        def.Type,
				Amount:      def.Amount,
				AccountID:   def.AccountID,
				CategoryID:  def.CategoryID,
				Note:        def.Note,
			})
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].RecurringID < out[j].RecurringID
	})
	return out, nil
}

// walk feeds occurrences to fn until fn returns false or the end date is passed.
func walk(def core.RecurringTransaction, from time.Time, fn func(time.Time) bool) error {
	stepper, err := StepperFor(def.Recurrence)
	if err != nil {
		return err
	}
	first := from
	if def.StartDate.After(from) {
		first = def.StartDate
	}
	for k := 0; ; k++ {
		t := stepper.At(first, k)
		if !def.EndDate.IsZero() && t.After(def.EndDate) {
			return nil
		}
		if !fn(t) {
			return nil
		}
	}
}
