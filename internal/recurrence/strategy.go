// Package recurrence projects future occurrence dates of recurring transactions.
//
// This file implements the Strategy Pattern for stepping a series forward.
// Each cadence (weekly, biweekly, monthly) has its own Stepper.
package recurrence

import (
	"fmt"
	"time"

	"bilancio/internal/core"
)

// Stepper computes the k-th occurrence of a series whose first occurrence is
// first. Implementations must be strictly increasing in k.
type Stepper interface {
	At(first time.Time, k int) time.Time
}

// DayStepper advances by a fixed number of calendar days. AddDate keeps the
// wall-clock time across DST changes.
type DayStepper struct {
	Days int
}

func (s DayStepper) At(first time.Time, k int) time.Time {
	return first.AddDate(0, 0, s.Days*k)
}

// MonthStepper advances by calendar months, anchored on first's day of month
// and clamped to the last day of shorter months: Jan 31, Feb 28, Mar 31, Apr 30.
// Every occurrence is computed from first, so a clamp never drifts the series.
type MonthStepper struct{}

func (MonthStepper) At(first time.Time, k int) time.Time {
	return core.AddMonthsClamped(first, k, first.Day())
}

var steppers = map[core.Recurrence]Stepper{
	core.Weekly:   DayStepper{Days: 7},
	core.Biweekly: DayStepper{Days: 14},
	core.Monthly:  MonthStepper{},
}

// StepperFor returns the stepper for a recurrence, rejecting unknown values.
func StepperFor(r core.Recurrence) (Stepper, error) {
	s, ok := steppers[r]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownRecurrence, r)
	}
	return s, nil
}
