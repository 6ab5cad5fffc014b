package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidMonthKey  = errors.New("invalid month key")
	ErrInvalidCutoffDay = errors.New("cutoff day must be between 1 and 28")
)

// MonthKey identifies a calendar month. Its canonical text form is "MM-YYYY".
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthKeyOf returns the month containing t, in t's location.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// ParseMonthKey parses "MM-YYYY".
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	mm, yyyy, ok := strings.Cut(s, "-")
	if !ok || len(mm) != 2 || len(yyyy) != 4 {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	y, err := strconv.Atoi(yyyy)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	k := MonthKey{Year: y, Month: time.Month(m)}
	if err := k.Validate(); err != nil {
		return MonthKey{}, err
	}
	return k, nil
}

func (k MonthKey) Validate() error {
	if k.Month < time.January || k.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidMonthKey, k.Month)
	}
	if k.Year < 1 || k.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidMonthKey, k.Year)
	}
	return nil
}

func (k MonthKey) IsZero() bool {
	return k.Year == 0 && k.Month == 0
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%02d-%04d", int(k.Month), k.Year)
}

// AddMonths moves k by n months (n may be negative). No day-of-month is
// involved, so there is no overflow to roll over.
func (k MonthKey) AddMonths(n int) MonthKey {
	idx := k.Year*12 + int(k.Month-1) + n
	y, m := idx/12, idx%12
	if m < 0 {
		m += 12
		y--
	}
	return MonthKey{Year: y, Month: time.Month(m + 1)}
}

func (k MonthKey) Prev() MonthKey { return k.AddMonths(-1) }

func (k MonthKey) Next() MonthKey { return k.AddMonths(1) }

// Before reports whether k is strictly earlier than other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// Days returns the number of days in the month.
func (k MonthKey) Days() int {
	return DaysIn(k.Year, k.Month)
}

// Start is the first instant of the month in loc.
func (k MonthKey) Start(loc *time.Location) time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, loc)
}

// End is the last instant of the month in loc.
func (k MonthKey) End(loc *time.Location) time.Time {
	return k.Next().Start(loc).Add(-time.Nanosecond)
}

// Contains reports whether t falls within the month, evaluated in loc. A nil
// loc uses t's own location.
func (k MonthKey) Contains(t time.Time, loc *time.Location) bool {
	if loc != nil {
		t = t.In(loc)
	}
	return MonthKeyOf(t) == k
}

func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MonthKey) UnmarshalText(b []byte) error {
	parsed, err := ParseMonthKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped moves t by n calendar months keeping the day of month
// when it exists and clamping to the last day otherwise (Jan 31 + 1 = Feb 28/29).
// Time of day and location are preserved.
func AddMonthsClamped(t time.Time, n int, anchorDay int) time.Time {
	target := MonthKeyOf(t).AddMonths(n)
	day := anchorDay
	if last := target.Days(); day > last {
		day = last
	}
	return time.Date(target.Year, target.Month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AccountingPeriod returns the cutoff-day period containing base. Both bounds
// are inclusive: start is 00:00 on a cutoff day, end is the last instant of
// the day before the next cutoff.
func AccountingPeriod(base time.Time, cutoffDay int) (time.Time, time.Time, error) {
	if cutoffDay < 1 || cutoffDay > 28 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %d", ErrInvalidCutoffDay, cutoffDay)
	}
	startMonth := MonthKeyOf(base)
	if base.Day() < cutoffDay {
		startMonth = startMonth.Prev()
	}
	loc := base.Location()
	start := time.Date(startMonth.Year, startMonth.Month, cutoffDay, 0, 0, 0, 0, loc)
	next := startMonth.Next()
	end := time.Date(next.Year, next.Month, cutoffDay, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	return start, end, nil
}
