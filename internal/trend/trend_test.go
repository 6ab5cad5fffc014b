package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func expense(id string, amount int64, when time.Time, cat string) core.Transaction {
	return core.Transaction{ID: id, Type: core.Expense, Amount: amount, Date: when, AccountID: "acc", CategoryID: cat}
}

func income(id string, amount int64, when time.Time) core.Transaction {
	return core.Transaction{ID: id, Type: core.Income, Amount: amount, Date: when, AccountID: "acc", CategoryID: "salary"}
}

func periods(points []Point) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Period
	}
	return out
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, Weekly, g)

	_, err = ParseGranularity("yearly")
	assert.ErrorIs(t, err, ErrUnknownGranularity)
}

func TestBucketByPeriod_Daily(t *testing.T) {
	now := at(2025, 3, 10, 15)
	txs := []core.Transaction{
		income("i1", 1000, at(2025, 3, 10, 9)),
		expense("e1", 300, at(2025, 3, 10, 23), "food"),
		expense("e2", 200, at(2025, 3, 4, 0), "food"),
		expense("old", 999, at(2025, 3, 3, 23), "food"),
		expense("future", 999, at(2025, 3, 11, 0), "food"),
	}

	points, err := BucketByPeriod(txs, Daily, 7, now)
	require.NoError(t, err)
	require.Len(t, points, 7)
	assert.Equal(t, "2025-03-04", points[0].Period)
	assert.Equal(t, "2025-03-10", points[6].Period)

	assert.Equal(t, int64(200), points[0].Expense)
	assert.Equal(t, int64(-200), points[0].Balance)
	assert.Equal(t, Point{
		Period:  "2025-03-10",
		Start:   at(2025, 3, 10, 0),
		End:     at(2025, 3, 11, 0).Add(-time.Nanosecond),
		Income:  1000,
		Expense: 300,
		Balance: 700,
	}, points[6])
	for _, p := range points[1:6] {
		assert.Zero(t, p.Income)
		assert.Zero(t, p.Expense)
	}
}

func TestBucketByPeriod_WeeklyStartsOnMonday(t *testing.T) {
	sunday := at(2025, 3, 16, 20)
	txs := []core.Transaction{
		expense("mon", 100, at(2025, 3, 10, 0), "food"),
		expense("prev-sun", 50, at(2025, 3, 9, 23), "food"),
	}

	points, err := BucketByPeriod(txs, Weekly, 3, sunday)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-W09", "2025-W10", "2025-W11"}, periods(points))
	assert.Equal(t, at(2025, 2, 24, 0), points[0].Start)
	assert.Equal(t, int64(50), points[1].Expense)
	assert.Equal(t, int64(100), points[2].Expense)
}

func TestBucketByPeriod_MonthlyCrossesYear(t *testing.T) {
	now := at(2025, 1, 15, 0)
	txs := []core.Transaction{
		income("a", 500, at(2024, 11, 1, 0)),
		expense("b", 200, at(2024, 12, 31, 23), "food"),
	}

	points, err := BucketByPeriod(txs, Monthly, 3, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"11-2024", "12-2024", "01-2025"}, periods(points))
	assert.Equal(t, int64(500), points[0].Balance)
	assert.Equal(t, int64(-200), points[1].Balance)
	assert.Zero(t, points[2].Balance)
}

func TestBucketByPeriod_Density(t *testing.T) {
	now := at(2025, 6, 30, 12)
	for _, g := range []Granularity{Daily, Weekly, Monthly} {
		for _, window := range []int{1, 2, 5, 12, 53} {
			points, err := BucketByPeriod(nil, g, window, now)
			require.NoError(t, err)
			require.Len(t, points, window, "%s/%d", g, window)
			for i := 1; i < len(points); i++ {
				require.True(t, points[i].Start.After(points[i-1].End), "%s/%d not ascending at %d", g, window, i)
			}
			assert.True(t, !now.Before(points[window-1].Start) && !now.After(points[window-1].End))
		}
	}
}

func TestBucketByPeriod_EdgeCases(t *testing.T) {
	points, err := BucketByPeriod(nil, Daily, 0, time.Now())
	require.NoError(t, err)
	assert.Empty(t, points)

	_, err = BucketByPeriod(nil, "hourly", 3, time.Now())
	assert.ErrorIs(t, err, ErrUnknownGranularity)

	bad := []core.Transaction{{ID: "x", Type: "refund", Amount: 1, Date: time.Now()}}
	_, err = BucketByPeriod(bad, Daily, 3, time.Now())
	assert.ErrorIs(t, err, core.ErrUnknownTransactionType)
}

func TestMonthlyComparison(t *testing.T) {
	ref := core.MonthKey{Year: 2025, Month: time.January}
	txs := []core.Transaction{
		income("i1", 1000, at(2025, 1, 5, 0)),
		expense("e1", 400, at(2025, 1, 31, 23), "food"),
		income("i0", 800, at(2024, 12, 1, 0)),
		expense("e0", 900, at(2024, 12, 20, 0), "food"),
		expense("nov", 5000, at(2024, 11, 30, 0), "food"),
	}

	cmp, err := MonthlyComparison(txs, ref, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "01-2025", cmp.Month)
	assert.Equal(t, Totals{Income: 1000, Expense: 400, Balance: 600}, cmp.Current)
	assert.Equal(t, Totals{Income: 800, Expense: 900, Balance: -100}, cmp.Previous)
	assert.Equal(t, Totals{Income: 200, Expense: -500, Balance: 700}, cmp.Delta)
}

func TestMonthlyComparison_InvalidMonth(t *testing.T) {
	_, err := MonthlyComparison(nil, core.MonthKey{}, time.UTC)
	assert.ErrorIs(t, err, core.ErrInvalidMonthKey)
}
