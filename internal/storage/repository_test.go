package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/store"
)

const user = "user-1"

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "bilancio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

type fixture struct {
	account  core.Account
	category core.Category
	budget   core.CategoryBudget
}

func seed(t *testing.T, repo *SQLiteRepository) fixture {
	t.Helper()
	ctx := context.Background()
	acc, err := repo.CreateAccount(ctx, user, core.Account{Name: "Cuenta corriente", Type: core.AccountChecking, InitialBalance: 100000})
	require.NoError(t, err)
	cat, err := repo.CreateCategory(ctx, user, core.Category{Name: "Comida", Kind: core.KindExpense, Icon: "utensils"})
	require.NoError(t, err)
	b, err := repo.CreateCategoryBudget(ctx, user, core.CategoryBudget{CategoryID: cat.ID, DefaultAmount: 200000})
	require.NoError(t, err)
	return fixture{account: acc, category: cat, budget: b}
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
	v, _, err = MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	require.NoError(t, RollbackMigrations(path, 1))
	v, _, err = MigrationVersion(path)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestAccountsAndCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	accs, err := repo.ListAccounts(ctx, user)
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, f.account.ID, accs[0].ID)
	assert.Equal(t, int64(100000), accs[0].InitialBalance)

	other, err := repo.ListAccounts(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, other)

	cats, err := repo.ListCategories(ctx, user)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.True(t, cats[0].IsSystem())
	assert.Equal(t, "Comida", cats[1].Name)

	_, err = repo.CreateCategory(ctx, user, core.Category{Name: "Comida"})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = repo.CreateCategory(ctx, "someone-else", core.Category{Name: "Comida"})
	assert.NoError(t, err)

	_, err = repo.CreateAccount(ctx, user, core.Account{Name: "", Type: core.AccountCash})
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	clt := time.FixedZone("CLT", -3*3600)
	dates := []time.Time{
		time.Date(2025, 3, 1, 10, 0, 0, 0, clt),
		time.Date(2025, 3, 5, 10, 0, 0, 0, clt),
		time.Date(2025, 2, 20, 10, 0, 0, 0, clt),
	}
	for i, d := range dates {
		_, err := repo.CreateTransaction(ctx, user, core.Transaction{
			Type: core.Expense, Amount: int64(1000 * (i + 1)), Date: d,
			AccountID: f.account.ID, CategoryID: f.category.ID, Note: "súper",
		})
		require.NoError(t, err)
	}

	all, err := repo.ListTransactions(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Date.Equal(dates[2]))
	assert.True(t, all[2].Date.Equal(dates[1]))
	_, offset := all[0].Date.Zone()
	assert.Equal(t, -3*3600, offset)

	recent, err := repo.ListTransactions(ctx, user, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(2000), recent[0].Amount)
	assert.Equal(t, int64(1000), recent[1].Amount)

	got, err := repo.GetTransaction(ctx, user, recent[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "súper", got.Note)

	_, err = repo.GetTransaction(ctx, user, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = repo.CreateTransaction(ctx, user, core.Transaction{
		Type: core.Expense, Amount: 1, Date: dates[0], AccountID: "nope", CategoryID: f.category.ID,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = repo.CreateTransaction(ctx, user, core.Transaction{
		Type: core.Expense, Amount: 1, Date: dates[0], AccountID: f.account.ID, CategoryID: core.TransferCategoryID,
	})
	assert.NoError(t, err)
}

func TestAdjustments_UniquePerBudgetMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)
	month := core.MonthKey{Year: 2025, Month: time.March}

	a, err := repo.CreateMonthlyAdjustment(ctx, user, core.MonthlyBudgetAdjustment{BudgetID: f.budget.ID, Month: month, AdjustedAmount: 150000})
	require.NoError(t, err)

	_, err = repo.CreateMonthlyAdjustment(ctx, user, core.MonthlyBudgetAdjustment{BudgetID: f.budget.ID, Month: month, AdjustedAmount: 1})
	assert.ErrorIs(t, err, store.ErrConflict)

	up, err := repo.UpsertMonthlyAdjustment(ctx, user, core.MonthlyBudgetAdjustment{BudgetID: f.budget.ID, Month: month, AdjustedAmount: 90000})
	require.NoError(t, err)
	assert.Equal(t, a.ID, up.ID)
	assert.Equal(t, int64(90000), up.AdjustedAmount)

	list, err := repo.ListMonthlyAdjustments(ctx, user, month)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, month, list[0].Month)

	require.NoError(t, repo.DeleteMonthlyAdjustment(ctx, user, a.ID))
	assert.ErrorIs(t, repo.DeleteMonthlyAdjustment(ctx, user, a.ID), store.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateMonthlyAdjustment(ctx, user, a.ID, 5), store.ErrNotFound)

	_, err = repo.FindMonthlyAdjustment(ctx, user, f.budget.ID, month)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = repo.CreateMonthlyAdjustment(ctx, user, core.MonthlyBudgetAdjustment{BudgetID: "ghost", Month: month, AdjustedAmount: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdjustments_ConcurrentUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)
	month := core.MonthKey{Year: 2025, Month: time.April}

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			_, err := repo.UpsertMonthlyAdjustment(ctx, user, core.MonthlyBudgetAdjustment{
				BudgetID: f.budget.ID, Month: month, AdjustedAmount: amount,
			})
			assert.NoError(t, err)
		}(int64(i * 1000))
	}
	wg.Wait()

	list, err := repo.ListMonthlyAdjustments(ctx, user, month)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBudgetServiceOverSQLite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)
	month := core.MonthKey{Year: 2025, Month: time.March}
	svc := budget.NewService(repo, nil)

	_, err := svc.SetMonthlyOverride(ctx, user, f.budget.ID, month, 150000)
	require.NoError(t, err)
	adjs, err := repo.ListMonthlyAdjustments(ctx, user, month)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), budget.ResolveEffectiveLimit(f.budget, adjs, month))

	_, err = svc.SetMonthlyOverride(ctx, user, f.budget.ID, month, 200000)
	require.NoError(t, err)
	adjs, err = repo.ListMonthlyAdjustments(ctx, user, month)
	require.NoError(t, err)
	assert.Empty(t, adjs)
	assert.Equal(t, int64(200000), budget.ResolveEffectiveLimit(f.budget, adjs, month))
}

func TestBudgets(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	_, err := repo.CreateCategoryBudget(ctx, user, core.CategoryBudget{CategoryID: f.category.ID, DefaultAmount: 1})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = repo.CreateCategoryBudget(ctx, user, core.CategoryBudget{CategoryID: core.TransferCategoryID, DefaultAmount: 1})
	assert.ErrorIs(t, err, core.ErrSystemCategory)

	_, err = repo.GetCategoryBudget(ctx, "someone-else", f.budget.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := repo.ListCategoryBudgets(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(200000), list[0].DefaultAmount)
}

func TestRecurring(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)

	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	rt, err := repo.CreateRecurring(ctx, user, core.RecurringTransaction{
		Type: core.Expense, Amount: 9990, StartDate: start,
		AccountID: f.account.ID, CategoryID: f.category.ID, Recurrence: core.Monthly,
	})
	require.NoError(t, err)

	got, err := repo.GetRecurring(ctx, user, rt.ID)
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(start))
	assert.True(t, got.EndDate.IsZero())
	assert.False(t, got.IsPaused)

	require.NoError(t, repo.SetRecurringPaused(ctx, user, rt.ID, true))
	got, err = repo.GetRecurring(ctx, user, rt.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaused)

	assert.ErrorIs(t, repo.SetRecurringPaused(ctx, user, "missing", true), store.ErrNotFound)

	list, err := repo.ListRecurring(ctx, user)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateTransferRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	f := seed(t, repo)
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	leg := func(typ core.TransactionType, account string) core.Transaction {
		return core.Transaction{Type: typ, Amount: 30000, Date: date, AccountID: account, CategoryID: core.TransferCategoryID}
	}

	_, _, err := repo.CreateTransfer(ctx, user, leg(core.Expense, f.account.ID), leg(core.Income, "missing"))
	require.ErrorIs(t, err, store.ErrNotFound)
	txs, err := repo.ListTransactions(ctx, user, 0)
	require.NoError(t, err)
	assert.Empty(t, txs, "failed transfer must leave no leg behind")

	savings, err := repo.CreateAccount(ctx, user, core.Account{Name: "Ahorro", Type: core.AccountSavings})
	require.NoError(t, err)
	out, in, err := repo.CreateTransfer(ctx, user, leg(core.Expense, f.account.ID), leg(core.Income, savings.ID))
	require.NoError(t, err)
	assert.NotEqual(t, out.ID, in.ID)

	txs, err = repo.ListTransactions(ctx, user, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
