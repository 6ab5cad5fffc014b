package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

// SQLiteRepository implements store.Store on a local SQLite file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens so every connection sees the schema.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// A single connection serializes writers instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Accounts

func scanAccount(s rowScanner) (core.Account, error) {
	var (
		a       core.Account
		typ     string
		created string
	)
	if err := s.Scan(&a.ID, &a.Name, &typ, &a.InitialBalance, &a.Color, &created); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	t, err := parseTime(created)
	if err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = t
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, initial_balance, color, created_at
		FROM accounts WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, userID string, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.ID = uuid.NewString()
	a.CreatedAt = r.now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, type, initial_balance, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, userID, a.Name, string(a.Type), a.InitialBalance, a.Color, formatTime(a.CreatedAt))
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account saved to SQLite", "id", a.ID, "type", a.Type)
	return a, nil
}

func (r *SQLiteRepository) accountExists(ctx context.Context, userID, id string) error {
	return accountExists(ctx, r.db, userID, id)
}

func accountExists(ctx context.Context, q querier, userID, id string) error {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM accounts WHERE user_id = ? AND id = ?`, userID, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("account", id)
	}
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	return nil
}

// Categories

// ListCategories returns the user's categories ordered by name, preceded by
// the reserved transfer category.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, kind, icon, created_at
		FROM categories WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{core.TransferCategory()}
	for rows.Next() {
		var (
			c       core.Category
			kind    string
			created string
		)
		if err := rows.Scan(&c.ID, &c.Name, &kind, &c.Icon, &created); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Kind = core.CategoryKind(kind)
		if c.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = r.now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, kind, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, userID, c.Name, string(c.Kind), c.Icon, formatTime(c.CreatedAt))
	if isUniqueViolation(err) {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Name, store.ErrConflict)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) categoryExists(ctx context.Context, userID, id string) error {
	return categoryExists(ctx, r.db, userID, id)
}

func categoryExists(ctx context.Context, q querier, userID, id string) error {
	if id == core.TransferCategoryID {
		return nil
	}
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM categories WHERE user_id = ? AND id = ?`, userID, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("category", id)
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

// Transactions

const transactionColumns = `id, type, amount, date, account_id, category_id, note, created_at`

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx            core.Transaction
		typ           string
		date, created string
	)
	if err := s.Scan(&tx.ID, &typ, &tx.Amount, &date, &tx.AccountID, &tx.CategoryID, &tx.Note, &created); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	var err error
	if tx.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, err
	}
	if tx.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// ListTransactions returns all transactions oldest first, or the limit most
// recent ones newest first when limit > 0.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if limit > 0 {
		query += ` ORDER BY date_unix DESC, rowid DESC LIMIT ?`
		args = append(args, limit)
	} else {
		query += ` ORDER BY date_unix, rowid`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, notFound("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	tx, err := r.insertTransaction(ctx, r.db, userID, tx)
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"type", tx.Type,
		"amount", tx.Amount,
		"month", core.MonthKeyOf(tx.Date).String())
	return tx, nil
}

// CreateTransfer inserts both legs in one database transaction.
func (r *SQLiteRepository) CreateTransfer(ctx context.Context, userID string, out, in core.Transaction) (core.Transaction, core.Transaction, error) {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("begin transfer: %w", err)
	}
	defer dbtx.Rollback()

	if out, err = r.insertTransaction(ctx, dbtx, userID, out); err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("source leg: %w", err)
	}
	if in, err = r.insertTransaction(ctx, dbtx, userID, in); err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("destination leg: %w", err)
	}
	if err := dbtx.Commit(); err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("commit transfer: %w", err)
	}

	slog.InfoContext(ctx, "Transfer saved to SQLite",
		"out_id", out.ID,
		"in_id", in.ID,
		"amount", out.Amount,
		"month", core.MonthKeyOf(out.Date).String())
	return out, in, nil
}

func (r *SQLiteRepository) insertTransaction(ctx context.Context, q querier, userID string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := accountExists(ctx, q, userID, tx.AccountID); err != nil {
		return core.Transaction{}, err
	}
	if err := categoryExists(ctx, q, userID, tx.CategoryID); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = uuid.NewString()
	tx.CreatedAt = r.now()

	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, date, date_unix, account_id, category_id, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, userID, string(tx.Type), tx.Amount, formatTime(tx.Date), tx.Date.UnixNano(),
		tx.AccountID, tx.CategoryID, tx.Note, formatTime(tx.CreatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return tx, nil
}

// Budgets

func scanBudget(s rowScanner) (core.CategoryBudget, error) {
	var (
		b       core.CategoryBudget
		created string
	)
	if err := s.Scan(&b.ID, &b.CategoryID, &b.DefaultAmount, &created); err != nil {
		return core.CategoryBudget{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	b.CreatedAt = t
	return b, nil
}

func (r *SQLiteRepository) ListCategoryBudgets(ctx context.Context, userID string) ([]core.CategoryBudget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, default_amount, created_at
		FROM category_budgets WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryBudget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategoryBudget(ctx context.Context, userID, budgetID string) (core.CategoryBudget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, category_id, default_amount, created_at
		FROM category_budgets WHERE user_id = ? AND id = ?`, userID, budgetID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CategoryBudget{}, notFound("budget", budgetID)
	}
	if err != nil {
		return core.CategoryBudget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) CreateCategoryBudget(ctx context.Context, userID string, b core.CategoryBudget) (core.CategoryBudget, error) {
	if err := b.Validate(); err != nil {
		return core.CategoryBudget{}, err
	}
	if err := r.categoryExists(ctx, userID, b.CategoryID); err != nil {
		return core.CategoryBudget{}, err
	}
	b.ID = uuid.NewString()
	b.CreatedAt = r.now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO category_budgets (id, user_id, category_id, default_amount, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, userID, b.CategoryID, b.DefaultAmount, formatTime(b.CreatedAt))
	if isUniqueViolation(err) {
		return core.CategoryBudget{}, fmt.Errorf("budget for category %s: %w", b.CategoryID, store.ErrConflict)
	}
	if err != nil {
		return core.CategoryBudget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

// Monthly adjustments

func scanAdjustment(s rowScanner) (core.MonthlyBudgetAdjustment, error) {
	var (
		a              core.MonthlyBudgetAdjustment
		month, created string
	)
	if err := s.Scan(&a.ID, &a.BudgetID, &month, &a.AdjustedAmount, &created); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	var err error
	if a.Month, err = core.ParseMonthKey(month); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	if a.CreatedAt, err = parseTime(created); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	return a, nil
}

func (r *SQLiteRepository) ListMonthlyAdjustments(ctx context.Context, userID string, month core.MonthKey) ([]core.MonthlyBudgetAdjustment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, budget_id, month, adjusted_amount, created_at
		FROM monthly_budget_adjustments WHERE user_id = ? AND month = ?
		ORDER BY budget_id`, userID, month.String())
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	out := []core.MonthlyBudgetAdjustment{}
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) FindMonthlyAdjustment(ctx context.Context, userID, budgetID string, month core.MonthKey) (core.MonthlyBudgetAdjustment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, budget_id, month, adjusted_amount, created_at
		FROM monthly_budget_adjustments
		WHERE user_id = ? AND budget_id = ? AND month = ?`, userID, budgetID, month.String())
	a, err := scanAdjustment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyBudgetAdjustment{}, notFound("adjustment", budgetID+"/"+month.String())
	}
	if err != nil {
		return core.MonthlyBudgetAdjustment{}, fmt.Errorf("find adjustment: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) CreateMonthlyAdjustment(ctx context.Context, userID string, a core.MonthlyBudgetAdjustment) (core.MonthlyBudgetAdjustment, error) {
	if err := a.Validate(); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	if _, err := r.GetCategoryBudget(ctx, userID, a.BudgetID); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	a.ID = uuid.NewString()
	a.CreatedAt = r.now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_budget_adjustments (id, user_id, budget_id, month, adjusted_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, userID, a.BudgetID, a.Month.String(), a.AdjustedAmount, formatTime(a.CreatedAt))
	if isUniqueViolation(err) {
		return core.MonthlyBudgetAdjustment{}, fmt.Errorf("adjustment %s/%s: %w", a.BudgetID, a.Month, store.ErrConflict)
	}
	if err != nil {
		return core.MonthlyBudgetAdjustment{}, fmt.Errorf("create adjustment: %w", err)
	}
	return a, nil
}

// UpsertMonthlyAdjustment writes the single adjustment row for
// (budget, month) in one statement, so concurrent writers cannot create a
// duplicate.
func (r *SQLiteRepository) UpsertMonthlyAdjustment(ctx context.Context, userID string, a core.MonthlyBudgetAdjustment) (core.MonthlyBudgetAdjustment, error) {
	if err := a.Validate(); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	if _, err := r.GetCategoryBudget(ctx, userID, a.BudgetID); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO monthly_budget_adjustments (id, user_id, budget_id, month, adjusted_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (budget_id, month) DO UPDATE SET adjusted_amount = excluded.adjusted_amount`,
		uuid.NewString(), userID, a.BudgetID, a.Month.String(), a.AdjustedAmount, formatTime(r.now()))
	if err != nil {
		return core.MonthlyBudgetAdjustment{}, fmt.Errorf("upsert adjustment: %w", err)
	}
	return r.FindMonthlyAdjustment(ctx, userID, a.BudgetID, a.Month)
}

func (r *SQLiteRepository) UpdateMonthlyAdjustment(ctx context.Context, userID, id string, amount int64) error {
	if amount < 0 {
		return core.ErrInvalidAmount
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE monthly_budget_adjustments SET adjusted_amount = ?
		WHERE user_id = ? AND id = ?`, amount, userID, id)
	if err != nil {
		return fmt.Errorf("update adjustment: %w", err)
	}
	return expectOneRow(res, "adjustment", id)
}

func (r *SQLiteRepository) DeleteMonthlyAdjustment(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM monthly_budget_adjustments WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete adjustment: %w", err)
	}
	return expectOneRow(res, "adjustment", id)
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// Recurring transactions

const recurringColumns = `id, type, amount, start_date, end_date, account_id, category_id, note, recurrence, is_paused, created_at`

func scanRecurring(s rowScanner) (core.RecurringTransaction, error) {
	var (
		rt             core.RecurringTransaction
		typ, rec       string
		start, created string
		end            sql.NullString
	)
	if err := s.Scan(&rt.ID, &typ, &rt.Amount, &start, &end, &rt.AccountID, &rt.CategoryID,
		&rt.Note, &rec, &rt.IsPaused, &created); err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.Type = core.TransactionType(typ)
	rt.Recurrence = core.Recurrence(rec)

	var err error
	if rt.StartDate, err = parseTime(start); err != nil {
		return core.RecurringTransaction{}, err
	}
	if end.Valid {
		if rt.EndDate, err = parseTime(end.String); err != nil {
			return core.RecurringTransaction{}, err
		}
	}
	if rt.CreatedAt, err = parseTime(created); err != nil {
		return core.RecurringTransaction{}, err
	}
	return rt, nil
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context, userID string) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE user_id = ? ORDER BY start_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring: %w", err)
	}
	defer rows.Close()

	out := []core.RecurringTransaction{}
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, userID, id string) (core.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE user_id = ? AND id = ?`, userID, id)
	rt, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, notFound("recurring", id)
	}
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("get recurring: %w", err)
	}
	return rt, nil
}

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, userID string, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := r.accountExists(ctx, userID, rt.AccountID); err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := r.categoryExists(ctx, userID, rt.CategoryID); err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.ID = uuid.NewString()
	rt.CreatedAt = r.now()

	var end sql.NullString
	if !rt.EndDate.IsZero() {
		end = sql.NullString{String: formatTime(rt.EndDate), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions
			(id, user_id, type, amount, start_date, end_date, account_id, category_id, note, recurrence, is_paused, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, userID, string(rt.Type), rt.Amount, formatTime(rt.StartDate), end,
		rt.AccountID, rt.CategoryID, rt.Note, string(rt.Recurrence), rt.IsPaused, formatTime(rt.CreatedAt))
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring: %w", err)
	}
	return rt, nil
}

func (r *SQLiteRepository) SetRecurringPaused(ctx context.Context, userID, id string, paused bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET is_paused = ? WHERE user_id = ? AND id = ?`, paused, userID, id)
	if err != nil {
		return fmt.Errorf("set recurring paused: %w", err)
	}
	if err := expectOneRow(res, "recurring", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Recurring transaction updated", "id", id, "paused", paused)
	return nil
}
