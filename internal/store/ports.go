// Package store declares the storage ports the engines and services consume.
// Every collection is scoped under a single user ID.
package store

import (
	"context"
	"errors"

	"bilancio/internal/core"
)

// ErrNotFound is returned (wrapped) when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a uniqueness rule would be violated.
var ErrConflict = errors.New("conflict")

type (
	AccountReader interface {
		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	}

	AccountWriter interface {
		CreateAccount(ctx context.Context, userID string, a core.Account) (core.Account, error)
	}

	CategoryReader interface {
		// ListCategories includes the reserved transfer category.
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error)
	}

	TransactionReader interface {
		// ListTransactions returns every transaction when limit <= 0. With a
		// positive limit it returns the most recent ones first.
		ListTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error)
		// CreateTransfer stores both legs of a transfer or neither of them.
		CreateTransfer(ctx context.Context, userID string, out, in core.Transaction) (core.Transaction, core.Transaction, error)
	}

	BudgetReader interface {
		ListCategoryBudgets(ctx context.Context, userID string) ([]core.CategoryBudget, error)
		GetCategoryBudget(ctx context.Context, userID, budgetID string) (core.CategoryBudget, error)
	}

	BudgetWriter interface {
		CreateCategoryBudget(ctx context.Context, userID string, b core.CategoryBudget) (core.CategoryBudget, error)
	}

	// AdjustmentStore holds per-month budget overrides. At most one row may
	// exist per (budget, month).
	AdjustmentStore interface {
		ListMonthlyAdjustments(ctx context.Context, userID string, month core.MonthKey) ([]core.MonthlyBudgetAdjustment, error)
		FindMonthlyAdjustment(ctx context.Context, userID, budgetID string, month core.MonthKey) (core.MonthlyBudgetAdjustment, error)
		CreateMonthlyAdjustment(ctx context.Context, userID string, a core.MonthlyBudgetAdjustment) (core.MonthlyBudgetAdjustment, error)
		// UpsertMonthlyAdjustment creates the row for (a.BudgetID, a.Month) or
		// replaces its amount, atomically with respect to other writers.
		UpsertMonthlyAdjustment(ctx context.Context, userID string, a core.MonthlyBudgetAdjustment) (core.MonthlyBudgetAdjustment, error)
		UpdateMonthlyAdjustment(ctx context.Context, userID, id string, amount int64) error
		DeleteMonthlyAdjustment(ctx context.Context, userID, id string) error
	}

	RecurringReader interface {
		ListRecurring(ctx context.Context, userID string) ([]core.RecurringTransaction, error)
		GetRecurring(ctx context.Context, userID, id string) (core.RecurringTransaction, error)
	}

	RecurringWriter interface {
		CreateRecurring(ctx context.Context, userID string, rt core.RecurringTransaction) (core.RecurringTransaction, error)
		SetRecurringPaused(ctx context.Context, userID, id string, paused bool) error
	}

	// Store is the full storage collaborator.
	Store interface {
		AccountReader
		AccountWriter
		CategoryReader
		CategoryWriter
		TransactionReader
		TransactionWriter
		BudgetReader
		BudgetWriter
		AdjustmentStore
		RecurringReader
		RecurringWriter
		Close() error
	}
)
