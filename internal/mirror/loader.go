package mirror

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/store"
)

// StoreLoader resolves ops against a store.Store.
type StoreLoader struct {
	Store    store.Store
	Location *time.Location
}

func (l StoreLoader) LoadTransaction(ctx context.Context, userID, id string) (TransactionRow, error) {
	tx, err := l.Store.GetTransaction(ctx, userID, id)
	if err != nil {
		return TransactionRow{}, fmt.Errorf("load transaction: %w", err)
	}

	var (
		accounts []core.Account
		cats     []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		accounts, err = l.Store.ListAccounts(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		cats, err = l.Store.ListCategories(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return TransactionRow{}, fmt.Errorf("load names: %w", err)
	}

	row := TransactionRow{
		ID:     tx.ID,
		Date:   tx.Date,
		Type:   tx.Type,
		Amount: tx.Amount,
		Note:   tx.Note,
	}
	for _, a := range accounts {
		if a.ID == tx.AccountID {
			row.Account = a.Name
			break
		}
	}
	if c, ok := core.IndexCategories(cats)[tx.CategoryID]; ok {
		row.Category = c.Name
	}
	return row, nil
}

func (l StoreLoader) LoadBudgetMonth(ctx context.Context, userID string, month core.MonthKey) ([]budget.View, error) {
	var (
		budgets []core.CategoryBudget
		adjs    []core.MonthlyBudgetAdjustment
		cats    []core.Category
		txs     []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		budgets, err = l.Store.ListCategoryBudgets(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		adjs, err = l.Store.ListMonthlyAdjustments(gctx, userID, month)
		return err
	})
	g.Go(func() (err error) {
		cats, err = l.Store.ListCategories(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		txs, err = l.Store.ListTransactions(gctx, userID, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load budget month: %w", err)
	}

	loc := l.Location
	if loc == nil {
		loc = time.Local
	}
	return budget.Join(budgets, adjs, cats, txs, month, loc)
}
