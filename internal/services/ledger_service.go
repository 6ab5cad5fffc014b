package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/notify"
	"bilancio/internal/store"
)

var ErrSameAccount = errors.New("transfer needs two different accounts")

// LedgerService validates writes, persists them and announces each change to
// subscribers so derived views can be recomputed.
type LedgerService struct {
	store     store.Store
	publisher notify.Publisher
}

func NewLedgerService(st store.Store, publisher notify.Publisher) *LedgerService {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &LedgerService{store: st, publisher: publisher}
}

// NewTransaction is a transaction as entered by a user. Category may be an ID
// or a category name.
type NewTransaction struct {
	Type      core.TransactionType
	Amount    int64
	Date      time.Time
	AccountID string
	Category  string
	Note      string
}

// CreateTransaction resolves the category reference and saves the transaction.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, in NewTransaction) (core.Transaction, error) {
	catID := in.Category
	if catID != core.TransferCategoryID {
		cats, err := s.store.ListCategories(ctx, userID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("list categories: %w", err)
		}
		c, err := core.FindCategory(cats, in.Category)
		if err != nil {
			return core.Transaction{}, err
		}
		catID = c.ID
	}

	tx, err := s.store.CreateTransaction(ctx, userID, core.Transaction{
		Type:       in.Type,
		Amount:     in.Amount,
		Date:       in.Date,
		AccountID:  in.AccountID,
		CategoryID: catID,
		Note:       in.Note,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publishTransaction(ctx, userID, tx)
	return tx, nil
}

// CreateTransfer records a move between two of the user's accounts as an
// expense leg on the source and an income leg on the destination, both in the
// transfer category. Either both legs are stored or neither is.
func (s *LedgerService) CreateTransfer(ctx context.Context, userID, fromAccount, toAccount string, amount int64, date time.Time, note string) (out, in core.Transaction, err error) {
	if fromAccount == toAccount {
		return core.Transaction{}, core.Transaction{}, ErrSameAccount
	}
	legs := [2]core.Transaction{
		{Type: core.Expense, Amount: amount, Date: date, AccountID: fromAccount, CategoryID: core.TransferCategoryID, Note: note},
		{Type: core.Income, Amount: amount, Date: date, AccountID: toAccount, CategoryID: core.TransferCategoryID, Note: note},
	}
	for _, leg := range legs {
		if err := leg.Validate(); err != nil {
			return core.Transaction{}, core.Transaction{}, err
		}
	}

	if out, in, err = s.store.CreateTransfer(ctx, userID, legs[0], legs[1]); err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("save transfer: %w", err)
	}

	s.publishTransaction(ctx, userID, out)
	s.publishTransaction(ctx, userID, in)
	return out, in, nil
}

func (s *LedgerService) CreateAccount(ctx context.Context, userID string, a core.Account) (core.Account, error) {
	a, err := s.store.CreateAccount(ctx, userID, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	s.publish(ctx, notify.Event{Kind: notify.KindAccount, UserID: userID, EntityID: a.ID})
	return a, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	c, err := s.store.CreateCategory(ctx, userID, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	s.publish(ctx, notify.Event{Kind: notify.KindCategory, UserID: userID, EntityID: c.ID})
	return c, nil
}

// CreateBudget adds a default monthly limit for the category named or
// identified by categoryRef.
func (s *LedgerService) CreateBudget(ctx context.Context, userID, categoryRef string, amount int64) (core.CategoryBudget, error) {
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return core.CategoryBudget{}, fmt.Errorf("list categories: %w", err)
	}
	c, err := core.FindCategory(cats, categoryRef)
	if err != nil {
		return core.CategoryBudget{}, err
	}

	b, err := s.store.CreateCategoryBudget(ctx, userID, core.CategoryBudget{CategoryID: c.ID, DefaultAmount: amount})
	if err != nil {
		return core.CategoryBudget{}, fmt.Errorf("save budget: %w", err)
	}
	s.publish(ctx, notify.Event{Kind: notify.KindBudget, UserID: userID, EntityID: b.ID})
	return b, nil
}

func (s *LedgerService) CreateRecurring(ctx context.Context, userID string, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	rt, err := s.store.CreateRecurring(ctx, userID, rt)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("save recurring: %w", err)
	}
	s.publish(ctx, notify.Event{Kind: notify.KindRecurring, UserID: userID, EntityID: rt.ID})
	return rt, nil
}

// SetRecurringPaused pauses or resumes a recurring series. Paused series
// project no upcoming occurrences.
func (s *LedgerService) SetRecurringPaused(ctx context.Context, userID, id string, paused bool) error {
	if err := s.store.SetRecurringPaused(ctx, userID, id, paused); err != nil {
		return fmt.Errorf("set recurring paused: %w", err)
	}
	s.publish(ctx, notify.Event{Kind: notify.KindRecurring, UserID: userID, EntityID: id})
	return nil
}

func (s *LedgerService) publishTransaction(ctx context.Context, userID string, tx core.Transaction) {
	slog.InfoContext(ctx, "Transaction recorded",
		"id", tx.ID, "type", tx.Type, "amount", tx.Amount, "account_id", tx.AccountID)
	s.publish(ctx, notify.Event{
		Kind:     notify.KindTransaction,
		UserID:   userID,
		EntityID: tx.ID,
		Month:    core.MonthKeyOf(tx.Date),
	})
}

func (s *LedgerService) publish(ctx context.Context, e notify.Event) {
	s.publisher.Publish(ctx, e)
}

// Close closes the underlying store.
func (s *LedgerService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
