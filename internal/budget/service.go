package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	"bilancio/internal/metrics"
	"bilancio/internal/notify"
	"bilancio/internal/store"
)

// Outcome reports what an override write did to the adjustment table.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeRemoved   Outcome = "removed"
	OutcomeUnchanged Outcome = "unchanged"
)

// Repository is the storage the override service needs.
type Repository interface {
	store.BudgetReader
	store.AdjustmentStore
}

// Service applies monthly overrides so that at most one adjustment exists per
// (budget, month) and none ever equals the budget's default amount.
type Service struct {
	repo      Repository
	publisher notify.Publisher
}

func NewService(repo Repository, publisher notify.Publisher) *Service {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &Service{repo: repo, publisher: publisher}
}

// SetMonthlyOverride sets the limit of budgetID for month. Setting it back to
// the budget's default removes the override instead of storing it.
func (s *Service) SetMonthlyOverride(ctx context.Context, userID, budgetID string, month core.MonthKey, amount int64) (Outcome, error) {
	return count(s.setMonthlyOverride(ctx, userID, budgetID, month, amount))
}

func (s *Service) setMonthlyOverride(ctx context.Context, userID, budgetID string, month core.MonthKey, amount int64) (Outcome, error) {
	if amount < 0 {
		return "", fmt.Errorf("override amount %d: %w", amount, core.ErrInvalidAmount)
	}
	if err := month.Validate(); err != nil {
		return "", err
	}

	b, err := s.repo.GetCategoryBudget(ctx, userID, budgetID)
	if err != nil {
		return "", fmt.Errorf("get budget %s: %w", budgetID, err)
	}

	existing, found, err := s.find(ctx, userID, budgetID, month)
	if err != nil {
		return "", err
	}

	var outcome Outcome
	switch {
	case amount == b.DefaultAmount && !found:
		return OutcomeUnchanged, nil
	case amount == b.DefaultAmount:
		if err := s.deleteAdjustment(ctx, userID, existing.ID); err != nil {
			return "", err
		}
		outcome = OutcomeRemoved
	case found && existing.AdjustedAmount == amount:
		return OutcomeUnchanged, nil
	default:
		// A concurrent writer may have created the row since find; the upsert
		// folds that case into an update.
		adj := core.MonthlyBudgetAdjustment{BudgetID: budgetID, Month: month, AdjustedAmount: amount}
		if _, err := s.repo.UpsertMonthlyAdjustment(ctx, userID, adj); err != nil {
			return "", fmt.Errorf("upsert adjustment: %w", err)
		}
		outcome = OutcomeCreated
		if found {
			outcome = OutcomeUpdated
		}
	}

	slog.InfoContext(ctx, "Budget override applied",
		"budget_id", budgetID, "month", month.String(), "amount", amount, "outcome", outcome)
	s.publish(ctx, userID, budgetID, month)
	return outcome, nil
}

// ClearMonthlyOverride removes the override for (budgetID, month). A missing
// override is not an error.
func (s *Service) ClearMonthlyOverride(ctx context.Context, userID, budgetID string, month core.MonthKey) (Outcome, error) {
	return count(s.clearMonthlyOverride(ctx, userID, budgetID, month))
}

func (s *Service) clearMonthlyOverride(ctx context.Context, userID, budgetID string, month core.MonthKey) (Outcome, error) {
	if err := month.Validate(); err != nil {
		return "", err
	}
	if _, err := s.repo.GetCategoryBudget(ctx, userID, budgetID); err != nil {
		return "", fmt.Errorf("get budget %s: %w", budgetID, err)
	}

	existing, found, err := s.find(ctx, userID, budgetID, month)
	if err != nil {
		return "", err
	}
	if !found {
		return OutcomeUnchanged, nil
	}
	if err := s.deleteAdjustment(ctx, userID, existing.ID); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Budget override cleared", "budget_id", budgetID, "month", month.String())
	s.publish(ctx, userID, budgetID, month)
	return OutcomeRemoved, nil
}

// deleteAdjustment removes an adjustment. A row already removed by another writer
// counts as deleted.
func (s *Service) deleteAdjustment(ctx context.Context, userID, id string) error {
	err := s.repo.DeleteMonthlyAdjustment(ctx, userID, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete adjustment %s: %w", id, err)
	}
	return nil
}

func count(o Outcome, err error) (Outcome, error) {
	if err == nil {
		metrics.OverrideWrites.WithLabelValues(string(o)).Inc()
	}
	return o, err
}

func (s *Service) find(ctx context.Context, userID, budgetID string, month core.MonthKey) (core.MonthlyBudgetAdjustment, bool, error) {
	adj, err := s.repo.FindMonthlyAdjustment(ctx, userID, budgetID, month)
	switch {
	case err == nil:
		return adj, true, nil
	case errors.Is(err, store.ErrNotFound):
		return core.MonthlyBudgetAdjustment{}, false, nil
	default:
		return core.MonthlyBudgetAdjustment{}, false, fmt.Errorf("find adjustment: %w", err)
	}
}

func (s *Service) publish(ctx context.Context, userID, budgetID string, month core.MonthKey) {
	s.publisher.Publish(ctx, notify.Event{
		Kind:     notify.KindBudget,
		UserID:   userID,
		EntityID: budgetID,
		Month:    month,
	})
}
