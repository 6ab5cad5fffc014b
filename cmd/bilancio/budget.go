package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"bilancio/internal/budget"
	"bilancio/internal/cli"
	"bilancio/internal/core"
	"bilancio/internal/store"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show budgets and manage monthly overrides",
	}
	cmd.AddCommand(budgetShowCmd())
	cmd.AddCommand(budgetSetCmd())
	cmd.AddCommand(budgetClearCmd())
	return cmd
}

func budgetShowCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show budget consumption for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.monthFlag(month)
			if err != nil {
				return err
			}
			views, summary, err := a.dashboard.Budgets(cmd.Context(), a.userID, m)
			if err != nil {
				return err
			}
			return cli.RenderBudgets(cmd.OutOrStdout(), a.formatter, m, views, summary)
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month as MM-YYYY (default: current)")
	return cmd
}

func budgetSetCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Override a budget's limit for one month",
		Long: `Set the limit of the budget for <category> in one month. Setting it to
the budget's default amount removes the override.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseLimit(args[1])
			if err != nil {
				return err
			}
			return overrideCommand(cmd, month, args[0], func(ctx context.Context, a *app, budgetID string, m core.MonthKey) (budget.Outcome, error) {
				return a.backend.Budgets.SetMonthlyOverride(ctx, a.userID, budgetID, m, amount)
			})
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month as MM-YYYY (default: current)")
	return cmd
}

func budgetClearCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "clear <category>",
		Short: "Remove a budget's override for one month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return overrideCommand(cmd, month, args[0], func(ctx context.Context, a *app, budgetID string, m core.MonthKey) (budget.Outcome, error) {
				return a.backend.Budgets.ClearMonthlyOverride(ctx, a.userID, budgetID, m)
			})
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month as MM-YYYY (default: current)")
	return cmd
}

type overrideFunc func(ctx context.Context, a *app, budgetID string, m core.MonthKey) (budget.Outcome, error)

func overrideCommand(cmd *cobra.Command, month, categoryRef string, apply overrideFunc) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.monthFlag(month)
	if err != nil {
		return err
	}
	b, err := findBudget(ctx, a.backend.Store, a.userID, categoryRef)
	if err != nil {
		return err
	}
	outcome, err := apply(ctx, a, b.ID, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", categoryRef, m, outcomeStyle(outcome).Render(string(outcome)))
	return nil
}

// findBudget resolves a category name or ID to its budget. Misspelled names
// come back with the closest existing one as a suggestion.
func findBudget(ctx context.Context, st store.Store, userID, ref string) (core.CategoryBudget, error) {
	cats, err := st.ListCategories(ctx, userID)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	cat, err := core.FindCategory(cats, ref)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	budgets, err := st.ListCategoryBudgets(ctx, userID)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	for _, b := range budgets {
		if b.CategoryID == cat.ID {
			return b, nil
		}
	}
	return core.CategoryBudget{}, fmt.Errorf("category %q has no budget: %w", cat.Name, store.ErrNotFound)
}

func outcomeStyle(o budget.Outcome) lipgloss.Style {
	switch o {
	case budget.OutcomeUnchanged:
		return cli.SubtleStyle
	case budget.OutcomeRemoved:
		return cli.StatusStyle(budget.StatusWarning)
	default:
		return cli.SuccessStyle
	}
}

// parseLimit accepts a whole amount or 0, which is a valid monthly limit.
func parseLimit(s string) (int64, error) {
	if strings.TrimSpace(s) == "0" {
		return 0, nil
	}
	return core.ParseWholeAmount(s)
}
