package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/dashboard"
	"bilancio/internal/trend"
)

var (
	HealthyColor  = lipgloss.Color("#4ECDC4")
	WarningColor  = lipgloss.Color("#FFE66D")
	CriticalColor = lipgloss.Color("#FF6B6B")
	SubtleColor   = lipgloss.Color("#666666")

	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	HeaderStyle = lipgloss.NewStyle().Bold(true)
	SubtleStyle = lipgloss.NewStyle().Foreground(SubtleColor)

	SuccessStyle = lipgloss.NewStyle().Foreground(HealthyColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(CriticalColor)
)

// StatusStyle colors a budget status.
func StatusStyle(s budget.Status) lipgloss.Style {
	switch s {
	case budget.StatusCritical:
		return lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	case budget.StatusWarning:
		return lipgloss.NewStyle().Foreground(WarningColor)
	default:
		return lipgloss.NewStyle().Foreground(HealthyColor)
	}
}

// signedStyle colors negative amounts red.
func signedStyle(v int64) lipgloss.Style {
	if v < 0 {
		return ErrorStyle
	}
	return lipgloss.NewStyle()
}

func table(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = HeaderStyle.Render(h)
	}
	fmt.Fprintln(tw, strings.Join(styled, "\t"))
	return tw
}

// RenderBalances prints one row per account and the net worth.
func RenderBalances(w io.Writer, f core.Formatter, accounts []dashboard.AccountBalance, total int64) error {
	fmt.Fprintln(w, TitleStyle.Render("Balances"))
	if len(accounts) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No accounts."))
		return nil
	}
	tw := table(w, "ACCOUNT", "TYPE", "BALANCE")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, a.Type, signedStyle(a.Balance).Render(f.Format(a.Balance)))
	}
	fmt.Fprintf(tw, "%s\t\t%s\n", HeaderStyle.Render("Net worth"), signedStyle(total).Render(f.Format(total)))
	return tw.Flush()
}

// RenderBudgets prints the budget views for one month with a colored status.
func RenderBudgets(w io.Writer, f core.Formatter, month core.MonthKey, views []budget.View, summary budget.Summary) error {
	fmt.Fprintln(w, TitleStyle.Render("Budgets "+month.String()))
	if len(views) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No budgets."))
		return nil
	}
	tw := table(w, "CATEGORY", "LIMIT", "SPENT", "REMAINING", "USED", "STATUS")
	for _, v := range views {
		limit := f.Format(v.Limit)
		if v.HasOverride {
			limit += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
			v.CategoryName,
			limit,
			f.Format(v.Spent),
			f.Format(v.Progress.RemainingAmount),
			v.Progress.PercentageUsed,
			StatusStyle(v.Status).Render(string(v.Status)))
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
		HeaderStyle.Render("Total"),
		f.Format(summary.TotalLimit),
		f.Format(summary.TotalSpent),
		f.Format(summary.Progress.RemainingAmount),
		summary.Progress.PercentageUsed,
		StatusStyle(summary.Progress.Status()).Render(string(summary.Progress.Status())))
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, SubtleStyle.Render("* monthly override"))
	return nil
}

// RenderTrend prints one row per period.
func RenderTrend(w io.Writer, f core.Formatter, g trend.Granularity, points []trend.Point) error {
	fmt.Fprintln(w, TitleStyle.Render("Trend ("+string(g)+")"))
	tw := table(w, "PERIOD", "INCOME", "EXPENSE", "BALANCE")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.Period,
			f.Format(p.Income),
			f.Format(p.Expense),
			signedStyle(p.Balance).Render(f.Format(p.Balance)))
	}
	return tw.Flush()
}

// RenderComparison prints a month against the previous one.
func RenderComparison(w io.Writer, f core.Formatter, c trend.Comparison) error {
	fmt.Fprintln(w, TitleStyle.Render("Comparison "+c.Month))
	tw := table(w, "", "CURRENT", "PREVIOUS", "DELTA")
	rows := []struct {
		label          string
		cur, prev, dlt int64
	}{
		{"Income", c.Current.Income, c.Previous.Income, c.Delta.Income},
		{"Expense", c.Current.Expense, c.Previous.Expense, c.Delta.Expense},
		{"Balance", c.Current.Balance, c.Previous.Balance, c.Delta.Balance},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.label, f.Format(r.cur), f.Format(r.prev), signedStyle(r.dlt).Render(f.Format(r.dlt)))
	}
	return tw.Flush()
}

// RenderTop prints a spending ranking.
func RenderTop(w io.Writer, f core.Formatter, month core.MonthKey, entries []trend.CategoryEntry) error {
	fmt.Fprintln(w, TitleStyle.Render("Top categories "+month.String()))
	if len(entries) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No spending."))
		return nil
	}
	tw := table(w, "#", "CATEGORY", "TOTAL", "COUNT", "SHARE")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.1f%%\n", i+1, e.Category, f.Format(e.TotalAmount), e.TransactionCount, e.Percentage)
	}
	return tw.Flush()
}

// RenderDates prints one date per line.
func RenderDates(w io.Writer, dates []time.Time) {
	if len(dates) == 0 {
		fmt.Fprintln(w, SubtleStyle.Render("No upcoming occurrences."))
		return
	}
	for _, d := range dates {
		fmt.Fprintln(w, d.Format(time.DateOnly))
	}
}
