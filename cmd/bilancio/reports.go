package main

import (
	"github.com/spf13/cobra"

	"bilancio/internal/cli"
	"bilancio/internal/trend"
)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show account balances and net worth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			accounts, total, err := a.dashboard.Balances(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			return cli.RenderBalances(cmd.OutOrStdout(), a.formatter, accounts, total)
		},
	}
}

func trendCmd() *cobra.Command {
	var (
		granularity string
		window      int
	)
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show income and expense per period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := trend.ParseGranularity(granularity)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if window <= 0 {
				window = a.cfg.Settings.TrendWindow
			}
			points, err := a.dashboard.Trend(cmd.Context(), a.userID, g, window, a.now())
			if err != nil {
				return err
			}
			return cli.RenderTrend(cmd.OutOrStdout(), a.formatter, g, points)
		},
	}
	cmd.Flags().StringVarP(&granularity, "granularity", "g", string(trend.Monthly), "daily, weekly or monthly")
	cmd.Flags().IntVarP(&window, "window", "w", 0, "number of periods (default: trend_window setting)")
	return cmd
}

func compareCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a month with the previous one",
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
			c, err := a.dashboard.Comparison(cmd.Context(), a.userID, m)
			if err != nil {
				return err
			}
			return cli.RenderComparison(cmd.OutOrStdout(), a.formatter, c)
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month as MM-YYYY (default: current)")
	return cmd
}

func topCmd() *cobra.Command {
	var (
		month string
		n     int
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank expense categories for a month",
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
			if n <= 0 {
				n = a.cfg.Settings.TopCategories
			}
			entries, err := a.dashboard.TopCategories(cmd.Context(), a.userID, m, n)
			if err != nil {
				return err
			}
			return cli.RenderTop(cmd.OutOrStdout(), a.formatter, m, entries)
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "month as MM-YYYY (default: current)")
	cmd.Flags().IntVarP(&n, "limit", "n", 0, "number of categories (default: top_categories setting)")
	return cmd
}
