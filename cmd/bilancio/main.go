package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	userFlag string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bilancio",
		Short:         "Personal finance ledger, budgets and reports",
		Long:          "bilancio records accounts, transactions, budgets and recurring series, and reports balances, budget consumption and spending trends.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&userFlag, "user", "", "user ID (default: DEFAULT_USER_ID)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(balanceCmd())
	root.AddCommand(budgetCmd())
	root.AddCommand(trendCmd())
	root.AddCommand(compareCmd())
	root.AddCommand(topCmd())
	root.AddCommand(recurringCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "bilancio", version)
		},
	}
}
