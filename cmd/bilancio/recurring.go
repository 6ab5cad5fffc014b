package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bilancio/internal/cli"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Inspect and pause recurring series",
	}
	cmd.AddCommand(recurringUpcomingCmd())
	cmd.AddCommand(recurringPauseCmd(true))
	cmd.AddCommand(recurringPauseCmd(false))
	return cmd
}

func recurringUpcomingCmd() *cobra.Command {
	var (
		from  string
		count int
	)
	cmd := &cobra.Command{
		Use:   "upcoming <id>",
		Short: "List the next occurrences of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var start time.Time
			if from != "" {
				if start, err = time.ParseInLocation(time.DateOnly, from, a.loc); err != nil {
					return fmt.Errorf("invalid --from %q, expected YYYY-MM-DD", from)
				}
			}
			dates, err := a.dashboard.Upcoming(cmd.Context(), a.userID, args[0], start, count)
			if err != nil {
				return err
			}
			cli.RenderDates(cmd.OutOrStdout(), dates)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date as YYYY-MM-DD (default: today)")
	cmd.Flags().IntVarP(&count, "count", "n", 12, "number of occurrences")
	return cmd
}

func recurringPauseCmd(paused bool) *cobra.Command {
	use, short, done := "resume <id>", "Resume a paused series", "resumed"
	if paused {
		use, short, done = "pause <id>", "Pause a series", "paused"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.backend.Ledger.SetRecurringPaused(cmd.Context(), a.userID, args[0], paused); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(args[0]+" "+done))
			return nil
		},
	}
}
