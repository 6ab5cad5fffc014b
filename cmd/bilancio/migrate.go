package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"bilancio/internal/cli"
	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := sqliteConfig()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0o755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
				return err
			}
			return printVersion(cmd, cfg.SQLiteDBPath)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Revert migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid steps %q: %w", args[0], err)
				}
				steps = n
			}
			cfg, err := sqliteConfig()
			if err != nil {
				return err
			}
			if err := storage.RollbackMigrations(cfg.SQLiteDBPath, steps); err != nil {
				return err
			}
			return printVersion(cmd, cfg.SQLiteDBPath)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := sqliteConfig()
			if err != nil {
				return err
			}
			return printVersion(cmd, cfg.SQLiteDBPath)
		},
	})
	return cmd
}

func sqliteConfig() (*config.Config, error) {
	cfg, _, err := loadConfig(applog.ComponentStorage, os.Stderr)
	if err != nil {
		return nil, err
	}
	if cfg.DataBackend != config.BackendSQLite {
		return nil, errors.New("migrations only apply to the sqlite backend")
	}
	return cfg, nil
}

func printVersion(cmd *cobra.Command, dbPath string) error {
	v, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	out := fmt.Sprintf("schema version %d", v)
	if dirty {
		fmt.Fprintln(cmd.OutOrStdout(), cli.ErrorStyle.Render(out+" (dirty)"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(out))
	return nil
}
