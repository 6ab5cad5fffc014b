package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/dashboard"
	applog "bilancio/internal/log"
)

// app is what every data command needs: config, logger, an open backend
// and the read service over it.
type app struct {
	cfg       *config.Config
	logger    *applog.Logger
	backend   *backend.Backend
	dashboard *dashboard.Service
	loc       *time.Location
	formatter core.Formatter
	userID    string
}

func loadConfig(component string, logOut io.Writer) (*config.Config, *applog.Logger, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := cli.SetupLogger(cfg, component, logOut)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openApp opens the configured backend for a CLI command. Its logs go to
// stderr so they never mix with the report.
func openApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig(applog.ComponentCLI, os.Stderr)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logger, nil)
}

// newApp opens the backend described by cfg. dash caches dashboard
// snapshots; nil disables caching.
func newApp(ctx context.Context, cfg *config.Config, logger *applog.Logger, dash dashboardCache) (*app, error) {
	loc, err := cfg.Settings.Location()
	if err != nil {
		return nil, err
	}
	formatter, err := cfg.Settings.Formatter()
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	b, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	userID := userFlag
	if userID == "" {
		userID = cfg.DefaultUserID
	}
	return &app{
		cfg:       cfg,
		logger:    logger,
		backend:   b,
		dashboard: dashboard.NewService(b.Store, dash, loc),
		loc:       loc,
		formatter: formatter,
		userID:    userID,
	}, nil
}

func (a *app) Close() error {
	return a.backend.Close()
}

func (a *app) now() time.Time {
	return time.Now().In(a.loc)
}

// monthFlag parses an MM-YYYY flag, empty meaning the current month.
func (a *app) monthFlag(v string) (core.MonthKey, error) {
	if v == "" {
		return core.MonthKeyOf(a.now()), nil
	}
	return core.ParseMonthKey(v)
}
