package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bilancio/internal/cache"
	"bilancio/internal/cli"
	"bilancio/internal/dashboard"
	apphttp "bilancio/internal/http"
	applog "bilancio/internal/log"
	"bilancio/internal/mirror"
)

type dashboardCache = cache.Cache[*dashboard.Snapshot]

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the JSON API on PORT (or --addr). Dashboard snapshots are cached and
invalidated on every change. When a spreadsheet is configured and no AMQP
broker is, changes are mirrored to Google Sheets in process; with a broker,
bilancio-worker does the mirroring.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":\"+PORT)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, logger, err := loadConfig(applog.ComponentApp, os.Stdout)
	if err != nil {
		return err
	}
	snapshots := cache.NewLRUCache[*dashboard.Snapshot](cfg.CacheSize, cfg.CacheTTL)
	a, err := newApp(ctx, cfg, logger, snapshots)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("Failed to close backend", "error", err)
		}
	}()

	unsubscribe := a.dashboard.Subscribe(a.backend.Notifier)
	defer unsubscribe()

	janitor := cache.NewJanitor()
	janitor.Register(snapshots)
	if a.cfg.CacheTTL > 0 {
		janitor.Start(a.cfg.CacheTTL)
		defer janitor.Stop()
	}

	var queue *mirror.Queue
	if a.cfg.GoogleSpreadsheetID != "" && a.backend.Changes == nil {
		sink, err := cli.NewMirrorSink(ctx, a.cfg, a.loc, a.logger.Logger)
		if err != nil {
			return err
		}
		queue = mirror.NewQueue(mirror.StoreLoader{Store: a.backend.Store, Location: a.loc}, sink, cli.MirrorConfig(a.cfg))
		a.backend.Notifier.Subscribe(queue.HandleEvent)
		if err := queue.Init(ctx); err != nil {
			return err
		}
	}

	if addr == "" {
		addr = ":" + a.cfg.Port
	}
	srv := apphttp.NewServer(addr, apphttp.Deps{
		Dashboard:     a.dashboard,
		Budgets:       a.backend.Budgets,
		Ledger:        a.backend.Ledger,
		DefaultUserID: a.cfg.DefaultUserID,
		Ready:         readiness(a),
		Defaults: dashboard.Options{
			Window:    a.cfg.Settings.TrendWindow,
			TopN:      a.cfg.Settings.TopCategories,
			CutoffDay: a.cfg.Settings.CutoffDay,
		},
		Logger: a.logger,
	})
	srv.WriteTimeout = 20 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting bilancio server", "addr", addr, "backend", a.cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			a.logger.Error("Server error", "error", err, "addr", addr)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown error", "error", err)
	}
	if queue != nil {
		if err := queue.Dispose(shutdownCtx); err != nil {
			a.logger.Warn("Mirror queue did not drain", "error", err, "pending", queue.Pending())
		}
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}

// readiness pings the store when it supports it.
func readiness(a *app) func(context.Context) error {
	p, ok := a.backend.Store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping
}
