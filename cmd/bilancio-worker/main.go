// Command bilancio-worker consumes change messages from AMQP and mirrors the
// affected transactions and budget months to Google Sheets.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/mirror"
	"bilancio/internal/notify"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger, err := cli.SetupLogger(cfg, applog.ComponentMirror, os.Stdout)
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *applog.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required")
	}
	if cfg.DataBackend != config.BackendSQLite {
		return errors.New("the worker reads the sqlite backend, set DATA_BACKEND=sqlite")
	}
	logger.Info("Starting bilancio-worker")

	loc, err := cfg.Settings.Location()
	if err != nil {
		return err
	}

	// The worker only reads the store. It consumes from the broker instead
	// of publishing to it.
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	bcfg.AMQPURL = ""
	b, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		return err
	}
	defer b.Close()

	sink, err := cli.NewMirrorSink(context.Background(), cfg, loc, logger.Logger)
	if err != nil {
		return err
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer consumer.Close()

	queue := mirror.NewQueue(mirror.StoreLoader{Store: b.Store, Location: loc}, sink, cli.MirrorConfig(cfg))
	changes := notify.New()
	changes.Subscribe(queue.HandleEvent)

	ctx, done := cli.GracefulShutdown(logger.Logger, shutdownTimeout, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := queue.Dispose(ctx); err != nil {
			logger.Warn("Mirror queue did not drain", "error", err, "pending", queue.Pending())
		}
	})

	if err := queue.Init(ctx); err != nil {
		return err
	}

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- consumer.ConsumeChanges(ctx, amqp.Republish(changes))
	}()

	select {
	case <-ctx.Done():
	case err := <-consumeErr:
		if ctx.Err() != nil {
			break
		}
		// consumption gave up on its own, drain what is queued and exit
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if derr := queue.Dispose(drainCtx); derr != nil {
			logger.Warn("Mirror queue did not drain", "error", derr, "pending", queue.Pending())
		}
		return err
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
	return nil
}
