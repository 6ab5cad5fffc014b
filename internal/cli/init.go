// Package cli provides the initialization shared by cmd/bilancio and
// cmd/bilancio-worker, and the terminal rendering used by the CLI commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/mirror"
	"bilancio/internal/sheets/google"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment and the settings file, then validates both.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.LoadSettings(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the process logger from cfg and installs it as the slog
// default. Output defaults to stdout.
func SetupLogger(cfg *config.Config, component string, out io.Writer) (*applog.Logger, error) {
	level, err := applog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger, nil
}

// NewMirrorSink returns the Google Sheets sink when a spreadsheet is
// configured and a NopSink otherwise.
func NewMirrorSink(ctx context.Context, cfg *config.Config, loc *time.Location, logger *slog.Logger) (mirror.Sink, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("No spreadsheet configured, mirror writes are discarded")
		return mirror.NopSink{}, nil
	}
	client, err := google.NewFromEnv(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("init Google Sheets client: %w", err)
	}
	logger.Info("Initialized Google Sheets mirror",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
	return client, nil
}

// MirrorConfig maps the application config onto the queue config.
func MirrorConfig(cfg *config.Config) mirror.Config {
	return mirror.Config{
		FlushInterval: cfg.MirrorInterval,
		MaxRetries:    cfg.MirrorMaxRetries,
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout, and done is
// closed once it returns.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	return gracefulShutdown(logger, timeout, cleanup, syscall.SIGINT, syscall.SIGTERM)
}

func gracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context), sigs ...os.Signal) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)

	go func() {
		defer close(done)
		sig := <-sigChan
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()
		if cleanup == nil {
			return
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			cleanup(shutdownCtx)
			close(finished)
		}()
		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
