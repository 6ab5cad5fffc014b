package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/budget"
	"bilancio/internal/notify"
	"bilancio/internal/services"
	"bilancio/internal/storage"
	"bilancio/internal/storage/memory"
	"bilancio/internal/store"
)

type closableStore interface {
	store.Store
	Close() error
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the store, builds the services on a fresh notifier
// and, when configured, forwards every change to the broker.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		st  closableStore
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		st, err = f.createSQLiteStore(config)
	case MemoryBackend:
		st, err = f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	n := notify.New()
	b := &Backend{
		Store:    st,
		Notifier: n,
		Ledger:   services.NewLedgerService(st, n),
		Budgets:  budget.NewService(st, n),
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change transport", "error", err)
		} else {
			b.Changes = client
			n.Subscribe(amqp.NewBridge(client).Publish)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	b.Cleanup = func() error {
		var errs []error
		if b.Changes != nil {
			errs = append(errs, b.Changes.Close())
		}
		errs = append(errs, st.Close())
		return errors.Join(errs...)
	}
	return b, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (closableStore, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (closableStore, error) {
	if config.SeedDir == "" {
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	}
	userID := config.DefaultUserID
	if userID == "" {
		userID = "default"
	}
	st, err := memory.NewFromFiles(config.SeedDir, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_dir", config.SeedDir, "user_id", userID)
	return st, nil
}
