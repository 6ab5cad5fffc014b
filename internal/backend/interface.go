// Package backend wires a storage backend together with the services that
// write through it and the notifier they publish to.
package backend

import (
	"context"

	"bilancio/internal/amqp"
	"bilancio/internal/budget"
	"bilancio/internal/notify"
	"bilancio/internal/services"
	"bilancio/internal/store"
)

// BackendType represents the type of storage backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend is everything the entry points need from storage. Changes is nil
// when no AMQP URL is configured.
type Backend struct {
	Store    store.Store
	Notifier *notify.Notifier
	Ledger   *services.LedgerService
	Budgets  *budget.Service
	Changes  *amqp.Client
	Cleanup  CleanupFunc
}

// Close runs the cleanup function, if any.
func (b *Backend) Close() error {
	if b == nil || b.Cleanup == nil {
		return nil
	}
	return b.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// SeedDir and DefaultUserID seed the memory backend.
	SeedDir       string
	DefaultUserID string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}
