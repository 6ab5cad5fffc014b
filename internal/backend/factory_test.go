package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/notify"
	"bilancio/internal/services"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg := config.Load()
	cfg.DataBackend = "sheets"
	_, err = FromAppConfig(cfg)
	assert.Error(t, err)

	cfg.DataBackend = config.BackendMemory
	cfg.SeedDir = "seed"
	bc, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, MemoryBackend, bc.Type)
	assert.Equal(t, "seed", bc.SeedDir)
	assert.Equal(t, cfg.DefaultUserID, bc.DefaultUserID)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"unknown", Config{Type: "sheets"}, true},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "error: %v", err)
		})
	}
	assert.ElementsMatch(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestCreateBackend_MemoryPublishes(t *testing.T) {
	ctx := context.Background()
	b, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend})
	require.NoError(t, err)
	defer b.Close()
	assert.Nil(t, b.Changes)

	var got []notify.Event
	b.Notifier.Subscribe(func(_ context.Context, e notify.Event) { got = append(got, e) })

	acc, err := b.Ledger.CreateAccount(ctx, "u1", core.Account{Name: "Caja", Type: core.AccountCash})
	require.NoError(t, err)
	cat, err := b.Ledger.CreateCategory(ctx, "u1", core.Category{Name: "Comida", Kind: core.KindExpense})
	require.NoError(t, err)
	_, err = b.Ledger.CreateTransaction(ctx, "u1", services.NewTransaction{
		Type: core.Expense, Amount: 1000, Date: time.Now(), AccountID: acc.ID, Category: cat.Name,
	})
	require.NoError(t, err)

	require.NotEmpty(t, got)
	assert.Equal(t, notify.KindTransaction, got[len(got)-1].Kind)
}

func TestCreateBackend_MemorySeeded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("Libros\n# comment\nCine\n"), 0o644))

	b, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedDir: dir, DefaultUserID: "me"})
	require.NoError(t, err)
	defer b.Close()

	cats, err := b.Store.ListCategories(context.Background(), "me")
	require.NoError(t, err)
	var names []string
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Libros")
	assert.Contains(t, names, "Cine")
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bilancio.db")
	b, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)

	_, err = b.Ledger.CreateAccount(context.Background(), "u1", core.Account{Name: "Banco", Type: core.AccountChecking})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestCreateBackend_InvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: "nope"})
	assert.Error(t, err)
}
