// Package memory is a process-local store.Store used by the memory backend
// and by tests. It enforces the same uniqueness rules as the SQLite schema.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

type userData struct {
	accounts     []core.Account
	categories   []core.Category
	transactions []core.Transaction
	budgets      []core.CategoryBudget
	adjustments  []core.MonthlyBudgetAdjustment
	recurring    []core.RecurringTransaction
}

type Store struct {
	mu    sync.Mutex
	users map[string]*userData
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]*userData), now: time.Now}
}

// NewFromFiles seeds userID's categories from base/seed_categories.txt, one
// name per line. Blank lines and '#' comments are ignored. A missing file
// yields a small default set.
func NewFromFiles(base, userID string) (*Store, error) {
	names := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(names) == 0 {
		names = []string{"Comida", "Transporte", "Hogar"}
	}
	s := New()
	for _, n := range names {
		if _, err := s.CreateCategory(context.Background(), userID, core.Category{Name: n, Kind: core.KindExpense}); err != nil {
			return nil, fmt.Errorf("seed category %q: %w", n, err)
		}
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

// user returns the data for id, creating it on first use. Callers hold s.mu.
func (s *Store) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{}
		s.users[id] = u
	}
	return u
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Account{}, s.user(userID).accounts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, userID string, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = s.now()
	u := s.user(userID)
	u.accounts = append(u.accounts, a)
	return a, nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := append([]core.Category{}, s.user(userID).categories...)
	sort.SliceStable(user, func(i, j int) bool { return user[i].Name < user[j].Name })
	return append([]core.Category{core.TransferCategory()}, user...), nil
}

func (s *Store) CreateCategory(_ context.Context, userID string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for _, existing := range u.categories {
		if existing.Name == c.Name {
			return core.Category{}, fmt.Errorf("category %q: %w", c.Name, store.ErrConflict)
		}
	}
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	u.categories = append(u.categories, c)
	return c, nil
}

func (u *userData) hasAccount(id string) bool {
	for _, a := range u.accounts {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (u *userData) hasCategory(id string) bool {
	if id == core.TransferCategoryID {
		return true
	}
	for _, c := range u.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) ListTransactions(_ context.Context, userID string, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Transaction{}, s.user(userID).transactions...)
	if limit <= 0 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
		return out, nil
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.user(userID).transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, notFound("transaction", id)
}

func (s *Store) CreateTransaction(_ context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if err := u.checkRefs(tx); err != nil {
		return core.Transaction{}, err
	}
	tx = s.stamp(tx)
	u.transactions = append(u.transactions, tx)
	return tx, nil
}

// CreateTransfer checks both legs before appending either.
func (s *Store) CreateTransfer(_ context.Context, userID string, out, in core.Transaction) (core.Transaction, core.Transaction, error) {
	for _, leg := range []core.Transaction{out, in} {
		if err := leg.Validate(); err != nil {
			return core.Transaction{}, core.Transaction{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for _, leg := range []core.Transaction{out, in} {
		if err := u.checkRefs(leg); err != nil {
			return core.Transaction{}, core.Transaction{}, err
		}
	}
	out, in = s.stamp(out), s.stamp(in)
	u.transactions = append(u.transactions, out, in)
	return out, in, nil
}

func (u *userData) checkRefs(tx core.Transaction) error {
	if !u.hasAccount(tx.AccountID) {
		return notFound("account", tx.AccountID)
	}
	if !u.hasCategory(tx.CategoryID) {
		return notFound("category", tx.CategoryID)
	}
	return nil
}

func (s *Store) stamp(tx core.Transaction) core.Transaction {
	tx.ID = uuid.NewString()
	tx.CreatedAt = s.now()
	return tx
}

func (s *Store) ListCategoryBudgets(_ context.Context, userID string) ([]core.CategoryBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.CategoryBudget{}, s.user(userID).budgets...), nil
}

func (s *Store) GetCategoryBudget(_ context.Context, userID, budgetID string) (core.CategoryBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user(userID).budget(budgetID)
}

func (u *userData) budget(id string) (core.CategoryBudget, error) {
	for _, b := range u.budgets {
		if b.ID == id {
			return b, nil
		}
	}
	return core.CategoryBudget{}, notFound("budget", id)
}

func (s *Store) CreateCategoryBudget(_ context.Context, userID string, b core.CategoryBudget) (core.CategoryBudget, error) {
	if err := b.Validate(); err != nil {
		return core.CategoryBudget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if !u.hasCategory(b.CategoryID) {
		return core.CategoryBudget{}, notFound("category", b.CategoryID)
	}
	for _, existing := range u.budgets {
		if existing.CategoryID == b.CategoryID {
			return core.CategoryBudget{}, fmt.Errorf("budget for category %s: %w", b.CategoryID, store.ErrConflict)
		}
	}
	b.ID = uuid.NewString()
	b.CreatedAt = s.now()
	u.budgets = append(u.budgets, b)
	return b, nil
}

func (s *Store) ListMonthlyAdjustments(_ context.Context, userID string, month core.MonthKey) ([]core.MonthlyBudgetAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.MonthlyBudgetAdjustment{}
	for _, a := range s.user(userID).adjustments {
		if a.Month == month {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) FindMonthlyAdjustment(_ context.Context, userID, budgetID string, month core.MonthKey) (core.MonthlyBudgetAdjustment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.user(userID).adjustmentIndex(budgetID, month); i >= 0 {
		return s.users[userID].adjustments[i], nil
	}
	return core.MonthlyBudgetAdjustment{}, notFound("adjustment", budgetID+"/"+month.String())
}

func (u *userData) adjustmentIndex(budgetID string, month core.MonthKey) int {
	for i, a := range u.adjustments {
		if a.BudgetID == budgetID && a.Month == month {
			return i
		}
	}
	return -1
}

func (u *userData) adjustmentByID(id string) int {
	for i, a := range u.adjustments {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) CreateMonthlyAdjustment(_ context.Context, userID string, a core.MonthlyBudgetAdjustment) (core.MonthlyBudgetAdjustment, error) {
	if err := a.Validate(); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if _, err := u.budget(a.BudgetID); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	if u.adjustmentIndex(a.BudgetID, a.Month) >= 0 {
		return core.MonthlyBudgetAdjustment{}, fmt.Errorf("adjustment %s/%s: %w", a.BudgetID, a.Month, store.ErrConflict)
	}
	a.ID = uuid.NewString()
	a.CreatedAt = s.now()
	u.adjustments = append(u.adjustments, a)
	return a, nil
}

func (s *Store) UpsertMonthlyAdjustment(_ context.Context, userID string, a core.MonthlyBudgetAdjustment) (core.MonthlyBudgetAdjustment, error) {
	if err := a.Validate(); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if _, err := u.budget(a.BudgetID); err != nil {
		return core.MonthlyBudgetAdjustment{}, err
	}
	if i := u.adjustmentIndex(a.BudgetID, a.Month); i >= 0 {
		u.adjustments[i].AdjustedAmount = a.AdjustedAmount
		return u.adjustments[i], nil
	}
	a.ID = uuid.NewString()
	a.CreatedAt = s.now()
	u.adjustments = append(u.adjustments, a)
	return a, nil
}

func (s *Store) UpdateMonthlyAdjustment(_ context.Context, userID, id string, amount int64) error {
	if amount < 0 {
		return core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := u.adjustmentByID(id)
	if i < 0 {
		return notFound("adjustment", id)
	}
	u.adjustments[i].AdjustedAmount = amount
	return nil
}

func (s *Store) DeleteMonthlyAdjustment(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := u.adjustmentByID(id)
	if i < 0 {
		return notFound("adjustment", id)
	}
	u.adjustments = append(u.adjustments[:i], u.adjustments[i+1:]...)
	return nil
}

func (s *Store) ListRecurring(_ context.Context, userID string) ([]core.RecurringTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RecurringTransaction{}, s.user(userID).recurring...), nil
}

func (s *Store) GetRecurring(_ context.Context, userID, id string) (core.RecurringTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.user(userID).recurring {
		if rt.ID == id {
			return rt, nil
		}
	}
	return core.RecurringTransaction{}, notFound("recurring", id)
}

func (s *Store) CreateRecurring(_ context.Context, userID string, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if !u.hasAccount(rt.AccountID) {
		return core.RecurringTransaction{}, notFound("account", rt.AccountID)
	}
	if !u.hasCategory(rt.CategoryID) {
		return core.RecurringTransaction{}, notFound("category", rt.CategoryID)
	}
	rt.ID = uuid.NewString()
	rt.CreatedAt = s.now()
	u.recurring = append(u.recurring, rt)
	return rt, nil
}

func (s *Store) SetRecurringPaused(_ context.Context, userID, id string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for i := range u.recurring {
		if u.recurring[i].ID == id {
			u.recurring[i].IsPaused = paused
			return nil
		}
	}
	return notFound("recurring", id)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, preserving first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
