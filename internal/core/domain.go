package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Weekly   Recurrence = "weekly"
	Biweekly Recurrence = "biweekly"
	Monthly  Recurrence = "monthly"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	AccountCash     AccountType = "cash"
	AccountChecking AccountType = "checking"
	AccountCard     AccountType = "card"
	AccountSavings  AccountType = "savings"
	AccountOther    AccountType = "other"
)

const (
	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
)

// TransferCategoryID is the reserved system category tagging both legs of a
// transfer between the user's own accounts.
const TransferCategoryID = "transfer"

// TransferCategoryName is the display name of the reserved transfer category.
const TransferCategoryName = "Transferencia entre cuentas"

type (
	Recurrence      string
	TransactionType string
	AccountType     string
	CategoryKind    string

	Account struct {
		ID             string
		Name           string
		Type           AccountType
		InitialBalance int64 // minor units, immutable after creation
		Color          string
		CreatedAt      time.Time
	}

	Category struct {
		ID        string
		Name      string
		Kind      CategoryKind // optional
		Icon      string       // optional
		CreatedAt time.Time
	}

	Transaction struct {
		ID         string
		Type       TransactionType
		Amount     int64 // always positive, sign comes from Type
		Date       time.Time
		AccountID  string
		CategoryID string
		Note       string
		CreatedAt  time.Time
	}

	CategoryBudget struct {
		ID            string
		CategoryID    string
		DefaultAmount int64
		CreatedAt     time.Time
	}

	MonthlyBudgetAdjustment struct {
		ID             string
		BudgetID       string
		Month          MonthKey
		AdjustedAmount int64
		CreatedAt      time.Time
	}

	RecurringTransaction struct {
		ID         string
		Type       TransactionType
		Amount     int64
		StartDate  time.Time
		EndDate    time.Time // zero means open-ended
		AccountID  string
		CategoryID string
		Note       string
		Recurrence Recurrence
		IsPaused   bool
		CreatedAt  time.Time
	}
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrEmptyName              = errors.New("empty name")
	ErrEmptyAccount           = errors.New("empty account id")
	ErrEmptyCategory          = errors.New("empty category id")
	ErrEmptyBudget            = errors.New("empty budget id")
	ErrZeroDate               = errors.New("date cannot be zero")
	ErrUnknownRecurrence      = errors.New("unknown recurrence")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrUnknownAccountType     = errors.New("unknown account type")
	ErrUnknownCategoryKind    = errors.New("unknown category kind")
	ErrSystemCategory         = errors.New("system category is read-only")
)

func (r Recurrence) Valid() bool {
	switch r {
	case Weekly, Biweekly, Monthly:
		return true
	}
	return false
}

// ParseRecurrence normalizes s and rejects anything outside weekly|biweekly|monthly.
func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRecurrence, s)
	}
	return r, nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, s)
	}
	return t, nil
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountChecking, AccountCard, AccountSavings, AccountOther:
		return true
	}
	return false
}

func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAccountType, s)
	}
	return t, nil
}

// Valid reports whether k is a known kind. The empty kind is allowed.
func (k CategoryKind) Valid() bool {
	return k == "" || k == KindIncome || k == KindExpense
}

func ParseCategoryKind(s string) (CategoryKind, error) {
	k := CategoryKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategoryKind, s)
	}
	return k, nil
}

// Signed returns the contribution of t to its account balance.
func (t Transaction) Signed() (int64, error) {
	switch t.Type {
	case Income:
		return t.Amount, nil
	case Expense:
		return -t.Amount, nil
	default:
		return 0, fmt.Errorf("%w: %q (transaction %s)", ErrUnknownTransactionType, t.Type, t.ID)
	}
}

// IsTransfer reports whether t is one leg of a transfer.
func (t Transaction) IsTransfer() bool {
	return t.CategoryID == TransferCategoryID
}

// IsSystem reports whether c is the reserved transfer category.
func (c Category) IsSystem() bool {
	return c.ID == TransferCategoryID
}

// TransferCategory returns the reserved system category.
func TransferCategory() Category {
	return Category{ID: TransferCategoryID, Name: TransferCategoryName}
}

// UserCategories drops the system category, preserving order.
func UserCategories(cats []Category) []Category {
	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		if c.IsSystem() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// IndexCategories builds a lookup by category ID.
func IndexCategories(cats []Category) map[string]Category {
	idx := make(map[string]Category, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAccountType, a.Type)
	}
	if a.InitialBalance < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if c.IsSystem() {
		return ErrSystemCategory
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 60 {
		return errors.New("category name too long (max 60 characters)")
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategoryKind, c.Kind)
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTransactionType, t.Type)
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if len(t.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}

func (b CategoryBudget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if b.CategoryID == TransferCategoryID {
		return ErrSystemCategory
	}
	if b.DefaultAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a MonthlyBudgetAdjustment) Validate() error {
	if strings.TrimSpace(a.BudgetID) == "" {
		return ErrEmptyBudget
	}
	if err := a.Month.Validate(); err != nil {
		return err
	}
	if a.AdjustedAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if rt.StartDate.IsZero() {
		return errors.New("invalid start date: " + ErrZeroDate.Error())
	}

	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate) {
		return errors.New("end date must be after start date")
	}

	if !rt.Recurrence.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRecurrence, rt.Recurrence)
	}
	if !rt.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTransactionType, rt.Type)
	}

	if rt.Amount <= 0 {
		return ErrInvalidAmount
	}

	if strings.TrimSpace(rt.AccountID) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(rt.CategoryID) == "" {
		return ErrEmptyCategory
	}

	return nil
}
