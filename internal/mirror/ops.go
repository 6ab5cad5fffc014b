// Package mirror keeps an external copy (a spreadsheet) of the ledger in
// step with local writes. Operations are queued in memory and written by an
// explicit flush, so local writes never wait on the remote side.
package mirror

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/budget"
	"bilancio/internal/core"
)

type OpKind string

const (
	OpTransaction OpKind = "transaction"
	OpBudgetMonth OpKind = "budget_month"
)

// Op is a unit of mirroring work.
type Op struct {
	Kind          OpKind
	UserID        string
	TransactionID string
	Month         core.MonthKey
}

func TransactionOp(userID, transactionID string) Op {
	return Op{Kind: OpTransaction, UserID: userID, TransactionID: transactionID}
}

func BudgetMonthOp(userID string, month core.MonthKey) Op {
	return Op{Kind: OpBudgetMonth, UserID: userID, Month: month}
}

// coalesceKey returns a non-empty key for ops that replace each other when
// queued more than once. Budget months are rewritten whole, so only the
// latest request matters.
func (o Op) coalesceKey() string {
	if o.Kind == OpBudgetMonth {
		return fmt.Sprintf("%s/%s/%s", o.Kind, o.UserID, o.Month)
	}
	return ""
}

func (o Op) String() string {
	switch o.Kind {
	case OpTransaction:
		return fmt.Sprintf("%s:%s:%s", o.Kind, o.UserID, o.TransactionID)
	default:
		return fmt.Sprintf("%s:%s:%s", o.Kind, o.UserID, o.Month)
	}
}

// TransactionRow is a transaction with display names resolved.
type TransactionRow struct {
	ID       string
	Date     time.Time
	Type     core.TransactionType
	Amount   int64
	Account  string
	Category string
	Note     string
}

// Loader reads the data an op needs at flush time, so the mirror always
// reflects the latest stored state.
type Loader interface {
	LoadTransaction(ctx context.Context, userID, id string) (TransactionRow, error)
	LoadBudgetMonth(ctx context.Context, userID string, month core.MonthKey) ([]budget.View, error)
}

// Sink is the remote side of the mirror.
type Sink interface {
	AppendTransaction(ctx context.Context, userID string, row TransactionRow) error
	WriteBudgetMonth(ctx context.Context, userID string, month core.MonthKey, views []budget.View) error
}

// NopSink discards everything. It is used when no remote is configured.
type NopSink struct{}

func (NopSink) AppendTransaction(context.Context, string, TransactionRow) error { return nil }

func (NopSink) WriteBudgetMonth(context.Context, string, core.MonthKey, []budget.View) error {
	return nil
}
