// Package balance derives account balances from transactions.
//
// A balance is never stored as ground truth: it is always the account's
// initial balance plus the signed sum of its transactions.
package balance

import (
	"fmt"

	"bilancio/internal/core"
)

// Compute returns initial plus the signed amounts of every transaction
// referencing accountID. The result does not depend on transaction order.
func Compute(accountID string, initial int64, txs []core.Transaction) (int64, error) {
	bal := initial
	for _, tx := range txs {
		if tx.AccountID != accountID {
			continue
		}
		v, err := tx.Signed()
		if err != nil {
			return 0, fmt.Errorf("account %s: %w", accountID, err)
		}
		bal += v
	}
	return bal, nil
}

// ComputeAll returns the balance of every account in a single pass over txs.
// Transactions referencing unknown accounts are ignored.
func ComputeAll(accounts []core.Account, txs []core.Transaction) (map[string]int64, error) {
	out := make(map[string]int64, len(accounts))
	for _, a := range accounts {
		out[a.ID] = a.InitialBalance
	}
	for _, tx := range txs {
		cur, ok := out[tx.AccountID]
		if !ok {
			continue
		}
		v, err := tx.Signed()
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", tx.AccountID, err)
		}
		out[tx.AccountID] = cur + v
	}
	return out, nil
}

// Total sums a set of balances.
func Total(balances map[string]int64) int64 {
	var sum int64
	for _, v := range balances {
		sum += v
	}
	return sum
}
