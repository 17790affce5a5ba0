package ledger

import (
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// Balance is the derived state of one account.
type Balance struct {
	Cleared   money.Money
	Uncleared money.Money
}

// Working is cleared plus uncleared.
func (b Balance) Working() money.Money {
	return b.Cleared + b.Uncleared
}

// Balances sums non-deleted transactions per account.
func Balances(txns []model.Transaction) map[string]Balance {
	out := make(map[string]Balance)
	for _, t := range txns {
		if t.Deleted {
			continue
		}
		b := out[t.AccountID]
		if t.IsCleared() {
			b.Cleared += t.Amount()
		} else {
			b.Uncleared += t.Amount()
		}
		out[t.AccountID] = b
	}
	return out
}

// ClearedBalance returns the cleared balance of one account.
func ClearedBalance(txns []model.Transaction, accountID string) money.Money {
	var total money.Money
	for _, t := range txns {
		if t.Deleted || t.AccountID != accountID || !t.IsCleared() {
			continue
		}
		total += t.Amount()
	}
	return total
}

// WithBalances returns a copy of accounts with the derived balance fields set.
func WithBalances(accounts []model.Account, txns []model.Transaction) []model.Account {
	balances := Balances(txns)
	out := make([]model.Account, len(accounts))
	for i, a := range accounts {
		b := balances[a.ID]
		a.ClearedBalance = b.Cleared
		a.UnclearedBalance = b.Uncleared
		a.WorkingBalance = b.Working()
		out[i] = a
	}
	return out
}
