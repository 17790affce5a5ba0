package model

import (
	"time"

	"github.com/cleared-dev/envelope/internal/money"
)

// AccountType classifies budget accounts.
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeCash     AccountType = "cash"
	AccountTypeCredit   AccountType = "credit"
	AccountTypeTracking AccountType = "tracking"
)

// AccountTypes lists every known type.
var AccountTypes = []AccountType{
	AccountTypeChecking,
	AccountTypeSavings,
	AccountTypeCash,
	AccountTypeCredit,
	AccountTypeTracking,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	for _, at := range AccountTypes {
		if t == at {
			return true
		}
	}
	return false
}

// OnBudget reports whether transactions on this account type feed the budget.
// Tracking accounts are off-budget.
func (t AccountType) OnBudget() bool {
	return t != AccountTypeTracking
}

// Account is a bank, cash, credit or tracking account.
//
// The three balance fields are derived from transactions on every snapshot
// load; ReconciledBalance and LastReconciledAt are the stored snapshot written
// by the last reconciliation commit.
type Account struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Type              AccountType `json:"type"`
	Closed            bool        `json:"closed"`
	ClearedBalance    money.Money `json:"clearedBalance"`
	UnclearedBalance  money.Money `json:"unclearedBalance"`
	WorkingBalance    money.Money `json:"workingBalance"`
	ReconciledBalance money.Money `json:"reconciledBalance"`
	LastReconciledAt  time.Time   `json:"lastReconciledAt,omitzero"`
}
