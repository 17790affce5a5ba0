package model

import (
	"time"

	"github.com/cleared-dev/envelope/internal/money"
)

// ClearedStatus is the confidence state of a transaction.
type ClearedStatus string

const (
	StatusUncleared  ClearedStatus = "uncleared"
	StatusCleared    ClearedStatus = "cleared"
	StatusReconciled ClearedStatus = "reconciled"
)

// Rank orders statuses: Uncleared < Cleared < Reconciled. Unknown is -1.
func (s ClearedStatus) Rank() int {
	switch s {
	case StatusUncleared:
		return 0
	case StatusCleared:
		return 1
	case StatusReconciled:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s ClearedStatus) Valid() bool {
	return s.Rank() >= 0
}

// Transaction is one ledger line on an account.
type Transaction struct {
	ID         string        `json:"id"`
	AccountID  string        `json:"accountId"`
	Date       time.Time     `json:"date"`
	Payee      string        `json:"payee"`
	Memo       string        `json:"memo,omitempty"`
	CategoryID string        `json:"categoryId,omitempty"` // empty = uncategorized
	Inflow     money.Money   `json:"inflow"`
	Outflow    money.Money   `json:"outflow"`
	Cleared    ClearedStatus `json:"clearedStatus"`
	TransferID string        `json:"transferId,omitempty"`
	Deleted    bool          `json:"deleted,omitempty"`
}

// Amount is the signed effect on the account: inflow positive, outflow negative.
func (t Transaction) Amount() money.Money {
	return t.Inflow - t.Outflow
}

// IsTransfer reports whether t is one leg of a transfer pair.
func (t Transaction) IsTransfer() bool {
	return t.TransferID != ""
}

// IsCleared reports whether t counts toward the cleared balance.
func (t Transaction) IsCleared() bool {
	return t.Cleared == StatusCleared || t.Cleared == StatusReconciled
}
