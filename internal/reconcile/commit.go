// Package reconcile locks cleared transactions against a confirmed bank
// statement balance.
package reconcile

import (
	"encoding/json"
	"time"

	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// DefaultTolerance is the largest statement difference accepted as a match.
const DefaultTolerance = money.Cent

// Info is what the Input step needs to know about an account.
type Info struct {
	AccountID           string      `json:"accountId"`
	ClearedBalance      money.Money `json:"clearedBalance"`
	PendingClearedCount int         `json:"pendingClearedCount"`
}

// InfoFor computes Info from the account's transactions.
func InfoFor(txns []model.Transaction, accountID string) Info {
	info := Info{AccountID: accountID, ClearedBalance: ledger.ClearedBalance(txns, accountID)}
	for _, t := range txns {
		if !t.Deleted && t.AccountID == accountID && t.Cleared == model.StatusCleared {
			info.PendingClearedCount++
		}
	}
	return info
}

// CommitRequest asks to reconcile an account at a statement balance.
// ExpectedClearedBalance, when set, is the cleared balance the client saw at
// the Input step; any drift from it is reported as a mismatch.
type CommitRequest struct {
	AccountID              string       `json:"accountId"`
	StatementBalance       money.Money  `json:"statementBalance"`
	ExpectedClearedBalance *money.Money `json:"expectedClearedBalance,omitempty"`
}

// CommitResponse is either a success or a mismatch.
type CommitResponse struct {
	Success           bool
	ReconciledCount   int
	ReconciledBalance money.Money
	Mismatch          bool
	Difference        money.Money
}

// MarshalJSON emits exactly one of the two response shapes.
func (r CommitResponse) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success           bool        `json:"success"`
			ReconciledCount   int         `json:"reconciledCount"`
			ReconciledBalance money.Money `json:"reconciledBalance"`
		}{true, r.ReconciledCount, r.ReconciledBalance})
	}
	return json.Marshal(struct {
		Success    bool        `json:"success"`
		Mismatch   bool        `json:"mismatch"`
		Difference money.Money `json:"difference"`
	}{false, true, r.Difference})
}

// UnmarshalJSON accepts either response shape.
func (r *CommitResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success           bool        `json:"success"`
		ReconciledCount   int         `json:"reconciledCount"`
		ReconciledBalance money.Money `json:"reconciledBalance"`
		Mismatch          bool        `json:"mismatch"`
		Difference        money.Money `json:"difference"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = CommitResponse(raw)
	return nil
}

// Mismatched builds a mismatch response.
func Mismatched(difference money.Money) CommitResponse {
	return CommitResponse{Mismatch: true, Difference: difference}
}

// Commit is the single batch a store applies atomically: every listed
// transaction moves from Cleared to Reconciled and the account's reconciled
// balance snapshot is replaced.
type Commit struct {
	AccountID         string
	ClearedBalance    money.Money
	ReconciledBalance money.Money
	TransactionIDs    []string
	At                time.Time
}

// Plan re-validates a commit request against the current transactions. It
// never trusts an earlier check: the cleared balance is recomputed here, and
// any drift from the expected balance or a difference beyond tolerance yields
// a mismatch and no Commit.
func Plan(txns []model.Transaction, req CommitRequest, tolerance money.Money, now time.Time) (Commit, CommitResponse) {
	cleared := ledger.ClearedBalance(txns, req.AccountID)
	diff := req.StatementBalance - cleared

	if req.ExpectedClearedBalance != nil && *req.ExpectedClearedBalance != cleared {
		return Commit{}, Mismatched(diff)
	}
	if diff.Abs() > tolerance {
		return Commit{}, Mismatched(diff)
	}

	c := Commit{
		AccountID:         req.AccountID,
		ClearedBalance:    cleared,
		ReconciledBalance: req.StatementBalance,
		At:                now,
	}
	for _, t := range txns {
		if !t.Deleted && t.AccountID == req.AccountID && t.Cleared == model.StatusCleared {
			c.TransactionIDs = append(c.TransactionIDs, t.ID)
		}
	}
	return c, CommitResponse{
		Success:           true,
		ReconciledCount:   len(c.TransactionIDs),
		ReconciledBalance: req.StatementBalance,
	}
}

// Apply returns copies of txns and account with c applied. Stores use it to
// keep the transition logic in one place.
func Apply(c Commit, account model.Account, txns []model.Transaction) (model.Account, []model.Transaction) {
	ids := make(map[string]bool, len(c.TransactionIDs))
	for _, id := range c.TransactionIDs {
		ids[id] = true
	}
	out := make([]model.Transaction, len(txns))
	for i, t := range txns {
		if ids[t.ID] && t.Cleared == model.StatusCleared {
			t.Cleared = model.StatusReconciled
		}
		out[i] = t
	}
	account.ReconciledBalance = c.ReconciledBalance
	account.LastReconciledAt = c.At
	return account, out
}
