package ledger

import (
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// Index answers the per-transaction questions the engine asks repeatedly:
// which account a transaction hits, whether it is on-budget, whether it is a
// transfer between two budget accounts, and whether it is income.
type Index struct {
	accounts  map[string]model.Account
	transfers map[string][]model.Transaction
}

// NewIndex builds an Index over snap.
func NewIndex(snap *model.Snapshot) *Index {
	ix := &Index{
		accounts:  make(map[string]model.Account, len(snap.Accounts)),
		transfers: make(map[string][]model.Transaction),
	}
	for _, a := range snap.Accounts {
		ix.accounts[a.ID] = a
	}
	for _, t := range snap.Transactions {
		if t.IsTransfer() && !t.Deleted {
			ix.transfers[t.TransferID] = append(ix.transfers[t.TransferID], t)
		}
	}
	return ix
}

// Account returns the account a transaction was posted to.
func (ix *Index) Account(id string) (model.Account, bool) {
	a, ok := ix.accounts[id]
	return a, ok
}

// OnBudget reports whether t is live and posted to a known on-budget account.
func (ix *Index) OnBudget(t model.Transaction) bool {
	if t.Deleted {
		return false
	}
	a, ok := ix.accounts[t.AccountID]
	return ok && a.Type.OnBudget()
}

// Counterpart returns the other leg of a transfer.
func (ix *Index) Counterpart(t model.Transaction) (model.Transaction, bool) {
	if !t.IsTransfer() {
		return model.Transaction{}, false
	}
	for _, leg := range ix.transfers[t.TransferID] {
		if leg.ID != t.ID {
			return leg, true
		}
	}
	return model.Transaction{}, false
}

// IsBudgetTransfer reports whether t moves money between two on-budget
// accounts. Such transfers net to zero across the budget.
func (ix *Index) IsBudgetTransfer(t model.Transaction) bool {
	other, ok := ix.Counterpart(t)
	if !ok {
		return false
	}
	return ix.OnBudget(t) && ix.OnBudget(other)
}

// IsCredit reports whether t was posted against a credit account.
func (ix *Index) IsCredit(t model.Transaction) bool {
	a, ok := ix.accounts[t.AccountID]
	return ok && a.Type == model.AccountTypeCredit
}

// Income returns the amount t contributes to Ready to Assign: positive,
// uncategorized, on-budget inflows that are not budget transfers.
func (ix *Index) Income(t model.Transaction) money.Money {
	if !ix.OnBudget(t) || t.CategoryID != "" || ix.IsBudgetTransfer(t) {
		return 0
	}
	if amt := t.Amount(); amt > 0 {
		return amt
	}
	return 0
}
