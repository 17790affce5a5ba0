package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/envelope/internal/model"
	mt "github.com/cleared-dev/envelope/internal/model/modeltest"
)

func TestBalances(t *testing.T) {
	b := mt.New()
	checking := b.Account("Checking", model.AccountTypeChecking)
	b.Txn(checking, "", "2025-01-01", mt.Units(1000), model.StatusReconciled)
	b.Txn(checking, "", "2025-01-02", mt.Units(-100), model.StatusCleared)
	b.Txn(checking, "", "2025-01-03", mt.Units(-40), model.StatusUncleared)
	gone := b.Txn(checking, "", "2025-01-04", mt.Units(-5), model.StatusCleared)
	b.Delete(gone)
	snap := b.Snapshot()

	bal := Balances(snap.Transactions)[checking]
	assert.Equal(t, mt.Units(900), bal.Cleared)
	assert.Equal(t, mt.Units(-40), bal.Uncleared)
	assert.Equal(t, mt.Units(860), bal.Working())
	assert.Equal(t, mt.Units(900), ClearedBalance(snap.Transactions, checking))

	accounts := WithBalances([]model.Account{{ID: checking}}, snap.Transactions)
	assert.Equal(t, mt.Units(860), accounts[0].WorkingBalance)
	assert.Equal(t, mt.Units(900), accounts[0].ClearedBalance)
}

func TestIndex_Income(t *testing.T) {
	b := mt.New()
	checking := b.Account("Checking", model.AccountTypeChecking)
	savings := b.Account("Savings", model.AccountTypeSavings)
	brokerage := b.Account("Brokerage", model.AccountTypeTracking)
	c := b.Category(b.Group("G"), "C")

	paycheck := b.Txn(checking, "", "2025-01-01", mt.Units(2000), model.StatusCleared)
	refund := b.Txn(checking, c, "2025-01-02", mt.Units(20), model.StatusCleared)
	_, in := b.Transfer(checking, savings, "", "2025-01-03", mt.Units(100), model.StatusCleared)
	_, fromTracking := b.Transfer(brokerage, checking, "", "2025-01-04", mt.Units(300), model.StatusCleared)
	offBudget := b.Txn(brokerage, "", "2025-01-05", mt.Units(50), model.StatusCleared)
	snap := b.Snapshot()
	ix := NewIndex(snap)

	get := func(id string) model.Transaction {
		txn, _ := snap.Transaction(id)
		return txn
	}
	assert.Equal(t, mt.Units(2000), ix.Income(get(paycheck)))
	assert.Zero(t, ix.Income(get(refund)))
	assert.Zero(t, ix.Income(get(in)))
	assert.Equal(t, mt.Units(300), ix.Income(get(fromTracking)))
	assert.Zero(t, ix.Income(get(offBudget)))
}
