package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearedStatusRank(t *testing.T) {
	assert.Less(t, StatusUncleared.Rank(), StatusCleared.Rank())
	assert.Less(t, StatusCleared.Rank(), StatusReconciled.Rank())
	assert.Equal(t, -1, ClearedStatus("pending").Rank())
	assert.False(t, ClearedStatus("").Valid())
}

func TestTransactionAmount(t *testing.T) {
	txn := Transaction{Inflow: 5000, Outflow: 0}
	assert.EqualValues(t, 5000, txn.Amount())
	txn = Transaction{Outflow: 620000}
	assert.EqualValues(t, -620000, txn.Amount())
	assert.False(t, txn.IsCleared())
	txn.Cleared = StatusReconciled
	assert.True(t, txn.IsCleared())
}

func TestAccountType(t *testing.T) {
	assert.True(t, AccountTypeCredit.Valid())
	assert.False(t, AccountType("brokerage").Valid())
	assert.True(t, AccountTypeCredit.OnBudget())
	assert.False(t, AccountTypeTracking.OnBudget())
}

func TestSnapshotLookups(t *testing.T) {
	snap := &Snapshot{
		Accounts: []Account{{ID: "a1", Name: "Checking"}},
		Groups: []CategoryGroup{
			{ID: "g2", Name: "Bills", SortOrder: 1},
			{ID: "g1", Name: PaymentGroupName, SortOrder: 0, Kind: GroupKindCreditCardPayments},
		},
		Categories: []Category{
			{ID: "c3", GroupID: "g2", Name: "Rent", SortOrder: 1},
			{ID: "c2", GroupID: "g2", Name: "Power", SortOrder: 0},
			{ID: "c1", GroupID: "g1", Name: "Visa", LinkedAccountID: "a2"},
		},
	}

	a, ok := snap.FindAccount("checking")
	require.True(t, ok)
	assert.Equal(t, "a1", a.ID)

	g, ok := snap.PaymentGroup()
	require.True(t, ok)
	assert.Equal(t, "g1", g.ID)

	c, ok := snap.PaymentCategory("a2")
	require.True(t, ok)
	assert.Equal(t, "c1", c.ID)

	_, ok = snap.FindCategory("missing")
	assert.False(t, ok)

	sorted := snap.SortedCategories()
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})

	inGroup := snap.CategoriesInGroup("g2")
	require.Len(t, inGroup, 2)
	assert.Equal(t, "c2", inGroup[0].ID)
}

func TestErrorTaxonomy(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ValidationError{Field: "toIndex", Message: "must not be negative"})
	assert.True(t, IsValidation(err))
	assert.False(t, IsInvariant(err))
	assert.Equal(t, "wrapped: invalid toIndex: must not be negative", err.Error())

	err = fmt.Errorf("wrapped: %w", InvariantViolation{Rule: RulePaymentGroup, Message: "nope"})
	assert.True(t, IsInvariant(err))
	assert.True(t, errors.Is(fmt.Errorf("x: %w", ErrNotFound), ErrNotFound))
}
