// Package storetest is a conformance suite run against every budget.Store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/budget"
	"github.com/cleared-dev/envelope/internal/model"
	mt "github.com/cleared-dev/envelope/internal/model/modeltest"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
	"github.com/cleared-dev/envelope/internal/ordering"
	"github.com/cleared-dev/envelope/internal/reconcile"
)

// Opener returns a fresh, empty store.
type Opener func(t *testing.T) budget.Store

// Run executes the suite.
func Run(t *testing.T, open Opener) {
	t.Run("empty", func(t *testing.T) { testEmpty(t, open(t)) })
	t.Run("entities", func(t *testing.T) { testEntities(t, open(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, open(t)) })
	t.Run("assignments", func(t *testing.T) { testAssignments(t, open(t)) })
	t.Run("reconciliation", func(t *testing.T) { testReconciliation(t, open(t)) })
	t.Run("reconciliation drift", func(t *testing.T) { testReconciliationDrift(t, open(t)) })
	t.Run("sort order", func(t *testing.T) { testSortOrder(t, open(t)) })
	t.Run("sort order drift", func(t *testing.T) { testSortOrderDrift(t, open(t)) })
}

func seed(t *testing.T, s budget.Store, snap *model.Snapshot) {
	t.Helper()
	ctx := context.Background()
	for _, a := range snap.Accounts {
		a.ClearedBalance, a.UnclearedBalance, a.WorkingBalance = 0, 0, 0
		require.NoError(t, s.SaveAccount(ctx, a))
	}
	for _, g := range snap.Groups {
		require.NoError(t, s.SaveGroup(ctx, g))
	}
	for _, c := range snap.Categories {
		require.NoError(t, s.SaveCategory(ctx, c))
	}
	if len(snap.Transactions) > 0 {
		require.NoError(t, s.SaveTransactions(ctx, snap.Transactions...))
	}
	if len(snap.Entries) > 0 {
		require.NoError(t, s.UpsertAssignments(ctx, snap.Entries...))
	}
	for _, a := range snap.Adjustments {
		require.NoError(t, s.AddAdjustment(ctx, a))
	}
}

func load(t *testing.T, s budget.Store) *model.Snapshot {
	t.Helper()
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	return snap
}

func testEmpty(t *testing.T, s budget.Store) {
	snap := load(t, s)
	assert.Empty(t, snap.Accounts)
	assert.Empty(t, snap.Groups)
	assert.Empty(t, snap.Categories)
	assert.Empty(t, snap.Transactions)
	assert.Empty(t, snap.Entries)
	assert.Empty(t, snap.Adjustments)
}

func testEntities(t *testing.T, s budget.Store) {
	ctx := context.Background()
	b := mt.New()
	visa := b.Account("Visa, Gold", model.AccountTypeCredit)
	pay := b.PaymentCategory(visa)
	g := b.Group("Bills")
	rent := b.Category(g, "Rent")
	b.Target(rent, mt.Units(1200))
	b.Adjust("2025-02", -mt.Units(3))
	seed(t, s, b.Snapshot())

	snap := load(t, s)
	require.Len(t, snap.Accounts, 1)
	assert.Equal(t, "Visa, Gold", snap.Accounts[0].Name)
	assert.Equal(t, model.AccountTypeCredit, snap.Accounts[0].Type)

	pc, ok := snap.PaymentCategory(visa)
	require.True(t, ok)
	assert.Equal(t, pay, pc.ID)
	pg, ok := snap.PaymentGroup()
	require.True(t, ok)
	assert.Equal(t, pg.ID, pc.GroupID)

	c, ok := snap.Category(rent)
	require.True(t, ok)
	assert.Equal(t, mt.Units(1200), c.Target)

	require.Len(t, snap.Adjustments, 1)
	assert.Equal(t, month.MustParse("2025-02"), snap.Adjustments[0].Month)
	assert.Equal(t, -mt.Units(3), snap.Adjustments[0].Amount)

	// Upsert replaces.
	c.Name = "Housing"
	require.NoError(t, s.SaveCategory(ctx, c))
	snap = load(t, s)
	assert.Len(t, snap.Categories, 2)
	c, _ = snap.Category(rent)
	assert.Equal(t, "Housing", c.Name)
}

func testTransactions(t *testing.T, s budget.Store) {
	ctx := context.Background()
	b := mt.New()
	acct := b.Account("Checking", model.AccountTypeChecking)
	g := b.Group("Everyday")
	food := b.Category(g, "Food")
	odd := b.Txn(acct, food, "2025-01-31", -money.Money(12345), model.StatusCleared)
	b.Txn(acct, "", "2025-02-01", mt.Units(500), model.StatusUncleared)
	b.Transfer(acct, acct, "", "2025-02-03", mt.Units(5), model.StatusUncleared)
	seed(t, s, b.Snapshot())

	snap := load(t, s)
	require.Len(t, snap.Transactions, 4)
	tx, ok := snap.Transaction(odd)
	require.True(t, ok)
	assert.Equal(t, money.Money(12345), tx.Outflow)
	assert.Equal(t, food, tx.CategoryID)
	assert.Equal(t, mt.Date("2025-01-31"), tx.Date)
	assert.Equal(t, model.StatusCleared, tx.Cleared)

	// Moving a transaction to another month keeps one copy.
	tx.Date = mt.Date("2025-03-02")
	tx.Memo = "moved"
	tx.Deleted = true
	require.NoError(t, s.SaveTransactions(ctx, tx))
	snap = load(t, s)
	require.Len(t, snap.Transactions, 4)
	tx, _ = snap.Transaction(odd)
	assert.Equal(t, mt.Date("2025-03-02"), tx.Date)
	assert.Equal(t, "moved", tx.Memo)
	assert.True(t, tx.Deleted)

	var transfers int
	for _, tx := range snap.Transactions {
		if tx.IsTransfer() {
			transfers++
		}
	}
	assert.Equal(t, 2, transfers)
}

func testAssignments(t *testing.T, s budget.Store) {
	ctx := context.Background()
	jan, feb := month.MustParse("2025-01"), month.MustParse("2025-02")
	require.NoError(t, s.UpsertAssignments(ctx,
		model.MonthlyBudgetEntry{CategoryID: "a", Month: jan, Assigned: mt.Units(10)},
		model.MonthlyBudgetEntry{CategoryID: "b", Month: jan, Assigned: mt.Units(20)},
		model.MonthlyBudgetEntry{CategoryID: "a", Month: feb, Assigned: mt.Units(30)},
	))
	require.NoError(t, s.UpsertAssignments(ctx,
		model.MonthlyBudgetEntry{CategoryID: "a", Month: jan, Assigned: mt.Units(15)},
	))

	got := make(map[string]money.Money)
	for _, e := range load(t, s).Entries {
		got[e.CategoryID+"@"+e.Month.String()] = e.Assigned
	}
	assert.Equal(t, map[string]money.Money{
		"a@2025-01": mt.Units(15),
		"b@2025-01": mt.Units(20),
		"a@2025-02": mt.Units(30),
	}, got)
}

func reconcileFixture() (*model.Snapshot, string) {
	b := mt.New()
	acct := b.Account("Checking", model.AccountTypeChecking)
	b.Txn(acct, "", "2025-01-10", mt.Units(1000), model.StatusCleared)
	b.Txn(acct, "", "2025-02-10", -mt.Units(100), model.StatusCleared)
	b.Txn(acct, "", "2025-02-11", -mt.Units(7), model.StatusUncleared)
	return b.Snapshot(), acct
}

func testReconciliation(t *testing.T, s budget.Store) {
	ctx := context.Background()
	snap, acct := reconcileFixture()
	seed(t, s, snap)

	at := time.Date(2025, 2, 28, 18, 30, 0, 0, time.UTC)
	c, resp := reconcile.Plan(load(t, s).Transactions, reconcile.CommitRequest{
		AccountID: acct, StatementBalance: mt.Units(900),
	}, reconcile.DefaultTolerance, at)
	require.True(t, resp.Success)
	require.NoError(t, s.ApplyReconciliation(ctx, c))

	got := load(t, s)
	a, _ := got.Account(acct)
	assert.Equal(t, mt.Units(900), a.ReconciledBalance)
	assert.True(t, at.Equal(a.LastReconciledAt))

	counts := make(map[model.ClearedStatus]int)
	for _, tx := range got.Transactions {
		counts[tx.Cleared]++
	}
	assert.Equal(t, map[model.ClearedStatus]int{model.StatusReconciled: 2, model.StatusUncleared: 1}, counts)
}

func testReconciliationDrift(t *testing.T, s budget.Store) {
	ctx := context.Background()
	snap, acct := reconcileFixture()
	seed(t, s, snap)

	c, resp := reconcile.Plan(load(t, s).Transactions, reconcile.CommitRequest{
		AccountID: acct, StatementBalance: mt.Units(900),
	}, reconcile.DefaultTolerance, time.Now())
	require.True(t, resp.Success)

	// The pending outflow clears before the commit lands.
	for _, tx := range load(t, s).Transactions {
		if tx.Cleared == model.StatusUncleared {
			tx.Cleared = model.StatusCleared
			require.NoError(t, s.SaveTransactions(ctx, tx))
		}
	}

	err := s.ApplyReconciliation(ctx, c)
	require.ErrorIs(t, err, model.ErrConcurrentChange)
	for _, tx := range load(t, s).Transactions {
		assert.Equal(t, model.StatusCleared, tx.Cleared)
	}
	a, _ := load(t, s).Account(acct)
	assert.Zero(t, a.ReconciledBalance)
}

func testSortOrder(t *testing.T, s budget.Store) {
	ctx := context.Background()
	b := mt.New()
	bills := b.Group("Bills")
	fun := b.Group("Fun")
	rent := b.Category(bills, "Rent")
	power := b.Category(bills, "Power")
	movies := b.Category(fun, "Movies")
	seed(t, s, b.Snapshot())

	snap := load(t, s)
	gb, err := ordering.MoveGroup(snap.Groups, fun, 0)
	require.NoError(t, err)
	require.NoError(t, s.ApplySortOrder(ctx, gb))

	cb, err := ordering.MoveCategory(snap.Groups, snap.Categories, rent, fun, 0)
	require.NoError(t, err)
	require.NoError(t, s.ApplySortOrder(ctx, cb))

	snap = load(t, s)
	gs := snap.SortedGroups()
	assert.Equal(t, []string{fun, bills}, []string{gs[0].ID, gs[1].ID})
	var order []string
	for _, c := range snap.CategoriesInGroup(fun) {
		order = append(order, c.ID)
	}
	assert.Equal(t, []string{rent, movies}, order)
	p, _ := snap.Category(power)
	assert.Equal(t, 0, p.SortOrder)

	err = s.ApplySortOrder(ctx, ordering.Batch{Scope: ordering.ScopeGroup, Items: []ordering.Item{{ID: "ghost"}}})
	assert.ErrorIs(t, err, model.ErrConcurrentChange)
}

func testSortOrderDrift(t *testing.T, s budget.Store) {
	ctx := context.Background()
	b := mt.New()
	home := b.Group("Home")
	fun := b.Group("Fun")
	travel := b.Group("Travel")
	rent := b.Category(home, "Rent")
	power := b.Category(home, "Power")
	movies := b.Category(fun, "Movies")
	flights := b.Category(travel, "Flights")
	seed(t, s, b.Snapshot())

	snap := load(t, s)
	first, err := ordering.MoveCategory(snap.Groups, snap.Categories, rent, fun, 0)
	require.NoError(t, err)
	second, err := ordering.MoveCategory(snap.Groups, snap.Categories, flights, home, 0)
	require.NoError(t, err)
	groups, err := ordering.MoveGroup(snap.Groups, travel, 0)
	require.NoError(t, err)

	require.NoError(t, s.ApplySortOrder(ctx, first))
	require.ErrorIs(t, s.ApplySortOrder(ctx, second), model.ErrConcurrentChange)

	snap = load(t, s)
	layout := func(groupID string) ([]string, []int) {
		var ids []string
		var orders []int
		for _, c := range snap.CategoriesInGroup(groupID) {
			ids = append(ids, c.ID)
			orders = append(orders, c.SortOrder)
		}
		return ids, orders
	}
	ids, orders := layout(home)
	assert.Equal(t, []string{power}, ids)
	assert.Equal(t, []int{0}, orders)
	ids, orders = layout(fun)
	assert.Equal(t, []string{rent, movies}, ids)
	assert.Equal(t, []int{0, 1}, orders)
	ids, _ = layout(travel)
	assert.Equal(t, []string{flights}, ids)

	// Group ordering is untouched by category moves, so the group batch still applies.
	require.NoError(t, s.ApplySortOrder(ctx, groups))
	stale, err := ordering.MoveGroup(snap.Groups, home, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, s.ApplySortOrder(ctx, stale), model.ErrConcurrentChange)
}
