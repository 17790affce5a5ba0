package autoassign

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/model"
	mt "github.com/cleared-dev/envelope/internal/model/modeltest"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
)

func propose(t *testing.T, b *mt.Builder, m string, s Strategy, opts Options) map[string]Proposal {
	t.Helper()
	mm := month.MustParse(m)
	l, err := ledger.Build(context.Background(), b.Snapshot(), mm)
	require.NoError(t, err)
	got, err := Propose(l, mm, s, opts)
	require.NoError(t, err)
	out := make(map[string]Proposal, len(got))
	for _, p := range got {
		out[p.CategoryID] = p
	}
	return out
}

func TestUnderfunded_BringsNegativeToZero(t *testing.T) {
	b := mt.New()
	checking := b.Account("Checking", model.AccountTypeChecking)
	g := b.Group("Everyday")
	short := b.Category(g, "Short")
	flush := b.Category(g, "Flush")
	b.Txn(checking, short, "2025-03-02", mt.Units(-75), model.StatusCleared)
	b.Assign(flush, "2025-03", mt.Units(20))

	got := propose(t, b, "2025-03", Underfunded, Options{})
	require.Len(t, got, 1)
	p := got[short]
	assert.Equal(t, mt.Units(75), p.Delta)
	assert.Equal(t, mt.Units(75), p.Assigned())

	// Applying the proposal brings available to exactly zero.
	b.Assign(short, "2025-03", p.Delta)
	l, err := ledger.Build(context.Background(), b.Snapshot(), month.MustParse("2025-03"))
	require.NoError(t, err)
	assert.Zero(t, l.Item(short, month.MustParse("2025-03")).Available)
}

func TestUnderfunded_Target(t *testing.T) {
	b := mt.New()
	g := b.Group("Bills")
	insurance := b.Category(g, "Insurance")
	b.Target(insurance, mt.Units(100))
	b.Assign(insurance, "2025-03", mt.Units(40))

	got := propose(t, b, "2025-03", Underfunded, Options{})
	assert.Equal(t, mt.Units(60), got[insurance].Delta)
	assert.Equal(t, mt.Units(40), got[insurance].Current)
}

func TestLastMonthStrategies(t *testing.T) {
	b := mt.New()
	checking := b.Account("Checking", model.AccountTypeChecking)
	g := b.Group("Everyday")
	food := b.Category(g, "Food")
	b.Assign(food, "2025-02", mt.Units(300))
	b.Txn(checking, food, "2025-02-10", mt.Units(-260), model.StatusCleared)
	b.Assign(food, "2025-03", mt.Units(100))

	assigned := propose(t, b, "2025-03", AssignedLastMonth, Options{})
	assert.Equal(t, mt.Units(200), assigned[food].Delta)
	assert.Equal(t, mt.Units(300), assigned[food].Assigned())

	spent := propose(t, b, "2025-03", SpentLastMonth, Options{})
	assert.Equal(t, mt.Units(160), spent[food].Delta)
	assert.Equal(t, mt.Units(260), spent[food].Assigned())
}

func TestAverages_Window(t *testing.T) {
	b := mt.New()
	checking := b.Account("Checking", model.AccountTypeChecking)
	g := b.Group("Everyday")
	fuel := b.Category(g, "Fuel")
	b.Assign(fuel, "2024-10", mt.Units(1000)) // outside the last 3 months with data
	b.Assign(fuel, "2024-12", mt.Units(90))
	b.Assign(fuel, "2025-01", mt.Units(30))
	b.Assign(fuel, "2025-02", mt.Units(60))
	b.Txn(checking, fuel, "2025-01-05", mt.Units(-40), model.StatusCleared)
	b.Txn(checking, fuel, "2025-02-05", mt.Units(-50), model.StatusCleared)

	avg := propose(t, b, "2025-03", AverageAssigned, Options{Window: 3})
	assert.Equal(t, mt.Units(60), avg[fuel].Delta)

	spent := propose(t, b, "2025-03", AverageSpent, Options{Window: 3})
	assert.Equal(t, mt.Units(30), spent[fuel].Delta)

	// Default window covers all four months with data; empty 2024-11 is skipped.
	all := propose(t, b, "2025-03", AverageAssigned, Options{})
	assert.Equal(t, mt.Units(295), all[fuel].Delta)
}

func TestAverages_SkipEmptyMonths(t *testing.T) {
	b := mt.New()
	c := b.Category(b.Group("Annual"), "Insurance")
	b.Assign(c, "2024-06", mt.Units(120))
	b.Assign(c, "2025-01", mt.Units(60))

	// Six empty months between the two assignments do not dilute the mean,
	// and a two month window reaches back to the June assignment.
	got := propose(t, b, "2025-03", AverageAssigned, Options{Window: 2})
	assert.Equal(t, mt.Units(90), got[c].Delta)

	got = propose(t, b, "2025-03", AssignedLastMonth, Options{})
	assert.Empty(t, got, "February had no assignment")
}

func TestAverages_TruncateTowardZero(t *testing.T) {
	b := mt.New()
	c := b.Category(b.Group("G"), "C")
	b.Assign(c, "2025-01", 2)
	b.Assign(c, "2025-02", 1)
	b.Assign(c, "2025-03", 2)

	got := propose(t, b, "2025-04", AverageAssigned, Options{})
	assert.Equal(t, money.Money(1), got[c].Delta, "5/3 milliunits truncates to 1")
}

func TestReduceOverfunding(t *testing.T) {
	b := mt.New()
	g := b.Group("Goals")
	vacation := b.Category(g, "Vacation")
	untargeted := b.Category(g, "Rainy Day")
	b.Target(vacation, mt.Units(500))
	b.Assign(vacation, "2025-01", mt.Units(800))
	b.Assign(untargeted, "2025-01", mt.Units(800))

	got := propose(t, b, "2025-01", ReduceOverfunding, Options{})
	require.Len(t, got, 1)
	assert.Equal(t, mt.Units(-300), got[vacation].Delta)
}

func TestResets(t *testing.T) {
	b := mt.New()
	checking := b.Account("Checking", model.AccountTypeChecking)
	c := b.Category(b.Group("G"), "C")
	b.Assign(c, "2025-01", mt.Units(100))
	b.Assign(c, "2025-02", mt.Units(50))
	b.Txn(checking, c, "2025-02-03", mt.Units(-20), model.StatusCleared)

	avail := propose(t, b, "2025-02", ResetAvailable, Options{})
	assert.Equal(t, mt.Units(-130), avail[c].Delta)

	assigned := propose(t, b, "2025-02", ResetAssigned, Options{})
	assert.Equal(t, mt.Units(-50), assigned[c].Delta)
	assert.Zero(t, assigned[c].Assigned())
}

func TestPaymentCategoriesSkippedUnlessTargeted(t *testing.T) {
	b := mt.New()
	checking := b.Account("Checking", model.AccountTypeChecking)
	visa := b.Account("Visa", model.AccountTypeCredit)
	pay := b.PaymentCategory(visa)
	b.Txn(visa, "", "2025-01-01", mt.Units(-100), model.StatusCleared)
	b.Transfer(checking, visa, pay, "2025-01-05", mt.Units(50), model.StatusCleared)

	got := propose(t, b, "2025-01", ResetAvailable, Options{})
	assert.NotContains(t, got, pay)

	got = propose(t, b, "2025-01", Underfunded, Options{CategoryIDs: []string{pay}})
	require.Contains(t, got, pay)
	assert.Equal(t, mt.Units(50), got[pay].Delta)
}

func TestPropose_Validation(t *testing.T) {
	l, err := ledger.Build(context.Background(), &model.Snapshot{}, month.MustParse("2025-01"))
	require.NoError(t, err)

	_, err = Propose(l, month.MustParse("2025-02"), Underfunded, Options{})
	assert.True(t, model.IsValidation(err))

	_, err = Propose(l, month.MustParse("2025-01"), Strategy("bogus"), Options{})
	assert.True(t, model.IsValidation(err))

	_, err = Propose(l, month.MustParse("2025-01"), Underfunded, Options{Window: -1})
	assert.True(t, model.IsValidation(err))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("UNDERFUNDED")
	require.NoError(t, err)
	assert.Equal(t, Underfunded, s)

	s, err = ParseStrategy("resetAvailableAmounts")
	require.NoError(t, err)
	assert.Equal(t, ResetAvailable, s)

	_, err = ParseStrategy("nope")
	assert.Error(t, err)
	for _, st := range Strategies {
		assert.Contains(t, rules, st)
	}
	assert.Equal(t, money.Money(0), mean(0, 3))
}
