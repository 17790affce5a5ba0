// Package ledger derives per-category, per-month budget figures from the
// assignment history and the transaction ledger.
package ledger

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
)

type cell struct {
	category string
	month    int
}

// Ledger holds the rolled-forward history of every category through one month.
// It is immutable once built.
type Ledger struct {
	through    month.Month
	categories []model.Category
	history    map[string][]model.BudgetItem
}

// Aggregate returns one BudgetItem per category for m, in display order.
// Categories with no assignment and no activity up to m get all-zero figures.
func Aggregate(ctx context.Context, snap *model.Snapshot, m month.Month) ([]model.BudgetItem, error) {
	l, err := Build(ctx, snap, m)
	if err != nil {
		return nil, err
	}
	return l.Month(m), nil
}

// Build rolls every category forward from its first observed month through
// the given month. Data dated after through is ignored, so figures for a month
// never depend on later months. Categories are computed concurrently; within a
// category months are computed strictly in order.
func Build(ctx context.Context, snap *model.Snapshot, through month.Month) (*Ledger, error) {
	if through.IsZero() {
		return nil, model.ValidationError{Field: "month", Message: "required"}
	}
	limit := through.Index()
	ix := NewIndex(snap)

	cats := snap.SortedCategories()
	byID := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	assigned := make(map[cell]money.Money)
	first := make(map[string]int)
	observe := func(cat string, mi int) {
		if f, ok := first[cat]; !ok || mi < f {
			first[cat] = mi
		}
	}

	for _, e := range snap.Entries {
		mi := e.Month.Index()
		if mi > limit {
			continue
		}
		if _, ok := byID[e.CategoryID]; !ok {
			continue
		}
		assigned[cell{e.CategoryID, mi}] += e.Assigned
		observe(e.CategoryID, mi)
	}

	activity := make(map[cell]money.Money)
	// accountFlow is the net change of each credit account per month, used
	// for the payment category cap.
	accountFlow := make(map[cell]money.Money)
	accountFirst := make(map[string]int)

	for _, t := range snap.Transactions {
		if !ix.OnBudget(t) {
			continue
		}
		mi := month.Of(t.Date).Index()
		if mi > limit {
			continue
		}

		if ix.IsCredit(t) {
			accountFlow[cell{t.AccountID, mi}] += t.Amount()
			if f, ok := accountFirst[t.AccountID]; !ok || mi < f {
				accountFirst[t.AccountID] = mi
			}
		}

		if t.CategoryID == "" {
			continue
		}
		cat, ok := byID[t.CategoryID]
		if !ok {
			continue
		}
		// A leg of an on-budget transfer only counts when it is the payment
		// leg posted to a payment category; otherwise both legs would move
		// money between envelopes that never left the budget.
		if ix.IsBudgetTransfer(t) && !cat.IsPayment() {
			continue
		}
		activity[cell{cat.ID, mi}] += t.Amount()
		observe(cat.ID, mi)

		// Spending on a credit account moves the same amount into the
		// account's payment category.
		if ix.IsCredit(t) && !cat.IsPayment() {
			if pay, ok := snap.PaymentCategory(t.AccountID); ok {
				activity[cell{pay.ID, mi}] -= t.Amount()
				observe(pay.ID, mi)
			}
		}
	}

	l := &Ledger{
		through:    through,
		categories: cats,
		history:    make(map[string][]model.BudgetItem, len(cats)),
	}

	results := make([][]model.BudgetItem, len(cats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range cats {
		start, ok := first[c.ID]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var owed func(mi int) money.Money
			if c.IsPayment() {
				owed = owedFunc(accountFlow, accountFirst, c.LinkedAccountID)
			}
			results[i] = roll(c, start, limit, assigned, activity, owed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregating categories: %w", err)
	}

	for i, c := range cats {
		if results[i] != nil {
			l.history[c.ID] = results[i]
		}
	}
	return l, nil
}

// roll computes one category month by month. Payment categories report the
// lesser of the rollover and the amount owed on the linked account; the
// rollover itself always carries the uncapped figure.
func roll(c model.Category, start, limit int, assigned, activity map[cell]money.Money, owed func(int) money.Money) []model.BudgetItem {
	items := make([]model.BudgetItem, 0, limit-start+1)
	var prev money.Money
	for mi := start; mi <= limit; mi++ {
		key := cell{c.ID, mi}
		item := model.BudgetItem{
			CategoryID: c.ID,
			Month:      month.FromIndex(mi),
			Assigned:   assigned[key],
			Activity:   activity[key],
		}
		item.UncappedAvailable = prev + item.Assigned + item.Activity
		item.Available = item.UncappedAvailable
		if owed != nil {
			item.Available = money.Min(item.UncappedAvailable, owed(mi))
		}
		prev = item.UncappedAvailable
		items = append(items, item)
	}
	return items
}

// owedFunc returns the amount owed on a credit account at the end of each
// month: the negated cumulative balance, floored at zero.
func owedFunc(flow map[cell]money.Money, firsts map[string]int, accountID string) func(int) money.Money {
	start, ok := firsts[accountID]
	cumulative := make(map[int]money.Money)
	return func(mi int) money.Money {
		if !ok || mi < start {
			return 0
		}
		if v, done := cumulative[mi]; done {
			return v
		}
		var bal money.Money
		for i := start; i <= mi; i++ {
			bal += flow[cell{accountID, i}]
		}
		owed := money.Max(0, -bal)
		cumulative[mi] = owed
		return owed
	}
}

// Through returns the last month the ledger was built for.
func (l *Ledger) Through() month.Month {
	return l.through
}

// Categories returns the categories in display order.
func (l *Ledger) Categories() []model.Category {
	return l.categories
}

// Item returns the figures of one category in month m. Months before the
// category's first observed month, and categories without data, are zero.
func (l *Ledger) Item(categoryID string, m month.Month) model.BudgetItem {
	zero := model.BudgetItem{CategoryID: categoryID, Month: m}
	h := l.history[categoryID]
	if len(h) == 0 || m.After(l.through) {
		return zero
	}
	offset := m.Index() - h[0].Month.Index()
	if offset < 0 {
		return zero
	}
	return h[offset]
}

// Month returns one item per category for m, in display order.
func (l *Ledger) Month(m month.Month) []model.BudgetItem {
	out := make([]model.BudgetItem, len(l.categories))
	for i, c := range l.categories {
		out[i] = l.Item(c.ID, m)
	}
	return out
}

// History returns every item of a category from its first observed month
// through the ledger month, oldest first.
func (l *Ledger) History(categoryID string) []model.BudgetItem {
	return l.history[categoryID]
}

// AssignedThrough sums assignments of every category in months up to m.
func (l *Ledger) AssignedThrough(m month.Month) money.Money {
	var total money.Money
	for _, h := range l.history {
		for _, item := range h {
			if item.Month.After(m) {
				break
			}
			total += item.Assigned
		}
	}
	return total
}
