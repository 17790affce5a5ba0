// Package overspend classifies negative category balances as cash or credit
// overspending. Classification only affects presentation, never arithmetic.
package overspend

import (
	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/month"
)

// Tier is the presentation tier of a balance.
type Tier string

const (
	TierNone     Tier = ""
	TierWarning  Tier = "warning"
	TierNegative Tier = "negative"
)

// TierOf maps an overspending type to its presentation tier: credit
// overspending is a warning (the card absorbs it), cash overspending is a
// hard negative.
func TierOf(t model.OverspendingType) Tier {
	switch t {
	case model.OverspendingCredit:
		return TierWarning
	case model.OverspendingCash:
		return TierNegative
	default:
		return TierNone
	}
}

// Classify returns a copy of items with OverspendingType set.
func Classify(snap *model.Snapshot, items []model.BudgetItem) []model.BudgetItem {
	c := newClassifier(snap)
	out := make([]model.BudgetItem, len(items))
	for i, it := range items {
		it.OverspendingType = c.classify(it)
		out[i] = it
	}
	return out
}

type classifier struct {
	categories map[string]model.Category
	// creditSpend holds (category, month) pairs that have at least one
	// contributing outflow posted to a credit account.
	creditSpend map[string]map[int]bool
}

func newClassifier(snap *model.Snapshot) *classifier {
	ix := ledger.NewIndex(snap)
	c := &classifier{
		categories:  make(map[string]model.Category, len(snap.Categories)),
		creditSpend: make(map[string]map[int]bool),
	}
	for _, cat := range snap.Categories {
		c.categories[cat.ID] = cat
	}
	for _, t := range snap.Transactions {
		if t.CategoryID == "" || !ix.OnBudget(t) || !ix.IsCredit(t) || ix.IsBudgetTransfer(t) || t.Amount() >= 0 {
			continue
		}
		months := c.creditSpend[t.CategoryID]
		if months == nil {
			months = make(map[int]bool)
			c.creditSpend[t.CategoryID] = months
		}
		months[month.Of(t.Date).Index()] = true
	}
	return c
}

func (c *classifier) classify(it model.BudgetItem) model.OverspendingType {
	if it.Available >= 0 {
		return model.OverspendingNone
	}
	cat, ok := c.categories[it.CategoryID]
	if !ok || cat.IsPayment() {
		return model.OverspendingNone
	}
	if c.creditSpend[it.CategoryID][it.Month.Index()] {
		return model.OverspendingCredit
	}
	return model.OverspendingCash
}
