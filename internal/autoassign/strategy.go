// Package autoassign proposes assignment changes for a month using named
// strategies. Strategies are pure: they read ledger figures and return
// proposals; the caller applies them as ordinary assignment upserts.
package autoassign

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
)

// Strategy names an auto-assign rule.
type Strategy string

const (
	Underfunded       Strategy = "underfunded"
	AssignedLastMonth Strategy = "assignedLastMonth"
	SpentLastMonth    Strategy = "spentLastMonth"
	AverageAssigned   Strategy = "averageAssigned"
	AverageSpent      Strategy = "averageSpent"
	ReduceOverfunding Strategy = "reduceOverfunding"
	ResetAvailable    Strategy = "resetAvailableAmounts"
	ResetAssigned     Strategy = "resetAssignedAmounts"
)

// Strategies lists every strategy in menu order.
var Strategies = []Strategy{
	Underfunded,
	AssignedLastMonth,
	SpentLastMonth,
	AverageAssigned,
	AverageSpent,
	ReduceOverfunding,
	ResetAvailable,
	ResetAssigned,
}

// DefaultWindow is how many months with data the average strategies use.
const DefaultWindow = 12

// ParseStrategy resolves a strategy name case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", model.ValidationError{Field: "strategy", Message: fmt.Sprintf("unknown strategy %q", s)}
}

// Options tune a proposal run.
type Options struct {
	// Window is how many of the latest months with data the average
	// strategies use. Zero means DefaultWindow.
	Window int
	// CategoryIDs restricts the run to these categories. Payment categories
	// are only considered when listed here.
	CategoryIDs []string
}

// Proposal is a suggested change to one category's assignment.
type Proposal struct {
	CategoryID string      `json:"categoryId"`
	Month      month.Month `json:"month"`
	Current    money.Money `json:"currentAssigned"`
	Delta      money.Money `json:"delta"`
}

// Assigned is the assignment after applying the proposal.
func (p Proposal) Assigned() money.Money {
	return p.Current + p.Delta
}

// Propose runs strategy s over every eligible category for month m and
// returns the non-zero proposals in display order. l must cover m.
func Propose(l *ledger.Ledger, m month.Month, s Strategy, opts Options) ([]Proposal, error) {
	if l.Through().Before(m) {
		return nil, model.ValidationError{Field: "month", Message: fmt.Sprintf("ledger ends at %s, before %s", l.Through(), m)}
	}
	if opts.Window < 0 {
		return nil, model.ValidationError{Field: "window", Message: "must not be negative"}
	}
	if opts.Window == 0 {
		opts.Window = DefaultWindow
	}
	fn, ok := rules[s]
	if !ok {
		return nil, model.ValidationError{Field: "strategy", Message: fmt.Sprintf("unknown strategy %q", s)}
	}

	explicit := make(map[string]bool, len(opts.CategoryIDs))
	for _, id := range opts.CategoryIDs {
		explicit[id] = true
	}

	var out []Proposal
	for _, c := range l.Categories() {
		if len(explicit) > 0 {
			if !explicit[c.ID] {
				continue
			}
		} else if c.IsPayment() || c.Hidden {
			continue
		}

		cur := l.Item(c.ID, m)
		delta := fn(input{
			category: c,
			current:  cur,
			last:     l.Item(c.ID, m.Prev()),
			recent:   recent(l, c.ID, m, opts.Window),
		})
		if delta == 0 {
			continue
		}
		out = append(out, Proposal{
			CategoryID: c.ID,
			Month:      m,
			Current:    cur.Assigned,
			Delta:      delta,
		})
	}
	return out, nil
}

// recent returns the last n months before m in which the category had an
// assignment or activity, newest first. Empty months are skipped rather than
// averaged in as zero, so the result may reach back further than n months.
func recent(l *ledger.Ledger, categoryID string, m month.Month, n int) []model.BudgetItem {
	history := l.History(categoryID)
	if len(history) == 0 {
		return nil
	}
	first := history[0].Month
	var out []model.BudgetItem
	for p := m.Prev(); len(out) < n && !p.Before(first); p = p.Prev() {
		if it := l.Item(categoryID, p); it.Assigned != 0 || it.Activity != 0 {
			out = append(out, it)
		}
	}
	return out
}
