// Package rta computes Ready to Assign, the unallocated budget pool.
package rta

import (
	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
)

// Breakdown explains how the Ready to Assign figure was reached.
type Breakdown struct {
	Month       month.Month `json:"month"`
	Income      money.Money `json:"income"`
	Assigned    money.Money `json:"assigned"`
	Adjustments money.Money `json:"adjustments"`
	Total       money.Money `json:"readyToAssign"`
}

// OverAssigned reports whether more was assigned than is available.
func (b Breakdown) OverAssigned() bool {
	return b.Total < 0
}

// Calculate returns Ready to Assign as of the end of m: all income through m,
// minus every assignment through m, plus manual adjustments through m.
// l must have been built through m or later.
func Calculate(snap *model.Snapshot, l *ledger.Ledger, m month.Month) Breakdown {
	ix := ledger.NewIndex(snap)
	limit := m.Index()

	b := Breakdown{Month: m}
	for _, t := range snap.Transactions {
		if month.Of(t.Date).Index() > limit {
			continue
		}
		b.Income += ix.Income(t)
	}
	for _, a := range snap.Adjustments {
		if a.Month.Index() <= limit {
			b.Adjustments += a.Amount
		}
	}
	b.Assigned = l.AssignedThrough(m)
	b.Total = b.Income - b.Assigned + b.Adjustments
	return b
}
