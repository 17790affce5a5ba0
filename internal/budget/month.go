package budget

import (
	"context"
	"fmt"

	"github.com/cleared-dev/envelope/internal/autoassign"
	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
	"github.com/cleared-dev/envelope/internal/overspend"
	"github.com/cleared-dev/envelope/internal/rta"
)

// CategoryView is one category row of a month.
type CategoryView struct {
	model.BudgetItem
	Name    string         `json:"name"`
	GroupID string         `json:"categoryGroupId"`
	Hidden  bool           `json:"hidden"`
	Target  money.Money    `json:"target,omitempty"`
	Tier    overspend.Tier `json:"tier,omitempty"`
}

// GroupView is one group of a month with its category rows and totals.
type GroupView struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Hidden     bool           `json:"hidden"`
	Payment    bool           `json:"payment"`
	Assigned   money.Money    `json:"assigned"`
	Activity   money.Money    `json:"activity"`
	Available  money.Money    `json:"available"`
	Categories []CategoryView `json:"categories"`
}

// MonthView is the budget screen for one month.
type MonthView struct {
	Month         month.Month   `json:"month"`
	ReadyToAssign rta.Breakdown `json:"readyToAssign"`
	Groups        []GroupView   `json:"groups"`
	// Uncategorized is the net of on-budget, non-income transactions without
	// a category in the month.
	Uncategorized money.Money `json:"uncategorized"`
}

func (s *Service) build(ctx context.Context, m month.Month) (*model.Snapshot, *ledger.Ledger, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	l, err := ledger.Build(ctx, snap, m)
	if err != nil {
		return nil, nil, err
	}
	return snap, l, nil
}

// Month returns the classified figures of every category in m, grouped in
// display order, with Ready to Assign.
func (s *Service) Month(ctx context.Context, m month.Month) (MonthView, error) {
	snap, l, err := s.build(ctx, m)
	if err != nil {
		return MonthView{}, err
	}
	items := overspend.Classify(snap, l.Month(m))
	byCategory := make(map[string]model.BudgetItem, len(items))
	for _, it := range items {
		byCategory[it.CategoryID] = it
	}

	view := MonthView{Month: m, ReadyToAssign: rta.Calculate(snap, l, m)}
	for _, g := range snap.SortedGroups() {
		gv := GroupView{ID: g.ID, Name: g.Name, Hidden: g.Hidden, Payment: g.IsPayment(), Categories: []CategoryView{}}
		for _, c := range snap.CategoriesInGroup(g.ID) {
			it := byCategory[c.ID]
			gv.Categories = append(gv.Categories, CategoryView{
				BudgetItem: it,
				Name:       c.Name,
				GroupID:    c.GroupID,
				Hidden:     c.Hidden,
				Target:     c.Target,
				Tier:       overspend.TierOf(it.OverspendingType),
			})
			gv.Assigned += it.Assigned
			gv.Activity += it.Activity
			gv.Available += it.Available
		}
		view.Groups = append(view.Groups, gv)
	}

	ix := ledger.NewIndex(snap)
	for _, t := range snap.Transactions {
		if t.CategoryID != "" || !m.Contains(t.Date) || !ix.OnBudget(t) || ix.IsBudgetTransfer(t) || ix.Income(t) != 0 {
			continue
		}
		view.Uncategorized += t.Amount()
	}
	return view, nil
}

// ReadyToAssign returns the RTA breakdown as of the end of m.
func (s *Service) ReadyToAssign(ctx context.Context, m month.Month) (rta.Breakdown, error) {
	snap, l, err := s.build(ctx, m)
	if err != nil {
		return rta.Breakdown{}, err
	}
	return rta.Calculate(snap, l, m), nil
}

// Assign sets the assigned amount of a category in m and returns the
// category's new figures.
func (s *Service) Assign(ctx context.Context, categoryRef string, m month.Month, amount money.Money) (model.BudgetItem, error) {
	if err := s.budgetMonth(m); err != nil {
		return model.BudgetItem{}, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.BudgetItem{}, err
	}
	c, ok := snap.FindCategory(categoryRef)
	if !ok {
		return model.BudgetItem{}, fmt.Errorf("category %q: %w", categoryRef, model.ErrNotFound)
	}
	entry := model.MonthlyBudgetEntry{CategoryID: c.ID, Month: m, Assigned: amount}
	if err := s.store.UpsertAssignments(ctx, entry); err != nil {
		return model.BudgetItem{}, fmt.Errorf("saving assignment: %w", err)
	}
	s.log.Info("assigned", "category", c.ID, "month", m, "amount", amount)
	s.record(ctx, ActionAssign, c.ID, "%s assigned %s to %q", m, amount, c.Name)

	_, l, err := s.build(ctx, m)
	if err != nil {
		return model.BudgetItem{}, err
	}
	return l.Item(c.ID, m), nil
}

// ProposeAutoAssign runs a strategy for m without writing anything. A zero
// window uses the configured default.
func (s *Service) ProposeAutoAssign(ctx context.Context, m month.Month, strategy autoassign.Strategy, opts autoassign.Options) ([]autoassign.Proposal, error) {
	if opts.Window == 0 {
		opts.Window = s.window
	}
	_, l, err := s.build(ctx, m)
	if err != nil {
		return nil, err
	}
	return autoassign.Propose(l, m, strategy, opts)
}

// ApplyAutoAssign runs a strategy for m and writes its proposals as one batch
// of assignment upserts.
func (s *Service) ApplyAutoAssign(ctx context.Context, m month.Month, strategy autoassign.Strategy, opts autoassign.Options) ([]autoassign.Proposal, error) {
	if err := s.budgetMonth(m); err != nil {
		return nil, err
	}
	proposals, err := s.ProposeAutoAssign(ctx, m, strategy, opts)
	if err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		return nil, nil
	}
	entries := make([]model.MonthlyBudgetEntry, len(proposals))
	var total money.Money
	for i, p := range proposals {
		entries[i] = model.MonthlyBudgetEntry{CategoryID: p.CategoryID, Month: p.Month, Assigned: p.Assigned()}
		total += p.Delta
	}
	if err := s.store.UpsertAssignments(ctx, entries...); err != nil {
		return nil, fmt.Errorf("saving auto-assign: %w", err)
	}
	s.log.Info("auto-assign applied", "strategy", strategy, "month", m, "categories", len(proposals), "delta", total)
	s.record(ctx, ActionAutoAssign, string(strategy), "%s: %d categories, net %s", m, len(proposals), total)
	return proposals, nil
}

// AddAdjustment records a manual Ready to Assign correction.
func (s *Service) AddAdjustment(ctx context.Context, m month.Month, amount money.Money, memo string) (model.Adjustment, error) {
	if err := s.budgetMonth(m); err != nil {
		return model.Adjustment{}, err
	}
	if amount == 0 {
		return model.Adjustment{}, model.ValidationError{Field: "amount", Message: "must not be zero"}
	}
	a := model.Adjustment{ID: s.newID(), Month: m, Amount: amount, Memo: memo}
	if err := s.store.AddAdjustment(ctx, a); err != nil {
		return model.Adjustment{}, fmt.Errorf("saving adjustment: %w", err)
	}
	s.record(ctx, ActionAdjust, a.ID, "%s adjusted by %s", m, amount)
	return a, nil
}
