package ordering

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/cleared-dev/envelope/internal/model"
)

// NormalizeGroups turns a full group reorder request into a dense batch.
// The request must list every group exactly once. Ties in sortOrder keep
// request order. The payment group must stay where it is.
func NormalizeGroups(groups []model.CategoryGroup, req Batch) (Batch, error) {
	if req.Scope != ScopeGroup {
		return Batch{}, model.ValidationError{Field: "scope", Message: fmt.Sprintf("want %q, got %q", ScopeGroup, req.Scope)}
	}
	snap := model.Snapshot{Groups: groups}
	if err := checkItems(req.Items, len(groups), func(id string) bool {
		_, ok := snap.Group(id)
		return ok
	}); err != nil {
		return Batch{}, err
	}

	ids := make([]string, 0, len(req.Items))
	for _, it := range sorted(req.Items) {
		ids = append(ids, it.ID)
	}
	if pg, ok := snap.PaymentGroup(); ok {
		current := slices.Index(groupIDs(snap.SortedGroups()), pg.ID)
		if slices.Index(ids, pg.ID) != current {
			return Batch{}, model.InvariantViolation{
				Rule:    model.RulePaymentGroup,
				Message: "the credit card payments group cannot be moved",
			}
		}
	}
	return Batch{Scope: ScopeGroup, Items: dense(ids, ""), Basis: groupBasis(groups)}, nil
}

// NormalizeCategories turns a category reorder request into a dense batch.
// Items without a parentGroupId stay in their current group. The request must
// list every category of every group it touches, and no category may enter
// or leave the payment group.
func NormalizeCategories(groups []model.CategoryGroup, cats []model.Category, req Batch) (Batch, error) {
	if req.Scope != ScopeCategory {
		return Batch{}, model.ValidationError{Field: "scope", Message: fmt.Sprintf("want %q, got %q", ScopeCategory, req.Scope)}
	}
	snap := model.Snapshot{Groups: groups, Categories: cats}

	touched := make(map[string]bool)
	items := make([]Item, len(req.Items))
	for i, it := range req.Items {
		c, ok := snap.Category(it.ID)
		if !ok {
			return Batch{}, model.ValidationError{Field: "items", Message: fmt.Sprintf("unknown category %q", it.ID)}
		}
		if it.ParentGroupID == "" {
			it.ParentGroupID = c.GroupID
		}
		to, ok := snap.Group(it.ParentGroupID)
		if !ok {
			return Batch{}, model.ValidationError{Field: "parentGroupId", Message: fmt.Sprintf("unknown group %q", it.ParentGroupID)}
		}
		from, _ := snap.Group(c.GroupID)
		if c.GroupID != to.ID && (from.IsPayment() || to.IsPayment()) {
			return Batch{}, model.InvariantViolation{
				Rule:    model.RulePaymentGroup,
				Message: fmt.Sprintf("category %s cannot move between %q and %q", c.Name, from.Name, to.Name),
			}
		}
		touched[c.GroupID] = true
		touched[to.ID] = true
		items[i] = it
	}

	var want int
	for gid := range touched {
		want += len(snap.CategoriesInGroup(gid))
	}
	if err := checkItems(items, want, func(id string) bool {
		c, _ := snap.Category(id)
		return touched[c.GroupID]
	}); err != nil {
		return Batch{}, err
	}

	var out []Item
	for _, g := range snap.SortedGroups() {
		if !touched[g.ID] {
			continue
		}
		var ids []string
		for _, it := range sorted(items) {
			if it.ParentGroupID == g.ID {
				ids = append(ids, it.ID)
			}
		}
		out = append(out, dense(ids, g.ID)...)
	}
	return Batch{Scope: ScopeCategory, Items: out, Basis: categoryBasis(cats, touched)}, nil
}

// checkItems validates that items names want distinct known ids with
// non-negative sortOrder values.
func checkItems(items []Item, want int, known func(string) bool) error {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.SortOrder < 0 {
			return model.ValidationError{Field: "sortOrder", Message: fmt.Sprintf("%s: must be >= 0, got %d", it.ID, it.SortOrder)}
		}
		if seen[it.ID] {
			return model.ValidationError{Field: "items", Message: fmt.Sprintf("duplicate id %q", it.ID)}
		}
		if !known(it.ID) {
			return model.ValidationError{Field: "items", Message: fmt.Sprintf("unknown id %q", it.ID)}
		}
		seen[it.ID] = true
	}
	if len(items) != want {
		return model.ValidationError{Field: "items", Message: fmt.Sprintf("expected a complete list of %d, got %d", want, len(items))}
	}
	return nil
}

func sorted(items []Item) []Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b Item) int { return cmp.Compare(a.SortOrder, b.SortOrder) })
	return out
}
