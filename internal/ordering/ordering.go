// Package ordering computes dense sortOrder batches for category groups and
// categories. Every operation returns the complete ordering of the affected
// scope so that it can be persisted in one write.
package ordering

import (
	"fmt"
	"slices"

	"github.com/cleared-dev/envelope/internal/model"
)

// Scope is the kind of entity a batch orders.
type Scope string

const (
	ScopeGroup    Scope = "group"
	ScopeCategory Scope = "category"
)

// Item is one (id, sortOrder) pair. ParentGroupID is set for categories.
type Item struct {
	ID            string `json:"id"`
	SortOrder     int    `json:"sortOrder"`
	ParentGroupID string `json:"parentGroupId,omitempty"`
}

// Batch is a full replacement ordering for one scope. Reorder requests and
// engine results share this shape.
//
// Basis is the ordering of the affected scope the batch was planned against.
// Stores compare it with their current state before writing and refuse the
// batch when they differ.
type Batch struct {
	Scope Scope  `json:"scope"`
	Items []Item `json:"items"`
	Basis []Item `json:"-"`
}

// CheckGroups reports model.ErrConcurrentChange when groups no longer match
// the state the batch was planned against.
func (b Batch) CheckGroups(groups []model.CategoryGroup) error {
	snap := model.Snapshot{Groups: groups}
	for _, it := range b.Items {
		if _, ok := snap.Group(it.ID); !ok {
			return fmt.Errorf("group %s: %w", it.ID, model.ErrConcurrentChange)
		}
	}
	if b.Basis == nil {
		return nil
	}
	if len(groups) != len(b.Basis) {
		return fmt.Errorf("planned against %d groups, found %d: %w", len(b.Basis), len(groups), model.ErrConcurrentChange)
	}
	for _, it := range b.Basis {
		g, ok := snap.Group(it.ID)
		if !ok || g.SortOrder != it.SortOrder {
			return fmt.Errorf("group %s moved: %w", it.ID, model.ErrConcurrentChange)
		}
	}
	return nil
}

// CheckCategories reports model.ErrConcurrentChange when the categories of
// the groups the batch touches no longer match its plan.
func (b Batch) CheckCategories(cats []model.Category) error {
	snap := model.Snapshot{Categories: cats}
	for _, it := range b.Items {
		if _, ok := snap.Category(it.ID); !ok {
			return fmt.Errorf("category %s: %w", it.ID, model.ErrConcurrentChange)
		}
	}
	if b.Basis == nil {
		return nil
	}
	touched := make(map[string]bool)
	for _, it := range slices.Concat(b.Items, b.Basis) {
		touched[it.ParentGroupID] = true
	}
	var n int
	for _, c := range cats {
		if touched[c.GroupID] {
			n++
		}
	}
	if n != len(b.Basis) {
		return fmt.Errorf("planned against %d categories, found %d: %w", len(b.Basis), n, model.ErrConcurrentChange)
	}
	for _, it := range b.Basis {
		c, ok := snap.Category(it.ID)
		if !ok || c.GroupID != it.ParentGroupID || c.SortOrder != it.SortOrder {
			return fmt.Errorf("category %s moved: %w", it.ID, model.ErrConcurrentChange)
		}
	}
	return nil
}

// ApplyGroups returns a copy of groups with the batch's sortOrder applied.
func (b Batch) ApplyGroups(groups []model.CategoryGroup) []model.CategoryGroup {
	out := slices.Clone(groups)
	if b.Scope != ScopeGroup {
		return out
	}
	order := b.index()
	for i, g := range out {
		if it, ok := order[g.ID]; ok {
			out[i].SortOrder = it.SortOrder
		}
	}
	return out
}

// ApplyCategories returns a copy of cats with the batch's sortOrder and
// parent group applied.
func (b Batch) ApplyCategories(cats []model.Category) []model.Category {
	out := slices.Clone(cats)
	if b.Scope != ScopeCategory {
		return out
	}
	order := b.index()
	for i, c := range out {
		if it, ok := order[c.ID]; ok {
			out[i].SortOrder = it.SortOrder
			if it.ParentGroupID != "" {
				out[i].GroupID = it.ParentGroupID
			}
		}
	}
	return out
}

func (b Batch) index() map[string]Item {
	m := make(map[string]Item, len(b.Items))
	for _, it := range b.Items {
		m[it.ID] = it
	}
	return m
}

// MoveGroup moves groupID to toIndex among all groups and renumbers every
// group densely. The payment group cannot be moved and keeps its position.
func MoveGroup(groups []model.CategoryGroup, groupID string, toIndex int) (Batch, error) {
	if toIndex < 0 {
		return Batch{}, model.ValidationError{Field: "toIndex", Message: fmt.Sprintf("must be >= 0, got %d", toIndex)}
	}
	snap := model.Snapshot{Groups: groups}
	g, ok := snap.Group(groupID)
	if !ok {
		return Batch{}, fmt.Errorf("group %s: %w", groupID, model.ErrNotFound)
	}
	if g.IsPayment() {
		return Batch{}, model.InvariantViolation{
			Rule:    model.RulePaymentGroup,
			Message: "the credit card payments group cannot be moved",
		}
	}

	ids := groupIDs(snap.SortedGroups())
	pinned, pinnedAt := "", -1
	if pg, ok := snap.PaymentGroup(); ok {
		pinned, pinnedAt = pg.ID, slices.Index(ids, pg.ID)
	}

	ids = slices.DeleteFunc(ids, func(id string) bool { return id == groupID })
	ids = slices.Insert(ids, min(toIndex, len(ids)), groupID)
	if pinned != "" {
		ids = slices.DeleteFunc(ids, func(id string) bool { return id == pinned })
		ids = slices.Insert(ids, min(pinnedAt, len(ids)), pinned)
	}
	return Batch{Scope: ScopeGroup, Items: dense(ids, ""), Basis: groupBasis(groups)}, nil
}

// MoveCategory moves categoryID into toGroupID at toIndex. The source and the
// destination group are both renumbered densely in one batch. Any move that
// involves the payment group is rejected. An index past the end appends.
func MoveCategory(groups []model.CategoryGroup, cats []model.Category, categoryID, toGroupID string, toIndex int) (Batch, error) {
	if toIndex < 0 {
		return Batch{}, model.ValidationError{Field: "toIndex", Message: fmt.Sprintf("must be >= 0, got %d", toIndex)}
	}
	snap := model.Snapshot{Groups: groups, Categories: cats}
	c, ok := snap.Category(categoryID)
	if !ok {
		return Batch{}, fmt.Errorf("category %s: %w", categoryID, model.ErrNotFound)
	}
	to, ok := snap.Group(toGroupID)
	if !ok {
		return Batch{}, fmt.Errorf("group %s: %w", toGroupID, model.ErrNotFound)
	}
	from, _ := snap.Group(c.GroupID)
	if from.IsPayment() || to.IsPayment() || c.IsPayment() {
		return Batch{}, model.InvariantViolation{
			Rule:    model.RulePaymentGroup,
			Message: fmt.Sprintf("category %s cannot move between %q and %q", c.Name, from.Name, to.Name),
		}
	}

	var items []Item
	if c.GroupID != toGroupID {
		src := categoryIDs(snap.CategoriesInGroup(c.GroupID))
		src = slices.DeleteFunc(src, func(id string) bool { return id == categoryID })
		items = dense(src, c.GroupID)
	}
	dst := categoryIDs(snap.CategoriesInGroup(toGroupID))
	dst = slices.DeleteFunc(dst, func(id string) bool { return id == categoryID })
	dst = slices.Insert(dst, min(toIndex, len(dst)), categoryID)
	items = append(items, dense(dst, toGroupID)...)
	basis := categoryBasis(cats, map[string]bool{c.GroupID: true, toGroupID: true})
	return Batch{Scope: ScopeCategory, Items: items, Basis: basis}, nil
}

func dense(ids []string, parent string) []Item {
	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Item{ID: id, SortOrder: i, ParentGroupID: parent}
	}
	return items
}

func groupBasis(groups []model.CategoryGroup) []Item {
	items := make([]Item, len(groups))
	for i, g := range groups {
		items[i] = Item{ID: g.ID, SortOrder: g.SortOrder}
	}
	return items
}

func categoryBasis(cats []model.Category, groups map[string]bool) []Item {
	items := []Item{}
	for _, c := range cats {
		if groups[c.GroupID] {
			items = append(items, Item{ID: c.ID, SortOrder: c.SortOrder, ParentGroupID: c.GroupID})
		}
	}
	return items
}

func groupIDs(groups []model.CategoryGroup) []string {
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids
}

func categoryIDs(cats []model.Category) []string {
	ids := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	return ids
}
