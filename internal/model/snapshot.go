package model

import (
	"sort"
	"strings"
)

// Snapshot is the full entity set of one budget as supplied by a data source.
// Engine packages read it and never mutate it.
type Snapshot struct {
	Accounts     []Account
	Groups       []CategoryGroup
	Categories   []Category
	Entries      []MonthlyBudgetEntry
	Transactions []Transaction
	Adjustments  []Adjustment
}

// Account returns the account with id.
func (s *Snapshot) Account(id string) (Account, bool) {
	for _, a := range s.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// Group returns the group with id.
func (s *Snapshot) Group(id string) (CategoryGroup, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return CategoryGroup{}, false
}

// Category returns the category with id.
func (s *Snapshot) Category(id string) (Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Transaction returns the transaction with id.
func (s *Snapshot) Transaction(id string) (Transaction, bool) {
	for _, t := range s.Transactions {
		if t.ID == id {
			return t, true
		}
	}
	return Transaction{}, false
}

// PaymentGroup returns the system-managed payment group, if present.
func (s *Snapshot) PaymentGroup() (CategoryGroup, bool) {
	for _, g := range s.Groups {
		if g.IsPayment() {
			return g, true
		}
	}
	return CategoryGroup{}, false
}

// PaymentCategory returns the payment category linked to accountID.
func (s *Snapshot) PaymentCategory(accountID string) (Category, bool) {
	for _, c := range s.Categories {
		if c.LinkedAccountID == accountID {
			return c, true
		}
	}
	return Category{}, false
}

// FindAccount resolves ref as an ID, then as a case-insensitive name.
func (s *Snapshot) FindAccount(ref string) (Account, bool) {
	if a, ok := s.Account(ref); ok {
		return a, true
	}
	for _, a := range s.Accounts {
		if strings.EqualFold(a.Name, ref) {
			return a, true
		}
	}
	return Account{}, false
}

// FindGroup resolves ref as an ID, then as a case-insensitive name.
func (s *Snapshot) FindGroup(ref string) (CategoryGroup, bool) {
	if g, ok := s.Group(ref); ok {
		return g, true
	}
	for _, g := range s.Groups {
		if strings.EqualFold(g.Name, ref) {
			return g, true
		}
	}
	return CategoryGroup{}, false
}

// FindCategory resolves ref as an ID, then as a case-insensitive name.
func (s *Snapshot) FindCategory(ref string) (Category, bool) {
	if c, ok := s.Category(ref); ok {
		return c, true
	}
	for _, c := range s.Categories {
		if strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	return Category{}, false
}

// SortedGroups returns groups ordered by SortOrder, then ID.
func (s *Snapshot) SortedGroups() []CategoryGroup {
	out := append([]CategoryGroup(nil), s.Groups...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortedCategories returns categories in display order: by group order,
// then category SortOrder, then ID. Categories of unknown groups sort last.
func (s *Snapshot) SortedCategories() []Category {
	groupRank := make(map[string]int, len(s.Groups))
	for i, g := range s.SortedGroups() {
		groupRank[g.ID] = i
	}
	rank := func(c Category) int {
		if r, ok := groupRank[c.GroupID]; ok {
			return r
		}
		return len(groupRank)
	}

	out := append([]Category(nil), s.Categories...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CategoriesInGroup returns the categories of groupID ordered by SortOrder, then ID.
func (s *Snapshot) CategoriesInGroup(groupID string) []Category {
	var out []Category
	for _, c := range s.Categories {
		if c.GroupID == groupID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}
