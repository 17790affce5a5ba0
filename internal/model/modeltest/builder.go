// Package modeltest builds budget snapshots for tests.
package modeltest

import (
	"fmt"
	"time"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
)

// Units converts whole currency units to Money.
func Units(n int64) money.Money {
	return money.Money(n * money.Milliunits)
}

// Date parses "2006-01-02" and panics on bad input.
func Date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// Builder accumulates entities with sequential ids.
type Builder struct {
	snap model.Snapshot
	seq  int
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) id(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s%d", prefix, b.seq)
}

// Account adds an account and returns its id.
func (b *Builder) Account(name string, typ model.AccountType) string {
	id := b.id("acct")
	b.snap.Accounts = append(b.snap.Accounts, model.Account{ID: id, Name: name, Type: typ})
	return id
}

// Group adds a normal group at the end and returns its id.
func (b *Builder) Group(name string) string {
	id := b.id("grp")
	b.snap.Groups = append(b.snap.Groups, model.CategoryGroup{
		ID:        id,
		Name:      name,
		SortOrder: len(b.snap.Groups),
		Kind:      model.GroupKindNormal,
	})
	return id
}

// PaymentGroup returns the payment group id, creating it if needed.
func (b *Builder) PaymentGroup() string {
	if g, ok := b.snap.PaymentGroup(); ok {
		return g.ID
	}
	id := b.id("grp")
	b.snap.Groups = append(b.snap.Groups, model.CategoryGroup{
		ID:        id,
		Name:      model.PaymentGroupName,
		SortOrder: len(b.snap.Groups),
		Kind:      model.GroupKindCreditCardPayments,
	})
	return id
}

// Category adds a category at the end of groupID and returns its id.
func (b *Builder) Category(groupID, name string) string {
	id := b.id("cat")
	b.snap.Categories = append(b.snap.Categories, model.Category{
		ID:        id,
		GroupID:   groupID,
		Name:      name,
		SortOrder: len(b.snap.CategoriesInGroup(groupID)),
	})
	return id
}

// Target sets the funding target of a category.
func (b *Builder) Target(categoryID string, target money.Money) {
	for i := range b.snap.Categories {
		if b.snap.Categories[i].ID == categoryID {
			b.snap.Categories[i].Target = target
		}
	}
}

// PaymentCategory adds the payment category linked to accountID.
func (b *Builder) PaymentCategory(accountID string) string {
	group := b.PaymentGroup()
	acct, _ := b.snap.Account(accountID)
	id := b.Category(group, acct.Name)
	for i := range b.snap.Categories {
		if b.snap.Categories[i].ID == id {
			b.snap.Categories[i].LinkedAccountID = accountID
		}
	}
	return id
}

// Assign records an assignment for category in month "YYYY-MM".
func (b *Builder) Assign(categoryID, m string, amount money.Money) {
	b.snap.Entries = append(b.snap.Entries, model.MonthlyBudgetEntry{
		CategoryID: categoryID,
		Month:      month.MustParse(m),
		Assigned:   amount,
	})
}

// Adjust records a manual Ready to Assign adjustment.
func (b *Builder) Adjust(m string, amount money.Money) {
	b.snap.Adjustments = append(b.snap.Adjustments, model.Adjustment{
		ID:     b.id("adj"),
		Month:  month.MustParse(m),
		Amount: amount,
	})
}

// Txn adds a transaction; positive amounts are inflows.
func (b *Builder) Txn(accountID, categoryID, date string, amount money.Money, status model.ClearedStatus) string {
	id := b.id("txn")
	t := model.Transaction{
		ID:         id,
		AccountID:  accountID,
		Date:       Date(date),
		Payee:      "payee " + id,
		CategoryID: categoryID,
		Cleared:    status,
	}
	if amount >= 0 {
		t.Inflow = amount
	} else {
		t.Outflow = -amount
	}
	b.snap.Transactions = append(b.snap.Transactions, t)
	return id
}

// Transfer moves amount from one account to another. fromCategory is set on
// the outgoing leg only.
func (b *Builder) Transfer(fromAccount, toAccount, fromCategory, date string, amount money.Money, status model.ClearedStatus) (string, string) {
	transferID := b.id("xfer")
	out := b.Txn(fromAccount, fromCategory, date, -amount, status)
	in := b.Txn(toAccount, "", date, amount, status)
	for i := range b.snap.Transactions {
		if id := b.snap.Transactions[i].ID; id == out || id == in {
			b.snap.Transactions[i].TransferID = transferID
		}
	}
	return out, in
}

// Delete marks a transaction deleted.
func (b *Builder) Delete(txnID string) {
	for i := range b.snap.Transactions {
		if b.snap.Transactions[i].ID == txnID {
			b.snap.Transactions[i].Deleted = true
		}
	}
}

// Snapshot returns a copy of the accumulated entities with account balances
// derived from the transactions.
func (b *Builder) Snapshot() *model.Snapshot {
	s := b.snap
	s.Accounts = append([]model.Account(nil), b.snap.Accounts...)
	s.Groups = append([]model.CategoryGroup(nil), b.snap.Groups...)
	s.Categories = append([]model.Category(nil), b.snap.Categories...)
	s.Entries = append([]model.MonthlyBudgetEntry(nil), b.snap.Entries...)
	s.Transactions = append([]model.Transaction(nil), b.snap.Transactions...)
	s.Adjustments = append([]model.Adjustment(nil), b.snap.Adjustments...)
	for i, a := range s.Accounts {
		for _, t := range s.Transactions {
			if t.Deleted || t.AccountID != a.ID {
				continue
			}
			if t.IsCleared() {
				a.ClearedBalance += t.Amount()
			} else {
				a.UnclearedBalance += t.Amount()
			}
		}
		a.WorkingBalance = a.ClearedBalance + a.UnclearedBalance
		s.Accounts[i] = a
	}
	return &s
}
