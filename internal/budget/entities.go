package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/reconcile"
)

// AddAccount creates an account. A credit account also gets its payment
// category, creating the payment group on first use.
func (s *Service) AddAccount(ctx context.Context, name string, typ model.AccountType) (model.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Account{}, model.ValidationError{Field: "name", Message: "required"}
	}
	if !typ.Valid() {
		return model.Account{}, model.ValidationError{Field: "type", Message: fmt.Sprintf("unknown account type %q", typ)}
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.Account{}, err
	}
	if _, ok := snap.FindAccount(name); ok {
		return model.Account{}, model.ValidationError{Field: "name", Message: fmt.Sprintf("account %q already exists", name)}
	}

	a := model.Account{ID: s.newID(), Name: name, Type: typ}
	if err := s.store.SaveAccount(ctx, a); err != nil {
		return model.Account{}, fmt.Errorf("saving account: %w", err)
	}
	if typ == model.AccountTypeCredit {
		if err := s.ensurePaymentCategory(ctx, snap, a); err != nil {
			return model.Account{}, err
		}
	}
	s.log.Info("account added", "account", a.ID, "name", a.Name, "type", a.Type)
	s.record(ctx, ActionAccount, a.ID, "added %s account %q", a.Type, a.Name)
	return a, nil
}

func (s *Service) ensurePaymentCategory(ctx context.Context, snap *model.Snapshot, a model.Account) error {
	if _, ok := snap.PaymentCategory(a.ID); ok {
		return nil
	}
	pg, ok := snap.PaymentGroup()
	if !ok {
		pg = model.CategoryGroup{
			ID:        s.newID(),
			Name:      model.PaymentGroupName,
			SortOrder: len(snap.Groups),
			Kind:      model.GroupKindCreditCardPayments,
		}
		if err := s.store.SaveGroup(ctx, pg); err != nil {
			return fmt.Errorf("saving payment group: %w", err)
		}
	}
	c := model.Category{
		ID:              s.newID(),
		GroupID:         pg.ID,
		Name:            a.Name,
		SortOrder:       len(snap.CategoriesInGroup(pg.ID)),
		LinkedAccountID: a.ID,
	}
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return fmt.Errorf("saving payment category: %w", err)
	}
	return nil
}

// AddGroup creates a category group at the end of the group list.
func (s *Service) AddGroup(ctx context.Context, name string) (model.CategoryGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.CategoryGroup{}, model.ValidationError{Field: "name", Message: "required"}
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.CategoryGroup{}, err
	}
	if _, ok := snap.FindGroup(name); ok {
		return model.CategoryGroup{}, model.ValidationError{Field: "name", Message: fmt.Sprintf("group %q already exists", name)}
	}
	g := model.CategoryGroup{ID: s.newID(), Name: name, SortOrder: len(snap.Groups), Kind: model.GroupKindNormal}
	if err := s.store.SaveGroup(ctx, g); err != nil {
		return model.CategoryGroup{}, fmt.Errorf("saving group: %w", err)
	}
	s.record(ctx, ActionGroup, g.ID, "added group %q", g.Name)
	return g, nil
}

// AddCategory creates a category at the end of a group. groupRef is an ID or
// a name. Categories cannot be added to the payment group by hand.
func (s *Service) AddCategory(ctx context.Context, groupRef, name string, target money.Money) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, model.ValidationError{Field: "name", Message: "required"}
	}
	if target < 0 {
		return model.Category{}, model.ValidationError{Field: "target", Message: "must not be negative"}
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.Category{}, err
	}
	g, ok := snap.FindGroup(groupRef)
	if !ok {
		return model.Category{}, fmt.Errorf("group %q: %w", groupRef, model.ErrNotFound)
	}
	if g.IsPayment() {
		return model.Category{}, model.InvariantViolation{
			Rule:    model.RulePaymentGroup,
			Message: "payment categories are created with their credit account",
		}
	}
	c := model.Category{
		ID:        s.newID(),
		GroupID:   g.ID,
		Name:      name,
		SortOrder: len(snap.CategoriesInGroup(g.ID)),
		Target:    target,
	}
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return model.Category{}, fmt.Errorf("saving category: %w", err)
	}
	s.record(ctx, ActionCategory, c.ID, "added category %q to %q", c.Name, g.Name)
	return c, nil
}

// SetTarget changes a category's funding target. Zero clears it.
func (s *Service) SetTarget(ctx context.Context, categoryRef string, target money.Money) (model.Category, error) {
	if target < 0 {
		return model.Category{}, model.ValidationError{Field: "target", Message: "must not be negative"}
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.Category{}, err
	}
	c, ok := snap.FindCategory(categoryRef)
	if !ok {
		return model.Category{}, fmt.Errorf("category %q: %w", categoryRef, model.ErrNotFound)
	}
	c.Target = target
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return model.Category{}, fmt.Errorf("saving category: %w", err)
	}
	s.record(ctx, ActionCategory, c.ID, "target of %q set to %s", c.Name, target)
	return c, nil
}

// NewTransaction holds the fields of a transaction to add. Positive amounts
// are inflows.
type NewTransaction struct {
	AccountID  string
	Date       time.Time
	Payee      string
	Memo       string
	CategoryID string
	Amount     money.Money
	Cleared    model.ClearedStatus
}

// AddTransaction validates and stores one transaction.
func (s *Service) AddTransaction(ctx context.Context, p NewTransaction) (model.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.Transaction{}, err
	}
	t, err := s.newTransaction(snap, p)
	if err != nil {
		return model.Transaction{}, err
	}
	if err := s.store.SaveTransactions(ctx, t); err != nil {
		return model.Transaction{}, fmt.Errorf("saving transaction: %w", err)
	}
	s.record(ctx, ActionTransaction, t.ID, "added %s on %s: %s", t.Amount(), t.Date.Format(time.DateOnly), t.Payee)
	return t, nil
}

// AddTransfer moves amount from one account to another as a pair of linked
// transactions. categoryID applies to the outgoing leg only.
func (s *Service) AddTransfer(ctx context.Context, fromID, toID, categoryID string, date time.Time, amount money.Money, status model.ClearedStatus) (model.Transaction, model.Transaction, error) {
	if amount <= 0 {
		return model.Transaction{}, model.Transaction{}, model.ValidationError{Field: "amount", Message: "transfer amount must be positive"}
	}
	if fromID == toID {
		return model.Transaction{}, model.Transaction{}, model.ValidationError{Field: "account", Message: "cannot transfer to the same account"}
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.Transaction{}, model.Transaction{}, err
	}
	from, ok := snap.Account(fromID)
	if !ok {
		return model.Transaction{}, model.Transaction{}, fmt.Errorf("account %s: %w", fromID, model.ErrNotFound)
	}
	to, ok := snap.Account(toID)
	if !ok {
		return model.Transaction{}, model.Transaction{}, fmt.Errorf("account %s: %w", toID, model.ErrNotFound)
	}

	out, err := s.newTransaction(snap, NewTransaction{
		AccountID: from.ID, Date: date, Payee: "Transfer : " + to.Name,
		CategoryID: categoryID, Amount: -amount, Cleared: status,
	})
	if err != nil {
		return model.Transaction{}, model.Transaction{}, err
	}
	in, err := s.newTransaction(snap, NewTransaction{
		AccountID: to.ID, Date: date, Payee: "Transfer : " + from.Name,
		Amount: amount, Cleared: status,
	})
	if err != nil {
		return model.Transaction{}, model.Transaction{}, err
	}
	out.TransferID = s.newID()
	in.TransferID = out.TransferID

	if err := s.store.SaveTransactions(ctx, out, in); err != nil {
		return model.Transaction{}, model.Transaction{}, fmt.Errorf("saving transfer: %w", err)
	}
	s.record(ctx, ActionTransaction, out.TransferID, "transfer %s from %q to %q", amount, from.Name, to.Name)
	return out, in, nil
}

func (s *Service) newTransaction(snap *model.Snapshot, p NewTransaction) (model.Transaction, error) {
	if _, ok := snap.Account(p.AccountID); !ok {
		return model.Transaction{}, fmt.Errorf("account %s: %w", p.AccountID, model.ErrNotFound)
	}
	if p.Date.IsZero() {
		return model.Transaction{}, model.ValidationError{Field: "date", Message: "required"}
	}
	if p.CategoryID != "" {
		if _, ok := snap.Category(p.CategoryID); !ok {
			return model.Transaction{}, fmt.Errorf("category %s: %w", p.CategoryID, model.ErrNotFound)
		}
	}
	if p.Cleared == "" {
		p.Cleared = model.StatusUncleared
	}
	if err := reconcile.CheckTransition(model.StatusUncleared, p.Cleared); err != nil {
		return model.Transaction{}, err
	}
	if p.Cleared == model.StatusReconciled {
		return model.Transaction{}, model.InvariantViolation{
			Rule:    model.RuleReconciledImmutable,
			Message: "transactions are only reconciled by a reconciliation commit",
		}
	}
	t := model.Transaction{
		ID:         s.newID(),
		AccountID:  p.AccountID,
		Date:       p.Date,
		Payee:      p.Payee,
		Memo:       p.Memo,
		CategoryID: p.CategoryID,
		Cleared:    p.Cleared,
	}
	if p.Amount >= 0 {
		t.Inflow = p.Amount
	} else {
		t.Outflow = -p.Amount
	}
	return t, nil
}

// UpdateTransaction replaces a stored transaction after checking the
// reconciled-transaction guards. Deleting one leg of a transfer deletes both.
func (s *Service) UpdateTransaction(ctx context.Context, updated model.Transaction) (model.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.Transaction{}, err
	}
	old, ok := snap.Transaction(updated.ID)
	if !ok {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", updated.ID, model.ErrNotFound)
	}
	updated.TransferID = old.TransferID
	if err := reconcile.CheckEdit(old, updated); err != nil {
		s.log.Warn("transaction edit rejected", "transaction", old.ID, "error", err)
		return model.Transaction{}, err
	}
	if updated.CategoryID != "" {
		if _, ok := snap.Category(updated.CategoryID); !ok {
			return model.Transaction{}, fmt.Errorf("category %s: %w", updated.CategoryID, model.ErrNotFound)
		}
	}

	batch := []model.Transaction{updated}
	if updated.Deleted && !old.Deleted && old.IsTransfer() {
		for _, t := range snap.Transactions {
			if t.TransferID == old.TransferID && t.ID != old.ID && !t.Deleted {
				t.Deleted = true
				batch = append(batch, t)
			}
		}
	}
	if err := s.store.SaveTransactions(ctx, batch...); err != nil {
		return model.Transaction{}, fmt.Errorf("saving transaction: %w", err)
	}
	s.record(ctx, ActionTransaction, updated.ID, "updated (status %s, deleted %t)", updated.Cleared, updated.Deleted)
	return updated, nil
}

// ClearTransaction marks a transaction cleared.
func (s *Service) ClearTransaction(ctx context.Context, id string) (model.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return model.Transaction{}, err
	}
	t, ok := snap.Transaction(id)
	if !ok {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, model.ErrNotFound)
	}
	if t.Cleared != model.StatusUncleared {
		return t, nil
	}
	t.Cleared = model.StatusCleared
	return s.UpdateTransaction(ctx, t)
}

// ImportTransactions adds statement rows to an account as one batch. A row
// that matches a live transaction on the account by date, amount and payee
// is skipped, so re-importing an overlapping statement adds nothing twice.
func (s *Service) ImportTransactions(ctx context.Context, accountRef string, rows []NewTransaction) ([]model.Transaction, int, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}
	a, ok := snap.FindAccount(accountRef)
	if !ok {
		return nil, 0, fmt.Errorf("account %q: %w", accountRef, model.ErrNotFound)
	}

	key := func(date time.Time, amount money.Money, payee string) string {
		return fmt.Sprintf("%s|%d|%s", date.Format(time.DateOnly), amount, strings.ToLower(strings.TrimSpace(payee)))
	}
	existing := make(map[string]int)
	for _, t := range snap.Transactions {
		if t.AccountID == a.ID && !t.Deleted {
			existing[key(t.Date, t.Amount(), t.Payee)]++
		}
	}

	var batch []model.Transaction
	skipped := 0
	for _, r := range rows {
		k := key(r.Date, r.Amount, r.Payee)
		if existing[k] > 0 {
			existing[k]--
			skipped++
			continue
		}
		r.AccountID = a.ID
		t, err := s.newTransaction(snap, r)
		if err != nil {
			return nil, 0, err
		}
		batch = append(batch, t)
	}
	if len(batch) == 0 {
		return nil, skipped, nil
	}
	if err := s.store.SaveTransactions(ctx, batch...); err != nil {
		return nil, 0, fmt.Errorf("saving import: %w", err)
	}
	s.log.Info("transactions imported", "account", a.ID, "imported", len(batch), "skipped", skipped)
	s.record(ctx, ActionImport, a.ID, "imported %d transactions into %q (%d duplicates skipped)", len(batch), a.Name, skipped)
	return batch, skipped, nil
}
