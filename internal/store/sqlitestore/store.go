// Package sqlitestore keeps a budget in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
	"github.com/cleared-dev/envelope/internal/ordering"
	"github.com/cleared-dev/envelope/internal/reconcile"
)

const dateFormat = "2006-01-02"

// Store is a SQLite budget data source. Batches run in one SQL transaction.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryAll[T any](ctx context.Context, q queryer, query string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanAccount(r *sql.Rows) (model.Account, error) {
	var a model.Account
	var typ, at string
	var balance int64
	if err := r.Scan(&a.ID, &a.Name, &typ, &a.Closed, &balance, &at); err != nil {
		return a, err
	}
	a.Type = model.AccountType(typ)
	a.ReconciledBalance = money.Money(balance)
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return a, fmt.Errorf("parsing last_reconciled_at %q: %w", at, err)
		}
		a.LastReconciledAt = t
	}
	return a, nil
}

func scanGroup(r *sql.Rows) (model.CategoryGroup, error) {
	var g model.CategoryGroup
	var kind string
	err := r.Scan(&g.ID, &g.Name, &g.SortOrder, &g.Hidden, &kind)
	g.Kind = model.GroupKind(kind)
	return g, err
}

func scanCategory(r *sql.Rows) (model.Category, error) {
	var c model.Category
	var target int64
	err := r.Scan(&c.ID, &c.GroupID, &c.Name, &c.SortOrder, &c.Hidden, &c.LinkedAccountID, &target)
	c.Target = money.Money(target)
	return c, err
}

func scanTransaction(r *sql.Rows) (model.Transaction, error) {
	var t model.Transaction
	var date, cleared string
	var inflow, outflow int64
	if err := r.Scan(&t.ID, &t.AccountID, &date, &t.Payee, &t.Memo, &t.CategoryID, &inflow, &outflow, &cleared, &t.TransferID, &t.Deleted); err != nil {
		return t, err
	}
	d, err := time.Parse(dateFormat, date)
	if err != nil {
		return t, fmt.Errorf("parsing date %q: %w", date, err)
	}
	t.Date = d
	t.Inflow, t.Outflow = money.Money(inflow), money.Money(outflow)
	t.Cleared = model.ClearedStatus(cleared)
	return t, nil
}

func scanEntry(r *sql.Rows) (model.MonthlyBudgetEntry, error) {
	var e model.MonthlyBudgetEntry
	var m string
	var assigned int64
	if err := r.Scan(&e.CategoryID, &m, &assigned); err != nil {
		return e, err
	}
	mm, err := month.Parse(m)
	if err != nil {
		return e, err
	}
	e.Month, e.Assigned = mm, money.Money(assigned)
	return e, nil
}

func scanAdjustment(r *sql.Rows) (model.Adjustment, error) {
	var a model.Adjustment
	var m string
	var amount int64
	if err := r.Scan(&a.ID, &m, &amount, &a.Memo); err != nil {
		return a, err
	}
	mm, err := month.Parse(m)
	if err != nil {
		return a, err
	}
	a.Month, a.Amount = mm, money.Money(amount)
	return a, nil
}

const (
	selectAccounts     = `SELECT id, name, type, closed, reconciled_balance, last_reconciled_at FROM accounts ORDER BY rowid`
	selectGroups       = `SELECT id, name, sort_order, hidden, kind FROM category_groups ORDER BY rowid`
	selectCategories   = `SELECT id, group_id, name, sort_order, hidden, linked_account_id, target FROM categories ORDER BY rowid`
	selectTransactions = `SELECT id, account_id, date, payee, memo, category_id, inflow, outflow, cleared, transfer_id, deleted FROM transactions ORDER BY date, rowid`
	selectEntries      = `SELECT category_id, month, assigned FROM assignments ORDER BY month, rowid`
	selectAdjustments  = `SELECT id, month, amount, memo FROM adjustments ORDER BY month, rowid`
)

// Load reads the whole budget in one read transaction.
func (s *Store) Load(ctx context.Context) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return loadInto(ctx, tx, &snap)
	})
	if err != nil {
		return nil, fmt.Errorf("loading budget: %w", err)
	}
	return &snap, nil
}

func loadInto(ctx context.Context, q queryer, snap *model.Snapshot) error {
	var err error
	if snap.Accounts, err = queryAll(ctx, q, selectAccounts, scanAccount); err != nil {
		return fmt.Errorf("accounts: %w", err)
	}
	if snap.Groups, err = queryAll(ctx, q, selectGroups, scanGroup); err != nil {
		return fmt.Errorf("groups: %w", err)
	}
	if snap.Categories, err = queryAll(ctx, q, selectCategories, scanCategory); err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	if snap.Transactions, err = queryAll(ctx, q, selectTransactions, scanTransaction); err != nil {
		return fmt.Errorf("transactions: %w", err)
	}
	if snap.Entries, err = queryAll(ctx, q, selectEntries, scanEntry); err != nil {
		return fmt.Errorf("assignments: %w", err)
	}
	if snap.Adjustments, err = queryAll(ctx, q, selectAdjustments, scanAdjustment); err != nil {
		return fmt.Errorf("adjustments: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

const upsertAccount = `INSERT INTO accounts (id, name, type, closed, reconciled_balance, last_reconciled_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type, closed = excluded.closed,
	reconciled_balance = excluded.reconciled_balance, last_reconciled_at = excluded.last_reconciled_at`

// SaveAccount upserts an account.
func (s *Store) SaveAccount(ctx context.Context, a model.Account) error {
	_, err := s.db.ExecContext(ctx, upsertAccount,
		a.ID, a.Name, string(a.Type), a.Closed, int64(a.ReconciledBalance), formatTime(a.LastReconciledAt))
	if err != nil {
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	return nil
}

// SaveGroup upserts a category group.
func (s *Store) SaveGroup(ctx context.Context, g model.CategoryGroup) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO category_groups (id, name, sort_order, hidden, kind)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, sort_order = excluded.sort_order,
	hidden = excluded.hidden, kind = excluded.kind`,
		g.ID, g.Name, g.SortOrder, g.Hidden, string(g.Kind))
	if err != nil {
		return fmt.Errorf("save group %s: %w", g.ID, err)
	}
	return nil
}

// SaveCategory upserts a category.
func (s *Store) SaveCategory(ctx context.Context, c model.Category) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO categories (id, group_id, name, sort_order, hidden, linked_account_id, target)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET group_id = excluded.group_id, name = excluded.name, sort_order = excluded.sort_order,
	hidden = excluded.hidden, linked_account_id = excluded.linked_account_id, target = excluded.target`,
		c.ID, c.GroupID, c.Name, c.SortOrder, c.Hidden, c.LinkedAccountID, int64(c.Target))
	if err != nil {
		return fmt.Errorf("save category %s: %w", c.ID, err)
	}
	return nil
}

const upsertTransaction = `INSERT INTO transactions (id, account_id, date, payee, memo, category_id, inflow, outflow, cleared, transfer_id, deleted)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET account_id = excluded.account_id, date = excluded.date, payee = excluded.payee,
	memo = excluded.memo, category_id = excluded.category_id, inflow = excluded.inflow, outflow = excluded.outflow,
	cleared = excluded.cleared, transfer_id = excluded.transfer_id, deleted = excluded.deleted`

// SaveTransactions upserts transactions in one SQL transaction.
func (s *Store) SaveTransactions(ctx context.Context, txns ...model.Transaction) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertTransaction)
		if err != nil {
			return fmt.Errorf("prepare transaction upsert: %w", err)
		}
		defer stmt.Close()
		for _, t := range txns {
			if _, err := stmt.ExecContext(ctx, t.ID, t.AccountID, t.Date.Format(dateFormat), t.Payee, t.Memo, t.CategoryID,
				int64(t.Inflow), int64(t.Outflow), string(t.Cleared), t.TransferID, t.Deleted); err != nil {
				return fmt.Errorf("save transaction %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// UpsertAssignments sets the assigned amount for each (category, month).
func (s *Store) UpsertAssignments(ctx context.Context, entries ...model.MonthlyBudgetEntry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, `INSERT INTO assignments (category_id, month, assigned) VALUES (?, ?, ?)
ON CONFLICT(category_id, month) DO UPDATE SET assigned = excluded.assigned`,
				e.CategoryID, e.Month.String(), int64(e.Assigned)); err != nil {
				return fmt.Errorf("save assignment %s %s: %w", e.CategoryID, e.Month, err)
			}
		}
		return nil
	})
}

// AddAdjustment stores an adjustment.
func (s *Store) AddAdjustment(ctx context.Context, a model.Adjustment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO adjustments (id, month, amount, memo) VALUES (?, ?, ?, ?)`,
		a.ID, a.Month.String(), int64(a.Amount), a.Memo)
	if err != nil {
		return fmt.Errorf("save adjustment %s: %w", a.ID, err)
	}
	return nil
}

// ApplyReconciliation re-checks the cleared balance and the listed
// transactions inside the write transaction, then reconciles them and updates
// the account snapshot.
func (s *Store) ApplyReconciliation(ctx context.Context, c reconcile.Commit) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		txns, err := queryAll(ctx, tx, `SELECT id, account_id, date, payee, memo, category_id, inflow, outflow, cleared, transfer_id, deleted
FROM transactions WHERE account_id = ?`, scanTransaction, c.AccountID)
		if err != nil {
			return fmt.Errorf("reading account transactions: %w", err)
		}
		if got := ledger.ClearedBalance(txns, c.AccountID); got != c.ClearedBalance {
			return fmt.Errorf("cleared balance is %s, planned %s: %w", got, c.ClearedBalance, model.ErrConcurrentChange)
		}

		for _, id := range c.TransactionIDs {
			res, err := tx.ExecContext(ctx, `UPDATE transactions SET cleared = ?
WHERE id = ? AND account_id = ? AND cleared = ? AND deleted = 0`,
				string(model.StatusReconciled), id, c.AccountID, string(model.StatusCleared))
			if err != nil {
				return fmt.Errorf("reconcile transaction %s: %w", id, err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n != 1 {
				return fmt.Errorf("transaction %s changed: %w", id, model.ErrConcurrentChange)
			}
		}

		res, err := tx.ExecContext(ctx, `UPDATE accounts SET reconciled_balance = ?, last_reconciled_at = ? WHERE id = ?`,
			int64(c.ReconciledBalance), formatTime(c.At), c.AccountID)
		if err != nil {
			return fmt.Errorf("update account snapshot: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return fmt.Errorf("account %s: %w", c.AccountID, model.ErrNotFound)
		}
		return nil
	})
}

// ApplySortOrder writes a whole ordering batch in one SQL transaction after
// checking that the scope still matches the batch's plan.
func (s *Store) ApplySortOrder(ctx context.Context, b ordering.Batch) error {
	var query string
	switch b.Scope {
	case ordering.ScopeGroup:
		query = `UPDATE category_groups SET sort_order = ? WHERE id = ?`
	case ordering.ScopeCategory:
		query = `UPDATE categories SET sort_order = ?, group_id = COALESCE(NULLIF(?, ''), group_id) WHERE id = ?`
	default:
		return model.ValidationError{Field: "scope", Message: fmt.Sprintf("unknown scope %q", b.Scope)}
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if b.Scope == ordering.ScopeGroup {
			groups, err := queryAll(ctx, tx, selectGroups, scanGroup)
			if err != nil {
				return fmt.Errorf("groups: %w", err)
			}
			if err := b.CheckGroups(groups); err != nil {
				return err
			}
		} else {
			cats, err := queryAll(ctx, tx, selectCategories, scanCategory)
			if err != nil {
				return fmt.Errorf("categories: %w", err)
			}
			if err := b.CheckCategories(cats); err != nil {
				return err
			}
		}
		for _, it := range b.Items {
			args := []any{it.SortOrder, it.ID}
			if b.Scope == ordering.ScopeCategory {
				args = []any{it.SortOrder, it.ParentGroupID, it.ID}
			}
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("update sort order of %s: %w", it.ID, err)
			}
			if n, _ := res.RowsAffected(); n != 1 {
				return fmt.Errorf("%s %s: %w", b.Scope, it.ID, model.ErrConcurrentChange)
			}
		}
		return nil
	})
}
