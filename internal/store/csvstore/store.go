// Package csvstore keeps a budget as CSV files in a directory tree:
//
//	accounts/accounts.csv
//	categories/groups.csv
//	categories/categories.csv
//	YYYY/MM/transactions.csv
//	YYYY/MM/assignments.csv
//	YYYY/MM/adjustments.csv
//
// Every write replaces whole files through a temp file and rename.
package csvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/month"
	"github.com/cleared-dev/envelope/internal/ordering"
	"github.com/cleared-dev/envelope/internal/reconcile"
)

const (
	accountsFile     = "accounts/accounts.csv"
	groupsFile       = "categories/groups.csv"
	categoriesFile   = "categories/categories.csv"
	transactionsFile = "transactions.csv"
	assignmentsFile  = "assignments.csv"
	adjustmentsFile  = "adjustments.csv"
)

// Store is a file-backed budget data source. It is safe for concurrent use
// within one process.
type Store struct {
	root string
	mu   sync.Mutex
}

// Open returns a Store rooted at dir, creating the fixed files if missing.
func Open(dir string) (*Store, error) {
	empty := map[string]func() ([]byte, error){
		accountsFile:   func() ([]byte, error) { return encodeTable(accountTable, nil) },
		groupsFile:     func() ([]byte, error) { return encodeTable(groupTable, nil) },
		categoriesFile: func() ([]byte, error) { return encodeTable(categoryTable, nil) },
	}
	files := make(map[string][]byte)
	for path, encode := range empty {
		_, err := os.Stat(filepath.Join(dir, path))
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
		if files[path], err = encode(); err != nil {
			return nil, err
		}
	}
	if err := writeFiles(dir, files); err != nil {
		return nil, err
	}
	return &Store{root: dir}, nil
}

// Root returns the budget directory.
func (s *Store) Root() string {
	return s.root
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func monthDir(m month.Month) string {
	return fmt.Sprintf("%04d/%02d", m.Year, int(m.Month))
}

func readTable[T any](root, path string, tb table[T]) ([]T, error) {
	f, err := os.Open(filepath.Join(root, path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return tb.read(f)
}

func encodeTable[T any](tb table[T], rows []T) ([]byte, error) {
	var buf bytes.Buffer
	if err := tb.write(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeFiles writes every file to a temp sibling first and renames them into
// place only once all temps are written.
func writeFiles(root string, files map[string][]byte) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	temps := make([]string, 0, len(paths))
	cleanup := func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}
	for _, p := range paths {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			cleanup()
			return fmt.Errorf("creating dir for %s: %w", p, err)
		}
		tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*")
		if err != nil {
			cleanup()
			return fmt.Errorf("creating temp for %s: %w", p, err)
		}
		temps = append(temps, tmp.Name())
		if _, err := tmp.Write(files[p]); err != nil {
			tmp.Close()
			cleanup()
			return fmt.Errorf("writing %s: %w", p, err)
		}
		if err := tmp.Close(); err != nil {
			cleanup()
			return fmt.Errorf("closing %s: %w", p, err)
		}
	}
	for i, p := range paths {
		if err := os.Rename(temps[i], filepath.Join(root, p)); err != nil {
			cleanup()
			return fmt.Errorf("replacing %s: %w", p, err)
		}
	}
	return nil
}

// months lists the YYYY/MM directories present, oldest first.
func (s *Store) months() ([]month.Month, error) {
	dirs, err := filepath.Glob(filepath.Join(s.root, "[0-9][0-9][0-9][0-9]", "[0-9][0-9]"))
	if err != nil {
		return nil, fmt.Errorf("listing months: %w", err)
	}
	var out []month.Month
	for _, d := range dirs {
		rel, err := filepath.Rel(s.root, d)
		if err != nil {
			return nil, err
		}
		m, err := month.Parse(filepath.ToSlash(rel)[:4] + "-" + filepath.ToSlash(rel)[5:])
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b month.Month) int { return a.Index() - b.Index() })
	return out, nil
}

// Load reads the whole budget.
func (s *Store) Load(_ context.Context) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*model.Snapshot, error) {
	var snap model.Snapshot
	var err error
	if snap.Accounts, err = readTable(s.root, accountsFile, accountTable); err != nil {
		return nil, err
	}
	if snap.Groups, err = readTable(s.root, groupsFile, groupTable); err != nil {
		return nil, err
	}
	if snap.Categories, err = readTable(s.root, categoriesFile, categoryTable); err != nil {
		return nil, err
	}

	months, err := s.months()
	if err != nil {
		return nil, err
	}
	for _, m := range months {
		dir := monthDir(m)
		txns, err := readTable(s.root, filepath.Join(dir, transactionsFile), transactionTable)
		if err != nil {
			return nil, err
		}
		snap.Transactions = append(snap.Transactions, txns...)

		entries, err := readTable(s.root, filepath.Join(dir, assignmentsFile), assignmentTable)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			e.Month = m
			snap.Entries = append(snap.Entries, e)
		}

		adjustments, err := readTable(s.root, filepath.Join(dir, adjustmentsFile), adjustmentTable)
		if err != nil {
			return nil, err
		}
		for _, a := range adjustments {
			a.Month = m
			snap.Adjustments = append(snap.Adjustments, a)
		}
	}
	return &snap, nil
}

func upsert[T any](rows []T, row T, id func(T) string) []T {
	for i, r := range rows {
		if id(r) == id(row) {
			rows[i] = row
			return rows
		}
	}
	return append(rows, row)
}

func saveOne[T any](s *Store, path string, tb table[T], row T, id func(T) string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := readTable(s.root, path, tb)
	if err != nil {
		return err
	}
	data, err := encodeTable(tb, upsert(rows, row, id))
	if err != nil {
		return err
	}
	return writeFiles(s.root, map[string][]byte{path: data})
}

// SaveAccount upserts an account.
func (s *Store) SaveAccount(_ context.Context, a model.Account) error {
	return saveOne(s, accountsFile, accountTable, a, func(a model.Account) string { return a.ID })
}

// SaveGroup upserts a category group.
func (s *Store) SaveGroup(_ context.Context, g model.CategoryGroup) error {
	return saveOne(s, groupsFile, groupTable, g, func(g model.CategoryGroup) string { return g.ID })
}

// SaveCategory upserts a category.
func (s *Store) SaveCategory(_ context.Context, c model.Category) error {
	return saveOne(s, categoriesFile, categoryTable, c, func(c model.Category) string { return c.ID })
}

// transactionsByMonth reads every month's transactions.
func (s *Store) transactionsByMonth() (map[month.Month][]model.Transaction, error) {
	months, err := s.months()
	if err != nil {
		return nil, err
	}
	out := make(map[month.Month][]model.Transaction, len(months))
	for _, m := range months {
		txns, err := readTable(s.root, filepath.Join(monthDir(m), transactionsFile), transactionTable)
		if err != nil {
			return nil, err
		}
		out[m] = txns
	}
	return out, nil
}

func encodeTransactions(byMonth map[month.Month][]model.Transaction, dirty map[month.Month]bool) (map[string][]byte, error) {
	files := make(map[string][]byte, len(dirty))
	for m := range dirty {
		txns := byMonth[m]
		sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })
		data, err := encodeTable(transactionTable, txns)
		if err != nil {
			return nil, err
		}
		files[filepath.Join(monthDir(m), transactionsFile)] = data
	}
	return files, nil
}

// SaveTransactions upserts transactions into the month of their date,
// removing them from any month they were stored in before.
func (s *Store) SaveTransactions(_ context.Context, txns ...model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMonth, err := s.transactionsByMonth()
	if err != nil {
		return err
	}
	ids := make(map[string]bool, len(txns))
	for _, t := range txns {
		ids[t.ID] = true
	}
	dirty := make(map[month.Month]bool)
	for m, list := range byMonth {
		kept := slices.DeleteFunc(list, func(t model.Transaction) bool { return ids[t.ID] })
		if len(kept) != len(list) {
			dirty[m] = true
		}
		byMonth[m] = kept
	}
	for _, t := range txns {
		m := month.Of(t.Date)
		byMonth[m] = append(byMonth[m], t)
		dirty[m] = true
	}

	files, err := encodeTransactions(byMonth, dirty)
	if err != nil {
		return err
	}
	return writeFiles(s.root, files)
}

// UpsertAssignments sets the assigned amount for each (category, month).
func (s *Store) UpsertAssignments(_ context.Context, entries ...model.MonthlyBudgetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMonth := make(map[month.Month][]model.MonthlyBudgetEntry)
	for _, e := range entries {
		m := e.Month
		if _, ok := byMonth[m]; !ok {
			existing, err := readTable(s.root, filepath.Join(monthDir(m), assignmentsFile), assignmentTable)
			if err != nil {
				return err
			}
			byMonth[m] = existing
		}
		byMonth[m] = upsert(byMonth[m], e, func(e model.MonthlyBudgetEntry) string { return e.CategoryID })
	}

	files := make(map[string][]byte, len(byMonth))
	for m, rows := range byMonth {
		data, err := encodeTable(assignmentTable, rows)
		if err != nil {
			return err
		}
		files[filepath.Join(monthDir(m), assignmentsFile)] = data
	}
	return writeFiles(s.root, files)
}

// AddAdjustment appends an adjustment to its month.
func (s *Store) AddAdjustment(_ context.Context, a model.Adjustment) error {
	path := filepath.Join(monthDir(a.Month), adjustmentsFile)
	return saveOne(s, path, adjustmentTable, a, func(a model.Adjustment) string { return a.ID })
}

// ApplyReconciliation reconciles the commit's transactions and updates the
// account snapshot. It fails with model.ErrConcurrentChange when the cleared
// balance or any listed transaction changed since the commit was planned.
func (s *Store) ApplyReconciliation(_ context.Context, c reconcile.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	account, ok := snap.Account(c.AccountID)
	if !ok {
		return fmt.Errorf("account %s: %w", c.AccountID, model.ErrNotFound)
	}
	if got := ledger.ClearedBalance(snap.Transactions, c.AccountID); got != c.ClearedBalance {
		return fmt.Errorf("cleared balance is %s, planned %s: %w", got, c.ClearedBalance, model.ErrConcurrentChange)
	}
	for _, id := range c.TransactionIDs {
		t, ok := snap.Transaction(id)
		if !ok || t.Deleted || t.Cleared != model.StatusCleared || t.AccountID != c.AccountID {
			return fmt.Errorf("transaction %s changed: %w", id, model.ErrConcurrentChange)
		}
	}

	byMonth, err := s.transactionsByMonth()
	if err != nil {
		return err
	}
	ids := make(map[string]bool, len(c.TransactionIDs))
	for _, id := range c.TransactionIDs {
		ids[id] = true
	}
	dirty := make(map[month.Month]bool)
	for m, list := range byMonth {
		for _, t := range list {
			if ids[t.ID] {
				dirty[m] = true
			}
		}
	}
	for m := range dirty {
		_, byMonth[m] = reconcile.Apply(c, account, byMonth[m])
	}
	account, _ = reconcile.Apply(c, account, nil)

	files, err := encodeTransactions(byMonth, dirty)
	if err != nil {
		return err
	}
	accounts := upsert(snap.Accounts, account, func(a model.Account) string { return a.ID })
	if files[accountsFile], err = encodeTable(accountTable, accounts); err != nil {
		return err
	}
	return writeFiles(s.root, files)
}

// ApplySortOrder writes a whole ordering batch. The batch is refused with
// model.ErrConcurrentChange when the scope it was planned against changed.
func (s *Store) ApplySortOrder(_ context.Context, b ordering.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	switch b.Scope {
	case ordering.ScopeGroup:
		if err := b.CheckGroups(snap.Groups); err != nil {
			return err
		}
		data, err := encodeTable(groupTable, b.ApplyGroups(snap.Groups))
		if err != nil {
			return err
		}
		return writeFiles(s.root, map[string][]byte{groupsFile: data})
	case ordering.ScopeCategory:
		if err := b.CheckCategories(snap.Categories); err != nil {
			return err
		}
		data, err := encodeTable(categoryTable, b.ApplyCategories(snap.Categories))
		if err != nil {
			return err
		}
		return writeFiles(s.root, map[string][]byte{categoriesFile: data})
	default:
		return model.ValidationError{Field: "scope", Message: fmt.Sprintf("unknown scope %q", b.Scope)}
	}
}
