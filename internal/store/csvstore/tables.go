package csvstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

const dateFormat = "2006-01-02"

// table describes one CSV file layout.
type table[T any] struct {
	name      string
	header    []string
	marshal   func(T) []string
	unmarshal func([]string) (T, error)
}

func (tb table[T]) read(r io.Reader) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(tb.header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s CSV: %w", tb.name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var rows []T
	for i, rec := range records[1:] {
		row, err := tb.unmarshal(rec)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", tb.name, i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (tb table[T]) write(w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(tb.header); err != nil {
		return fmt.Errorf("writing %s header: %w", tb.name, err)
	}
	for i, row := range rows {
		if err := cw.Write(tb.marshal(row)); err != nil {
			return fmt.Errorf("writing %s row %d: %w", tb.name, i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(m money.Money) string {
	if m == 0 {
		return ""
	}
	return m.String()
}

func parseAmount(field, s string) (money.Money, error) {
	if s == "" {
		return 0, nil
	}
	m, err := money.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", field, err)
	}
	return m, nil
}

func parseBool(field, s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return b, nil
}

func parseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return n, nil
}

var accountTable = table[model.Account]{
	name:   "accounts",
	header: []string{"account_id", "name", "type", "closed", "reconciled_balance", "last_reconciled_at"},
	marshal: func(a model.Account) []string {
		var reconciledAt string
		if !a.LastReconciledAt.IsZero() {
			reconciledAt = a.LastReconciledAt.UTC().Format(time.RFC3339)
		}
		return []string{a.ID, a.Name, string(a.Type), strconv.FormatBool(a.Closed), formatAmount(a.ReconciledBalance), reconciledAt}
	},
	unmarshal: func(rec []string) (model.Account, error) {
		closed, err := parseBool("closed", rec[3])
		if err != nil {
			return model.Account{}, err
		}
		reconciled, err := parseAmount("reconciled_balance", rec[4])
		if err != nil {
			return model.Account{}, err
		}
		var at time.Time
		if rec[5] != "" {
			at, err = time.Parse(time.RFC3339, rec[5])
			if err != nil {
				return model.Account{}, fmt.Errorf("parsing last_reconciled_at %q: %w", rec[5], err)
			}
		}
		return model.Account{
			ID:                rec[0],
			Name:              rec[1],
			Type:              model.AccountType(rec[2]),
			Closed:            closed,
			ReconciledBalance: reconciled,
			LastReconciledAt:  at,
		}, nil
	},
}

var groupTable = table[model.CategoryGroup]{
	name:   "groups",
	header: []string{"group_id", "name", "sort_order", "hidden", "kind"},
	marshal: func(g model.CategoryGroup) []string {
		return []string{g.ID, g.Name, strconv.Itoa(g.SortOrder), strconv.FormatBool(g.Hidden), string(g.Kind)}
	},
	unmarshal: func(rec []string) (model.CategoryGroup, error) {
		order, err := parseInt("sort_order", rec[2])
		if err != nil {
			return model.CategoryGroup{}, err
		}
		hidden, err := parseBool("hidden", rec[3])
		if err != nil {
			return model.CategoryGroup{}, err
		}
		return model.CategoryGroup{ID: rec[0], Name: rec[1], SortOrder: order, Hidden: hidden, Kind: model.GroupKind(rec[4])}, nil
	},
}

var categoryTable = table[model.Category]{
	name:   "categories",
	header: []string{"category_id", "group_id", "name", "sort_order", "hidden", "linked_account_id", "target"},
	marshal: func(c model.Category) []string {
		return []string{c.ID, c.GroupID, c.Name, strconv.Itoa(c.SortOrder), strconv.FormatBool(c.Hidden), c.LinkedAccountID, formatAmount(c.Target)}
	},
	unmarshal: func(rec []string) (model.Category, error) {
		order, err := parseInt("sort_order", rec[3])
		if err != nil {
			return model.Category{}, err
		}
		hidden, err := parseBool("hidden", rec[4])
		if err != nil {
			return model.Category{}, err
		}
		target, err := parseAmount("target", rec[6])
		if err != nil {
			return model.Category{}, err
		}
		return model.Category{
			ID:              rec[0],
			GroupID:         rec[1],
			Name:            rec[2],
			SortOrder:       order,
			Hidden:          hidden,
			LinkedAccountID: rec[5],
			Target:          target,
		}, nil
	},
}

var transactionTable = table[model.Transaction]{
	name:   "transactions",
	header: []string{"txn_id", "date", "account_id", "payee", "memo", "category_id", "inflow", "outflow", "cleared", "transfer_id", "deleted"},
	marshal: func(t model.Transaction) []string {
		var deleted string
		if t.Deleted {
			deleted = "true"
		}
		return []string{
			t.ID, t.Date.Format(dateFormat), t.AccountID, t.Payee, t.Memo, t.CategoryID,
			formatAmount(t.Inflow), formatAmount(t.Outflow), string(t.Cleared), t.TransferID, deleted,
		}
	},
	unmarshal: func(rec []string) (model.Transaction, error) {
		date, err := time.Parse(dateFormat, rec[1])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rec[1], err)
		}
		inflow, err := parseAmount("inflow", rec[6])
		if err != nil {
			return model.Transaction{}, err
		}
		outflow, err := parseAmount("outflow", rec[7])
		if err != nil {
			return model.Transaction{}, err
		}
		deleted, err := parseBool("deleted", rec[10])
		if err != nil {
			return model.Transaction{}, err
		}
		status := model.ClearedStatus(rec[8])
		if !status.Valid() {
			return model.Transaction{}, fmt.Errorf("unknown cleared status %q", rec[8])
		}
		return model.Transaction{
			ID:         rec[0],
			Date:       date,
			AccountID:  rec[2],
			Payee:      rec[3],
			Memo:       rec[4],
			CategoryID: rec[5],
			Inflow:     inflow,
			Outflow:    outflow,
			Cleared:    status,
			TransferID: rec[9],
			Deleted:    deleted,
		}, nil
	},
}

// assignment rows omit the month: it is the directory they live in.
var assignmentTable = table[model.MonthlyBudgetEntry]{
	name:   "assignments",
	header: []string{"category_id", "assigned"},
	marshal: func(e model.MonthlyBudgetEntry) []string {
		return []string{e.CategoryID, e.Assigned.String()}
	},
	unmarshal: func(rec []string) (model.MonthlyBudgetEntry, error) {
		assigned, err := parseAmount("assigned", rec[1])
		if err != nil {
			return model.MonthlyBudgetEntry{}, err
		}
		return model.MonthlyBudgetEntry{CategoryID: rec[0], Assigned: assigned}, nil
	},
}

var adjustmentTable = table[model.Adjustment]{
	name:   "adjustments",
	header: []string{"adjustment_id", "amount", "memo"},
	marshal: func(a model.Adjustment) []string {
		return []string{a.ID, a.Amount.String(), a.Memo}
	},
	unmarshal: func(rec []string) (model.Adjustment, error) {
		amount, err := parseAmount("amount", rec[1])
		if err != nil {
			return model.Adjustment{}, err
		}
		return model.Adjustment{ID: rec[0], Amount: amount, Memo: rec[2]}, nil
	},
}
