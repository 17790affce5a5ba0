package csvstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/budget"
	"github.com/cleared-dev/envelope/internal/model"
	mt "github.com/cleared-dev/envelope/internal/model/modeltest"
	"github.com/cleared-dev/envelope/internal/month"
	"github.com/cleared-dev/envelope/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) budget.Store {
		s, err := Open(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestOpen_CreatesLayout(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	require.NoError(t, err)

	for _, f := range []string{accountsFile, groupsFile, categoriesFile} {
		data, err := os.ReadFile(filepath.Join(dir, f))
		require.NoError(t, err, f)
		assert.Equal(t, 1, strings.Count(string(data), "\n"), f)
	}

	// Reopening keeps existing data.
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveGroup(context.Background(), model.CategoryGroup{ID: "g1", Name: "Bills", Kind: model.GroupKindNormal}))
	s, err = Open(dir)
	require.NoError(t, err)
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Groups, 1)
}

func TestTransactionsLiveInMonthDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	b := mt.New()
	acct := b.Account("Checking", model.AccountTypeChecking)
	b.Txn(acct, "", "2025-03-02", mt.Units(-12)-345, model.StatusCleared)
	require.NoError(t, s.SaveTransactions(ctx, b.Snapshot().Transactions...))
	require.NoError(t, s.UpsertAssignments(ctx, model.MonthlyBudgetEntry{CategoryID: "c1", Month: month.MustParse("2025-04"), Assigned: mt.Units(50)}))

	data, err := os.ReadFile(filepath.Join(dir, "2025", "03", transactionsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2025-03-02")
	assert.Contains(t, string(data), ",12.345,")

	data, err = os.ReadFile(filepath.Join(dir, "2025", "04", assignmentsFile))
	require.NoError(t, err)
	assert.Equal(t, "category_id,assigned\nc1,50.00\n", string(data))
}

func TestTables_RejectBadRows(t *testing.T) {
	cases := map[string]string{
		"bad date":   "txn_id,date,account_id,payee,memo,category_id,inflow,outflow,cleared,transfer_id,deleted\nt1,03/02/2025,a,,,,,1.00,cleared,,\n",
		"bad amount": "txn_id,date,account_id,payee,memo,category_id,inflow,outflow,cleared,transfer_id,deleted\nt1,2025-03-02,a,,,,abc,,cleared,,\n",
		"bad status": "txn_id,date,account_id,payee,memo,category_id,inflow,outflow,cleared,transfer_id,deleted\nt1,2025-03-02,a,,,,1,,pending,,\n",
		"bad width":  "txn_id,date\nt1,2025-03-02\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := transactionTable.read(bytes.NewBufferString(data))
			assert.Error(t, err)
		})
	}
}

func TestTables_AccountRoundTrip(t *testing.T) {
	a := model.Account{ID: "a1", Name: "Cash", Type: model.AccountTypeCash, Closed: true, ReconciledBalance: mt.Units(20)}
	row := accountTable.marshal(a)
	assert.Equal(t, []string{"a1", "Cash", "cash", "true", "20.00", ""}, row)
	back, err := accountTable.unmarshal(row)
	require.NoError(t, err)
	assert.Equal(t, a, back)
}
