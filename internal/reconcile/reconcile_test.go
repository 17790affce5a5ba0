package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/model"
	mt "github.com/cleared-dev/envelope/internal/model/modeltest"
	"github.com/cleared-dev/envelope/internal/money"
)

var now = time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

func checkingAt1000(t *testing.T) (*mt.Builder, string) {
	t.Helper()
	b := mt.New()
	acct := b.Account("Checking", model.AccountTypeChecking)
	b.Txn(acct, "", "2025-03-01", mt.Units(1200), model.StatusCleared)
	b.Txn(acct, "", "2025-03-05", mt.Units(-200), model.StatusCleared)
	b.Txn(acct, "", "2025-03-09", mt.Units(-50), model.StatusUncleared)
	return b, acct
}

// fakeCommitter plans against a live transaction list, like the service does.
type fakeCommitter struct {
	txns  []model.Transaction
	calls int
}

func (f *fakeCommitter) CommitReconciliation(_ context.Context, req CommitRequest) (CommitResponse, error) {
	f.calls++
	_, resp := Plan(f.txns, req, DefaultTolerance, now)
	return resp, nil
}

func TestInfoFor(t *testing.T) {
	b, acct := checkingAt1000(t)
	info := InfoFor(b.Snapshot().Transactions, acct)
	assert.Equal(t, mt.Units(1000), info.ClearedBalance)
	assert.Equal(t, 2, info.PendingClearedCount)
}

func TestSubmit_ToleranceBoundary(t *testing.T) {
	info := Info{AccountID: "acct1", ClearedBalance: mt.Units(1000)}

	s := NewSession(info, DefaultTolerance)
	step, err := s.Submit(mt.Units(1000) + money.Cent)
	require.NoError(t, err)
	assert.Equal(t, StepConfirm, step)

	s = NewSession(info, DefaultTolerance)
	step, err = s.Submit(mt.Units(1000) + 2*money.Cent)
	require.NoError(t, err)
	assert.Equal(t, StepMismatch, step)
	assert.Equal(t, 2*money.Cent, s.Difference())

	s = NewSession(info, DefaultTolerance)
	step, err = s.Submit(mt.Units(1000) - money.Cent)
	require.NoError(t, err)
	assert.Equal(t, StepConfirm, step)
}

func TestSession_HappyPath(t *testing.T) {
	b, acct := checkingAt1000(t)
	txns := b.Snapshot().Transactions
	s := NewSession(InfoFor(txns, acct), DefaultTolerance)

	_, err := s.Submit(mt.Units(1000))
	require.NoError(t, err)
	step, err := s.Confirm(context.Background(), &fakeCommitter{txns: txns})
	require.NoError(t, err)
	assert.Equal(t, StepSuccess, step)
	assert.Equal(t, 2, s.Result().ReconciledCount)
	assert.Equal(t, mt.Units(1000), s.Result().ReconciledBalance)

	assert.ErrorIs(t, s.Close(), ErrWrongStep)
}

func TestSession_MismatchRetryClose(t *testing.T) {
	s := NewSession(Info{AccountID: "a", ClearedBalance: mt.Units(10)}, DefaultTolerance)
	_, err := s.Submit(mt.Units(12))
	require.NoError(t, err)
	assert.Equal(t, StepMismatch, s.Step())

	_, err = s.Confirm(context.Background(), &fakeCommitter{})
	assert.ErrorIs(t, err, ErrWrongStep)

	require.NoError(t, s.Retry(Info{AccountID: "a", ClearedBalance: mt.Units(12)}))
	assert.Equal(t, StepInput, s.Step())
	_, err = s.Submit(mt.Units(12))
	require.NoError(t, err)
	assert.Equal(t, StepConfirm, s.Step())

	require.NoError(t, s.Close())
	assert.Equal(t, StepClosed, s.Step())
	_, err = s.Submit(mt.Units(12))
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestSession_ServerDriftSendsConfirmToMismatch(t *testing.T) {
	b, acct := checkingAt1000(t)
	s := NewSession(InfoFor(b.Snapshot().Transactions, acct), DefaultTolerance)
	_, err := s.Submit(mt.Units(1000))
	require.NoError(t, err)

	// Another client clears the pending 50 outflow before confirmation.
	b2, acct2 := checkingAt1000(t)
	require.Equal(t, acct, acct2)
	snap := b2.Snapshot()
	for i := range snap.Transactions {
		snap.Transactions[i].Cleared = model.StatusCleared
	}

	c := &fakeCommitter{txns: snap.Transactions}
	step, err := s.Confirm(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, StepMismatch, step)
	assert.Equal(t, mt.Units(50), s.Difference())
	assert.Equal(t, 1, c.calls)
}

func TestPlan_RevalidatesWithoutExpected(t *testing.T) {
	b, acct := checkingAt1000(t)
	txns := b.Snapshot().Transactions

	_, resp := Plan(txns, CommitRequest{AccountID: acct, StatementBalance: mt.Units(990)}, DefaultTolerance, now)
	assert.False(t, resp.Success)
	assert.True(t, resp.Mismatch)
	assert.Equal(t, mt.Units(-10), resp.Difference)

	c, resp := Plan(txns, CommitRequest{AccountID: acct, StatementBalance: mt.Units(1000)}, DefaultTolerance, now)
	require.True(t, resp.Success)
	assert.Len(t, c.TransactionIDs, 2)
	assert.Equal(t, now, c.At)
}

func TestApply(t *testing.T) {
	b, acct := checkingAt1000(t)
	snap := b.Snapshot()
	c, _ := Plan(snap.Transactions, CommitRequest{AccountID: acct, StatementBalance: mt.Units(1000) + money.Cent}, DefaultTolerance, now)

	before, ok := snap.Account(acct)
	require.True(t, ok)
	account, txns := Apply(c, before, snap.Transactions)
	assert.Equal(t, mt.Units(1000)+money.Cent, account.ReconciledBalance)
	assert.Equal(t, now, account.LastReconciledAt)

	var reconciled, uncleared int
	for _, tx := range txns {
		switch tx.Cleared {
		case model.StatusReconciled:
			reconciled++
		case model.StatusUncleared:
			uncleared++
		}
	}
	assert.Equal(t, 2, reconciled)
	assert.Equal(t, 1, uncleared)
	// The input slice is untouched.
	assert.Equal(t, model.StatusCleared, snap.Transactions[0].Cleared)
}

func TestCommitResponse_JSON(t *testing.T) {
	data, err := json.Marshal(CommitResponse{Success: true, ReconciledCount: 3, ReconciledBalance: 1500})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"reconciledCount":3,"reconciledBalance":1500}`, string(data))

	data, err = json.Marshal(Mismatched(20))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"mismatch":true,"difference":20}`, string(data))

	var back CommitResponse
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Mismatched(20), back)
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, CheckTransition(model.StatusUncleared, model.StatusCleared))
	assert.NoError(t, CheckTransition(model.StatusCleared, model.StatusCleared))

	err := CheckTransition(model.StatusReconciled, model.StatusCleared)
	require.Error(t, err)
	var iv model.InvariantViolation
	require.True(t, errors.As(err, &iv))
	assert.Equal(t, model.RuleStatusMonotonic, iv.Rule)

	assert.True(t, model.IsInvariant(CheckTransition(model.StatusCleared, model.StatusUncleared)))
	assert.True(t, model.IsValidation(CheckTransition(model.StatusCleared, "bogus")))
}

func TestCheckEdit(t *testing.T) {
	old := model.Transaction{
		ID: "t1", AccountID: "a", Date: mt.Date("2025-03-01"),
		CategoryID: "c1", Outflow: mt.Units(5), Cleared: model.StatusReconciled,
	}

	memo := old
	memo.Memo = "lunch"
	assert.NoError(t, CheckEdit(old, memo))

	for name, edit := range map[string]func(*model.Transaction){
		"amount":   func(tx *model.Transaction) { tx.Outflow = mt.Units(6) },
		"category": func(tx *model.Transaction) { tx.CategoryID = "c2" },
		"date":     func(tx *model.Transaction) { tx.Date = mt.Date("2025-03-02") },
		"status":   func(tx *model.Transaction) { tx.Cleared = model.StatusCleared },
		"delete":   func(tx *model.Transaction) { tx.Deleted = true },
	} {
		t.Run(name, func(t *testing.T) {
			updated := old
			edit(&updated)
			assert.True(t, model.IsInvariant(CheckEdit(old, updated)))
		})
	}

	t.Run("transfer leg may be deleted", func(t *testing.T) {
		leg := old
		leg.TransferID = "x1"
		updated := leg
		updated.Deleted = true
		assert.NoError(t, CheckEdit(leg, updated))
	})

	t.Run("deleted reconciled transaction stays deleted", func(t *testing.T) {
		for _, transfer := range []string{"", "x1"} {
			gone := old
			gone.TransferID = transfer
			gone.Deleted = true
			restored := gone
			restored.Deleted = false
			err := CheckEdit(gone, restored)
			var iv model.InvariantViolation
			require.True(t, errors.As(err, &iv), "transfer %q: got %v", transfer, err)
			assert.Equal(t, model.RuleReconciledImmutable, iv.Rule)
		}
	})

	t.Run("manual reconcile rejected", func(t *testing.T) {
		cleared := old
		cleared.Cleared = model.StatusCleared
		err := CheckEdit(cleared, old)
		var iv model.InvariantViolation
		require.True(t, errors.As(err, &iv))
		assert.Equal(t, model.RuleReconciledImmutable, iv.Rule)
	})
}
