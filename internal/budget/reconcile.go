package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/reconcile"
)

// Tolerance is the statement difference accepted as a match.
func (s *Service) Tolerance() money.Money {
	return s.tolerance
}

// ReconcileInfo returns the account's cleared balance and the number of
// cleared transactions a commit would lock.
func (s *Service) ReconcileInfo(ctx context.Context, accountRef string) (reconcile.Info, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return reconcile.Info{}, err
	}
	a, ok := snap.FindAccount(accountRef)
	if !ok {
		return reconcile.Info{}, fmt.Errorf("account %q: %w", accountRef, model.ErrNotFound)
	}
	return reconcile.InfoFor(snap.Transactions, a.ID), nil
}

// NewReconcileSession starts a reconciliation session for an account.
func (s *Service) NewReconcileSession(ctx context.Context, accountRef string) (*reconcile.Session, error) {
	info, err := s.ReconcileInfo(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	return reconcile.NewSession(info, s.tolerance), nil
}

// CommitReconciliation re-reads the account's cleared balance and, when it
// still matches the statement, reconciles every cleared transaction in one
// atomic write. Drift is reported as a mismatch response, never an error.
func (s *Service) CommitReconciliation(ctx context.Context, req reconcile.CommitRequest) (reconcile.CommitResponse, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return reconcile.CommitResponse{}, err
	}
	a, ok := snap.FindAccount(req.AccountID)
	if !ok {
		return reconcile.CommitResponse{}, fmt.Errorf("account %q: %w", req.AccountID, model.ErrNotFound)
	}
	req.AccountID = a.ID

	commit, resp := reconcile.Plan(snap.Transactions, req, s.tolerance, s.now().UTC())
	if !resp.Success {
		s.log.Warn("reconciliation mismatch", "account", a.ID, "statement", req.StatementBalance, "difference", resp.Difference)
		return resp, nil
	}

	err = s.store.ApplyReconciliation(ctx, commit)
	if errors.Is(err, model.ErrConcurrentChange) {
		fresh, lerr := s.store.Load(ctx)
		if lerr != nil {
			return reconcile.CommitResponse{}, fmt.Errorf("reloading after concurrent change: %w", lerr)
		}
		diff := req.StatementBalance - ledger.ClearedBalance(fresh.Transactions, a.ID)
		s.log.Warn("reconciliation raced a concurrent change", "account", a.ID, "difference", diff)
		return reconcile.Mismatched(diff), nil
	}
	if err != nil {
		return reconcile.CommitResponse{}, fmt.Errorf("applying reconciliation: %w", err)
	}

	s.log.Info("account reconciled", "account", a.ID, "count", resp.ReconciledCount, "balance", resp.ReconciledBalance)
	s.record(ctx, ActionReconcile, a.ID, "reconciled %d transactions at %s", resp.ReconciledCount, resp.ReconciledBalance)
	return resp, nil
}
