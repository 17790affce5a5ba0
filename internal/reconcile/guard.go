package reconcile

import (
	"fmt"

	"github.com/cleared-dev/envelope/internal/model"
)

// CheckTransition allows clearedStatus to move forward only.
func CheckTransition(from, to model.ClearedStatus) error {
	if !to.Valid() {
		return model.ValidationError{Field: "clearedStatus", Message: fmt.Sprintf("unknown status %q", to)}
	}
	if to.Rank() < from.Rank() {
		return model.InvariantViolation{
			Rule:    model.RuleStatusMonotonic,
			Message: fmt.Sprintf("cannot move a transaction from %s back to %s", from, to),
		}
	}
	return nil
}

// CheckEdit validates replacing old with updated outside a reconciliation
// commit. Reconciled transactions keep their amount, category, date and
// account; only a commit may mark a transaction reconciled; a reconciled
// transaction may only be deleted as part of a transfer pair and is never
// restored once deleted.
func CheckEdit(old, updated model.Transaction) error {
	if err := CheckTransition(old.Cleared, updated.Cleared); err != nil {
		return err
	}
	if updated.Cleared == model.StatusReconciled && old.Cleared != model.StatusReconciled {
		return model.InvariantViolation{
			Rule:    model.RuleReconciledImmutable,
			Message: "transactions are only reconciled by a reconciliation commit",
		}
	}
	if old.Cleared != model.StatusReconciled {
		return nil
	}

	violation := func(field string) error {
		return model.InvariantViolation{
			Rule:    model.RuleReconciledImmutable,
			Message: fmt.Sprintf("cannot change %s of reconciled transaction %s", field, old.ID),
		}
	}
	switch {
	case updated.Inflow != old.Inflow || updated.Outflow != old.Outflow:
		return violation("amount")
	case updated.CategoryID != old.CategoryID:
		return violation("category")
	case !updated.Date.Equal(old.Date):
		return violation("date")
	case updated.AccountID != old.AccountID:
		return violation("account")
	case updated.Deleted && !old.Deleted && !old.IsTransfer():
		return violation("deleted flag")
	case old.Deleted && !updated.Deleted:
		return violation("deleted flag")
	}
	return nil
}
