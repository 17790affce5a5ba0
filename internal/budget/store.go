package budget

import (
	"context"
	"time"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/ordering"
	"github.com/cleared-dev/envelope/internal/reconcile"
)

// Store is the data source behind a Service. Save methods upsert by ID.
// ApplyReconciliation and ApplySortOrder must be atomic: either the whole
// batch is written or nothing is.
type Store interface {
	Load(ctx context.Context) (*model.Snapshot, error)
	SaveAccount(ctx context.Context, a model.Account) error
	SaveGroup(ctx context.Context, g model.CategoryGroup) error
	SaveCategory(ctx context.Context, c model.Category) error
	SaveTransactions(ctx context.Context, txns ...model.Transaction) error
	// UpsertAssignments replaces the assigned amount of each (category, month).
	UpsertAssignments(ctx context.Context, entries ...model.MonthlyBudgetEntry) error
	AddAdjustment(ctx context.Context, a model.Adjustment) error
	// ApplyReconciliation returns model.ErrConcurrentChange when the
	// account's cleared balance or the listed transactions no longer match
	// the commit.
	ApplyReconciliation(ctx context.Context, c reconcile.Commit) error
	ApplySortOrder(ctx context.Context, b ordering.Batch) error
	Close() error
}

// Event describes one committed mutation.
type Event struct {
	Time    time.Time
	Action  string
	Subject string
	Details string
}

// Hook observes committed mutations. A failing hook is logged and does not
// undo the mutation.
type Hook interface {
	Record(ctx context.Context, e Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, e Event) error

func (f HookFunc) Record(ctx context.Context, e Event) error { return f(ctx, e) }

// Event actions.
const (
	ActionAccount     = "account"
	ActionGroup       = "group"
	ActionCategory    = "category"
	ActionTransaction = "transaction"
	ActionAssign      = "assign"
	ActionAutoAssign  = "autoassign"
	ActionAdjust      = "adjust"
	ActionReconcile   = "reconcile"
	ActionReorder     = "reorder"
	ActionImport      = "import"
)
