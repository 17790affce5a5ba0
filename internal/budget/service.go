// Package budget composes the envelope engine with a data source: it loads a
// snapshot, runs the engine and persists the resulting batches.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/envelope/internal/autoassign"
	"github.com/cleared-dev/envelope/internal/ledger"
	"github.com/cleared-dev/envelope/internal/logging"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
	"github.com/cleared-dev/envelope/internal/reconcile"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	Logger *slog.Logger
	Hooks  []Hook
	Window int

	// StartMonth is the first month assignments and adjustments may be
	// written to. The zero Month leaves it open.
	StartMonth month.Month

	// Tolerance is the reconciliation match tolerance. Nil selects
	// reconcile.DefaultTolerance; zero demands an exact match.
	Tolerance *money.Money

	Now   func() time.Time
	NewID func() string
}

// Service provides budget operations over a Store.
type Service struct {
	store     Store
	log       *slog.Logger
	hooks     []Hook
	window    int
	start     month.Month
	tolerance money.Money
	now       func() time.Time
	newID     func() string
}

// New creates a Service.
func New(store Store, opts Options) *Service {
	s := &Service{
		store:     store,
		log:       opts.Logger,
		hooks:     opts.Hooks,
		window:    opts.Window,
		start:     opts.StartMonth,
		tolerance: reconcile.DefaultTolerance,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	s.log = logging.Component(s.log, "budget")
	if s.window <= 0 {
		s.window = autoassign.DefaultWindow
	}
	if opts.Tolerance != nil && *opts.Tolerance >= 0 {
		s.tolerance = *opts.Tolerance
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Store returns the underlying data source.
func (s *Service) Store() Store {
	return s.store
}

// Snapshot loads the current entity set with account balances derived from
// transactions.
func (s *Service) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading budget: %w", err)
	}
	snap.Accounts = ledger.WithBalances(snap.Accounts, snap.Transactions)
	s.log.Debug("snapshot loaded",
		"accounts", len(snap.Accounts),
		"categories", len(snap.Categories),
		"transactions", len(snap.Transactions))
	return snap, nil
}

func (s *Service) record(ctx context.Context, action, subject, format string, args ...any) {
	e := Event{Time: s.now().UTC(), Action: action, Subject: subject, Details: fmt.Sprintf(format, args...)}
	for _, h := range s.hooks {
		if err := h.Record(ctx, e); err != nil {
			s.log.Warn("recording event failed", "action", action, "subject", subject, "error", err)
		}
	}
}

// budgetMonth checks that m can take assignments and adjustments.
func (s *Service) budgetMonth(m month.Month) error {
	if m.IsZero() {
		return model.ValidationError{Field: "month", Message: "required"}
	}
	if !s.start.IsZero() && m.Before(s.start) {
		return model.ValidationError{Field: "month", Message: fmt.Sprintf("%s is before the budget's first month %s", m, s.start)}
	}
	return nil
}
