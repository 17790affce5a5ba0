package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/envelope/internal/money"
)

// Step is a reconciliation session state.
type Step string

const (
	StepInput    Step = "input"
	StepConfirm  Step = "confirm"
	StepMismatch Step = "mismatch"
	StepSuccess  Step = "success"
	StepClosed   Step = "closed"
)

// ErrWrongStep is returned when an action is not allowed in the current step.
var ErrWrongStep = errors.New("action not allowed in current step")

// Committer performs the server-side commit. budget.Service satisfies it.
type Committer interface {
	CommitReconciliation(ctx context.Context, req CommitRequest) (CommitResponse, error)
}

// Session drives one reconciliation attempt for one account. It holds no
// side effects of its own until Confirm calls the Committer.
type Session struct {
	info      Info
	tolerance money.Money
	step      Step
	statement money.Money
	result    CommitResponse
}

// NewSession starts at the Input step.
func NewSession(info Info, tolerance money.Money) *Session {
	return &Session{info: info, tolerance: tolerance, step: StepInput}
}

func (s *Session) Step() Step { return s.step }

func (s *Session) Info() Info { return s.info }

func (s *Session) StatementBalance() money.Money { return s.statement }

// Difference is statement balance minus the cleared balance the session saw,
// or the recomputed difference after a server-side mismatch.
func (s *Session) Difference() money.Money {
	if s.result.Mismatch {
		return s.result.Difference
	}
	return s.statement - s.info.ClearedBalance
}

// Result is the commit outcome once the session reaches Success or a
// server-side Mismatch.
func (s *Session) Result() CommitResponse { return s.result }

// Submit records the statement balance and moves to Confirm or Mismatch.
func (s *Session) Submit(statement money.Money) (Step, error) {
	if err := s.expect(StepInput); err != nil {
		return s.step, err
	}
	s.statement = statement
	s.result = CommitResponse{}
	if money.Within(statement, s.info.ClearedBalance, s.tolerance) {
		s.step = StepConfirm
	} else {
		s.step = StepMismatch
	}
	return s.step, nil
}

// Retry returns from Mismatch to Input. A refreshed Info replaces the old one
// when the mismatch came from the server.
func (s *Session) Retry(info Info) error {
	if err := s.expect(StepMismatch); err != nil {
		return err
	}
	s.info = info
	s.result = CommitResponse{}
	s.step = StepInput
	return nil
}

// Close aborts the session. It has no side effects.
func (s *Session) Close() error {
	if s.step == StepSuccess {
		return fmt.Errorf("close: %w (%s)", ErrWrongStep, s.step)
	}
	s.step = StepClosed
	return nil
}

// Confirm asks the Committer to apply the reconciliation. The server re-checks
// the cleared balance; a drift sends the session to Mismatch.
func (s *Session) Confirm(ctx context.Context, c Committer) (Step, error) {
	if err := s.expect(StepConfirm); err != nil {
		return s.step, err
	}
	expected := s.info.ClearedBalance
	resp, err := c.CommitReconciliation(ctx, CommitRequest{
		AccountID:              s.info.AccountID,
		StatementBalance:       s.statement,
		ExpectedClearedBalance: &expected,
	})
	if err != nil {
		return s.step, err
	}
	s.result = resp
	if resp.Success {
		s.step = StepSuccess
	} else {
		s.step = StepMismatch
	}
	return s.step, nil
}

func (s *Session) expect(want Step) error {
	if s.step != want {
		return fmt.Errorf("%w: in %s, want %s", ErrWrongStep, s.step, want)
	}
	return nil
}
