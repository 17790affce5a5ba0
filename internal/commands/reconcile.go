package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/reconcile"
)

// errMismatch makes a failed reconciliation exit non-zero.
var errMismatch = errors.New("statement balance does not match the cleared balance")

func newReconcileCommand(g *globals) *cobra.Command {
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile an account against a bank statement",
	}
	reconcileCmd.AddCommand(newReconcileInfoCommand(g), newReconcileCommitCommand(g))
	return reconcileCmd
}

func newReconcileInfoCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "info <account>",
		Short: "Show the cleared balance a statement must match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				info, err := a.svc.ReconcileInfo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared balance: %s\nCleared transactions to lock: %d\nTolerance: %s\n",
					info.ClearedBalance, info.PendingClearedCount, a.svc.Tolerance())
				return nil
			})
		},
	}
}

func newReconcileCommitCommand(g *globals) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "commit <account> <statement-balance>",
		Short: "Check a statement balance and lock cleared transactions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement, err := parseAmount("statement balance", args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				ctx := cmd.Context()
				w := cmd.OutOrStdout()

				session, err := a.svc.NewReconcileSession(ctx, args[0])
				if err != nil {
					return err
				}
				step, err := session.Submit(statement)
				if err != nil {
					return err
				}
				if step == reconcile.StepMismatch {
					fmt.Fprintf(w, "Cleared balance %s, statement %s: off by %s\n",
						session.Info().ClearedBalance, statement, session.Difference())
					return errMismatch
				}
				if !yes {
					fmt.Fprintf(w, "Statement matches cleared balance %s. Rerun with --yes to lock %d transactions.\n",
						session.Info().ClearedBalance, session.Info().PendingClearedCount)
					return session.Close()
				}

				step, err = session.Confirm(ctx, a.svc)
				if err != nil {
					return err
				}
				if step == reconcile.StepMismatch {
					fmt.Fprintf(w, "Balance changed during reconciliation: off by %s\n", session.Difference())
					return errMismatch
				}
				res := session.Result()
				fmt.Fprintf(w, "Reconciled %d transactions at %s\n", res.ReconciledCount, res.ReconciledBalance)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "commit without asking")
	return cmd
}
