package commands

import (
	"fmt"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/budget"
	"github.com/cleared-dev/envelope/internal/importer"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/month"
)

func newTxnCommand(g *globals) *cobra.Command {
	txnCmd := &cobra.Command{
		Use:   "txn",
		Short: "Manage transactions",
	}
	txnCmd.AddCommand(
		newTxnAddCommand(g),
		newTxnListCommand(g),
		newTxnClearCommand(g),
		newTxnEditCommand(g),
		newTxnImportCommand(g),
	)
	return txnCmd
}

func resolveAccount(snap *model.Snapshot, ref string) (model.Account, error) {
	a, ok := snap.FindAccount(ref)
	if !ok {
		return model.Account{}, fmt.Errorf("account %q: %w", ref, model.ErrNotFound)
	}
	return a, nil
}

func resolveCategory(snap *model.Snapshot, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	c, ok := snap.FindCategory(ref)
	if !ok {
		return "", fmt.Errorf("category %q: %w", ref, model.ErrNotFound)
	}
	return c.ID, nil
}

func newTxnAddCommand(g *globals) *cobra.Command {
	var account, date, payee, memo, category, amount, status, transferTo string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction (positive amounts are inflows)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			d, err := parseDate(date)
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				ctx := cmd.Context()
				snap, err := a.svc.Snapshot(ctx)
				if err != nil {
					return err
				}
				acct, err := resolveAccount(snap, account)
				if err != nil {
					return err
				}
				catID, err := resolveCategory(snap, category)
				if err != nil {
					return err
				}

				if transferTo != "" {
					to, err := resolveAccount(snap, transferTo)
					if err != nil {
						return err
					}
					out, _, err := a.svc.AddTransfer(ctx, acct.ID, to.ID, catID, d, amt, model.ClearedStatus(status))
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s from %q to %q (%s)\n", amt, acct.Name, to.Name, out.TransferID)
					return nil
				}

				t, err := a.svc.AddTransaction(ctx, budget.NewTransaction{
					AccountID:  acct.ID,
					Date:       d,
					Payee:      payee,
					Memo:       memo,
					CategoryID: catID,
					Amount:     amt,
					Cleared:    model.ClearedStatus(status),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s on %s (%s)\n", t.Amount(), t.Date.Format(time.DateOnly), t.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account name or id (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "signed amount (required)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&payee, "payee", "", "payee")
	cmd.Flags().StringVar(&memo, "memo", "", "memo")
	cmd.Flags().StringVar(&category, "category", "", "category name or id")
	cmd.Flags().StringVar(&status, "cleared", string(model.StatusUncleared), "cleared status (uncleared, cleared)")
	cmd.Flags().StringVar(&transferTo, "transfer-to", "", "record a transfer of the amount to this account")

	return cmd
}

func newTxnListCommand(g *globals) *cobra.Command {
	var account, monthStr string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				snap, err := a.svc.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				var acctID string
				if account != "" {
					acct, err := resolveAccount(snap, account)
					if err != nil {
						return err
					}
					acctID = acct.ID
				}
				var m month.Month
				if monthStr != "" {
					if m, err = month.Parse(monthStr); err != nil {
						return err
					}
				}

				txns := make([]model.Transaction, 0, len(snap.Transactions))
				for _, t := range snap.Transactions {
					if t.Deleted || (acctID != "" && t.AccountID != acctID) || (!m.IsZero() && !m.Contains(t.Date)) {
						continue
					}
					txns = append(txns, t)
				}
				sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date) })

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tACCOUNT\tPAYEE\tCATEGORY\tAMOUNT\tSTATUS")
				for _, t := range txns {
					acct, _ := snap.Account(t.AccountID)
					cat, _ := snap.Category(t.CategoryID)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Date.Format(time.DateOnly),
						acct.Name, t.Payee, cat.Name, t.Amount(), t.Cleared)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "only this account")
	cmd.Flags().StringVar(&monthStr, "month", "", "only this month (YYYY-MM)")

	return cmd
}

func newTxnClearCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <id>...",
		Short: "Mark transactions cleared",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				for _, id := range args {
					t, err := a.svc.ClearTransaction(cmd.Context(), id)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", t.ID, t.Cleared)
				}
				return nil
			})
		},
	}
}

func newTxnEditCommand(g *globals) *cobra.Command {
	var date, payee, memo, category, amount, status string
	var del bool

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			return withApp(cmd, g, func(a *app) error {
				snap, err := a.svc.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				t, ok := snap.Transaction(args[0])
				if !ok {
					return fmt.Errorf("transaction %s: %w", args[0], model.ErrNotFound)
				}

				if flags.Changed("amount") {
					amt, err := parseAmount("amount", amount)
					if err != nil {
						return err
					}
					t.Inflow, t.Outflow = 0, 0
					if amt >= 0 {
						t.Inflow = amt
					} else {
						t.Outflow = -amt
					}
				}
				if flags.Changed("date") {
					if t.Date, err = parseDate(date); err != nil {
						return err
					}
				}
				if flags.Changed("category") {
					if t.CategoryID, err = resolveCategory(snap, category); err != nil {
						return err
					}
				}
				if flags.Changed("payee") {
					t.Payee = payee
				}
				if flags.Changed("memo") {
					t.Memo = memo
				}
				if flags.Changed("status") {
					t.Cleared = model.ClearedStatus(status)
				}
				if del {
					t.Deleted = true
				}

				updated, err := a.svc.UpdateTransaction(cmd.Context(), t)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "signed amount")
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&payee, "payee", "", "payee")
	cmd.Flags().StringVar(&memo, "memo", "", "memo")
	cmd.Flags().StringVar(&category, "category", "", "category name or id (empty uncategorizes)")
	cmd.Flags().StringVar(&status, "status", "", "cleared status")
	cmd.Flags().BoolVar(&del, "delete", false, "delete the transaction")

	return cmd
}

func newTxnImportCommand(g *globals) *cobra.Command {
	var account, format, status string

	cmd := &cobra.Command{
		Use:   "import [file]...",
		Short: "Import a bank CSV export (default: every CSV in <budget>/import)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				reg := importer.DefaultRegistry()

				type source struct{ path, inbox string }
				var sources []source
				for _, p := range args {
					sources = append(sources, source{path: p})
				}
				if len(args) == 0 {
					files, err := importer.Scan(a.dir)
					if err != nil {
						return err
					}
					for _, f := range files {
						sources = append(sources, source{path: f.Path, inbox: f.Name})
					}
				}
				if len(sources) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
					return nil
				}

				for _, src := range sources {
					rows, err := reg.ParseFile(src.path, format)
					if err != nil {
						return err
					}
					txns := make([]budget.NewTransaction, len(rows))
					for i, r := range rows {
						txns[i] = budget.NewTransaction{
							Date:    r.Date,
							Payee:   r.Payee,
							Memo:    r.Memo,
							Amount:  r.Amount,
							Cleared: model.ClearedStatus(status),
						}
					}
					added, skipped, err := a.svc.ImportTransactions(cmd.Context(), account, txns)
					if err != nil {
						return err
					}
					if src.inbox != "" {
						if err := importer.MarkProcessed(a.dir, src.inbox); err != nil {
							return err
						}
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: imported %d, skipped %d duplicates\n",
						filepath.Base(src.path), len(added), skipped)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account name or id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&format, "format", "simple", "file format (chase, simple)")
	cmd.Flags().StringVar(&status, "cleared", string(model.StatusCleared), "cleared status of imported rows")

	return cmd
}
