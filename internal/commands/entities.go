package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

func newAccountCommand(g *globals) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	accountCmd.AddCommand(newAccountAddCommand(g), newAccountListCommand(g))
	return accountCmd
}

func newAccountAddCommand(g *globals) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				acct, err := a.svc.AddAccount(cmd.Context(), args[0], model.AccountType(typ))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s account %q (%s)\n", acct.Type, acct.Name, acct.ID)
				return nil
			})
		},
	}

	types := make([]string, len(model.AccountTypes))
	for i, t := range model.AccountTypes {
		types[i] = string(t)
	}
	cmd.Flags().StringVar(&typ, "type", string(model.AccountTypeChecking), "account type ("+strings.Join(types, ", ")+")")

	return cmd
}

func newAccountListCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				snap, err := a.svc.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(tw, "NAME\tTYPE\tCLEARED\tUNCLEARED\tWORKING\tRECONCILED\t")
				for _, acct := range snap.Accounts {
					if acct.Closed {
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n", acct.Name, acct.Type,
						acct.ClearedBalance, acct.UnclearedBalance, acct.WorkingBalance, acct.ReconciledBalance)
				}
				return tw.Flush()
			})
		},
	}
}

func newGroupCommand(g *globals) *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Manage category groups",
	}
	groupCmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a category group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, g, func(a *app) error {
				grp, err := a.svc.AddGroup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added group %q (%s)\n", grp.Name, grp.ID)
				return nil
			})
		},
	})
	return groupCmd
}

func newCategoryCommand(g *globals) *cobra.Command {
	categoryCmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}

	var target string
	add := &cobra.Command{
		Use:   "add <group> <name>",
		Short: "Add a category to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t money.Money
			if target != "" {
				var err error
				if t, err = parseAmount("target", target); err != nil {
					return err
				}
			}
			return withApp(cmd, g, func(a *app) error {
				c, err := a.svc.AddCategory(cmd.Context(), args[0], args[1], t)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added category %q (%s)\n", c.Name, c.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&target, "target", "", "funding target amount")

	categoryCmd.AddCommand(add, &cobra.Command{
		Use:   "target <category> <amount>",
		Short: "Set a category's funding target (0 clears it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseAmount("target", args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				c, err := a.svc.SetTarget(cmd.Context(), args[0], t)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Target of %q set to %s\n", c.Name, c.Target)
				return nil
			})
		},
	})
	return categoryCmd
}
