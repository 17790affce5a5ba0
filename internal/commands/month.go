package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/autoassign"
	"github.com/cleared-dev/envelope/internal/budget"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/rta"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newAssignCommand(g *globals) *cobra.Command {
	var monthStr string

	cmd := &cobra.Command{
		Use:   "assign <category> <amount>",
		Short: "Set the assigned amount of a category for a month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMonth(monthStr)
			if err != nil {
				return err
			}
			amt, err := parseAmount("amount", args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				it, err := a.svc.Assign(cmd.Context(), args[0], m, amt)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: assigned %s, available %s\n", m, args[0], it.Assigned, it.Available)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&monthStr, "month", "", "month (YYYY-MM, default current)")
	return cmd
}

func newMonthCommand(g *globals) *cobra.Command {
	var asJSON, showHidden bool

	cmd := &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show the budget for a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			m, err := parseMonth(arg)
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				view, err := a.svc.Month(cmd.Context(), m)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), view)
				}
				return printMonth(cmd.OutOrStdout(), view, showHidden)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&showHidden, "hidden", false, "include hidden groups and categories")
	return cmd
}

func printMonth(w io.Writer, view budget.MonthView, showHidden bool) error {
	fmt.Fprintf(w, "%s  Ready to Assign: %s\n\n", view.Month, view.ReadyToAssign.Total)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tASSIGNED\tACTIVITY\tAVAILABLE\t")
	for _, gv := range view.Groups {
		if gv.Hidden && !showHidden {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", gv.Name, gv.Assigned, gv.Activity, gv.Available)
		for _, c := range gv.Categories {
			if c.Hidden && !showHidden {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", c.Name, c.Assigned, c.Activity, c.Available, c.Tier)
		}
	}
	if view.Uncategorized != 0 {
		fmt.Fprintf(tw, "Uncategorized\t\t%s\t\t\n", view.Uncategorized)
	}
	return tw.Flush()
}

func newRTACommand(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rta [YYYY-MM]",
		Short: "Show Ready to Assign for a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			m, err := parseMonth(arg)
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				b, err := a.svc.ReadyToAssign(cmd.Context(), m)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), b)
				}
				return printRTA(cmd.OutOrStdout(), b)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printRTA(w io.Writer, b rta.Breakdown) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Income\t%s\t\n", b.Income)
	fmt.Fprintf(tw, "Assigned\t%s\t\n", -b.Assigned)
	fmt.Fprintf(tw, "Adjustments\t%s\t\n", b.Adjustments)
	fmt.Fprintf(tw, "Ready to Assign\t%s\t\n", b.Total)
	if err := tw.Flush(); err != nil {
		return err
	}
	if b.OverAssigned() {
		fmt.Fprintf(w, "%s is over-assigned by %s\n", b.Month, -b.Total)
	}
	return nil
}

func newAutoAssignCommand(g *globals) *cobra.Command {
	var monthStr string
	var apply bool
	var window int
	var categories []string

	names := make([]string, len(autoassign.Strategies))
	for i, s := range autoassign.Strategies {
		names[i] = string(s)
	}

	cmd := &cobra.Command{
		Use:       "autoassign <strategy>",
		Short:     "Propose or apply an auto-assign strategy",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := autoassign.ParseStrategy(args[0])
			if err != nil {
				return err
			}
			m, err := parseMonth(monthStr)
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				ctx := cmd.Context()
				snap, err := a.svc.Snapshot(ctx)
				if err != nil {
					return err
				}
				opts := autoassign.Options{Window: window}
				for _, ref := range categories {
					id, err := resolveCategory(snap, ref)
					if err != nil {
						return err
					}
					opts.CategoryIDs = append(opts.CategoryIDs, id)
				}

				run := a.svc.ProposeAutoAssign
				if apply {
					run = a.svc.ApplyAutoAssign
				}
				proposals, err := run(ctx, m, strategy, opts)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if len(proposals) == 0 {
					fmt.Fprintf(w, "%s: nothing to change for %s\n", m, strategy)
					return nil
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tCURRENT\tCHANGE\tASSIGNED\t")
				var total money.Money
				for _, p := range proposals {
					c, _ := snap.Category(p.CategoryID)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", c.Name, p.Current, p.Delta, p.Assigned())
					total += p.Delta
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if apply {
					fmt.Fprintf(w, "Applied %s to %d categories (net %s)\n", strategy, len(proposals), total)
				} else {
					fmt.Fprintf(w, "Proposed net change %s; rerun with --apply to assign\n", total)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&monthStr, "month", "", "month (YYYY-MM, default current)")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the proposals")
	cmd.Flags().IntVar(&window, "window", 0, "trailing months for the average strategies (default from config)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "restrict to these categories")

	return cmd
}

func newAdjustCommand(g *globals) *cobra.Command {
	var monthStr, memo string

	cmd := &cobra.Command{
		Use:   "adjust <amount>",
		Short: "Record a manual Ready to Assign adjustment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMonth(monthStr)
			if err != nil {
				return err
			}
			amt, err := parseAmount("amount", args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				adj, err := a.svc.AddAdjustment(cmd.Context(), m, amt, memo)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s adjusted by %s (%s)\n", adj.Month, adj.Amount, adj.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&monthStr, "month", "", "month (YYYY-MM, default current)")
	cmd.Flags().StringVar(&memo, "memo", "", "memo")
	return cmd
}
