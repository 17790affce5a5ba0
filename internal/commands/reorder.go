package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/ordering"
)

func newReorderCommand(g *globals) *cobra.Command {
	reorderCmd := &cobra.Command{
		Use:   "reorder",
		Short: "Move groups and categories",
	}
	reorderCmd.AddCommand(&cobra.Command{
		Use:   "group <group> <index>",
		Short: "Move a group to a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				b, err := a.svc.MoveGroup(cmd.Context(), args[0], idx)
				if err != nil {
					return err
				}
				return printBatch(cmd, a, b)
			})
		},
	}, &cobra.Command{
		Use:   "category <category> <group> <index>",
		Short: "Move a category into a group at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[2])
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(a *app) error {
				b, err := a.svc.MoveCategory(cmd.Context(), args[0], args[1], idx)
				if err != nil {
					return err
				}
				return printBatch(cmd, a, b)
			})
		},
	})
	return reorderCmd
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, model.ValidationError{Field: "index", Message: fmt.Sprintf("%q is not a number", s)}
	}
	return n, nil
}

func printBatch(cmd *cobra.Command, a *app, b ordering.Batch) error {
	snap, err := a.svc.Snapshot(cmd.Context())
	if err != nil {
		return err
	}
	for _, it := range b.Items {
		name := it.ID
		if b.Scope == ordering.ScopeGroup {
			if grp, ok := snap.Group(it.ID); ok {
				name = grp.Name
			}
		} else if c, ok := snap.Category(it.ID); ok {
			name = c.Name
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", it.SortOrder, name)
	}
	return nil
}
