package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/buildinfo"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	budgetDir string
	logLevel  string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:     "envelope",
		Short:   "Envelope budgeting with statement reconciliation",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.budgetDir, "budget", "b", ".", "budget directory")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountCommand(g),
		newGroupCommand(g),
		newCategoryCommand(g),
		newTxnCommand(g),
		newAssignCommand(g),
		newMonthCommand(g),
		newRTACommand(g),
		newAutoAssignCommand(g),
		newAdjustCommand(g),
		newReconcileCommand(g),
		newReorderCommand(g),
		newServeCommand(g),
	)

	return rootCmd
}
