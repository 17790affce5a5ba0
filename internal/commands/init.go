package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/config"
	"github.com/cleared-dev/envelope/internal/gitops"
	"github.com/cleared-dev/envelope/internal/month"
)

func newInitCommand() *cobra.Command {
	var name, backend, startMonth string
	var noGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new budget",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg := config.Default(name)
			cfg.Storage.Backend = backend
			if startMonth != "" {
				m, err := month.Parse(startMonth)
				if err != nil {
					return err
				}
				cfg.Budget.StartMonth = m.String()
			}
			if noGit {
				cfg.Git.AutoCommit = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			hash, err := runInit(cmd.Context(), absDir, cfg)
			if err != nil {
				return err
			}
			if hash != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized budget %q at %s (%s)\n", name, absDir, hash)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized budget %q at %s\n", name, absDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "budget name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&backend, "backend", config.BackendCSV, "storage backend (csv, sqlite)")
	cmd.Flags().StringVar(&startMonth, "start-month", "", "first budget month (YYYY-MM)")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "do not create a git repository")

	return cmd
}

func runInit(ctx context.Context, dir string, cfg *config.Config) (string, error) {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return "", fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("checking config: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	// Write envelope.yaml.
	if err := config.Save(cfgPath, cfg); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}

	// Create the data source layout.
	store, err := openStore(dir, cfg)
	if err != nil {
		return "", fmt.Errorf("creating storage: %w", err)
	}
	if err := store.Close(); err != nil {
		return "", fmt.Errorf("closing storage: %w", err)
	}

	// Write .gitignore.
	gitignore := ".env\nenvelope.db\nenvelope.db-*\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return "", fmt.Errorf("writing .gitignore: %w", err)
	}

	if cfg.Storage.Backend != config.BackendCSV || !cfg.Git.AutoCommit {
		return "", nil
	}

	// Initialize git and create initial commit.
	if err := gitops.Init(dir); err != nil {
		return "", err
	}
	hash, err := gitops.CommitAll(ctx, dir, "init: Initialize "+cfg.Budget.Name, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return "", fmt.Errorf("initial commit: %w", err)
	}
	return hash, nil
}
