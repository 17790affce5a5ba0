package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/activitylog"
	"github.com/cleared-dev/envelope/internal/budget"
	"github.com/cleared-dev/envelope/internal/config"
	"github.com/cleared-dev/envelope/internal/gitops"
	"github.com/cleared-dev/envelope/internal/logging"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
	"github.com/cleared-dev/envelope/internal/store/csvstore"
	"github.com/cleared-dev/envelope/internal/store/sqlitestore"
)

// app is an opened budget directory.
type app struct {
	dir   string
	cfg   *config.Config
	log   *slog.Logger
	store budget.Store
	svc   *budget.Service
}

func openApp(cmd *cobra.Command, g *globals) (*app, error) {
	dir, err := filepath.Abs(g.budgetDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	store, err := openStore(dir, cfg)
	if err != nil {
		return nil, err
	}

	hooks := []budget.Hook{activitylog.NewWriter(dir)}
	if cfg.Storage.Backend == config.BackendCSV && cfg.Git.AutoCommit && gitops.IsRepo(dir) {
		hooks = append(hooks, gitops.Committer{
			Dir:         dir,
			AuthorName:  cfg.Git.AuthorName,
			AuthorEmail: cfg.Git.AuthorEmail,
		})
	}

	svc := budget.New(store, budget.Options{
		Logger:     log,
		Hooks:      hooks,
		Window:     cfg.AutoAssign.Window,
		Tolerance:  &cfg.Reconcile.Tolerance,
		StartMonth: cfg.FirstMonth(),
	})
	return &app{dir: dir, cfg: cfg, log: log, store: store, svc: svc}, nil
}

func openStore(dir string, cfg *config.Config) (budget.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		return sqlitestore.Open(cfg.SQLitePath(dir))
	default:
		return csvstore.Open(dir)
	}
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp opens the budget for the duration of fn.
func withApp(cmd *cobra.Command, g *globals, fn func(a *app) error) error {
	a, err := openApp(cmd, g)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func parseAmount(field, s string) (money.Money, error) {
	m, err := money.Parse(s)
	if err != nil {
		return 0, model.ValidationError{Field: field, Message: err.Error()}
	}
	return m, nil
}

func parseMonth(s string) (month.Month, error) {
	if s == "" {
		return month.Of(time.Now()), nil
	}
	return month.Parse(s)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}
