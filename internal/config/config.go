package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/envelope/internal/autoassign"
	"github.com/cleared-dev/envelope/internal/logging"
	"github.com/cleared-dev/envelope/internal/money"
	"github.com/cleared-dev/envelope/internal/month"
	"github.com/cleared-dev/envelope/internal/reconcile"
)

// FileName is the configuration file inside a budget directory.
const FileName = "envelope.yaml"

// Storage backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config represents the top-level envelope.yaml configuration.
type Config struct {
	Budget     BudgetConfig     `yaml:"budget"`
	Storage    StorageConfig    `yaml:"storage"`
	AutoAssign AutoAssignConfig `yaml:"auto_assign"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	Git        GitConfig        `yaml:"git"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// BudgetConfig identifies the budget.
type BudgetConfig struct {
	Name       string `yaml:"name"`
	StartMonth string `yaml:"start_month"` // "YYYY-MM"
}

// StorageConfig selects the data source.
type StorageConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path,omitempty"` // relative to the budget directory
}

// AutoAssignConfig tunes the average strategies.
type AutoAssignConfig struct {
	Window int `yaml:"window"`
}

// ReconcileConfig sets the statement match tolerance, in milliunits.
type ReconcileConfig struct {
	Tolerance money.Money `yaml:"tolerance"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads an envelope.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// FirstMonth returns the budget's start month, or the zero Month when none
// is configured.
func (c *Config) FirstMonth() month.Month {
	m, err := month.Parse(c.Budget.StartMonth)
	if err != nil {
		return month.Month{}
	}
	return m
}

// LoadDir reads <dir>/envelope.yaml, loads <dir>/.env when present and
// applies environment overrides. The result is validated.
func LoadDir(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new budget.
func Default(name string) *Config {
	return &Config{
		Budget: BudgetConfig{
			Name: name,
		},
		Storage: StorageConfig{
			Backend:    BackendCSV,
			SQLitePath: "envelope.db",
		},
		AutoAssign: AutoAssignConfig{
			Window: autoassign.DefaultWindow,
		},
		Reconcile: ReconcileConfig{
			Tolerance: reconcile.DefaultTolerance,
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Envelope",
			AuthorEmail: "envelope@localhost",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// ApplyEnv overrides settings from ENVELOPE_* variables. Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	for key, dst := range map[string]*string{
		"ENVELOPE_STORAGE_BACKEND": &c.Storage.Backend,
		"ENVELOPE_SQLITE_PATH":     &c.Storage.SQLitePath,
		"ENVELOPE_SERVER_ADDR":     &c.Server.Addr,
		"ENVELOPE_LOG_LEVEL":       &c.Log.Level,
		"ENVELOPE_LOG_FORMAT":      &c.Log.Format,
	} {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendCSV:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}
	if c.Budget.StartMonth != "" {
		if _, err := month.Parse(c.Budget.StartMonth); err != nil {
			errs = append(errs, fmt.Errorf("budget.start_month: %w", err))
		}
	}
	if c.AutoAssign.Window < 1 {
		errs = append(errs, fmt.Errorf("auto_assign.window must be at least 1, got %d", c.AutoAssign.Window))
	}
	if c.Reconcile.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("reconcile.tolerance must not be negative, got %d", c.Reconcile.Tolerance))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SQLitePath returns the database path resolved against the budget directory.
func (c *Config) SQLitePath(dir string) string {
	if filepath.IsAbs(c.Storage.SQLitePath) {
		return c.Storage.SQLitePath
	}
	return filepath.Join(dir, c.Storage.SQLitePath)
}
