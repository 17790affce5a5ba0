package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Household")
	cfg.Budget.StartMonth = "2024-01"
	cfg.Storage.Backend = BackendSQLite

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Household")

	assert.Equal(t, "Household", cfg.Budget.Name)
	assert.Equal(t, BackendCSV, cfg.Storage.Backend)
	assert.Equal(t, 12, cfg.AutoAssign.Window)
	assert.EqualValues(t, 10, cfg.Reconcile.Tolerance)
	assert.True(t, cfg.Git.AutoCommit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Household")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Household")
	assert.Contains(t, contents, "backend: csv")
	assert.Contains(t, contents, "window: 12")
	assert.Contains(t, contents, "tolerance: 10")
	assert.Contains(t, contents, "auto_commit: true")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default("Household")
	env := map[string]string{
		"ENVELOPE_STORAGE_BACKEND": "sqlite",
		"ENVELOPE_LOG_LEVEL":       "debug",
		"ENVELOPE_SERVER_ADDR":     "",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Default("Household")
	cfg.Storage.Backend = "postgres"
	cfg.Budget.StartMonth = "2024-13"
	cfg.AutoAssign.Window = 0
	cfg.Reconcile.Tolerance = -1
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"storage.backend",
		"budget.start_month",
		"auto_assign.window",
		"reconcile.tolerance",
		"log.level",
		"log.format",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadDir_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, FileName), Default("Household")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ENVELOPE_LOG_FORMAT=json\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ENVELOPE_LOG_FORMAT") })

	cfg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestSQLitePath(t *testing.T) {
	cfg := Default("Household")
	assert.Equal(t, filepath.Join("/b", "envelope.db"), cfg.SQLitePath("/b"))
	cfg.Storage.SQLitePath = "/var/lib/envelope.db"
	assert.Equal(t, "/var/lib/envelope.db", cfg.SQLitePath("/b"))
}

func TestLoad_OmittedKeysKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("budget:\n  name: Household\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Household", cfg.Budget.Name)
	assert.EqualValues(t, 10, cfg.Reconcile.Tolerance)
	assert.Equal(t, 12, cfg.AutoAssign.Window)

	require.NoError(t, os.WriteFile(path, []byte("budget:\n  name: Household\nreconcile:\n  tolerance: 0\ngit:\n  auto_commit: false\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Reconcile.Tolerance)
	assert.False(t, cfg.Git.AutoCommit)
	assert.NoError(t, cfg.Validate())
}

func TestFirstMonth(t *testing.T) {
	cfg := Default("Household")
	assert.True(t, cfg.FirstMonth().IsZero())

	cfg.Budget.StartMonth = "2025-03"
	assert.Equal(t, "2025-03", cfg.FirstMonth().String())
}
