package main

import (
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMigrator struct {
	upErr   error
	steps   int
	forced  int
	version uint
	verErr  error
	calls   []string
}

func (f *fakeMigrator) Up() error { f.calls = append(f.calls, "up"); return f.upErr }
func (f *fakeMigrator) Down() error { f.calls = append(f.calls, "down"); return nil }
func (f *fakeMigrator) Drop() error { f.calls = append(f.calls, "drop"); return nil }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = n
	return nil
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = v
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, false, f.verErr
}

func TestRunMigration(t *testing.T) {
	t.Parallel()

	zl := zap.NewNop()

	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	require.NoError(t, runMigration(m, "up", "", zl))
	assert.Equal(t, []string{"up"}, m.calls)

	require.NoError(t, runMigration(m, "steps", "-2", zl))
	assert.Equal(t, -2, m.steps)

	require.NoError(t, runMigration(m, "force", "3", zl))
	assert.Equal(t, 3, m.forced)

	m.verErr = migrate.ErrNilVersion
	require.NoError(t, runMigration(m, "version", "", zl))
}

func TestRunMigration_InvalidArguments(t *testing.T) {
	t.Parallel()

	zl := zap.NewNop()
	m := &fakeMigrator{}

	assert.Error(t, runMigration(m, "steps", "", zl))
	assert.Error(t, runMigration(m, "steps", "0", zl))
	assert.Error(t, runMigration(m, "force", "latest", zl))
	assert.Error(t, runMigration(m, "sideways", "", zl))
	assert.Empty(t, m.calls)
}

func TestEffectiveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/stockly.yaml")

	assert.Equal(t, "custom.yaml", effectiveConfigPath("custom.yaml"))
	assert.Equal(t, "/etc/stockly.yaml", effectiveConfigPath(""))
}
