package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "practicum", cfg.Database.Name)
	assert.Equal(t, "exempt", cfg.Assignment.ConfirmedPolicy)
	assert.Equal(t, 10*time.Minute, cfg.Assignment.LockTTL)
	assert.Equal(t, time.Hour, cfg.Assignment.Interval)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "csv", cfg.Roster.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ASSIGNMENT_SEED", "42")
	t.Setenv("ASSIGNMENT_CONFIRMED_POLICY", " Consume ")
	t.Setenv("ASSIGNMENT_INTERVAL", "bogus")
	t.Setenv("ROSTER_FORMAT", "PDF")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Assignment.Seed)
	assert.Equal(t, "consume", cfg.Assignment.ConfirmedPolicy)
	assert.Equal(t, time.Hour, cfg.Assignment.Interval)
	assert.Equal(t, "pdf", cfg.Roster.Format)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
