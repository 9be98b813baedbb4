package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithDirsDefaults(t *testing.T) {
	globalDir := t.TempDir()

	cfg, err := LoadWithDirs(globalDir, "")
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.CapabilityTimeout)
	assert.Equal(t, 1, cfg.Retry.Attempts)
	assert.Equal(t, 200, cfg.Retry.DelayMs)
	assert.Equal(t, 0, cfg.Breaker.Threshold)
	assert.True(t, cfg.GitStamp)
	assert.True(t, cfg.MemoryBank)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Contains(t, cfg.Sources(), "embedded")

	// Defaults were installed to the global dir.
	_, err = os.Stat(filepath.Join(globalDir, "config.yaml"))
	assert.NoError(t, err)
}

func TestLoadWithDirsGlobalOverride(t *testing.T) {
	globalDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte(`
capability_timeout: 10
log:
  level: debug
`), 0o600))

	cfg, err := LoadWithDirs(globalDir, "")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.CapabilityTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched fields keep embedded defaults.
	assert.Equal(t, 1, cfg.Retry.Attempts)
}

func TestLoadWithDirsLocalOverridesGlobal(t *testing.T) {
	globalDir := t.TempDir()
	localDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config.yaml"), []byte(`
capability_timeout: 10
git_stamp: true
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(localDir, "config.yaml"), []byte(`
git_stamp: false
retry:
  attempts: 3
`), 0o600))

	cfg, err := LoadWithDirs(globalDir, localDir)
	require.NoError(t, err)

	// Local wins even with a zero value, because the field was set.
	assert.False(t, cfg.GitStamp)
	assert.Equal(t, 10, cfg.CapabilityTimeout)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, localDir, cfg.LocalDir())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("AGENTSUITE_CAPABILITY_TIMEOUT", "5")
	t.Setenv("AGENTSUITE_LOG_FORMAT", "json")

	cfg, err := LoadWithDirs(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.CapabilityTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Contains(t, cfg.Sources(), "env:AGENTSUITE_CAPABILITY_TIMEOUT")
}

func TestApplyCLIFlags(t *testing.T) {
	cfg, err := LoadWithDirs(t.TempDir(), "")
	require.NoError(t, err)

	cfg.ApplyCLIFlags(120)
	assert.Equal(t, 120, cfg.CapabilityTimeout)
	assert.Contains(t, cfg.Sources(), "cli:capability-timeout")

	// Zero means "not set" and changes nothing.
	cfg.ApplyCLIFlags(0)
	assert.Equal(t, 120, cfg.CapabilityTimeout)
}

func TestInstallDefaultsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InstallDefaults(dir))

	custom := []byte("capability_timeout: 99\n")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, custom, 0o600))

	require.NoError(t, InstallDefaults(dir))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, custom, data)
}
