package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaultsOnly(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.Paths.DataDir)
	assert.Equal(t, 30*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, 150, cfg.Enrich.Budget)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Blacklist)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
paths:
  data_dir: /srv/rtb/api
enrich:
  budget: 25
blacklist:
  - mallory-m
`), 0o644))

	cfg, err := LoadFrom(file)
	require.NoError(t, err)

	assert.Equal(t, "/srv/rtb/api", cfg.Paths.DataDir)
	assert.Equal(t, 25, cfg.Enrich.Budget)
	assert.Equal(t, []string{"mallory-m"}, cfg.Blacklist)
	assert.Equal(t, 30, cfg.Enrich.RefreshDays, "unset keys keep their defaults")
}

func TestLoadFromEnvOverridesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("enrich:\n  budget: 25\n"), 0o644))

	t.Setenv("RTB_ENRICH_BUDGET", "5")
	t.Setenv("RTB_LOGGING_LEVEL", "debug")

	cfg, err := LoadFrom(file)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Enrich.Budget, "environment wins over the file")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromBadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("paths: [not a map"), 0o644))

	_, err := LoadFrom(file)
	assert.Error(t, err)
}

func TestLogPath(t *testing.T) {
	cfg := Default()
	cfg.Paths.LogsDir = "/var/log/rtb"
	assert.Equal(t, filepath.Join("/var/log/rtb", "update.log"), cfg.LogPath("update.log"))
}
