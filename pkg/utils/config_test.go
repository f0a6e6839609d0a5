package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Fetcher.Mode)
	assert.Equal(t, uint(3), cfg.Fetcher.Attempts)
	assert.Equal(t, 30*time.Second, cfg.Fetcher.Timeout)
	assert.True(t, cfg.Scrape.FetchContent)
	assert.Equal(t, 1, cfg.Scrape.Workers)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Schedule.Refresh)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	file := filepath.Join(dir, "novelhub.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
db:
  path: /data/novels.db
fetcher:
  mode: browser
  attempts: 5
scrape:
  workers: 0
`), 0o644))
	t.Setenv("NOVELHUB_SCRAPE_FETCH_CONTENT", "false")
	t.Setenv("NOVELHUB_SCHEDULE_REFRESH", "@daily")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, "/data/novels.db", cfg.Database().Path)
	assert.Equal(t, "browser", cfg.Fetcher.Mode)
	assert.Equal(t, uint(5), cfg.Fetcher.Attempts)
	assert.False(t, cfg.Scrape.FetchContent)
	assert.Equal(t, "@daily", cfg.Schedule.Refresh)
	assert.Equal(t, 1, cfg.Scrape.Workers, "workers are clamped to at least one")
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(LogConfig{Level: "bogus", Encoding: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(0)) // info
	assert.False(t, log.Core().Enabled(-1))
}
