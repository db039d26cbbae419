package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Shishlyannikovvv/sprint-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "5432", cfg.DB.Port)

	purge, err := cfg.PurgeInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, purge)

	snapshot, err := cfg.SnapshotInterval()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, snapshot)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: "9090"
db:
  host: file-host
  user: file-user
jobs:
  purge_interval: 30m
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	// Окружение перекрывает файл
	t.Setenv("DB_HOST", "env-host")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "env-host", cfg.DB.Host)
	assert.Equal(t, "file-user", cfg.DB.User)

	purge, err := cfg.PurgeInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, purge)
}

func TestInvalidInterval(t *testing.T) {
	t.Setenv("PURGE_INTERVAL", "tomorrow")

	cfg, err := config.Load("")
	require.NoError(t, err)

	_, err = cfg.PurgeInterval()
	assert.Error(t, err)

	t.Setenv("SNAPSHOT_INTERVAL", "-1h")
	cfg, err = config.Load("")
	require.NoError(t, err)
	_, err = cfg.SnapshotInterval()
	assert.Error(t, err)
}
