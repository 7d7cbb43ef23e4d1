package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panlens.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_NoFileYieldsDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialFileMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen      = ":9090"
configs_dir = "/srv/exports"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "/srv/exports", cfg.ConfigsDir)
	require.NotNil(t, cfg.Log)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
listen      = ":7000"
configs_dir = "/data"
cache_path  = "/var/cache/panlens.db"

log {
  level  = "debug"
  format = "json"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, "/var/cache/panlens.db", cfg.CachePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `listen = ":6000"`)
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Listen)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, `listen = `)
	_, err := Load(path)
	require.Error(t, err)
}
