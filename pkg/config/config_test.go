package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNoConfigFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 32, cfg.Zipscript.FlushThreshold)
}

func TestLoadParsesYAMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
  format: json
  output: stderr
database:
  store_dir: `+dir+`
  wal_max_bytes: 10Mi
zipscript:
  snapshot_path: `+filepath.Join(dir, "zipscript.json")+`
  flush_threshold: 8
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, dir, cfg.Database.StoreDir)
	assert.Equal(t, 8, cfg.Zipscript.FlushThreshold)
	assert.Equal(t, 10*1024*1024, int(cfg.Database.WalMaxBytes))
	// untouched field falls back to its default
	assert.Equal(t, 10, int(cfg.ShutdownTimeout.Seconds()))
}

func TestLoadInvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: yaml: [}"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidLoggingLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: LOUD
  format: text
  output: stdout
database:
  store_dir: `+dir+`
zipscript:
  snapshot_path: `+filepath.Join(dir, "zipscript.json")+`
`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestMustLoadNoConfigReportsHelp(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := MustLoad("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amftpd init")
}

func TestSaveConfigRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Database.StoreDir = dir
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, loaded.Database.StoreDir)
}

func TestEnvironmentVariableOverridesLoggingLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: info
  format: text
  output: stdout
database:
  store_dir: `+dir+`
zipscript:
  snapshot_path: `+filepath.Join(dir, "zipscript.json")+`
`), 0o600))

	t.Setenv("AMFTPD_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestGetDefaultConfigPathUsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-home")
	assert.Equal(t, "/tmp/xdg-home/amftpd/config.yaml", GetDefaultConfigPath())
}
