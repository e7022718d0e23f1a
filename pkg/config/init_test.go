package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigWritesLoadableFile(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "store")
	path := filepath.Join(dir, "config.yaml")

	cfg, err := InitConfig(path, storeDir, false)
	require.NoError(t, err)
	assert.Equal(t, storeDir, cfg.Database.StoreDir)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, storeDir, loaded.Database.StoreDir)
	assert.Equal(t, filepath.Join(storeDir, "zipscript.json"), loaded.Zipscript.SnapshotPath)
}

func TestInitConfigRefusesToOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: INFO\n"), 0o600))

	_, err := InitConfig(path, filepath.Join(dir, "store"), false)
	assert.Error(t, err)
}

func TestInitConfigForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: INFO\n"), 0o600))

	storeDir := filepath.Join(dir, "store2")
	_, err := InitConfig(path, storeDir, true)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, storeDir, loaded.Database.StoreDir)
}
