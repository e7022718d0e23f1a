package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/amftpd/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimNewline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no trailing newline", "secret", "secret"},
		{"unix newline", "secret\n", "secret"},
		{"windows newline", "secret\r\n", "secret"},
		{"multiple trailing newlines", "secret\n\n", "secret"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trimNewline(tt.in))
		})
	}
}

func TestReadMasterPasswordMissingFileConfig(t *testing.T) {
	cfg := &config.Config{}
	_, err := readMasterPassword(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "master_password_file")
}

func TestReadMasterPasswordReadsAndTrims(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(path, []byte("hunter2\n"), 0o600))

	cfg := &config.Config{}
	cfg.Database.MasterPasswordFile = path

	password, err := readMasterPassword(cfg)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)
}

func TestGetConfigFile(t *testing.T) {
	old := cfgFile
	defer func() { cfgFile = old }()

	cfgFile = "/etc/amftpd/config.yaml"
	assert.Equal(t, "/etc/amftpd/config.yaml", GetConfigFile())
}
