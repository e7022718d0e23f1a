package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/amftpd/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimNewlineBytes(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"no trailing newline", []byte("secret"), []byte("secret")},
		{"unix newline", []byte("secret\n"), []byte("secret")},
		{"windows newline", []byte("secret\r\n"), []byte("secret")},
		{"empty slice", []byte{}, []byte{}},
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
	require.NoError(t, os.WriteFile(path, []byte("hunter2\r\n"), 0o600))

	cfg := &config.Config{}
	cfg.Database.MasterPasswordFile = path

	password, err := readMasterPassword(cfg)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)
}
