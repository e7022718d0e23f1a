package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultStateDirHonorsXDGStateHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	got := GetDefaultStateDir()
	assert.Equal(t, filepath.Join(dir, "amftpd"), got)
}

func TestGetDefaultStateDirFallsBackToHomeDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available in this environment")
	}

	got := GetDefaultStateDir()
	assert.True(t, strings.HasSuffix(got, filepath.Join(".local", "state", "amftpd")))
	assert.Contains(t, got, home)
}
