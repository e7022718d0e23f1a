package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "users.db")
	content := []byte("pretend encrypted snapshot bytes")
	require.NoError(t, os.WriteFile(source, content, 0o600))

	backupPath := filepath.Join(dir, "users.bak")
	require.NoError(t, Create(source, backupPath, "backup-pw"))

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, Magic, string(data[:len(Magic)]))

	target := filepath.Join(dir, "users-restored.db")
	require.NoError(t, Restore(backupPath, target, "backup-pw"))

	restored, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, restored)
}

func TestRestoreWrongPasswordFails(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "users.db")
	require.NoError(t, os.WriteFile(source, []byte("secret data"), 0o600))

	backupPath := filepath.Join(dir, "users.bak")
	require.NoError(t, Create(source, backupPath, "right-pw"))

	target := filepath.Join(dir, "users-restored.db")
	err := Restore(backupPath, target, "wrong-pw")
	assert.Error(t, err)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRestoreRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	backupPath := filepath.Join(dir, "bogus.bak")
	require.NoError(t, os.WriteFile(backupPath, []byte("NOTAMAGICHEADERBYTESOFSUFFICIENTLENGTH"), 0o600))

	err := Restore(backupPath, filepath.Join(dir, "out.db"), "pw")
	assert.Error(t, err)
}

func TestBackupFidelityIsNoOpOnInMemoryState(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "sections.db")
	content := []byte("sections snapshot payload")
	require.NoError(t, os.WriteFile(source, content, 0o600))

	backupPath := filepath.Join(dir, "sections.bak")
	require.NoError(t, Create(source, backupPath, "pw"))
	require.NoError(t, Restore(backupPath, source, "pw"))

	roundTripped, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, content, roundTripped)
}
