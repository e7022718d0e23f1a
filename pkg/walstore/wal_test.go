package walstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/amftpd/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAead(t *testing.T) *crypto.Aead {
	t.Helper()
	key := crypto.DeriveKey("pw", make([]byte, crypto.SaltSize))
	aead, err := crypto.NewAead(key)
	require.NoError(t, err)
	return aead
}

func TestWalAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	w, err := OpenWal(path, testAead(t), 0)
	require.NoError(t, err)

	require.NoError(t, w.Append(1, []byte("first")))
	require.NoError(t, w.Append(2, []byte("second")))

	entries, truncated, err := w.ReadAll()
	require.NoError(t, err)
	assert.False(t, truncated)
	require.Len(t, entries, 2)
	assert.Equal(t, byte(1), entries[0].Kind)
	assert.Equal(t, "first", string(entries[0].Payload))
	assert.Equal(t, byte(2), entries[1].Kind)
	assert.Equal(t, "second", string(entries[1].Payload))
}

func TestWalStopsAtTruncatedTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	w, err := OpenWal(path, testAead(t), 0)
	require.NoError(t, err)
	require.NoError(t, w.Append(1, []byte("good")))
	require.NoError(t, w.Close())

	// Simulate a crash mid-append: truncate off the last few bytes of
	// the second frame.
	w, err = OpenWal(path, testAead(t), 0)
	require.NoError(t, err)
	require.NoError(t, w.Append(2, []byte("partial-victim")))
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-3))

	w, err = OpenWal(path, testAead(t), 0)
	require.NoError(t, err)

	entries, truncated, err := w.ReadAll()
	require.NoError(t, err)
	assert.True(t, truncated)
	require.Len(t, entries, 1)
	assert.Equal(t, "good", string(entries[0].Payload))
}

func TestWalStopsAtBadFrame(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	w, err := OpenWal(path, testAead(t), 0)
	require.NoError(t, err)
	require.NoError(t, w.Append(1, []byte("first")))
	require.NoError(t, w.Close())

	// Corrupt the frame's ciphertext so AEAD verification fails.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o600))

	w, err = OpenWal(path, testAead(t), 0)
	require.NoError(t, err)

	entries, truncated, err := w.ReadAll()
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Empty(t, entries)
}

func TestWalNeedsCompactionAndClear(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wal")

	w, err := OpenWal(path, testAead(t), 8)
	require.NoError(t, err)

	assert.False(t, w.NeedsCompaction())
	require.NoError(t, w.Append(1, []byte("enough bytes to exceed threshold")))
	assert.True(t, w.NeedsCompaction())

	require.NoError(t, w.Clear())
	assert.False(t, w.NeedsCompaction())

	entries, truncated, err := w.ReadAll()
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Empty(t, entries)
}
