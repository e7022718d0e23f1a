package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	salt := make([]byte, SaltSize)
	key := DeriveKey("correct horse battery staple", salt)
	require.Len(t, key, KeySize)

	aead, err := NewAead(key)
	require.NoError(t, err)

	plaintext := []byte("hello durable world")
	frame, err := aead.Seal(plaintext)
	require.NoError(t, err)
	assert.Greater(t, len(frame), NonceSize+TagSize)

	got, err := aead.Open(frame)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpenRejectsTamperedFrame(t *testing.T) {
	key := DeriveKey("pw", make([]byte, SaltSize))
	aead, err := NewAead(key)
	require.NoError(t, err)

	frame, err := aead.Seal([]byte("payload"))
	require.NoError(t, err)
	frame[len(frame)-1] ^= 0xFF

	_, err = aead.Open(frame)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestOpenRejectsShortFrame(t *testing.T) {
	key := DeriveKey("pw", make([]byte, SaltSize))
	aead, err := NewAead(key)
	require.NoError(t, err)

	_, err = aead.Open([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestDeriveKeyDeterministic(t *testing.T) {
	salt := []byte("0123456789012345678901234567890a")[:SaltSize]
	k1 := DeriveKey("hunter2", salt)
	k2 := DeriveKey("hunter2", salt)
	assert.Equal(t, k1, k2)

	k3 := DeriveKey("hunter3", salt)
	assert.NotEqual(t, k1, k3)
}

func TestEnsureSaltCreatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "salt")

	salt1, err := EnsureSalt(path)
	require.NoError(t, err)
	assert.Len(t, salt1, SaltSize)

	salt2, err := EnsureSalt(path)
	require.NoError(t, err)
	assert.Equal(t, salt1, salt2)
}

func TestEnsureSaltRejectsWrongLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "salt")
	require.NoError(t, os.WriteFile(path, []byte("too-short"), 0o600))

	_, err := EnsureSalt(path)
	assert.Error(t, err)
}
