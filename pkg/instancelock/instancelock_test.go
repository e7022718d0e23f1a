package instancelock

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	require.NoError(t, err)
	require.NotNil(t, lock)

	body, err := os.ReadFile(lock.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "pid="))
	assert.Contains(t, string(body), "started=")

	require.NoError(t, lock.Release())

	_, err = os.Stat(lock.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireExclusivity(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(dir)
	assert.ErrorIs(t, err, ErrAlreadyLocked)
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	lock2, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}
