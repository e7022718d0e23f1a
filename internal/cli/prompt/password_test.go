package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPipedStdin redirects os.Stdin to a file containing content for
// the duration of fn, restoring the original afterwards. term.IsTerminal
// reports false for a regular file, exercising the non-interactive path.
func withPipedStdin(t *testing.T, content string, fn func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	orig := os.Stdin
	os.Stdin = f
	defer func() { os.Stdin = orig }()

	fn()
}

func TestPasswordReadsPipedLine(t *testing.T) {
	withPipedStdin(t, "hunter2\n", func() {
		pw, err := Password("Password: ")
		require.NoError(t, err)
		assert.Equal(t, "hunter2", pw)
	})
}

func TestPasswordWithValidationAcceptsPipedInputRegardlessOfLength(t *testing.T) {
	withPipedStdin(t, "short\n", func() {
		pw, err := PasswordWithValidation("Password: ", 16)
		require.NoError(t, err)
		assert.Equal(t, "short", pw)
	})
}

func TestPasswordWithConfirmationDetectsMismatch(t *testing.T) {
	withPipedStdin(t, "hunter2\nhunter3\n", func() {
		_, err := PasswordWithConfirmation("Password: ", "Confirm: ", 1)
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})
}
