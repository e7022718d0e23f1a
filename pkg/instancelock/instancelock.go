// Package instancelock provides an exclusive, delete-on-close file
// lock ensuring only one process owns a store directory at a time.
package instancelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/amftpd/pkg/dberrors"
)

// LockFileName is the name of the lock file created inside a store
// directory.
const LockFileName = ".amftpd.db.lock"

// ErrAlreadyLocked is returned when another process already holds the
// lock on the directory.
var ErrAlreadyLocked = dberrors.ErrAlreadyLocked

// InstanceLock represents exclusive ownership of a store directory.
type InstanceLock struct {
	path string
	fd   int
}

// Acquire takes an exclusive, non-blocking lock on dir. On success the
// lock file body is written as "pid=<P>; started=<ISO-8601-UTC>" for
// diagnostics. Acquire fails with ErrAlreadyLocked if another process
// already holds the lock.
func Acquire(dir string) (*InstanceLock, error) {
	path := filepath.Join(dir, LockFileName)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("instancelock: open %s: %w", path, err)
	}

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyLocked, dir)
		}
		return nil, fmt.Errorf("instancelock: flock %s: %w", path, err)
	}

	body := fmt.Sprintf("pid=%d; started=%s", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := unix.Ftruncate(fd, 0); err == nil {
		unix.Pwrite(fd, []byte(body), 0)
	}

	return &InstanceLock{path: path, fd: fd}, nil
}

// Release removes the lock file and unlocks. A second call is a no-op
// that returns nil.
func (l *InstanceLock) Release() error {
	if l == nil || l.fd == 0 {
		return nil
	}

	// Best-effort delete-on-close: the file is removed while the lock is
	// still held, so a fresh lock file that another process creates at
	// this path after the release is left alone.
	removeErr := os.Remove(l.path)

	_ = unix.Flock(l.fd, unix.LOCK_UN)
	err := unix.Close(l.fd)
	l.fd = 0

	if removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = removeErr
	}

	if err != nil {
		return fmt.Errorf("instancelock: release %s: %w", l.path, err)
	}
	return nil
}

// Path returns the filesystem path of the lock file.
func (l *InstanceLock) Path() string {
	return l.path
}
