// Package atomicio provides a crash-safe whole-file replace: the
// caller never observes a partially written file, even if the process
// is killed mid-write.
package atomicio

import (
	"fmt"
	"os"
)

// WriteFile durably replaces path with data.
//
// Sequence: write path+".tmp" fully and fsync it; rename it to
// path+".atomic" (removing any stale staging file first); remove path
// if it exists; rename path+".atomic" to path. Staging through two
// renames avoids relying on rename-over-existing-file semantics,
// which vary across filesystems.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	atomicPath := path + ".atomic"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("atomicio: create %s: %w", tmpPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("atomicio: write %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("atomicio: fsync %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("atomicio: close %s: %w", tmpPath, err)
	}

	if err := os.RemoveAll(atomicPath); err != nil {
		return fmt.Errorf("atomicio: clear stale %s: %w", atomicPath, err)
	}
	if err := os.Rename(tmpPath, atomicPath); err != nil {
		return fmt.Errorf("atomicio: stage %s: %w", atomicPath, err)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("atomicio: remove prior %s: %w", path, err)
	}
	if err := os.Rename(atomicPath, path); err != nil {
		return fmt.Errorf("atomicio: finalize %s: %w", path, err)
	}

	return nil
}
