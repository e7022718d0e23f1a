// Package database provides the DatabaseManager facade: it wires the
// instance lock and the three encrypted stores together, applies
// bootstrap defaults, and exposes fsck/repair/backup/restore/reload
// operations as a single entry point for the CLI and the daemon.
package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/marmos91/amftpd/pkg/accounts"
	"github.com/marmos91/amftpd/pkg/backup"
	"github.com/marmos91/amftpd/pkg/fsck"
	"github.com/marmos91/amftpd/pkg/instancelock"
)

const (
	userSnapshotName    = "users.db"
	groupSnapshotName   = "groups.db"
	sectionSnapshotName = "sections.db"
)

// Manager is the facade over the encrypted user/group/section stores
// for a single store directory, held under one InstanceLock.
type Manager struct {
	dir      string
	password string
	maxWal   int64
	logger   *slog.Logger

	lock *instancelock.InstanceLock

	users    *accounts.UserStore
	groups   *accounts.GroupStore
	sections *accounts.SectionStore
}

// Open ensures dir exists, acquires the instance lock, opens the three
// stores (falling back to an in-memory bootstrap-seeded store if any
// individual store fails to open), and returns a ready Manager.
func Open(dir, password string, maxWalBytes int64, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("database: create store dir %s: %w", dir, err)
	}

	lock, err := instancelock.Acquire(dir)
	if err != nil {
		return nil, fmt.Errorf("database: acquire instance lock: %w", err)
	}

	m := &Manager{dir: dir, password: password, maxWal: maxWalBytes, logger: logger, lock: lock}

	users, err := accounts.OpenUserStore(dir, password, maxWalBytes, logger)
	if err != nil {
		logger.Error("user store open failed, falling back to an ephemeral bootstrap store", "error", err)
		users, err = openEphemeralStore(accounts.OpenUserStore, password, maxWalBytes, logger)
		if err != nil {
			_ = lock.Release()
			return nil, fmt.Errorf("database: bootstrap fallback user store: %w", err)
		}
	}
	m.users = users

	groups, err := accounts.OpenGroupStore(dir, password, maxWalBytes, logger)
	if err != nil {
		logger.Error("group store open failed, falling back to an ephemeral bootstrap store", "error", err)
		groups, err = openEphemeralStore(accounts.OpenGroupStore, password, maxWalBytes, logger)
		if err != nil {
			_ = m.users.Close()
			_ = lock.Release()
			return nil, fmt.Errorf("database: bootstrap fallback group store: %w", err)
		}
	}
	m.groups = groups

	sections, err := accounts.OpenSectionStore(dir, password, maxWalBytes, logger)
	if err != nil {
		logger.Error("section store open failed, falling back to an ephemeral bootstrap store", "error", err)
		sections, err = openEphemeralStore(accounts.OpenSectionStore, password, maxWalBytes, logger)
		if err != nil {
			_ = m.users.Close()
			_ = m.groups.Close()
			_ = lock.Release()
			return nil, fmt.Errorf("database: bootstrap fallback section store: %w", err)
		}
	}
	m.sections = sections

	return m, nil
}

// openEphemeralStore opens a store backed by a throwaway temp
// directory instead of the real store directory, standing in for "an
// in-memory store seeded with bootstrap defaults" when the real store
// file is unreadable: the data never touches the configured store
// path, and is discarded when the process exits.
func openEphemeralStore[T any](
	open func(dir, password string, maxWalBytes int64, logger *slog.Logger) (*T, error),
	password string,
	maxWalBytes int64,
	logger *slog.Logger,
) (*T, error) {
	tmpDir, err := os.MkdirTemp("", "amftpd-ephemeral-store-*")
	if err != nil {
		return nil, fmt.Errorf("database: create ephemeral store dir: %w", err)
	}
	return open(tmpDir, password, maxWalBytes, logger)
}

// Close releases the three stores' WAL file handles and the instance
// lock.
func (m *Manager) Close() error {
	var firstErr error
	if err := m.users.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.groups.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.sections.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := m.lock.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Users, Groups, and Sections expose the underlying stores for direct
// CRUD access by collaborators (CLI commands, authorization layers).
func (m *Manager) Users() *accounts.UserStore       { return m.users }
func (m *Manager) Groups() *accounts.GroupStore     { return m.groups }
func (m *Manager) Sections() *accounts.SectionStore { return m.sections }

// FsckUsers, FsckGroups, and FsckSections run the single-store
// structural check directly against the on-disk files.
func (m *Manager) FsckUsers() *fsck.Result    { return fsck.Users(m.dir, m.password) }
func (m *Manager) FsckGroups() *fsck.Result   { return fsck.Groups(m.dir, m.password) }
func (m *Manager) FsckSections() *fsck.Result { return fsck.Sections(m.dir, m.password) }

// FsckDeep runs the cross-store referential integrity check over the
// three live stores.
func (m *Manager) FsckDeep() *fsck.Result {
	return fsck.Deep(fsck.Stores{Users: m.users, Groups: m.groups, Sections: m.sections})
}

// Repair applies the idempotent repair actions and force-rewrites all
// three stores' snapshots.
func (m *Manager) Repair() error {
	return fsck.Repair(fsck.Stores{Users: m.users, Groups: m.groups, Sections: m.sections})
}

// RebuildSnapshots force-rewrites all three stores' snapshots and
// truncates their WALs.
func (m *Manager) RebuildSnapshots() error {
	if err := m.users.ForceRewrite(); err != nil {
		return fmt.Errorf("database: rebuild users snapshot: %w", err)
	}
	if err := m.groups.ForceRewrite(); err != nil {
		return fmt.Errorf("database: rebuild groups snapshot: %w", err)
	}
	if err := m.sections.ForceRewrite(); err != nil {
		return fmt.Errorf("database: rebuild sections snapshot: %w", err)
	}
	return nil
}

// ReloadUsers re-reads the user store's on-disk snapshot in place when
// forceMmap is true; when it is false nothing is reloaded and nil is
// returned. This store has no separate mmap-backed variant, so the flag
// only decides whether the reload happens.
func (m *Manager) ReloadUsers(forceMmap bool) error {
	if !forceMmap {
		return nil
	}
	return m.users.Reload()
}

// BackupUsers, BackupGroups, and BackupSections write a password-
// encrypted portable backup of the named store's snapshot file to
// destPath.
func (m *Manager) BackupUsers(destPath, backupPassword string) error {
	return backup.Create(filepath.Join(m.dir, userSnapshotName), destPath, backupPassword)
}

func (m *Manager) BackupGroups(destPath, backupPassword string) error {
	return backup.Create(filepath.Join(m.dir, groupSnapshotName), destPath, backupPassword)
}

func (m *Manager) BackupSections(destPath, backupPassword string) error {
	return backup.Create(filepath.Join(m.dir, sectionSnapshotName), destPath, backupPassword)
}

// RestoreUsers, RestoreGroups, and RestoreSections decrypt a backup
// and atomically overwrite the corresponding store's snapshot file. A
// process restart (or ReloadUsers with forceMmap) is required to pick
// up the new snapshot, since the in-memory store is not touched here.
func (m *Manager) RestoreUsers(backupPath, backupPassword string) error {
	return backup.Restore(backupPath, filepath.Join(m.dir, userSnapshotName), backupPassword)
}

func (m *Manager) RestoreGroups(backupPath, backupPassword string) error {
	return backup.Restore(backupPath, filepath.Join(m.dir, groupSnapshotName), backupPassword)
}

func (m *Manager) RestoreSections(backupPath, backupPassword string) error {
	return backup.Restore(backupPath, filepath.Join(m.dir, sectionSnapshotName), backupPassword)
}
