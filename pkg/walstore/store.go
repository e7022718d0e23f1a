package walstore

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marmos91/amftpd/pkg/atomicio"
	"github.com/marmos91/amftpd/pkg/crypto"
	"github.com/marmos91/amftpd/pkg/dberrors"
	"github.com/marmos91/amftpd/pkg/lz4codec"
)

// Sentinel errors shared by every store instantiation. These alias
// the package-independent kinds in dberrors so callers can use a
// single errors.Is vocabulary across walstore, fsck, backup, and
// zipscript.
var (
	ErrNotFound      = dberrors.ErrNotFound
	ErrAlreadyExists = dberrors.ErrAlreadyExists
	ErrValidation    = dberrors.ErrValidation
	ErrSnapshotRead  = dberrors.ErrSnapshotCorrupt
)

// Codec serializes and deserializes records of type T to and from the
// binary layouts defined for each entity, and exposes the
// case-insensitive key a record is stored under.
type Codec[T any] interface {
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
	Key(T) string
	// Rename returns a copy of t with its name changed to newName.
	// Only invoked for stores whose Kinds.Rename is set.
	Rename(t T, newName string) T
}

// Kinds maps the WalEntry kind byte for each mutation this store
// supports. Rename is nil for stores that do not support renaming
// (only the group store does).
type Kinds struct {
	Add    byte
	Update byte
	Delete byte
	Rename *byte
}

// Store is a generic snapshot+WAL encrypted key-value store,
// instantiated once each for users, groups, and sections.
type Store[T any] struct {
	mu sync.Mutex

	name         string
	snapshotPath string
	saltPath     string

	aead   *crypto.Aead
	wal    *WalFile
	codec  Codec[T]
	kinds  Kinds
	logger *slog.Logger

	records map[string]T
}

// Open loads or creates the store named name inside dir, using files
// "<name>.db" (snapshot), "<name>.salt", and "<name>.wal". If the
// snapshot does not yet exist, bootstrap() supplies the initial set
// of records. maxWalBytes <= 0 uses DefaultMaxWalBytes.
func Open[T any](
	dir, name, password string,
	codec Codec[T],
	kinds Kinds,
	bootstrap func() []T,
	maxWalBytes int64,
	logger *slog.Logger,
) (*Store[T], error) {
	if logger == nil {
		logger = slog.Default()
	}

	snapshotPath := filepath.Join(dir, name+".db")
	saltPath := filepath.Join(dir, name+".salt")
	walPath := filepath.Join(dir, name+".wal")

	snapshotInfo, snapErr := os.Stat(snapshotPath)
	snapshotExists := snapErr == nil
	if _, saltErr := os.Stat(saltPath); os.IsNotExist(saltErr) && snapshotExists && snapshotInfo.Size() > 0 {
		return nil, fmt.Errorf("walstore: %s: missing salt for non-empty snapshot", name)
	}

	salt, err := crypto.EnsureSalt(saltPath)
	if err != nil {
		return nil, fmt.Errorf("walstore: %s: %w", name, err)
	}

	key := crypto.DeriveKey(password, salt)
	aead, err := crypto.NewAead(key)
	if err != nil {
		return nil, fmt.Errorf("walstore: %s: %w", name, err)
	}

	s := &Store[T]{
		name:         name,
		snapshotPath: snapshotPath,
		saltPath:     saltPath,
		aead:         aead,
		codec:        codec,
		kinds:        kinds,
		logger:       logger,
		records:      make(map[string]T),
	}

	if snapshotExists {
		records, loadErr := s.loadSnapshot(snapshotInfo.Size())
		if loadErr != nil {
			return nil, loadErr
		}
		s.records = records
	} else {
		s.bootstrapRecords(bootstrap)
	}

	wal, err := OpenWal(walPath, aead, maxWalBytes)
	if err != nil {
		return nil, err
	}
	s.wal = wal

	if err := s.replayWal(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store[T]) bootstrapRecords(bootstrap func() []T) {
	s.records = make(map[string]T)
	if bootstrap == nil {
		return
	}
	for _, rec := range bootstrap() {
		s.records[s.codec.Key(rec)] = rec
	}
}

// loadSnapshot reads, decrypts, decompresses, and decodes the
// snapshot file. On AEAD or LZ4 failure it logs and falls back to an
// empty map (the caller, having already set s.records from nothing,
// is expected to be re-bootstrapped by the DatabaseManager layer if
// this store is freshly created); a truly corrupt, previously
// populated snapshot is therefore only recoverable via Fsck/Repair,
// matching spec's "WAL is not auto-deleted" guidance.
func (s *Store[T]) loadSnapshot(size int64) (map[string]T, error) {
	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("walstore: %s: read snapshot: %w", s.name, err)
	}

	plain, err := s.aead.Open(data)
	if err != nil {
		if size > int64(minFrameSize)+1 {
			s.logger.Error("snapshot decrypt failed, reinitializing from bootstrap defaults",
				"store", s.name, "error", err)
		}
		return make(map[string]T), nil
	}

	body, err := lz4codec.Decompress(plain)
	if err != nil {
		if size > int64(minFrameSize)+1 {
			s.logger.Error("snapshot decompress failed, reinitializing from bootstrap defaults",
				"store", s.name, "error", err)
		}
		return make(map[string]T), nil
	}

	records, err := s.decodeSnapshotBody(body)
	if err != nil {
		s.logger.Error("snapshot body malformed, reinitializing from bootstrap defaults",
			"store", s.name, "error", err)
		return make(map[string]T), nil
	}

	return records, nil
}

func (s *Store[T]) decodeSnapshotBody(body []byte) (map[string]T, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("%w: body too short", ErrSnapshotRead)
	}
	count := binary.LittleEndian.Uint32(body[:4])
	offset := 4

	records := make(map[string]T, count)
	for i := uint32(0); i < count; i++ {
		if offset+4 > len(body) {
			return nil, fmt.Errorf("%w: truncated record length at index %d", ErrSnapshotRead, i)
		}
		recLen := binary.LittleEndian.Uint32(body[offset : offset+4])
		offset += 4
		if offset+int(recLen) > len(body) {
			return nil, fmt.Errorf("%w: truncated record body at index %d", ErrSnapshotRead, i)
		}
		recBytes := body[offset : offset+int(recLen)]
		offset += int(recLen)

		rec, err := s.codec.Decode(recBytes)
		if err != nil {
			s.logger.Warn("skipping unrecognized snapshot record", "store", s.name, "index", i, "error", err)
			continue
		}
		records[s.codec.Key(rec)] = rec
	}
	return records, nil
}

func (s *Store[T]) replayWal() error {
	entries, truncated, err := s.wal.ReadAll()
	if err != nil {
		return fmt.Errorf("walstore: %s: replay wal: %w", s.name, err)
	}
	if truncated {
		s.logger.Warn("wal replay stopped at a truncated or corrupt frame", "store", s.name)
	}

	for _, entry := range entries {
		s.applyEntry(entry)
	}
	return nil
}

func (s *Store[T]) applyEntry(entry WalEntry) {
	switch entry.Kind {
	case s.kinds.Add, s.kinds.Update:
		rec, err := s.codec.Decode(entry.Payload)
		if err != nil {
			s.logger.Warn("skipping unrecognized wal entry", "store", s.name, "error", err)
			return
		}
		s.records[s.codec.Key(rec)] = rec
	case s.kinds.Delete:
		key := normalizeKey(string(entry.Payload))
		delete(s.records, key)
	default:
		if s.kinds.Rename != nil && entry.Kind == *s.kinds.Rename {
			oldName, newName, ok := splitRename(string(entry.Payload))
			if !ok {
				return
			}
			oldKey := normalizeKey(oldName)
			rec, exists := s.records[oldKey]
			if !exists {
				return
			}
			delete(s.records, oldKey)
			s.records[normalizeKey(newName)] = s.codec.Rename(rec, newName)
		}
	}
}

func splitRename(payload string) (oldName, newName string, ok bool) {
	idx := strings.IndexByte(payload, '|')
	if idx < 0 {
		return "", "", false
	}
	return payload[:idx], payload[idx+1:], true
}

func normalizeKey(name string) string {
	return strings.ToUpper(name)
}

// Find returns a value copy of the record stored under name, if any.
func (s *Store[T]) Find(name string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[normalizeKey(name)]
	return rec, ok
}

// All returns value copies of every record currently in the store.
func (s *Store[T]) All() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out
}

// TryAdd validates uniqueness, appends an Add WAL entry, and applies
// the record to the in-memory map.
func (s *Store[T]) TryAdd(rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.codec.Key(rec)
	if _, exists := s.records[key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	}

	payload, err := s.codec.Encode(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.wal.Append(s.kinds.Add, payload); err != nil {
		return fmt.Errorf("walstore: %s: append add: %w", s.name, err)
	}

	s.records[key] = rec
	return s.maybeCompact()
}

// TryUpdate requires the record to already exist, appends an Update
// WAL entry, and applies the record to the in-memory map.
func (s *Store[T]) TryUpdate(rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.codec.Key(rec)
	if _, exists := s.records[key]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	payload, err := s.codec.Encode(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.wal.Append(s.kinds.Update, payload); err != nil {
		return fmt.Errorf("walstore: %s: append update: %w", s.name, err)
	}

	s.records[key] = rec
	return s.maybeCompact()
}

// TryDelete removes the record named name.
func (s *Store[T]) TryDelete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeKey(name)
	if _, exists := s.records[key]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err := s.wal.Append(s.kinds.Delete, []byte(name)); err != nil {
		return fmt.Errorf("walstore: %s: append delete: %w", s.name, err)
	}

	delete(s.records, key)
	return s.maybeCompact()
}

// TryRename renames oldName to newName. Only valid for stores opened
// with Kinds.Rename set (the group store); calling it on any other
// store returns ErrValidation.
func (s *Store[T]) TryRename(oldName, newName string) error {
	if s.kinds.Rename == nil {
		return fmt.Errorf("%w: store %s does not support rename", ErrValidation, s.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldKey := normalizeKey(oldName)
	rec, exists := s.records[oldKey]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, oldKey)
	}

	newKey := normalizeKey(newName)
	if newKey != oldKey {
		if _, conflict := s.records[newKey]; conflict {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, newKey)
		}
	}

	payload := []byte(oldName + "|" + newName)
	if err := s.wal.Append(*s.kinds.Rename, payload); err != nil {
		return fmt.Errorf("walstore: %s: append rename: %w", s.name, err)
	}

	delete(s.records, oldKey)
	s.records[newKey] = s.codec.Rename(rec, newName)
	return s.maybeCompact()
}

func (s *Store[T]) maybeCompact() error {
	if !s.wal.NeedsCompaction() {
		return nil
	}
	return s.forceRewriteLocked()
}

// ForceRewrite writes a fresh snapshot from the current in-memory
// state and clears the WAL. In-memory state is left unchanged.
func (s *Store[T]) ForceRewrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forceRewriteLocked()
}

func (s *Store[T]) forceRewriteLocked() error {
	if err := s.writeSnapshotLocked(); err != nil {
		return err
	}
	return s.wal.Clear()
}

func (s *Store[T]) writeSnapshotLocked() error {
	var body []byte
	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, uint32(len(s.records)))
	body = append(body, countBuf...)

	for _, rec := range s.records {
		recBytes, err := s.codec.Encode(rec)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(recBytes)))
		body = append(body, lenBuf...)
		body = append(body, recBytes...)
	}

	compressed, err := lz4codec.Compress(body)
	if err != nil {
		return fmt.Errorf("walstore: %s: compress snapshot: %w", s.name, err)
	}
	frame, err := s.aead.Seal(compressed)
	if err != nil {
		return fmt.Errorf("walstore: %s: seal snapshot: %w", s.name, err)
	}
	if err := atomicio.WriteFile(s.snapshotPath, frame, 0o600); err != nil {
		return fmt.Errorf("walstore: %s: write snapshot: %w", s.name, err)
	}
	return nil
}

// Reload re-reads the on-disk snapshot and replaces in-memory
// contents under the store mutex; the WAL is not truncated. This is
// the optional hot-reload path described for external mutation by
// another process; it is never invoked automatically because holding
// an InstanceLock already makes external mutation unreachable in
// normal operation, and a failure here is logged and non-fatal.
func (s *Store[T]) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("walstore: %s: stat snapshot: %w", s.name, err)
	}

	records, err := s.loadSnapshot(info.Size())
	if err != nil {
		s.logger.Warn("hot-reload failed, keeping existing in-memory state", "store", s.name, "error", err)
		return nil
	}
	s.records = records
	return nil
}

// Close releases the WAL file handle.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}
