// Package walstore implements the generic encrypted write-ahead log
// and snapshot+WAL store used for the users, groups, and sections
// databases.
package walstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/amftpd/pkg/crypto"
	"github.com/marmos91/amftpd/pkg/dberrors"
	"github.com/marmos91/amftpd/pkg/lz4codec"
)

// DefaultMaxWalBytes is the default WAL size threshold that triggers
// a snapshot compaction.
const DefaultMaxWalBytes = 5 * 1024 * 1024

// lengthPrefixSize is the byte width of each frame's length prefix.
const lengthPrefixSize = 4

// minFrameSize is the smallest possible AEAD frame: an empty
// ciphertext still carries a nonce and a tag.
const minFrameSize = crypto.NonceSize + crypto.TagSize

// ErrWalCorrupt is the shared WAL-corruption error kind. Append and
// ReadAll do not return it: ReadAll reports a truncated or corrupt tail
// through its truncated return value instead.
var ErrWalCorrupt = dberrors.ErrWalCorrupt

// WalEntry is one decoded, decrypted, decompressed WAL record.
type WalEntry struct {
	Kind    byte
	Payload []byte
}

// WalFile is an append-only encrypted log of typed entries.
type WalFile struct {
	path     string
	aead     *crypto.Aead
	maxBytes int64
	f        *os.File
}

// OpenWal opens (creating if necessary) the WAL file at path.
func OpenWal(path string, aead *crypto.Aead, maxBytes int64) (*WalFile, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxWalBytes
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("walstore: open wal %s: %w", path, err)
	}
	return &WalFile{path: path, aead: aead, maxBytes: maxBytes, f: f}, nil
}

// Append serializes kind||payload, LZ4-compresses it, seals it under
// a fresh nonce, prepends a 4-byte little-endian length, appends the
// frame to the file, and fsyncs. The write is all-or-nothing: a
// failure here must not be followed by an in-memory apply.
func (w *WalFile) Append(kind byte, payload []byte) error {
	plain := make([]byte, 0, 1+len(payload))
	plain = append(plain, kind)
	plain = append(plain, payload...)

	compressed, err := lz4codec.Compress(plain)
	if err != nil {
		return fmt.Errorf("walstore: compress entry: %w", err)
	}

	frame, err := w.aead.Seal(compressed)
	if err != nil {
		return fmt.Errorf("walstore: seal entry: %w", err)
	}

	lenBuf := make([]byte, lengthPrefixSize)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(frame)))

	if _, err := w.f.Write(lenBuf); err != nil {
		return fmt.Errorf("walstore: write length prefix: %w", err)
	}
	if _, err := w.f.Write(frame); err != nil {
		return fmt.Errorf("walstore: write frame: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("walstore: fsync wal: %w", err)
	}
	return nil
}

// ReadAll replays the WAL from the beginning. It stops, without
// returning an error, at the first truncated length prefix or
// truncated frame tail (the remainder of a file being actively
// written to) and at the first frame whose AEAD verification fails,
// since a decrypt failure implies a key mismatch or corruption that
// cannot be safely interpreted; replay cannot continue past it.
// truncated reports whether replay stopped early for either reason,
// so Fsck can surface it as a warning.
func (w *WalFile) ReadAll() (entries []WalEntry, truncated bool, err error) {
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return nil, false, fmt.Errorf("walstore: seek wal: %w", err)
	}

	lenBuf := make([]byte, lengthPrefixSize)
	for {
		if _, readErr := io.ReadFull(w.f, lenBuf); readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			if errors.Is(readErr, io.ErrUnexpectedEOF) {
				truncated = true
				break
			}
			return entries, truncated, fmt.Errorf("walstore: read length prefix: %w", readErr)
		}

		frameLen := binary.LittleEndian.Uint32(lenBuf)
		if frameLen < minFrameSize {
			truncated = true
			break
		}

		frame := make([]byte, frameLen)
		if _, readErr := io.ReadFull(w.f, frame); readErr != nil {
			truncated = true
			break
		}

		plain, openErr := w.aead.Open(frame)
		if openErr != nil {
			truncated = true
			break
		}

		compressed, decompErr := lz4codec.Decompress(plain)
		if decompErr != nil {
			truncated = true
			break
		}
		if len(compressed) < 1 {
			truncated = true
			break
		}

		entries = append(entries, WalEntry{Kind: compressed[0], Payload: compressed[1:]})
	}

	return entries, truncated, nil
}

// NeedsCompaction reports whether the WAL has grown past its
// configured threshold and a snapshot rewrite should be triggered.
func (w *WalFile) NeedsCompaction() bool {
	info, err := w.f.Stat()
	if err != nil {
		return false
	}
	return info.Size() > w.maxBytes
}

// Clear deletes the WAL file's contents and reopens it fresh.
func (w *WalFile) Clear() error {
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("walstore: close wal before clear: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("walstore: recreate wal %s: %w", w.path, err)
	}
	w.f = f
	return nil
}

// Close closes the underlying file.
func (w *WalFile) Close() error {
	return w.f.Close()
}
