// Package backup implements the portable, password-encrypted backup
// format used to export and restore a single store's snapshot file,
// independent of the store's own encryption key.
package backup

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/amftpd/pkg/atomicio"
	"github.com/marmos91/amftpd/pkg/crypto"
	"github.com/marmos91/amftpd/pkg/dberrors"
	"github.com/marmos91/amftpd/pkg/lz4codec"
)

// Magic identifies a backup file produced by this package.
const Magic = "AMFTPBK1"

// Create reads the raw snapshot file at sourcePath, seals it under a
// key derived from password and a freshly generated salt, and writes
// the resulting backup to destPath.
func Create(sourcePath, destPath, password string) error {
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("backup: read source %s: %w", sourcePath, err)
	}

	salt := make([]byte, crypto.SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("backup: generate salt: %w", err)
	}

	key := crypto.DeriveKey(password, salt)
	aead, err := crypto.NewAead(key)
	if err != nil {
		return fmt.Errorf("backup: derive aead: %w", err)
	}

	compressed, err := lz4codec.Compress(raw)
	if err != nil {
		return fmt.Errorf("backup: compress: %w", err)
	}
	sealed, err := aead.Seal(compressed)
	if err != nil {
		return fmt.Errorf("backup: seal: %w", err)
	}

	out := make([]byte, 0, len(Magic)+len(salt)+len(sealed))
	out = append(out, []byte(Magic)...)
	out = append(out, salt...)
	out = append(out, sealed...)

	if err := atomicio.WriteFile(destPath, out, 0o600); err != nil {
		return fmt.Errorf("backup: write %s: %w", destPath, err)
	}
	return nil
}

// Restore decrypts the backup at backupPath with password and
// atomically overwrites targetPath with the decrypted payload. A
// mismatched magic or AEAD failure surfaces as ErrBackupFormatInvalid.
func Restore(backupPath, targetPath, password string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("backup: read %s: %w", backupPath, err)
	}

	plain, err := decode(data, password)
	if err != nil {
		return err
	}

	if err := atomicio.WriteFile(targetPath, plain, 0o600); err != nil {
		return fmt.Errorf("backup: write %s: %w", targetPath, err)
	}
	return nil
}

// decode validates the magic, derives the key from the embedded salt,
// and decrypts+decompresses the payload, without touching disk beyond
// the caller-supplied bytes.
func decode(data []byte, password string) ([]byte, error) {
	headerLen := len(Magic) + crypto.SaltSize
	if len(data) < headerLen {
		return nil, fmt.Errorf("%w: backup file too short", dberrors.ErrBackupFormatInvalid)
	}
	if !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return nil, fmt.Errorf("%w: bad magic", dberrors.ErrBackupFormatInvalid)
	}

	salt := data[len(Magic):headerLen]
	sealed := data[headerLen:]

	key := crypto.DeriveKey(password, salt)
	aead, err := crypto.NewAead(key)
	if err != nil {
		return nil, fmt.Errorf("%w: derive aead: %v", dberrors.ErrBackupFormatInvalid, err)
	}

	compressed, err := aead.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt failed, wrong password or corrupt file", dberrors.ErrBackupFormatInvalid)
	}

	plain, err := lz4codec.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress failed", dberrors.ErrBackupFormatInvalid)
	}
	return plain, nil
}
