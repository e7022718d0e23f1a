// Package fsck implements structural and cross-store referential
// integrity checks over the encrypted snapshot+WAL stores, plus
// idempotent repair actions.
package fsck

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/marmos91/amftpd/pkg/accounts"
	"github.com/marmos91/amftpd/pkg/crypto"
	"github.com/marmos91/amftpd/pkg/lz4codec"
)

// Result is the outcome of a structural check: non-fatal warnings and
// fatal errors, both human-readable.
type Result struct {
	Errors   []string
	Warnings []string
}

func (r *Result) addError(format string, args ...any)   { r.Errors = append(r.Errors, fmt.Sprintf(format, args...)) }
func (r *Result) addWarning(format string, args ...any) { r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...)) }

// Healthy reports whether the result carries no errors or warnings.
func (r *Result) Healthy() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

type decoder[T any] interface {
	Decode([]byte) (T, error)
}

// utf8Checker validates that every declared string field of a record
// actually decodes as UTF-8 (spec §4.6 step 5); validateUser,
// validateGroup and validateSection below implement it per entity.
type utf8Checker[T any] func(T) error

func checkStore[T any](dir, name, password string, codec decoder[T], validate utf8Checker[T]) *Result {
	res := &Result{}

	saltPath := filepath.Join(dir, name+".salt")
	snapshotPath := filepath.Join(dir, name+".db")
	walPath := filepath.Join(dir, name+".wal")

	salt, err := os.ReadFile(saltPath)
	if err != nil {
		res.addError("%s: salt file unreadable: %v", name, err)
		return res
	}
	if len(salt) != crypto.SaltSize {
		res.addError("%s: salt file has length %d, want %d", name, len(salt), crypto.SaltSize)
		return res
	}

	key := crypto.DeriveKey(password, salt)
	aead, err := crypto.NewAead(key)
	if err != nil {
		res.addError("%s: derive aead: %v", name, err)
		return res
	}

	if data, err := os.ReadFile(snapshotPath); err == nil {
		checkSnapshot(res, name, aead, data, codec, validate)
	} else if !os.IsNotExist(err) {
		res.addError("%s: snapshot unreadable: %v", name, err)
	}

	if _, err := os.Stat(walPath); err == nil {
		checkWal(res, name, aead, walPath, codec, validate)
	} else if !os.IsNotExist(err) {
		res.addError("%s: wal unreadable: %v", name, err)
	}

	return res
}

func checkSnapshot[T any](res *Result, name string, aead *crypto.Aead, data []byte, codec decoder[T], validate utf8Checker[T]) {
	plain, err := aead.Open(data)
	if err != nil {
		res.addError("%s: snapshot decrypt failed: %v", name, err)
		return
	}
	body, err := lz4codec.Decompress(plain)
	if err != nil {
		res.addError("%s: snapshot decompress failed: %v", name, err)
		return
	}

	if len(body) < 4 {
		res.addError("%s: snapshot body too short for record count", name)
		return
	}
	count := binary.LittleEndian.Uint32(body[:4])
	offset := 4

	for i := uint32(0); i < count; i++ {
		if offset+4 > len(body) {
			res.addError("%s: snapshot record %d: truncated length prefix", name, i)
			return
		}
		recLen := binary.LittleEndian.Uint32(body[offset : offset+4])
		offset += 4
		if offset+int(recLen) > len(body) {
			res.addError("%s: snapshot record %d: declared length exceeds remaining body", name, i)
			return
		}
		recBytes := body[offset : offset+int(recLen)]
		offset += int(recLen)

		rec, err := codec.Decode(recBytes)
		if err != nil {
			res.addError("%s: snapshot record %d: %v", name, i, err)
			continue
		}
		if err := validate(rec); err != nil {
			res.addError("%s: snapshot record %d: %v", name, i, err)
		}
	}

	if offset != len(body) {
		res.addWarning("%s: snapshot has %d trailing bytes after declared records", name, len(body)-offset)
	}
}

func checkWal[T any](res *Result, name string, aead *crypto.Aead, walPath string, codec decoder[T], validate utf8Checker[T]) {
	data, err := os.ReadFile(walPath)
	if err != nil {
		res.addError("%s: wal unreadable: %v", name, err)
		return
	}

	const lengthPrefixSize = 4
	minFrame := crypto.NonceSize + crypto.TagSize

	offset := 0
	for offset < len(data) {
		if offset+lengthPrefixSize > len(data) {
			res.addWarning("%s: wal has a partial trailing length prefix", name)
			return
		}
		frameLen := int(binary.LittleEndian.Uint32(data[offset : offset+lengthPrefixSize]))
		offset += lengthPrefixSize

		if frameLen < minFrame {
			res.addError("%s: wal frame declares invalid length %d", name, frameLen)
			return
		}
		if offset+frameLen > len(data) {
			res.addWarning("%s: wal has a partial trailing frame", name)
			return
		}

		frame := data[offset : offset+frameLen]
		offset += frameLen

		plain, err := aead.Open(frame)
		if err != nil {
			res.addError("%s: wal frame decrypt failed: %v", name, err)
			return
		}
		body, err := lz4codec.Decompress(plain)
		if err != nil {
			res.addError("%s: wal frame decompress failed: %v", name, err)
			return
		}
		if len(body) < 1 {
			res.addError("%s: wal frame has no kind byte", name)
			return
		}

		switch body[0] {
		case accounts.KindDeleteUser, accounts.KindDeleteGroup, accounts.KindDeleteSection, accounts.KindRenameGroup:
			if !utf8.Valid(body[1:]) {
				res.addError("%s: wal frame payload is not valid UTF-8", name)
			}
		default:
			rec, err := codec.Decode(body[1:])
			if err != nil {
				res.addError("%s: wal frame record: %v", name, err)
				continue
			}
			if err := validate(rec); err != nil {
				res.addError("%s: wal frame record: %v", name, err)
			}
		}
	}
}

func validateUser(u accounts.User) error {
	for _, s := range []string{u.Name, u.PasswordHash, u.HomeDir, u.PrimaryGroup, u.AllowedIPMask, u.RequiredIdent} {
		if !utf8.Valid([]byte(s)) {
			return fmt.Errorf("invalid UTF-8 in user field")
		}
	}
	return nil
}

func validateGroup(g accounts.Group) error {
	if !utf8.Valid([]byte(g.Name)) || !utf8.Valid([]byte(g.Description)) {
		return fmt.Errorf("invalid UTF-8 in group field")
	}
	for _, u := range g.Users {
		if !utf8.Valid([]byte(u)) {
			return fmt.Errorf("invalid UTF-8 in group member name")
		}
	}
	for k := range g.SectionCredits {
		if !utf8.Valid([]byte(k)) {
			return fmt.Errorf("invalid UTF-8 in group section-credit key")
		}
	}
	return nil
}

func validateSection(s accounts.Section) error {
	if !utf8.Valid([]byte(s.Name)) || !utf8.Valid([]byte(s.VirtualRoot)) {
		return fmt.Errorf("invalid UTF-8 in section field")
	}
	return nil
}

// Users runs the single-store structural check over the user store in
// dir.
func Users(dir, password string) *Result {
	return checkStore[accounts.User](dir, "users", password, accounts.UserCodec{}, validateUser)
}

// Groups runs the single-store structural check over the group store
// in dir.
func Groups(dir, password string) *Result {
	return checkStore[accounts.Group](dir, "groups", password, accounts.GroupCodec{}, validateGroup)
}

// Sections runs the single-store structural check over the section
// store in dir.
func Sections(dir, password string) *Result {
	return checkStore[accounts.Section](dir, "sections", password, accounts.SectionCodec{}, validateSection)
}
