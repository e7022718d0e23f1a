// Package crypto implements the authenticated encryption and key
// derivation primitives shared by the store, WAL, and backup formats.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length in bytes of a key-derivation salt.
	SaltSize = 32
	// KeySize is the length in bytes of a derived AES-256 key.
	KeySize = 32
	// Iterations is the PBKDF2 round count used for key derivation.
	Iterations = 200_000
	// NonceSize is the length in bytes of a GCM nonce.
	NonceSize = 12
	// TagSize is the length in bytes of a GCM authentication tag.
	TagSize = 16
)

// ErrCiphertextTooShort is returned by Open when the input cannot
// possibly contain a nonce and a tag.
var ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

// ErrDecryptFailed wraps any AEAD authentication failure.
var ErrDecryptFailed = errors.New("crypto: decrypt failed")

// DeriveKey derives a 32-byte AES-256 key from a UTF-8 password and a
// salt using PBKDF2-HMAC-SHA256 with Iterations rounds.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
}

// Aead seals and opens records under a single derived key.
type Aead struct {
	gcm cipher.AEAD
}

// NewAead constructs an Aead from a 32-byte key.
func NewAead(key []byte) (*Aead, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}

	return &Aead{gcm: gcm}, nil
}

// Seal encrypts plaintext, returning nonce||ciphertext||tag.
func (a *Aead) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	return a.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a frame produced by Seal, verifying the tag.
func (a *Aead) Open(frame []byte) ([]byte, error) {
	if len(frame) < NonceSize+TagSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := frame[:NonceSize], frame[NonceSize:]
	plaintext, err := a.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// EnsureSalt loads the 32-byte salt at path, creating and persisting a
// fresh random one if the file does not exist. A file that exists but
// is not exactly SaltSize bytes is a hard error.
func EnsureSalt(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != SaltSize {
			return nil, fmt.Errorf("crypto: salt file %s has length %d, want %d", path, len(data), SaltSize)
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("crypto: read salt %s: %w", path, err)
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("crypto: write salt %s: %w", path, err)
	}
	return salt, nil
}
