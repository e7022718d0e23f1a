package accounts

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BootstrapAdminName, BootstrapGroupName, and BootstrapSectionName are
// the well-known names created on first open of an empty database.
const (
	BootstrapAdminName   = "admin"
	BootstrapGroupName   = "admins"
	BootstrapSectionName = "default"
)

// HashPassword hashes a plaintext password with bcrypt, matching the
// teacher's CLI password-hashing convention.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("accounts: hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the given bcrypt
// hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BootstrapUsers returns the single bootstrap admin user, used as the
// user store's seed when opened against an empty directory.
func BootstrapUsers() []User {
	hash, err := HashPassword(BootstrapAdminName)
	if err != nil {
		// bcrypt only fails on a password longer than 72 bytes; the
		// literal "admin" can never trigger that.
		panic(fmt.Sprintf("accounts: bootstrap admin hash: %v", err))
	}

	admin := User{
		Name:         BootstrapAdminName,
		PasswordHash: hash,
		HomeDir:      "/",
		PrimaryGroup: BootstrapGroupName,
		CreditsKB:    InfiniteCredits,
	}
	admin.SetAdmin(true)
	admin.SetUpload(true)
	admin.SetDownload(true)

	return []User{admin}
}

// BootstrapGroups returns the single bootstrap admins group.
func BootstrapGroups() []Group {
	return []Group{{
		Name:           BootstrapGroupName,
		Description:    "bootstrap administrators group",
		Users:          []string{BootstrapAdminName},
		SectionCredits: map[string]int64{},
	}}
}

// BootstrapSections returns the single bootstrap default section.
func BootstrapSections() []Section {
	return []Section{{
		Name:        BootstrapSectionName,
		VirtualRoot: "/",
	}}
}
