package fsck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/amftpd/pkg/accounts"
)

func openStores(t *testing.T, dir string) (*accounts.UserStore, *accounts.GroupStore, *accounts.SectionStore) {
	t.Helper()
	users, err := accounts.OpenUserStore(dir, "hunter2", 0, nil)
	require.NoError(t, err)
	groups, err := accounts.OpenGroupStore(dir, "hunter2", 0, nil)
	require.NoError(t, err)
	sections, err := accounts.OpenSectionStore(dir, "hunter2", 0, nil)
	require.NoError(t, err)
	return users, groups, sections
}

func TestFsckHealthyDatabaseHasNoFindings(t *testing.T) {
	dir := t.TempDir()

	users, groups, sections := openStores(t, dir)
	require.NoError(t, users.Close())
	require.NoError(t, groups.Close())
	require.NoError(t, sections.Close())

	assert.True(t, Users(dir, "hunter2").Healthy())
	assert.True(t, Groups(dir, "hunter2").Healthy())
	assert.True(t, Sections(dir, "hunter2").Healthy())
}

func TestFsckWrongPasswordReportsDecryptError(t *testing.T) {
	dir := t.TempDir()
	users, groups, sections := openStores(t, dir)
	require.NoError(t, users.Close())
	require.NoError(t, groups.Close())
	require.NoError(t, sections.Close())

	res := Users(dir, "wrong-password")
	assert.NotEmpty(t, res.Errors)
}

func TestFsckMissingSaltIsFatal(t *testing.T) {
	dir := t.TempDir()
	users, groups, sections := openStores(t, dir)
	require.NoError(t, users.Close())
	require.NoError(t, groups.Close())
	require.NoError(t, sections.Close())

	require.NoError(t, os.Remove(filepath.Join(dir, "users.salt")))

	res := Users(dir, "hunter2")
	require.NotEmpty(t, res.Errors)
}

func TestFsckDetectsTruncatedWalFrameAsWarning(t *testing.T) {
	dir := t.TempDir()
	users, groups, sections := openStores(t, dir)
	require.NoError(t, users.TryAdd(accounts.User{Name: "bob", HomeDir: "/", PrimaryGroup: "admins"}))
	require.NoError(t, users.Close())
	require.NoError(t, groups.Close())
	require.NoError(t, sections.Close())

	walPath := filepath.Join(dir, "users.wal")
	data, err := os.ReadFile(walPath)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	truncated := data[:len(data)-1]
	require.NoError(t, os.WriteFile(walPath, truncated, 0o600))

	res := Users(dir, "hunter2")
	assert.Empty(t, res.Errors)
	assert.NotEmpty(t, res.Warnings)
}

func TestDeepFsckHealthyDatabaseHasNoFindings(t *testing.T) {
	dir := t.TempDir()
	users, groups, sections := openStores(t, dir)
	defer func() {
		_ = users.Close()
		_ = groups.Close()
		_ = sections.Close()
	}()

	res := Deep(Stores{Users: users, Groups: groups, Sections: sections})
	assert.True(t, res.Healthy())
}

func TestDeepFsckDetectsDanglingReferences(t *testing.T) {
	dir := t.TempDir()
	users, groups, sections := openStores(t, dir)
	defer func() {
		_ = users.Close()
		_ = groups.Close()
		_ = sections.Close()
	}()

	require.NoError(t, groups.TryAdd(accounts.Group{
		Name:           "leeches",
		Users:          []string{"ghost"},
		SectionCredits: map[string]int64{"nonexistent": 5, "default": -10},
	}))
	require.NoError(t, users.TryAdd(accounts.User{
		Name:         "alice",
		HomeDir:      "/",
		PrimaryGroup: "nosuchgroup",
	}))

	res := Deep(Stores{Users: users, Groups: groups, Sections: sections})
	assert.NotEmpty(t, res.Errors)
	assert.NotEmpty(t, res.Warnings)
}

func TestRepairFixesDanglingReferencesAndRewritesSnapshots(t *testing.T) {
	dir := t.TempDir()
	users, groups, sections := openStores(t, dir)

	require.NoError(t, groups.TryAdd(accounts.Group{
		Name:           "leeches",
		Users:          []string{"ghost", "ghost"},
		SectionCredits: map[string]int64{"nonexistent": 5, "default": -10},
	}))
	require.NoError(t, users.TryAdd(accounts.User{
		Name:         "alice",
		HomeDir:      "/",
		PrimaryGroup: "nosuchgroup",
	}))

	stores := Stores{Users: users, Groups: groups, Sections: sections}
	require.NoError(t, Repair(stores))

	res := Deep(stores)
	assert.True(t, res.Healthy())

	alice, ok := users.Find("alice")
	require.True(t, ok)
	assert.Equal(t, "", alice.PrimaryGroup)

	leeches, ok := groups.Find("leeches")
	require.True(t, ok)
	assert.Empty(t, leeches.Users)
	assert.NotContains(t, leeches.SectionCredits, "nonexistent")
	assert.Equal(t, int64(0), leeches.SectionCredits["default"])

	require.NoError(t, users.Close())
	require.NoError(t, groups.Close())
	require.NoError(t, sections.Close())

	assert.True(t, Users(dir, "hunter2").Healthy())
	assert.True(t, Groups(dir, "hunter2").Healthy())
	assert.True(t, Sections(dir, "hunter2").Healthy())
}
