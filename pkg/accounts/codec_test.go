package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRoundTrip(t *testing.T) {
	u := User{
		Name:                "alice",
		PasswordHash:        "h",
		HomeDir:             "/",
		MaxConcurrentLogins: 2,
		IdleTimeoutSec:      900,
		MaxUpKbps:           1024,
		MaxDownKbps:         2048,
		CreditsKB:           1024,
		PrimaryGroup:        "users",
		AllowedIPMask:       "10.0.0.*",
		RequiredIdent:       "alice",
	}
	u.SetUpload(true)
	u.SetDownload(true)

	codec := UserCodec{}
	encoded, err := codec.Encode(u)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, u, decoded)
	assert.True(t, decoded.AllowsUpload())
	assert.True(t, decoded.AllowsDownload())
	assert.False(t, decoded.IsAdmin())
}

func TestUserDecodeRejectsUnknownRecordType(t *testing.T) {
	_, err := UserCodec{}.Decode([]byte{7, 0, 0})
	assert.Error(t, err)
}

func TestGroupRoundTrip(t *testing.T) {
	g := Group{
		Name:        "leeches",
		Description: "default group",
		Users:       []string{"alice", "bob"},
		SectionCredits: map[string]int64{
			"MP3": 100,
			"0DAY": 200,
		},
	}

	codec := GroupCodec{}
	encoded, err := codec.Encode(g)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, g, decoded)
}

func TestSectionRoundTripWithNukeMultiplier(t *testing.T) {
	mult := 3.0
	s := Section{
		Name:              "MP3",
		VirtualRoot:       "/mp3",
		FreeLeech:         true,
		RatioUploadUnit:   1,
		RatioDownloadUnit: 3,
		NukeMultiplier:    &mult,
	}

	codec := SectionCodec{}
	encoded, err := codec.Encode(s)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded.NukeMultiplier)
	assert.Equal(t, s.Name, decoded.Name)
	assert.Equal(t, s.VirtualRoot, decoded.VirtualRoot)
	assert.Equal(t, *s.NukeMultiplier, *decoded.NukeMultiplier)
}

func TestSectionRoundTripWithoutNukeMultiplier(t *testing.T) {
	s := Section{Name: "default", VirtualRoot: "/"}

	codec := SectionCodec{}
	encoded, err := codec.Encode(s)
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Nil(t, decoded.NukeMultiplier)
}

func TestNormalizeVirtualRoot(t *testing.T) {
	cases := map[string]string{
		"/mp3":     "/mp3",
		"mp3":      "/mp3",
		`\mp3\foo`: "/mp3/foo",
		"":         "/",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeVirtualRoot(input))
	}
}

func TestBootstrapDefaults(t *testing.T) {
	users := BootstrapUsers()
	require.Len(t, users, 1)
	admin := users[0]
	assert.Equal(t, BootstrapAdminName, admin.Name)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, InfiniteCredits, admin.CreditsKB)
	assert.True(t, CheckPassword(admin.PasswordHash, "admin"))

	groups := BootstrapGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, BootstrapGroupName, groups[0].Name)
	assert.Contains(t, groups[0].Users, BootstrapAdminName)

	sections := BootstrapSections()
	require.Len(t, sections, 1)
	assert.Equal(t, BootstrapSectionName, sections[0].Name)
	assert.Equal(t, "/", sections[0].VirtualRoot)
}
