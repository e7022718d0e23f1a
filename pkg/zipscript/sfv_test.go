package zipscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSFVSkipsCommentsAndMalformedLines(t *testing.T) {
	content := "; this is a comment\n" +
		"\n" +
		"file1.dat A1B2C3D4\n" +
		"no-crc-here\n" +
		"file2.dat deadbeef\n" +
		"file3.dat ZZZZZZZZ\n"

	entries := parseSFV(content)

	require := assert.New(t)
	require.Len(entries, 2)
	require.Equal(uint32(0xA1B2C3D4), entries["file1.dat"].ExpectedCRC)
	require.Equal(uint32(0xDEADBEEF), entries["file2.dat"].ExpectedCRC)
	_, ok := entries["file3.dat"]
	require.False(ok)
}

func TestNormalizeVirtualPath(t *testing.T) {
	cases := map[string]string{
		`\rel\foo.dat`: "/rel/foo.dat",
		"rel/foo.dat":  "/rel/foo.dat",
		"/rel/foo.dat": "/rel/foo.dat",
		"":             "/",
	}
	for input, want := range cases {
		assert.Equal(t, want, normalizeVirtualPath(input))
	}
}

func TestReleasePathOf(t *testing.T) {
	assert.Equal(t, "/rel", releasePathOf("/rel/foo.dat"))
	assert.Equal(t, "/", releasePathOf("/foo.dat"))
}
