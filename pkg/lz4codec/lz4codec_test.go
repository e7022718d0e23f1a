package lz4codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("a"),
		bytes.Repeat([]byte("amftpd"), 4096),
	}

	for _, src := range cases {
		compressed, err := Compress(src)
		require.NoError(t, err)

		got, err := Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, src, got)
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := Decompress([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	assert.Error(t, err)
}
