package walstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// widget is a tiny test record: a name and a counter, used to exercise
// the generic Store[T] without pulling in the real account types.
type widget struct {
	Name  string
	Count int32
}

type widgetCodec struct{}

func (widgetCodec) Encode(w widget) ([]byte, error) {
	nameBytes := []byte(w.Name)
	buf := make([]byte, 2+len(nameBytes)+4)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(nameBytes)))
	copy(buf[2:], nameBytes)
	binary.LittleEndian.PutUint32(buf[2+len(nameBytes):], uint32(w.Count))
	return buf, nil
}

func (widgetCodec) Decode(b []byte) (widget, error) {
	if len(b) < 2 {
		return widget{}, fmt.Errorf("widget: short record")
	}
	nameLen := int(binary.LittleEndian.Uint16(b[0:2]))
	if len(b) < 2+nameLen+4 {
		return widget{}, fmt.Errorf("widget: truncated record")
	}
	name := string(b[2 : 2+nameLen])
	count := int32(binary.LittleEndian.Uint32(b[2+nameLen:]))
	return widget{Name: name, Count: count}, nil
}

func (widgetCodec) Key(w widget) string {
	return normalizeKey(w.Name)
}

func (widgetCodec) Rename(w widget, newName string) widget {
	w.Name = newName
	return w
}

const (
	kindAddWidget byte = iota
	kindUpdateWidget
	kindDeleteWidget
	kindRenameWidget
)

func widgetKinds() Kinds {
	rename := kindRenameWidget
	return Kinds{Add: kindAddWidget, Update: kindUpdateWidget, Delete: kindDeleteWidget, Rename: &rename}
}

func openWidgets(t *testing.T, dir string) *Store[widget] {
	t.Helper()
	s, err := Open[widget](dir, "widgets", "pw", widgetCodec{}, widgetKinds(), nil, 0, nil)
	require.NoError(t, err)
	return s
}

func TestAddFindUpdateDelete(t *testing.T) {
	dir := t.TempDir()
	s := openWidgets(t, dir)
	defer s.Close()

	require.NoError(t, s.TryAdd(widget{Name: "alpha", Count: 1}))

	got, ok := s.Find("ALPHA")
	require.True(t, ok)
	assert.Equal(t, int32(1), got.Count)

	err := s.TryAdd(widget{Name: "alpha", Count: 2})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, s.TryUpdate(widget{Name: "alpha", Count: 99}))
	got, ok = s.Find("alpha")
	require.True(t, ok)
	assert.Equal(t, int32(99), got.Count)

	require.NoError(t, s.TryDelete("alpha"))
	_, ok = s.Find("alpha")
	assert.False(t, ok)

	err = s.TryDelete("alpha")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	s := openWidgets(t, dir)
	defer s.Close()

	require.NoError(t, s.TryAdd(widget{Name: "old", Count: 5}))
	require.NoError(t, s.TryRename("old", "new"))

	_, ok := s.Find("old")
	assert.False(t, ok)

	got, ok := s.Find("new")
	require.True(t, ok)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, int32(5), got.Count)
}

func TestReplayEquivalenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s := openWidgets(t, dir)

	require.NoError(t, s.TryAdd(widget{Name: "alpha", Count: 1}))
	require.NoError(t, s.TryAdd(widget{Name: "beta", Count: 2}))
	require.NoError(t, s.TryUpdate(widget{Name: "alpha", Count: 10}))
	require.NoError(t, s.Close())

	reopened := openWidgets(t, dir)
	defer reopened.Close()

	all := reopened.All()
	byName := make(map[string]widget, len(all))
	for _, w := range all {
		byName[w.Name] = w
	}
	require.Len(t, byName, 2)
	assert.Equal(t, int32(10), byName["alpha"].Count)
	assert.Equal(t, int32(2), byName["beta"].Count)
}

func TestForceRewriteInvariance(t *testing.T) {
	dir := t.TempDir()
	s := openWidgets(t, dir)
	defer s.Close()

	require.NoError(t, s.TryAdd(widget{Name: "alpha", Count: 1}))
	before := s.All()

	require.NoError(t, s.ForceRewrite())

	size, err := statSize(filepath.Join(dir, "widgets.wal"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)

	after := s.All()
	assert.Equal(t, before, after)
}

func statSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func TestDurabilityAfterAppend(t *testing.T) {
	dir := t.TempDir()
	s := openWidgets(t, dir)

	require.NoError(t, s.TryAdd(widget{Name: "alpha", Count: 1}))
	require.NoError(t, s.Close())

	reopened := openWidgets(t, dir)
	defer reopened.Close()

	got, ok := reopened.Find("alpha")
	require.True(t, ok)
	assert.Equal(t, int32(1), got.Count)
}

func TestCompactionTriggersOnSmallThreshold(t *testing.T) {
	dir := t.TempDir()
	s, err := Open[widget](dir, "widgets", "pw", widgetCodec{}, widgetKinds(), nil, 1, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.TryAdd(widget{Name: "alpha", Count: 1}))

	size, err := statSize(filepath.Join(dir, "widgets.wal"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}
