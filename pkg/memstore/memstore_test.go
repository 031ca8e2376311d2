package memstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ark-builders/ark/pkg/memstore"
)

func TestSetGet(t *testing.T) {
	dir := t.TempDir()
	s, err := memstore.New[string, string]("notes", dir, memstore.StringCodec{}, 2)
	require.NoError(t, err)

	require.NoError(t, s.Set("a", "alpha"))
	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alpha", v)
}

func TestGet_Miss(t *testing.T) {
	dir := t.TempDir()
	s, err := memstore.New[string, string]("notes", dir, memstore.StringCodec{}, 2)
	require.NoError(t, err)

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	s, err := memstore.New[string, string]("notes", dir, memstore.StringCodec{}, 2)
	require.NoError(t, err)

	require.NoError(t, s.Set("a", "alpha"))
	require.NoError(t, s.Set("b", "beta"))

	// touch a so it becomes more recently used than b
	_, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Set("c", "gamma"))

	// b should have been evicted from the LRU, but is still on disk
	require.True(t, s.Has("b"))

	v, ok, err := s.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "beta", v)
}

func TestDelete_RemovesFromDiskAndCache(t *testing.T) {
	dir := t.TempDir()
	s, err := memstore.New[string, string]("notes", dir, memstore.StringCodec{}, 2)
	require.NoError(t, err)

	require.NoError(t, s.Set("a", "alpha"))
	require.NoError(t, s.Delete("a"))

	require.False(t, s.Has("a"))
	_, ok, err := s.Get("a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNew_ReloadsFullMtimeMapButBoundedLRU(t *testing.T) {
	dir := t.TempDir()
	s, err := memstore.New[string, string]("notes", dir, memstore.StringCodec{}, 10)
	require.NoError(t, err)

	keys := []string{"a", "b", "c", "d", "e"}
	for _, k := range keys {
		require.NoError(t, s.Set(k, "value-"+k))
	}

	reopened, err := memstore.New[string, string]("notes", dir, memstore.StringCodec{}, 2)
	require.NoError(t, err)

	for _, k := range keys {
		require.True(t, reopened.Has(k), "expected key %s to be known on disk", k)
	}

	for _, k := range keys {
		v, ok, err := reopened.Get(k)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "value-"+k, v)
	}
}

func TestPathLayout_OneFilePerKey(t *testing.T) {
	dir := t.TempDir()
	s, err := memstore.New[string, string]("notes", dir, memstore.StringCodec{}, 2)
	require.NoError(t, err)

	require.NoError(t, s.Set("doc1", "hello"))

	path := filepath.Join(dir, "doc1.json")
	require.FileExists(t, path)
}
