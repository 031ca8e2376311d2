package resourceindex_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ark-builders/ark/pkg/resourceid"
	"github.com/ark-builders/ark/pkg/resourceindex"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuild_SkipsHiddenAndEmptyFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt", "hello")
	writeFile(t, root, ".hidden", "secret")
	writeFile(t, root, "empty.txt", "")

	idx, err := resourceindex.New[resourceid.Blake2b256](root, resourceid.Blake2bHasher{})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	require.Equal(t, 1, idx.Len())
	_, ok := idx.GetResourceByPath("doc.txt")
	require.True(t, ok)
	_, ok = idx.GetResourceByPath(".hidden")
	require.False(t, ok)
	_, ok = idx.GetResourceByPath("empty.txt")
	require.False(t, ok)
}

func TestBuild_PersistsIndexFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt", "hello")

	idx, err := resourceindex.New[resourceid.Blake2b256](root, resourceid.Blake2bHasher{})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	require.FileExists(t, filepath.Join(root, ".ark", "index"))
}

func TestLoad_RoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.txt", "hello")

	idx, err := resourceindex.New[resourceid.Blake2b256](root, resourceid.Blake2bHasher{})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	loaded, err := resourceindex.Load[resourceid.Blake2b256](root, resourceid.Blake2bHasher{})
	require.NoError(t, err)
	require.Equal(t, idx.Len(), loaded.Len())

	want, ok := idx.GetResourceByPath("doc.txt")
	require.True(t, ok)
	got, ok := loaded.GetResourceByPath("doc.txt")
	require.True(t, ok)
	require.Equal(t, want.Item, got.Item)
}

func TestUpdateAll_DetectsAdditionsDeletionsAndModifications(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "b.txt", "beta")

	idx, err := resourceindex.New[resourceid.Blake2b256](root, resourceid.Blake2bHasher{})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	require.NoError(t, os.Remove(filepath.Join(root, "b.txt")))
	writeFile(t, root, "c.txt", "gamma")

	// ensure a later mtime is observed for the modification
	time.Sleep(5 * time.Millisecond)
	writeFile(t, root, "a.txt", "ALPHA-CHANGED")

	update, err := idx.UpdateAll()
	require.NoError(t, err)

	require.Contains(t, update.Removed, "b.txt")
	require.Contains(t, update.Added, "c.txt")
	require.Contains(t, update.Removed, "a.txt")
	require.Contains(t, update.Added, "a.txt")
	require.NotEqual(t, update.Removed["a.txt"].Item, update.Added["a.txt"].Item)

	_, ok := idx.GetResourceByPath("b.txt")
	require.False(t, ok)
	_, ok = idx.GetResourceByPath("c.txt")
	require.True(t, ok)
}

func TestUpdateOne_ScopedToSinglePath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")

	idx, err := resourceindex.New[resourceid.Blake2b256](root, resourceid.Blake2bHasher{})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	writeFile(t, root, "b.txt", "beta")

	update, err := idx.UpdateOne("b.txt")
	require.NoError(t, err)
	require.Contains(t, update.Added, "b.txt")
	require.Empty(t, update.Removed)

	_, ok := idx.GetResourceByPath("b.txt")
	require.True(t, ok)
}

func TestCollisions_CRC32(t *testing.T) {
	root := t.TempDir()
	// Two distinct byte strings that might not naturally collide under
	// CRC32, so we force a collision by writing identical content under
	// two different paths instead of relying on a found collision pair.
	writeFile(t, root, "a.txt", "duplicate-content")
	writeFile(t, root, "b.txt", "duplicate-content")
	writeFile(t, root, "c.txt", "unique-content")

	idx, err := resourceindex.New[resourceid.CRC32](root, resourceid.CRC32Hasher{})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	ra, _ := idx.GetResourceByPath("a.txt")
	paths := idx.GetResourcesByID(ra.Item)
	require.ElementsMatch(t, []string{"a.txt", "b.txt"}, paths)

	collisions := idx.Collisions()
	require.Len(t, collisions, 1)
}

func TestUpdateAll_RemovingOneOfACollisionPairKeepsTheOther(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "duplicate-content")
	writeFile(t, root, "b.txt", "duplicate-content")

	idx, err := resourceindex.New[resourceid.CRC32](root, resourceid.CRC32Hasher{})
	require.NoError(t, err)
	require.NoError(t, idx.Build())

	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))
	_, err = idx.UpdateAll()
	require.NoError(t, err)

	rb, ok := idx.GetResourceByPath("b.txt")
	require.True(t, ok)
	paths := idx.GetResourcesByID(rb.Item)
	require.Equal(t, []string{"b.txt"}, paths)
}
