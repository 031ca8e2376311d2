package kvstore_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ark-builders/ark/pkg/kvstore"
)

func newStore(t *testing.T) (*kvstore.Storage[string, kvstore.Score], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scores")
	s, err := kvstore.New[string, kvstore.Score]("scores", path, kvstore.StringCodec{}, kvstore.ScoreMonoid{})
	require.NoError(t, err)
	return s, path
}

func TestSetGetRemove(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.Set("a", kvstore.Score(1)))
	v, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, kvstore.Score(1), v)

	require.NoError(t, s.Remove("a"))
	_, ok = s.Get("a")
	require.False(t, ok)

	err := s.Remove("a")
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestPersistAndReload(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, s.Set("a", kvstore.Score(3)))
	require.NoError(t, s.Set("b", kvstore.Score(7)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "version 2\n")

	reloaded, err := kvstore.New[string, kvstore.Score]("scores", path, kvstore.StringCodec{}, kvstore.ScoreMonoid{})
	require.NoError(t, err)
	v, ok := reloaded.Get("a")
	require.True(t, ok)
	require.Equal(t, kvstore.Score(3), v)
	v, ok = reloaded.Get("b")
	require.True(t, ok)
	require.Equal(t, kvstore.Score(7), v)
}

func TestReadFS_RejectsBadVersionHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores")
	require.NoError(t, os.WriteFile(path, []byte("version 99\n{}"), 0o644))

	_, err := kvstore.New[string, kvstore.Score]("scores", path, kvstore.StringCodec{}, kvstore.ScoreMonoid{})
	require.ErrorIs(t, err, kvstore.ErrStorageFormat)
}

func TestReadFS_RejectsMissingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o644))

	_, err := kvstore.New[string, kvstore.Score]("scores", path, kvstore.StringCodec{}, kvstore.ScoreMonoid{})
	require.ErrorIs(t, err, kvstore.ErrStorageFormat)
}

func TestMergeFrom_ScoreTakesMax(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.Set("a", kvstore.Score(1)))
	require.NoError(t, s.Set("b", kvstore.Score(5)))

	other := map[string]kvstore.Score{
		"a": kvstore.Score(9),
		"c": kvstore.Score(2),
	}

	require.NoError(t, s.MergeFrom(other))

	v, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, kvstore.Score(9), v)

	v, ok = s.Get("b")
	require.True(t, ok)
	require.Equal(t, kvstore.Score(5), v)

	v, ok = s.Get("c")
	require.True(t, ok)
	require.Equal(t, kvstore.Score(2), v)
}

func TestMergeFrom_StringSetUnion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags")
	s, err := kvstore.New[string, kvstore.StringSet]("tags", path, kvstore.StringCodec{}, kvstore.StringSetMonoid{})
	require.NoError(t, err)

	require.NoError(t, s.Set("doc1", kvstore.NewStringSet("work")))

	other := map[string]kvstore.StringSet{
		"doc1": kvstore.NewStringSet("urgent"),
	}
	require.NoError(t, s.MergeFrom(other))

	v, ok := s.Get("doc1")
	require.True(t, ok)
	require.ElementsMatch(t, []string{"work", "urgent"}, v.Items())
}

func TestNeedsSyncing_DetectsExternalWrite(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, s.Set("a", kvstore.Score(1)))

	needs, err := s.NeedsSyncing()
	require.NoError(t, err)
	require.False(t, needs)

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	needs, err = s.NeedsSyncing()
	require.NoError(t, err)
	require.True(t, needs)
}

func TestErase_RemovesFile(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, s.Set("a", kvstore.Score(1)))

	require.NoError(t, s.Erase())
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
