package atomicfile_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ark-builders/ark/pkg/atomicfile"
)

func fixedMachineID() (string, error) { return "m1", nil }

func open(t *testing.T) *atomicfile.File {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "resource")
	f, err := atomicfile.Open(dir, fixedMachineID, "")
	require.NoError(t, err)
	return f
}

func TestOpen_EmptyViewHasNoContent(t *testing.T) {
	f := open(t)
	view, err := f.Load()
	require.NoError(t, err)
	require.Equal(t, int64(0), view.Version)
	require.False(t, view.Exists())

	content, err := f.ReadContent(view)
	require.NoError(t, err)
	require.Nil(t, content)
}

func TestModify_AppendsAndPersists(t *testing.T) {
	f := open(t)

	err := f.Modify(func(current []byte) ([]byte, error) {
		return append(current, 'a'), nil
	})
	require.NoError(t, err)

	view, err := f.Load()
	require.NoError(t, err)
	require.Equal(t, int64(1), view.Version)

	content, err := f.ReadContent(view)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), content)

	require.NoError(t, f.Modify(func(current []byte) ([]byte, error) {
		return append(current, 'b'), nil
	}))

	view, err = f.Load()
	require.NoError(t, err)
	require.Equal(t, int64(2), view.Version)
	content, err = f.ReadContent(view)
	require.NoError(t, err)
	require.Equal(t, []byte("ab"), content)
}

func TestModify_ConcurrentWritersAllSucceedInOrder(t *testing.T) {
	f := open(t)

	const writers = 10
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.Modify(func(current []byte) ([]byte, error) {
				if len(current) > 0 {
					current = append(current, ',')
				}
				return append(current, []byte(fmt.Sprintf("%d", i))...), nil
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	view, err := f.Load()
	require.NoError(t, err)
	require.GreaterOrEqual(t, view.Version, int64(writers))

	content, err := f.ReadContent(view)
	require.NoError(t, err)

	parts := splitCSV(string(content))
	sort.Strings(parts)
	require.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, parts)
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

type doc struct {
	Count int `json:"count"`
}

func TestModifyJSON_RoundTrip(t *testing.T) {
	f := open(t)

	err := atomicfile.ModifyJSON(f, func(current *doc) (*doc, error) {
		require.Nil(t, current)
		return &doc{Count: 1}, nil
	})
	require.NoError(t, err)

	err = atomicfile.ModifyJSON(f, func(current *doc) (*doc, error) {
		require.NotNil(t, current)
		require.Equal(t, 1, current.Count)
		return &doc{Count: current.Count + 1}, nil
	})
	require.NoError(t, err)

	view, err := f.Load()
	require.NoError(t, err)
	content, err := f.ReadContent(view)
	require.NoError(t, err)
	require.JSONEq(t, `{"count":2}`, string(content))
}

func TestOpen_RejectsNonDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := atomicfile.Open(path, fixedMachineID, "")
	require.Error(t, err)
}

func TestDestroy_RemovesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "resource")
	f, err := atomicfile.Open(dir, fixedMachineID, "")
	require.NoError(t, err)

	require.NoError(t, f.Modify(func(current []byte) ([]byte, error) {
		return []byte("x"), nil
	}))

	require.NoError(t, f.Destroy())
	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}
