package auxstore_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ark-builders/ark/pkg/auxstore"
	"github.com/ark-builders/ark/pkg/resourceid"
)

func TestMerge_ObjectsKeyWise(t *testing.T) {
	old := json.RawMessage(`{"title":"old title","tags":["a"]}`)
	new := json.RawMessage(`{"description":"new desc","tags":["b"]}`)

	merged, err := auxstore.Merge(old, new)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(merged, &out))
	require.Equal(t, "old title", out["title"])
	require.Equal(t, "new desc", out["description"])
	require.ElementsMatch(t, []any{"a", "b"}, out["tags"])
}

func TestMerge_ArraysUnionWithoutDuplicates(t *testing.T) {
	old := json.RawMessage(`[1,2,3]`)
	new := json.RawMessage(`[2,3,4]`)

	merged, err := auxstore.Merge(old, new)
	require.NoError(t, err)

	var out []float64
	require.NoError(t, json.Unmarshal(merged, &out))
	require.ElementsMatch(t, []float64{1, 2, 3, 4}, out)
}

func TestMerge_ScalarsBecomeArrayWhenDistinct(t *testing.T) {
	old := json.RawMessage(`"alice"`)
	new := json.RawMessage(`"bob"`)

	merged, err := auxstore.Merge(old, new)
	require.NoError(t, err)
	require.JSONEq(t, `["alice","bob"]`, string(merged))
}

func TestMerge_ScalarsSameValueStaysScalar(t *testing.T) {
	old := json.RawMessage(`"alice"`)
	new := json.RawMessage(`"alice"`)

	merged, err := auxstore.Merge(old, new)
	require.NoError(t, err)
	require.JSONEq(t, `"alice"`, string(merged))
}

func TestMerge_MismatchedTypeOldWins(t *testing.T) {
	old := json.RawMessage(`"alice"`)
	new := json.RawMessage(`42`)

	merged, err := auxstore.Merge(old, new)
	require.NoError(t, err)
	require.JSONEq(t, `"alice"`, string(merged))
}

func TestMerge_NullIsNeutral(t *testing.T) {
	old := json.RawMessage(`null`)
	new := json.RawMessage(`{"a":1}`)

	merged, err := auxstore.Merge(old, new)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(merged))

	merged, err = auxstore.Merge(new, json.RawMessage(`null`))
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(merged))
}

func fixedMachineID() (string, error) { return "m1", nil }

type properties struct {
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

func TestPropertiesStore_MergeAcrossWrites(t *testing.T) {
	root := t.TempDir()
	store := auxstore.NewPropertiesStore[resourceid.Blake2b256](root, fixedMachineID)
	id := resourceid.Blake2bHasher{}.FromBytes([]byte("doc"))

	require.NoError(t, store.MergeJSON(id, properties{Title: "hello", Tags: []string{"a"}}))
	require.NoError(t, store.MergeJSON(id, properties{Tags: []string{"b"}}))

	raw, err := store.Load(id)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, "hello", out["title"])
	require.ElementsMatch(t, []any{"a", "b"}, out["tags"])
}

func TestMetadataStore_SaveReplacesEntirely(t *testing.T) {
	root := t.TempDir()
	store := auxstore.NewMetadataStore[resourceid.Blake2b256](root, fixedMachineID)
	id := resourceid.Blake2bHasher{}.FromBytes([]byte("doc"))

	require.NoError(t, store.SaveJSON(id, map[string]any{"width": 100}))
	require.NoError(t, store.SaveJSON(id, map[string]any{"height": 200}))

	raw, err := store.Load(id)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotContains(t, out, "width")
	require.Equal(t, float64(200), out["height"])
}
