package resourceid_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ark-builders/ark/pkg/resourceid"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "resource.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestCRC32_Deterministic(t *testing.T) {
	path := writeTemp(t, []byte("the quick brown fox"))

	h := resourceid.CRC32Hasher{}
	id1, err := h.FromPath(path)
	require.NoError(t, err)
	id2, err := h.FromPath(path)
	require.NoError(t, err)

	require.Equal(t, id1, id2)
	require.Equal(t, 0, id1.Compare(id2))
}

func TestCRC32_RoundTrip(t *testing.T) {
	h := resourceid.CRC32Hasher{}
	id := h.FromBytes([]byte("round trip me"))

	parsed, err := h.ParseString(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestCRC32_DifferentContentDifferentId(t *testing.T) {
	h := resourceid.CRC32Hasher{}
	a := h.FromBytes([]byte("alpha"))
	b := h.FromBytes([]byte("beta"))
	require.NotEqual(t, a, b)
}

func TestBlake2b256_Deterministic(t *testing.T) {
	path := writeTemp(t, []byte("the quick brown fox"))

	h := resourceid.Blake2bHasher{}
	id1, err := h.FromPath(path)
	require.NoError(t, err)
	id2, err := h.FromPath(path)
	require.NoError(t, err)

	require.Equal(t, id1, id2)
	require.Equal(t, 0, id1.Compare(id2))
}

func TestBlake2b256_RoundTrip(t *testing.T) {
	h := resourceid.Blake2bHasher{}
	id := h.FromBytes([]byte("round trip me"))

	parsed, err := h.ParseString(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestBlake2b256_ParseString_WrongLength(t *testing.T) {
	h := resourceid.Blake2bHasher{}
	_, err := h.ParseString("abcd")
	require.Error(t, err)
}

func TestBlake2b256_LargeFileChunkedHash(t *testing.T) {
	// exercise the chunked reader path across multiple ChunkSize boundaries
	content := make([]byte, resourceid.ChunkSize*2+137)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := writeTemp(t, content)

	h := resourceid.Blake2bHasher{}
	streamed, err := h.FromPath(path)
	require.NoError(t, err)

	direct := h.FromBytes(content)
	require.Equal(t, direct, streamed)
}

func TestCodec_FormatParse(t *testing.T) {
	codec := resourceid.Codec[resourceid.Blake2b256]{Hasher: resourceid.Blake2bHasher{}}
	id := resourceid.Blake2bHasher{}.FromBytes([]byte("codec"))

	s := codec.Format(id)
	parsed, err := codec.Parse(s)
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}
