package resourceid

import (
	"fmt"
	"hash/crc32"
	"io"
	"strconv"
)

// CRC32 is the fast, non-cryptographic ResourceId variant. Two distinct
// files can hash to the same CRC32; callers that cannot tolerate that
// should use Blake2b256 instead.
type CRC32 uint32

// Compare orders CRC32 ids numerically.
func (c CRC32) Compare(other CRC32) int {
	switch {
	case c < other:
		return -1
	case c > other:
		return 1
	default:
		return 0
	}
}

// String renders the id as zero-padded lowercase hex, matching the width
// of a uint32 so ids sort lexically the same way they sort numerically.
func (c CRC32) String() string {
	return fmt.Sprintf("%08x", uint32(c))
}

// CRC32Hasher implements Hasher[CRC32] using the stdlib IEEE polynomial.
type CRC32Hasher struct{}

var _ Hasher[CRC32] = CRC32Hasher{}

func (CRC32Hasher) Variant() string { return "crc32" }

func (CRC32Hasher) FromBytes(b []byte) CRC32 {
	return CRC32(crc32.ChecksumIEEE(b))
}

func (CRC32Hasher) FromReader(r io.Reader) (CRC32, error) {
	h := crc32.NewIEEE()
	if err := streamChunks(r, h); err != nil {
		return 0, err
	}
	return CRC32(h.Sum32()), nil
}

func (h CRC32Hasher) FromPath(path string) (CRC32, error) {
	return fromPath(path, h.FromReader)
}

func (CRC32Hasher) ParseString(s string) (CRC32, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("resourceid: invalid crc32 id %q: %w", s, err)
	}
	return CRC32(v), nil
}
