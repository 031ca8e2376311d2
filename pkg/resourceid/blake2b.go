package resourceid

import (
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Blake2b256 is the collision-resistant ResourceId variant: a 256-bit
// BLAKE2b digest, the closest in-pack analogue to a cryptographic
// content hash.
type Blake2b256 [blake2b.Size256]byte

// Compare orders Blake2b256 ids by byte-wise lexical comparison.
func (b Blake2b256) Compare(other Blake2b256) int {
	for i := range b {
		if b[i] != other[i] {
			if b[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (b Blake2b256) String() string {
	return hex.EncodeToString(b[:])
}

// Blake2bHasher implements Hasher[Blake2b256].
type Blake2bHasher struct{}

var _ Hasher[Blake2b256] = Blake2bHasher{}

func (Blake2bHasher) Variant() string { return "blake2b256" }

func (Blake2bHasher) FromBytes(b []byte) Blake2b256 {
	return blake2b.Sum256(b)
}

func (Blake2bHasher) FromReader(r io.Reader) (Blake2b256, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return Blake2b256{}, fmt.Errorf("resourceid: init blake2b: %w", err)
	}
	if err := streamChunks(r, h); err != nil {
		return Blake2b256{}, err
	}
	var out Blake2b256
	copy(out[:], h.Sum(nil))
	return out, nil
}

func (h Blake2bHasher) FromPath(path string) (Blake2b256, error) {
	return fromPath(path, h.FromReader)
}

func (Blake2bHasher) ParseString(s string) (Blake2b256, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Blake2b256{}, fmt.Errorf("resourceid: invalid blake2b256 id %q: %w", s, err)
	}
	if len(raw) != blake2b.Size256 {
		return Blake2b256{}, fmt.Errorf("resourceid: invalid blake2b256 id %q: wrong length", s)
	}
	var out Blake2b256
	copy(out[:], raw)
	return out, nil
}
