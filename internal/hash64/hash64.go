// Package hash64 provides the engine's one-pass and incremental 64-bit
// hashing, used for bloom filter keys and for hashing autoshrink arguments
// that have no user-supplied hash callback.
//
// The digest is BLAKE2b truncated to 64 bits rather than a hand-rolled
// mixing function: the teacher corpus already depends on golang.org/x/crypto
// (transitively via its PRNG reference material and directly in go.mod), and
// BLAKE2b natively supports a configurable output size, which the standard
// library's hash/fnv and maphash do not combine with incremental Write.
package hash64

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

const digestSize = 8

// Hasher is an incremental 64-bit hash sink.
type Hasher struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
	}
}

// Init returns a fresh incremental hasher.
func Init() *Hasher {
	h, err := blake2b.New(digestSize, nil)
	if err != nil {
		// blake2b.New only fails for out-of-range size or key length; both
		// are compile-time constants here, so this is unreachable.
		panic(err)
	}
	return &Hasher{h: h}
}

// Sink feeds bytes into the hash state.
func (h *Hasher) Sink(p []byte) {
	_, _ = h.h.Write(p)
}

// Done finalizes the hash and returns the 64-bit digest.
func (h *Hasher) Done() uint64 {
	sum := h.h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// OnePass hashes a single byte string in one call.
func OnePass(p []byte) uint64 {
	h := Init()
	h.Sink(p)
	return h.Done()
}
