// Key hashing for on-disk file names.
//
// A key maps to a 16 hex character name so that arbitrary keys (slashes,
// quotes, unicode) never reach the filesystem. Three algorithms are
// selectable via Config.Hash.
package file

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Alg selects the key hash.
type Alg int

const (
	AlgXXHash3 Alg = 1 // Default, fastest
	AlgFNV1a   Alg = 2 // No external dependencies
	AlgBlake2b Alg = 3 // Best distribution
)

// ParseAlg maps a config name to an Alg. Empty means xxh3.
func ParseAlg(name string) (Alg, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "xxh3", "xxhash3":
		return AlgXXHash3, nil
	case "fnv", "fnv1a":
		return AlgFNV1a, nil
	case "blake2b":
		return AlgBlake2b, nil
	}
	return 0, fmt.Errorf("file: unknown hash algorithm %q", name)
}

// hash generates a 16 hex character name from a key.
func hash(key string, alg Alg) string {
	switch alg {
	case AlgFNV1a:
		h := fnv.New64a()
		h.Write([]byte(key))
		return fmt.Sprintf("%016x", h.Sum64())
	case AlgBlake2b:
		h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
		h.Write([]byte(key))
		return fmt.Sprintf("%016x", h.Sum(nil))
	default:
		return fmt.Sprintf("%016x", xxh3.HashString(key))
	}
}
