package table

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns a stable content hash of raw upload bytes. Two uploads
// of the same file yield the same fingerprint regardless of file name.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// KeyHash hashes a join key for use in in-memory indexes.
func KeyHash(key string) uint64 {
	return xxh3.HashString(key)
}
