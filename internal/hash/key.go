package hash

import "github.com/cespare/xxhash/v2"

// Key returns the 64-bit bucket hash of an encoded identifier key.
//
// The value is persisted implicitly through bucket placement, so it must be
// identical in every process that reads or writes an index: seeded hashes
// (hash/maphash) are not usable here.
func Key(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// KeyString is Key for a string without copying it.
func KeyString(key string) uint64 {
	return xxhash.Sum64String(key)
}
