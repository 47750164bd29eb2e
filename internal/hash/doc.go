// Package hash provides the hashing primitives shared by the index writer and reader.
//
// # Bucket Hash
//
// Identifier keys are placed into buckets with xxHash64 (github.com/cespare/xxhash/v2):
//
//	bucket := hash.Key(key) % bucketCount
//
// The writer and every reader must agree on this function; changing it is an
// on-disk format change and requires a format version bump.
//
// # CRC32-Castagnoli (CRC32C)
//
// Section checksums (module table, statistics block, optional hash table
// verification, module files) use CRC32C, which is hardware accelerated on
// x86 (SSE4.2) and ARM (CRC extension).
//
//	checksum := hash.CRC32C(data)
package hash
