// Package hashtable implements the persistent identifier -> module-ordinal-set
// mapping at the heart of the index.
//
// # Serialized Layout
//
//	NumBuckets uint32
//	Buckets    [NumBuckets]uint32   offset of the bucket's chain, 0 = empty
//	Chains:
//	  KeyLen      uint16            0 terminates the chain
//	  Key         [KeyLen]byte
//	  PostingLen  uint32
//	  Postings    [PostingLen]byte  portable roaring bitmap of ordinals
//
// All offsets are relative to the start of the region. A key lives in bucket
// hash.Key(key) % NumBuckets. Entries within a chain are sorted by key, which
// keeps the output byte-identical for identical inputs.
//
// # Lookup
//
// Opening a table reads only the bucket count. A lookup reads one directory
// slot and walks one chain, so a miss never touches the rest of the table.
// Chain bounds are checked as they are walked; damage is reported as
// format.ErrCorrupt rather than as a miss.
package hashtable
