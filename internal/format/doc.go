// Package format implements the container layout of the serialized index.
//
// # Layout
//
//	+-------------------+  offset 0
//	| Header (88 bytes) |  magic "GMIX", version, flags, build time,
//	|                   |  section table, section CRC32Cs, header CRC32C
//	+-------------------+
//	| Module table      |  block-framed, optionally LZ4/ZSTD compressed
//	+-------------------+
//	| Hash table        |  bucket directory + chained entries (package hashtable)
//	+-------------------+
//	| Stats block       |  build-time counts
//	+-------------------+  == file size
//
// Sections are contiguous; a file whose size does not match the end of the
// stats block is rejected as corrupt. The header, module table, and stats
// block are checksum-verified on every open because they are read eagerly.
// The hash table is paged in lazily and only verified when asked.
//
// # Errors
//
// ErrBadMagic and ErrUnsupportedVersion denote a format mismatch; ErrCorrupt
// denotes damaged or truncated content.
package format
