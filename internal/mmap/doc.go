// Package mmap maps an index file read-only into memory.
//
// The index reader keeps the module table and stats eagerly decoded and pages
// the hash table lazily; a mapping lets a lookup touch only the pages of the
// one chain it walks.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) access hints
//   - Windows: CreateFileMapping/MapViewOfFile (advice is a no-op)
//   - Other: the file is read into a heap buffer
//
// # Thread Safety
//
// Bytes may be read concurrently. Close is idempotent, but callers must
// ensure no goroutine touches Bytes after Close returns.
package mmap
