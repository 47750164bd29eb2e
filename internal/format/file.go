package format

import (
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/modindex/internal/hash"
)

// File is the in-memory form of a serialized index.
type File struct {
	BuildTime   time.Time
	Compression Compression
	Modules     []ModuleEntry
	// HashTable is the encoded identifier hash table region.
	HashTable []byte
	Stats     Stats
}

// Write serializes f as header + module table + hash table + stats block.
func Write(w io.Writer, f *File) (int64, error) {
	table, err := EncodeModuleTable(f.Modules)
	if err != nil {
		return 0, fmt.Errorf("encode module table: %w", err)
	}
	block, err := compressBlock(table, f.Compression)
	if err != nil {
		return 0, fmt.Errorf("compress module table: %w", err)
	}
	stats := f.Stats.encode()

	h := &Header{
		Version:     Version,
		Compression: f.Compression,
		BuildTime:   f.BuildTime,
	}
	h.ModuleTable = Section{Offset: HeaderSize, Length: uint64(len(block)), CRC: hash.CRC32C(block)}
	h.HashTable = Section{Offset: h.ModuleTable.end(), Length: uint64(len(f.HashTable)), CRC: hash.CRC32C(f.HashTable)}
	h.Stats = Section{Offset: h.HashTable.end(), Length: uint64(len(stats)), CRC: hash.CRC32C(stats)}

	var written int64
	for _, part := range [][]byte{h.encode(), block, f.HashTable, stats} {
		n, err := w.Write(part)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Parsed is a validated view over serialized index bytes.
// HashTable aliases the input slice; it is only checked if requested.
type Parsed struct {
	Header    *Header
	Modules   []ModuleEntry
	HashTable []byte
	Stats     Stats
}

// ParseOptions controls validation depth.
type ParseOptions struct {
	// VerifyHashTable checks the CRC of the whole hash table region.
	// This touches every page of the table, so it is off by default.
	VerifyHashTable bool
}

// Parse validates data and eagerly decodes the module table and stats block.
func Parse(data []byte, opts ParseOptions) (*Parsed, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if err := h.checkLayout(uint64(len(data))); err != nil {
		return nil, err
	}

	block := data[h.ModuleTable.Offset:h.ModuleTable.end()]
	if hash.CRC32C(block) != h.ModuleTable.CRC {
		return nil, fmt.Errorf("%w: module table checksum mismatch", ErrCorrupt)
	}
	statsBytes := data[h.Stats.Offset:h.Stats.end()]
	if hash.CRC32C(statsBytes) != h.Stats.CRC {
		return nil, fmt.Errorf("%w: stats checksum mismatch", ErrCorrupt)
	}
	table := data[h.HashTable.Offset:h.HashTable.end()]
	if opts.VerifyHashTable && hash.CRC32C(table) != h.HashTable.CRC {
		return nil, fmt.Errorf("%w: hash table checksum mismatch", ErrCorrupt)
	}

	raw, err := decompressBlock(block, h.Compression)
	if err != nil {
		return nil, err
	}
	modules, err := DecodeModuleTable(raw)
	if err != nil {
		return nil, err
	}
	stats, err := decodeStats(statsBytes)
	if err != nil {
		return nil, err
	}

	return &Parsed{Header: h, Modules: modules, HashTable: table, Stats: stats}, nil
}
