package format

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hupe1980/modindex/internal/hash"
)

const (
	// Magic identifies index files ("GMIX" on disk).
	Magic uint32 = 0x58494d47
	// Version is the current index format version.
	Version uint32 = 1
	// HeaderSize is the fixed size of the header in bytes.
	HeaderSize = 88
)

// Section locates one region of the file.
type Section struct {
	Offset uint64
	Length uint64
	CRC    uint32
}

func (s Section) end() uint64 { return s.Offset + s.Length }

// Header is the fixed-size file header.
//
// Layout (little-endian):
//
//	 0  Magic          uint32
//	 4  Version        uint32
//	 8  Flags          uint32  (bits 0-7: module table compression)
//	12  Reserved       uint32
//	16  BuildTime      int64   (Unix nanoseconds)
//	24  ModuleTable    offset uint64, length uint64
//	40  HashTable      offset uint64, length uint64
//	56  Stats          offset uint64, length uint64
//	72  ModuleTableCRC uint32
//	76  HashTableCRC   uint32
//	80  StatsCRC       uint32
//	84  HeaderCRC      uint32  (CRC32C of bytes 0..83)
type Header struct {
	Version     uint32
	Compression Compression
	BuildTime   time.Time
	ModuleTable Section
	HashTable   Section
	Stats       Section
}

func (h *Header) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:], Magic)
	binary.LittleEndian.PutUint32(b[4:], h.Version)
	binary.LittleEndian.PutUint32(b[8:], uint32(h.Compression))
	binary.LittleEndian.PutUint64(b[16:], uint64(h.BuildTime.UnixNano()))
	binary.LittleEndian.PutUint64(b[24:], h.ModuleTable.Offset)
	binary.LittleEndian.PutUint64(b[32:], h.ModuleTable.Length)
	binary.LittleEndian.PutUint64(b[40:], h.HashTable.Offset)
	binary.LittleEndian.PutUint64(b[48:], h.HashTable.Length)
	binary.LittleEndian.PutUint64(b[56:], h.Stats.Offset)
	binary.LittleEndian.PutUint64(b[64:], h.Stats.Length)
	binary.LittleEndian.PutUint32(b[72:], h.ModuleTable.CRC)
	binary.LittleEndian.PutUint32(b[76:], h.HashTable.CRC)
	binary.LittleEndian.PutUint32(b[80:], h.Stats.CRC)
	binary.LittleEndian.PutUint32(b[84:], hash.CRC32C(b[:84]))
	return b
}

// DecodeHeader parses and validates the header at the start of data.
// Magic and version are checked before the header checksum so that files
// written by other tools or future versions report a format mismatch.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrCorrupt, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:]); magic != Magic {
		return nil, fmt.Errorf("%w: %#x", ErrBadMagic, magic)
	}
	h := &Header{Version: binary.LittleEndian.Uint32(data[4:])}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrUnsupportedVersion, h.Version, Version)
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: truncated header (%d bytes)", ErrCorrupt, len(data))
	}
	if got, want := hash.CRC32C(data[:84]), binary.LittleEndian.Uint32(data[84:]); got != want {
		return nil, fmt.Errorf("%w: header checksum mismatch", ErrCorrupt)
	}

	flags := binary.LittleEndian.Uint32(data[8:])
	h.Compression = Compression(flags & 0xff)
	h.BuildTime = time.Unix(0, int64(binary.LittleEndian.Uint64(data[16:])))
	h.ModuleTable = Section{
		Offset: binary.LittleEndian.Uint64(data[24:]),
		Length: binary.LittleEndian.Uint64(data[32:]),
		CRC:    binary.LittleEndian.Uint32(data[72:]),
	}
	h.HashTable = Section{
		Offset: binary.LittleEndian.Uint64(data[40:]),
		Length: binary.LittleEndian.Uint64(data[48:]),
		CRC:    binary.LittleEndian.Uint32(data[76:]),
	}
	h.Stats = Section{
		Offset: binary.LittleEndian.Uint64(data[56:]),
		Length: binary.LittleEndian.Uint64(data[64:]),
		CRC:    binary.LittleEndian.Uint32(data[80:]),
	}
	if h.Compression > CompressionZSTD {
		return nil, fmt.Errorf("%w: unknown module table compression %d", ErrUnsupportedVersion, h.Compression)
	}
	return h, nil
}

// checkLayout verifies that the sections are contiguous and end exactly at size.
func (h *Header) checkLayout(size uint64) error {
	switch {
	case h.ModuleTable.Offset != HeaderSize:
		return fmt.Errorf("%w: module table at %d", ErrCorrupt, h.ModuleTable.Offset)
	case h.HashTable.Offset != h.ModuleTable.end() || h.HashTable.Offset < h.ModuleTable.Offset:
		return fmt.Errorf("%w: hash table at %d", ErrCorrupt, h.HashTable.Offset)
	case h.Stats.Offset != h.HashTable.end() || h.Stats.Offset < h.HashTable.Offset:
		return fmt.Errorf("%w: stats block at %d", ErrCorrupt, h.Stats.Offset)
	case h.Stats.end() != size || h.Stats.end() < h.Stats.Offset:
		return fmt.Errorf("%w: file is %d bytes, sections end at %d", ErrCorrupt, size, h.Stats.end())
	}
	return nil
}
