package format

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hupe1980/modindex/identity"
)

// FileStamp is the persisted identity of a module file. Path is relative to
// the index directory when the file lives inside it, absolute otherwise.
type FileStamp struct {
	Path    string
	Size    int64
	ModTime int64
}

// StampOf records m relative to dir when m lives inside dir. Relative stamps
// keep an index valid when the whole cache directory is moved.
func StampOf(dir string, m identity.ModuleFile) FileStamp {
	p := m.Path
	if rel, err := filepath.Rel(dir, m.Path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		p = filepath.ToSlash(rel)
	}
	return FileStamp{Path: p, Size: m.Size, ModTime: m.ModTime}
}

// Identity resolves s against dir.
func (s FileStamp) Identity(dir string) identity.ModuleFile {
	p := filepath.FromSlash(s.Path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	return identity.ModuleFile{Path: filepath.Clean(p), Size: s.Size, ModTime: s.ModTime}
}

// ModuleEntry is one slot of the module table.
type ModuleEntry struct {
	Removed      bool
	File         FileStamp
	Dependencies []FileStamp
}

const (
	slotRemoved uint8 = 0
	slotPresent uint8 = 1

	minStampSize = 2 + 8 + 8
)

func encodeStamp(e *Encoder, s FileStamp) {
	e.Str(s.Path)
	e.Int64(s.Size)
	e.Int64(s.ModTime)
}

func decodeStamp(d *Decoder) FileStamp {
	return FileStamp{Path: d.Str(), Size: d.Int64(), ModTime: d.Int64()}
}

// EncodeModuleTable serializes the module table in ordinal order.
func EncodeModuleTable(entries []ModuleEntry) ([]byte, error) {
	e := NewEncoder(make([]byte, 0, 64*len(entries)+4))
	e.Count(len(entries))
	for i := range entries {
		m := &entries[i]
		if m.Removed {
			e.Uint8(slotRemoved)
			continue
		}
		e.Uint8(slotPresent)
		encodeStamp(e, m.File)
		e.Count(len(m.Dependencies))
		for _, dep := range m.Dependencies {
			encodeStamp(e, dep)
		}
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// DecodeModuleTable parses a module table produced by EncodeModuleTable.
func DecodeModuleTable(b []byte) ([]ModuleEntry, error) {
	d := NewDecoder(b)
	n := d.Count(1)
	entries := make([]ModuleEntry, n)
	for i := 0; i < n && d.Err() == nil; i++ {
		switch tag := d.Uint8(); tag {
		case slotRemoved:
			entries[i].Removed = true
		case slotPresent:
			entries[i].File = decodeStamp(d)
			deps := d.Count(minStampSize)
			if deps > 0 {
				entries[i].Dependencies = make([]FileStamp, deps)
				for j := range entries[i].Dependencies {
					entries[i].Dependencies[j] = decodeStamp(d)
				}
			}
		default:
			if d.Err() == nil {
				return nil, fmt.Errorf("%w: module slot %d has tag %d", ErrCorrupt, i, tag)
			}
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: module table: %w", ErrCorrupt, err)
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes in module table", ErrCorrupt, d.Remaining())
	}
	return entries, nil
}
