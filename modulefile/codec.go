package modulefile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/modindex/internal/format"
	"github.com/hupe1980/modindex/internal/hash"
)

const (
	// Magic identifies a module file ("GMOD").
	Magic uint32 = 0x444f4d47
	// Version is the module encoding version.
	Version uint16 = 1
)

// minImportSize is an empty path plus two int64 stamps.
const minImportSize = 2 + 8 + 8

// Encode serializes info.
func Encode(info *Info) ([]byte, error) {
	e := format.NewEncoder(make([]byte, 0, 256))
	e.Uint32(Magic)
	e.Uint16(Version)
	e.Str(info.Name)
	e.Count(len(info.Identifiers))
	for _, s := range info.Identifiers {
		e.Str(s)
	}
	e.Count(len(info.Selectors))
	for _, s := range info.Selectors {
		e.Str(s)
	}
	e.Count(len(info.Imports))
	for _, imp := range info.Imports {
		e.Str(imp.Path)
		e.Int64(imp.Size)
		e.Int64(imp.ModTime)
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	buf := e.Bytes()
	return binary.LittleEndian.AppendUint32(buf, hash.CRC32C(buf)), nil
}

// Write encodes info to w.
func Write(w io.Writer, info *Info) error {
	data, err := Encode(info)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile encodes info into the file at path, replacing it.
func WriteFile(path string, info *Info) error {
	data, err := Encode(info)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) (*Info, error) {
	if len(data) < 4+2+4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	body, sum := data[:len(data)-4], binary.LittleEndian.Uint32(data[len(data)-4:])
	if hash.CRC32C(body) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrMalformed)
	}

	d := format.NewDecoder(body)
	if m := d.Uint32(); m != Magic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrMalformed, m)
	}
	if v := d.Uint16(); v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}

	info := &Info{Name: d.Str()}
	info.Identifiers = decodeStrings(d)
	info.Selectors = decodeStrings(d)
	if n := d.Count(minImportSize); n > 0 {
		info.Imports = make([]Import, n)
		for i := range info.Imports {
			info.Imports[i] = Import{Path: d.Str(), Size: d.Int64(), ModTime: d.Int64()}
		}
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, d.Remaining())
	}
	return info, nil
}

func decodeStrings(d *format.Decoder) []string {
	n := d.Count(2)
	if n == 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = d.Str()
	}
	return out
}
