// Package modulefile defines what the index needs to know about a module file
// and provides a compact binary encoding for it.
//
// A compiler that produces modules supplies a [Reader]; the index only asks
// for the names a module binds at namespace scope, the method selectors it
// declares, and the stamps of the module files it directly imports.
//
// The encoding implemented here is used by [FileReader]. It lets tools and
// tests produce module caches without a compiler:
//
//	Magic       uint32 "GMOD"
//	Version     uint16
//	Name        string
//	Identifiers uint32 count, then strings
//	Selectors   uint32 count, then strings
//	Imports     uint32 count, then (path string, size int64, modtime int64)
//	Checksum    uint32 CRC32C of everything before it
//
// Strings are a uint16 length followed by the bytes. Integers are
// little-endian.
package modulefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/modindex/identity"
)

// ErrMalformed is returned when module bytes cannot be decoded.
var ErrMalformed = errors.New("malformed module file")

// Info is the index-relevant content of one module file.
type Info struct {
	// Name is the module's logical name. Informational only.
	Name string
	// Identifiers are the namespace-scope names the module binds.
	Identifiers []string
	// Selectors are the method selectors the module declares.
	Selectors []string
	// Imports are the modules this module directly imports, with the stamps
	// they had when this module was built.
	Imports []Import
}

// Import is the recorded stamp of a directly imported module file.
type Import struct {
	Path    string
	Size    int64
	ModTime int64
}

// ImportOf returns an Import recording m's current stamp.
func ImportOf(m identity.ModuleFile) Import {
	return Import{Path: m.Path, Size: m.Size, ModTime: m.ModTime}
}

// Matches reports whether m is the physical file this import was built against.
func (i Import) Matches(m identity.ModuleFile) bool {
	return i.Size == m.Size && i.ModTime == m.ModTime
}

// Reader extracts Info from a module file.
// Implementations must be safe for concurrent use.
type Reader interface {
	ReadModule(ctx context.Context, path string) (*Info, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, path string) (*Info, error)

// ReadModule implements Reader.
func (f ReaderFunc) ReadModule(ctx context.Context, path string) (*Info, error) {
	return f(ctx, path)
}

// FileReader reads modules written by Write. Relative import paths are
// resolved against the importing module's directory.
type FileReader struct{}

// ReadModule implements Reader.
func (FileReader) ReadModule(ctx context.Context, path string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, imp := range info.Imports {
		if !filepath.IsAbs(imp.Path) {
			info.Imports[i].Path = filepath.Join(dir, imp.Path)
		}
	}
	return info, nil
}
