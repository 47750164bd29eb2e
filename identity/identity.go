// Package identity maps module file paths to stable, comparable handles.
//
// A ModuleFile is a value: two handles are equal when they name the same
// cleaned absolute path with the same size and modification stamp. A module
// file that is rewritten in place therefore yields a different handle, which
// is how consumers detect that an indexed module is stale.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ModuleFile identifies one physical module file.
type ModuleFile struct {
	// Path is the cleaned absolute path of the file.
	Path string
	// Size is the file size in bytes.
	Size int64
	// ModTime is the modification time in Unix nanoseconds.
	ModTime int64
}

// IsZero reports whether m is the zero handle.
func (m ModuleFile) IsZero() bool {
	return m == ModuleFile{}
}

// Same reports whether a and b name the same path with the same physical stamp.
func Same(a, b ModuleFile) bool {
	return a == b
}

// SamePath reports whether a and b name the same path, regardless of stamp.
func SamePath(a, b ModuleFile) bool {
	return a.Path == b.Path
}

// ModTimeTime returns ModTime as a time.Time.
func (m ModuleFile) ModTimeTime() time.Time {
	return time.Unix(0, m.ModTime)
}

func (m ModuleFile) String() string {
	return fmt.Sprintf("%s@%d/%d", m.Path, m.Size, m.ModTime)
}

// Service resolves paths to identities.
// Implementations must be safe for concurrent use.
type Service interface {
	Stat(path string) (ModuleFile, error)
}

// OS is the default Service backed by os.Stat.
type OS struct{}

// Stat implements Service.
func (OS) Stat(path string) (ModuleFile, error) {
	abs, err := Normalize(path)
	if err != nil {
		return ModuleFile{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return ModuleFile{}, err
	}
	return FromFileInfo(abs, fi)
}

// FromFileInfo builds a handle from an already-normalized path and its FileInfo.
func FromFileInfo(absPath string, fi os.FileInfo) (ModuleFile, error) {
	if fi.IsDir() {
		return ModuleFile{}, fmt.Errorf("identity: %s is a directory", absPath)
	}
	return ModuleFile{
		Path:    absPath,
		Size:    fi.Size(),
		ModTime: fi.ModTime().UnixNano(),
	}, nil
}

// Normalize returns the cleaned absolute form of path.
func Normalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Default is the process-wide default identity service.
var Default Service = OS{}
