package fs

import (
	"io"
	"os"
	"runtime"
)

// File represents an open file.
type File interface {
	io.ReadWriteCloser
	io.ReaderAt
	Sync() error
	Stat() (os.FileInfo, error)
	Name() string
}

// FileSystem abstracts the file operations used to publish an index.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
	// SyncDir flushes directory metadata so a completed rename survives a crash.
	SyncDir(dir string) error
}

// LocalFS implements FileSystem using the local os package.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm)
}

func (LocalFS) Remove(name string) error                   { return os.Remove(name) }
func (LocalFS) Rename(oldpath, newpath string) error       { return os.Rename(oldpath, newpath) }
func (LocalFS) Stat(name string) (os.FileInfo, error)      { return os.Stat(name) }
func (LocalFS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

func (LocalFS) SyncDir(dir string) error {
	// Directories cannot be opened for sync on Windows; rename there is
	// already durable once MoveFileEx returns.
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// Default is the default local file system.
var Default FileSystem = LocalFS{}
