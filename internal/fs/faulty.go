package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInjected is the error returned by a Fault without an explicit Err.
var ErrInjected = errors.New("injected fault")

// Fault defines failure behavior for files whose name contains a pattern.
type Fault struct {
	// FailAfterBytes fails writes once this many bytes were written to the
	// file. Negative disables the limit.
	FailAfterBytes int64
	FailOnSync     bool
	FailOnClose    bool
	// FailOnRename fails a rename whose source or target matches.
	FailOnRename bool
	FailOnRemove bool
	Err          error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyFS wraps a FileSystem and injects errors for matching paths.
type FaultyFS struct {
	FS FileSystem

	mu      sync.Mutex
	rules   map[string]Fault
	readDir error
	syncDir error
	renames int
}

// NewFaultyFS creates a new FaultyFS wrapping fsys (or Default if nil).
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{FS: fsys, rules: make(map[string]Fault)}
}

// AddRule injects fault for every path containing pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// FailReadDir makes ReadDir return err. A nil err clears the fault.
func (f *FaultyFS) FailReadDir(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readDir = err
}

// FailSyncDir makes SyncDir return err. A nil err clears the fault.
func (f *FaultyFS) FailSyncDir(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncDir = err
}

// Renames returns the number of successful renames.
func (f *FaultyFS) Renames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renames
}

func (f *FaultyFS) match(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := filepath.Base(name)
	for pattern, rule := range f.rules {
		if strings.Contains(base, pattern) {
			return rule, true
		}
	}
	return Fault{FailAfterBytes: -1}, false
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	fault, ok := f.match(name)
	if !ok {
		return file, nil
	}
	return &faultyFile{File: file, fault: fault}, nil
}

func (f *FaultyFS) Remove(name string) error {
	if fault, ok := f.match(name); ok && fault.FailOnRemove {
		return fault.err()
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	for _, p := range []string{oldpath, newpath} {
		if fault, ok := f.match(p); ok && fault.FailOnRename {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fault.err()}
		}
	}
	if err := f.FS.Rename(oldpath, newpath); err != nil {
		return err
	}
	f.mu.Lock()
	f.renames++
	f.mu.Unlock()
	return nil
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	f.mu.Lock()
	err := f.readDir
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.FS.ReadDir(name)
}

func (f *FaultyFS) SyncDir(dir string) error {
	f.mu.Lock()
	err := f.syncDir
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.FS.SyncDir(dir)
}

type faultyFile struct {
	File
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(len(p)) > ff.fault.FailAfterBytes {
		// Write the allowed prefix so the file looks like a torn write.
		allowed := ff.fault.FailAfterBytes - ff.written
		n, _ := ff.File.Write(p[:allowed])
		ff.written += int64(n)
		return n, ff.fault.err()
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fault.err()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.fault.err()
	}
	return ff.File.Close()
}
