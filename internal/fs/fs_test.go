package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	dir := t.TempDir()
	lfs := LocalFS{}

	fpath := filepath.Join(dir, "modules.idx-1.tmp")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	require.NoError(t, f.Close())

	target := filepath.Join(dir, "modules.idx")
	require.NoError(t, lfs.Rename(fpath, target))
	require.NoError(t, lfs.SyncDir(dir))

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "modules.idx", entries[0].Name())

	require.NoError(t, lfs.Remove(target))
	_, err = lfs.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFSWriteLimit(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule(".tmp", Fault{FailAfterBytes: 5})

	fpath := filepath.Join(dir, "x.tmp")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	n, err := f.Write([]byte("hel"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.Write([]byte("lo!!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 2, n)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(fpath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFaultyFSUnmatchedPassThrough(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule(".tmp", Fault{FailAfterBytes: 0, FailOnSync: true})

	f, err := ffs.OpenFile(filepath.Join(dir, "other"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("ok"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())
}

func TestFaultyFSSyncAndClose(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("sync", Fault{FailAfterBytes: -1, FailOnSync: true, Err: boom})
	ffs.AddRule("close", Fault{FailAfterBytes: -1, FailOnClose: true})

	f, err := ffs.OpenFile(filepath.Join(dir, "sync"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), boom)
	require.NoError(t, f.Close())

	f, err = ffs.OpenFile(filepath.Join(dir, "close"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Close(), ErrInjected)
}

func TestFaultyFSRename(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("modules.idx", Fault{FailAfterBytes: -1, FailOnRename: true})

	src := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	err := ffs.Rename(src, filepath.Join(dir, "modules.idx"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Zero(t, ffs.Renames())

	require.NoError(t, ffs.Rename(src, filepath.Join(dir, "b")))
	assert.Equal(t, 1, ffs.Renames())
}

func TestFaultyFSDirectoryFaults(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)

	_, err := ffs.ReadDir(dir)
	require.NoError(t, err)
	require.NoError(t, ffs.SyncDir(dir))

	ffs.FailReadDir(ErrInjected)
	ffs.FailSyncDir(ErrInjected)
	_, err = ffs.ReadDir(dir)
	assert.ErrorIs(t, err, ErrInjected)
	assert.ErrorIs(t, ffs.SyncDir(dir), ErrInjected)

	ffs.FailReadDir(nil)
	_, err = ffs.ReadDir(dir)
	assert.NoError(t, err)
}

func TestFaultyFSRemove(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule(".lock", Fault{FailAfterBytes: -1, FailOnRemove: true})

	p := filepath.Join(dir, "modules.idx.lock")
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	assert.ErrorIs(t, ffs.Remove(p), ErrInjected)

	q := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(q, nil, 0o644))
	assert.NoError(t, ffs.Remove(q))
}
