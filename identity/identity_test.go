package identity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSStat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.module")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	id, err := OS{}.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(path), id.Path)
	assert.Equal(t, int64(3), id.Size)
	assert.False(t, id.IsZero())

	again, err := OS{}.Stat(filepath.Join(dir, ".", "a.module"))
	require.NoError(t, err)
	assert.True(t, Same(id, again))
}

func TestStampDistinguishesRewrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.module")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	before, err := Default.Stat(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0o644))
	later := time.Unix(0, before.ModTime).Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	after, err := Default.Stat(path)
	require.NoError(t, err)

	assert.True(t, SamePath(before, after))
	assert.False(t, Same(before, after))
}

func TestStatErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := OS{}.Stat(filepath.Join(dir, "missing.module"))
	assert.True(t, os.IsNotExist(err))

	_, err = OS{}.Stat(dir)
	assert.Error(t, err)
}
