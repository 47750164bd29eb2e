package mmap

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "modules.idx")
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p
}

func TestOpenReadClose(t *testing.T) {
	content := []byte("GMIX index bytes")
	m, err := Open(writeFile(t, content))
	require.NoError(t, err)

	assert.Equal(t, len(content), m.Len())
	assert.Equal(t, content, m.Bytes())
	assert.NoError(t, m.Advise(AccessRandom))

	require.NoError(t, m.Close())
	assert.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
}

func TestEmptyFile(t *testing.T) {
	m, err := Open(writeFile(t, nil))
	require.NoError(t, err)
	defer m.Close()

	assert.Zero(t, m.Len())
	assert.Empty(t, m.Bytes())
	assert.NoError(t, m.Advise(AccessWillNeed))
}

func TestMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent"))
	assert.True(t, os.IsNotExist(err))
}

func TestMappingSurvivesReplace(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mapped files cannot be replaced on windows")
	}
	p := writeFile(t, []byte("old contents"))
	m, err := Open(p)
	require.NoError(t, err)
	defer m.Close()

	tmp := p + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("new contents!"), 0o644))
	require.NoError(t, os.Rename(tmp, p))

	assert.Equal(t, "old contents", string(m.Bytes()))
}
