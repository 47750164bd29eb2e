package modindex_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/modindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := modindex.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, modindex.DefaultConfig(), *cfg)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
validate_on_open: false
compression: zstd
max_workers: 4
stale_lock_after: 90s
module_extension: .pcm
log_format: json
log_level: debug
`), 0o644))

	cfg, err := modindex.LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.ValidateOnOpen)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 90*time.Second, cfg.StaleLockAfter)
	assert.Equal(t, ".pcm", cfg.ModuleExtension)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_workers: 4\ncompression: lz4\n"), 0o644))

	t.Setenv("MODINDEX_MAX_WORKERS", "2")
	t.Setenv("MODINDEX_VERIFY_CHECKSUMS", "true")
	t.Setenv("MODINDEX_STALE_LOCK_AFTER", "5m")

	cfg, err := modindex.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxWorkers)
	assert.True(t, cfg.VerifyChecksums)
	assert.Equal(t, 5*time.Minute, cfg.StaleLockAfter)
	assert.Equal(t, "lz4", cfg.Compression)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"compression", "compression: brotli\n"},
		{"log format", "log_format: xml\n"},
		{"log level", "log_level: loud\n"},
		{"negative workers", "max_workers: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "modindex.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := modindex.LoadConfig(path)
			assert.Error(t, err)
		})
	}

	_, err := modindex.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	for _, s := range []string{"none", "lz4", "zstd"} {
		c, err := modindex.ParseCompression(s)
		require.NoError(t, err)
		assert.Equal(t, s, c.String())
	}
	_, err := modindex.ParseCompression("gzip")
	assert.Error(t, err)
}
