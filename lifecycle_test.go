package modindex_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/hupe1980/modindex"
	"github.com/hupe1980/modindex/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNoGoroutineLeaks verifies that builds and opened indexes leave no
// goroutines behind once WriteIndex returns and Close is called.
func TestNoGoroutineLeaks(t *testing.T) {
	tests := []struct {
		name string
		opts []modindex.Option
	}{
		{name: "defaults"},
		{name: "bounded workers", opts: []modindex.Option{modindex.WithMaxWorkers(2)}},
		{name: "rate limited", opts: []modindex.Option{modindex.WithReadRateLimit(1 << 30)}},
		{name: "zstd", opts: []modindex.Option{modindex.WithCompression(modindex.CompressionZSTD)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testutil.NewCache(t)
			c.Add(testutil.NewRNG(3).Modules(40, 50, 8)...)

			runtime.GC()
			time.Sleep(50 * time.Millisecond)
			before := runtime.NumGoroutine()

			for i := 0; i < 3; i++ {
				require.NoError(t, modindex.WriteIndex(context.Background(), c.Dir, tt.opts...))
				idx, err := modindex.ReadIndex(c.Dir, tt.opts...)
				require.NoError(t, err)
				_, err = idx.LookupIdentifier("ident1", nil)
				require.NoError(t, err)
				require.NoError(t, idx.Close())
			}

			runtime.GC()
			time.Sleep(100 * time.Millisecond)
			after := runtime.NumGoroutine()

			// The zstd encoder pool may keep a few workers alive.
			assert.LessOrEqual(t, after-before, 4, "goroutines before=%d after=%d", before, after)
		})
	}
}

// TestReopenAfterClose verifies that an index can be opened again while an
// earlier handle on the same file is still open or already closed.
func TestReopenAfterClose(t *testing.T) {
	c := testutil.NewCache(t)
	c.Add(testutil.ModuleSpec{Name: "A", Identifiers: []string{"Foo"}})
	require.NoError(t, modindex.WriteIndex(context.Background(), c.Dir))

	first, err := modindex.ReadIndex(c.Dir)
	require.NoError(t, err)
	second, err := modindex.ReadIndex(c.Dir)
	require.NoError(t, err)

	require.NoError(t, first.Close())
	ok, err := second.LookupIdentifier("Foo", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Close())
}
