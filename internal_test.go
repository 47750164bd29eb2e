package modindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/modindex/internal/format"
	"github.com/hupe1980/modindex/internal/fs"
	"github.com/hupe1980/modindex/internal/lock"
	"github.com/hupe1980/modindex/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedWriteKeepsPreviousIndex(t *testing.T) {
	tests := []struct {
		name   string
		inject func(*fs.FaultyFS)
	}{
		{"torn write", func(f *fs.FaultyFS) { f.AddRule(".tmp", fs.Fault{FailAfterBytes: 100}) }},
		{"sync", func(f *fs.FaultyFS) { f.AddRule(".tmp", fs.Fault{FailAfterBytes: -1, FailOnSync: true}) }},
		{"close", func(f *fs.FaultyFS) { f.AddRule(".tmp", fs.Fault{FailAfterBytes: -1, FailOnClose: true}) }},
		{"rename", func(f *fs.FaultyFS) { f.AddRule(".tmp", fs.Fault{FailAfterBytes: -1, FailOnRename: true}) }},
		{"read dir", func(f *fs.FaultyFS) { f.FailReadDir(fs.ErrInjected) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testutil.NewCache(t)
			a := c.Add(testutil.ModuleSpec{Name: "A", Identifiers: []string{"Foo"}})
			require.NoError(t, WriteIndex(context.Background(), c.Dir))
			c.Add(testutil.ModuleSpec{Name: "B", Identifiers: []string{"Bar"}})

			faulty := fs.NewFaultyFS(nil)
			tt.inject(faulty)
			err := WriteIndex(context.Background(), c.Dir, withFileSystem(faulty))
			require.ErrorIs(t, err, ErrIO)
			assert.ErrorIs(t, err, fs.ErrInjected)
			assert.Zero(t, faulty.Renames())

			state, _, err := lock.Probe(filepath.Join(c.Dir, LockFileName), lock.Options{})
			require.NoError(t, err)
			assert.Equal(t, lock.Absent, state)

			entries, err := os.ReadDir(c.Dir)
			require.NoError(t, err)
			for _, e := range entries {
				assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
			}

			idx, err := ReadIndex(c.Dir)
			require.NoError(t, err)
			defer idx.Close()
			assert.Len(t, idx.KnownModules(), 1)
			assert.Equal(t, a, idx.KnownModules()[0])
		})
	}
}

func TestSyncDirFailureStillPublishes(t *testing.T) {
	c := testutil.NewCache(t)
	c.Add(testutil.ModuleSpec{Name: "A", Identifiers: []string{"Foo"}})

	faulty := fs.NewFaultyFS(nil)
	faulty.FailSyncDir(fs.ErrInjected)
	require.NoError(t, WriteIndex(context.Background(), c.Dir, withFileSystem(faulty)))
	assert.Equal(t, 1, faulty.Renames())

	idx, err := ReadIndex(c.Dir)
	require.NoError(t, err)
	require.NoError(t, idx.Close())
}

func TestBuildTimeUsesClock(t *testing.T) {
	c := testutil.NewCache(t)
	c.Add(testutil.ModuleSpec{Name: "A", Identifiers: []string{"Foo"}})

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, WriteIndex(context.Background(), c.Dir, withClock(func() time.Time { return at })))

	idx, err := ReadIndex(c.Dir)
	require.NoError(t, err)
	defer idx.Close()
	assert.True(t, at.Equal(idx.BuildTime()))
}

func TestWriteStats(t *testing.T) {
	c := testutil.NewCache(t)
	c.Add(testutil.ModuleSpec{Name: "A", Identifiers: []string{"Foo", "Bar"}, Selectors: []string{"run"}})
	c.Add(testutil.ModuleSpec{Name: "B", Identifiers: []string{"Foo"}})
	require.NoError(t, WriteIndex(context.Background(), c.Dir))

	idx, err := ReadIndex(c.Dir)
	require.NoError(t, err)
	defer idx.Close()

	for _, name := range []string{"Foo", "Bar", "Baz", "Qux"} {
		_, err := idx.LookupIdentifier(name, nil)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, idx.WriteStats(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "*** Global Module Index Statistics:\n"))
	assert.Contains(t, out, "Modules: 2 indexed, 0 changed since build, 0 skipped at build")
	assert.Contains(t, out, "Keys: 2 identifiers, 1 selectors, 4 postings")
	assert.Contains(t, out, "Buckets: 4 (")
	assert.Contains(t, out, "Number of identifier lookups: 4\n")
	assert.Contains(t, out, "Number of identifier lookup hits: 2 (50.0%)\n")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteStatsPropagatesWriteError(t *testing.T) {
	c := testutil.NewCache(t)
	c.Add(testutil.ModuleSpec{Name: "A", Identifiers: []string{"Foo"}})
	require.NoError(t, WriteIndex(context.Background(), c.Dir))
	idx, err := ReadIndex(c.Dir)
	require.NoError(t, err)
	defer idx.Close()

	assert.EqualError(t, idx.WriteStats(failingWriter{}), "disk full")
}

func TestTranslateError(t *testing.T) {
	held := &lock.HeldError{Path: "/c/modules.idx.lock", Owner: lock.Owner{PID: 42, Host: "h"}}
	tests := []struct {
		name    string
		err     error
		is      []error
		outcome Outcome
	}{
		{"canceled", context.Canceled, []error{context.Canceled}, OutcomeIOError},
		{"held", held, []error{ErrBuilding}, OutcomeBuilding},
		{"magic", fmt.Errorf("x: %w", format.ErrBadMagic), []error{ErrIO, ErrFormat, format.ErrBadMagic}, OutcomeIOError},
		{"version", format.ErrUnsupportedVersion, []error{ErrIO, ErrFormat}, OutcomeIOError},
		{"corrupt", format.ErrCorrupt, []error{ErrIO, ErrCorrupt}, OutcomeIOError},
		{"other", os.ErrPermission, []error{ErrIO, os.ErrPermission}, OutcomeIOError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError("open", "/c/modules.idx", tt.err)
			for _, target := range tt.is {
				assert.ErrorIs(t, err, target)
			}
			assert.Equal(t, tt.outcome, OutcomeOf(err))
		})
	}

	assert.NoError(t, translateError("open", "x", nil))
	assert.Equal(t, OutcomeReady, OutcomeOf(nil))

	var be *BuildingError
	require.ErrorAs(t, translateError("lock", "/c/modules.idx.lock", held), &be)
	assert.Equal(t, 42, be.Owner.PID)
	assert.NotErrorIs(t, be, ErrIO)
}

func TestLogsBuildAndOpen(t *testing.T) {
	c := testutil.NewCache(t)
	c.Add(testutil.ModuleSpec{Name: "A", Identifiers: []string{"Foo"}})

	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	require.NoError(t, WriteIndex(context.Background(), c.Dir, WithLogger(logger)))
	idx, err := ReadIndex(c.Dir, WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	out := buf.String()
	assert.Contains(t, out, `msg="index built"`)
	assert.Contains(t, out, "modules=1")
	assert.Contains(t, out, `msg="index opened"`)
}
