package modindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/modindex/identity"
	"github.com/hupe1980/modindex/internal/format"
	"github.com/hupe1980/modindex/internal/hashtable"
	"github.com/hupe1980/modindex/internal/lock"
	"github.com/hupe1980/modindex/internal/mmap"
	"github.com/hupe1980/modindex/internal/registry"
)

// ReadIndex opens the index of a module cache directory.
//
// It never blocks on a concurrent writer. The error classifies why no index
// is available; see OutcomeOf:
//
//   - ErrBuilding: another writer holds the build marker
//   - ErrNotFound: the directory has no index yet
//   - ErrIO (possibly ErrFormat or ErrCorrupt): the index is unreadable
//
// In every error case the returned *Index is nil. Callers fall back to
// scanning module files directly.
func ReadIndex(dir string, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)
	start := o.now()
	idx, err := readIndex(dir, o)
	o.metricsCollector.RecordOpen(OutcomeOf(err), o.now().Sub(start))

	tombstoned := 0
	if idx != nil {
		tombstoned = idx.tombstoned
	}
	o.logger.LogOpen(context.Background(), dir, tombstoned, err)
	return idx, err
}

func readIndex(dir string, o options) (*Index, error) {
	dir, err := identity.Normalize(dir)
	if err != nil {
		return nil, &IOError{Op: "open", Path: dir, Err: err}
	}
	path := filepath.Join(dir, IndexFileName)
	lockPath := filepath.Join(dir, LockFileName)

	state, owner, err := lock.Probe(lockPath, lock.Options{StaleAfter: o.staleLockAfter, Now: o.now})
	if err != nil {
		return nil, &IOError{Op: "probe", Path: lockPath, Err: err}
	}
	switch state {
	case lock.Held:
		return nil, buildingError(lockPath, owner)
	case lock.Orphaned:
		o.logger.Warn("ignoring abandoned build marker", "path", lockPath, "owner", owner.String())
	}

	m, err := mmap.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	_ = m.Advise(mmap.AccessRandom)

	idx, err := newIndex(dir, path, m, o)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return idx, nil
}

func newIndex(dir, path string, m *mmap.Mapping, o options) (*Index, error) {
	parsed, err := format.Parse(m.Bytes(), format.ParseOptions{VerifyHashTable: o.verifyChecksums})
	if err != nil {
		return nil, translateError("parse", path, err)
	}
	table, err := hashtable.Open(parsed.HashTable)
	if err != nil {
		return nil, translateError("parse", path, err)
	}

	slots := make([]registry.Slot, len(parsed.Modules))
	for i, e := range parsed.Modules {
		if e.Removed {
			slots[i] = registry.Removed{}
			continue
		}
		rec := registry.Record{File: e.File.Identity(dir)}
		for _, dep := range e.Dependencies {
			rec.Dependencies = append(rec.Dependencies, dep.Identity(dir))
		}
		slots[i] = registry.Present{Record: rec}
	}
	reg := registry.New(slots)

	idx := &Index{
		dir:      dir,
		path:     path,
		size:     int64(m.Len()),
		header:   parsed.Header,
		stats:    parsed.Stats,
		registry: reg,
		table:    table,
		opts:     o,
		mapping:  m,
	}
	if o.validateOnOpen {
		idx.tombstoned = tombstoneChanged(reg, o)
	}
	return idx, nil
}

// tombstoneChanged removes modules whose files changed or vanished since the
// build. It runs before the registry is shared.
func tombstoneChanged(reg *registry.Registry, o options) int {
	n := 0
	for ord := range uint32(reg.Len()) {
		recorded, ok := reg.Identity(ord)
		if !ok {
			continue
		}
		current, err := o.identity.Stat(recorded.Path)
		if err == nil && identity.Same(current, recorded) {
			continue
		}
		reg.Tombstone(ord)
		n++
		o.logger.Debug("module changed since index build", "path", recorded.Path, "error", err)
	}
	return n
}
