package modindex

import (
	"context"
	"path/filepath"

	"github.com/hupe1980/modindex/identity"
	"github.com/hupe1980/modindex/internal/builder"
	"github.com/hupe1980/modindex/internal/lock"
	"github.com/hupe1980/modindex/internal/resource"
	"golang.org/x/sync/singleflight"
)

// builds collapses concurrent WriteIndex calls for one directory within a
// process. Across processes the build marker serializes writers.
var builds singleflight.Group

// WriteIndex scans the module files in dir and atomically replaces its index.
//
// If another process is building the index, WriteIndex returns a
// *BuildingError immediately. Concurrent calls for the same directory in one
// process share a single build, and the options of the call that started it.
//
// Module files that cannot be read, or that were built against imports that
// have since changed, are left out of the index rather than failing the build.
// Any other failure leaves the previous index untouched and is reported as
// an *IOError.
func WriteIndex(ctx context.Context, dir string, optFns ...Option) error {
	o := applyOptions(optFns)
	abs, err := identity.Normalize(dir)
	if err != nil {
		return &IOError{Op: "build", Path: dir, Err: err}
	}
	_, err, _ = builds.Do(abs, func() (any, error) {
		return nil, writeIndex(ctx, abs, o)
	})
	return err
}

func writeIndex(ctx context.Context, dir string, o options) (err error) {
	lockPath := filepath.Join(dir, LockFileName)
	lk, err := lock.Acquire(lockPath, lock.Options{StaleAfter: o.staleLockAfter, Now: o.now})
	if err != nil {
		err = translateError("lock", lockPath, err)
		o.logger.LogBuild(ctx, dir, nil, err)
		return err
	}
	defer func() {
		if rerr := lk.Release(); rerr != nil && err == nil {
			err = &IOError{Op: "unlock", Path: lockPath, Err: rerr}
		}
	}()

	start := o.now()
	res, err := builder.Build(ctx, dir, builder.Config{
		FS:       o.fs,
		Identity: o.identity,
		Reader:   o.reader,
		Resources: resource.NewController(resource.Config{
			MaxWorkers:      int64(o.maxWorkers),
			ReadBytesPerSec: o.readBytesPerSec,
		}),
		Extension:   o.moduleExtension,
		IndexName:   IndexFileName,
		Compression: o.compression,
		Logger:      o.logger.Logger,
		Now:         o.now,
	})
	duration := o.now().Sub(start)
	if err != nil {
		err = translateError("build", filepath.Join(dir, IndexFileName), err)
		o.metricsCollector.RecordBuild(0, 0, duration, err)
		o.logger.LogBuild(ctx, dir, nil, err)
		return err
	}

	stats := newBuildStats(res.Stats)
	o.metricsCollector.RecordBuild(stats.Modules, stats.Skipped, duration, nil)
	o.logger.LogBuild(ctx, dir, &stats, nil)
	return nil
}
