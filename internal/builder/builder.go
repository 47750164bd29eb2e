// Package builder derives an index file from a directory of module files.
//
// A build enumerates the directory, reads every module in parallel, drops
// modules that cannot be read or were built against imports that have since
// changed, assigns ordinals in path order and publishes the result with a
// write-to-temp, fsync, rename sequence. A failed build never touches the
// previously published index.
package builder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/modindex/identity"
	"github.com/hupe1980/modindex/internal/format"
	"github.com/hupe1980/modindex/internal/fs"
	"github.com/hupe1980/modindex/internal/hashtable"
	"github.com/hupe1980/modindex/internal/keys"
	"github.com/hupe1980/modindex/internal/resource"
	"github.com/hupe1980/modindex/modulefile"
	"golang.org/x/sync/errgroup"
)

// Config wires a build to its collaborators. Zero fields take defaults.
type Config struct {
	FS          fs.FileSystem
	Identity    identity.Service
	Reader      modulefile.Reader
	Resources   *resource.Controller
	Extension   string
	IndexName   string
	Compression format.Compression
	Logger      *slog.Logger
	Now         func() time.Time
}

func (c Config) withDefaults() Config {
	if c.FS == nil {
		c.FS = fs.Default
	}
	if c.Identity == nil {
		c.Identity = identity.Default
	}
	if c.Reader == nil {
		c.Reader = modulefile.FileReader{}
	}
	if c.Extension == "" {
		c.Extension = ".module"
	}
	if c.IndexName == "" {
		c.IndexName = "modules.idx"
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Skip records a module file left out of the index.
type Skip struct {
	Path   string
	Reason error
}

// ErrOutOfDate is the skip reason for a module built against an import that
// has changed or disappeared.
var ErrOutOfDate = errors.New("module is out of date")

// Result describes a published index.
type Result struct {
	Path    string
	Size    int64
	Stats   format.Stats
	Skipped []Skip
}

type scanned struct {
	id   identity.ModuleFile
	info *modulefile.Info
	skip error
}

// Build indexes the module files in dir and atomically replaces the index
// file there. The caller is responsible for holding the build marker.
func Build(ctx context.Context, dir string, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := cfg.Now()

	dir, err := identity.Normalize(dir)
	if err != nil {
		return nil, err
	}
	paths, err := enumerate(cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("enumerate modules: %w", err)
	}

	mods, err := scan(ctx, cfg, paths)
	if err != nil {
		return nil, err
	}
	pruneStale(cfg, mods)

	res := &Result{Path: filepath.Join(dir, cfg.IndexName)}
	var live []scanned
	for _, m := range mods {
		if m.skip != nil {
			cfg.Logger.DebugContext(ctx, "module skipped", "path", m.id.Path, "reason", m.skip)
			res.Skipped = append(res.Skipped, Skip{Path: m.id.Path, Reason: m.skip})
			continue
		}
		live = append(live, m)
	}

	file, err := assemble(ctx, cfg, dir, live)
	if err != nil {
		return nil, err
	}
	file.Stats.NumSkipped = uint32(len(res.Skipped))
	file.Stats.BuildDuration = cfg.Now().Sub(start)
	file.BuildTime = start

	res.Size, err = publish(cfg, dir, file)
	if err != nil {
		return nil, err
	}
	res.Stats = file.Stats
	return res, nil
}

// enumerate lists module files directly inside dir in sorted order.
func enumerate(cfg Config, dir string) ([]string, error) {
	entries, err := cfg.FS.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), cfg.Extension) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// scan reads all modules concurrently. Per-module failures become skips;
// only cancellation fails the scan.
func scan(ctx context.Context, cfg Config, paths []string) ([]scanned, error) {
	out := make([]scanned, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	limit := cfg.Resources.MaxWorkers()
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i, p := range paths {
		g.Go(func() error {
			if err := cfg.Resources.AcquireWorker(gctx); err != nil {
				return err
			}
			defer cfg.Resources.ReleaseWorker()

			out[i] = scanned{id: identity.ModuleFile{Path: p}}
			id, err := cfg.Identity.Stat(p)
			if err != nil {
				out[i].skip = err
				return nil
			}
			out[i].id = id
			if err := cfg.Resources.AcquireRead(gctx, id.Size); err != nil {
				return err
			}
			info, err := cfg.Reader.ReadModule(gctx, p)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				out[i].skip = err
				return nil
			}
			out[i].info = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// pruneStale marks modules whose recorded import stamps no longer match the
// files on disk.
func pruneStale(cfg Config, mods []scanned) {
	for i := range mods {
		m := &mods[i]
		if m.skip != nil {
			continue
		}
		for _, imp := range m.info.Imports {
			cur, err := cfg.Identity.Stat(imp.Path)
			if err != nil {
				m.skip = fmt.Errorf("%w: import %s: %w", ErrOutOfDate, imp.Path, err)
				break
			}
			if !imp.Matches(cur) {
				m.skip = fmt.Errorf("%w: import %s changed", ErrOutOfDate, cur.Path)
				break
			}
		}
	}
}

// assemble assigns ordinals in path order and fills the module and hash tables.
func assemble(ctx context.Context, cfg Config, dir string, live []scanned) (*format.File, error) {
	file := &format.File{Compression: cfg.Compression, Modules: make([]format.ModuleEntry, len(live))}
	table := hashtable.NewBuilder()

	add := func(m scanned, ord uint32, spelling string, encode func(string) (keys.Key, error)) error {
		k, err := encode(spelling)
		if err != nil {
			cfg.Logger.DebugContext(ctx, "name not indexed", "path", m.id.Path, "error", err)
			return nil
		}
		return table.Add(k, ord)
	}

	for i, m := range live {
		ord := uint32(i)
		entry := format.ModuleEntry{File: format.StampOf(dir, m.id)}
		for _, imp := range m.info.Imports {
			dep, err := identity.Normalize(imp.Path)
			if err != nil {
				return nil, err
			}
			entry.Dependencies = append(entry.Dependencies, format.StampOf(dir, identity.ModuleFile{
				Path: dep, Size: imp.Size, ModTime: imp.ModTime,
			}))
		}
		file.Modules[i] = entry

		for _, s := range m.info.Identifiers {
			if err := add(m, ord, s, keys.Identifier); err != nil {
				return nil, err
			}
		}
		for _, s := range m.info.Selectors {
			if err := add(m, ord, s, keys.Selector); err != nil {
				return nil, err
			}
		}
	}

	encoded, st, err := table.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode hash table: %w", err)
	}
	file.HashTable = encoded
	file.Stats = format.Stats{
		NumModules:      uint32(len(live)),
		NumIdentifiers:  st.NumIdentifiers,
		NumSelectors:    st.NumSelectors,
		NumPostings:     st.NumPostings,
		NumBuckets:      st.NumBuckets,
		NonEmptyBuckets: st.NonEmptyBuckets,
		MaxChainLength:  st.MaxChainLength,
	}
	return file, nil
}

// publish writes file to a uniquely named temporary file and renames it over
// the index. On failure the temporary file is removed and the existing index
// is left as it was.
func publish(cfg Config, dir string, file *format.File) (size int64, err error) {
	final := filepath.Join(dir, cfg.IndexName)
	tmp := filepath.Join(dir, cfg.IndexName+"-"+uuid.NewString()+".tmp")

	f, err := cfg.FS.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create temp index: %w", err)
	}
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				_ = f.Close()
			}
			_ = cfg.FS.Remove(tmp)
		}
	}()

	w := bufio.NewWriterSize(f, 64<<10)
	if size, err = format.Write(w, file); err != nil {
		return 0, fmt.Errorf("write index: %w", err)
	}
	if err = w.Flush(); err != nil {
		return 0, fmt.Errorf("write index: %w", err)
	}
	if err = f.Sync(); err != nil {
		return 0, fmt.Errorf("sync index: %w", err)
	}
	closed = true
	if err = f.Close(); err != nil {
		return 0, fmt.Errorf("close index: %w", err)
	}
	if err = cfg.FS.Rename(tmp, final); err != nil {
		return 0, fmt.Errorf("publish index: %w", err)
	}
	if err := cfg.FS.SyncDir(dir); err != nil {
		// The rename has happened; the new index is visible even if the
		// directory entry is not yet durable.
		cfg.Logger.Warn("directory sync failed", "dir", dir, "error", err)
	}
	return size, nil
}
