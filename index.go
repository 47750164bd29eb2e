package modindex

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/modindex/identity"
	"github.com/hupe1980/modindex/internal/format"
	"github.com/hupe1980/modindex/internal/hashtable"
	"github.com/hupe1980/modindex/internal/keys"
	"github.com/hupe1980/modindex/internal/mmap"
	"github.com/hupe1980/modindex/internal/registry"
)

const (
	// IndexFileName is the name of the index file inside a module cache directory.
	IndexFileName = "modules.idx"
	// LockFileName is the build marker present while an index is being written.
	LockFileName = IndexFileName + ".lock"
	// ModuleExtension is the default extension of module files.
	ModuleExtension = ".module"
)

// HitSet collects the module files a lookup found.
type HitSet map[identity.ModuleFile]struct{}

// Has reports whether m is in the set.
func (h HitSet) Has(m identity.ModuleFile) bool {
	_, ok := h[m]
	return ok
}

// Modules returns the members of the set in unspecified order.
func (h HitSet) Modules() []identity.ModuleFile {
	out := make([]identity.ModuleFile, 0, len(h))
	for m := range h {
		out = append(out, m)
	}
	return out
}

// Index is an opened module index. It is safe for concurrent use.
//
// An Index exclusively owns the mapping of its file. Module metadata is
// decoded when the index is opened; the identifier table is read lazily,
// one chain per lookup.
type Index struct {
	dir      string
	path     string
	size     int64
	header   *format.Header
	stats    format.Stats
	registry *registry.Registry
	table    *hashtable.Table
	opts     options

	// tombstoned counts modules invalidated when the index was opened.
	tombstoned int

	lookups atomic.Uint64
	hits    atomic.Uint64

	// mu guards mapping against Close while a lookup walks the table.
	mu      sync.RWMutex
	mapping *mmap.Mapping
}

// Dir returns the absolute module cache directory.
func (idx *Index) Dir() string { return idx.dir }

// BuildTime returns when the index was built.
func (idx *Index) BuildTime() time.Time { return idx.header.BuildTime }

// KnownModules returns the module files in the index that were unchanged
// when it was opened. The order is unspecified. It remains available after
// Close.
func (idx *Index) KnownModules() []identity.ModuleFile {
	return idx.registry.Known()
}

// ModuleDependencies returns the modules m directly imports, as recorded
// when the index was built. An identity the index does not know yields nil;
// that means no data is available, not that m has no imports.
func (idx *Index) ModuleDependencies(m identity.ModuleFile) []identity.ModuleFile {
	return idx.registry.Dependencies(m)
}

// ModuleOrdinal returns the dense ordinal assigned to m by the build.
func (idx *Index) ModuleOrdinal(m identity.ModuleFile) (uint32, bool) {
	return idx.registry.Ordinal(m)
}

// LookupIdentifier reports whether any indexed module binds name at
// namespace scope, and adds those modules to hits.
//
// A hit whose module was tombstoned when the index was opened still returns
// true but is not added to hits. On a miss hits is left unmodified. hits may
// be nil when only existence matters. A non-nil error means the table is
// damaged; the answer is unknown, not negative.
func (idx *Index) LookupIdentifier(name string, hits HitSet) (bool, error) {
	k, err := keys.Identifier(name)
	if err != nil {
		return idx.miss(false)
	}
	return idx.lookup(k, hits)
}

// LookupSelector is LookupIdentifier for method selectors. Selectors and
// identifiers with the same spelling are distinct.
func (idx *Index) LookupSelector(selector string, hits HitSet) (bool, error) {
	k, err := keys.Selector(selector)
	if err != nil {
		return idx.miss(true)
	}
	return idx.lookup(k, hits)
}

// miss accounts for a name that cannot be encoded and so cannot be indexed.
func (idx *Index) miss(selector bool) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.mapping == nil {
		return false, ErrClosed
	}
	idx.lookups.Add(1)
	idx.opts.metricsCollector.RecordLookup(selector, false, nil)
	return false, nil
}

func (idx *Index) lookup(k keys.Key, hits HitSet) (found bool, err error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.mapping == nil {
		return false, ErrClosed
	}
	idx.lookups.Add(1)
	defer func() { idx.opts.metricsCollector.RecordLookup(k.IsSelector(), found, err) }()

	postings, ok, err := idx.table.Lookup(k)
	if err != nil {
		return false, translateError("lookup", idx.path, err)
	}
	if !ok {
		return false, nil
	}

	// Validate every ordinal before touching hits so a damaged posting list
	// leaves the caller's set unmodified.
	var live []identity.ModuleFile
	it := postings.Iterator()
	for it.HasNext() {
		ord := it.Next()
		slot, exists := idx.registry.Slot(ord)
		if !exists {
			return false, translateError("lookup", idx.path,
				&ordinalError{ordinal: ord, key: k, modules: idx.registry.Len()})
		}
		if p, present := slot.(registry.Present); present {
			live = append(live, p.Record.File)
		}
	}
	idx.hits.Add(1)
	if hits != nil {
		for _, m := range live {
			hits[m] = struct{}{}
		}
	}
	return true, nil
}

// Close releases the index file mapping. It is idempotent. Lookups after
// Close return ErrClosed.
func (idx *Index) Close() error {
	if idx == nil {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.mapping == nil {
		return nil
	}
	err := idx.mapping.Close()
	idx.mapping = nil
	if err != nil {
		return &IOError{Op: "close", Path: idx.path, Err: err}
	}
	return nil
}
