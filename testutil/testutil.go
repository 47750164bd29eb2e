package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/modindex/identity"
	"github.com/hupe1980/modindex/modulefile"
	"github.com/stretchr/testify/require"
)

// ModuleSpec describes a module to write into a Cache.
type ModuleSpec struct {
	Name        string
	Identifiers []string
	Selectors   []string
	// Imports names modules previously added to the same cache.
	Imports []string
}

// Cache is a module cache directory populated by a test.
type Cache struct {
	Dir string

	t     testing.TB
	mu    sync.Mutex
	specs map[string]ModuleSpec
}

// NewCache creates an empty cache in a temporary directory.
func NewCache(t testing.TB) *Cache {
	t.Helper()
	return &Cache{Dir: t.TempDir(), t: t, specs: make(map[string]ModuleSpec)}
}

// Path returns the file path of the named module.
func (c *Cache) Path(name string) string {
	return filepath.Join(c.Dir, name+".module")
}

// Add writes each module and returns the identity of the last one.
// Imports record the current stamps of the imported modules.
func (c *Cache) Add(specs ...ModuleSpec) identity.ModuleFile {
	c.t.Helper()
	var last identity.ModuleFile
	for _, s := range specs {
		c.write(s)
		last = c.Identity(s.Name)
	}
	return last
}

func (c *Cache) write(s ModuleSpec) {
	c.t.Helper()
	info := &modulefile.Info{Name: s.Name, Identifiers: s.Identifiers, Selectors: s.Selectors}
	for _, imp := range s.Imports {
		info.Imports = append(info.Imports, modulefile.ImportOf(c.Identity(imp)))
	}
	require.NoError(c.t, modulefile.WriteFile(c.Path(s.Name), info))

	c.mu.Lock()
	c.specs[s.Name] = s
	c.mu.Unlock()
}

// Identity stats the named module.
func (c *Cache) Identity(name string) identity.ModuleFile {
	c.t.Helper()
	id, err := identity.Default.Stat(c.Path(name))
	require.NoError(c.t, err)
	return id
}

// Rewrite writes the named module again with a later modification time and
// returns its new identity. Modules importing it become out of date.
func (c *Cache) Rewrite(name string) identity.ModuleFile {
	c.t.Helper()
	old := c.Identity(name)

	c.mu.Lock()
	s, ok := c.specs[name]
	c.mu.Unlock()
	require.True(c.t, ok, "unknown module %s", name)

	c.write(s)
	// Step past coarse filesystem timestamp granularity.
	mt := old.ModTimeTime().Add(2 * time.Second)
	require.NoError(c.t, os.Chtimes(c.Path(name), mt, mt))
	return c.Identity(name)
}

// Remove deletes the named module.
func (c *Cache) Remove(name string) {
	c.t.Helper()
	require.NoError(c.t, os.Remove(c.Path(name)))
	c.mu.Lock()
	delete(c.specs, name)
	c.mu.Unlock()
}

// Specs returns the modules currently in the cache, by name.
func (c *Cache) Specs() map[string]ModuleSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ModuleSpec, len(c.specs))
	for k, v := range c.specs {
		out[k] = v
	}
	return out
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Modules generates n module specs drawing names from a vocabulary of vocab
// identifiers and vocab selectors. Each module exports up to perModule of
// each and imports up to two earlier modules, so specs can be added in order.
func (r *RNG) Modules(n, vocab, perModule int) []ModuleSpec {
	r.mu.Lock()
	defer r.mu.Unlock()

	specs := make([]ModuleSpec, n)
	for i := range specs {
		s := ModuleSpec{Name: fmt.Sprintf("M%03d", i)}
		s.Identifiers = r.pickLocked("ident", vocab, perModule)
		s.Selectors = r.pickLocked("sel", vocab, perModule)
		if i > 0 {
			for range r.rand.Intn(3) {
				dep := specs[r.rand.Intn(i)].Name
				if !contains(s.Imports, dep) {
					s.Imports = append(s.Imports, dep)
				}
			}
		}
		specs[i] = s
	}
	return specs
}

func (r *RNG) pickLocked(prefix string, vocab, k int) []string {
	n := 1 + r.rand.Intn(k)
	var out []string
	for range n {
		name := fmt.Sprintf("%s%d", prefix, r.rand.Intn(vocab))
		if !contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Exporters inverts specs: for each identifier (or selector, when selectors
// is true) it returns the names of the modules exporting it.
func Exporters(specs map[string]ModuleSpec, selectors bool) map[string][]string {
	out := make(map[string][]string)
	for name, s := range specs {
		names := s.Identifiers
		if selectors {
			names = s.Selectors
		}
		for _, id := range names {
			out[id] = append(out[id], name)
		}
	}
	return out
}
