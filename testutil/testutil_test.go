package testutil

import (
	"context"
	"testing"

	"github.com/hupe1980/modindex/identity"
	"github.com/hupe1980/modindex/modulefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheAddAndRead(t *testing.T) {
	c := NewCache(t)
	a := c.Add(ModuleSpec{Name: "A", Identifiers: []string{"Foo"}})
	c.Add(ModuleSpec{Name: "B", Identifiers: []string{"Bar"}, Selectors: []string{"run"}, Imports: []string{"A"}})

	info, err := modulefile.FileReader{}.ReadModule(context.Background(), c.Path("B"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bar"}, info.Identifiers)
	assert.Equal(t, []string{"run"}, info.Selectors)
	require.Len(t, info.Imports, 1)
	assert.Equal(t, a.Path, info.Imports[0].Path)
	assert.True(t, info.Imports[0].Matches(a))
}

func TestCacheRewrite(t *testing.T) {
	c := NewCache(t)
	before := c.Add(ModuleSpec{Name: "A", Identifiers: []string{"Foo"}})
	after := c.Rewrite("A")

	assert.True(t, identity.SamePath(before, after))
	assert.False(t, identity.Same(before, after))
}

func TestCacheRemove(t *testing.T) {
	c := NewCache(t)
	c.Add(ModuleSpec{Name: "A"}, ModuleSpec{Name: "B"})
	c.Remove("A")
	assert.Len(t, c.Specs(), 1)
	_, err := identity.Default.Stat(c.Path("A"))
	assert.Error(t, err)
}

func TestRNGModules(t *testing.T) {
	rng := NewRNG(4711)
	assert.Equal(t, int64(4711), rng.Seed())

	specs := rng.Modules(20, 30, 5)
	require.Len(t, specs, 20)
	seen := map[string]bool{}
	for _, s := range specs {
		assert.NotEmpty(t, s.Identifiers)
		assert.LessOrEqual(t, len(s.Identifiers), 5)
		for _, imp := range s.Imports {
			assert.True(t, seen[imp], "import %s of %s must precede it", imp, s.Name)
		}
		seen[s.Name] = true
	}

	again := NewRNG(4711).Modules(20, 30, 5)
	assert.Equal(t, specs, again)
}

func TestExporters(t *testing.T) {
	specs := map[string]ModuleSpec{
		"A": {Name: "A", Identifiers: []string{"Foo"}, Selectors: []string{"run"}},
		"B": {Name: "B", Identifiers: []string{"Foo", "Bar"}},
	}
	idents := Exporters(specs, false)
	assert.ElementsMatch(t, []string{"A", "B"}, idents["Foo"])
	assert.Equal(t, []string{"B"}, idents["Bar"])
	assert.Equal(t, map[string][]string{"run": {"A"}}, Exporters(specs, true))
}
