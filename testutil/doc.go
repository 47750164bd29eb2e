// Package testutil provides helpers for tests that need a module cache.
//
// This package is intended for use in tests and benchmarks only.
//
//	c := testutil.NewCache(t)
//	a := c.Add(testutil.ModuleSpec{Name: "A", Identifiers: []string{"Foo"}})
//	b := c.Add(testutil.ModuleSpec{Name: "B", Identifiers: []string{"Bar"}, Imports: []string{"A"}})
//
// Random caches for property tests:
//
//	rng := testutil.NewRNG(4711)
//	c.Add(rng.Modules(50, 200, 8)...)
package testutil
