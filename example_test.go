package modindex_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/modindex"
	"github.com/hupe1980/modindex/identity"
	"github.com/hupe1980/modindex/modulefile"
)

func exampleCache() string {
	dir, err := os.MkdirTemp("", "modindex-example")
	if err != nil {
		log.Fatal(err)
	}
	a := filepath.Join(dir, "A.module")
	if err := modulefile.WriteFile(a, &modulefile.Info{Name: "A", Identifiers: []string{"Foo"}}); err != nil {
		log.Fatal(err)
	}
	ida, err := identity.Default.Stat(a)
	if err != nil {
		log.Fatal(err)
	}
	b := &modulefile.Info{
		Name:        "B",
		Identifiers: []string{"Bar"},
		Selectors:   []string{"count"},
		Imports:     []modulefile.Import{modulefile.ImportOf(ida)},
	}
	if err := modulefile.WriteFile(filepath.Join(dir, "B.module"), b); err != nil {
		log.Fatal(err)
	}
	return dir
}

// Example demonstrates building an index and resolving an identifier.
func Example() {
	dir := exampleCache()
	defer os.RemoveAll(dir)

	if err := modindex.WriteIndex(context.Background(), dir); err != nil {
		log.Fatal(err)
	}

	idx, err := modindex.ReadIndex(dir)
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	hits := modindex.HitSet{}
	found, err := idx.LookupIdentifier("Foo", hits)
	if err != nil {
		log.Fatal(err)
	}
	for _, m := range hits.Modules() {
		fmt.Println(found, filepath.Base(m.Path))
	}

	found, _ = idx.LookupIdentifier("Baz", nil)
	fmt.Println(found)
	// Output:
	// true A.module
	// false
}

// Example_fallback demonstrates handling the states in which no index is
// available.
func Example_fallback() {
	dir := exampleCache()
	defer os.RemoveAll(dir)

	idx, err := modindex.ReadIndex(dir)
	switch modindex.OutcomeOf(err) {
	case modindex.OutcomeReady:
		defer idx.Close()
		fmt.Println("using index")
	case modindex.OutcomeNotFound, modindex.OutcomeBuilding:
		fmt.Println("scanning modules:", modindex.OutcomeOf(err))
	default:
		fmt.Println("index unreadable, rebuilding")
	}
	// Output: scanning modules: not_found
}

// Example_dependencies demonstrates reading the recorded import graph.
func Example_dependencies() {
	dir := exampleCache()
	defer os.RemoveAll(dir)

	if err := modindex.WriteIndex(context.Background(), dir, modindex.WithCompression(modindex.CompressionZSTD)); err != nil {
		log.Fatal(err)
	}
	idx, err := modindex.ReadIndex(dir)
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	b, err := identity.Default.Stat(filepath.Join(dir, "B.module"))
	if err != nil {
		log.Fatal(err)
	}
	for _, dep := range idx.ModuleDependencies(b) {
		fmt.Println(filepath.Base(dep.Path))
	}

	found, _ := idx.LookupSelector("count", nil)
	fmt.Println(len(idx.KnownModules()), found)
	// Output:
	// A.module
	// 2 true
}
