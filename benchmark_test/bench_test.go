package benchmark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/modindex"
	"github.com/hupe1980/modindex/testutil"
)

var sizes = []int{100, 1000}

func populate(b *testing.B, n int) *testutil.Cache {
	b.Helper()
	c := testutil.NewCache(b)
	c.Add(testutil.NewRNG(1).Modules(n, n*4, 32)...)
	return c
}

func BenchmarkWriteIndex(b *testing.B) {
	for _, n := range sizes {
		for _, comp := range []modindex.Compression{modindex.CompressionNone, modindex.CompressionZSTD} {
			b.Run(fmt.Sprintf("modules=%d/%s", n, comp), func(b *testing.B) {
				c := populate(b, n)
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := modindex.WriteIndex(context.Background(), c.Dir, modindex.WithCompression(comp)); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkReadIndex(b *testing.B) {
	for _, n := range sizes {
		for _, validate := range []bool{false, true} {
			b.Run(fmt.Sprintf("modules=%d/validate=%t", n, validate), func(b *testing.B) {
				c := populate(b, n)
				if err := modindex.WriteIndex(context.Background(), c.Dir); err != nil {
					b.Fatal(err)
				}
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					idx, err := modindex.ReadIndex(c.Dir, modindex.WithValidateOnOpen(validate))
					if err != nil {
						b.Fatal(err)
					}
					_ = idx.Close()
				}
			})
		}
	}
}

func BenchmarkLookupIdentifier(b *testing.B) {
	for _, n := range sizes {
		b.Run(fmt.Sprintf("modules=%d", n), func(b *testing.B) {
			c := populate(b, n)
			if err := modindex.WriteIndex(context.Background(), c.Dir); err != nil {
				b.Fatal(err)
			}
			idx, err := modindex.ReadIndex(c.Dir)
			if err != nil {
				b.Fatal(err)
			}
			defer idx.Close()

			names := make([]string, 1024)
			rng := testutil.NewRNG(2)
			for i := range names {
				// Roughly half of the names fall outside the vocabulary.
				names[i] = fmt.Sprintf("ident%d", rng.Intn(n*8))
			}

			b.ReportAllocs()
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				hits := modindex.HitSet{}
				i := 0
				for pb.Next() {
					clear(hits)
					if _, err := idx.LookupIdentifier(names[i%len(names)], hits); err != nil {
						b.Error(err)
						return
					}
					i++
				}
			})
		})
	}
}
