package modindex

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/modindex/internal/format"
)

// LookupStats are the query counters of an open Index.
// NumIdentifierLookups >= NumIdentifierLookupHits always holds.
type LookupStats struct {
	NumIdentifierLookups    uint64
	NumIdentifierLookupHits uint64
}

// BuildStats are the counts recorded when an index was built.
type BuildStats struct {
	Modules         int
	Skipped         int
	Identifiers     int
	Selectors       int
	Postings        uint64
	Buckets         int
	NonEmptyBuckets int
	MaxChainLength  int
	Duration        time.Duration
}

func newBuildStats(s format.Stats) BuildStats {
	return BuildStats{
		Modules:         int(s.NumModules),
		Skipped:         int(s.NumSkipped),
		Identifiers:     int(s.NumIdentifiers),
		Selectors:       int(s.NumSelectors),
		Postings:        s.NumPostings,
		Buckets:         int(s.NumBuckets),
		NonEmptyBuckets: int(s.NonEmptyBuckets),
		MaxChainLength:  int(s.MaxChainLength),
		Duration:        s.BuildDuration,
	}
}

// LookupStats returns a snapshot of the lookup counters.
func (idx *Index) LookupStats() LookupStats {
	// Hits are loaded first: lookups is incremented before hits, so this
	// order keeps the snapshot consistent.
	hits := idx.hits.Load()
	return LookupStats{
		NumIdentifierLookupHits: hits,
		NumIdentifierLookups:    idx.lookups.Load(),
	}
}

// BuildStats returns the statistics block written by the build.
func (idx *Index) BuildStats() BuildStats {
	return newBuildStats(idx.stats)
}

// PrintStats writes a diagnostic summary to standard error.
func (idx *Index) PrintStats() {
	_ = idx.WriteStats(os.Stderr)
}

// WriteStats writes a diagnostic summary of the index and its lookup
// counters to w.
func (idx *Index) WriteStats(w io.Writer) error {
	ls := idx.LookupStats()
	bs := idx.BuildStats()

	ratio := 0.0
	if ls.NumIdentifierLookups > 0 {
		ratio = float64(ls.NumIdentifierLookupHits) / float64(ls.NumIdentifierLookups)
	}
	loadFactor := 0.0
	if bs.Buckets > 0 {
		loadFactor = float64(bs.Identifiers+bs.Selectors) / float64(bs.Buckets)
	}

	ew := &errWriter{w: w}
	ew.printf("*** Global Module Index Statistics:\n")
	ew.printf("  Index: %s (%s, built %s in %s)\n",
		idx.path, humanize.IBytes(uint64(idx.size)), humanize.Time(idx.BuildTime()), bs.Duration)
	ew.printf("  Modules: %s indexed, %s changed since build, %s skipped at build\n",
		humanize.Comma(int64(bs.Modules)), humanize.Comma(int64(idx.tombstoned)), humanize.Comma(int64(bs.Skipped)))
	ew.printf("  Keys: %s identifiers, %s selectors, %s postings\n",
		humanize.Comma(int64(bs.Identifiers)), humanize.Comma(int64(bs.Selectors)), humanize.Comma(int64(bs.Postings)))
	ew.printf("  Buckets: %s (%s used, load %.2f, longest chain %d)\n",
		humanize.Comma(int64(bs.Buckets)), humanize.Comma(int64(bs.NonEmptyBuckets)), loadFactor, bs.MaxChainLength)
	ew.printf("  Number of identifier lookups: %s\n", humanize.Comma(int64(ls.NumIdentifierLookups)))
	ew.printf("  Number of identifier lookup hits: %s (%.1f%%)\n", humanize.Comma(int64(ls.NumIdentifierLookupHits)), 100*ratio)
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(tmpl string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, tmpl, args...)
}
