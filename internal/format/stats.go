package format

import (
	"fmt"
	"time"
)

// Stats are cumulative build-time counts. They are informational only.
type Stats struct {
	NumModules      uint32
	NumSkipped      uint32
	NumIdentifiers  uint32
	NumSelectors    uint32
	NumPostings     uint64
	NumBuckets      uint32
	NonEmptyBuckets uint32
	MaxChainLength  uint32
	BuildDuration   time.Duration
}

const statsSize = 4*4 + 8 + 4*3 + 8

func (s *Stats) encode() []byte {
	e := NewEncoder(make([]byte, 0, statsSize))
	e.Uint32(s.NumModules)
	e.Uint32(s.NumSkipped)
	e.Uint32(s.NumIdentifiers)
	e.Uint32(s.NumSelectors)
	e.Uint64(s.NumPostings)
	e.Uint32(s.NumBuckets)
	e.Uint32(s.NonEmptyBuckets)
	e.Uint32(s.MaxChainLength)
	e.Int64(int64(s.BuildDuration))
	return e.Bytes()
}

func decodeStats(b []byte) (Stats, error) {
	if len(b) != statsSize {
		return Stats{}, fmt.Errorf("%w: stats block is %d bytes, want %d", ErrCorrupt, len(b), statsSize)
	}
	d := NewDecoder(b)
	s := Stats{
		NumModules:      d.Uint32(),
		NumSkipped:      d.Uint32(),
		NumIdentifiers:  d.Uint32(),
		NumSelectors:    d.Uint32(),
		NumPostings:     d.Uint64(),
		NumBuckets:      d.Uint32(),
		NonEmptyBuckets: d.Uint32(),
		MaxChainLength:  d.Uint32(),
		BuildDuration:   time.Duration(d.Int64()),
	}
	return s, d.Err()
}
