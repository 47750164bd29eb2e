package hashtable

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/modindex/internal/hash"
	"github.com/hupe1980/modindex/internal/keys"
)

// Stats describes an encoded table.
type Stats struct {
	NumIdentifiers  uint32
	NumSelectors    uint32
	NumPostings     uint64
	NumBuckets      uint32
	NonEmptyBuckets uint32
	MaxChainLength  uint32
}

// Builder accumulates posting lists in memory.
// It is not safe for concurrent use.
type Builder struct {
	postings map[keys.Key]*roaring.Bitmap
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{postings: make(map[keys.Key]*roaring.Bitmap)}
}

// Add records that the module with the given ordinal binds k.
// Adding the same pair twice is a no-op.
func (b *Builder) Add(k keys.Key, ordinal uint32) error {
	if len(k) == 0 || len(k) > keys.MaxLen {
		return fmt.Errorf("%w: key length %d", keys.ErrInvalid, len(k))
	}
	rb, ok := b.postings[k]
	if !ok {
		rb = roaring.New()
		b.postings[k] = rb
	}
	rb.Add(ordinal)
	return nil
}

// Len returns the number of distinct keys.
func (b *Builder) Len() int {
	return len(b.postings)
}

// bucketCount returns the smallest power of two >= n (at least 1), which
// keeps the load factor at or below one entry per bucket.
func bucketCount(n int) uint32 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len32(uint32(n-1))
}

func bucketOf(k keys.Key, numBuckets uint32) uint32 {
	return uint32(hash.KeyString(string(k)) % uint64(numBuckets))
}

// Encode serializes the table.
func (b *Builder) Encode() ([]byte, Stats, error) {
	var st Stats
	if len(b.postings) > math.MaxUint32/4 {
		return nil, st, fmt.Errorf("too many keys: %d", len(b.postings))
	}
	numBuckets := bucketCount(len(b.postings))
	st.NumBuckets = numBuckets

	chains := make([][]keys.Key, numBuckets)
	for k := range b.postings {
		i := bucketOf(k, numBuckets)
		chains[i] = append(chains[i], k)
		if k.IsSelector() {
			st.NumSelectors++
		} else {
			st.NumIdentifiers++
		}
	}

	dirSize := 4 + 4*int(numBuckets)
	buf := make([]byte, dirSize, dirSize+len(b.postings)*32)
	binary.LittleEndian.PutUint32(buf[0:], numBuckets)

	for i, chain := range chains {
		if len(chain) == 0 {
			continue
		}
		slices.Sort(chain)
		if uint64(len(buf)) > math.MaxUint32 {
			return nil, st, fmt.Errorf("hash table exceeds 4 GiB")
		}
		binary.LittleEndian.PutUint32(buf[4+4*i:], uint32(len(buf)))
		st.NonEmptyBuckets++
		st.MaxChainLength = max(st.MaxChainLength, uint32(len(chain)))

		for _, k := range chain {
			rb := b.postings[k]
			rb.RunOptimize()
			postings, err := rb.ToBytes()
			if err != nil {
				return nil, st, fmt.Errorf("encode postings for %s: %w", k, err)
			}
			st.NumPostings += rb.GetCardinality()

			buf = binary.LittleEndian.AppendUint16(buf, uint16(len(k)))
			buf = append(buf, k...)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(postings)))
			buf = append(buf, postings...)
		}
		buf = binary.LittleEndian.AppendUint16(buf, 0)
	}
	if uint64(len(buf)) > math.MaxUint32 {
		return nil, st, fmt.Errorf("hash table exceeds 4 GiB")
	}
	return buf, st, nil
}
