package hashtable

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/modindex/internal/format"
	"github.com/hupe1980/modindex/internal/keys"
)

// Table is a read-only view over an encoded region.
// It never mutates data and is safe for concurrent use.
type Table struct {
	data       []byte
	numBuckets uint32
}

// Open validates the bucket count and directory size. Chains are not read.
func Open(data []byte) (*Table, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: hash table is %d bytes", format.ErrCorrupt, len(data))
	}
	n := binary.LittleEndian.Uint32(data)
	if n == 0 {
		return nil, fmt.Errorf("%w: hash table has no buckets", format.ErrCorrupt)
	}
	if uint64(len(data)) < 4+4*uint64(n) {
		return nil, fmt.Errorf("%w: bucket directory of %d entries exceeds %d bytes", format.ErrCorrupt, n, len(data))
	}
	return &Table{data: data, numBuckets: n}, nil
}

// NumBuckets returns the size of the bucket directory.
func (t *Table) NumBuckets() uint32 {
	return t.numBuckets
}

// Lookup returns the posting list for k. The returned bitmap is a private
// copy; it does not alias the table's backing memory.
func (t *Table) Lookup(k keys.Key) (*roaring.Bitmap, bool, error) {
	bucket := bucketOf(k, t.numBuckets)
	pos := uint64(binary.LittleEndian.Uint32(t.data[4+4*uint64(bucket):]))
	if pos == 0 {
		return nil, false, nil
	}
	dirEnd := 4 + 4*uint64(t.numBuckets)
	size := uint64(len(t.data))
	if pos < dirEnd || pos >= size {
		return nil, false, t.corrupt(bucket, "chain offset %d out of range", pos)
	}

	for {
		if pos+2 > size {
			return nil, false, t.corrupt(bucket, "truncated key length at %d", pos)
		}
		keyLen := uint64(binary.LittleEndian.Uint16(t.data[pos:]))
		pos += 2
		if keyLen == 0 {
			return nil, false, nil
		}
		if pos+keyLen+4 > size {
			return nil, false, t.corrupt(bucket, "truncated key at %d", pos)
		}
		match := string(t.data[pos:pos+keyLen]) == string(k)
		pos += keyLen
		postLen := uint64(binary.LittleEndian.Uint32(t.data[pos:]))
		pos += 4
		if pos+postLen > size {
			return nil, false, t.corrupt(bucket, "truncated posting list at %d", pos)
		}
		if match {
			rb := roaring.New()
			if err := rb.UnmarshalBinary(t.data[pos : pos+postLen]); err != nil {
				return nil, false, t.corrupt(bucket, "posting list: %v", err)
			}
			return rb, true, nil
		}
		pos += postLen
	}
}

func (t *Table) corrupt(bucket uint32, msg string, args ...any) error {
	return fmt.Errorf("%w: bucket %d: %s", format.ErrCorrupt, bucket, fmt.Sprintf(msg, args...))
}
