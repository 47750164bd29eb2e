package format

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encoder appends little-endian fields to a byte slice.
// The first error is sticky; later writes become no-ops.
type Encoder struct {
	buf []byte
	err error
}

// NewEncoder returns an Encoder appending to buf.
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Err returns the first encoding error.
func (e *Encoder) Err() error { return e.err }

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int { return len(e.buf) }

func (e *Encoder) Uint8(v uint8) {
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, v)
}

func (e *Encoder) Uint16(v uint16) {
	if e.err != nil {
		return
	}
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *Encoder) Uint32(v uint32) {
	if e.err != nil {
		return
	}
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) Uint64(v uint64) {
	if e.err != nil {
		return
	}
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) Int64(v int64) { e.Uint64(uint64(v)) }

// Count writes a non-negative length as uint32.
func (e *Encoder) Count(n int) {
	if e.err != nil {
		return
	}
	if n < 0 || n > math.MaxUint32 {
		e.err = fmt.Errorf("count out of range: %d", n)
		return
	}
	e.Uint32(uint32(n))
}

// Str writes a 2-byte length prefix followed by the bytes of s.
func (e *Encoder) Str(s string) {
	if e.err != nil {
		return
	}
	if len(s) > math.MaxUint16 {
		e.err = fmt.Errorf("string too long: %d", len(s))
		return
	}
	e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(len(s)))
	e.buf = append(e.buf, s...)
}

// Raw appends b verbatim.
func (e *Encoder) Raw(b []byte) {
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, b...)
}

// Decoder reads little-endian fields from a byte slice.
// Reading past the end sets a sticky io.ErrUnexpectedEOF.
type Decoder struct {
	buf []byte
	pos int
	err error
}

// NewDecoder returns a Decoder over b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Err returns the first decoding error.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.pos+n > len(d.buf) {
		d.err = io.ErrUnexpectedEOF
		return nil
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *Decoder) Uint8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) Uint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *Decoder) Uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) Uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) Int64() int64 { return int64(d.Uint64()) }

// Count reads a uint32 length and checks that at least n*minElemSize bytes
// remain, so corrupt counts cannot trigger huge allocations.
func (d *Decoder) Count(minElemSize int) int {
	n := int(d.Uint32())
	if d.err != nil {
		return 0
	}
	if minElemSize > 0 && n > d.Remaining()/minElemSize {
		d.err = fmt.Errorf("%w: count %d exceeds remaining %d bytes", ErrCorrupt, n, d.Remaining())
		return 0
	}
	return n
}

func (d *Decoder) Str() string {
	l := d.Uint16()
	b := d.take(int(l))
	if b == nil {
		return ""
	}
	return string(b)
}

// Raw returns the next n bytes without copying.
func (d *Decoder) Raw(n int) []byte {
	return d.take(n)
}
