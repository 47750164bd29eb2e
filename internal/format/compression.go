package format

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how the module table section is stored.
type Compression uint8

const (
	// CompressionNone stores the section verbatim.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast open).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (smaller files for very large caches).
	CompressionZSTD Compression = 2
)

// maxBlockSize bounds the declared uncompressed size of a block so that a
// corrupt header cannot force a huge allocation.
const maxBlockSize = 1 << 30

// blockHeaderSize is [UncompressedSize uint32][CompressedSize uint32].
// CompressedSize == 0 means the payload is stored uncompressed.
const blockHeaderSize = 8

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBlockSize))
}

// compressBlock frames data as a block. If compression does not save at
// least 10%, the block is stored uncompressed.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	if len(data) > maxBlockSize {
		return nil, fmt.Errorf("block too large: %d bytes", len(data))
	}

	var compressed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		compressed = dst[:n]
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockHeaderSize:], compressed)
	return out, nil
}

// decompressBlock reverses compressBlock.
func decompressBlock(block []byte, c Compression) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, fmt.Errorf("%w: block too small for header", ErrCorrupt)
	}
	uncompressedSize := binary.LittleEndian.Uint32(block[0:])
	compressedSize := binary.LittleEndian.Uint32(block[4:])
	if uncompressedSize > maxBlockSize {
		return nil, fmt.Errorf("%w: block size %d exceeds limit", ErrCorrupt, uncompressedSize)
	}

	if compressedSize == 0 {
		if uint64(len(block)) != blockHeaderSize+uint64(uncompressedSize) {
			return nil, fmt.Errorf("%w: stored block length mismatch", ErrCorrupt)
		}
		return block[blockHeaderSize:], nil
	}
	if uint64(len(block)) != blockHeaderSize+uint64(compressedSize) {
		return nil, fmt.Errorf("%w: compressed block length mismatch", ErrCorrupt)
	}

	payload := block[blockHeaderSize:]
	switch c {
	case CompressionLZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		if uint32(len(out)) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: compressed block with compression %s", ErrCorrupt, c)
	}
}
