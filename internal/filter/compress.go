package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressed blobs start with a mode byte so incompressible data can be
// stored as-is.
const (
	modeRaw        byte = 0
	modeCompressed byte = 1
)

// zstd.Encoder and zstd.Decoder are safe for concurrent use and costly to
// build, so they are shared.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("filter: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("filter: zstd decoder initialization failed: " + err.Error())
	}
}

type zstdFilter struct{}

// Zstd compresses blobs with zstd at the default level.
func Zstd() Filter {
	return zstdFilter{}
}

func (zstdFilter) Name() string {
	return "zstd"
}

func (zstdFilter) Apply(data []byte, _ int) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, []byte{modeCompressed})
	if len(compressed) > len(data) {
		return raw(data), nil
	}
	return compressed, nil
}

func (zstdFilter) Remove(data []byte, _ int) ([]byte, error) {
	mode, body, err := splitMode(data)
	if err != nil || mode == modeRaw {
		return body, err
	}
	out, err := zstdDecoder.DecodeAll(body, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

type lz4Filter struct{}

// LZ4 compresses blobs with LZ4 block compression. It trades ratio for
// speed compared to Zstd.
//
// Layout: mode byte, uvarint uncompressed size, block.
func LZ4() Filter {
	return lz4Filter{}
}

func (lz4Filter) Name() string {
	return "lz4"
}

func (lz4Filter) Apply(data []byte, _ int) ([]byte, error) {
	header := make([]byte, 1+binary.MaxVarintLen64)
	header[0] = modeCompressed
	n := 1 + binary.PutUvarint(header[1:], uint64(len(data)))

	out := make([]byte, n+lz4.CompressBlockBound(len(data)))
	copy(out, header[:n])
	written, err := lz4.CompressBlock(data, out[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for incompressible input.
	if written == 0 || n+written > len(data) {
		return raw(data), nil
	}
	return out[:n+written], nil
}

func (lz4Filter) Remove(data []byte, _ int) ([]byte, error) {
	mode, body, err := splitMode(data)
	if err != nil || mode == modeRaw {
		return body, err
	}
	size, n := binary.Uvarint(body)
	if n <= 0 {
		return nil, fmt.Errorf("lz4 decompress: bad size header")
	}
	out := make([]byte, size)
	read, err := lz4.UncompressBlock(body[n:], out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if uint64(read) != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return out, nil
}

func raw(data []byte) []byte {
	out := make([]byte, 1+len(data))
	out[0] = modeRaw
	copy(out[1:], data)
	return out
}

func splitMode(data []byte) (byte, []byte, error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("missing compression mode byte")
	}
	switch data[0] {
	case modeRaw, modeCompressed:
		return data[0], data[1:], nil
	default:
		return 0, nil, fmt.Errorf("unknown compression mode %d", data[0])
	}
}
