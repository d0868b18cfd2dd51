package filter

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrChecksum is returned when a stored blob fails its Fletcher32 check.
var ErrChecksum = errors.New("fletcher32 checksum mismatch")

type fletcher32 struct{}

// Fletcher32 appends a 4-byte little-endian Fletcher-32 checksum and
// verifies it on read. Place it last to protect the stored bytes.
func Fletcher32() Filter {
	return fletcher32{}
}

func (fletcher32) Name() string {
	return "fletcher32"
}

func (fletcher32) Apply(data []byte, _ int) ([]byte, error) {
	out := make([]byte, len(data)+4)
	copy(out, data)
	binary.LittleEndian.PutUint32(out[len(data):], checksum(data))
	return out, nil
}

func (fletcher32) Remove(data []byte, _ int) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("data too short for fletcher32: %d bytes", len(data))
	}
	body := data[:len(data)-4]
	stored := binary.LittleEndian.Uint32(data[len(data)-4:])
	if got := checksum(body); got != stored {
		return nil, fmt.Errorf("%w: stored=%08x, calculated=%08x", ErrChecksum, stored, got)
	}
	return body, nil
}

// checksum computes Fletcher-32 over little-endian 16-bit words; an odd
// trailing byte counts as a word of its own.
func checksum(data []byte) uint32 {
	var sum1, sum2 uint32
	i := 0
	for ; i+1 < len(data); i += 2 {
		sum1 = (sum1 + (uint32(data[i]) | uint32(data[i+1])<<8)) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	if i < len(data) {
		sum1 = (sum1 + uint32(data[i])) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	return sum2<<16 | sum1
}
