package filter

import "fmt"

type shuffle struct{}

// Shuffle groups the n-th byte of every element together, which makes
// arrays of similar numbers far more compressible. Place it before a
// compressor.
//
// Example (3 elements of 4 bytes):
//
//	a0 a1 a2 a3 b0 b1 b2 b3 c0 c1 c2 c3
//	a0 b0 c0 a1 b1 c1 a2 b2 c2 a3 b3 c3
func Shuffle() Filter {
	return shuffle{}
}

func (shuffle) Name() string {
	return "shuffle"
}

func (shuffle) Apply(data []byte, elementSize int) ([]byte, error) {
	n, err := shuffleElements(data, elementSize)
	if err != nil || n == 0 {
		return data, err
	}
	out := make([]byte, len(data))
	for b := 0; b < elementSize; b++ {
		for e := 0; e < n; e++ {
			out[b*n+e] = data[e*elementSize+b]
		}
	}
	return out, nil
}

func (shuffle) Remove(data []byte, elementSize int) ([]byte, error) {
	n, err := shuffleElements(data, elementSize)
	if err != nil || n == 0 {
		return data, err
	}
	out := make([]byte, len(data))
	for b := 0; b < elementSize; b++ {
		for e := 0; e < n; e++ {
			out[e*elementSize+b] = data[b*n+e]
		}
	}
	return out, nil
}

// shuffleElements returns the element count, or 0 when there is nothing to
// reorder.
func shuffleElements(data []byte, elementSize int) (int, error) {
	if elementSize <= 0 {
		return 0, fmt.Errorf("element size must be positive, got %d", elementSize)
	}
	if len(data)%elementSize != 0 {
		return 0, fmt.Errorf("data length %d not multiple of element size %d", len(data), elementSize)
	}
	if elementSize == 1 {
		return 0, nil
	}
	return len(data) / elementSize, nil
}
