package esdm

import "github.com/ESiWACE/esdm-sub000/internal/hypercube"

// Range is a half-open interval [Start, End) of element indices.
type Range = hypercube.Range

// Hypercube is an axis-aligned N-dimensional box of element indices.
type Hypercube = hypercube.Hypercube

// NewHypercube builds a hypercube from one range per dimension.
func NewHypercube(ranges ...Range) Hypercube {
	return hypercube.New(ranges...)
}

// HypercubeFromOffsetSize builds the hypercube [offset, offset+size).
func HypercubeFromOffsetSize(offset, size []int64) Hypercube {
	return hypercube.FromOffsetSize(offset, size)
}
