// Package binning maps an N-dimensional dataset domain onto a regular grid of
// rectangular bins and chooses bin sizes that keep a bin near a byte budget.
package binning

import (
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/hypercube"
	"github.com/ESiWACE/esdm-sub000/internal/utils"
)

// Coordinator handles regular N-dimensional binning of a dataset domain.
//
// This coordinator manages the mapping between:
// - Domain extent and bin extent
// - Linear bin indices and N-dimensional bin coordinates
// - Regions of the domain and the bins they touch
//
// Key Concepts:
//   - Domain: [offset[i], offset[i]+size[i]) in each dimension
//   - Bin coordinates: indices [dim0, dim1, ..., dimN]
//     where coordinate[i] = (element_index[i] - offset[i]) / binSize[i]
//   - Edge bins: partial bins at the upper domain boundary
//
// Example (2D domain):
//
//	Domain: 25x35 elements
//	Bins: 10x10 elements
//	Result: 3x4 = 12 total bins
//	  - Bin [0,0]: 10x10 (full)
//	  - Bin [0,3]: 10x5 (partial in dim 1)
//	  - Bin [2,0]: 5x10 (partial in dim 0)
//	  - Bin [2,3]: 5x5 (partial in both dims)
type Coordinator struct {
	offset   []int64 // Domain offset [dim0, dim1, ..., dimN]
	size     []int64 // Domain size [dim0, dim1, ..., dimN]
	binSize  []int64 // Bin size [dim0, dim1, ..., dimN]
	binCount []int64 // Number of bins per dimension
	total    int64
}

// NewCoordinator creates coordinator.
//
// Calculates the number of bins needed in each dimension using
// ceiling division: binCount[i] = ceil(size[i] / binSize[i])
//
// Parameters:
//   - offset: Domain start in each dimension
//   - size: Domain size in each dimension
//   - binSize: Bin size in each dimension
//
// Returns:
//   - Coordinator: Ready to use
//   - error: If dimensions mismatch, are not positive, or the bin count overflows
//
// Example:
//
//	// 2D domain: 100x200 elements, bins: 10x20
//	coord, err := NewCoordinator(
//	    []int64{0, 0},
//	    []int64{100, 200},
//	    []int64{10, 20},
//	)
//	// Result: 10x10 = 100 total bins
func NewCoordinator(offset, size, binSize []int64) (*Coordinator, error) {
	if len(size) != len(binSize) || len(size) != len(offset) {
		return nil, fmt.Errorf("dimensions mismatch: offset has %d dims, size has %d dims, bin has %d dims",
			len(offset), len(size), len(binSize))
	}

	if len(size) == 0 {
		return nil, fmt.Errorf("domain must have at least 1 dimension")
	}

	for i, dim := range size {
		if dim <= 0 {
			return nil, fmt.Errorf("domain dimension %d must be positive, got %d", i, dim)
		}
	}

	for i, dim := range binSize {
		if dim <= 0 {
			return nil, fmt.Errorf("bin dimension %d must be positive, got %d", i, dim)
		}
	}

	binCount := make([]int64, len(size))
	for i := range size {
		binCount[i] = utils.CeilDiv(size[i], binSize[i])
	}

	total, err := utils.Product(binCount)
	if err != nil {
		return nil, fmt.Errorf("bin count: %w", err)
	}

	return &Coordinator{
		offset:   clone(offset),
		size:     clone(size),
		binSize:  clone(binSize),
		binCount: binCount,
		total:    total,
	}, nil
}

// Dims returns the number of dimensions.
func (c *Coordinator) Dims() int {
	return len(c.size)
}

// TotalBins returns total bin count.
//
// Example:
//
//	// Domain: 100x200, bins: 10x20
//	// binCount = [10, 10]
//	// total = 10 * 10 = 100
func (c *Coordinator) TotalBins() int64 {
	return c.total
}

// Coordinate converts linear index to N-D coordinate.
//
// Uses row-major layout: the rightmost dimension varies fastest.
//
// Example (2D, 3x4 bins):
//
//	index=0  → [0,0]
//	index=3  → [0,3]
//	index=4  → [1,0]
//	index=11 → [2,3]
func (c *Coordinator) Coordinate(index int64) []int64 {
	coord := make([]int64, len(c.size))
	remaining := index

	for i := len(c.binCount) - 1; i >= 0; i-- {
		coord[i] = remaining % c.binCount[i]
		remaining /= c.binCount[i]
	}

	return coord
}

// LinearIndex converts an N-D coordinate to its row-major linear index.
// It is the inverse of Coordinate.
func (c *Coordinator) LinearIndex(coord []int64) int64 {
	var index int64
	for i := range coord {
		index = index*c.binCount[i] + coord[i]
	}
	return index
}

// BinSizeAt returns actual bin size (may be partial).
//
// Edge bins at the domain boundary may be smaller than
// the nominal bin size.
//
// Example (domain 25x35, bins 10x10):
//
//	[0,0] → [10,10] (full bin)
//	[0,3] → [10,5]  (partial in dim 1)
//	[2,3] → [5,5]   (partial in both)
func (c *Coordinator) BinSizeAt(coord []int64) []int64 {
	size := make([]int64, len(coord))

	for i := range coord {
		start := coord[i] * c.binSize[i]
		end := min(start+c.binSize[i], c.size[i])
		size[i] = end - start
	}

	return size
}

// BinExtent returns the region of the domain covered by the bin at coord.
func (c *Coordinator) BinExtent(coord []int64) hypercube.Hypercube {
	ranges := make([]hypercube.Range, len(coord))
	for i := range coord {
		start := c.offset[i] + coord[i]*c.binSize[i]
		end := min(start+c.binSize[i], c.offset[i]+c.size[i])
		ranges[i] = hypercube.Range{Start: start, End: end}
	}
	return hypercube.New(ranges...)
}

// Domain returns the full domain as a hypercube.
func (c *Coordinator) Domain() hypercube.Hypercube {
	return hypercube.FromOffsetSize(c.offset, c.size)
}

// BinRange returns the inclusive coordinate range [first, last] of bins
// intersecting region. The boolean is false when region misses the domain.
func (c *Coordinator) BinRange(region hypercube.Hypercube) (first, last []int64, ok bool) {
	clipped, ok := hypercube.Intersection(c.Domain(), region)
	if !ok {
		return nil, nil, false
	}
	first = make([]int64, len(c.size))
	last = make([]int64, len(c.size))
	for i := range c.size {
		r := clipped.Range(i)
		first[i] = (r.Start - c.offset[i]) / c.binSize[i]
		last[i] = (r.End - 1 - c.offset[i]) / c.binSize[i]
	}
	return first, last, true
}

// ForEachBin calls fn for every bin intersecting region in row-major order.
// Iteration stops at the first error, which is returned.
func (c *Coordinator) ForEachBin(region hypercube.Hypercube, fn func(index int64, coord []int64) error) error {
	first, last, ok := c.BinRange(region)
	if !ok {
		return nil
	}

	coord := clone(first)
	for {
		if err := fn(c.LinearIndex(coord), clone(coord)); err != nil {
			return err
		}

		// Odometer increment, rightmost dimension fastest.
		dim := len(coord) - 1
		for ; dim >= 0; dim-- {
			if coord[dim] < last[dim] {
				coord[dim]++
				break
			}
			coord[dim] = first[dim]
		}
		if dim < 0 {
			return nil
		}
	}
}

// BinSize returns nominal bin size (read-only copy).
func (c *Coordinator) BinSize() []int64 {
	return clone(c.binSize)
}

// BinCount returns number of bins per dimension (read-only copy).
func (c *Coordinator) BinCount() []int64 {
	return clone(c.binCount)
}

func clone(values []int64) []int64 {
	out := make([]int64, len(values))
	copy(out, values)
	return out
}
