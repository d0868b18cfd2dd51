package hypercube

import (
	"fmt"
	"strings"
)

// Hypercube is an axis-aligned N-dimensional box.
//
// The zero value is the degenerate default cube with zero dimensions. It is
// only useful as a placeholder; geometric operations on it panic.
type Hypercube struct {
	ranges []Range
}

// New creates a hypercube from one range per dimension.
func New(ranges ...Range) Hypercube {
	owned := make([]Range, len(ranges))
	copy(owned, ranges)
	return Hypercube{ranges: owned}
}

// FromOffsetSize creates the hypercube [offset[i], offset[i]+size[i]) per dimension.
func FromOffsetSize(offset, size []int64) Hypercube {
	if len(offset) != len(size) {
		panic(fmt.Sprintf("hypercube: offset has %d dims, size has %d", len(offset), len(size)))
	}
	ranges := make([]Range, len(offset))
	for i := range offset {
		ranges[i] = Range{Start: offset[i], End: offset[i] + size[i]}
	}
	return Hypercube{ranges: ranges}
}

// Default returns the degenerate zero-dimensional placeholder cube.
func Default() Hypercube {
	return Hypercube{}
}

// Copy returns a deep copy of h.
func (h Hypercube) Copy() Hypercube {
	return New(h.ranges...)
}

// Dims returns the number of dimensions.
func (h Hypercube) Dims() int {
	return len(h.ranges)
}

// Range returns the range of dimension dim.
func (h Hypercube) Range(dim int) Range {
	return h.ranges[dim]
}

// IsEmpty reports whether any dimension is empty.
// The default cube is not considered empty.
func (h Hypercube) IsEmpty() bool {
	for _, r := range h.ranges {
		if r.IsEmpty() {
			return true
		}
	}
	return false
}

// Size returns the number of points inside the cube.
// It panics on the default cube or an empty cube.
func (h Hypercube) Size() int64 {
	if len(h.ranges) == 0 {
		panic("hypercube: Size of a zero-dimensional cube")
	}
	size := int64(1)
	for _, r := range h.ranges {
		if r.IsEmpty() {
			panic("hypercube: Size of an empty cube " + h.String())
		}
		size *= r.Size()
	}
	return size
}

// Area returns the number of points inside the cube, 0 when empty.
func (h Hypercube) Area() int64 {
	if len(h.ranges) == 0 || h.IsEmpty() {
		return 0
	}
	return h.Size()
}

// OffsetAndSize returns the per-dimension start and extent.
func (h Hypercube) OffsetAndSize() (offset, size []int64) {
	offset = make([]int64, len(h.ranges))
	size = make([]int64, len(h.ranges))
	for i, r := range h.ranges {
		offset[i] = r.Start
		size[i] = r.Size()
	}
	return offset, size
}

// Equal reports whether both cubes have the same dimensions and ranges.
func (h Hypercube) Equal(other Hypercube) bool {
	if len(h.ranges) != len(other.ranges) {
		return false
	}
	for i := range h.ranges {
		if h.ranges[i] != other.ranges[i] {
			return false
		}
	}
	return true
}

// Contains reports whether inner lies completely inside h.
func (h Hypercube) Contains(inner Hypercube) bool {
	mustMatch(h, inner)
	for i, r := range h.ranges {
		in := inner.ranges[i]
		if in.Start < r.Start || in.End > r.End {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether point lies inside h.
func (h Hypercube) ContainsPoint(point []int64) bool {
	if len(point) != len(h.ranges) {
		panic(fmt.Sprintf("hypercube: point has %d dims, cube has %d", len(point), len(h.ranges)))
	}
	for i, r := range h.ranges {
		if !r.Contains(point[i]) {
			return false
		}
	}
	return true
}

// String renders the cube as "[0,10)x[3,7)".
func (h Hypercube) String() string {
	if len(h.ranges) == 0 {
		return "<default>"
	}
	parts := make([]string, len(h.ranges))
	for i, r := range h.ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, "x")
}

// Intersection returns a ∩ b. The boolean is false when the intersection is
// empty, in which case the returned cube must not be used.
func Intersection(a, b Hypercube) (Hypercube, bool) {
	mustMatch(a, b)
	ranges := make([]Range, len(a.ranges))
	for i := range a.ranges {
		ranges[i] = RangeIntersection(a.ranges[i], b.ranges[i])
		if ranges[i].IsEmpty() {
			return Hypercube{}, false
		}
	}
	return Hypercube{ranges: ranges}, true
}

// DoesIntersect reports whether a and b share at least one point.
func DoesIntersect(a, b Hypercube) bool {
	mustMatch(a, b)
	for i := range a.ranges {
		if RangeIntersection(a.ranges[i], b.ranges[i]).IsEmpty() {
			return false
		}
	}
	return true
}

func mustMatch(a, b Hypercube) {
	if len(a.ranges) != len(b.ranges) {
		panic(fmt.Sprintf("hypercube: dimension mismatch %d != %d", len(a.ranges), len(b.ranges)))
	}
}
