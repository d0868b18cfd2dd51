package esdm

import "fmt"

// axis is the partition of one grid dimension into intervals.
//
// allBounds holds intervals+1 strictly increasing bounds. Interval i is
// [allBounds[i], allBounds[i+1]). The first and last bound equal
// outerBounds.
type axis struct {
	intervals   int64
	outerBounds [2]int64
	allBounds   []int64
}

func newAxis(start, end int64) axis {
	return axis{
		intervals:   1,
		outerBounds: [2]int64{start, end},
		allBounds:   []int64{start, end},
	}
}

// axisFromBounds builds an axis from a bound list, validating it.
func axisFromBounds(bounds []int64) (axis, error) {
	if len(bounds) < 2 {
		return axis{}, fmt.Errorf("axis needs at least 2 bounds, got %d", len(bounds))
	}
	if err := checkIncreasing(bounds); err != nil {
		return axis{}, err
	}
	return axis{
		intervals:   int64(len(bounds) - 1),
		outerBounds: [2]int64{bounds[0], bounds[len(bounds)-1]},
		allBounds:   clone(bounds),
	}, nil
}

func checkIncreasing(bounds []int64) error {
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return fmt.Errorf("bounds not strictly increasing at %d: %d <= %d", i, bounds[i], bounds[i-1])
		}
	}
	return nil
}

func (a *axis) size() int64 {
	return a.outerBounds[1] - a.outerBounds[0]
}

func (a *axis) subdivided() bool {
	return a.intervals > 1
}

// interval returns the bounds of interval i.
func (a *axis) interval(i int64) Range {
	return Range{Start: a.allBounds[i], End: a.allBounds[i+1]}
}

// bounds returns a copy of the bound list.
func (a *axis) bounds() []int64 {
	return clone(a.allBounds)
}

func (a *axis) equal(other *axis) bool {
	if a.intervals != other.intervals || a.outerBounds != other.outerBounds {
		return false
	}
	for i := range a.allBounds {
		if a.allBounds[i] != other.allBounds[i] {
			return false
		}
	}
	return true
}

// subdivideFixed cuts the axis into intervals of length size, the last one
// shorter when the axis length is not a multiple of size.
func (a *axis) subdivideFixed(size int64, allowIncomplete bool) error {
	if size <= 0 {
		return fmt.Errorf("%w: interval size must be positive, got %d", ErrInvalidArgument, size)
	}
	total := a.size()
	if total%size != 0 && !allowIncomplete {
		return fmt.Errorf("%w: interval size %d does not divide axis length %d", ErrInvalidArgument, size, total)
	}

	intervals := (total + size - 1) / size
	bounds := make([]int64, intervals+1)
	for i := int64(0); i < intervals; i++ {
		bounds[i] = a.outerBounds[0] + i*size
	}
	bounds[intervals] = a.outerBounds[1]
	a.setBounds(bounds)
	return nil
}

// subdivideFlexible cuts the axis into count intervals whose lengths differ
// by at most one.
func (a *axis) subdivideFlexible(count int64) error {
	total := a.size()
	if count < 1 || count > total {
		return fmt.Errorf("%w: cannot cut axis of length %d into %d intervals", ErrInvalidArgument, total, count)
	}

	// outer0 + total*i/count, split to stay within int64.
	q, r := total/count, total%count
	bounds := make([]int64, count+1)
	for i := int64(0); i <= count; i++ {
		bounds[i] = a.outerBounds[0] + q*i + r*i/count
	}
	a.setBounds(bounds)
	return nil
}

// subdivide installs caller-provided bounds.
func (a *axis) subdivide(bounds []int64) error {
	if len(bounds) < 2 {
		return fmt.Errorf("%w: need at least 2 bounds, got %d", ErrInvalidArgument, len(bounds))
	}
	if bounds[0] != a.outerBounds[0] || bounds[len(bounds)-1] != a.outerBounds[1] {
		return fmt.Errorf("%w: bounds [%d..%d] do not match axis [%d,%d)", ErrInvalidArgument,
			bounds[0], bounds[len(bounds)-1], a.outerBounds[0], a.outerBounds[1])
	}
	if err := checkIncreasing(bounds); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	a.setBounds(clone(bounds))
	return nil
}

func (a *axis) setBounds(bounds []int64) {
	a.intervals = int64(len(bounds) - 1)
	a.allBounds = bounds
}

// findInterval returns the index of the interval containing location, or -1
// when location lies outside [outer0, outer1).
//
// The search keeps allBounds[start] <= location < allBounds[end] and probes
// where linear interpolation between the two bracketing bounds expects the
// location, clamped strictly inside the bracket so every step shrinks it.
// The result equals that of a plain binary search.
func (a *axis) findInterval(location int64) int64 {
	if location < a.outerBounds[0] || location >= a.outerBounds[1] {
		return -1
	}

	start, end := int64(0), a.intervals
	for end-start > 1 {
		lo, hi := a.allBounds[start], a.allBounds[end]
		guess := start + int64(float64(location-lo)/float64(hi-lo)*float64(end-start))
		guess = min(max(guess, start+1), end-1)

		if a.allBounds[guess] <= location {
			start = guess
		} else {
			end = guess
		}
	}
	return start
}
