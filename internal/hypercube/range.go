package hypercube

import "fmt"

// Range is the half-open interval [Start, End).
type Range struct {
	Start int64
	End   int64
}

// IsEmpty reports whether the range contains no point.
func (r Range) IsEmpty() bool {
	return r.Start >= r.End
}

// Size returns the number of points in the range, 0 for an empty range.
func (r Range) Size() int64 {
	if r.IsEmpty() {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether location lies inside the range.
func (r Range) Contains(location int64) bool {
	return location >= r.Start && location < r.End
}

// String returns "[start,end)".
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// RangeIntersection returns the pointwise intersection of a and b.
// The result may be empty.
func RangeIntersection(a, b Range) Range {
	return Range{
		Start: max(a.Start, b.Start),
		End:   min(a.End, b.End),
	}
}
