package hypercube

// minSetCapacity is the capacity a Set grows to on its first insertion.
const minSetCapacity = 4

// Set is a covering list of hypercubes. Members may overlap; the union of the
// members is the logical set. The Set owns deep copies of everything added.
//
// Set is not safe for concurrent mutation.
type Set struct {
	cubes []Hypercube
}

// NewSet creates an empty set with room for capacity members.
func NewSet(capacity int) *Set {
	if capacity < 0 {
		capacity = 0
	}
	return &Set{cubes: make([]Hypercube, 0, capacity)}
}

// SetOf creates a set holding copies of cubes.
func SetOf(cubes ...Hypercube) *Set {
	s := NewSet(len(cubes))
	for _, c := range cubes {
		s.Add(c)
	}
	return s
}

// Add appends a deep copy of cube. The backing array doubles when full.
func (s *Set) Add(cube Hypercube) {
	if len(s.cubes) == cap(s.cubes) {
		newCap := 2 * cap(s.cubes)
		if newCap < minSetCapacity {
			newCap = minSetCapacity
		}
		grown := make([]Hypercube, len(s.cubes), newCap)
		copy(grown, s.cubes)
		s.cubes = grown
	}
	s.cubes = append(s.cubes, cube.Copy())
}

// Len returns the number of members, including empty ones not yet compacted.
func (s *Set) Len() int {
	return len(s.cubes)
}

// Cubes returns copies of all members.
func (s *Set) Cubes() []Hypercube {
	out := make([]Hypercube, len(s.cubes))
	for i, c := range s.cubes {
		out[i] = c.Copy()
	}
	return out
}

// Compact removes every empty member and returns how many were removed.
// Member order is not preserved.
func (s *Set) Compact() int {
	removed := 0
	for i := len(s.cubes) - 1; i >= 0; i-- {
		if s.cubes[i].IsEmpty() {
			s.removeAt(i)
			removed++
		}
	}
	return removed
}

// IsEmpty reports whether the set contains no non-empty member.
// It does not modify the set; use Compact to drop empty members.
func (s *Set) IsEmpty() bool {
	for _, c := range s.cubes {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Area returns the sum of member sizes. Overlapping regions are counted once
// per member that contains them.
func (s *Set) Area() int64 {
	var area int64
	for _, c := range s.cubes {
		area += c.Area()
	}
	return area
}

// Subtract removes subtrahend from the set.
//
// Every member intersecting subtrahend is replaced by the pieces of it lying
// outside subtrahend: for each dimension in order, the slab before the
// subtrahend's start and the slab after its end are emitted, then the working
// box is narrowed to the subtrahend along that dimension. What remains at the
// end is member ∩ subtrahend and is discarded. Members not intersecting
// subtrahend are left untouched. Afterwards no member intersects subtrahend.
func (s *Set) Subtract(subtrahend Hypercube) {
	for i := len(s.cubes) - 1; i >= 0; i-- {
		member := s.cubes[i]
		if member.IsEmpty() || !DoesIntersect(member, subtrahend) {
			continue
		}
		s.removeAt(i)

		working := member.Copy()
		for d := range working.ranges {
			r := working.ranges[d]
			cut := subtrahend.ranges[d]
			if r.Start < cut.Start {
				before := working.Copy()
				before.ranges[d] = Range{Start: r.Start, End: cut.Start}
				s.Add(before)
			}
			if r.End > cut.End {
				after := working.Copy()
				after.ranges[d] = Range{Start: cut.End, End: r.End}
				s.Add(after)
			}
			working.ranges[d] = RangeIntersection(r, cut)
		}
	}
}

// removeAt replaces member i with the last member and shrinks the set.
func (s *Set) removeAt(i int) {
	last := len(s.cubes) - 1
	s.cubes[i] = s.cubes[last]
	s.cubes[last] = Hypercube{}
	s.cubes = s.cubes[:last]
}
