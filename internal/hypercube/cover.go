package hypercube

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
)

// IsFullyCovered reports whether the union of covering contains target.
// An empty target is always covered.
func IsFullyCovered(target Hypercube, covering []Hypercube) bool {
	if target.IsEmpty() {
		return true
	}
	remainder := SetOf(target)
	for _, c := range covering {
		remainder.Subtract(c)
		if remainder.IsEmpty() {
			return true
		}
	}
	return remainder.IsEmpty()
}

// DoesCoverFully reports whether the union of list contains cube. Members of
// list that do not intersect cube are skipped before the coverage test.
func DoesCoverFully(list []Hypercube, cube Hypercube) bool {
	relevant := make([]Hypercube, 0, len(list))
	for _, c := range list {
		if DoesIntersect(c, cube) {
			relevant = append(relevant, c)
		}
	}
	return IsFullyCovered(cube, relevant)
}

// intersectionMatrix caches all pairwise intersections of a cube list.
// The diagonal holds no cube; sizes caches the area of every input cube.
type intersectionMatrix struct {
	n     int
	cubes []Hypercube
	valid []bool
	sizes []int64
}

func newIntersectionMatrix(list []Hypercube) *intersectionMatrix {
	n := len(list)
	m := &intersectionMatrix{
		n:     n,
		cubes: make([]Hypercube, n*n),
		valid: make([]bool, n*n),
		sizes: make([]int64, n),
	}
	for i := 0; i < n; i++ {
		m.sizes[i] = list[i].Area()
		for j := i + 1; j < n; j++ {
			if c, ok := Intersection(list[i], list[j]); ok {
				m.cubes[i*n+j], m.valid[i*n+j] = c, true
				m.cubes[j*n+i], m.valid[j*n+i] = c, true
			}
		}
	}
	return m
}

// coverage sums the intersection areas found in row i and column i of the
// matrix, so every overlap of cube i is counted twice.
func (m *intersectionMatrix) coverage(i int) int64 {
	var total int64
	for j := 0; j < m.n; j++ {
		if m.valid[i*m.n+j] {
			total += m.cubes[i*m.n+j].Size()
		}
		if m.valid[j*m.n+i] {
			total += m.cubes[j*m.n+i].Size()
		}
	}
	return total
}

// intersections returns the intersections of cube i with every cube j for
// which selected[j] holds.
func (m *intersectionMatrix) intersections(i int, selected []bool) []Hypercube {
	out := make([]Hypercube, 0, m.n)
	for j := 0; j < m.n; j++ {
		if j != i && selected[j] && m.valid[i*m.n+j] {
			out = append(out, m.cubes[i*m.n+j])
		}
	}
	return out
}

// MinimalSubsets searches for subsets of list whose union equals the union of
// list while containing no member that the remaining members already cover.
//
// Each of the rounds runs a randomized greedy elimination over the cubes that
// are not required in every cover, so different rounds may find different
// minimal (not necessarily minimum) subsets. Identical results are reported
// once. Every subset is a sorted list of indices into list. Empty input cubes
// never appear in a subset.
//
// A cube is required in every cover when its pairwise overlaps with the
// other cubes sum to less than its own size, or when the exact coverage test
// fails. This bound is tighter than twice the cube size and never marks a
// redundant cube as required.
//
// The cost is O(n²) intersections plus O(rounds · n²) coverage tests.
func MinimalSubsets(list []Hypercube, rounds int, rng *rand.Rand) [][]int {
	if rounds < 1 {
		rounds = 1
	}
	n := len(list)
	m := newIntersectionMatrix(list)

	all := make([]bool, n)
	for i := range all {
		all[i] = m.sizes[i] > 0
	}

	var candidates []int
	for i := 0; i < n; i++ {
		if !all[i] {
			continue
		}
		// coverage counts each overlap twice, so this keeps every cube whose
		// overlaps sum to less than its own size: such a cube cannot be
		// covered by the others. Only the rest pays for the exact test.
		if m.coverage(i) < 2*m.sizes[i] ||
			!IsFullyCovered(list[i], m.intersections(i, all)) {
			continue
		}
		candidates = append(candidates, i)
	}

	var (
		results [][]int
		seen    = make(map[string]bool)
	)
	for round := 0; round < rounds; round++ {
		selected := slices.Clone(all)
		for _, k := range rng.Perm(len(candidates)) {
			i := candidates[k]
			if IsFullyCovered(list[i], m.intersections(i, selected)) {
				selected[i] = false
			}
		}

		subset := make([]int, 0, n)
		for i, keep := range selected {
			if keep {
				subset = append(subset, i)
			}
		}
		key := subsetKey(subset)
		if seen[key] {
			continue
		}
		seen[key] = true
		results = append(results, subset)
	}
	return results
}

// MinimalSubset runs a single round of MinimalSubsets.
func MinimalSubset(list []Hypercube, rng *rand.Rand) []int {
	return MinimalSubsets(list, 1, rng)[0]
}

// NewestCover treats list as painted in order, later cubes over earlier
// ones, and returns the sorted indices of the cubes that remain visible
// anywhere. A cube is dropped when the cubes after it cover it. Empty cubes
// are dropped.
//
// Every point of the union keeps the last cube of list that contains it, so
// copying the kept cubes in order gives the same result as copying all of
// them. The result does not depend on any random choice.
func NewestCover(list []Hypercube) []int {
	n := len(list)
	m := newIntersectionMatrix(list)
	kept := make([]bool, n)
	out := make([]int, 0, n)
	for i := n - 1; i >= 0; i-- {
		if m.sizes[i] == 0 {
			continue
		}
		// Dropped cubes are covered by kept later ones, so testing against
		// the kept later cubes is the same as testing against all of them.
		later := m.intersections(i, kept)
		var overlap int64
		for _, c := range later {
			overlap += c.Size()
		}
		if overlap < m.sizes[i] || !IsFullyCovered(list[i], later) {
			kept[i] = true
			out = append(out, i)
		}
	}
	slices.Reverse(out)
	return out
}

func subsetKey(subset []int) string {
	parts := make([]string, len(subset))
	for i, v := range subset {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
