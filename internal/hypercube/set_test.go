package hypercube

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// unionArea returns the number of points covered by at least one cube.
func unionArea(cubes []Hypercube) int64 {
	disjoint := NewSet(len(cubes))
	for _, c := range cubes {
		if c.IsEmpty() {
			continue
		}
		piece := SetOf(c)
		for _, d := range disjoint.cubes {
			piece.Subtract(d)
		}
		for _, p := range piece.cubes {
			disjoint.Add(p)
		}
	}
	return disjoint.Area()
}

func TestSetAddGrowsByDoubling(t *testing.T) {
	s := NewSet(0)
	caps := []int{}
	for i := 0; i < 17; i++ {
		s.Add(New(Range{int64(i), int64(i + 1)}))
		caps = append(caps, cap(s.cubes))
	}
	require.Equal(t, 17, s.Len())
	require.Equal(t, 4, caps[0])
	require.Equal(t, 8, caps[4])
	require.Equal(t, 16, caps[8])
	require.Equal(t, 32, caps[16])
}

func TestSetAddCopies(t *testing.T) {
	c := New(Range{0, 5})
	s := SetOf(c)
	c.ranges[0].End = 99
	require.Equal(t, int64(5), s.Cubes()[0].Range(0).End)
}

func TestSetIsEmptyAndCompact(t *testing.T) {
	s := SetOf(New(Range{3, 3}), New(Range{5, 1}))
	require.True(t, s.IsEmpty())
	require.Equal(t, 2, s.Len(), "IsEmpty must not modify the set")
	require.Equal(t, 2, s.Compact())
	require.Equal(t, 0, s.Len())

	s.Add(New(Range{0, 1}))
	s.Add(New(Range{4, 4}))
	require.False(t, s.IsEmpty())
	require.Equal(t, 1, s.Compact())
	require.Equal(t, 1, s.Len())
}

// Scenario: [0,10)x[0,10) minus [3,7)x[3,7) leaves 84 points.
func TestSubtractCenterHole(t *testing.T) {
	s := SetOf(New(Range{0, 10}, Range{0, 10}))
	hole := New(Range{3, 7}, Range{3, 7})

	s.Subtract(hole)

	require.Equal(t, int64(84), s.Area())
	require.Equal(t, 4, s.Len())
	for _, c := range s.cubes {
		require.False(t, DoesIntersect(c, hole), "%v", c)
	}
	require.Equal(t, int64(84), unionArea(s.Cubes()), "pieces must be disjoint")
}

func TestSubtractLeavesNonIntersectingMembers(t *testing.T) {
	far := New(Range{100, 110}, Range{0, 5})
	s := SetOf(far, New(Range{0, 4}, Range{0, 4}))
	s.Subtract(New(Range{0, 2}, Range{0, 4}))

	found := false
	for _, c := range s.cubes {
		if c.Equal(far) {
			found = true
		}
	}
	require.True(t, found)
	require.Equal(t, int64(50+8), s.Area())
}

func TestSubtractEverything(t *testing.T) {
	s := SetOf(New(Range{2, 4}, Range{2, 4}), New(Range{3, 5}, Range{1, 2}))
	s.Subtract(New(Range{0, 10}, Range{0, 10}))
	require.True(t, s.IsEmpty())
	require.Equal(t, 0, s.Len())
}

func TestSubtractLaw(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 4242))
	for dims := 1; dims <= 4; dims++ {
		for iter := 0; iter < 200; iter++ {
			s := NewSet(0)
			for k := 0; k < 1+rng.IntN(5); k++ {
				s.Add(randomCube(rng, dims))
			}
			cut := randomCube(rng, dims)

			before := s.Area()
			var removed int64
			for _, c := range s.cubes {
				if in, ok := Intersection(c, cut); ok {
					removed += in.Size()
				}
			}

			s.Subtract(cut)

			require.Equal(t, before, s.Area()+removed, "dims=%d iter=%d", dims, iter)
			for _, c := range s.cubes {
				if !c.IsEmpty() {
					require.False(t, DoesIntersect(c, cut))
				}
			}
		}
	}
}
