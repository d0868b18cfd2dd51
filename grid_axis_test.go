package esdm

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAxisFindInterval(t *testing.T) {
	a, err := axisFromBounds([]int64{0, 3, 6, 9, 10})
	require.NoError(t, err)

	tests := []struct {
		location int64
		want     int64
	}{
		{location: 7, want: 2},
		{location: 10, want: -1},
		{location: -1, want: -1},
		{location: 0, want: 0},
		{location: 2, want: 0},
		{location: 3, want: 1},
		{location: 9, want: 3},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, a.findInterval(tt.location), "location %d", tt.location)
	}
}

func TestAxisFindIntervalMatchesBinarySearch(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 200; round++ {
		n := 1 + rng.IntN(40)
		bounds := make([]int64, n+1)
		bounds[0] = rng.Int64N(100) - 50
		for i := 1; i <= n; i++ {
			// Mix tiny and huge steps so interpolation guesses are often off.
			step := 1 + rng.Int64N(5)
			if rng.IntN(4) == 0 {
				step += rng.Int64N(1000)
			}
			bounds[i] = bounds[i-1] + step
		}
		a, err := axisFromBounds(bounds)
		require.NoError(t, err)

		for x := bounds[0] - 2; x < bounds[n]+2; x++ {
			want := int64(-1)
			if x >= bounds[0] && x < bounds[n] {
				want = int64(sort.Search(len(bounds), func(i int) bool { return bounds[i] > x }) - 1)
			}
			require.Equal(t, want, a.findInterval(x), "bounds %v location %d", bounds, x)
		}
	}
}

func TestAxisSubdivideFixed(t *testing.T) {
	a := newAxis(0, 10)
	require.NoError(t, a.subdivideFixed(3, true))
	require.Equal(t, []int64{0, 3, 6, 9, 10}, a.bounds())
	require.Equal(t, int64(4), a.intervals)

	b := newAxis(0, 10)
	require.ErrorIs(t, b.subdivideFixed(3, false), ErrInvalidArgument)
	require.ErrorIs(t, b.subdivideFixed(0, true), ErrInvalidArgument)
	require.False(t, b.subdivided())

	c := newAxis(5, 15)
	require.NoError(t, c.subdivideFixed(5, false))
	require.Equal(t, []int64{5, 10, 15}, c.bounds())
}

func TestAxisSubdivideFlexible(t *testing.T) {
	a := newAxis(10, 20)
	require.NoError(t, a.subdivideFlexible(3))
	require.Equal(t, []int64{10, 13, 16, 20}, a.bounds())

	b := newAxis(0, 4)
	require.NoError(t, b.subdivideFlexible(4))
	require.Equal(t, []int64{0, 1, 2, 3, 4}, b.bounds())

	require.ErrorIs(t, newAxisPtr(0, 4).subdivideFlexible(0), ErrInvalidArgument)
	require.ErrorIs(t, newAxisPtr(0, 4).subdivideFlexible(5), ErrInvalidArgument)
}

func TestAxisSubdivideExplicit(t *testing.T) {
	tests := []struct {
		name    string
		bounds  []int64
		wantErr bool
	}{
		{name: "valid", bounds: []int64{0, 1, 7, 10}},
		{name: "single interval", bounds: []int64{0, 10}},
		{name: "too short", bounds: []int64{0}, wantErr: true},
		{name: "wrong start", bounds: []int64{1, 5, 10}, wantErr: true},
		{name: "wrong end", bounds: []int64{0, 5, 9}, wantErr: true},
		{name: "not increasing", bounds: []int64{0, 5, 5, 10}, wantErr: true},
		{name: "decreasing", bounds: []int64{0, 6, 4, 10}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAxis(0, 10)
			err := a.subdivide(tt.bounds)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				require.Equal(t, []int64{0, 10}, a.bounds())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.bounds, a.bounds())
		})
	}
}

func TestAxisBoundsStayMonotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for round := 0; round < 100; round++ {
		start := rng.Int64N(100)
		length := 1 + rng.Int64N(200)

		fixed := newAxis(start, start+length)
		require.NoError(t, fixed.subdivideFixed(1+rng.Int64N(length), true))
		requireValidAxis(t, &fixed)

		flexible := newAxis(start, start+length)
		require.NoError(t, flexible.subdivideFlexible(1+rng.Int64N(length)))
		requireValidAxis(t, &flexible)
	}
}

func requireValidAxis(t *testing.T, a *axis) {
	t.Helper()
	require.Len(t, a.allBounds, int(a.intervals)+1)
	require.Equal(t, a.outerBounds[0], a.allBounds[0])
	require.Equal(t, a.outerBounds[1], a.allBounds[a.intervals])
	require.NoError(t, checkIncreasing(a.allBounds))
}

func newAxisPtr(start, end int64) *axis {
	a := newAxis(start, end)
	return &a
}
