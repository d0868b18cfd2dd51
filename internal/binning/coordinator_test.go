package binning

import (
	"errors"
	"testing"

	"github.com/ESiWACE/esdm-sub000/internal/hypercube"
	"github.com/stretchr/testify/require"
)

func zeros(n int) []int64 {
	return make([]int64, n)
}

// TestNewCoordinator tests coordinator creation.
func TestNewCoordinator(t *testing.T) {
	tests := []struct {
		name      string
		size      []int64
		binSize   []int64
		wantCount []int64
		wantErr   bool
	}{
		{
			name:      "1D domain",
			size:      []int64{100},
			binSize:   []int64{10},
			wantCount: []int64{10},
		},
		{
			name:      "3D domain",
			size:      []int64{4, 5, 6},
			binSize:   []int64{2, 3, 3},
			wantCount: []int64{2, 2, 2},
		},
		{
			name:      "edge bins 1D",
			size:      []int64{105},
			binSize:   []int64{10},
			wantCount: []int64{11}, // 10 full + 1 partial
		},
		{
			name:      "edge bins 2D",
			size:      []int64{25, 35},
			binSize:   []int64{10, 10},
			wantCount: []int64{3, 4}, // 3x4 = 12 bins
		},
		{
			name:    "dimension mismatch",
			size:    []int64{10, 20},
			binSize: []int64{5},
			wantErr: true,
		},
		{
			name:    "zero domain dimension",
			size:    []int64{10, 0},
			binSize: []int64{5, 5},
			wantErr: true,
		},
		{
			name:    "negative bin dimension",
			size:    []int64{10, 20},
			binSize: []int64{5, -1},
			wantErr: true,
		},
		{
			name:    "empty dimensions",
			size:    []int64{},
			binSize: []int64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCoordinator(zeros(len(tt.size)), tt.size, tt.binSize)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantCount, c.BinCount())
		})
	}
}

// TestCoordinate tests linear index to N-D coordinate conversion and back.
func TestCoordinate(t *testing.T) {
	// 3x4 bins (12 total)
	c, err := NewCoordinator(zeros(2), []int64{25, 35}, []int64{10, 10})
	require.NoError(t, err)
	require.Equal(t, int64(12), c.TotalBins())

	tests := []struct {
		index int64
		want  []int64
	}{
		{0, []int64{0, 0}},  // First bin
		{3, []int64{0, 3}},  // Last in row 0
		{4, []int64{1, 0}},  // First in row 1
		{11, []int64{2, 3}}, // Last bin
	}

	for _, tt := range tests {
		coord := c.Coordinate(tt.index)
		require.Equal(t, tt.want, coord, "index %d", tt.index)
		require.Equal(t, tt.index, c.LinearIndex(coord))
	}
}

// TestBinSizeAt tests bin size calculation (including edge bins).
func TestBinSizeAt(t *testing.T) {
	c, err := NewCoordinator(zeros(3), []int64{12, 15, 18}, []int64{10, 10, 10})
	require.NoError(t, err)

	tests := []struct {
		coord []int64
		want  []int64
	}{
		{[]int64{0, 0, 0}, []int64{10, 10, 10}}, // Full
		{[]int64{1, 0, 0}, []int64{2, 10, 10}},  // Partial dim 0
		{[]int64{0, 1, 0}, []int64{10, 5, 10}},  // Partial dim 1
		{[]int64{1, 1, 1}, []int64{2, 5, 8}},    // Partial all
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, c.BinSizeAt(tt.coord), "coord %v", tt.coord)
	}
}

func TestBinExtentWithOffset(t *testing.T) {
	c, err := NewCoordinator([]int64{100, -5}, []int64{25, 10}, []int64{10, 4})
	require.NoError(t, err)

	ext := c.BinExtent([]int64{2, 2})
	require.True(t, ext.Equal(hypercube.New(
		hypercube.Range{Start: 120, End: 125},
		hypercube.Range{Start: 3, End: 5},
	)), "%v", ext)
}

// Every point of the domain lies in exactly one bin.
func TestBinsPartitionDomain(t *testing.T) {
	c, err := NewCoordinator([]int64{3, 0, 7}, []int64{13, 7, 9}, []int64{4, 7, 2})
	require.NoError(t, err)

	extents := make([]hypercube.Hypercube, 0, c.TotalBins())
	var area int64
	for i := int64(0); i < c.TotalBins(); i++ {
		ext := c.BinExtent(c.Coordinate(i))
		for _, other := range extents {
			require.False(t, hypercube.DoesIntersect(ext, other))
		}
		extents = append(extents, ext)
		area += ext.Size()
	}
	require.Equal(t, c.Domain().Size(), area)
	require.True(t, hypercube.IsFullyCovered(c.Domain(), extents))
}

func TestForEachBin(t *testing.T) {
	c, err := NewCoordinator(zeros(2), []int64{25, 35}, []int64{10, 10})
	require.NoError(t, err)

	var visited []int64
	region := hypercube.New(hypercube.Range{Start: 5, End: 15}, hypercube.Range{Start: 19, End: 31})
	err = c.ForEachBin(region, func(index int64, coord []int64) error {
		visited = append(visited, index)
		require.True(t, hypercube.DoesIntersect(c.BinExtent(coord), region))
		return nil
	})
	require.NoError(t, err)
	// rows 0..1, columns 1..3
	require.Equal(t, []int64{1, 2, 3, 5, 6, 7}, visited)

	outside := hypercube.New(hypercube.Range{Start: 40, End: 50}, hypercube.Range{Start: 0, End: 5})
	require.NoError(t, c.ForEachBin(outside, func(int64, []int64) error {
		t.Fatal("no bin expected")
		return nil
	}))

	stop := errors.New("stop")
	calls := 0
	err = c.ForEachBin(c.Domain(), func(int64, []int64) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
}
