package binning

import (
	"fmt"
	"math"

	"github.com/ESiWACE/esdm-sub000/internal/utils"
)

// PlanBinSize chooses a bin size per dimension such that a bin holds about
// maxBlockSize bytes.
//
// Dimensions whose length does not exceed the n-th root of the remaining
// element budget (n being the number of dimensions still considered for
// splitting) are kept whole and their length is charged against the budget.
// This is repeated until no dimension changes status. Every remaining
// dimension is then cut into ceil(length/root) pieces of equal length, the
// last piece possibly shorter.
//
// Example (1,000,000 elements of 8 bytes, 1 MiB budget):
//
//	budget = 131072 elements, root = 131072
//	pieces = ceil(1000000/131072) = 8
//	bin size = ceil(1000000/8) = 125000
func PlanBinSize(size []int64, elementSize, maxBlockSize int64) ([]int64, error) {
	if len(size) == 0 {
		return nil, fmt.Errorf("no dimensions provided")
	}
	if elementSize <= 0 {
		return nil, fmt.Errorf("element size must be positive, got %d", elementSize)
	}
	if maxBlockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", maxBlockSize)
	}
	for i, s := range size {
		if s <= 0 {
			return nil, fmt.Errorf("dimension %d must be positive, got %d", i, s)
		}
	}
	if _, err := utils.CalculateByteSize(size, elementSize); err != nil {
		return nil, err
	}

	budget := float64(max(1, maxBlockSize/elementSize))

	splittable := make([]bool, len(size))
	for i := range splittable {
		splittable[i] = true
	}

	root := splitRoot(size, splittable, budget)
	for changed := true; changed; {
		changed = false
		for i, s := range size {
			if splittable[i] && float64(s) <= root {
				splittable[i] = false
				changed = true
			}
		}
		if changed {
			root = splitRoot(size, splittable, budget)
		}
	}

	binSize := make([]int64, len(size))
	for i, s := range size {
		if !splittable[i] {
			binSize[i] = s
			continue
		}
		pieces := int64(math.Ceil(float64(s) / root))
		pieces = min(max(pieces, 1), s)
		binSize[i] = utils.CeilDiv(s, pieces)
	}
	return binSize, nil
}

// splitRoot returns the edge length an evenly split bin would have along each
// splittable dimension, never less than one element.
func splitRoot(size []int64, splittable []bool, budget float64) float64 {
	n := 0
	fixed := 1.0
	for i, s := range size {
		if splittable[i] {
			n++
		} else {
			fixed *= float64(s)
		}
	}
	if n == 0 {
		return math.Inf(1)
	}
	return math.Max(1, math.Pow(budget/fixed, 1/float64(n)))
}
