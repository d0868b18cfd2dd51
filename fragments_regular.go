package esdm

import (
	"context"
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/binning"
	"github.com/sirupsen/logrus"
)

// RegularFragments bins the dataset domain into a regular N-dimensional grid
// of fragments, each holding about MaxBlockSize bytes.
//
// Bins are addressed by their row-major linear index. The layout is chosen
// lazily on first use, which requires every dataset extent to be known.
//
// Example (1,000,000 elements of 8 bytes, 1 MiB blocks):
//
//	8 bins of 125,000 elements
//	a write of [100000,300000) touches bins 0, 1 and 2
type RegularFragments struct {
	dataset   *Dataset
	coord     *binning.Coordinator
	fragments []*Fragment
}

// RegularLayout describes the bins of a RegularFragments collection.
type RegularLayout struct {
	BinSize  []int64
	BinCount []int64
	// EdgeBinSize is the extent of the last bin in every dimension, which
	// is smaller than BinSize where the extent is not a multiple of it.
	EdgeBinSize []int64
	TotalBins   int64
}

// NewRegularFragments creates an uninitialized regular collection for d.
func NewRegularFragments(d *Dataset) *RegularFragments {
	return &RegularFragments{dataset: d}
}

// ensureInitialization plans the bin layout once the dataset shape is known.
func (r *RegularFragments) ensureInitialization() error {
	if r.coord != nil {
		return nil
	}
	d := r.dataset
	for i, n := range d.dims {
		if n <= 0 {
			return fmt.Errorf("%w: extent of dimension %d is unknown", ErrInvalidState, i)
		}
	}

	binSize, err := binning.PlanBinSize(d.dims, d.elementSize, d.maxBlockSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	coord, err := binning.NewCoordinator(make([]int64, len(d.dims)), d.dims, binSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	r.coord = coord
	r.fragments = make([]*Fragment, coord.TotalBins())
	d.log.WithFields(logrus.Fields{
		"bin_size":  binSize,
		"bin_count": coord.BinCount(),
	}).Debug("regular layout planned")
	return nil
}

// Layout returns the bin layout, planning it if needed.
func (r *RegularFragments) Layout() (RegularLayout, error) {
	if err := r.ensureInitialization(); err != nil {
		return RegularLayout{}, err
	}
	last := r.coord.BinCount()
	for i := range last {
		last[i]--
	}
	return RegularLayout{
		BinSize:     r.coord.BinSize(),
		BinCount:    r.coord.BinCount(),
		EdgeBinSize: r.coord.BinSizeAt(last),
		TotalBins:   r.coord.TotalBins(),
	}, nil
}

// Add implements Fragments.
//
// A fragment that matches one bin exactly becomes that bin, or overwrites
// its data if the bin already exists. Any other fragment is split across
// every bin it touches. Bins are created zero-filled on demand. An existing
// bin that is only partially overwritten is loaded from its backend first.
func (r *RegularFragments) Add(ctx context.Context, f *Fragment) error {
	if f == nil {
		panic("esdm: Add with nil fragment")
	}
	if err := r.ensureInitialization(); err != nil {
		return err
	}

	extent := f.Extent()
	if extent.Dims() != r.coord.Dims() {
		return fmt.Errorf("%w: fragment has %d dims, dataset has %d", ErrInvalidArgument, extent.Dims(), r.coord.Dims())
	}
	if extent.IsEmpty() {
		f.Release()
		return nil
	}
	if !r.coord.Domain().Contains(extent) {
		return fmt.Errorf("%w: fragment %s lies outside dataset %s", ErrInvalidArgument, extent, r.coord.Domain())
	}

	first, last, _ := r.coord.BinRange(extent)
	if equalCoords(first, last) && r.coord.BinExtent(first).Equal(extent) {
		return r.install(r.coord.LinearIndex(first), f)
	}

	err := r.coord.ForEachBin(extent, func(index int64, coord []int64) error {
		return r.merge(ctx, index, coord, f)
	})
	if err != nil {
		return err
	}
	f.Release()
	return nil
}

// install puts f into an exactly matching bin slot.
func (r *RegularFragments) install(index int64, f *Fragment) error {
	bin := r.fragments[index]
	if bin == nil {
		r.fragments[index] = f
		binsInstalled.Inc()
		return nil
	}

	bin.ensureBuffer()
	if err := CopyData(f.Space, f.Buf, bin.Space, bin.Buf); err != nil {
		return err
	}
	bin.Status = FragmentDirty
	binMerges.Inc()
	f.Release()
	return nil
}

// merge copies the part of f that falls into the bin at index.
func (r *RegularFragments) merge(ctx context.Context, index int64, coord []int64, f *Fragment) error {
	binExtent := r.coord.BinExtent(coord)
	bin := r.fragments[index]

	switch {
	case bin == nil:
		offset, size := binExtent.OffsetAndSize()
		space, err := NewDataspace(offset, size, r.dataset.elementSize)
		if err != nil {
			return err
		}
		bin = r.dataset.newFragment(space)
		bin.Buf = make([]byte, bin.Bytes)
		r.fragments[index] = bin
		binsCreated.Inc()
		r.dataset.log.WithField("bin", index).Debug("bin created")

	case !bin.IsLoaded():
		if f.Extent().Contains(binExtent) {
			bin.ensureBuffer()
			break
		}
		if err := bin.Load(ctx); err != nil {
			return fmt.Errorf("bin %d: %w", index, err)
		}
		binLoads.Inc()
		r.dataset.log.WithField("bin", index).Debug("bin loaded for partial overwrite")
	}

	if err := CopyData(f.Space, f.Buf, bin.Space, bin.Buf); err != nil {
		return err
	}
	bin.Status = FragmentDirty
	binMerges.Inc()
	return nil
}

// List implements Fragments. It returns the flat bin array in row-major
// order; bins nobody wrote are nil. The result is nil while the dataset
// extent is unknown.
//
// Datasets plan the layout as soon as their extent is known, so List does
// not modify the collection and may run concurrently with other queries.
// A collection created with NewRegularFragments is planned by its first
// Layout, Add or List call.
func (r *RegularFragments) List() []*Fragment {
	if err := r.ensureInitialization(); err != nil {
		return nil
	}
	return r.fragments
}

// MakeSetCoveringRegion implements Fragments. It returns the existing bins
// intersecting region.
func (r *RegularFragments) MakeSetCoveringRegion(region Hypercube) ([]*Fragment, error) {
	if err := r.ensureInitialization(); err != nil {
		return nil, err
	}
	if region.Dims() != r.coord.Dims() {
		return nil, fmt.Errorf("%w: region has %d dims, dataset has %d", ErrInvalidArgument, region.Dims(), r.coord.Dims())
	}

	var out []*Fragment
	err := r.coord.ForEachBin(region, func(index int64, _ []int64) error {
		if bin := r.fragments[index]; bin != nil {
			out = append(out, bin)
		}
		return nil
	})
	return out, err
}

// Destruct implements Fragments.
func (r *RegularFragments) Destruct() {
	for _, bin := range r.fragments {
		if bin != nil {
			bin.Release()
		}
	}
	r.fragments = nil
	r.coord = nil
}

func equalCoords(a, b []int64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return len(a) == len(b)
}
