package esdm

import (
	"context"
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/hypercube"
)

// Fragments is the fragment collection of a dataset.
//
// Add takes ownership of the fragment: after a successful call the
// collection either keeps it or merges its data elsewhere and releases it.
type Fragments interface {
	// Add stores f in the collection.
	Add(ctx context.Context, f *Fragment) error
	// List returns the fragments held by the collection. Implementations
	// may include nil slots.
	List() []*Fragment
	// MakeSetCoveringRegion returns the fragments a read of region needs.
	// The result may fail to cover region fully; callers check.
	MakeSetCoveringRegion(region Hypercube) ([]*Fragment, error)
	// Destruct releases every fragment.
	Destruct()
}

// FragmentsKind selects the fragment collection of a new dataset.
type FragmentsKind int

const (
	// FragmentsRegular bins the dataset domain into a regular grid.
	FragmentsRegular FragmentsKind = iota
	// FragmentsList keeps every written fragment as-is.
	FragmentsList
)

// String returns the kind name.
func (k FragmentsKind) String() string {
	switch k {
	case FragmentsRegular:
		return "regular"
	case FragmentsList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ListFragments is an emergent collection: every write becomes one fragment
// and fragments may overlap.
type ListFragments struct {
	dataset   *Dataset
	fragments []*Fragment
}

// NewListFragments creates an empty list collection for d.
func NewListFragments(d *Dataset) *ListFragments {
	return &ListFragments{dataset: d}
}

// Add implements Fragments.
func (l *ListFragments) Add(_ context.Context, f *Fragment) error {
	if f == nil {
		panic("esdm: Add with nil fragment")
	}
	if f.Space.Dims() != len(l.dataset.dims) {
		return fmt.Errorf("%w: fragment has %d dims, dataset has %d", ErrInvalidArgument, f.Space.Dims(), len(l.dataset.dims))
	}
	l.fragments = append(l.fragments, f)
	return nil
}

// List implements Fragments. The result is ordered from oldest to newest.
func (l *ListFragments) List() []*Fragment {
	out := make([]*Fragment, len(l.fragments))
	copy(out, l.fragments)
	return out
}

// MakeSetCoveringRegion implements Fragments.
//
// Fragments intersecting region are reduced to the ones whose data is still
// visible inside region: a fragment is skipped when fragments written after
// it cover its part of region. The result keeps write order, so copying it
// in order lets newer data overwrite older.
func (l *ListFragments) MakeSetCoveringRegion(region Hypercube) ([]*Fragment, error) {
	var (
		candidates []*Fragment
		clipped    []Hypercube
	)
	for _, f := range l.fragments {
		if c, ok := hypercube.Intersection(f.Extent(), region); ok {
			candidates = append(candidates, f)
			clipped = append(clipped, c)
		}
	}
	if len(candidates) < 2 {
		return candidates, nil
	}

	coverSearches.Inc()
	visible := hypercube.NewestCover(clipped)
	out := make([]*Fragment, len(visible))
	for i, idx := range visible {
		out[i] = candidates[idx]
	}
	coverDroppedFrags.Add(len(candidates) - len(out))
	return out, nil
}

// Destruct implements Fragments.
func (l *ListFragments) Destruct() {
	for _, f := range l.fragments {
		f.Release()
	}
	l.fragments = nil
}
