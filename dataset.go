package esdm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/hypercube"
	"github.com/ESiWACE/esdm-sub000/internal/utils"
	"github.com/sirupsen/logrus"
)

// Dataset is an N-dimensional array of fixed-size elements whose data is
// stored as fragments.
//
// A dimension of extent 0 is unknown until SetDims fills it in. List
// fragments accept writes anywhere while an extent is unknown; regular
// binning and grids need the full shape.
type Dataset struct {
	name        string
	dims        []int64
	elementSize int64

	fragmentsKind FragmentsKind
	fragments     Fragments

	grids         []*Grid
	completeGrids []*Grid

	backends map[string]Backend
	backend  Backend
	loader   FragmentLoader

	maxBlockSize int64
	log          logrus.FieldLogger
	closed       bool
}

// NewDataset creates a dataset with the given extent per dimension and
// element byte size.
//
// Without WithBackend, fragments are kept by an in-memory backend with id
// "memory".
//
// Returns ErrInvalidArgument when dims is empty, an extent is negative, the
// element size is not positive or an option rejects its value.
func NewDataset(name string, dims []int64, elementSize int64, opts ...DatasetOption) (*Dataset, error) {
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: dataset %s has no dimensions", ErrInvalidArgument, name)
	}
	for i, n := range dims {
		if n < 0 {
			return nil, fmt.Errorf("%w: dataset %s: dimension %d has negative extent %d", ErrInvalidArgument, name, i, n)
		}
	}
	if elementSize <= 0 {
		return nil, fmt.Errorf("%w: dataset %s: element size must be positive, got %d", ErrInvalidArgument, name, elementSize)
	}

	d := &Dataset{
		name:         name,
		dims:         clone(dims),
		elementSize:  elementSize,
		backends:     make(map[string]Backend),
		loader:       DefaultFragmentLoader,
		maxBlockSize: DefaultMaxBlockSize,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, utils.WrapError("dataset "+name, err)
		}
	}
	if d.backend == nil {
		d.backend = NewMemoryBackend("memory")
		d.backends[d.backend.ID()] = d.backend
	}
	d.log = d.log.WithField("dataset", name)

	switch d.fragmentsKind {
	case FragmentsList:
		d.fragments = NewListFragments(d)
	default:
		d.fragments = NewRegularFragments(d)
	}
	if err := d.planLayout(); err != nil {
		return nil, utils.WrapError("dataset "+name, err)
	}
	return d, nil
}

// planLayout plans the regular bin layout once every extent is known, so
// later queries on the collection only read.
func (d *Dataset) planLayout() error {
	r, ok := d.fragments.(*RegularFragments)
	if !ok || d.hasUnknownExtent() {
		return nil
	}
	return r.ensureInitialization()
}

// Name returns the dataset name.
func (d *Dataset) Name() string {
	return d.name
}

// Dims returns the extent per dimension (read-only copy).
func (d *Dataset) Dims() []int64 {
	return clone(d.dims)
}

// ElementSize returns the byte size of one element.
func (d *Dataset) ElementSize() int64 {
	return d.elementSize
}

// Fragments returns the fragment collection.
func (d *Dataset) Fragments() Fragments {
	return d.fragments
}

// Backend returns the registered backend with the given id.
func (d *Dataset) Backend(id string) (Backend, bool) {
	b, ok := d.backends[id]
	return b, ok
}

// Logger returns the dataset's logger.
func (d *Dataset) Logger() logrus.FieldLogger {
	return d.log
}

// Domain returns the dataset extent as a hypercube.
func (d *Dataset) Domain() Hypercube {
	return hypercube.FromOffsetSize(make([]int64, len(d.dims)), d.dims)
}

// hasUnknownExtent reports whether SetDims still has work to do.
func (d *Dataset) hasUnknownExtent() bool {
	for _, n := range d.dims {
		if n == 0 {
			return true
		}
	}
	return false
}

// SetDims fills in unknown extents. Known extents must not change. A
// regular dataset plans its bin layout once the last extent is known.
//
// Returns ErrInvalidState once the fragment layout depends on the shape and
// ErrInvalidArgument when dims conflicts with a known extent.
func (d *Dataset) SetDims(dims []int64) error {
	if len(dims) != len(d.dims) {
		return fmt.Errorf("%w: got %d dims, dataset has %d", ErrInvalidArgument, len(dims), len(d.dims))
	}
	if r, ok := d.fragments.(*RegularFragments); ok && r.coord != nil {
		return fmt.Errorf("%w: regular layout of %s is already planned", ErrInvalidState, d.name)
	}
	if len(d.grids) > 0 {
		return fmt.Errorf("%w: dataset %s has grids", ErrInvalidState, d.name)
	}
	for i, n := range dims {
		if n <= 0 {
			return fmt.Errorf("%w: dimension %d must be positive, got %d", ErrInvalidArgument, i, n)
		}
		if d.dims[i] != 0 && d.dims[i] != n {
			return fmt.Errorf("%w: dimension %d is already %d", ErrInvalidArgument, i, d.dims[i])
		}
	}
	old := clone(d.dims)
	copy(d.dims, dims)
	if err := d.planLayout(); err != nil {
		copy(d.dims, old)
		return err
	}
	return nil
}

// checkSpace validates a caller dataspace against the dataset shape.
func (d *Dataset) checkSpace(space *Dataspace) error {
	if space == nil {
		panic("esdm: nil dataspace")
	}
	if err := space.validate(); err != nil {
		return err
	}
	if space.Dims() != len(d.dims) {
		return fmt.Errorf("%w: dataspace has %d dims, dataset %s has %d", ErrInvalidArgument, space.Dims(), d.name, len(d.dims))
	}
	if space.ElementSize != d.elementSize {
		return fmt.Errorf("%w: dataspace elements are %d bytes, dataset %s uses %d",
			ErrInvalidArgument, space.ElementSize, d.name, d.elementSize)
	}
	for i, n := range d.dims {
		if n == 0 {
			continue
		}
		if space.Offset[i] < 0 || space.Offset[i]+space.Size[i] > n {
			return fmt.Errorf("%w: dataspace %s exceeds dimension %d of %s", ErrInvalidArgument, space, i, d.name)
		}
	}
	return nil
}

// newFragment creates a dirty-to-be fragment for a contiguous space on the
// default backend. The caller fills Buf.
func (d *Dataset) newFragment(space *Dataspace) *Fragment {
	return &Fragment{
		ID:      utils.GenerateID(),
		Space:   space,
		Bytes:   space.Bytes(),
		Status:  FragmentNotLoaded,
		dataset: d,
		backend: d.backend,
	}
}

// fragmentFromBuffer creates a dirty fragment holding a contiguous copy of
// buf laid out as space.
func (d *Dataset) fragmentFromBuffer(space *Dataspace, buf []byte) (*Fragment, error) {
	packedSpace, packed, err := space.MakeContiguous(buf)
	if err != nil {
		return nil, err
	}
	own, err := NewDataspace(packedSpace.Offset, packedSpace.Size, packedSpace.ElementSize)
	if err != nil {
		return nil, err
	}
	f := d.newFragment(own)
	f.Buf = make([]byte, f.Bytes)
	copy(f.Buf, packed)
	f.Status = FragmentDirty
	return f, nil
}

// FragmentFromMetadata creates an unloaded fragment of d held by backend.
// Custom FragmentLoader implementations use it to resolve backends their
// own way.
func (d *Dataset) FragmentFromMetadata(meta FragmentMetadata, backend Backend) (*Fragment, error) {
	if meta.ID == "" {
		return nil, fmt.Errorf("%w: fragment metadata without id", ErrInvalidData)
	}
	if len(meta.Offset) != len(d.dims) {
		return nil, fmt.Errorf("%w: fragment %s has %d dims, dataset %s has %d",
			ErrInvalidData, meta.ID, len(meta.Offset), d.name, len(d.dims))
	}
	space, err := NewDataspace(meta.Offset, meta.Size, d.elementSize)
	if err != nil {
		return nil, fmt.Errorf("%w: fragment %s: %v", ErrInvalidData, meta.ID, err)
	}
	return &Fragment{
		ID:      meta.ID,
		Space:   space,
		Bytes:   space.Bytes(),
		Status:  FragmentNotLoaded,
		dataset: d,
		backend: backend,
	}, nil
}

// Write stores buf, laid out as space, in the dataset. The data is copied;
// it reaches the backend on Commit.
func (d *Dataset) Write(ctx context.Context, space *Dataspace, buf []byte) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := d.checkSpace(space); err != nil {
		return err
	}
	f, err := d.fragmentFromBuffer(space, buf)
	if err != nil {
		return err
	}
	if err := d.fragments.Add(ctx, f); err != nil {
		return utils.WrapError(fmt.Sprintf("write %s to %s", space.Hypercube(), d.name), err)
	}
	return nil
}

// Read fills buf, laid out as space, from the dataset.
//
// Returns ErrIncompleteData when part of the region was never written.
func (d *Dataset) Read(ctx context.Context, space *Dataspace, buf []byte) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := d.checkSpace(space); err != nil {
		return err
	}
	if int64(len(buf)) < space.span() {
		return fmt.Errorf("%w: buffer holds %d bytes, layout needs %d", ErrInvalidArgument, len(buf), space.span())
	}

	region := space.Hypercube()
	if region.IsEmpty() {
		return nil
	}
	frags, err := d.fragments.MakeSetCoveringRegion(region)
	if err != nil {
		return utils.WrapError(fmt.Sprintf("read %s from %s", region, d.name), err)
	}

	extents := make([]Hypercube, len(frags))
	for i, f := range frags {
		extents[i] = f.Extent()
	}
	if !hypercube.DoesCoverFully(extents, region) {
		return fmt.Errorf("%w: %s of %s is not fully written, missing %v",
			ErrIncompleteData, region, d.name, missingParts(region, extents))
	}

	for _, f := range frags {
		if err := f.Load(ctx); err != nil {
			return err
		}
		if err := CopyData(f.Space, f.Buf, space, buf); err != nil {
			return err
		}
	}
	return nil
}

// MissingRegions returns the parts of region that no fragment holds, as
// disjoint hypercubes. Data written through grids is not considered.
func (d *Dataset) MissingRegions(region Hypercube) ([]Hypercube, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if region.Dims() != len(d.dims) {
		return nil, fmt.Errorf("%w: region has %d dims, dataset %s has %d", ErrInvalidArgument, region.Dims(), d.name, len(d.dims))
	}
	frags, err := d.fragments.MakeSetCoveringRegion(region)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("missing regions of %s", d.name), err)
	}
	extents := make([]Hypercube, len(frags))
	for i, f := range frags {
		extents[i] = f.Extent()
	}
	return missingParts(region, extents), nil
}

func missingParts(region Hypercube, extents []Hypercube) []Hypercube {
	rest := hypercube.SetOf(region)
	for _, e := range extents {
		rest.Subtract(e)
	}
	rest.Compact()
	return rest.Cubes()
}

// Commit persists every dirty fragment. Grid fragments are written through
// and are never dirty.
func (d *Dataset) Commit(ctx context.Context) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	var errs []error
	committed := 0
	for _, f := range d.fragments.List() {
		if f == nil || f.Status != FragmentDirty {
			continue
		}
		if err := f.Commit(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		committed++
	}
	d.log.WithField("fragments", committed).Debug("commit")
	return errors.Join(errs...)
}

// Grids returns the root grids of the dataset in creation order.
func (d *Dataset) Grids() []*Grid {
	out := make([]*Grid, len(d.grids))
	copy(out, d.grids)
	return out
}

// CompleteGrids returns the root grids whose every cell holds data, in the
// order they became complete.
func (d *Dataset) CompleteGrids() []*Grid {
	out := make([]*Grid, len(d.completeGrids))
	copy(out, d.completeGrids)
	return out
}

// gridCompleted is called once per root grid reaching completion.
func (d *Dataset) gridCompleted(g *Grid) {
	d.completeGrids = append(d.completeGrids, g)
	gridsCompleted.Inc()
	d.log.WithField("grid", g.id).Debug("grid complete")
}

// Close releases every fragment and grid. The dataset must not be used
// afterwards. Uncommitted data is lost.
func (d *Dataset) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.fragments.Destruct()
	for _, g := range d.grids {
		g.destruct()
	}
	d.grids = nil
	d.completeGrids = nil
	return nil
}

func (d *Dataset) checkOpen() error {
	if d.closed {
		return fmt.Errorf("%w: dataset %s is closed", ErrInvalidState, d.name)
	}
	return nil
}
