package esdm

import (
	"context"
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/hypercube"
	"github.com/ESiWACE/esdm-sub000/internal/utils"
	"github.com/sirupsen/logrus"
)

// gridCell is the content of one grid cell. A nil cell is empty; otherwise
// it is either a subgridCell or a fragmentCell, never both.
type gridCell interface {
	isGridCell()
}

type subgridCell struct {
	grid *Grid
}

type fragmentCell struct {
	fragment *Fragment
}

func (subgridCell) isGridCell()  {}
func (fragmentCell) isGridCell() {}

// Grid is a caller-defined partition of a region of a dataset into cells.
// Every cell holds nothing, one fragment or a nested grid covering exactly
// the cell's extent.
//
// Lifecycle:
//   - A new grid has a single cell spanning its whole domain.
//   - Axes may be subdivided until the cells are materialized, which happens
//     on first cell access (write, read, subgrid creation).
//   - Serializing the grid assigns it an id. From then on its structure is
//     fixed: no subdivision and no new subgrids.
//   - Writing the last empty cell completes the grid. Completion of a
//     subgrid fills its cell in the parent; completion of a root grid is
//     reported by Dataset.CompleteGrids.
//
// Grids perform no locking. Callers serialize mutations per dataset.
type Grid struct {
	dataset    *Dataset
	parent     *Grid
	id         string
	emptyCells int64
	cells      []gridCell
	axes       []axis
}

func newGrid(d *Dataset, parent *Grid, offset, size []int64) *Grid {
	g := &Grid{
		dataset:    d,
		parent:     parent,
		emptyCells: 1,
		axes:       make([]axis, len(size)),
	}
	for i := range size {
		g.axes[i] = newAxis(offset[i], offset[i]+size[i])
	}
	return g
}

// CreateGrid creates a root grid over the region [offset, offset+size).
//
// Returns ErrInvalidArgument when the region has the wrong number of
// dimensions, an empty extent or leaves the dataset.
func (d *Dataset) CreateGrid(offset, size []int64) (*Grid, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if len(offset) != len(d.dims) || len(size) != len(d.dims) {
		return nil, fmt.Errorf("%w: grid region has %d/%d dims, dataset %s has %d",
			ErrInvalidArgument, len(offset), len(size), d.name, len(d.dims))
	}
	for i := range size {
		if size[i] <= 0 {
			return nil, fmt.Errorf("%w: grid dimension %d must be positive, got %d", ErrInvalidArgument, i, size[i])
		}
		if d.dims[i] != 0 && (offset[i] < 0 || offset[i]+size[i] > d.dims[i]) {
			return nil, fmt.Errorf("%w: grid dimension %d [%d,%d) exceeds dataset extent %d",
				ErrInvalidArgument, i, offset[i], offset[i]+size[i], d.dims[i])
		}
	}

	g := newGrid(d, nil, offset, size)
	d.grids = append(d.grids, g)
	return g, nil
}

// CreateSimpleGrid creates a root grid over [0, size).
func (d *Dataset) CreateSimpleGrid(size []int64) (*Grid, error) {
	return d.CreateGrid(make([]int64, len(size)), size)
}

// Dataset returns the dataset the grid belongs to.
func (g *Grid) Dataset() *Dataset {
	return g.dataset
}

// Parent returns the enclosing grid, or nil for a root grid.
func (g *Grid) Parent() *Grid {
	return g.parent
}

// ID returns the grid id. It is empty until the grid is serialized.
func (g *Grid) ID() string {
	return g.id
}

// Dims returns the number of dimensions.
func (g *Grid) Dims() int {
	return len(g.axes)
}

// Domain returns the region the grid covers.
func (g *Grid) Domain() Hypercube {
	ranges := make([]Range, len(g.axes))
	for i := range g.axes {
		ranges[i] = Range{Start: g.axes[i].outerBounds[0], End: g.axes[i].outerBounds[1]}
	}
	return hypercube.New(ranges...)
}

// Bounds returns the interval bounds of axis dim (read-only copy).
func (g *Grid) Bounds(dim int) []int64 {
	return g.axes[dim].bounds()
}

// Intervals returns the number of intervals per axis.
func (g *Grid) Intervals() []int64 {
	out := make([]int64, len(g.axes))
	for i := range g.axes {
		out[i] = g.axes[i].intervals
	}
	return out
}

// CellCount returns the number of cells, the product of all interval
// counts.
func (g *Grid) CellCount() int64 {
	n := int64(1)
	for i := range g.axes {
		n *= g.axes[i].intervals
	}
	return n
}

// EmptyCells returns the number of cells without data. A cell holding a
// subgrid counts as empty until the subgrid is complete.
func (g *Grid) EmptyCells() int64 {
	return g.emptyCells
}

// IsComplete reports whether every cell holds data.
func (g *Grid) IsComplete() bool {
	return g.emptyCells == 0
}

// checkMutable reports whether the axes may still change.
func (g *Grid) checkMutable(dim int) error {
	if dim < 0 || dim >= len(g.axes) {
		return fmt.Errorf("%w: dimension %d out of range [0,%d)", ErrInvalidArgument, dim, len(g.axes))
	}
	if g.id != "" {
		return fmt.Errorf("%w: grid %s has a fixed structure", ErrInvalidState, g.id)
	}
	if g.cells != nil {
		return fmt.Errorf("%w: grid cells are already materialized", ErrInvalidState)
	}
	if g.axes[dim].subdivided() {
		return fmt.Errorf("%w: axis %d is already subdivided", ErrInvalidState, dim)
	}
	return nil
}

// SubdivideFixed cuts axis dim into intervals of length size. The last
// interval is shorter when the axis length is not a multiple of size, which
// must be allowed explicitly.
//
// Example:
//
//	// axis [0,10), size 3, allowIncomplete
//	// intervals: [0,3) [3,6) [6,9) [9,10)
func (g *Grid) SubdivideFixed(dim int, size int64, allowIncomplete bool) error {
	if err := g.checkMutable(dim); err != nil {
		return err
	}
	if err := g.axes[dim].subdivideFixed(size, allowIncomplete); err != nil {
		return err
	}
	g.emptyCells = g.CellCount()
	return nil
}

// SubdivideFlexible cuts axis dim into count intervals whose lengths differ
// by at most one.
func (g *Grid) SubdivideFlexible(dim int, count int64) error {
	if err := g.checkMutable(dim); err != nil {
		return err
	}
	if err := g.axes[dim].subdivideFlexible(count); err != nil {
		return err
	}
	g.emptyCells = g.CellCount()
	return nil
}

// Subdivide cuts axis dim at explicit bounds. The first and last bound must
// equal the axis ends and the list must be strictly increasing.
func (g *Grid) Subdivide(dim int, bounds []int64) error {
	if err := g.checkMutable(dim); err != nil {
		return err
	}
	if err := g.axes[dim].subdivide(bounds); err != nil {
		return err
	}
	g.emptyCells = g.CellCount()
	return nil
}

// ensureCells materializes the cell array, freezing the axes.
func (g *Grid) ensureCells() {
	if g.cells != nil {
		return
	}
	n := g.CellCount()
	g.cells = make([]gridCell, n)
	g.emptyCells = n
}

// cellCoordinate converts a row-major cell index to per-axis interval
// indices.
func (g *Grid) cellCoordinate(index int64) []int64 {
	coord := make([]int64, len(g.axes))
	for i := len(g.axes) - 1; i >= 0; i-- {
		coord[i] = index % g.axes[i].intervals
		index /= g.axes[i].intervals
	}
	return coord
}

// cellIndex is the inverse of cellCoordinate.
func (g *Grid) cellIndex(coord []int64) int64 {
	var index int64
	for i := range coord {
		index = index*g.axes[i].intervals + coord[i]
	}
	return index
}

func (g *Grid) cellExtent(index int64) Hypercube {
	coord := g.cellCoordinate(index)
	ranges := make([]Range, len(coord))
	for i, c := range coord {
		ranges[i] = g.axes[i].interval(c)
	}
	return hypercube.New(ranges...)
}

func (g *Grid) checkIndex(index int64) error {
	if index < 0 || index >= g.CellCount() {
		return fmt.Errorf("%w: cell %d out of range [0,%d)", ErrInvalidArgument, index, g.CellCount())
	}
	return nil
}

// CellExtends returns the region covered by the cell at the row-major index.
func (g *Grid) CellExtends(index int64) (Hypercube, error) {
	if err := g.checkIndex(index); err != nil {
		return Hypercube{}, err
	}
	return g.cellExtent(index), nil
}

// CellSize returns the extent per dimension of the cell at index.
func (g *Grid) CellSize(index int64) ([]int64, error) {
	extent, err := g.CellExtends(index)
	if err != nil {
		return nil, err
	}
	_, size := extent.OffsetAndSize()
	return size, nil
}

// Subgrid returns the grid nested in cell index, or nil.
func (g *Grid) Subgrid(index int64) (*Grid, error) {
	if err := g.checkIndex(index); err != nil {
		return nil, err
	}
	if g.cells == nil {
		return nil, nil
	}
	if c, ok := g.cells[index].(subgridCell); ok {
		return c.grid, nil
	}
	return nil, nil
}

// Fragment returns the fragment stored in cell index, or nil.
func (g *Grid) Fragment(index int64) (*Fragment, error) {
	if err := g.checkIndex(index); err != nil {
		return nil, err
	}
	if g.cells == nil {
		return nil, nil
	}
	if c, ok := g.cells[index].(fragmentCell); ok {
		return c.fragment, nil
	}
	return nil, nil
}

// CreateSubgrid nests a new grid in the empty cell at index. The subgrid
// covers exactly the cell's extent and starts with a single cell.
//
// Returns ErrInvalidState when the structure of g is fixed or the cell is
// occupied, and ErrInvalidArgument for an out-of-range index.
func (g *Grid) CreateSubgrid(index int64) (*Grid, error) {
	if g.id != "" {
		return nil, fmt.Errorf("%w: grid %s has a fixed structure", ErrInvalidState, g.id)
	}
	if err := g.checkIndex(index); err != nil {
		return nil, err
	}
	g.ensureCells()
	if g.cells[index] != nil {
		return nil, fmt.Errorf("%w: cell %d is occupied", ErrInvalidState, index)
	}

	offset, size := g.cellExtent(index).OffsetAndSize()
	child := newGrid(g.dataset, g, offset, size)
	g.cells[index] = subgridCell{grid: child}
	return child, nil
}

// cellFilled records that one more cell holds data and propagates
// completion upwards.
func (g *Grid) cellFilled() {
	g.emptyCells--
	if g.emptyCells != 0 {
		return
	}
	if g.parent != nil {
		g.parent.cellFilled()
		return
	}
	g.dataset.gridCompleted(g)
}

// findLeaf descends from g to the leaf cell whose extent equals region.
func (g *Grid) findLeaf(region Hypercube) (*Grid, int64, error) {
	if region.Dims() != len(g.axes) {
		return nil, 0, fmt.Errorf("%w: region has %d dims, grid has %d", ErrInvalidArgument, region.Dims(), len(g.axes))
	}

	cur := g
	for {
		coord := make([]int64, len(cur.axes))
		for i := range cur.axes {
			coord[i] = cur.axes[i].findInterval(region.Range(i).Start)
			if coord[i] < 0 {
				return nil, 0, fmt.Errorf("%w: %s lies outside grid %s", ErrInvalidArgument, region, cur.Domain())
			}
		}
		index := cur.cellIndex(coord)
		cur.ensureCells()

		if sub, ok := cur.cells[index].(subgridCell); ok {
			cur = sub.grid
			continue
		}
		if extent := cur.cellExtent(index); !extent.Equal(region) {
			return nil, 0, fmt.Errorf("%w: %s does not match cell %s", ErrInvalidArgument, region, extent)
		}
		return cur, index, nil
	}
}

// WriteGrid writes buf, laid out as space, into the leaf cell of grid whose
// extent equals the dataspace region. The data is persisted immediately.
//
// The first write to a cell creates its fragment and may complete grids up
// the parent chain. Later writes overwrite the fragment's data.
func (d *Dataset) WriteGrid(ctx context.Context, grid *Grid, space *Dataspace, buf []byte) error {
	if err := d.checkGridAccess(grid, space); err != nil {
		return err
	}
	leaf, index, err := grid.findLeaf(space.Hypercube())
	if err != nil {
		return err
	}

	if c, ok := leaf.cells[index].(fragmentCell); ok {
		f := c.fragment
		if f.Status == FragmentDeleted {
			return fmt.Errorf("%w: fragment %s was released", ErrInvalidState, f.ID)
		}
		f.ensureBuffer()
		if err := CopyData(space, buf, f.Space, f.Buf); err != nil {
			return err
		}
		f.Status = FragmentDirty
		return f.Commit(ctx)
	}

	f, err := d.fragmentFromBuffer(space, buf)
	if err != nil {
		return err
	}
	if err := f.Commit(ctx); err != nil {
		return utils.WrapError("write grid cell", err)
	}
	leaf.cells[index] = fragmentCell{fragment: f}
	gridCellsFilled.Inc()
	d.log.WithFields(logrus.Fields{"cell": index, "fragment": f.ID}).Debug("grid cell filled")
	leaf.cellFilled()
	return nil
}

// ReadGrid fills buf, laid out as space, from the leaf cell of grid whose
// extent equals the dataspace region.
//
// Returns ErrIncompleteData when the cell holds no fragment.
func (d *Dataset) ReadGrid(ctx context.Context, grid *Grid, space *Dataspace, buf []byte) error {
	if err := d.checkGridAccess(grid, space); err != nil {
		return err
	}
	leaf, index, err := grid.findLeaf(space.Hypercube())
	if err != nil {
		return err
	}

	c, ok := leaf.cells[index].(fragmentCell)
	if !ok {
		return fmt.Errorf("%w: grid cell %s holds no data", ErrIncompleteData, leaf.cellExtent(index))
	}
	if err := c.fragment.Load(ctx); err != nil {
		return err
	}
	return CopyData(c.fragment.Space, c.fragment.Buf, space, buf)
}

func (d *Dataset) checkGridAccess(grid *Grid, space *Dataspace) error {
	if grid == nil {
		panic("esdm: nil grid")
	}
	if err := d.checkOpen(); err != nil {
		return err
	}
	if grid.dataset != d {
		return fmt.Errorf("%w: grid belongs to another dataset", ErrInvalidArgument)
	}
	return d.checkSpace(space)
}

// destruct releases the fragments of g and its subgrids.
func (g *Grid) destruct() {
	for _, c := range g.cells {
		switch c := c.(type) {
		case subgridCell:
			c.grid.destruct()
		case fragmentCell:
			c.fragment.Release()
		}
	}
	g.cells = nil
}
