package esdm

import "fmt"

// GridIterator walks the fragments of a complete grid in row-major cell
// order, descending into subgrids where they occur.
//
// Usage:
//
//	iter, err := grid.Iterator()
//	if err != nil {
//	    return err
//	}
//	for f := iter.Next(); f != nil; f = iter.Next() {
//	    process(f)
//	}
//
// Next returns nil once every leaf was visited, and keeps returning nil
// until Reset is called. The grid must not change during iteration.
type GridIterator struct {
	root  *Grid
	stack []iteratorFrame
}

// iteratorFrame is the position inside one grid level. next is the index of
// the cell to visit next.
type iteratorFrame struct {
	grid *Grid
	next int64
}

// Iterator returns an iterator over the leaf fragments of g.
//
// Returns ErrIncompleteData if some cell of g holds no data yet.
func (g *Grid) Iterator() (*GridIterator, error) {
	if !g.IsComplete() {
		return nil, fmt.Errorf("%w: grid has %d empty cells", ErrIncompleteData, g.emptyCells)
	}
	it := &GridIterator{root: g}
	it.Reset()
	return it, nil
}

// Reset rewinds the iterator to the first leaf.
func (it *GridIterator) Reset() {
	it.stack = append(it.stack[:0], iteratorFrame{grid: it.root})
}

// Next returns the next leaf fragment, or nil at the end.
func (it *GridIterator) Next() *Fragment {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.next >= int64(len(top.grid.cells)) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		c := top.grid.cells[top.next]
		top.next++
		switch c := c.(type) {
		case subgridCell:
			it.stack = append(it.stack, iteratorFrame{grid: c.grid})
		case fragmentCell:
			return c.fragment
		}
	}
	return nil
}

// Cell returns the cell index path of the fragment last returned by Next,
// outermost grid first. It is nil before the first call to Next and after
// the end.
func (it *GridIterator) Cell() []int64 {
	if len(it.stack) == 0 {
		return nil
	}
	path := make([]int64, len(it.stack))
	for i, frame := range it.stack {
		path[i] = frame.next - 1
	}
	if path[len(path)-1] < 0 {
		return nil
	}
	return path
}
