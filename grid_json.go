package esdm

import (
	"encoding/json"
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/codec"
	"github.com/ESiWACE/esdm-sub000/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/jsonc"
)

// gridDocument is the serialized form of a grid:
//
//	{"axes": [[b0, b1, ...], ...], "id": "...", "grid": [cell, ...]}
//
// with one bound list per dimension and one cell per grid cell in row-major
// order. A cell is {} when empty, {"grid": {...}} for a subgrid or
// {"fragment": {...}} for fragment metadata.
type gridDocument struct {
	Axes [][]int64      `json:"axes" cbor:"axes"`
	ID   string         `json:"id" cbor:"id"`
	Grid []cellDocument `json:"grid" cbor:"grid"`
}

type cellDocument struct {
	Grid     *gridDocument     `json:"grid,omitempty" cbor:"grid,omitempty"`
	Fragment *FragmentMetadata `json:"fragment,omitempty" cbor:"fragment,omitempty"`
}

// document serializes g, assigning ids to g and its subgrids on the way.
func (g *Grid) document() *gridDocument {
	if g.id == "" {
		g.id = utils.GenerateID()
	}

	doc := &gridDocument{
		Axes: make([][]int64, len(g.axes)),
		ID:   g.id,
		Grid: make([]cellDocument, g.CellCount()),
	}
	for i := range g.axes {
		doc.Axes[i] = g.axes[i].bounds()
	}
	for i, c := range g.cells {
		switch c := c.(type) {
		case subgridCell:
			doc.Grid[i].Grid = c.grid.document()
		case fragmentCell:
			meta := c.fragment.Metadata()
			doc.Grid[i].Fragment = &meta
		}
	}
	return doc
}

// MarshalJSON implements json.Marshaler. Serializing fixes the structure of
// the grid and its subgrids.
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.document())
}

// MarshalBinary implements encoding.BinaryMarshaler with the CBOR form of
// the JSON document.
func (g *Grid) MarshalBinary() ([]byte, error) {
	return codec.Marshal(g.document())
}

// GridFromJSON reconstructs a root grid from its JSON document and attaches
// it to d. Comments and trailing commas are accepted.
//
// Fragments referenced by the document are created by the dataset's
// FragmentLoader. On any error nothing is attached to d.
//
// Returns ErrInvalidData for malformed documents.
func (d *Dataset) GridFromJSON(data []byte) (*Grid, error) {
	doc, err := parseGridJSON(data)
	if err != nil {
		return nil, err
	}
	return d.attachGrid(doc)
}

// GridFromCBOR is GridFromJSON for documents produced by MarshalBinary.
func (d *Dataset) GridFromCBOR(data []byte) (*Grid, error) {
	var doc gridDocument
	if err := codec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return d.attachGrid(&doc)
}

func parseGridJSON(data []byte) (*gridDocument, error) {
	var doc gridDocument
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &doc, nil
}

func (d *Dataset) attachGrid(doc *gridDocument) (*Grid, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	g, err := d.gridFromDocument(doc, nil, nil)
	if err != nil {
		return nil, err
	}
	d.grids = append(d.grids, g)
	if g.IsComplete() {
		d.gridCompleted(g)
	}
	return g, nil
}

// gridFromDocument builds a detached grid. When domain is non-nil the grid
// must cover exactly that region. Partially built state is released on
// error.
func (d *Dataset) gridFromDocument(doc *gridDocument, parent *Grid, domain *Hypercube) (*Grid, error) {
	if len(doc.Axes) != len(d.dims) {
		return nil, fmt.Errorf("%w: grid has %d axes, dataset %s has %d dims", ErrInvalidData, len(doc.Axes), d.name, len(d.dims))
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: grid without id", ErrInvalidData)
	}

	g := &Grid{dataset: d, parent: parent, id: doc.ID, axes: make([]axis, len(doc.Axes))}
	for i, bounds := range doc.Axes {
		a, err := axisFromBounds(bounds)
		if err != nil {
			return nil, fmt.Errorf("%w: grid %s axis %d: %v", ErrInvalidData, doc.ID, i, err)
		}
		g.axes[i] = a
	}
	if domain != nil && !g.Domain().Equal(*domain) {
		return nil, fmt.Errorf("%w: subgrid %s covers %s, cell is %s", ErrInvalidData, doc.ID, g.Domain(), *domain)
	}
	if domain == nil && !d.hasUnknownExtent() && !d.Domain().Contains(g.Domain()) {
		return nil, fmt.Errorf("%w: grid %s covers %s, dataset %s is %s", ErrInvalidData, doc.ID, g.Domain(), d.name, d.Domain())
	}

	count, err := utils.Product(g.Intervals())
	if err != nil || count != int64(len(doc.Grid)) {
		return nil, fmt.Errorf("%w: grid %s has %d cells, axes define %d", ErrInvalidData, doc.ID, len(doc.Grid), count)
	}

	g.ensureCells()
	for i := range doc.Grid {
		filled, err := g.fillFromDocument(int64(i), &doc.Grid[i])
		if err != nil {
			g.destruct()
			return nil, err
		}
		if filled {
			g.emptyCells--
		}
	}
	return g, nil
}

// fillFromDocument installs the serialized content of an empty cell and
// reports whether the cell now holds complete data. The caller accounts for
// the filled cell.
func (g *Grid) fillFromDocument(index int64, cd *cellDocument) (bool, error) {
	d := g.dataset
	extent := g.cellExtent(index)

	switch {
	case cd.Grid != nil && cd.Fragment != nil:
		return false, fmt.Errorf("%w: cell %d holds both a grid and a fragment", ErrInvalidData, index)

	case cd.Grid != nil:
		child, err := d.gridFromDocument(cd.Grid, g, &extent)
		if err != nil {
			return false, err
		}
		g.cells[index] = subgridCell{grid: child}
		return child.IsComplete(), nil

	case cd.Fragment != nil:
		f, err := d.loader(d, *cd.Fragment)
		if err != nil {
			return false, fmt.Errorf("%w: cell %d: %v", ErrInvalidData, index, err)
		}
		if !f.Extent().Equal(extent) {
			f.Release()
			return false, fmt.Errorf("%w: fragment %s covers %s, cell is %s", ErrInvalidData, f.ID, f.Extent(), extent)
		}
		g.cells[index] = fragmentCell{fragment: f}
		return true, nil
	}
	return false, nil
}

// MergeWithJSON fills the empty cells of g from a peer's serialized snapshot
// of the same grid. Cells that already hold data keep it. Subgrids are
// merged recursively; an empty local cell receives the peer's subgrid.
// Completion propagates as if the cells had been written locally.
//
// Returns ErrInvalidData when the document is malformed or describes a grid
// with a different id or different axes. Cells merged before an error stay
// merged.
func (g *Grid) MergeWithJSON(data []byte) error {
	doc, err := parseGridJSON(data)
	if err != nil {
		return err
	}
	return g.merge(doc)
}

// MergeWithCBOR is MergeWithJSON for CBOR documents.
func (g *Grid) MergeWithCBOR(data []byte) error {
	var doc gridDocument
	if err := codec.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return g.merge(&doc)
}

func (g *Grid) merge(doc *gridDocument) error {
	if doc.ID == "" || doc.ID != g.id {
		return fmt.Errorf("%w: grid id %q does not match %q", ErrInvalidData, doc.ID, g.id)
	}
	if len(doc.Axes) != len(g.axes) {
		return fmt.Errorf("%w: grid %s has %d axes, document has %d", ErrInvalidData, g.id, len(g.axes), len(doc.Axes))
	}
	for i, bounds := range doc.Axes {
		a, err := axisFromBounds(bounds)
		if err != nil || !a.equal(&g.axes[i]) {
			return fmt.Errorf("%w: grid %s axis %d differs", ErrInvalidData, g.id, i)
		}
	}
	if int64(len(doc.Grid)) != g.CellCount() {
		return fmt.Errorf("%w: grid %s has %d cells, document has %d", ErrInvalidData, g.id, g.CellCount(), len(doc.Grid))
	}

	g.ensureCells()
	filled := 0
	for i := range doc.Grid {
		cd := &doc.Grid[i]
		index := int64(i)

		switch local := g.cells[index].(type) {
		case nil:
			if cd.Grid == nil && cd.Fragment == nil {
				continue
			}
			complete, err := g.fillFromDocument(index, cd)
			if err != nil {
				return err
			}
			filled++
			if complete {
				gridCellsFilled.Inc()
				g.cellFilled()
			}

		case subgridCell:
			if cd.Grid != nil {
				if err := local.grid.merge(cd.Grid); err != nil {
					return err
				}
			}
		}
	}

	gridMerges.Inc()
	g.dataset.log.WithFields(logrus.Fields{"grid": g.id, "cells": filled}).Debug("grid merged")
	return nil
}
