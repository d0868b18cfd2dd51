package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	esdm "github.com/ESiWACE/esdm-sub000"
	"github.com/ESiWACE/esdm-sub000/internal/codec"
	"github.com/tidwall/jsonc"
)

// axesOnly is the part of a grid document needed to size a dataset.
type axesOnly struct {
	Axes [][]int64 `json:"axes" cbor:"axes"`
}

// isCBOR guesses the document encoding from the file name unless forced.
func isCBOR(path string, force bool) bool {
	return force || strings.HasSuffix(path, ".cbor")
}

// loadGrid reads a root grid document into a throwaway dataset whose extent
// reaches the far end of every grid axis. Fragments are attached to
// in-memory stand-ins for the backends they name, so no data is touched.
func loadGrid(path string, cbor bool) (*esdm.Dataset, *esdm.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var head axesOnly
	if cbor {
		err = codec.Unmarshal(data, &head)
	} else {
		err = json.Unmarshal(jsonc.ToJSON(data), &head)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", path, esdm.ErrInvalidData, err)
	}
	dims, err := dimsFromAxes(head.Axes)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	d, err := esdm.NewDataset(path, dims, 1,
		esdm.WithConfig(cfg),
		esdm.WithFragments(esdm.FragmentsList),
		esdm.WithFragmentLoader(standInLoader),
	)
	if err != nil {
		return nil, nil, err
	}

	var g *esdm.Grid
	if cbor {
		g, err = d.GridFromCBOR(data)
	} else {
		g, err = d.GridFromJSON(data)
	}
	if err != nil {
		_ = d.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, g, nil
}

func standInLoader(d *esdm.Dataset, meta esdm.FragmentMetadata) (*esdm.Fragment, error) {
	return d.FragmentFromMetadata(meta, esdm.NewMemoryBackend(meta.Backend))
}

// dimsFromAxes returns the outer end of every axis.
func dimsFromAxes(axes [][]int64) ([]int64, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("%w: document has no axes", esdm.ErrInvalidData)
	}
	dims := make([]int64, len(axes))
	for i, bounds := range axes {
		if len(bounds) < 2 || bounds[len(bounds)-1] <= 0 {
			return nil, fmt.Errorf("%w: axis %d has bounds %v", esdm.ErrInvalidData, i, bounds)
		}
		dims[i] = bounds[len(bounds)-1]
	}
	return dims, nil
}
