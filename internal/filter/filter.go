// Package filter transforms fragment blobs on their way to and from a
// store.
//
// Filters are applied in sequence on write and reversed on read:
//
//	write: data → shuffle → zstd → fletcher32 → stored
//	read:  stored → fletcher32 → zstd → shuffle → data
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFilter is returned by Parse for names it does not know.
var ErrUnknownFilter = errors.New("unknown filter")

// Filter is one reversible blob transformation.
type Filter interface {
	// Name returns the name Parse accepts for the filter.
	Name() string

	// Apply transforms data on the write path. elementSize is the byte
	// size of one dataset element; data holds whole elements.
	Apply(data []byte, elementSize int) ([]byte, error)

	// Remove reverses Apply.
	Remove(data []byte, elementSize int) ([]byte, error)
}

// Pipeline is an ordered chain of filters. The zero value and nil are
// empty pipelines that pass data through.
type Pipeline struct {
	filters []Filter
}

// New creates a pipeline applying filters in the given order.
func New(filters ...Filter) *Pipeline {
	return &Pipeline{filters: filters}
}

// Parse builds a pipeline from a comma-separated list of filter names,
// e.g. "shuffle,zstd,fletcher32". An empty list yields an empty pipeline.
func Parse(list string) (*Pipeline, error) {
	p := &Pipeline{}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		f, err := byName(name)
		if err != nil {
			return nil, err
		}
		p.filters = append(p.filters, f)
	}
	return p, nil
}

func byName(name string) (Filter, error) {
	switch strings.ToLower(name) {
	case "shuffle":
		return Shuffle(), nil
	case "zstd":
		return Zstd(), nil
	case "lz4":
		return LZ4(), nil
	case "fletcher32":
		return Fletcher32(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
}

// Apply runs every filter in order (write path).
func (p *Pipeline) Apply(data []byte, elementSize int) ([]byte, error) {
	if p == nil {
		return data, nil
	}
	result := data
	for _, f := range p.filters {
		var err error
		result, err = f.Apply(result, elementSize)
		if err != nil {
			return nil, fmt.Errorf("filter %s failed: %w", f.Name(), err)
		}
	}
	return result, nil
}

// Remove runs every filter in reverse order (read path).
func (p *Pipeline) Remove(data []byte, elementSize int) ([]byte, error) {
	if p == nil {
		return data, nil
	}
	result := data
	for i := len(p.filters) - 1; i >= 0; i-- {
		f := p.filters[i]
		var err error
		result, err = f.Remove(result, elementSize)
		if err != nil {
			return nil, fmt.Errorf("filter %s remove failed: %w", f.Name(), err)
		}
	}
	return result, nil
}

// IsEmpty reports whether the pipeline passes data through unchanged.
func (p *Pipeline) IsEmpty() bool {
	return p == nil || len(p.filters) == 0
}

// String returns the filter names in Parse syntax.
func (p *Pipeline) String() string {
	if p == nil {
		return ""
	}
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = f.Name()
	}
	return strings.Join(names, ",")
}
