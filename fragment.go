package esdm

import (
	"context"
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/utils"
)

// FragmentStatus is the lifecycle state of a fragment's data.
type FragmentStatus int

const (
	// FragmentNotLoaded means the data lives only in the backend.
	FragmentNotLoaded FragmentStatus = iota
	// FragmentLoading means a backend retrieve is in progress.
	FragmentLoading
	// FragmentDirty means Buf holds data the backend has not seen.
	FragmentDirty
	// FragmentPersistent means Buf matches the backend.
	FragmentPersistent
	// FragmentDeleted means the fragment was released and must not be used.
	FragmentDeleted
)

// String returns the status name.
func (s FragmentStatus) String() string {
	switch s {
	case FragmentNotLoaded:
		return "not-loaded"
	case FragmentLoading:
		return "loading"
	case FragmentDirty:
		return "dirty"
	case FragmentPersistent:
		return "persistent"
	case FragmentDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Fragment is a materialized rectangular piece of a dataset.
//
// Buf always holds the region in contiguous row-major layout and is nil
// while the fragment is not loaded.
type Fragment struct {
	ID     string
	Space  *Dataspace
	Buf    []byte
	Bytes  int64
	Status FragmentStatus

	dataset *Dataset
	backend Backend
}

// FragmentMetadata identifies a fragment inside serialized grid documents.
type FragmentMetadata struct {
	ID      string  `json:"id" cbor:"id"`
	Offset  []int64 `json:"offset" cbor:"offset"`
	Size    []int64 `json:"size" cbor:"size"`
	Backend string  `json:"backend" cbor:"backend"`
}

// FragmentLoader turns serialized fragment metadata back into a fragment of
// d. The fragment is expected to be unloaded; its data is retrieved from the
// backend on first access.
type FragmentLoader func(d *Dataset, meta FragmentMetadata) (*Fragment, error)

// DefaultFragmentLoader resolves meta.Backend among the backends registered
// with d.
func DefaultFragmentLoader(d *Dataset, meta FragmentMetadata) (*Fragment, error) {
	backend, ok := d.backends[meta.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: fragment %s refers to unknown backend %q", ErrInvalidData, meta.ID, meta.Backend)
	}
	return d.FragmentFromMetadata(meta, backend)
}

// Dataset returns the dataset the fragment belongs to.
func (f *Fragment) Dataset() *Dataset {
	return f.dataset
}

// Backend returns the backend holding the fragment's data.
func (f *Fragment) Backend() Backend {
	return f.backend
}

// Extent returns the region of the dataset the fragment covers.
func (f *Fragment) Extent() Hypercube {
	return f.Space.Hypercube()
}

// IsLoaded reports whether Buf holds the fragment's data.
func (f *Fragment) IsLoaded() bool {
	return f.Buf != nil && (f.Status == FragmentDirty || f.Status == FragmentPersistent)
}

// Metadata returns the serialized identity of f.
func (f *Fragment) Metadata() FragmentMetadata {
	meta := FragmentMetadata{
		ID:     f.ID,
		Offset: clone(f.Space.Offset),
		Size:   clone(f.Space.Size),
	}
	if f.backend != nil {
		meta.Backend = f.backend.ID()
	}
	return meta
}

// Load retrieves the fragment's data from its backend unless it is already
// in memory.
func (f *Fragment) Load(ctx context.Context) error {
	switch f.Status {
	case FragmentDeleted:
		return fmt.Errorf("%w: fragment %s was released", ErrInvalidState, f.ID)
	case FragmentDirty, FragmentPersistent:
		if f.Buf != nil {
			return nil
		}
	}
	if f.backend == nil {
		return fmt.Errorf("%w: fragment %s has no backend", ErrInvalidState, f.ID)
	}

	f.Status = FragmentLoading
	f.Buf = make([]byte, f.Bytes)
	if err := f.backend.Retrieve(ctx, f); err != nil {
		f.Buf = nil
		f.Status = FragmentNotLoaded
		return utils.WrapError(fmt.Sprintf("retrieve fragment %s from %s", f.ID, f.backend.ID()), err)
	}
	f.Status = FragmentPersistent
	return nil
}

// Commit writes dirty data to the backend.
func (f *Fragment) Commit(ctx context.Context) error {
	if f.Status != FragmentDirty {
		return nil
	}
	if f.backend == nil {
		return fmt.Errorf("%w: fragment %s has no backend", ErrInvalidState, f.ID)
	}
	if err := f.backend.Update(ctx, f); err != nil {
		return utils.WrapError(fmt.Sprintf("update fragment %s in %s", f.ID, f.backend.ID()), err)
	}
	f.Status = FragmentPersistent
	return nil
}

// Unload drops the in-memory copy of persisted data.
// Dirty fragments cannot be unloaded.
func (f *Fragment) Unload() error {
	switch f.Status {
	case FragmentDirty:
		return fmt.Errorf("%w: fragment %s has uncommitted data", ErrInvalidState, f.ID)
	case FragmentPersistent:
		f.Buf = nil
		f.Status = FragmentNotLoaded
	}
	return nil
}

// Release drops the fragment's buffer and marks it deleted.
func (f *Fragment) Release() {
	f.Buf = nil
	f.Status = FragmentDeleted
}

// ensureBuffer allocates a zeroed buffer when the caller is about to
// overwrite the full region.
func (f *Fragment) ensureBuffer() {
	if f.Buf == nil {
		f.Buf = make([]byte, f.Bytes)
	}
}

// String returns a short description of f.
func (f *Fragment) String() string {
	return fmt.Sprintf("fragment %s %s (%s)", f.ID, f.Extent(), f.Status)
}
