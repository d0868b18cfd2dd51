package esdm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/filter"
	"github.com/ESiWACE/esdm-sub000/internal/store"
)

// Backend persists fragment data.
//
// Both callbacks work on exactly f.Bytes bytes of f.Buf. Retrieve fills a
// buffer the caller already allocated; a missing or short blob is an error.
type Backend interface {
	// ID names the backend inside fragment metadata.
	ID() string
	// Retrieve fills f.Buf from storage.
	Retrieve(ctx context.Context, f *Fragment) error
	// Update writes f.Buf to storage.
	Update(ctx context.Context, f *Fragment) error
}

// ErrFragmentNotFound is returned by Retrieve when storage holds no data for
// the fragment.
var ErrFragmentNotFound = errors.New("fragment data not found")

// StoreBackend is a Backend on top of a blob store keyed by fragment id.
type StoreBackend struct {
	id      string
	blobs   store.Store
	filters *filter.Pipeline
}

// BackendOption configures a StoreBackend.
type BackendOption func(*StoreBackend) error

// WithBlobFilters runs blobs through a comma-separated list of filters on
// write and reverses them on read. Known filters are shuffle, zstd,
// lz4 and fletcher32, e.g. "shuffle,zstd,fletcher32".
func WithBlobFilters(list string) BackendOption {
	return func(b *StoreBackend) error {
		p, err := filter.Parse(list)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		b.filters = p
		return nil
	}
}

// NewMemoryBackend returns a backend that keeps blobs in process memory.
// It is safe to share between datasets.
func NewMemoryBackend(id string) *StoreBackend {
	return &StoreBackend{id: id, blobs: store.NewMemory()}
}

// NewDirBackend returns a backend that keeps one file per fragment below
// dir. Files are replaced atomically.
func NewDirBackend(id, dir string, opts ...BackendOption) (*StoreBackend, error) {
	blobs, err := store.NewDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dir backend %s: %w", id, err)
	}
	b := &StoreBackend{id: id, blobs: blobs}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("dir backend %s: %w", id, err)
		}
	}
	return b, nil
}

// ID implements Backend.
func (b *StoreBackend) ID() string {
	return b.id
}

// Retrieve implements Backend.
func (b *StoreBackend) Retrieve(ctx context.Context, f *Fragment) error {
	backendRetrieves.Inc()
	if int64(len(f.Buf)) < f.Bytes {
		backendFailures.Inc()
		return fmt.Errorf("%w: buffer holds %d bytes, fragment has %d", ErrInvalidArgument, len(f.Buf), f.Bytes)
	}

	data, err := b.blobs.Get(ctx, f.ID)
	if err != nil {
		backendFailures.Inc()
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrFragmentNotFound, f.ID)
		}
		return err
	}
	data, err = b.filters.Remove(data, int(f.Space.ElementSize))
	if err != nil {
		backendFailures.Inc()
		return fmt.Errorf("fragment %s: %w", f.ID, err)
	}
	if int64(len(data)) < f.Bytes {
		backendFailures.Inc()
		return fmt.Errorf("short blob for fragment %s: got %d bytes, want %d", f.ID, len(data), f.Bytes)
	}
	copy(f.Buf[:f.Bytes], data)
	return nil
}

// Update implements Backend.
func (b *StoreBackend) Update(ctx context.Context, f *Fragment) error {
	backendUpdates.Inc()
	if int64(len(f.Buf)) < f.Bytes {
		backendFailures.Inc()
		return fmt.Errorf("%w: buffer holds %d bytes, fragment has %d", ErrInvalidArgument, len(f.Buf), f.Bytes)
	}
	data, err := b.filters.Apply(f.Buf[:f.Bytes], int(f.Space.ElementSize))
	if err != nil {
		backendFailures.Inc()
		return fmt.Errorf("fragment %s: %w", f.ID, err)
	}
	if err := b.blobs.Put(ctx, f.ID, data); err != nil {
		backendFailures.Inc()
		return err
	}
	return nil
}

// Delete removes the fragment's blob.
func (b *StoreBackend) Delete(ctx context.Context, f *Fragment) error {
	return b.blobs.Delete(ctx, f.ID)
}
