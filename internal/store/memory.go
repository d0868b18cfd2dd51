package store

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// Memory is an in-process Store. It is safe for concurrent use, so several
// datasets may share one instance.
type Memory struct {
	blobs *xsync.MapOf[string, []byte]
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: xsync.NewMapOf[string, []byte]()}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, ok := m.blobs.Load(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	m.blobs.Store(key, owned)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	m.blobs.Delete(key)
	return nil
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	return m.blobs.Size()
}
