// Package store provides the blob stores behind the fragment backends.
//
// A blob is the contiguous byte image of one fragment, addressed by the
// fragment id. Stores copy data on Put and Get, so callers keep ownership of
// their buffers.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by every Store implementation.
var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store persists fragment blobs.
type Store interface {
	// Get returns a copy of the blob stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores a copy of data under key, replacing any previous blob.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// validateKey rejects keys that cannot double as a single file name.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
