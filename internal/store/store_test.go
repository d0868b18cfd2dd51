package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	dir, err := NewDir(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemory(),
		"dir":    dir,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			data := []byte{1, 2, 3, 4}
			require.NoError(t, s.Put(ctx, "frag-1", data))

			data[0] = 99 // the store keeps its own copy
			got, err := s.Get(ctx, "frag-1")
			require.NoError(t, err)
			require.Equal(t, []byte{1, 2, 3, 4}, got)

			require.NoError(t, s.Put(ctx, "frag-1", []byte{7}))
			got, err = s.Get(ctx, "frag-1")
			require.NoError(t, err)
			require.Equal(t, []byte{7}, got)

			require.NoError(t, s.Delete(ctx, "frag-1"))
			require.NoError(t, s.Delete(ctx, "frag-1"))
			_, err = s.Get(ctx, "frag-1")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "..", "a/b", `a\b`} {
				require.ErrorIs(t, s.Put(ctx, key, nil), ErrInvalidKey, "key %q", key)
				_, err := s.Get(ctx, key)
				require.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
			}
		})
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, s.Put(ctx, "k", []byte{1}), context.Canceled)
			_, err := s.Get(ctx, "k")
			require.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestMemoryConcurrentUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			require.NoError(t, m.Put(ctx, key, []byte{byte(i)}))
			got, err := m.Get(ctx, key)
			require.NoError(t, err)
			require.Equal(t, []byte{byte(i)}, got)
		}(i)
	}
	wg.Wait()
	require.Equal(t, 16, m.Len())
}
