package esdm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreBackends(t *testing.T) {
	dir, err := NewDirBackend("dir", t.TempDir())
	require.NoError(t, err)

	backends := []*StoreBackend{NewMemoryBackend("mem"), dir}
	for _, b := range backends {
		t.Run(b.ID(), func(t *testing.T) {
			ctx := context.Background()
			d := newTestDataset(t, []int64{4}, WithBackend(b))
			space, err := NewDataspace([]int64{0}, []int64{4}, 1)
			require.NoError(t, err)

			f := d.newFragment(space)
			f.Buf = []byte{1, 2, 3, 4}
			f.Status = FragmentDirty
			require.Same(t, b, f.Backend())

			require.NoError(t, f.Commit(ctx))
			require.Equal(t, FragmentPersistent, f.Status)
			require.NoError(t, f.Unload())
			require.Nil(t, f.Buf)

			require.NoError(t, f.Load(ctx))
			require.Equal(t, []byte{1, 2, 3, 4}, f.Buf)

			require.NoError(t, b.Delete(ctx, f))
			require.NoError(t, f.Unload())
			err = f.Load(ctx)
			require.ErrorIs(t, err, ErrFragmentNotFound)
			require.Equal(t, FragmentNotLoaded, f.Status)
			require.Nil(t, f.Buf)
		})
	}
}

func TestDirBackendShortBlob(t *testing.T) {
	root := t.TempDir()
	b, err := NewDirBackend("dir", root)
	require.NoError(t, err)
	d := newTestDataset(t, []int64{8}, WithBackend(b))

	f, err := d.FragmentFromMetadata(FragmentMetadata{ID: "short", Offset: []int64{0}, Size: []int64{8}}, b)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "short.blob"), []byte{1, 2, 3}, 0o644))

	err = f.Load(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "short blob")
	require.False(t, f.IsLoaded())
}

func TestBackendRejectsSmallBuffer(t *testing.T) {
	b := NewMemoryBackend("mem")
	d := newTestDataset(t, []int64{4}, WithBackend(b))
	space, err := NewDataspace([]int64{0}, []int64{4}, 1)
	require.NoError(t, err)

	f := d.newFragment(space)
	f.Buf = []byte{1}
	require.ErrorIs(t, b.Update(context.Background(), f), ErrInvalidArgument)
	require.ErrorIs(t, b.Retrieve(context.Background(), f), ErrInvalidArgument)
}

func TestMemoryBackendSharedBetweenDatasets(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend("shared")
	writer := newTestDataset(t, []int64{4}, WithBackend(b), WithFragments(FragmentsList))
	writeBlock(t, writer, []int64{0}, []int64{4}, []byte{9, 8, 7, 6})
	require.NoError(t, writer.Commit(ctx))
	meta := writer.Fragments().List()[0].Metadata()
	require.Equal(t, "shared", meta.Backend)

	reader := newTestDataset(t, []int64{4}, WithBackend(b))
	f, err := DefaultFragmentLoader(reader, meta)
	require.NoError(t, err)
	require.NoError(t, f.Load(ctx))
	require.Equal(t, []byte{9, 8, 7, 6}, f.Buf)

	meta.Backend = "elsewhere"
	_, err = DefaultFragmentLoader(reader, meta)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestDirBackendBlobFilters(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	b, err := NewDirBackend("dir", root, WithBlobFilters("shuffle,zstd,fletcher32"))
	require.NoError(t, err)

	d, err := NewDataset("filtered", []int64{512}, 8, WithBackend(b), WithFragments(FragmentsList))
	require.NoError(t, err)
	defer d.Close()

	data := make([]byte, 512*8)
	for i := range 512 {
		data[8*i] = byte(i)
	}
	writeBlock(t, d, []int64{0}, []int64{512}, data)
	require.NoError(t, d.Commit(ctx))

	f := d.Fragments().List()[0]
	path := filepath.Join(root, f.ID+".blob")
	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Less(t, len(stored), len(data))

	require.NoError(t, f.Unload())
	got, err := readBlock(t, d, []int64{0}, []int64{512})
	require.NoError(t, err)
	require.Equal(t, data, got)

	stored[len(stored)/2] ^= 0xff
	require.NoError(t, os.WriteFile(path, stored, 0o644))
	require.NoError(t, f.Unload())
	_, err = readBlock(t, d, []int64{0}, []int64{512})
	require.Error(t, err)
	require.False(t, f.IsLoaded())
}

func TestWithBlobFiltersRejectsUnknown(t *testing.T) {
	_, err := NewDirBackend("dir", t.TempDir(), WithBlobFilters("shuffle,bogus"))
	require.ErrorIs(t, err, ErrInvalidArgument)
}
