package esdm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ESiWACE/esdm-sub000/internal/config"
	"github.com/ESiWACE/esdm-sub000/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestNewDatasetValidation(t *testing.T) {
	tests := []struct {
		name        string
		dims        []int64
		elementSize int64
		opts        []DatasetOption
	}{
		{name: "no dims", dims: nil, elementSize: 1},
		{name: "negative extent", dims: []int64{4, -1}, elementSize: 1},
		{name: "zero element size", dims: []int64{4}, elementSize: 0},
		{name: "nil backend", dims: []int64{4}, elementSize: 1, opts: []DatasetOption{WithBackend(nil)}},
		{name: "block size", dims: []int64{4}, elementSize: 1, opts: []DatasetOption{WithMaxBlockSize(0)}},
		{name: "nil logger", dims: []int64{4}, elementSize: 1, opts: []DatasetOption{WithLogger(nil)}},
		{name: "nil loader", dims: []int64{4}, elementSize: 1, opts: []DatasetOption{WithFragmentLoader(nil)}},
		{
			name:        "invalid config",
			dims:        []int64{4},
			elementSize: 1,
			opts:        []DatasetOption{WithConfig(config.Config{MaxBlockSize: 1, LogLevel: "loud"})},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataset("bad", tt.dims, tt.elementSize, tt.opts...)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestNewDatasetOptionErrorsCarryContext(t *testing.T) {
	_, err := NewDataset("temperature", []int64{4}, 1, WithMaxBlockSize(-1))
	var esdmErr *utils.ESDMError
	require.ErrorAs(t, err, &esdmErr)
	require.Equal(t, "dataset temperature", esdmErr.Context)
}

func TestDatasetDefaults(t *testing.T) {
	d := newTestDataset(t, []int64{3, 5})
	require.Equal(t, "test", d.Name())
	require.Equal(t, []int64{3, 5}, d.Dims())
	require.Equal(t, int64(1), d.ElementSize())
	require.Equal(t, "[0,3)x[0,5)", d.Domain().String())
	require.IsType(t, &RegularFragments{}, d.Fragments())

	b, ok := d.Backend("memory")
	require.True(t, ok)
	require.Equal(t, "memory", b.ID())

	// Dims returns a copy.
	d.Dims()[0] = 99
	require.Equal(t, []int64{3, 5}, d.Dims())
}

func TestDatasetWithConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.MaxBlockSize = 16
	cfg.BackendDir = dir
	cfg.LogLevel = "debug"

	d := newTestDataset(t, []int64{10, 10}, WithConfig(cfg))
	layout, err := regularOf(t, d).Layout()
	require.NoError(t, err)
	require.Equal(t, []int64{4, 4}, layout.BinSize)

	b, ok := d.Backend("dir")
	require.True(t, ok)

	writeBlock(t, d, []int64{0, 0}, []int64{4, 4}, bytes.Repeat([]byte{1}, 16))
	require.NoError(t, d.Commit(context.Background()))

	bin := d.Fragments().List()[0]
	require.Same(t, b, bin.Backend())
	_, err = os.Stat(filepath.Join(dir, bin.ID+".blob"))
	require.NoError(t, err)
}

func TestDatasetOptionsOverrideConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxBlockSize = 16
	d := newTestDataset(t, []int64{10, 10}, WithConfig(cfg), WithMaxBlockSize(DefaultMaxBlockSize))

	layout, err := regularOf(t, d).Layout()
	require.NoError(t, err)
	require.Equal(t, int64(1), layout.TotalBins)
}

func TestDatasetLogsWithDatasetField(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	d := newTestDataset(t, []int64{8}, WithLogger(logger), WithMaxBlockSize(4))
	writeBlock(t, d, []int64{0}, []int64{8}, seq(0, 8))

	require.NotEmpty(t, hook.AllEntries())
	for _, entry := range hook.AllEntries() {
		require.Equal(t, "test", entry.Data["dataset"])
	}
}

func TestDatasetCommitMakesBinsPersistent(t *testing.T) {
	ctx := context.Background()
	d := newTestDataset(t, []int64{10, 10}, WithMaxBlockSize(16))
	writeBlock(t, d, []int64{1, 1}, []int64{6, 6}, seq(0, 36))

	require.NoError(t, d.Commit(ctx))
	for _, f := range d.Fragments().List() {
		if f == nil {
			continue
		}
		require.Equal(t, FragmentPersistent, f.Status)
		require.NoError(t, f.Unload())
	}

	got, err := readBlock(t, d, []int64{1, 1}, []int64{6, 6})
	require.NoError(t, err)
	require.Equal(t, seq(0, 36), got)
}

type failingBackend struct {
	Backend
}

func (failingBackend) Update(context.Context, *Fragment) error {
	return os.ErrPermission
}

func TestDatasetCommitJoinsErrors(t *testing.T) {
	d := newTestDataset(t, []int64{4}, WithFragments(FragmentsList), WithBackend(failingBackend{NewMemoryBackend("ro")}))
	writeBlock(t, d, []int64{0}, []int64{2}, []byte{1, 2})
	writeBlock(t, d, []int64{2}, []int64{2}, []byte{3, 4})

	err := d.Commit(context.Background())
	require.ErrorIs(t, err, os.ErrPermission)
	require.Equal(t, 2, strings.Count(err.Error(), "permission denied"))
	for _, f := range d.Fragments().List() {
		require.Equal(t, FragmentDirty, f.Status)
	}
}

func TestDatasetRejectsMismatchedSpaces(t *testing.T) {
	d := newTestDataset(t, []int64{4, 4})
	ctx := context.Background()

	tests := []struct {
		name        string
		offset      []int64
		size        []int64
		elementSize int64
	}{
		{name: "dims", offset: []int64{0}, size: []int64{4}, elementSize: 1},
		{name: "element size", offset: []int64{0, 0}, size: []int64{2, 2}, elementSize: 2},
		{name: "outside", offset: []int64{3, 0}, size: []int64{2, 2}, elementSize: 1},
		{name: "negative offset", offset: []int64{-1, 0}, size: []int64{2, 2}, elementSize: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			space, err := NewDataspace(tt.offset, tt.size, tt.elementSize)
			require.NoError(t, err)
			buf := make([]byte, space.Bytes())
			require.ErrorIs(t, d.Write(ctx, space, buf), ErrInvalidArgument)
			require.ErrorIs(t, d.Read(ctx, space, buf), ErrInvalidArgument)
		})
	}

	space, err := NewDataspace([]int64{0, 0}, []int64{2, 2}, 1)
	require.NoError(t, err)
	require.ErrorIs(t, d.Write(ctx, space, make([]byte, 3)), ErrInvalidArgument)
	require.ErrorIs(t, d.Read(ctx, space, make([]byte, 3)), ErrInvalidArgument)
}

func TestDatasetClose(t *testing.T) {
	ctx := context.Background()
	d, err := NewDataset("closing", []int64{4}, 1)
	require.NoError(t, err)
	writeBlock(t, d, []int64{0}, []int64{4}, []byte{1, 2, 3, 4})
	bin := d.Fragments().List()[0]

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	require.Equal(t, FragmentDeleted, bin.Status)

	space, err := NewDataspace([]int64{0}, []int64{4}, 1)
	require.NoError(t, err)
	buf := make([]byte, 4)
	require.ErrorIs(t, d.Write(ctx, space, buf), ErrInvalidState)
	require.ErrorIs(t, d.Read(ctx, space, buf), ErrInvalidState)
	require.ErrorIs(t, d.Commit(ctx), ErrInvalidState)
	_, err = d.CreateSimpleGrid([]int64{4})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestFragmentLifecycle(t *testing.T) {
	ctx := context.Background()
	d := newTestDataset(t, []int64{4})
	space, err := NewDataspace([]int64{0}, []int64{4}, 1)
	require.NoError(t, err)

	f := d.newFragment(space)
	require.Equal(t, FragmentNotLoaded, f.Status)
	require.Equal(t, "not-loaded", f.Status.String())
	require.Len(t, f.ID, 23)

	f.Buf = []byte{1, 2, 3, 4}
	f.Status = FragmentDirty
	require.True(t, f.IsLoaded())
	require.ErrorIs(t, f.Unload(), ErrInvalidState)

	require.NoError(t, f.Commit(ctx))
	require.Equal(t, "persistent", f.Status.String())
	require.NoError(t, f.Commit(ctx))

	f.Release()
	require.Equal(t, FragmentDeleted, f.Status)
	require.ErrorIs(t, f.Load(ctx), ErrInvalidState)
	require.Equal(t, "status(9)", FragmentStatus(9).String())

	require.Equal(t, FragmentMetadata{ID: f.ID, Offset: []int64{0}, Size: []int64{4}, Backend: "memory"}, f.Metadata())
	require.Contains(t, f.String(), f.ID)
}

func TestFragmentFromMetadataValidation(t *testing.T) {
	d := newTestDataset(t, []int64{4, 4})
	b := NewMemoryBackend("mem")

	tests := []struct {
		name string
		meta FragmentMetadata
	}{
		{name: "missing id", meta: FragmentMetadata{Offset: []int64{0, 0}, Size: []int64{1, 1}}},
		{name: "dims", meta: FragmentMetadata{ID: "a", Offset: []int64{0}, Size: []int64{1}}},
		{name: "size length", meta: FragmentMetadata{ID: "a", Offset: []int64{0, 0}, Size: []int64{1}}},
		{name: "negative size", meta: FragmentMetadata{ID: "a", Offset: []int64{0, 0}, Size: []int64{1, -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.FragmentFromMetadata(tt.meta, b)
			require.ErrorIs(t, err, ErrInvalidData)
		})
	}
}
