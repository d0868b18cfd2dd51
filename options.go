package esdm

import (
	"fmt"

	"github.com/ESiWACE/esdm-sub000/internal/config"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBlockSize is the target byte size of a regular bin.
const DefaultMaxBlockSize = config.DefaultMaxBlockSize

// DatasetOption configures a Dataset during creation.
// This follows the functional options pattern.
//
// Example:
//
//	d, err := esdm.NewDataset("pressure", []int64{512, 512}, 4,
//	    esdm.WithMaxBlockSize(256*1024),
//	    esdm.WithFragments(esdm.FragmentsList),
//	)
type DatasetOption func(*Dataset) error

// WithBackend registers b with the dataset and makes it the backend of
// fragments created from now on. Registered backends are also used to
// resolve fragment metadata in grid documents.
func WithBackend(b Backend) DatasetOption {
	return func(d *Dataset) error {
		if b == nil {
			return fmt.Errorf("%w: nil backend", ErrInvalidArgument)
		}
		d.backends[b.ID()] = b
		d.backend = b
		return nil
	}
}

// WithFragments selects the fragment collection.
//
// Default: FragmentsRegular.
func WithFragments(kind FragmentsKind) DatasetOption {
	return func(d *Dataset) error {
		switch kind {
		case FragmentsRegular, FragmentsList:
			d.fragmentsKind = kind
			return nil
		default:
			return fmt.Errorf("%w: unknown fragments kind %v", ErrInvalidArgument, kind)
		}
	}
}

// WithMaxBlockSize sets the target byte size of a regular bin.
//
// Default: DefaultMaxBlockSize (1 MiB).
func WithMaxBlockSize(n int64) DatasetOption {
	return func(d *Dataset) error {
		if n <= 0 {
			return fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidArgument, n)
		}
		d.maxBlockSize = n
		return nil
	}
}

// WithLogger sets the logger. The dataset adds a "dataset" field.
//
// Default: logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) DatasetOption {
	return func(d *Dataset) error {
		if l == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidArgument)
		}
		d.log = l
		return nil
	}
}

// WithFragmentLoader sets how fragment metadata from grid documents becomes
// fragments.
//
// Default: DefaultFragmentLoader.
func WithFragmentLoader(loader FragmentLoader) DatasetOption {
	return func(d *Dataset) error {
		if loader == nil {
			return fmt.Errorf("%w: nil fragment loader", ErrInvalidArgument)
		}
		d.loader = loader
		return nil
	}
}

// WithConfig applies a loaded configuration: block size and log level. A
// non-empty BackendDir registers a directory backend with id "dir",
// filtered by BlobFilters, and makes it the default.
//
// Options given after WithConfig override its values.
func WithConfig(c config.Config) DatasetOption {
	return func(d *Dataset) error {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		level, _ := c.Level()

		logger := logrus.New()
		logger.SetLevel(level)
		d.log = logger

		d.maxBlockSize = c.MaxBlockSize

		if c.BackendDir != "" {
			b, err := NewDirBackend("dir", c.BackendDir, WithBlobFilters(c.BlobFilters))
			if err != nil {
				return err
			}
			d.backends[b.ID()] = b
			d.backend = b
		}
		return nil
	}
}
