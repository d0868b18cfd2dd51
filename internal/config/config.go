// Package config loads the tunables of the decomposition core.
//
// Values come, in increasing priority, from built-in defaults, an optional
// config file (any format viper understands), a .env file in the working
// directory and ESDM_* environment variables. Keys use dashes in files and
// underscores in the environment: max-block-size <-> ESDM_MAX_BLOCK_SIZE.
package config

import (
	"fmt"
	"strings"

	"github.com/ESiWACE/esdm-sub000/internal/filter"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyMaxBlockSize = "max-block-size"
	KeyLogLevel     = "log-level"
	KeyBackendDir   = "backend-dir"
	KeyBlobFilters  = "blob-filters"
)

// Default values.
const (
	DefaultMaxBlockSize = 1024 * 1024 // 1 MiB per regular bin
	DefaultLogLevel     = "info"
)

// Config holds the tunables of the decomposition core.
type Config struct {
	// MaxBlockSize is the target byte size of a regular bin.
	MaxBlockSize int64
	// LogLevel is a logrus level name.
	LogLevel string
	// BackendDir, when set, selects a directory backend rooted there
	// instead of the in-memory backend.
	BackendDir string
	// BlobFilters is the filter chain of the directory backend, e.g.
	// "shuffle,zstd,fletcher32".
	BlobFilters string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxBlockSize: DefaultMaxBlockSize,
		LogLevel:     DefaultLogLevel,
	}
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault(KeyMaxBlockSize, d.MaxBlockSize)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyBackendDir, d.BackendDir)
	v.SetDefault(KeyBlobFilters, d.BlobFilters)

	v.SetEnvPrefix("esdm")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. path may be empty, in which case only the
// defaults, .env and the environment are consulted.
func Load(path string) (Config, error) {
	_ = godotenv.Load(".env")

	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper extracts and validates a Config from v.
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		MaxBlockSize: v.GetInt64(KeyMaxBlockSize),
		LogLevel:     v.GetString(KeyLogLevel),
		BackendDir:   v.GetString(KeyBackendDir),
		BlobFilters:  v.GetString(KeyBlobFilters),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MaxBlockSize <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyMaxBlockSize, c.MaxBlockSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := filter.Parse(c.BlobFilters); err != nil {
		return fmt.Errorf("%s: %w", KeyBlobFilters, err)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	return level, nil
}
