// Package archive stores backtest results in cold storage.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/crossover/internal/core"
)

// ErrNotFound is returned by Read when nothing is stored at the path.
var ErrNotFound = errors.New("archive: not found")

// Storage defines the interface for cold/archive storage backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend
type Config struct {
	Type string // "local" or "s3"
	Path string // local base directory
	S3   S3Config
}

// New creates the backend named by cfg.Type.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		if cfg.Path == "" {
			return nil, core.WrapError(core.ErrConfigMissing, errors.New("storage.cold.path is required for local storage"))
		}
		return NewLocalFS(cfg.Path)
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, core.WrapError(core.ErrConfigMissing, errors.New("storage.cold.s3.bucket is required"))
		}
		return NewS3(cfg.S3)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}
