package checkpoint

import (
	"context"
	"fmt"
	"io"
)

// Store holds checkpoint files
type Store interface {
	// Ensure creates the checkpoint location if needed. It is idempotent.
	Ensure(ctx context.Context) error
	// Exists reports whether the named checkpoint is complete
	Exists(ctx context.Context, name string) (bool, error)
	// Write stores data under name. A failed write leaves nothing at name.
	Write(ctx context.Context, name string, data []byte) error
	// List returns all file names in the location. A missing location
	// yields an empty list.
	List(ctx context.Context) ([]string, error)
	// Open returns a reader for the named checkpoint
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Location describes where checkpoints are kept, for log output
	Location() string
}

// Backend names
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Config selects and configures a store
type Config struct {
	Backend string
	Dir     string
	S3      S3Config
}

// New creates the store selected by cfg.Backend
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		return NewLocalStore(cfg.Dir), nil
	case BackendS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported checkpoint backend: %s", cfg.Backend)
	}
}

// List returns the checkpoints of store sorted by start index
func List(ctx context.Context, store Store) ([]Entry, error) {
	names, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	return Sort(names)
}
