// Package blob abstracts the object store holding clean datasets, the
// property registry and run artifacts. The engine only needs get/put
// with atomic overwrite; cloud backends plug in behind the same
// interface.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("blob: key not found")

// Store is the minimal object-store contract the engine depends on.
type Store interface {
	// Get returns the full contents of a key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes a key atomically: a rerun for the same key replaces
	// the previous object or leaves it untouched, never a torn write.
	Put(ctx context.Context, key string, data []byte) error

	// List returns the keys under a prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
