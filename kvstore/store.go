// Package kvstore defines the key/value Store used for read caching and
// watermark persistence, along with Redis, Etcd, file, and in-process
// implementations.
package kvstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Store.Get when a key is absent or expired.
var ErrNotFound = errors.New("key not found")

// Store is a byte-valued key/value store with optional expiry.
type Store interface {
	// Get the value of |key|, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set |key| to |value|. A zero |ttl| never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete |key|. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// FlushAll removes every key of the Store. It's intended for maintenance only.
	FlushAll(ctx context.Context) error
}
