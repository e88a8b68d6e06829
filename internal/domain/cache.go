package domain

import (
	"context"
	"time"
)

// CacheError represents an error originating from the cache.
type CacheError string

func (e CacheError) Error() string {
	return string(e)
}

// ErrCacheMiss is returned when a key is not found in the cache.
const ErrCacheMiss = CacheError("cache: key not found")

// Cache is the port for the shared cache. The grounding index keeps extracted
// pages in it as one hash per document; embeddings are stored as plain keys.
type Cache interface {
	// Get returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. An expiration of 0 keeps the key indefinitely.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error

	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks the health of the cache service.
	Ping(ctx context.Context) error

	// HGetAll returns ErrCacheMiss when the hash does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HSet writes all fields of the hash and refreshes its expiration.
	HSet(ctx context.Context, key string, fields map[string]string, expiration time.Duration) error
}
