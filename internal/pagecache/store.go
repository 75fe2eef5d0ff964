// Package pagecache keeps rendered responses for a fixed time and serves them
// back unchanged until they expire or the cache is cleared.
package pagecache

import (
	"context"
	"time"
)

// Store is a byte cache with per-entry expiry.
type Store interface {
	// Get reports whether a live entry exists for key.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear drops every entry owned by the store.
	Clear(ctx context.Context) error
}
