// Package cache provides the byte cache used in front of the upstream
// market-data client. Cache failures are advisory: callers fall through
// to the upstream on any miss or error.
package cache

import (
	"context"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache defines the key-value operations used by the market-data layer.
type Cache interface {
	// Get retrieves a value. found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores a value with a TTL. A zero TTL stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// =============================================================================
// No-Op Cache (for disabled mode)
// =============================================================================

// NoopCache is a cache that never stores anything.
type NoopCache struct{}

// NewNoopCache creates a cache that always misses.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Get always reports a miss.
func (c *NoopCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set does nothing.
func (c *NoopCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NoopCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Ping does nothing.
func (c *NoopCache) Ping(ctx context.Context) error {
	return nil
}

// Close does nothing.
func (c *NoopCache) Close() error {
	return nil
}
