// Package cache provides the read cache used in front of the record store.
// The only consistency requirement is delete-on-write: mutations invalidate
// before the response is sent, reads may serve slightly stale totals.
package cache

import (
	"context"
	"time"
)

// Cache is a minimal byte cache. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Noop is used when no cache backend is configured.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, nil
}

func (Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (Noop) Delete(ctx context.Context, keys ...string) error {
	return nil
}
