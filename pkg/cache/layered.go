package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads through an in-process L1 to a shared L2, usually
// Redis. Writes go to L2 first so a failed L2 write never leaves an entry
// that only this process can see.
type LayeredCache struct {
	l1 *MemoryCache
	l2 Service
}

func NewLayeredCache(l1 *MemoryCache, l2 Service) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.l1.Set(ctx, key, value, expiration)
}

// Get promotes an L2 hit into L1 with L1's default TTL.
func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := lc.l1.Get(ctx, key, dest)
	if err == nil || !errors.Is(err, ErrCacheMiss) {
		return err
	}
	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, dest, 0)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	return errors.Join(lc.l1.Close(), lc.l2.Close())
}
