package redis

import (
	"context"
	"errors"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
)

// ProfileCache implements the profile.Cache interface using the generic
// Redis Cache.
type ProfileCache struct {
	cache *Cache
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(cache *Cache) *ProfileCache {
	return &ProfileCache{cache: cache}
}

// Get fetches a profile from the cache.
// Returns shared.ErrNotFound on a miss.
func (c *ProfileCache) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	var p profile.Profile
	if err := c.cache.Get(ctx, ProfileKey(userID), &p); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Set stores a profile in the cache.
func (c *ProfileCache) Set(ctx context.Context, p *profile.Profile, ttl time.Duration) error {
	if p == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = TTLProfileCache
	}
	return c.cache.Set(ctx, ProfileKey(p.ID), p, ttl)
}

// Invalidate drops all cached entries of a user.
func (c *ProfileCache) Invalidate(ctx context.Context, userID string) error {
	return c.cache.Delete(ctx, ProfileKey(userID), DashboardKey(userID))
}
