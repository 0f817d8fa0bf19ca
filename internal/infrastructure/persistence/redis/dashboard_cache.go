package redis

import (
	"context"
	"errors"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/application/query"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// DashboardCache implements query.DashboardCache on Redis.
type DashboardCache struct {
	cache *Cache
}

// NewDashboardCache creates a new DashboardCache.
func NewDashboardCache(cache *Cache) *DashboardCache {
	return &DashboardCache{cache: cache}
}

// Get fetches a cached dashboard.
func (c *DashboardCache) Get(ctx context.Context, userID string) (*query.DashboardDTO, error) {
	var dto query.DashboardDTO
	if err := c.cache.Get(ctx, DashboardKey(userID), &dto); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &dto, nil
}

// Set stores a dashboard snapshot.
func (c *DashboardCache) Set(ctx context.Context, userID string, dto *query.DashboardDTO, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLDashboardCache
	}
	return c.cache.Set(ctx, DashboardKey(userID), dto, ttl)
}
