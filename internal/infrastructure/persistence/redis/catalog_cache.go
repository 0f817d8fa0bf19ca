package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG CACHE
// The skill catalog and level table are tiny and change only on deploys,
// so they are cached whole. The worker warms them on a schedule.
// ══════════════════════════════════════════════════════════════════════════════

const (
	catalogSectionStats  = "master_stats"
	catalogSectionSkills = "skills"
	catalogSectionLevels = "levels"
)

// CatalogCache implements skill.CatalogCache on Redis.
type CatalogCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewCatalogCache creates a new CatalogCache with the default TTL.
func NewCatalogCache(cache *Cache) *CatalogCache {
	return &CatalogCache{cache: cache, ttl: TTLCatalogCache}
}

// GetCatalog fetches the cached catalog.
func (c *CatalogCache) GetCatalog(ctx context.Context) ([]skill.MasterStat, []skill.Skill, error) {
	var stats []skill.MasterStat
	if err := c.cache.Get(ctx, CatalogKey(catalogSectionStats), &stats); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil, shared.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get cached master stats: %w", err)
	}

	var skills []skill.Skill
	if err := c.cache.Get(ctx, CatalogKey(catalogSectionSkills), &skills); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil, shared.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get cached skills: %w", err)
	}

	return stats, skills, nil
}

// SetCatalog stores the catalog with a TTL.
func (c *CatalogCache) SetCatalog(ctx context.Context, stats []skill.MasterStat, skills []skill.Skill, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.cache.Set(ctx, CatalogKey(catalogSectionStats), stats, ttl); err != nil {
		return fmt.Errorf("failed to cache master stats: %w", err)
	}
	if err := c.cache.Set(ctx, CatalogKey(catalogSectionSkills), skills, ttl); err != nil {
		return fmt.Errorf("failed to cache skills: %w", err)
	}
	return nil
}

// GetLevels fetches the cached level table.
func (c *CatalogCache) GetLevels(ctx context.Context) ([]skill.Level, error) {
	var levels []skill.Level
	if err := c.cache.Get(ctx, CatalogKey(catalogSectionLevels), &levels); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cached levels: %w", err)
	}
	return levels, nil
}

// SetLevels stores the level table with a TTL.
func (c *CatalogCache) SetLevels(ctx context.Context, levels []skill.Level, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.cache.Set(ctx, CatalogKey(catalogSectionLevels), levels, ttl); err != nil {
		return fmt.Errorf("failed to cache levels: %w", err)
	}
	return nil
}

// Invalidate drops all cached catalog data.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.cache.Delete(ctx,
		CatalogKey(catalogSectionStats),
		CatalogKey(catalogSectionSkills),
		CatalogKey(catalogSectionLevels),
	)
}
