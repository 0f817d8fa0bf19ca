// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG SERVICE
// Cache-aside access to the reference tables. The catalog changes rarely,
// so every read-side handler goes through here instead of the database.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogService serves master stats, skills and the level table.
type CatalogService struct {
	repo  skill.CatalogRepository
	cache skill.CatalogCache
}

// NewCatalogService creates a new CatalogService. The cache is optional.
func NewCatalogService(repo skill.CatalogRepository, cache skill.CatalogCache) *CatalogService {
	return &CatalogService{repo: repo, cache: cache}
}

// Catalog returns the master stats and skills, cache first.
func (s *CatalogService) Catalog(ctx context.Context) ([]skill.MasterStat, []skill.Skill, error) {
	if s.cache != nil {
		stats, skills, err := s.cache.GetCatalog(ctx)
		if err == nil {
			return stats, skills, nil
		}
	}

	stats, err := s.repo.ListMasterStats(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: failed to list master stats: %w", err)
	}
	skills, err := s.repo.ListSkills(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: failed to list skills: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.SetCatalog(ctx, stats, skills, 0)
	}
	return stats, skills, nil
}

// Levels returns the level table, cache first.
func (s *CatalogService) Levels(ctx context.Context) (skill.LevelTable, error) {
	if s.cache != nil {
		rows, err := s.cache.GetLevels(ctx)
		if err == nil {
			if table, terr := skill.NewLevelTable(rows); terr == nil {
				return table, nil
			}
		}
	}

	rows, err := s.repo.ListLevels(ctx)
	if err != nil {
		return skill.LevelTable{}, fmt.Errorf("catalog: failed to list levels: %w", err)
	}
	table, err := skill.NewLevelTable(rows)
	if err != nil {
		return skill.LevelTable{}, err
	}

	if s.cache != nil {
		_ = s.cache.SetLevels(ctx, table.Levels(), 0)
	}
	return table, nil
}

// Refresh reloads the reference tables into the cache. The warmup job
// calls this on a schedule.
func (s *CatalogService) Refresh(ctx context.Context) error {
	stats, err := s.repo.ListMasterStats(ctx)
	if err != nil {
		return fmt.Errorf("catalog refresh: %w", err)
	}
	skills, err := s.repo.ListSkills(ctx)
	if err != nil {
		return fmt.Errorf("catalog refresh: %w", err)
	}
	levels, err := s.repo.ListLevels(ctx)
	if err != nil {
		return fmt.Errorf("catalog refresh: %w", err)
	}

	if s.cache == nil {
		return nil
	}
	if err := s.cache.SetCatalog(ctx, stats, skills, 0); err != nil {
		return fmt.Errorf("catalog refresh: %w", err)
	}
	if err := s.cache.SetLevels(ctx, levels, 0); err != nil {
		return fmt.Errorf("catalog refresh: %w", err)
	}
	return nil
}
