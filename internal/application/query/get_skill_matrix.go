package query

import (
	"context"
	"fmt"

	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SKILL MATRIX QUERY
// The profile page's radar chart: per-category point totals laid out as
// chart geometry, plus the derived level state.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultRadarSize is the canvas size used when the query does not set one.
const DefaultRadarSize = 400

// GetSkillMatrixQuery contains the lookup parameters.
type GetSkillMatrixQuery struct {
	// UserID - whose matrix to compute.
	UserID string

	// RadarSize - square canvas size in pixels, defaulted when zero.
	RadarSize float64
}

// Validate checks the query and applies defaults.
func (q *GetSkillMatrixQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	if q.RadarSize <= 0 {
		q.RadarSize = DefaultRadarSize
	}
	return nil
}

// CategoryDTO is one radar axis with its point totals.
type CategoryDTO struct {
	MasterStatID string  `json:"master_stat_id"`
	Name         string  `json:"name"`
	Points       float64 `json:"points"`
	Display      float64 `json:"display"`
}

// SkillMatrixDTO is the assembled radar view.
type SkillMatrixDTO struct {
	UserID     string           `json:"user_id"`
	Categories []CategoryDTO    `json:"categories"`
	Radar      skill.RadarChart `json:"radar"`
	TotalXP    int              `json:"total_xp"`
	Level      LevelProgressDTO `json:"level"`
}

// GetSkillMatrixHandler assembles the radar view.
type GetSkillMatrixHandler struct {
	catalog  *CatalogService
	progress skill.ProgressRepository
}

// NewGetSkillMatrixHandler creates a new handler.
func NewGetSkillMatrixHandler(catalog *CatalogService, progress skill.ProgressRepository) *GetSkillMatrixHandler {
	return &GetSkillMatrixHandler{catalog: catalog, progress: progress}
}

// Handle computes the matrix from the catalog and the user's point rows.
func (h *GetSkillMatrixHandler) Handle(ctx context.Context, q GetSkillMatrixQuery) (*SkillMatrixDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	stats, skills, err := h.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	userSkills, err := h.progress.ListUserSkills(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("skill matrix: failed to list user skills: %w", err)
	}

	categories := skill.AggregateByCategory(stats, skills, userSkills)
	totalXP := skill.TotalXP(categories)

	table, err := h.catalog.Levels(ctx)
	if err != nil {
		return nil, err
	}
	progress := skill.CurrentAndNextLevel(table, totalXP)

	dto := &SkillMatrixDTO{
		UserID:     q.UserID,
		Categories: make([]CategoryDTO, 0, len(categories)),
		Radar:      skill.RadarFromCategories(categories, q.RadarSize),
		TotalXP:    totalXP,
		Level:      toLevelProgressDTO(progress),
	}
	for _, c := range categories {
		dto.Categories = append(dto.Categories, CategoryDTO{
			MasterStatID: c.MasterStatID,
			Name:         c.Name,
			Points:       c.RawPoints,
			Display:      c.Display,
		})
	}
	return dto, nil
}
