package query

import (
	"context"
	"fmt"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEVEL PROGRESS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetLevelProgressQuery contains the lookup parameters.
type GetLevelProgressQuery struct {
	// UserID - whose progress to compute.
	UserID string
}

// Validate checks the query.
func (q GetLevelProgressQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	return nil
}

// LevelProgressDTO is the level bar shown under the profile header.
type LevelProgressDTO struct {
	Level         int     `json:"level"`
	Title         string  `json:"title,omitempty"`
	TotalXP       int     `json:"total_xp"`
	NextLevel     int     `json:"next_level,omitempty"`
	XPToNext      int     `json:"xp_to_next"`
	PercentToNext float64 `json:"percent_to_next"`
	AtMaxLevel    bool    `json:"at_max_level"`
}

// GetLevelProgressHandler computes the level bar from the profile's
// lifetime XP and the level table.
type GetLevelProgressHandler struct {
	profileRepo profile.Repository
	catalog     *CatalogService
}

// NewGetLevelProgressHandler creates a new handler.
func NewGetLevelProgressHandler(profileRepo profile.Repository, catalog *CatalogService) *GetLevelProgressHandler {
	return &GetLevelProgressHandler{profileRepo: profileRepo, catalog: catalog}
}

// Handle returns the level bar for a user.
func (h *GetLevelProgressHandler) Handle(ctx context.Context, q GetLevelProgressQuery) (*LevelProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p, err := h.profileRepo.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	table, err := h.catalog.Levels(ctx)
	if err != nil {
		return nil, err
	}

	dto := toLevelProgressDTO(skill.CurrentAndNextLevel(table, p.TotalXPEarned))
	return &dto, nil
}

func toLevelProgressDTO(progress skill.LevelProgress) LevelProgressDTO {
	dto := LevelProgressDTO{
		Level:         progress.Current.LevelNumber,
		Title:         progress.Current.Title,
		TotalXP:       progress.XP,
		XPToNext:      progress.XPToNext(),
		PercentToNext: progress.PercentToNext(),
		AtMaxLevel:    progress.Next == nil,
	}
	if progress.Next != nil {
		dto.NextLevel = progress.Next.LevelNumber
	}
	return dto
}
