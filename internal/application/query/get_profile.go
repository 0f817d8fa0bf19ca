package query

import (
	"context"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetProfileQuery contains the lookup parameters.
type GetProfileQuery struct {
	// UserID - internal profile ID.
	UserID string
}

// Validate checks the query.
func (q GetProfileQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	return nil
}

// ProfileDTO is the read-side projection of a profile. The password hash
// and billing references never leave the application layer.
type ProfileDTO struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	DisplayName        string    `json:"display_name"`
	AvatarURL          string    `json:"avatar_url,omitempty"`
	Role               string    `json:"role"`
	Level              int       `json:"level"`
	CurrentXP          int       `json:"current_xp"`
	TotalXPEarned      int       `json:"total_xp_earned"`
	SubscriptionStatus string    `json:"subscription_status"`
	HasActiveAccess    bool      `json:"has_active_access"`
	CreatedAt          time.Time `json:"created_at"`
}

// GetProfileHandler serves profile lookups with a cache in front.
type GetProfileHandler struct {
	repo  profile.Repository
	cache profile.Cache
}

// NewGetProfileHandler creates a new handler. The cache is optional.
func NewGetProfileHandler(repo profile.Repository, cache profile.Cache) *GetProfileHandler {
	return &GetProfileHandler{repo: repo, cache: cache}
}

// Handle returns the profile projection.
func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (*ProfileDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p, err := h.load(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	return NewProfileDTO(p), nil
}

func (h *GetProfileHandler) load(ctx context.Context, userID string) (*profile.Profile, error) {
	if h.cache != nil {
		if p, err := h.cache.Get(ctx, userID); err == nil {
			return p, nil
		}
	}

	p, err := h.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		_ = h.cache.Set(ctx, p, 0)
	}
	return p, nil
}

// NewProfileDTO projects a profile entity into its public shape.
func NewProfileDTO(p *profile.Profile) *ProfileDTO {
	return &ProfileDTO{
		ID:                 p.ID,
		Email:              p.Email,
		DisplayName:        p.DisplayName,
		AvatarURL:          p.AvatarURL,
		Role:               string(p.Role),
		Level:              p.Level,
		CurrentXP:          p.CurrentXP,
		TotalXPEarned:      p.TotalXPEarned,
		SubscriptionStatus: string(p.SubscriptionStatus),
		HasActiveAccess:    p.HasActiveAccess(),
		CreatedAt:          p.CreatedAt,
	}
}
