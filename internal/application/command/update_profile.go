package command

import (
	"context"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PROFILE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateProfileCommand contains the editable profile fields. Nil pointers
// leave the current value untouched.
type UpdateProfileCommand struct {
	// UserID identifies the profile.
	UserID string

	// DisplayName replaces the display name when set.
	DisplayName *string

	// AvatarURL replaces the avatar when set. An empty string clears it.
	AvatarURL *string
}

// Validate validates the command.
func (c UpdateProfileCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: update_profile: user_id is required", shared.ErrValidation)
	}
	if c.DisplayName == nil && c.AvatarURL == nil {
		return fmt.Errorf("%w: update_profile: nothing to update", shared.ErrValidation)
	}
	if c.DisplayName != nil && *c.DisplayName == "" {
		return fmt.Errorf("%w: update_profile: display_name cannot be empty", shared.ErrValidation)
	}
	return nil
}

// UpdateProfileHandler handles the UpdateProfileCommand.
type UpdateProfileHandler struct {
	profileRepo profile.Repository
	cache       profile.Cache
}

// NewUpdateProfileHandler creates a new UpdateProfileHandler.
func NewUpdateProfileHandler(profileRepo profile.Repository, cache profile.Cache) *UpdateProfileHandler {
	return &UpdateProfileHandler{profileRepo: profileRepo, cache: cache}
}

// Handle executes the update profile command.
func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*profile.Profile, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_profile: validation failed: %w", err)
	}

	p, err := h.profileRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("update_profile: failed to load profile: %w", err)
	}

	displayName := p.DisplayName
	if cmd.DisplayName != nil {
		displayName = *cmd.DisplayName
	}
	avatarURL := p.AvatarURL
	if cmd.AvatarURL != nil {
		avatarURL = *cmd.AvatarURL
	}

	if err := p.UpdateDetails(displayName, avatarURL); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()

	if err := h.profileRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update_profile: failed to update profile: %w", err)
	}

	if h.cache != nil {
		_ = h.cache.Invalidate(ctx, p.ID)
	}

	return p, nil
}
