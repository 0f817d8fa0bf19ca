package query

import (
	"context"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOOLBOX QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ToolDefinitionDTO is one library row.
type ToolDefinitionDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	XPReward    int      `json:"xp_reward"`
	SkillIDs    []string `json:"skill_ids"`
}

// UserToolDTO is one toolbox item with its tracker state.
type UserToolDTO struct {
	ID         string    `json:"id"`
	ToolID     string    `json:"tool_id"`
	Name       string    `json:"name"`
	XPReward   int       `json:"xp_reward"`
	UsageCount int       `json:"usage_count"`
	UsedToday  bool      `json:"used_today"`
	AddedAt    time.Time `json:"added_at"`
}

// ListToolboxQuery lists a user's toolbox.
type ListToolboxQuery struct {
	// UserID - owner.
	UserID string
}

// Validate checks the query.
func (q ListToolboxQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	return nil
}

// ListToolboxHandler serves the toolbox list.
type ListToolboxHandler struct {
	library mastery.LibraryRepository
	toolbox mastery.ToolboxRepository
}

// NewListToolboxHandler creates a new handler.
func NewListToolboxHandler(library mastery.LibraryRepository, toolbox mastery.ToolboxRepository) *ListToolboxHandler {
	return &ListToolboxHandler{library: library, toolbox: toolbox}
}

// Library returns the addable tool definitions.
func (h *ListToolboxHandler) Library(ctx context.Context) ([]ToolDefinitionDTO, error) {
	defs, err := h.library.ListToolDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("tool library: %w", err)
	}
	out := make([]ToolDefinitionDTO, 0, len(defs))
	for _, d := range defs {
		out = append(out, ToolDefinitionDTO{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Category:    d.Category,
			XPReward:    d.XPReward,
			SkillIDs:    d.SkillIDs,
		})
	}
	return out, nil
}

// Handle returns the user's toolbox with today's usage flag.
func (h *ListToolboxHandler) Handle(ctx context.Context, q ListToolboxQuery) ([]UserToolDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	tools, err := h.toolbox.ListUserTools(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list toolbox: %w", err)
	}

	now := time.Now().UTC()
	today := timeutil.StartOfDay(now)

	out := make([]UserToolDTO, 0, len(tools))
	for _, tool := range tools {
		usages, err := h.toolbox.ListUsages(ctx, tool.ID, today, now)
		if err != nil {
			return nil, fmt.Errorf("list toolbox: %w", err)
		}

		out = append(out, UserToolDTO{
			ID:         tool.ID,
			ToolID:     tool.ToolID,
			Name:       tool.Name,
			XPReward:   tool.XPReward,
			UsageCount: tool.UsageCount,
			UsedToday:  len(usages) > 0,
			AddedAt:    tool.AddedAt,
		})
	}
	return out, nil
}
