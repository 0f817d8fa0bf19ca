package eventhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON TOOL USED HANDLER
// The toolbox twin of the habit handler: a logged usage feeds points to
// every skill the tool's definition is linked to.
// ═══════════════════════════════════════════════════════════════════════════

// OnToolUsedHandler awards skill points for tool usages.
type OnToolUsedHandler struct {
	library      mastery.LibraryRepository
	progressRepo skill.ProgressRepository
	cache        profileInvalidator
	logger       *slog.Logger
}

// NewOnToolUsedHandler creates a new handler.
func NewOnToolUsedHandler(
	library mastery.LibraryRepository,
	progressRepo skill.ProgressRepository,
	cache profileInvalidator,
	logger *slog.Logger,
) *OnToolUsedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnToolUsedHandler{
		library:      library,
		progressRepo: progressRepo,
		cache:        cache,
		logger:       logger.With("handler", "on_tool_used"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnToolUsedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	used, ok := event.(shared.ToolUsedEvent)
	if !ok {
		h.logger.Warn("received unexpected event", "event_type", event.EventType())
		return nil
	}

	def, err := h.library.GetToolDefinition(ctx, used.ToolID)
	if err != nil {
		if errors.Is(err, mastery.ErrToolNotFound) {
			h.logger.Warn("tool definition gone, no skill points awarded",
				"tool_id", used.ToolID,
			)
			return nil
		}
		return fmt.Errorf("on_tool_used: %w", err)
	}

	for _, skillID := range def.SkillIDs {
		if err := h.progressRepo.AddPoints(ctx, used.UserID, skillID, mastery.SkillPointsPerToolUsage); err != nil {
			return fmt.Errorf("on_tool_used: failed to add points to skill %s: %w", skillID, err)
		}
	}

	if h.cache != nil {
		_ = h.cache.Invalidate(ctx, used.UserID)
	}

	h.logger.Info("skill points awarded",
		"user_id", used.UserID,
		"tool_id", used.ToolID,
		"skills", len(def.SkillIDs),
	)
	return nil
}
