package command

import (
	"context"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// USE TOOL COMMAND
// Logs a toolbox usage and awards XP. Unlike habit completions, usages
// have no per-day cap.
// ══════════════════════════════════════════════════════════════════════════════

// UseToolCommand contains the usage request.
type UseToolCommand struct {
	// UserID uses the tool.
	UserID string

	// UserToolID is the toolbox item.
	UserToolID string

	// UsedAt is when it happened (defaults to now).
	UsedAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UseToolCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: use_tool: user_id is required", shared.ErrValidation)
	}
	if c.UserToolID == "" {
		return fmt.Errorf("%w: use_tool: user_tool_id is required", shared.ErrValidation)
	}
	return nil
}

// UseToolResult contains the updated toolbox state.
type UseToolResult struct {
	// Tool is the toolbox item after the usage.
	Tool *mastery.UserTool

	// XPEarned is the XP granted for this usage.
	XPEarned int

	// LeveledUp reports whether the XP crossed a level threshold.
	LeveledUp bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UseToolHandler handles the UseToolCommand.
type UseToolHandler struct {
	toolbox        mastery.ToolboxRepository
	awardXP        *AwardXPHandler
	eventPublisher shared.EventPublisher
}

// NewUseToolHandler creates a new UseToolHandler.
func NewUseToolHandler(
	toolbox mastery.ToolboxRepository,
	awardXP *AwardXPHandler,
	eventPublisher shared.EventPublisher,
) *UseToolHandler {
	return &UseToolHandler{
		toolbox:        toolbox,
		awardXP:        awardXP,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the use tool command.
func (h *UseToolHandler) Handle(ctx context.Context, cmd UseToolCommand) (*UseToolResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("use_tool: validation failed: %w", err)
	}

	usedAt := cmd.UsedAt
	if usedAt.IsZero() {
		usedAt = time.Now().UTC()
	}

	tool, err := h.toolbox.GetUserTool(ctx, cmd.UserToolID)
	if err != nil {
		return nil, err
	}
	if tool.UserID != cmd.UserID {
		return nil, mastery.ErrToolNotFound
	}

	usage := tool.Use(uuid.NewString(), usedAt)
	if err := h.toolbox.RecordUsage(ctx, usage); err != nil {
		return nil, err
	}
	if err := h.toolbox.UpdateUserTool(ctx, tool); err != nil {
		return nil, err
	}

	award, err := h.awardXP.Handle(ctx, AwardXPCommand{
		UserID:        cmd.UserID,
		Amount:        usage.XPEarned,
		Source:        "tool",
		SourceID:      tool.ToolID,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("use_tool: failed to award xp: %w", err)
	}

	event := shared.NewToolUsedEvent(cmd.UserID, tool.ToolID, usage.XPEarned, usedAt)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &UseToolResult{
		Tool:      tool,
		XPEarned:  usage.XPEarned,
		LeveledUp: award.LeveledUp,
	}, nil
}
