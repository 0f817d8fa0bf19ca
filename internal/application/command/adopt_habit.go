package command

import (
	"context"
	"fmt"

	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADOPT HABIT COMMAND
// Copies a library habit into the user's tracker. Name and XP reward are
// snapshotted at adoption so later library edits leave trackers alone.
// ══════════════════════════════════════════════════════════════════════════════

// AdoptHabitCommand contains the adoption request.
type AdoptHabitCommand struct {
	// UserID adopts the habit.
	UserID string

	// HabitID references the library definition.
	HabitID string
}

// Validate validates the command.
func (c AdoptHabitCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: adopt_habit: user_id is required", shared.ErrValidation)
	}
	if c.HabitID == "" {
		return fmt.Errorf("%w: adopt_habit: habit_id is required", shared.ErrValidation)
	}
	return nil
}

// AdoptHabitHandler handles the AdoptHabitCommand.
type AdoptHabitHandler struct {
	library mastery.LibraryRepository
	habits  mastery.HabitRepository
}

// NewAdoptHabitHandler creates a new AdoptHabitHandler.
func NewAdoptHabitHandler(library mastery.LibraryRepository, habits mastery.HabitRepository) *AdoptHabitHandler {
	return &AdoptHabitHandler{library: library, habits: habits}
}

// Handle executes the adopt habit command.
func (h *AdoptHabitHandler) Handle(ctx context.Context, cmd AdoptHabitCommand) (*mastery.UserHabit, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("adopt_habit: validation failed: %w", err)
	}

	def, err := h.library.GetHabitDefinition(ctx, cmd.HabitID)
	if err != nil {
		return nil, fmt.Errorf("adopt_habit: failed to load definition: %w", err)
	}

	habit, err := mastery.AdoptHabit(uuid.NewString(), cmd.UserID, *def)
	if err != nil {
		return nil, err
	}

	if err := h.habits.CreateUserHabit(ctx, habit); err != nil {
		return nil, err
	}
	return habit, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ARCHIVE HABIT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ArchiveHabitCommand deactivates a tracked habit without losing history.
type ArchiveHabitCommand struct {
	// UserID owns the habit.
	UserID string

	// UserHabitID is the tracked habit.
	UserHabitID string
}

// ArchiveHabitHandler handles the ArchiveHabitCommand.
type ArchiveHabitHandler struct {
	habits mastery.HabitRepository
}

// NewArchiveHabitHandler creates a new ArchiveHabitHandler.
func NewArchiveHabitHandler(habits mastery.HabitRepository) *ArchiveHabitHandler {
	return &ArchiveHabitHandler{habits: habits}
}

// Handle executes the archive habit command.
func (h *ArchiveHabitHandler) Handle(ctx context.Context, cmd ArchiveHabitCommand) error {
	if cmd.UserID == "" || cmd.UserHabitID == "" {
		return fmt.Errorf("%w: archive_habit: user_id and user_habit_id are required", shared.ErrValidation)
	}

	habit, err := h.habits.GetUserHabit(ctx, cmd.UserHabitID)
	if err != nil {
		return err
	}
	if habit.UserID != cmd.UserID {
		return mastery.ErrHabitNotFound
	}

	habit.Archive()
	return h.habits.UpdateUserHabit(ctx, habit)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADD TOOL COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AddToolCommand puts a library tool into the user's toolbox.
type AddToolCommand struct {
	// UserID adds the tool.
	UserID string

	// ToolID references the library definition.
	ToolID string
}

// Validate validates the command.
func (c AddToolCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: add_tool: user_id is required", shared.ErrValidation)
	}
	if c.ToolID == "" {
		return fmt.Errorf("%w: add_tool: tool_id is required", shared.ErrValidation)
	}
	return nil
}

// AddToolHandler handles the AddToolCommand.
type AddToolHandler struct {
	library mastery.LibraryRepository
	toolbox mastery.ToolboxRepository
}

// NewAddToolHandler creates a new AddToolHandler.
func NewAddToolHandler(library mastery.LibraryRepository, toolbox mastery.ToolboxRepository) *AddToolHandler {
	return &AddToolHandler{library: library, toolbox: toolbox}
}

// Handle executes the add tool command.
func (h *AddToolHandler) Handle(ctx context.Context, cmd AddToolCommand) (*mastery.UserTool, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_tool: validation failed: %w", err)
	}

	def, err := h.library.GetToolDefinition(ctx, cmd.ToolID)
	if err != nil {
		return nil, fmt.Errorf("add_tool: failed to load definition: %w", err)
	}

	tool, err := mastery.AddTool(uuid.NewString(), cmd.UserID, *def)
	if err != nil {
		return nil, err
	}

	if err := h.toolbox.CreateUserTool(ctx, tool); err != nil {
		return nil, err
	}
	return tool, nil
}
