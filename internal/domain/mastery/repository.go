package mastery

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// LibraryRepository serves the habit and toolbox catalogs.
type LibraryRepository interface {
	// ListHabitDefinitions returns the habits library.
	ListHabitDefinitions(ctx context.Context) ([]HabitDefinition, error)

	// GetHabitDefinition returns one library habit.
	// Returns ErrHabitNotFound if missing.
	GetHabitDefinition(ctx context.Context, habitID string) (*HabitDefinition, error)

	// ListToolDefinitions returns the toolbox library.
	ListToolDefinitions(ctx context.Context) ([]ToolDefinition, error)

	// GetToolDefinition returns one library tool.
	// Returns ErrToolNotFound if missing.
	GetToolDefinition(ctx context.Context, toolID string) (*ToolDefinition, error)
}

// HabitRepository stores the user's adopted habits and completions.
type HabitRepository interface {
	// CreateUserHabit inserts an adopted habit.
	// Returns ErrHabitAlreadyAdopted if the user already tracks it.
	CreateUserHabit(ctx context.Context, habit *UserHabit) error

	// GetUserHabit returns one adopted habit.
	// Returns ErrHabitNotFound if missing.
	GetUserHabit(ctx context.Context, userHabitID string) (*UserHabit, error)

	// ListUserHabits returns all of a user's habits, active first.
	ListUserHabits(ctx context.Context, userID string) ([]*UserHabit, error)

	// UpdateUserHabit persists counter and streak changes.
	UpdateUserHabit(ctx context.Context, habit *UserHabit) error

	// DeleteUserHabit removes an adopted habit and its completions.
	DeleteUserHabit(ctx context.Context, userHabitID string) error

	// RecordCompletion appends a completion.
	// Returns ErrAlreadyCompletedToday if a completion already exists
	// for the same UTC day.
	RecordCompletion(ctx context.Context, completion *HabitCompletion) error

	// DeleteCompletion removes a completion on the given UTC day (undo).
	DeleteCompletion(ctx context.Context, userHabitID string, day time.Time) error

	// ListCompletions returns completion timestamps in a range,
	// newest first.
	ListCompletions(ctx context.Context, userHabitID string, from, to time.Time) ([]time.Time, error)

	// ListActiveHabitIDs returns every active habit across all users.
	// The nightly streak sweep iterates this.
	ListActiveHabitIDs(ctx context.Context) ([]string, error)
}

// ToolboxRepository stores the user's toolbox and usage log.
type ToolboxRepository interface {
	// CreateUserTool inserts a toolbox item.
	// Returns ErrToolAlreadyAdded if the user already has it.
	CreateUserTool(ctx context.Context, tool *UserTool) error

	// GetUserTool returns one toolbox item.
	// Returns ErrToolNotFound if missing.
	GetUserTool(ctx context.Context, userToolID string) (*UserTool, error)

	// ListUserTools returns a user's toolbox.
	ListUserTools(ctx context.Context, userID string) ([]*UserTool, error)

	// UpdateUserTool persists counter changes.
	UpdateUserTool(ctx context.Context, tool *UserTool) error

	// DeleteUserTool removes a toolbox item and its usage log.
	DeleteUserTool(ctx context.Context, userToolID string) error

	// RecordUsage appends a usage record.
	RecordUsage(ctx context.Context, usage *ToolUsage) error

	// ListUsages returns usage timestamps in a range, newest first.
	ListUsages(ctx context.Context, userToolID string, from, to time.Time) ([]time.Time, error)
}
