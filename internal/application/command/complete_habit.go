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
// COMPLETE HABIT COMMAND
// Records today's completion, recomputes the streak from the 30-day
// window and awards XP. At most one completion counts per UTC day; the
// storage constraint backs the check under concurrent requests.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteHabitCommand contains the completion request.
type CompleteHabitCommand struct {
	// UserID completes the habit.
	UserID string

	// UserHabitID is the tracked habit.
	UserHabitID string

	// CompletedAt is when it happened (defaults to now).
	CompletedAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteHabitCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: complete_habit: user_id is required", shared.ErrValidation)
	}
	if c.UserHabitID == "" {
		return fmt.Errorf("%w: complete_habit: user_habit_id is required", shared.ErrValidation)
	}
	return nil
}

// CompleteHabitResult contains the updated tracker state.
type CompleteHabitResult struct {
	// Habit is the tracked habit after the completion.
	Habit *mastery.UserHabit

	// XPEarned is the XP granted for this completion.
	XPEarned int

	// Streak is the consecutive-day streak after the completion.
	Streak int

	// LeveledUp reports whether the XP crossed a level threshold.
	LeveledUp bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CompleteHabitHandler handles the CompleteHabitCommand.
type CompleteHabitHandler struct {
	habits         mastery.HabitRepository
	awardXP        *AwardXPHandler
	eventPublisher shared.EventPublisher
}

// NewCompleteHabitHandler creates a new CompleteHabitHandler.
func NewCompleteHabitHandler(
	habits mastery.HabitRepository,
	awardXP *AwardXPHandler,
	eventPublisher shared.EventPublisher,
) *CompleteHabitHandler {
	return &CompleteHabitHandler{
		habits:         habits,
		awardXP:        awardXP,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the complete habit command.
func (h *CompleteHabitHandler) Handle(ctx context.Context, cmd CompleteHabitCommand) (*CompleteHabitResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_habit: validation failed: %w", err)
	}

	completedAt := cmd.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	habit, err := h.habits.GetUserHabit(ctx, cmd.UserHabitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != cmd.UserID {
		return nil, mastery.ErrHabitNotFound
	}

	completion, err := habit.Complete(uuid.NewString(), completedAt)
	if err != nil {
		return nil, err
	}

	if err := h.habits.RecordCompletion(ctx, completion); err != nil {
		return nil, err
	}

	streak, err := h.recomputeStreak(ctx, habit, completedAt)
	if err != nil {
		return nil, err
	}
	habit.CurrentStreak = streak

	if err := h.habits.UpdateUserHabit(ctx, habit); err != nil {
		return nil, err
	}

	award, err := h.awardXP.Handle(ctx, AwardXPCommand{
		UserID:        cmd.UserID,
		Amount:        completion.XPEarned,
		Source:        "habit",
		SourceID:      habit.HabitID,
		CorrelationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("complete_habit: failed to award xp: %w", err)
	}

	event := shared.NewHabitCompletedEvent(cmd.UserID, habit.HabitID, completion.XPEarned, streak, completedAt)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &CompleteHabitResult{
		Habit:     habit,
		XPEarned:  completion.XPEarned,
		Streak:    streak,
		LeveledUp: award.LeveledUp,
	}, nil
}

func (h *CompleteHabitHandler) recomputeStreak(ctx context.Context, habit *mastery.UserHabit, now time.Time) (int, error) {
	from := now.AddDate(0, 0, -mastery.StreakWindowDays)
	completions, err := h.habits.ListCompletions(ctx, habit.ID, from, now)
	if err != nil {
		return 0, fmt.Errorf("complete_habit: failed to list completions: %w", err)
	}
	return mastery.CalculateStreak(completions, now), nil
}
