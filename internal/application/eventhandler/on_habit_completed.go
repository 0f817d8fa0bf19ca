// Package eventhandler contains domain event subscribers.
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
// ON HABIT COMPLETED HANDLER
// Fans a habit completion out into skill points: every skill linked to
// the habit's library definition earns a fraction of a point, which is
// what slowly fills the radar chart.
// ═══════════════════════════════════════════════════════════════════════════

// OnHabitCompletedHandler awards skill points for habit completions.
type OnHabitCompletedHandler struct {
	library      mastery.LibraryRepository
	progressRepo skill.ProgressRepository
	cache        profileInvalidator
	logger       *slog.Logger
}

// profileInvalidator drops cached read models after a write. Satisfied
// by the profile cache.
type profileInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// NewOnHabitCompletedHandler creates a new handler.
func NewOnHabitCompletedHandler(
	library mastery.LibraryRepository,
	progressRepo skill.ProgressRepository,
	cache profileInvalidator,
	logger *slog.Logger,
) *OnHabitCompletedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnHabitCompletedHandler{
		library:      library,
		progressRepo: progressRepo,
		cache:        cache,
		logger:       logger.With("handler", "on_habit_completed"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnHabitCompletedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	completed, ok := event.(shared.HabitCompletedEvent)
	if !ok {
		h.logger.Warn("received unexpected event", "event_type", event.EventType())
		return nil
	}

	def, err := h.library.GetHabitDefinition(ctx, completed.HabitID)
	if err != nil {
		// A definition deleted after adoption still lets the user track
		// the habit, it just stops feeding skills.
		if errors.Is(err, mastery.ErrHabitNotFound) {
			h.logger.Warn("habit definition gone, no skill points awarded",
				"habit_id", completed.HabitID,
			)
			return nil
		}
		return fmt.Errorf("on_habit_completed: %w", err)
	}

	for _, skillID := range def.SkillIDs {
		if err := h.progressRepo.AddPoints(ctx, completed.UserID, skillID, mastery.SkillPointsPerHabitCompletion); err != nil {
			return fmt.Errorf("on_habit_completed: failed to add points to skill %s: %w", skillID, err)
		}
	}

	if h.cache != nil {
		_ = h.cache.Invalidate(ctx, completed.UserID)
	}

	h.logger.Info("skill points awarded",
		"user_id", completed.UserID,
		"habit_id", completed.HabitID,
		"skills", len(def.SkillIDs),
		"streak", completed.Streak,
	)
	return nil
}
