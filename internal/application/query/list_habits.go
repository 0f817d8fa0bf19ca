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
// HABIT QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// ListHabitLibraryQuery lists the adoptable habit definitions.
type ListHabitLibraryQuery struct{}

// HabitDefinitionDTO is one library row.
type HabitDefinitionDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	XPReward    int      `json:"xp_reward"`
	SkillIDs    []string `json:"skill_ids"`
}

// UserHabitDTO is one adopted habit with its tracker state.
type UserHabitDTO struct {
	ID              string    `json:"id"`
	HabitID         string    `json:"habit_id"`
	Name            string    `json:"name"`
	XPReward        int       `json:"xp_reward"`
	Active          bool      `json:"active"`
	CompletionCount int       `json:"completion_count"`
	CurrentStreak   int       `json:"current_streak"`
	CompletedToday  bool      `json:"completed_today"`
	AdoptedAt       time.Time `json:"adopted_at"`
}

// ListHabitsQuery lists a user's adopted habits.
type ListHabitsQuery struct {
	// UserID - owner.
	UserID string

	// IncludeArchived - include inactive habits.
	IncludeArchived bool
}

// Validate checks the query.
func (q ListHabitsQuery) Validate() error {
	if q.UserID == "" {
		return fmt.Errorf("%w: user_id is required", shared.ErrValidation)
	}
	return nil
}

// ListHabitsHandler serves the habit tracker list.
type ListHabitsHandler struct {
	library mastery.LibraryRepository
	habits  mastery.HabitRepository
}

// NewListHabitsHandler creates a new handler.
func NewListHabitsHandler(library mastery.LibraryRepository, habits mastery.HabitRepository) *ListHabitsHandler {
	return &ListHabitsHandler{library: library, habits: habits}
}

// Library returns the adoptable habit definitions.
func (h *ListHabitsHandler) Library(ctx context.Context) ([]HabitDefinitionDTO, error) {
	defs, err := h.library.ListHabitDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("habit library: %w", err)
	}
	out := make([]HabitDefinitionDTO, 0, len(defs))
	for _, d := range defs {
		out = append(out, HabitDefinitionDTO{
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

// Handle returns the user's adopted habits with today's completion flag.
func (h *ListHabitsHandler) Handle(ctx context.Context, q ListHabitsQuery) ([]UserHabitDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	habits, err := h.habits.ListUserHabits(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	now := time.Now().UTC()
	today := timeutil.StartOfDay(now)

	out := make([]UserHabitDTO, 0, len(habits))
	for _, habit := range habits {
		if !habit.Active && !q.IncludeArchived {
			continue
		}

		completions, err := h.habits.ListCompletions(ctx, habit.ID, today, now)
		if err != nil {
			return nil, fmt.Errorf("list habits: %w", err)
		}

		out = append(out, UserHabitDTO{
			ID:              habit.ID,
			HabitID:         habit.HabitID,
			Name:            habit.Name,
			XPReward:        habit.XPReward,
			Active:          habit.Active,
			CompletionCount: habit.CompletionCount,
			CurrentStreak:   habit.CurrentStreak,
			CompletedToday:  len(completions) > 0,
			AdoptedAt:       habit.AdoptedAt,
		})
	}
	return out, nil
}

// History returns a habit's completion days inside a window, newest first.
func (h *ListHabitsHandler) History(ctx context.Context, userID, userHabitID string, days int) ([]time.Time, error) {
	if days <= 0 {
		days = mastery.StreakWindowDays
	}

	habit, err := h.habits.GetUserHabit(ctx, userHabitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, mastery.ErrHabitNotFound
	}

	now := time.Now().UTC()
	from := timeutil.StartOfDay(now.AddDate(0, 0, -days))
	return h.habits.ListCompletions(ctx, userHabitID, from, now)
}
