// Package jobs contains implementations of scheduled jobs for Catalyst Hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"
	"github.com/human-catalyst/catalyst-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTE STREAKS JOB
// Streaks are recomputed eagerly on every completion, but a habit nobody
// touches never gets that recompute. The nightly sweep walks every active
// habit so a missed day shows up as a broken streak the next morning, not
// the next time the user opens the tracker.
// ══════════════════════════════════════════════════════════════════════════════

// RecomputeStreaksJob recomputes habit streaks across all users.
type RecomputeStreaksJob struct {
	habits         mastery.HabitRepository
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	config RecomputeStreaksConfig

	lastRunStats atomic.Value // *StreakSweepStats
}

// RecomputeStreaksConfig contains configuration for the sweep.
type RecomputeStreaksConfig struct {
	// WindowDays is how far back to load completions per habit.
	WindowDays int

	// PublishBreaks enables StreakBrokenEvent publishing.
	PublishBreaks bool

	// Timeout is the maximum duration for the whole sweep.
	Timeout time.Duration
}

// DefaultRecomputeStreaksConfig returns sensible defaults.
func DefaultRecomputeStreaksConfig() RecomputeStreaksConfig {
	return RecomputeStreaksConfig{
		WindowDays:    mastery.StreakWindowDays,
		PublishBreaks: true,
		Timeout:       10 * time.Minute,
	}
}

// StreakSweepStats contains statistics from one sweep.
type StreakSweepStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	HabitsChecked int
	StreaksMoved  int
	StreaksBroken int
	Errors        int
}

// NewRecomputeStreaksJob creates a new streak sweep job.
func NewRecomputeStreaksJob(
	habits mastery.HabitRepository,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config RecomputeStreaksConfig,
) *RecomputeStreaksJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.WindowDays <= 0 {
		config.WindowDays = mastery.StreakWindowDays
	}

	return &RecomputeStreaksJob{
		habits:         habits,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *RecomputeStreaksJob) Name() string {
	return "recompute_streaks"
}

// Description returns a human-readable description.
func (j *RecomputeStreaksJob) Description() string {
	return "Recomputes habit streaks for all users and publishes streak breaks"
}

// Run executes the sweep.
func (j *RecomputeStreaksJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &StreakSweepStats{StartedAt: startedAt}

	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	habitIDs, err := j.habits.ListActiveHabitIDs(ctx)
	if err != nil {
		return fmt.Errorf("streak sweep: failed to list active habits: %w", err)
	}

	now := time.Now().UTC()
	from := timeutil.StartOfDay(now.AddDate(0, 0, -j.config.WindowDays))

	for _, habitID := range habitIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats.HabitsChecked++
		if err := j.recompute(ctx, habitID, from, now, stats); err != nil {
			stats.Errors++
			j.logger.Error("streak recompute failed",
				"user_habit_id", habitID,
				"error", err,
			)
		}
	}

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("streak sweep finished",
		"habits_checked", stats.HabitsChecked,
		"streaks_moved", stats.StreaksMoved,
		"streaks_broken", stats.StreaksBroken,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)
	return nil
}

func (j *RecomputeStreaksJob) recompute(ctx context.Context, habitID string, from, now time.Time, stats *StreakSweepStats) error {
	habit, err := j.habits.GetUserHabit(ctx, habitID)
	if err != nil {
		return err
	}

	completions, err := j.habits.ListCompletions(ctx, habitID, from, now)
	if err != nil {
		return err
	}

	streak := mastery.CalculateStreak(completions, now)
	if streak == habit.CurrentStreak {
		return nil
	}

	previous := habit.CurrentStreak
	habit.CurrentStreak = streak
	habit.UpdatedAt = now
	if err := j.habits.UpdateUserHabit(ctx, habit); err != nil {
		return err
	}

	stats.StreaksMoved++
	if streak == 0 && previous > 0 {
		stats.StreaksBroken++
		if j.config.PublishBreaks && j.eventPublisher != nil {
			_ = j.eventPublisher.Publish(shared.NewStreakBrokenEvent(habit.UserID, habit.HabitID, previous))
		}
	}
	return nil
}

// LastRunStats returns the stats of the most recent sweep, or nil.
func (j *RecomputeStreaksJob) LastRunStats() *StreakSweepStats {
	stats, _ := j.lastRunStats.Load().(*StreakSweepStats)
	return stats
}
