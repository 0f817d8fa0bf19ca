package mastery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}

func TestCalculateStreak_Empty(t *testing.T) {
	now := day(t, "2025-03-10T12:00:00Z")
	assert.Equal(t, 0, CalculateStreak(nil, now))
}

func TestCalculateStreak_CompletedToday(t *testing.T) {
	now := day(t, "2025-03-10T12:00:00Z")
	completions := []time.Time{
		day(t, "2025-03-10T09:00:00Z"),
		day(t, "2025-03-09T09:00:00Z"),
		day(t, "2025-03-08T09:00:00Z"),
	}
	assert.Equal(t, 3, CalculateStreak(completions, now))
}

func TestCalculateStreak_NotYetCompletedToday(t *testing.T) {
	// No completion today: the streak anchors at yesterday and survives.
	now := day(t, "2025-03-10T08:00:00Z")
	completions := []time.Time{
		day(t, "2025-03-09T09:00:00Z"),
		day(t, "2025-03-08T09:00:00Z"),
	}
	assert.Equal(t, 2, CalculateStreak(completions, now))
}

func TestCalculateStreak_GapBreaksStreak(t *testing.T) {
	now := day(t, "2025-03-10T12:00:00Z")
	completions := []time.Time{
		day(t, "2025-03-10T09:00:00Z"),
		// 2025-03-09 missing
		day(t, "2025-03-08T09:00:00Z"),
		day(t, "2025-03-07T09:00:00Z"),
	}
	assert.Equal(t, 1, CalculateStreak(completions, now))
}

func TestCalculateStreak_LapsedTwoDays(t *testing.T) {
	now := day(t, "2025-03-10T12:00:00Z")
	completions := []time.Time{
		day(t, "2025-03-08T09:00:00Z"),
		day(t, "2025-03-07T09:00:00Z"),
	}
	assert.Equal(t, 0, CalculateStreak(completions, now))
	assert.True(t, StreakIsBroken(completions, now))
}

func TestCalculateStreak_DuplicateSameDayCountsOnce(t *testing.T) {
	now := day(t, "2025-03-10T12:00:00Z")
	completions := []time.Time{
		day(t, "2025-03-10T09:00:00Z"),
		day(t, "2025-03-10T21:00:00Z"),
		day(t, "2025-03-09T09:00:00Z"),
	}
	assert.Equal(t, 2, CalculateStreak(completions, now))
}

func TestCalculateStreak_UTCDayBoundary(t *testing.T) {
	// 23:30 UTC on the 9th and 00:30 UTC on the 10th are different days.
	now := day(t, "2025-03-10T01:00:00Z")
	completions := []time.Time{
		day(t, "2025-03-10T00:30:00Z"),
		day(t, "2025-03-09T23:30:00Z"),
	}
	assert.Equal(t, 2, CalculateStreak(completions, now))
}

func TestCompletedOn(t *testing.T) {
	completions := []time.Time{day(t, "2025-03-10T09:00:00Z")}
	assert.True(t, CompletedOn(completions, day(t, "2025-03-10T23:00:00Z")))
	assert.False(t, CompletedOn(completions, day(t, "2025-03-09T09:00:00Z")))
}

func TestAdoptHabit_Defaults(t *testing.T) {
	h, err := AdoptHabit("uh-1", "user-1", HabitDefinition{
		ID:   "habit-1",
		Name: "Morning run",
	})
	require.NoError(t, err)

	assert.True(t, h.Active)
	assert.Equal(t, DefaultHabitXP, h.XPReward)
	assert.Equal(t, 0, h.CompletionCount)
	assert.Equal(t, "Morning run", h.Name)
}

func TestUserHabit_Complete(t *testing.T) {
	h, err := AdoptHabit("uh-1", "user-1", HabitDefinition{
		ID:       "habit-1",
		Name:     "Morning run",
		XPReward: 25,
	})
	require.NoError(t, err)

	at := day(t, "2025-03-10T09:00:00Z")
	completion, err := h.Complete("c-1", at)
	require.NoError(t, err)

	assert.Equal(t, 1, h.CompletionCount)
	assert.Equal(t, 25, completion.XPEarned)
	assert.Equal(t, "uh-1", completion.UserHabitID)

	h.Archive()
	_, err = h.Complete("c-2", at)
	assert.ErrorIs(t, err, ErrHabitInactive)

	h.Reactivate()
	_, err = h.Complete("c-3", at)
	assert.NoError(t, err)
}

func TestUserTool_Use(t *testing.T) {
	tool, err := AddTool("ut-1", "user-1", ToolDefinition{
		ID:   "tool-1",
		Name: "Pomodoro timer",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultToolXP, tool.XPReward)

	usage := tool.Use("u-1", day(t, "2025-03-10T09:00:00Z"))
	assert.Equal(t, 1, tool.UsageCount)
	assert.Equal(t, DefaultToolXP, usage.XPEarned)
}
