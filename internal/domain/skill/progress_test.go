package skill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeLevelTable(t *testing.T) LevelTable {
	t.Helper()

	table, err := NewLevelTable([]Level{
		{LevelNumber: 1, XPThreshold: 0},
		{LevelNumber: 2, XPThreshold: 100},
		{LevelNumber: 3, XPThreshold: 250},
	})
	require.NoError(t, err)
	return table
}

func TestCurrentAndNextLevel_MidTable(t *testing.T) {
	table := threeLevelTable(t)

	progress := CurrentAndNextLevel(table, 150)

	assert.Equal(t, 2, progress.Current.LevelNumber)
	require.NotNil(t, progress.Next)
	assert.Equal(t, 3, progress.Next.LevelNumber)
}

func TestCurrentAndNextLevel_ExactThreshold(t *testing.T) {
	table := threeLevelTable(t)

	progress := CurrentAndNextLevel(table, 100)

	assert.Equal(t, 2, progress.Current.LevelNumber)
	require.NotNil(t, progress.Next)
	assert.Equal(t, 3, progress.Next.LevelNumber)
}

func TestCurrentAndNextLevel_MaxLevel(t *testing.T) {
	table := threeLevelTable(t)

	progress := CurrentAndNextLevel(table, 9000)

	assert.Equal(t, 3, progress.Current.LevelNumber)
	assert.Nil(t, progress.Next)
	assert.Equal(t, float64(100), progress.PercentToNext())
	assert.Equal(t, 0, progress.XPToNext())
}

func TestCurrentAndNextLevel_BelowFirstThreshold(t *testing.T) {
	table, err := NewLevelTable([]Level{
		{LevelNumber: 1, XPThreshold: 50},
		{LevelNumber: 2, XPThreshold: 100},
	})
	require.NoError(t, err)

	// No threshold is at or below the XP, so the first row is current
	// and the second is next.
	progress := CurrentAndNextLevel(table, 10)

	assert.Equal(t, 1, progress.Current.LevelNumber)
	require.NotNil(t, progress.Next)
	assert.Equal(t, 2, progress.Next.LevelNumber)
}

func TestCurrentAndNextLevel_ThresholdInvariant(t *testing.T) {
	table := threeLevelTable(t)

	for _, xp := range []int{0, 1, 99, 100, 101, 249, 250, 251, 100000} {
		progress := CurrentAndNextLevel(table, xp)
		assert.LessOrEqual(t, progress.Current.XPThreshold, xp, "xp=%d", xp)
		if progress.Next != nil {
			assert.Equal(t, progress.Current.LevelNumber+1, progress.Next.LevelNumber, "xp=%d", xp)
			assert.Greater(t, progress.Next.XPThreshold, xp, "xp=%d", xp)
		}
	}
}

func TestNewLevelTable_SortsAndRejectsEmpty(t *testing.T) {
	table, err := NewLevelTable([]Level{
		{LevelNumber: 3, XPThreshold: 250},
		{LevelNumber: 1, XPThreshold: 0},
		{LevelNumber: 2, XPThreshold: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Levels()[0].LevelNumber)
	assert.Equal(t, 3, table.Max().LevelNumber)

	_, err = NewLevelTable(nil)
	assert.ErrorIs(t, err, ErrEmptyLevelTable)
}

func TestLevelProgress_PercentToNext(t *testing.T) {
	table := threeLevelTable(t)

	progress := CurrentAndNextLevel(table, 175)
	// Level 2 spans 100..250, so 175 is halfway.
	assert.InDelta(t, 50, progress.PercentToNext(), 0.001)
	assert.Equal(t, 75, progress.XPToNext())
}

func testCatalog() ([]MasterStat, []Skill) {
	stats := []MasterStat{
		{ID: "stat-mind", Name: "Mind", SortOrder: 1},
		{ID: "stat-body", Name: "Body", SortOrder: 2},
		{ID: "stat-craft", Name: "Craft", SortOrder: 3},
	}
	skills := []Skill{
		{ID: "skill-focus", MasterStatID: "stat-mind", Name: "Focus"},
		{ID: "skill-memory", MasterStatID: "stat-mind", Name: "Memory"},
		{ID: "skill-running", MasterStatID: "stat-body", Name: "Running"},
		{ID: "skill-wood", MasterStatID: "stat-craft", Name: "Woodworking"},
	}
	return stats, skills
}

func TestAggregateByCategory_SumsAndClamps(t *testing.T) {
	stats, skills := testCatalog()
	userSkills := []UserSkill{
		{UserID: "u1", SkillID: "skill-focus", PointsEarned: 80},
		{UserID: "u1", SkillID: "skill-memory", PointsEarned: 57},
		{UserID: "u1", SkillID: "skill-running", PointsEarned: 42.5},
	}

	categories := AggregateByCategory(stats, skills, userSkills)
	require.Len(t, categories, 3)

	mind := categories[0]
	assert.Equal(t, "Mind", mind.Name)
	assert.InDelta(t, 137, mind.RawPoints, 0.001)
	// The display value is bounded even though the raw sum is not.
	assert.Equal(t, float64(100), mind.Display)

	body := categories[1]
	assert.InDelta(t, 42.5, body.RawPoints, 0.001)
	assert.InDelta(t, 42.5, body.Display, 0.001)

	// No points in Craft, the axis still appears.
	craft := categories[2]
	assert.Equal(t, "Craft", craft.Name)
	assert.Equal(t, float64(0), craft.Display)
}

func TestAggregateByCategory_DisplayAlwaysInRange(t *testing.T) {
	stats, skills := testCatalog()
	userSkills := []UserSkill{
		{UserID: "u1", SkillID: "skill-focus", PointsEarned: 100000},
		{UserID: "u1", SkillID: "skill-running", PointsEarned: -5},
	}

	for _, c := range AggregateByCategory(stats, skills, userSkills) {
		assert.GreaterOrEqual(t, c.Display, float64(0))
		assert.LessOrEqual(t, c.Display, float64(100))
	}
}

func TestAggregateByCategory_SkipsUnknownSkills(t *testing.T) {
	stats, skills := testCatalog()
	userSkills := []UserSkill{
		{UserID: "u1", SkillID: "skill-deleted", PointsEarned: 50},
	}

	categories := AggregateByCategory(stats, skills, userSkills)
	for _, c := range categories {
		assert.Equal(t, float64(0), c.RawPoints)
	}
}

func TestTotalXP_Unclamped(t *testing.T) {
	stats, skills := testCatalog()
	userSkills := []UserSkill{
		{UserID: "u1", SkillID: "skill-focus", PointsEarned: 137},
		{UserID: "u1", SkillID: "skill-running", PointsEarned: 63},
	}

	categories := AggregateByCategory(stats, skills, userSkills)
	// Totals use the raw sums, not the clamped display values.
	assert.Equal(t, 200, TotalXP(categories))
}
