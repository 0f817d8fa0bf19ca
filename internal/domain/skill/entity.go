// Package skill contains the skill catalog, level table, and the
// progress aggregation that feeds the dashboard radar chart.
package skill

import (
	"errors"
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// MasterStat is a coarse skill category. Fine-grained skill points roll
// up into their master stat for the radar chart axes.
type MasterStat struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// Name - axis label, e.g. "Mind", "Body", "Craft".
	Name string

	// Description - shown in the catalog browser.
	Description string

	// SortOrder - stable axis ordering around the radar.
	SortOrder int
}

// Skill is a catalog entry. Every skill belongs to exactly one master stat.
type Skill struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// MasterStatID - the category this skill rolls up into.
	MasterStatID string

	// Name - display name.
	Name string

	// Description - shown in the catalog browser.
	Description string
}

// UserSkill joins a user to a skill with the points earned so far.
// Points only ever grow.
type UserSkill struct {
	// UserID - owner.
	UserID string

	// SkillID - the catalog skill.
	SkillID string

	// PointsEarned - accumulated points, fractional because habit and
	// tool completions award fractions of a point.
	PointsEarned float64

	// UpdatedAt - last award time.
	UpdatedAt time.Time
}

// Level maps a level number to the total XP required to reach it.
type Level struct {
	// LevelNumber - 1-based level index.
	LevelNumber int

	// XPThreshold - total XP needed to hold this level.
	XPThreshold int

	// Title - optional display title for the level.
	Title string
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrSkillNotFound - skill not in the catalog.
	ErrSkillNotFound = errors.New("skill not found")

	// ErrMasterStatNotFound - master stat not in the catalog.
	ErrMasterStatNotFound = errors.New("master stat not found")

	// ErrEmptyLevelTable - no level rows loaded.
	ErrEmptyLevelTable = errors.New("levels table is empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL TABLE
// ══════════════════════════════════════════════════════════════════════════════

// LevelTable is the ordered list of level rows. Construct it through
// NewLevelTable so the ascending-by-level-number invariant holds.
type LevelTable struct {
	levels []Level
}

// NewLevelTable sorts the rows by level number and wraps them.
func NewLevelTable(levels []Level) (LevelTable, error) {
	if len(levels) == 0 {
		return LevelTable{}, ErrEmptyLevelTable
	}

	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LevelNumber < sorted[j].LevelNumber
	})

	return LevelTable{levels: sorted}, nil
}

// Levels returns the rows in ascending level order.
func (t LevelTable) Levels() []Level {
	return t.levels
}

// Len returns the number of level rows.
func (t LevelTable) Len() int {
	return len(t.levels)
}

// Max returns the highest level row.
func (t LevelTable) Max() Level {
	return t.levels[len(t.levels)-1]
}
