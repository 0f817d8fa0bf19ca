// Package mastery contains the habit and toolbox trackers: library
// catalogs, the user's personal instances, and the append-only
// completion/usage logs that feed XP and streaks.
package mastery

import (
	"errors"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP RULES
// ══════════════════════════════════════════════════════════════════════════════

const (
	// SkillPointsPerHabitCompletion - skill points awarded to each of a
	// habit's linked skills when it is completed.
	SkillPointsPerHabitCompletion = 0.1

	// SkillPointsPerToolUsage - skill points awarded to each of a tool's
	// linked skills when it is used.
	SkillPointsPerToolUsage = 0.15

	// DefaultHabitXP - XP for completing a habit without a custom reward.
	DefaultHabitXP = 10

	// DefaultToolXP - XP for logging a tool usage without a custom reward.
	DefaultToolXP = 15
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// HabitDefinition is a row in the habits library, the catalog users
// adopt habits from.
type HabitDefinition struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// Name - display name.
	Name string

	// Description - shown in the library browser.
	Description string

	// Category - loose grouping for the library UI.
	Category string

	// XPReward - XP granted per completion.
	XPReward int

	// SkillIDs - skills that earn points when this habit is completed.
	SkillIDs []string
}

// ToolDefinition is a row in the toolbox library.
type ToolDefinition struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// Name - display name.
	Name string

	// Description - shown in the library browser.
	Description string

	// Category - loose grouping for the library UI.
	Category string

	// XPReward - XP granted per logged usage.
	XPReward int

	// SkillIDs - skills that earn points when this tool is used.
	SkillIDs []string
}

// ══════════════════════════════════════════════════════════════════════════════
// PERSONAL ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// UserHabit is a habit a user adopted from the library.
type UserHabit struct {
	// ID - internal unique identifier.
	ID string

	// UserID - owner.
	UserID string

	// HabitID - the library definition.
	HabitID string

	// Name - copied from the definition at adoption time so later
	// library edits do not rewrite the user's tracker.
	Name string

	// XPReward - XP per completion, copied at adoption time.
	XPReward int

	// Active - inactive habits stay in history but cannot be completed.
	Active bool

	// CompletionCount - lifetime number of completions.
	CompletionCount int

	// CurrentStreak - consecutive-day streak, recomputed on completion
	// and by the nightly sweep.
	CurrentStreak int

	// AdoptedAt - when the user added the habit.
	AdoptedAt time.Time

	// UpdatedAt - last modification.
	UpdatedAt time.Time
}

// HabitCompletion is one append-only completion record.
type HabitCompletion struct {
	// ID - internal unique identifier.
	ID string

	// UserID - who completed.
	UserID string

	// UserHabitID - the adopted habit.
	UserHabitID string

	// CompletedAt - completion timestamp. Day bucketing is UTC.
	CompletedAt time.Time

	// XPEarned - XP granted for this completion.
	XPEarned int
}

// UserTool is a toolbox item a user added from the library.
type UserTool struct {
	// ID - internal unique identifier.
	ID string

	// UserID - owner.
	UserID string

	// ToolID - the library definition.
	ToolID string

	// Name - copied from the definition at add time.
	Name string

	// XPReward - XP per usage, copied at add time.
	XPReward int

	// UsageCount - lifetime number of logged usages.
	UsageCount int

	// AddedAt - when the user added the tool.
	AddedAt time.Time

	// UpdatedAt - last modification.
	UpdatedAt time.Time
}

// ToolUsage is one append-only usage record.
type ToolUsage struct {
	// ID - internal unique identifier.
	ID string

	// UserID - who used the tool.
	UserID string

	// UserToolID - the toolbox item.
	UserToolID string

	// UsedAt - usage timestamp.
	UsedAt time.Time

	// XPEarned - XP granted for this usage.
	XPEarned int
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrHabitNotFound - habit not in the library or not adopted.
	ErrHabitNotFound = errors.New("habit not found")

	// ErrToolNotFound - tool not in the library or not in the toolbox.
	ErrToolNotFound = errors.New("tool not found")

	// ErrHabitAlreadyAdopted - user already tracks this habit.
	ErrHabitAlreadyAdopted = errors.New("habit already adopted")

	// ErrToolAlreadyAdded - tool already in the user's toolbox.
	ErrToolAlreadyAdded = errors.New("tool already in toolbox")

	// ErrAlreadyCompletedToday - at most one completion per UTC day.
	ErrAlreadyCompletedToday = errors.New("habit already completed today")

	// ErrHabitInactive - archived habits cannot be completed.
	ErrHabitInactive = errors.New("habit is not active")

	// ErrInvalidName - name out of bounds.
	ErrInvalidName = errors.New("invalid name: must be 1-100 chars")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORIES
// ══════════════════════════════════════════════════════════════════════════════

// AdoptHabit creates a user's tracker for a library habit.
func AdoptHabit(id, userID string, def HabitDefinition) (*UserHabit, error) {
	if id == "" || userID == "" {
		return nil, errors.New("id and user id are required")
	}
	name := strings.TrimSpace(def.Name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidName
	}

	xp := def.XPReward
	if xp <= 0 {
		xp = DefaultHabitXP
	}

	now := time.Now().UTC()
	return &UserHabit{
		ID:        id,
		UserID:    userID,
		HabitID:   def.ID,
		Name:      name,
		XPReward:  xp,
		Active:    true,
		AdoptedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddTool creates a user's toolbox entry for a library tool.
func AddTool(id, userID string, def ToolDefinition) (*UserTool, error) {
	if id == "" || userID == "" {
		return nil, errors.New("id and user id are required")
	}
	name := strings.TrimSpace(def.Name)
	if name == "" || len(name) > 100 {
		return nil, ErrInvalidName
	}

	xp := def.XPReward
	if xp <= 0 {
		xp = DefaultToolXP
	}

	now := time.Now().UTC()
	return &UserTool{
		ID:       id,
		UserID:   userID,
		ToolID:   def.ID,
		Name:     name,
		XPReward: xp,
		AddedAt:  now,
		UpdatedAt: now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Complete produces a completion record and bumps the counters.
// The caller is responsible for the one-per-day check against storage.
func (h *UserHabit) Complete(completionID string, at time.Time) (*HabitCompletion, error) {
	if !h.Active {
		return nil, ErrHabitInactive
	}

	h.CompletionCount++
	h.UpdatedAt = time.Now().UTC()

	return &HabitCompletion{
		ID:          completionID,
		UserID:      h.UserID,
		UserHabitID: h.ID,
		CompletedAt: at.UTC(),
		XPEarned:    h.XPReward,
	}, nil
}

// Archive deactivates the habit, keeping its history.
func (h *UserHabit) Archive() {
	h.Active = false
	h.UpdatedAt = time.Now().UTC()
}

// Reactivate brings an archived habit back.
func (h *UserHabit) Reactivate() {
	h.Active = true
	h.UpdatedAt = time.Now().UTC()
}

// Use produces a usage record and bumps the counter.
func (t *UserTool) Use(usageID string, at time.Time) *ToolUsage {
	t.UsageCount++
	t.UpdatedAt = time.Now().UTC()

	return &ToolUsage{
		ID:         usageID,
		UserID:     t.UserID,
		UserToolID: t.ID,
		UsedAt:     at.UTC(),
		XPEarned:   t.XPReward,
	}
}
