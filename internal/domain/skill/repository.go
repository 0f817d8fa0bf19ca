package skill

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository serves the reference tables. These change rarely and
// are cached aggressively.
type CatalogRepository interface {
	// ListMasterStats returns all categories ordered by sort order.
	ListMasterStats(ctx context.Context) ([]MasterStat, error)

	// ListSkills returns the full skill catalog.
	ListSkills(ctx context.Context) ([]Skill, error)

	// GetSkill returns one catalog skill.
	// Returns ErrSkillNotFound if missing.
	GetSkill(ctx context.Context, skillID string) (*Skill, error)

	// ListLevels returns the level table rows.
	ListLevels(ctx context.Context) ([]Level, error)
}

// ProgressRepository stores per-user skill points.
type ProgressRepository interface {
	// ListUserSkills returns all point rows of a user.
	ListUserSkills(ctx context.Context, userID string) ([]UserSkill, error)

	// AddPoints adds points to a user's skill row, creating it at zero
	// first if needed.
	AddPoints(ctx context.Context, userID, skillID string, points float64) error

	// RecordXPTransaction appends to the XP audit log.
	RecordXPTransaction(ctx context.Context, tx XPTransaction) error

	// ListXPTransactions returns a user's recent XP awards, newest first.
	ListXPTransactions(ctx context.Context, userID string, limit int) ([]XPTransaction, error)
}

// XPTransaction is one append-only XP award record.
type XPTransaction struct {
	// ID - internal unique identifier.
	ID string

	// UserID - who earned the XP.
	UserID string

	// Amount - XP awarded.
	Amount int

	// Source - what produced it, e.g. "habit_completion", "tool_usage".
	Source string

	// SourceID - the habit or tool involved, if any.
	SourceID string

	// CreatedAt - when the award happened.
	CreatedAt time.Time
}

// CatalogCache caches the reference tables (implemented with Redis).
type CatalogCache interface {
	// GetCatalog fetches the cached catalog.
	// Returns shared.ErrNotFound on a miss.
	GetCatalog(ctx context.Context) ([]MasterStat, []Skill, error)

	// SetCatalog stores the catalog with a TTL.
	SetCatalog(ctx context.Context, stats []MasterStat, skills []Skill, ttl time.Duration) error

	// GetLevels fetches the cached level table.
	GetLevels(ctx context.Context) ([]Level, error)

	// SetLevels stores the level table with a TTL.
	SetLevels(ctx context.Context, levels []Level, ttl time.Duration) error

	// Invalidate drops all cached catalog data.
	Invalidate(ctx context.Context) error
}
