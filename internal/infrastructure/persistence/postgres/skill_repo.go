// Package postgres implements the PostgreSQL persistence layer for Catalyst Hub.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/skill"
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILL CATALOG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SkillCatalogRepository implements skill.CatalogRepository for PostgreSQL.
type SkillCatalogRepository struct {
	conn *Connection
}

// NewSkillCatalogRepository creates a new SkillCatalogRepository.
func NewSkillCatalogRepository(conn *Connection) *SkillCatalogRepository {
	return &SkillCatalogRepository{conn: conn}
}

// ListMasterStats returns all categories ordered by sort order.
func (r *SkillCatalogRepository) ListMasterStats(ctx context.Context) ([]skill.MasterStat, error) {
	query := `SELECT id, name, description, sort_order FROM master_stats ORDER BY sort_order, name`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list master stats: %w", err)
	}
	defer rows.Close()

	var stats []skill.MasterStat
	for rows.Next() {
		var s skill.MasterStat
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan master stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// ListSkills returns the full skill catalog.
func (r *SkillCatalogRepository) ListSkills(ctx context.Context) ([]skill.Skill, error) {
	query := `SELECT id, master_stat_id, name, description FROM skills ORDER BY name`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	var skills []skill.Skill
	for rows.Next() {
		var s skill.Skill
		if err := rows.Scan(&s.ID, &s.MasterStatID, &s.Name, &s.Description); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

// GetSkill returns one catalog skill.
func (r *SkillCatalogRepository) GetSkill(ctx context.Context, skillID string) (*skill.Skill, error) {
	query := `SELECT id, master_stat_id, name, description FROM skills WHERE id = $1`

	var s skill.Skill
	err := r.conn.QueryRow(ctx, query, skillID).Scan(&s.ID, &s.MasterStatID, &s.Name, &s.Description)
	if err != nil {
		if IsNoRows(err) {
			return nil, skill.ErrSkillNotFound
		}
		return nil, fmt.Errorf("failed to get skill: %w", err)
	}
	return &s, nil
}

// ListLevels returns the level table rows.
func (r *SkillCatalogRepository) ListLevels(ctx context.Context) ([]skill.Level, error) {
	query := `SELECT level_number, xp_threshold, title FROM levels ORDER BY level_number`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	var levels []skill.Level
	for rows.Next() {
		var l skill.Level
		if err := rows.Scan(&l.LevelNumber, &l.XPThreshold, &l.Title); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// SKILL PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SkillProgressRepository implements skill.ProgressRepository for PostgreSQL.
type SkillProgressRepository struct {
	conn *Connection
}

// NewSkillProgressRepository creates a new SkillProgressRepository.
func NewSkillProgressRepository(conn *Connection) *SkillProgressRepository {
	return &SkillProgressRepository{conn: conn}
}

// ListUserSkills returns all point rows of a user.
func (r *SkillProgressRepository) ListUserSkills(ctx context.Context, userID string) ([]skill.UserSkill, error) {
	query := `SELECT user_id, skill_id, points_earned, updated_at FROM user_skills WHERE user_id = $1`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user skills: %w", err)
	}
	defer rows.Close()

	var result []skill.UserSkill
	for rows.Next() {
		var us skill.UserSkill
		if err := rows.Scan(&us.UserID, &us.SkillID, &us.PointsEarned, &us.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user skill: %w", err)
		}
		result = append(result, us)
	}
	return result, rows.Err()
}

// AddPoints adds points to a user's skill row, creating it at zero first
// if needed. The write is a single atomic upsert.
func (r *SkillProgressRepository) AddPoints(ctx context.Context, userID, skillID string, points float64) error {
	query := `
		INSERT INTO user_skills (user_id, skill_id, points_earned, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, skill_id) DO UPDATE SET
			points_earned = user_skills.points_earned + EXCLUDED.points_earned,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query, userID, skillID, points, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to add skill points: %w", err)
	}
	return nil
}

// RecordXPTransaction appends to the XP audit log.
func (r *SkillProgressRepository) RecordXPTransaction(ctx context.Context, tx skill.XPTransaction) error {
	query := `
		INSERT INTO xp_transactions (id, user_id, amount, source, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Amount,
		tx.Source,
		nullString(tx.SourceID),
		tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record xp transaction: %w", err)
	}
	return nil
}

// ListXPTransactions returns a user's recent XP awards, newest first.
func (r *SkillProgressRepository) ListXPTransactions(ctx context.Context, userID string, limit int) ([]skill.XPTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, amount, source, source_id, created_at
		FROM xp_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list xp transactions: %w", err)
	}
	defer rows.Close()

	var txs []skill.XPTransaction
	for rows.Next() {
		var tx skill.XPTransaction
		var sourceID sql.NullString
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Amount, &tx.Source, &sourceID, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan xp transaction: %w", err)
		}
		tx.SourceID = sourceID.String
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
