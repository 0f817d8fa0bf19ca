// Package postgres implements the PostgreSQL persistence layer for Catalyst Hub.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/mastery"
	"github.com/human-catalyst/catalyst-hub/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY LIBRARY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MasteryLibraryRepository implements mastery.LibraryRepository for PostgreSQL.
type MasteryLibraryRepository struct {
	conn *Connection
}

// NewMasteryLibraryRepository creates a new MasteryLibraryRepository.
func NewMasteryLibraryRepository(conn *Connection) *MasteryLibraryRepository {
	return &MasteryLibraryRepository{conn: conn}
}

// ListHabitDefinitions returns the habits library.
func (r *MasteryLibraryRepository) ListHabitDefinitions(ctx context.Context) ([]mastery.HabitDefinition, error) {
	query := `SELECT id, name, description, category, xp_reward, skill_ids FROM habits_library ORDER BY category, name`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits library: %w", err)
	}
	defer rows.Close()

	var defs []mastery.HabitDefinition
	for rows.Next() {
		var d mastery.HabitDefinition
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Category, &d.XPReward, &d.SkillIDs); err != nil {
			return nil, fmt.Errorf("failed to scan habit definition: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// GetHabitDefinition returns one library habit.
func (r *MasteryLibraryRepository) GetHabitDefinition(ctx context.Context, habitID string) (*mastery.HabitDefinition, error) {
	query := `SELECT id, name, description, category, xp_reward, skill_ids FROM habits_library WHERE id = $1`

	var d mastery.HabitDefinition
	err := r.conn.QueryRow(ctx, query, habitID).Scan(&d.ID, &d.Name, &d.Description, &d.Category, &d.XPReward, &d.SkillIDs)
	if err != nil {
		if IsNoRows(err) {
			return nil, mastery.ErrHabitNotFound
		}
		return nil, fmt.Errorf("failed to get habit definition: %w", err)
	}
	return &d, nil
}

// ListToolDefinitions returns the toolbox library.
func (r *MasteryLibraryRepository) ListToolDefinitions(ctx context.Context) ([]mastery.ToolDefinition, error) {
	query := `SELECT id, name, description, category, xp_reward, skill_ids FROM toolbox_library ORDER BY category, name`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list toolbox library: %w", err)
	}
	defer rows.Close()

	var defs []mastery.ToolDefinition
	for rows.Next() {
		var d mastery.ToolDefinition
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Category, &d.XPReward, &d.SkillIDs); err != nil {
			return nil, fmt.Errorf("failed to scan tool definition: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// GetToolDefinition returns one library tool.
func (r *MasteryLibraryRepository) GetToolDefinition(ctx context.Context, toolID string) (*mastery.ToolDefinition, error) {
	query := `SELECT id, name, description, category, xp_reward, skill_ids FROM toolbox_library WHERE id = $1`

	var d mastery.ToolDefinition
	err := r.conn.QueryRow(ctx, query, toolID).Scan(&d.ID, &d.Name, &d.Description, &d.Category, &d.XPReward, &d.SkillIDs)
	if err != nil {
		if IsNoRows(err) {
			return nil, mastery.ErrToolNotFound
		}
		return nil, fmt.Errorf("failed to get tool definition: %w", err)
	}
	return &d, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HABIT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// HabitRepository implements mastery.HabitRepository for PostgreSQL.
type HabitRepository struct {
	conn *Connection
}

// NewHabitRepository creates a new HabitRepository.
func NewHabitRepository(conn *Connection) *HabitRepository {
	return &HabitRepository{conn: conn}
}

const userHabitColumns = `
	id, user_id, habit_id, name, xp_reward, active,
	completion_count, current_streak, adopted_at, updated_at
`

// CreateUserHabit inserts an adopted habit.
func (r *HabitRepository) CreateUserHabit(ctx context.Context, h *mastery.UserHabit) error {
	query := `
		INSERT INTO user_habits (
			id, user_id, habit_id, name, xp_reward, active,
			completion_count, current_streak, adopted_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.conn.Exec(ctx, query,
		h.ID, h.UserID, h.HabitID, h.Name, h.XPReward, h.Active,
		h.CompletionCount, h.CurrentStreak, h.AdoptedAt, h.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return mastery.ErrHabitAlreadyAdopted
		}
		return fmt.Errorf("failed to create user habit: %w", err)
	}
	return nil
}

// GetUserHabit returns one adopted habit.
func (r *HabitRepository) GetUserHabit(ctx context.Context, userHabitID string) (*mastery.UserHabit, error) {
	query := `SELECT ` + userHabitColumns + ` FROM user_habits WHERE id = $1`
	row := r.conn.QueryRow(ctx, query, userHabitID)
	return r.scanUserHabit(row)
}

// ListUserHabits returns all of a user's habits, active first.
func (r *HabitRepository) ListUserHabits(ctx context.Context, userID string) ([]*mastery.UserHabit, error) {
	query := `SELECT ` + userHabitColumns + ` FROM user_habits WHERE user_id = $1 ORDER BY active DESC, adopted_at`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user habits: %w", err)
	}
	defer rows.Close()

	var habits []*mastery.UserHabit
	for rows.Next() {
		h, err := r.scanUserHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// UpdateUserHabit persists counter and streak changes.
func (r *HabitRepository) UpdateUserHabit(ctx context.Context, h *mastery.UserHabit) error {
	query := `
		UPDATE user_habits SET
			name = $1,
			xp_reward = $2,
			active = $3,
			completion_count = $4,
			current_streak = $5,
			updated_at = $6
		WHERE id = $7
	`

	result, err := r.conn.Exec(ctx, query,
		h.Name, h.XPReward, h.Active, h.CompletionCount, h.CurrentStreak,
		time.Now().UTC(), h.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user habit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return mastery.ErrHabitNotFound
	}
	return nil
}

// DeleteUserHabit removes an adopted habit. Completions go with it via
// the foreign key cascade.
func (r *HabitRepository) DeleteUserHabit(ctx context.Context, userHabitID string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM user_habits WHERE id = $1`, userHabitID)
	if err != nil {
		return fmt.Errorf("failed to delete user habit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return mastery.ErrHabitNotFound
	}
	return nil
}

// RecordCompletion appends a completion. The per-day unique constraint
// enforces at most one completion per UTC day.
func (r *HabitRepository) RecordCompletion(ctx context.Context, c *mastery.HabitCompletion) error {
	query := `
		INSERT INTO user_habit_completions (id, user_id, user_habit_id, completed_at, completed_on, xp_earned)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		c.ID, c.UserID, c.UserHabitID, c.CompletedAt,
		timeutil.StartOfDay(c.CompletedAt), c.XPEarned,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return mastery.ErrAlreadyCompletedToday
		}
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

// DeleteCompletion removes a completion on the given UTC day (undo).
func (r *HabitRepository) DeleteCompletion(ctx context.Context, userHabitID string, day time.Time) error {
	query := `DELETE FROM user_habit_completions WHERE user_habit_id = $1 AND completed_on = $2`

	result, err := r.conn.Exec(ctx, query, userHabitID, timeutil.StartOfDay(day))
	if err != nil {
		return fmt.Errorf("failed to delete completion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return mastery.ErrHabitNotFound
	}
	return nil
}

// ListCompletions returns completion timestamps in a range, newest first.
func (r *HabitRepository) ListCompletions(ctx context.Context, userHabitID string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT completed_at
		FROM user_habit_completions
		WHERE user_habit_id = $1 AND completed_at >= $2 AND completed_at <= $3
		ORDER BY completed_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userHabitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	defer rows.Close()

	var completions []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completions = append(completions, t)
	}
	return completions, rows.Err()
}

// ListActiveHabitIDs returns every active habit across all users.
func (r *HabitRepository) ListActiveHabitIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT id FROM user_habits WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active habits: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan habit id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *HabitRepository) scanUserHabit(row pgx.Row) (*mastery.UserHabit, error) {
	var h mastery.UserHabit
	err := row.Scan(
		&h.ID, &h.UserID, &h.HabitID, &h.Name, &h.XPReward, &h.Active,
		&h.CompletionCount, &h.CurrentStreak, &h.AdoptedAt, &h.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, mastery.ErrHabitNotFound
		}
		return nil, fmt.Errorf("failed to scan user habit: %w", err)
	}
	return &h, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TOOLBOX REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ToolboxRepository implements mastery.ToolboxRepository for PostgreSQL.
type ToolboxRepository struct {
	conn *Connection
}

// NewToolboxRepository creates a new ToolboxRepository.
func NewToolboxRepository(conn *Connection) *ToolboxRepository {
	return &ToolboxRepository{conn: conn}
}

const userToolColumns = `
	id, user_id, tool_id, name, xp_reward, usage_count, added_at, updated_at
`

// CreateUserTool inserts a toolbox item.
func (r *ToolboxRepository) CreateUserTool(ctx context.Context, t *mastery.UserTool) error {
	query := `
		INSERT INTO user_toolbox_items (
			id, user_id, tool_id, name, xp_reward, usage_count, added_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		t.ID, t.UserID, t.ToolID, t.Name, t.XPReward, t.UsageCount, t.AddedAt, t.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return mastery.ErrToolAlreadyAdded
		}
		return fmt.Errorf("failed to create user tool: %w", err)
	}
	return nil
}

// GetUserTool returns one toolbox item.
func (r *ToolboxRepository) GetUserTool(ctx context.Context, userToolID string) (*mastery.UserTool, error) {
	query := `SELECT ` + userToolColumns + ` FROM user_toolbox_items WHERE id = $1`
	row := r.conn.QueryRow(ctx, query, userToolID)
	return r.scanUserTool(row)
}

// ListUserTools returns a user's toolbox.
func (r *ToolboxRepository) ListUserTools(ctx context.Context, userID string) ([]*mastery.UserTool, error) {
	query := `SELECT ` + userToolColumns + ` FROM user_toolbox_items WHERE user_id = $1 ORDER BY added_at`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tools: %w", err)
	}
	defer rows.Close()

	var tools []*mastery.UserTool
	for rows.Next() {
		t, err := r.scanUserTool(rows)
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

// UpdateUserTool persists counter changes.
func (r *ToolboxRepository) UpdateUserTool(ctx context.Context, t *mastery.UserTool) error {
	query := `
		UPDATE user_toolbox_items SET
			name = $1,
			xp_reward = $2,
			usage_count = $3,
			updated_at = $4
		WHERE id = $5
	`

	result, err := r.conn.Exec(ctx, query,
		t.Name, t.XPReward, t.UsageCount, time.Now().UTC(), t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user tool: %w", err)
	}
	if result.RowsAffected() == 0 {
		return mastery.ErrToolNotFound
	}
	return nil
}

// DeleteUserTool removes a toolbox item and, via cascade, its usage log.
func (r *ToolboxRepository) DeleteUserTool(ctx context.Context, userToolID string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM user_toolbox_items WHERE id = $1`, userToolID)
	if err != nil {
		return fmt.Errorf("failed to delete user tool: %w", err)
	}
	if result.RowsAffected() == 0 {
		return mastery.ErrToolNotFound
	}
	return nil
}

// RecordUsage appends a usage record.
func (r *ToolboxRepository) RecordUsage(ctx context.Context, u *mastery.ToolUsage) error {
	query := `
		INSERT INTO toolbox_usage (id, user_id, user_tool_id, used_at, xp_earned)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query, u.ID, u.UserID, u.UserToolID, u.UsedAt, u.XPEarned)
	if err != nil {
		return fmt.Errorf("failed to record tool usage: %w", err)
	}
	return nil
}

// ListUsages returns usage timestamps in a range, newest first.
func (r *ToolboxRepository) ListUsages(ctx context.Context, userToolID string, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT used_at
		FROM toolbox_usage
		WHERE user_tool_id = $1 AND used_at >= $2 AND used_at <= $3
		ORDER BY used_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userToolID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool usages: %w", err)
	}
	defer rows.Close()

	var usages []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan tool usage: %w", err)
		}
		usages = append(usages, t)
	}
	return usages, rows.Err()
}

func (r *ToolboxRepository) scanUserTool(row pgx.Row) (*mastery.UserTool, error) {
	var t mastery.UserTool
	err := row.Scan(
		&t.ID, &t.UserID, &t.ToolID, &t.Name, &t.XPReward, &t.UsageCount, &t.AddedAt, &t.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, mastery.ErrToolNotFound
		}
		return nil, fmt.Errorf("failed to scan user tool: %w", err)
	}
	return &t, nil
}
