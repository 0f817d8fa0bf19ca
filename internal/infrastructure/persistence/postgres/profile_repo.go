// Package postgres implements the PostgreSQL persistence layer for Catalyst Hub.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
	"github.com/human-catalyst/catalyst-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements profile.Repository for PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

const profileColumns = `
	id, email, password_hash, display_name, avatar_url, role,
	level, current_xp, total_xp_earned,
	stripe_customer_id, subscription_id, subscription_status,
	created_at, updated_at
`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) error {
	query := `
		INSERT INTO profiles (
			id, email, password_hash, display_name, avatar_url, role,
			level, current_xp, total_xp_earned,
			stripe_customer_id, subscription_id, subscription_status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.conn.Exec(ctx, query,
		p.ID,
		p.Email,
		p.PasswordHash,
		p.DisplayName,
		p.AvatarURL,
		string(p.Role),
		p.Level,
		p.CurrentXP,
		p.TotalXPEarned,
		nullString(p.StripeCustomerID),
		nullString(p.SubscriptionID),
		string(p.SubscriptionStatus),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProfileAlreadyExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByID returns a profile by internal ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	row := r.conn.QueryRow(ctx, query, id)
	return r.scanProfile(row)
}

// GetByEmail returns a profile by email address.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`
	row := r.conn.QueryRow(ctx, query, email)
	return r.scanProfile(row)
}

// GetByCustomerID returns a profile by billing customer reference.
func (r *ProfileRepository) GetByCustomerID(ctx context.Context, customerID string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE stripe_customer_id = $1`
	row := r.conn.QueryRow(ctx, query, customerID)
	return r.scanProfile(row)
}

// Update persists the profile's current state.
func (r *ProfileRepository) Update(ctx context.Context, p *profile.Profile) error {
	return r.updateWith(ctx, r.conn, p)
}

// UpdateTx persists the profile inside an existing transaction.
// The reconciler uses this so the profile write and the subscription
// upsert commit or roll back together.
func (r *ProfileRepository) UpdateTx(ctx context.Context, tx pgx.Tx, p *profile.Profile) error {
	return r.updateWith(ctx, tx, p)
}

func (r *ProfileRepository) updateWith(ctx context.Context, q Querier, p *profile.Profile) error {
	query := `
		UPDATE profiles SET
			email = $1,
			password_hash = $2,
			display_name = $3,
			avatar_url = $4,
			role = $5,
			level = $6,
			current_xp = $7,
			total_xp_earned = $8,
			stripe_customer_id = $9,
			subscription_id = $10,
			subscription_status = $11,
			updated_at = $12
		WHERE id = $13
	`

	result, err := q.Exec(ctx, query,
		p.Email,
		p.PasswordHash,
		p.DisplayName,
		p.AvatarURL,
		string(p.Role),
		p.Level,
		p.CurrentXP,
		p.TotalXPEarned,
		nullString(p.StripeCustomerID),
		nullString(p.SubscriptionID),
		string(p.SubscriptionStatus),
		time.Now().UTC(),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}

	return nil
}

// Delete removes a profile.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetAll returns profiles with pagination.
func (r *ProfileRepository) GetAll(ctx context.Context, opts profile.ListOptions) ([]*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ` + orderClause(opts) + ` LIMIT $1 OFFSET $2`

	rows, err := r.conn.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	return r.scanProfiles(rows)
}

// GetByRole returns profiles with the given role.
func (r *ProfileRepository) GetByRole(ctx context.Context, role profile.Role, opts profile.ListOptions) ([]*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE role = $3 ` + orderClause(opts) + ` LIMIT $1 OFFSET $2`

	rows, err := r.conn.Query(ctx, query, opts.Limit, opts.Offset, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles by role: %w", err)
	}
	defer rows.Close()

	return r.scanProfiles(rows)
}

// Count returns the total number of profiles.
func (r *ProfileRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Existence Checks
// ─────────────────────────────────────────────────────────────────────────────

// Exists checks whether a profile exists by ID.
func (r *ProfileRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check profile existence: %w", err)
	}
	return exists, nil
}

// ExistsByEmail checks whether an email is already registered.
func (r *ProfileRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM profiles WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *ProfileRepository) scanProfile(row pgx.Row) (*profile.Profile, error) {
	var p profile.Profile
	var role, subStatus string
	var customerID, subscriptionID sql.NullString

	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.PasswordHash,
		&p.DisplayName,
		&p.AvatarURL,
		&role,
		&p.Level,
		&p.CurrentXP,
		&p.TotalXPEarned,
		&customerID,
		&subscriptionID,
		&subStatus,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.Role = profile.Role(role)
	p.SubscriptionStatus = profile.SubscriptionStatus(subStatus)
	p.StripeCustomerID = customerID.String
	p.SubscriptionID = subscriptionID.String

	return &p, nil
}

func (r *ProfileRepository) scanProfiles(rows pgx.Rows) ([]*profile.Profile, error) {
	var profiles []*profile.Profile
	for rows.Next() {
		p, err := r.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func orderClause(opts profile.ListOptions) string {
	column := "created_at"
	switch opts.SortBy {
	case "email", "display_name", "total_xp_earned", "level", "created_at":
		column = opts.SortBy
	}
	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", column, direction)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
