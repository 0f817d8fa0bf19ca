package profile

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the contract for the storage layer.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the CRUD operations for profiles.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Create inserts a new profile.
	// Returns shared.ErrProfileAlreadyExists if the email is taken.
	Create(ctx context.Context, p *Profile) error

	// GetByID returns a profile by internal ID.
	// Returns shared.ErrProfileNotFound if there is no such profile.
	GetByID(ctx context.Context, id string) (*Profile, error)

	// GetByEmail returns a profile by email address.
	// Returns shared.ErrProfileNotFound if there is no such profile.
	GetByEmail(ctx context.Context, email string) (*Profile, error)

	// GetByCustomerID returns a profile by its billing customer reference.
	// Returns shared.ErrProfileNotFound if there is no such profile. Webhook
	// reconciliation depends on this lookup.
	GetByCustomerID(ctx context.Context, customerID string) (*Profile, error)

	// Update persists the profile's current state.
	// Returns shared.ErrProfileNotFound if there is no such profile.
	Update(ctx context.Context, p *Profile) error

	// Delete removes a profile.
	// Returns shared.ErrProfileNotFound if there is no such profile.
	Delete(ctx context.Context, id string) error

	// ─────────────────────────────────────────────────────────────────────────
	// Bulk Operations
	// ─────────────────────────────────────────────────────────────────────────

	// GetAll returns profiles with pagination.
	GetAll(ctx context.Context, opts ListOptions) ([]*Profile, error)

	// GetByRole returns profiles with the given role.
	GetByRole(ctx context.Context, role Role, opts ListOptions) ([]*Profile, error)

	// Count returns the total number of profiles.
	Count(ctx context.Context) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Existence Checks
	// ─────────────────────────────────────────────────────────────────────────

	// Exists checks whether a profile exists by ID.
	Exists(ctx context.Context, id string) (bool, error)

	// ExistsByEmail checks whether an email is already registered.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// ListOptions contains pagination and sorting parameters.
type ListOptions struct {
	// Offset - skip this many rows.
	Offset int

	// Limit - maximum number of rows.
	Limit int

	// SortBy - column to sort by.
	SortBy string

	// SortDesc - sort descending.
	SortDesc bool
}

// DefaultListOptions returns the default listing parameters.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset:   0,
		Limit:    50,
		SortBy:   "created_at",
		SortDesc: true,
	}
}

// WithOffset sets the offset.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit sets the limit.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// WithSort sets the sort column and direction.
func (o ListOptions) WithSort(field string, desc bool) ListOptions {
	o.SortBy = field
	o.SortDesc = desc
	return o
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION STORE
// Opaque bearer tokens mapped to user IDs (implemented with Redis).
// ══════════════════════════════════════════════════════════════════════════════

// Session represents an authenticated session.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired checks whether the session has lapsed.
func (s Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionStore defines the operations for session management.
type SessionStore interface {
	// Save stores a session with the given TTL.
	Save(ctx context.Context, session Session, ttl time.Duration) error

	// Get returns the session for a token.
	// Returns shared.ErrSessionNotFound if missing or expired.
	Get(ctx context.Context, token string) (Session, error)

	// Delete removes a session (logout).
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser removes every session of a user.
	// Used when the password changes.
	DeleteAllForUser(ctx context.Context, userID string) error

	// Touch extends the session's TTL.
	Touch(ctx context.Context, token string, ttl time.Duration) error
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Cache defines caching operations for hot profile lookups.
type Cache interface {
	// Get fetches a profile from the cache.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Set stores a profile in the cache.
	Set(ctx context.Context, p *Profile, ttl time.Duration) error

	// Invalidate drops all cached entries of a user.
	Invalidate(ctx context.Context, userID string) error
}
