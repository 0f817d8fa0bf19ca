package billing

import (
	"context"
	"time"

	"github.com/human-catalyst/catalyst-hub/internal/domain/profile"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines storage operations for subscription records.
type Repository interface {
	// Upsert inserts or updates the record keyed by the provider
	// subscription ID.
	Upsert(ctx context.Context, sub *Subscription) error

	// GetByUserID returns the user's current subscription.
	// Returns ErrSubscriptionNotFound if there is none.
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)

	// GetByProviderID returns the record for a provider subscription ID.
	// Returns ErrSubscriptionNotFound if there is none.
	GetByProviderID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)

	// ListExpiring returns active subscriptions whose period ends before
	// the cutoff. Used by the worker's renewal sweep.
	ListExpiring(ctx context.Context, cutoff time.Time) ([]*Subscription, error)
}

// EventLog records which provider events have been processed so webhook
// retries do not apply the same change twice.
type EventLog interface {
	// MarkProcessed records the event ID.
	// Returns ErrEventAlreadyProcessed if it was recorded before.
	MarkProcessed(ctx context.Context, eventID string, eventType string, processedAt time.Time) error

	// IsProcessed checks whether the event ID was recorded.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// PruneOlderThan deletes log rows older than the cutoff.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// SubscriptionFetcher retrieves the provider's authoritative subscription
// state. Implemented by the Stripe client.
type SubscriptionFetcher interface {
	// FetchSubscription returns the provider's view of a subscription.
	FetchSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// One webhook event's changes commit or roll back together: the profile
// update, the subscription upsert and the processed-event mark.
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileTx is the write surface available inside a reconciliation
// transaction.
type ReconcileTx interface {
	// UpdateProfile persists profile changes.
	UpdateProfile(ctx context.Context, p *profile.Profile) error

	// UpsertSubscription persists the subscription record.
	UpsertSubscription(ctx context.Context, sub *Subscription) error

	// MarkEventProcessed records the provider event ID.
	// Returns ErrEventAlreadyProcessed if it was recorded before.
	MarkEventProcessed(ctx context.Context, eventID, eventType string, processedAt time.Time) error
}

// UnitOfWork runs a reconciliation function in one transaction.
type UnitOfWork interface {
	Reconcile(ctx context.Context, fn func(tx ReconcileTx) error) error
}
